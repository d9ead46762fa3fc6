package view

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopfront/webshop/internal/product"
	"shopfront/webshop/internal/validation"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	require.NoError(t, err)
	return r
}

func TestAllViewsParse(t *testing.T) {
	r := newRenderer(t)
	for _, name := range []string{ShopIndex, ProductList, ProductDetail, Cart, Login, Signup, Reset, NewPassword, EditProduct, AdminProducts, Error} {
		assert.Contains(t, r.pages, name)
	}
}

func TestRenderLoginWithErrors(t *testing.T) {
	r := newRenderer(t)
	var verr validation.Errors
	verr.Add("email", "Please enter a valid email.", nil)

	var buf bytes.Buffer
	err := r.Render(&buf, Login, &LoginPage{
		Page:             Page{Title: "Login", Path: "/login", CSRFToken: "tok.en"},
		ErrorMessage:     verr.First(),
		OldEmail:         `<script>x</script>`,
		ValidationErrors: ErrorsFrom(&verr),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `<title>Login</title>`)
	assert.Contains(t, out, `value="tok.en"`)
	assert.Contains(t, out, "Please enter a valid email.")
	assert.Contains(t, out, `class="invalid"`)
	assert.NotContains(t, out, "<script>x</script>")
}

func TestRenderNavFollowsAuthentication(t *testing.T) {
	r := newRenderer(t)

	var anon, authed bytes.Buffer
	require.NoError(t, r.Render(&anon, ShopIndex, &ProductListPage{Page: Page{Title: "Shop", Path: "/"}}))
	require.NoError(t, r.Render(&authed, ShopIndex, &ProductListPage{
		Page:     Page{Title: "Shop", Path: "/", IsAuthenticated: true, CSRFToken: "t"},
		Products: []product.Product{{ID: "p1", Title: "Red Book", Price: 12.5, ImageURL: "/images/a.png"}},
	}))

	assert.Contains(t, anon.String(), `href="/login"`)
	assert.NotContains(t, anon.String(), `action="/logout"`)
	assert.Contains(t, anon.String(), "No Products Found!")

	assert.Contains(t, authed.String(), `action="/logout"`)
	assert.Contains(t, authed.String(), "$12.50")
	assert.Contains(t, authed.String(), `action="/cart"`)
}

func TestRenderErrorPages(t *testing.T) {
	r := newRenderer(t)

	var notFound, internal bytes.Buffer
	require.NoError(t, r.Render(&notFound, Error, &ErrorPage{Page: Page{Title: "Page Not Found"}, Status: 404}))
	require.NoError(t, r.Render(&internal, Error, &ErrorPage{Page: Page{Title: "Error!"}, Status: 500}))

	assert.Contains(t, notFound.String(), "Page Not Found!")
	assert.Contains(t, internal.String(), "Some error occurred!")
}

func TestRenderUnknownView(t *testing.T) {
	r := newRenderer(t)
	var buf bytes.Buffer
	err := r.Render(&buf, "nope", &ErrorPage{})
	require.Error(t, err)
	assert.Zero(t, buf.Len())
}

func TestFormErrorsHas(t *testing.T) {
	var nilErrs FormErrors
	assert.False(t, nilErrs.Has("email"))
	assert.Nil(t, ErrorsFrom(nil))

	errs := FormErrors{{Field: "title"}}
	assert.True(t, errs.Has("title"))
	assert.False(t, errs.Has("price"))
}
