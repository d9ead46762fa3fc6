// Package view renders typed page records with html/template.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
)

//go:embed templates
var templatesFS embed.FS

const layoutFile = "templates/layout.html"

// Template names accepted by Render.
const (
	ShopIndex     = "shop/index"
	ProductList   = "shop/product-list"
	ProductDetail = "shop/product-detail"
	Cart          = "shop/cart"
	Login         = "auth/login"
	Signup        = "auth/signup"
	Reset         = "auth/reset"
	NewPassword   = "auth/new-password"
	EditProduct   = "admin/edit-product"
	AdminProducts = "admin/products"
	Error         = "errors/error"
)

type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"price": func(v float64) string { return fmt.Sprintf("%.2f", v) },
}

// New parses the layout once and every page against its own copy of it.
func New() (*Renderer, error) {
	layout, err := template.New("layout.html").Funcs(funcs).ParseFS(templatesFS, layoutFile)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	err = fs.WalkDir(templatesFS, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || p == layoutFile || path.Ext(p) != ".html" {
			return nil
		}
		t, err := layout.Clone()
		if err != nil {
			return err
		}
		if _, err := t.ParseFS(templatesFS, p); err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
		name := strings.TrimSuffix(strings.TrimPrefix(p, "templates/"), ".html")
		r.pages[name] = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Render executes name into w. Output is buffered so a failing template
// never leaves a half-written page.
func (r *Renderer) Render(w io.Writer, name string, data Viewer) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("view %q not found", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
