package httpserver

import (
	"errors"
	"net/http"

	"shopfront/webshop/internal/product"
	"shopfront/webshop/internal/view"
)

func registerShopRoutes(mux *http.ServeMux, p *pipeline, h *handlers) {
	mux.Handle("GET /{$}", p.public(h.getIndex))
	mux.Handle("GET /products", p.public(h.getProducts))
	mux.Handle("GET /products/{productId}", p.public(h.getProduct))
	mux.Handle("GET /cart", p.protected(h.getCart))
	mux.Handle("POST /cart", p.protected(h.postCart))
	mux.Handle("POST /cart-delete-item", p.protected(h.postCartDeleteItem))
}

func (h *handlers) getIndex(rc *RequestContext) (Result, error) {
	products, err := h.deps.Products.List(rc.Request.Context())
	if err != nil {
		return Result{}, err
	}
	return Render(http.StatusOK, view.ShopIndex, &view.ProductListPage{
		Page:     view.Page{Title: "Shop"},
		Products: products,
	}), nil
}

func (h *handlers) getProducts(rc *RequestContext) (Result, error) {
	products, err := h.deps.Products.List(rc.Request.Context())
	if err != nil {
		return Result{}, err
	}
	return Render(http.StatusOK, view.ProductList, &view.ProductListPage{
		Page:     view.Page{Title: "All Products"},
		Products: products,
	}), nil
}

func (h *handlers) getProduct(rc *RequestContext) (Result, error) {
	p, err := h.deps.Products.Get(rc.Request.Context(), rc.Request.PathValue("productId"))
	if err != nil {
		return Result{}, err
	}
	return Render(http.StatusOK, view.ProductDetail, &view.ProductDetailPage{
		Page:    view.Page{Title: p.Title},
		Product: p,
	}), nil
}

// getCart resolves cart lines against the catalog. Lines whose product
// was deleted since are left out.
func (h *handlers) getCart(rc *RequestContext) (Result, error) {
	ctx := rc.Request.Context()
	lines := make([]view.CartLine, 0, len(rc.User.Cart))
	for _, item := range rc.User.Cart {
		p, err := h.deps.Products.Get(ctx, item.ProductID)
		if errors.Is(err, product.ErrNotFound) {
			continue
		}
		if err != nil {
			return Result{}, err
		}
		lines = append(lines, view.CartLine{Product: p, Quantity: item.Quantity})
	}
	return Render(http.StatusOK, view.Cart, &view.CartPage{
		Page:  view.Page{Title: "Your Cart"},
		Lines: lines,
	}), nil
}

func (h *handlers) postCart(rc *RequestContext) (Result, error) {
	ctx := rc.Request.Context()
	p, err := h.deps.Products.Get(ctx, formValue(rc, "productId"))
	if err != nil {
		return Result{}, err
	}
	if err := h.deps.Credentials.AddToCart(ctx, rc.User, p.ID); err != nil {
		return Result{}, err
	}
	return Redirect("/cart"), nil
}

func (h *handlers) postCartDeleteItem(rc *RequestContext) (Result, error) {
	if err := h.deps.Credentials.RemoveFromCart(rc.Request.Context(), rc.User, formValue(rc, "productId")); err != nil {
		return Result{}, err
	}
	return Redirect("/cart"), nil
}

func (h *handlers) getServerError(*RequestContext) (Result, error) {
	return Render(http.StatusInternalServerError, view.Error, &view.ErrorPage{
		Page:   view.Page{Title: "Error!"},
		Status: http.StatusInternalServerError,
	}), nil
}
