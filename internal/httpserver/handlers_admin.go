package httpserver

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"shopfront/webshop/internal/audit"
	"shopfront/webshop/internal/product"
	"shopfront/webshop/internal/view"
)

func registerAdminRoutes(mux *http.ServeMux, p *pipeline, h *handlers) {
	mux.Handle("GET /admin/add-product", p.protected(h.getAddProduct))
	mux.Handle("POST /admin/add-product", p.protected(h.postAddProduct))
	mux.Handle("GET /admin/products", p.protected(h.getAdminProducts))
	mux.Handle("GET /admin/edit-product/{productId}", p.protected(h.getEditProduct))
	mux.Handle("POST /admin/edit-product", p.protected(h.postEditProduct))
	mux.Handle("DELETE /admin/product/{productId}", p.protected(h.deleteProduct))
}

func (h *handlers) getAddProduct(*RequestContext) (Result, error) {
	return Render(http.StatusOK, view.EditProduct, &view.EditProductPage{
		Page: view.Page{Title: "Add Product"},
	}), nil
}

func (h *handlers) postAddProduct(rc *RequestContext) (Result, error) {
	ctx := rc.Request.Context()
	in := productInput(rc)
	imageURL, err := h.saveImage(rc)
	if err != nil {
		return Result{}, err
	}

	p, err := h.deps.Products.Create(ctx, rc.User.ID, in, imageURL)
	if err != nil {
		h.deps.Images.Remove(imageURL)
		if verr, ok := isValidation(err); ok {
			return Render(http.StatusUnprocessableEntity, view.EditProduct, &view.EditProductPage{
				Page:             view.Page{Title: "Add Product"},
				HasError:         true,
				ErrorMessage:     verr.First(),
				Product:          formFromInput("", in),
				ValidationErrors: view.ErrorsFrom(verr),
			}), nil
		}
		return Result{}, err
	}
	h.audit(rc, rc.User.ID, audit.ActionProductCreate, p.ID, audit.OutcomeSuccess)
	return Redirect("/admin/products"), nil
}

func (h *handlers) getAdminProducts(rc *RequestContext) (Result, error) {
	products, err := h.deps.Products.ListByOwner(rc.Request.Context(), rc.User.ID)
	if err != nil {
		return Result{}, err
	}
	return Render(http.StatusOK, view.AdminProducts, &view.ProductListPage{
		Page:     view.Page{Title: "Admin Products"},
		Products: products,
	}), nil
}

// getEditProduct only serves ?edit=true; missing, foreign or unknown
// products send the user back to the shop.
func (h *handlers) getEditProduct(rc *RequestContext) (Result, error) {
	if rc.Request.URL.Query().Get("edit") != "true" {
		return Redirect("/"), nil
	}
	p, err := h.deps.Products.Get(rc.Request.Context(), rc.Request.PathValue("productId"))
	if errors.Is(err, product.ErrNotFound) {
		return Redirect("/"), nil
	}
	if err != nil {
		return Result{}, err
	}
	if p.UserID != rc.User.ID {
		return Redirect("/"), nil
	}
	return Render(http.StatusOK, view.EditProduct, &view.EditProductPage{
		Page:    view.Page{Title: "Edit Product"},
		Editing: true,
		Product: view.ProductForm{
			ID:          p.ID,
			Title:       p.Title,
			Price:       strconv.FormatFloat(p.Price, 'f', 2, 64),
			Description: p.Description,
		},
	}), nil
}

func (h *handlers) postEditProduct(rc *RequestContext) (Result, error) {
	ctx := rc.Request.Context()
	id := formValue(rc, "productId")
	in := productInput(rc)
	imageURL, err := h.saveImage(rc)
	if err != nil {
		return Result{}, err
	}

	p, replaced, err := h.deps.Products.Update(ctx, rc.User.ID, id, in, imageURL)
	if err != nil {
		h.deps.Images.Remove(imageURL)
		if verr, ok := isValidation(err); ok {
			return Render(http.StatusUnprocessableEntity, view.EditProduct, &view.EditProductPage{
				Page:             view.Page{Title: "Edit Product"},
				Editing:          true,
				HasError:         true,
				ErrorMessage:     verr.First(),
				Product:          formFromInput(id, in),
				ValidationErrors: view.ErrorsFrom(verr),
			}), nil
		}
		if errors.Is(err, product.ErrNotOwner) {
			h.audit(rc, rc.User.ID, audit.ActionProductUpdate, id, audit.OutcomeFailure)
			return Redirect("/"), nil
		}
		return Result{}, err
	}
	h.deps.Images.Remove(replaced)
	h.audit(rc, rc.User.ID, audit.ActionProductUpdate, p.ID, audit.OutcomeSuccess)
	return Redirect("/admin/products"), nil
}

// deleteProduct answers the admin page's fetch call with JSON in both
// outcomes.
func (h *handlers) deleteProduct(rc *RequestContext) (Result, error) {
	ctx := rc.Request.Context()
	id := rc.Request.PathValue("productId")
	p, err := h.deps.Products.Delete(ctx, rc.User.ID, id)
	if err != nil {
		h.deps.Logger.WarnContext(ctx, "delete product failed", "product_id", id, "error", err)
		h.audit(rc, rc.User.ID, audit.ActionProductDelete, id, audit.OutcomeFailure)
		return JSON(http.StatusInternalServerError, map[string]string{"message": "Deleting product failed."}), nil
	}
	h.deps.Images.Remove(p.ImageURL)
	h.audit(rc, rc.User.ID, audit.ActionProductDelete, p.ID, audit.OutcomeSuccess)
	return JSON(http.StatusOK, map[string]string{"message": "Success!"}), nil
}

func productInput(rc *RequestContext) product.Input {
	return product.Input{
		Title:       rc.Request.PostFormValue("title"),
		Price:       rc.Request.PostFormValue("price"),
		Description: rc.Request.PostFormValue("description"),
	}
}

func formFromInput(id string, in product.Input) view.ProductForm {
	return view.ProductForm{ID: id, Title: in.Title, Price: in.Price, Description: in.Description}
}

// saveImage stores the uploaded "image" file. A missing or rejected file
// yields an empty URL.
func (h *handlers) saveImage(rc *RequestContext) (string, error) {
	fh := uploadedFile(rc.Request, "image")
	if fh == nil {
		return "", nil
	}
	return h.deps.Images.Save(fh)
}

func uploadedFile(r *http.Request, field string) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 || files[0].Size == 0 {
		return nil
	}
	return files[0]
}
