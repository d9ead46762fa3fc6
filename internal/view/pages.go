package view

import (
	"shopfront/webshop/internal/product"
	"shopfront/webshop/internal/validation"
)

// Page carries what every view needs. The pipeline fills it in before the
// handler's record reaches the renderer.
type Page struct {
	Title           string
	Path            string
	IsAuthenticated bool
	CSRFToken       string
}

func (p *Page) Base() *Page { return p }

// Viewer is implemented by every page record through its embedded Page.
type Viewer interface {
	Base() *Page
}

// FormErrors lists failed fields so templates can flag inputs.
type FormErrors []validation.FieldError

func (f FormErrors) Has(field string) bool {
	for _, e := range f {
		if e.Field == field {
			return true
		}
	}
	return false
}

// ErrorsFrom converts collected validation errors; nil gives an empty list.
func ErrorsFrom(verr *validation.Errors) FormErrors {
	if verr == nil {
		return nil
	}
	return FormErrors(verr.Fields)
}

type ProductListPage struct {
	Page
	Products []product.Product
}

type ProductDetailPage struct {
	Page
	Product product.Product
}

type CartLine struct {
	Product  product.Product
	Quantity int
}

type CartPage struct {
	Page
	Lines []CartLine
}

type LoginPage struct {
	Page
	ErrorMessage     string
	OldEmail         string
	ValidationErrors FormErrors
}

type SignupPage struct {
	Page
	ErrorMessage     string
	OldEmail         string
	ValidationErrors FormErrors
}

type ResetPage struct {
	Page
	ErrorMessage string
	OldEmail     string
}

type NewPasswordPage struct {
	Page
	ErrorMessage string
	Token        string
}

// ProductForm echoes submitted values back into the form.
type ProductForm struct {
	ID          string
	Title       string
	Price       string
	Description string
}

type EditProductPage struct {
	Page
	Editing          bool
	HasError         bool
	ErrorMessage     string
	Product          ProductForm
	ValidationErrors FormErrors
}

type ErrorPage struct {
	Page
	Status  int
	Message string
}
