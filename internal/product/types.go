package product

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("product not found")
	// ErrNotOwner is returned when a user edits or deletes a product they
	// did not create.
	ErrNotOwner = errors.New("product belongs to another user")
	ErrNoImage  = errors.New("image required")
)

type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	ModifiedAt  time.Time `json:"modified_at"`
}

// Input is the raw form submission for add/edit.
type Input struct {
	Title       string
	Price       string
	Description string
}

// Catalog is implemented by the file-backed Service and by PGService.
// Update and Delete are scoped to ownerID.
type Catalog interface {
	List(ctx context.Context) ([]Product, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Product, error)
	Get(ctx context.Context, id string) (Product, error)
	Create(ctx context.Context, ownerID string, in Input, imageURL string) (Product, error)
	// Update returns the saved product and, when imageURL replaced an
	// existing image, the old image URL.
	Update(ctx context.Context, ownerID, id string, in Input, imageURL string) (Product, string, error)
	Delete(ctx context.Context, ownerID, id string) (Product, error)
}

var (
	_ Catalog = (*Service)(nil)
	_ Catalog = (*PGService)(nil)
)
