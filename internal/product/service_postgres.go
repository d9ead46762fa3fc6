package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"shopfront/webshop/internal/apperr"
)

// PGService stores products in the products table.
type PGService struct {
	db      *sql.DB
	nowFunc func() time.Time
}

func NewPGService(db *sql.DB) (*PGService, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	return &PGService{
		db:      db,
		nowFunc: time.Now,
	}, nil
}

const selectProduct = `
SELECT id, title, price, description, image_url, user_id, created_at, modified_at
FROM products`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(r rowScanner) (Product, error) {
	var p Product
	err := r.Scan(&p.ID, &p.Title, &p.Price, &p.Description, &p.ImageURL, &p.UserID, &p.CreatedAt, &p.ModifiedAt)
	return p, err
}

func (s *PGService) Create(ctx context.Context, ownerID string, in Input, imageURL string) (Product, error) {
	f, err := parseInput(in, true, imageURL)
	if err != nil {
		return Product{}, err
	}

	now := s.nowFunc().UTC()
	p := Product{
		ID:          uuid.NewString(),
		Title:       f.title,
		Price:       f.price,
		Description: f.description,
		ImageURL:    imageURL,
		UserID:      ownerID,
		CreatedAt:   now,
		ModifiedAt:  now,
	}

	const q = `
INSERT INTO products
  (id, title, price, description, image_url, user_id, created_at, modified_at)
VALUES
  ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := s.db.ExecContext(ctx, q, p.ID, p.Title, p.Price, p.Description, p.ImageURL, p.UserID, p.CreatedAt, p.ModifiedAt); err != nil {
		return Product{}, apperr.StoreUnavailable("products.insert", err)
	}
	return p, nil
}

func (s *PGService) List(ctx context.Context) ([]Product, error) {
	return s.query(ctx, "products.list", selectProduct+`
ORDER BY created_at ASC`)
}

func (s *PGService) ListByOwner(ctx context.Context, ownerID string) ([]Product, error) {
	return s.query(ctx, "products.list_by_owner", selectProduct+`
WHERE user_id = $1
ORDER BY created_at ASC`, ownerID)
}

func (s *PGService) query(ctx context.Context, op, q string, args ...any) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apperr.StoreUnavailable(op, err)
	}
	defer rows.Close()

	out := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, apperr.StoreUnavailable(op, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.StoreUnavailable(op, err)
	}
	return out, nil
}

func (s *PGService) Get(ctx context.Context, id string) (Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Product{}, ErrNotFound
	}
	p, err := scanProduct(s.db.QueryRowContext(ctx, selectProduct+`
WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, apperr.StoreUnavailable("products.get", err)
	}
	return p, nil
}

func (s *PGService) Update(ctx context.Context, ownerID, id string, in Input, imageURL string) (Product, string, error) {
	f, err := parseInput(in, false, imageURL)
	if err != nil {
		return Product{}, "", err
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return Product{}, "", err
	}
	if existing.UserID != ownerID {
		return Product{}, "", ErrNotOwner
	}

	updated := existing
	updated.Title = f.title
	updated.Price = f.price
	updated.Description = f.description
	replaced := ""
	if imageURL != "" {
		replaced = existing.ImageURL
		updated.ImageURL = imageURL
	}
	updated.ModifiedAt = s.nowFunc().UTC()

	const q = `
UPDATE products
SET title = $3,
	price = $4,
	description = $5,
	image_url = $6,
	modified_at = $7
WHERE id = $1 AND user_id = $2`
	res, err := s.db.ExecContext(ctx, q, updated.ID, ownerID, updated.Title, updated.Price, updated.Description, updated.ImageURL, updated.ModifiedAt)
	if err != nil {
		return Product{}, "", apperr.StoreUnavailable("products.update", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Product{}, "", apperr.StoreUnavailable("products.update", err)
	}
	if affected == 0 {
		return Product{}, "", ErrNotFound
	}
	return updated, replaced, nil
}

func (s *PGService) Delete(ctx context.Context, ownerID, id string) (Product, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if existing.UserID != ownerID {
		return Product{}, ErrNotOwner
	}

	const q = `DELETE FROM products WHERE id = $1 AND user_id = $2`
	res, err := s.db.ExecContext(ctx, q, existing.ID, ownerID)
	if err != nil {
		return Product{}, apperr.StoreUnavailable("products.delete", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Product{}, apperr.StoreUnavailable("products.delete", err)
	}
	if affected == 0 {
		return Product{}, ErrNotFound
	}
	return existing, nil
}
