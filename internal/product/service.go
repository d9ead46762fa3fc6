package product

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"shopfront/webshop/internal/apperr"
)

// Service is the catalog used when no database is configured. With a state
// file it survives restarts; without one it is memory only.
type Service struct {
	nowFunc   func() time.Time
	stateFile string

	mu       sync.RWMutex
	products map[string]Product
}

func NewService() *Service {
	return &Service{
		nowFunc:  time.Now,
		products: make(map[string]Product),
	}
}

func NewServiceWithFile(stateFile string) (*Service, error) {
	s := &Service{
		nowFunc:   time.Now,
		stateFile: strings.TrimSpace(stateFile),
		products:  make(map[string]Product),
	}
	if s.stateFile == "" {
		return nil, fmt.Errorf("state file path is required")
	}
	if err := s.loadState(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) Create(_ context.Context, ownerID string, in Input, imageURL string) (Product, error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	if err := s.persistLocked(); err != nil {
		delete(s.products, p.ID)
		return Product{}, err
	}
	return p, nil
}

func (s *Service) List(context.Context) ([]Product, error) {
	return s.filter(func(Product) bool { return true }), nil
}

func (s *Service) ListByOwner(_ context.Context, ownerID string) ([]Product, error) {
	return s.filter(func(p Product) bool { return p.UserID == ownerID }), nil
}

func (s *Service) filter(keep func(Product) bool) []Product {
	s.mu.RLock()
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Service) Get(_ context.Context, id string) (Product, error) {
	s.mu.RLock()
	p, ok := s.products[id]
	s.mu.RUnlock()
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (s *Service) Update(_ context.Context, ownerID, id string, in Input, imageURL string) (Product, string, error) {
	f, err := parseInput(in, false, imageURL)
	if err != nil {
		return Product{}, "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.products[id]
	if !ok {
		return Product{}, "", ErrNotFound
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

	s.products[id] = updated
	if err := s.persistLocked(); err != nil {
		s.products[id] = existing
		return Product{}, "", err
	}
	return updated, replaced, nil
}

func (s *Service) Delete(_ context.Context, ownerID, id string) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	if p.UserID != ownerID {
		return Product{}, ErrNotOwner
	}
	delete(s.products, id)
	if err := s.persistLocked(); err != nil {
		s.products[id] = p
		return Product{}, err
	}
	return p, nil
}

func (s *Service) loadState() error {
	b, err := os.ReadFile(s.stateFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read product state: %w", err)
	}
	if len(b) == 0 {
		return nil
	}
	var decoded []Product
	if err := json.Unmarshal(b, &decoded); err != nil {
		return fmt.Errorf("decode product state: %w", err)
	}
	for _, p := range decoded {
		if p.ID == "" {
			continue
		}
		s.products[p.ID] = p
	}
	return nil
}

func (s *Service) persistLocked() error {
	if s.stateFile == "" {
		return nil
	}
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode product state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.stateFile), 0o755); err != nil {
		return apperr.StoreUnavailable("products.persist", err)
	}
	if err := os.WriteFile(s.stateFile, b, 0o644); err != nil {
		return apperr.StoreUnavailable("products.persist", err)
	}
	return nil
}
