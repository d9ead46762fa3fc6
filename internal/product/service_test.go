package product

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"shopfront/webshop/internal/validation"
)

var validInput = Input{Title: "Red Book", Price: "12.99", Description: "A very red book."}

func TestServiceCRUD(t *testing.T) {
	svc := NewService()
	ctx := context.Background()

	created, err := svc.Create(ctx, "u-1", validInput, "/images/red.png")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if created.Price != 12.99 || created.UserID != "u-1" {
		t.Fatalf("unexpected product: %+v", created)
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Title != "Red Book" {
		t.Fatalf("expected title Red Book, got %q", got.Title)
	}

	updated, replaced, err := svc.Update(ctx, "u-1", created.ID, Input{Title: "  Blue Book ", Price: "3", Description: "Now blue."}, "")
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if updated.Title != "Blue Book" || updated.ImageURL != "/images/red.png" || replaced != "" {
		t.Fatalf("unexpected update result: %+v replaced=%q", updated, replaced)
	}

	_, replaced, err = svc.Update(ctx, "u-1", created.ID, validInput, "/images/new.png")
	if err != nil {
		t.Fatalf("Update() with image error: %v", err)
	}
	if replaced != "/images/red.png" {
		t.Fatalf("expected replaced image, got %q", replaced)
	}

	deleted, err := svc.Delete(ctx, "u-1", created.ID)
	if err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if deleted.ImageURL != "/images/new.png" {
		t.Fatalf("expected deleted product image, got %q", deleted.ImageURL)
	}
	if _, err := svc.Get(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServiceOwnerScoping(t *testing.T) {
	svc := NewService()
	ctx := context.Background()

	p, err := svc.Create(ctx, "owner", validInput, "/images/a.png")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := svc.Create(ctx, "other", validInput, "/images/b.png"); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if _, _, err := svc.Update(ctx, "other", p.ID, validInput, ""); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner on update, got %v", err)
	}
	if _, err := svc.Delete(ctx, "other", p.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner on delete, got %v", err)
	}

	mine, _ := svc.ListByOwner(ctx, "owner")
	all, _ := svc.List(ctx)
	if len(mine) != 1 || len(all) != 2 {
		t.Fatalf("expected 1 owned and 2 total, got %d and %d", len(mine), len(all))
	}
}

func TestValidationCollectsAllFields(t *testing.T) {
	svc := NewService()

	_, err := svc.Create(context.Background(), "u-1", Input{Title: " ab ", Price: "cheap", Description: "tiny"}, "")
	var verr *validation.Errors
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	want := []string{"image", "title", "price", "description"}
	if len(verr.Fields) != len(want) {
		t.Fatalf("expected %d errors, got %+v", len(want), verr.Fields)
	}
	for i, f := range verr.Fields {
		if f.Field != want[i] {
			t.Fatalf("error %d: expected %q, got %q", i, want[i], f.Field)
		}
	}
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage in chain")
	}
}

func TestValidationDescriptionBounds(t *testing.T) {
	long := make([]byte, maxDescriptionLength+1)
	for i := range long {
		long[i] = 'x'
	}
	cases := []struct {
		desc string
		ok   bool
	}{
		{"abcde", true},
		{string(long[:maxDescriptionLength]), true},
		{string(long), false},
		{"  abcd  ", false},
	}
	for _, tc := range cases {
		_, err := parseInput(Input{Title: "abc", Price: "1", Description: tc.desc}, false, "")
		if (err == nil) != tc.ok {
			t.Errorf("description len %d: err=%v, want ok=%v", len(tc.desc), err, tc.ok)
		}
	}
	if _, err := parseInput(Input{Title: "abc", Price: "NaN", Description: "abcde"}, false, ""); err == nil {
		t.Errorf("expected NaN price to be rejected")
	}
}

func TestServicePersistsToFile(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "products.json")

	svc, err := NewServiceWithFile(stateFile)
	if err != nil {
		t.Fatalf("NewServiceWithFile() error: %v", err)
	}
	created, err := svc.Create(context.Background(), "u-1", validInput, "/images/red.png")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	raw, err := os.ReadFile(stateFile)
	if err != nil {
		t.Fatalf("read state file: %v", err)
	}
	var products []Product
	if err := json.Unmarshal(raw, &products); err != nil {
		t.Fatalf("decode state file: %v", err)
	}
	if len(products) != 1 || products[0].ID != created.ID {
		t.Fatalf("expected one persisted product with id %s", created.ID)
	}

	svc2, err := NewServiceWithFile(stateFile)
	if err != nil {
		t.Fatalf("NewServiceWithFile() reload error: %v", err)
	}
	got, err := svc2.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Get() from reloaded service error: %v", err)
	}
	if got.Title != "Red Book" {
		t.Fatalf("expected persisted title, got %q", got.Title)
	}
}
