package product

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"shopfront/webshop/internal/apperr"
)

var productColumns = []string{"id", "title", "price", "description", "image_url", "user_id", "created_at", "modified_at"}

func newPGServiceTest(t *testing.T) (*PGService, sqlmock.Sqlmock, time.Time) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	svc, err := NewPGService(db)
	if err != nil {
		t.Fatalf("NewPGService() error: %v", err)
	}
	now := time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)
	svc.nowFunc = func() time.Time { return now }
	return svc, mock, now
}

func TestNewPGServiceRequiresDB(t *testing.T) {
	if _, err := NewPGService(nil); err == nil {
		t.Fatalf("expected error for nil db")
	}
}

func TestPGServiceCreate(t *testing.T) {
	svc, mock, now := newPGServiceTest(t)

	mock.ExpectExec("INSERT INTO products").
		WithArgs(sqlmock.AnyArg(), "Red Book", 12.99, "A very red book.", "/images/red.png", "u-1", now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	p, err := svc.Create(context.Background(), "u-1", validInput, "/images/red.png")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if p.ID == "" {
		t.Fatalf("expected generated id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestPGServiceCreateValidationSkipsDB(t *testing.T) {
	svc, mock, _ := newPGServiceTest(t)

	if _, err := svc.Create(context.Background(), "u-1", Input{}, ""); err == nil {
		t.Fatalf("expected validation error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected db calls: %v", err)
	}
}

func TestPGServiceListByOwner(t *testing.T) {
	svc, mock, now := newPGServiceTest(t)

	mock.ExpectQuery("FROM products\\s+WHERE user_id = \\$1").
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(productColumns).
			AddRow("p1", "Red Book", 12.99, "A very red book.", "/images/red.png", "u-1", now, now).
			AddRow("p2", "Blue Book", 3.0, "A blue book.", "/images/blue.png", "u-1", now, now))

	got, err := svc.ListByOwner(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("ListByOwner() error: %v", err)
	}
	if len(got) != 2 || got[1].Title != "Blue Book" {
		t.Fatalf("unexpected products: %+v", got)
	}
}

func TestPGServiceListFailure(t *testing.T) {
	svc, mock, _ := newPGServiceTest(t)

	mock.ExpectQuery("FROM products").WillReturnError(errors.New("connection refused"))

	if _, err := svc.List(context.Background()); !apperr.IsStoreUnavailable(err) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
}

func TestPGServiceGetNotFound(t *testing.T) {
	svc, mock, _ := newPGServiceTest(t)

	mock.ExpectQuery("FROM products\\s+WHERE id = \\$1").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGServiceUpdateReplacesImage(t *testing.T) {
	svc, mock, now := newPGServiceTest(t)

	mock.ExpectQuery("FROM products\\s+WHERE id = \\$1").
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(productColumns).
			AddRow("p1", "Red Book", 12.99, "A very red book.", "/images/red.png", "u-1", now, now))
	mock.ExpectExec("UPDATE products").
		WithArgs("p1", "u-1", "Red Book", 12.99, "A very red book.", "/images/new.png", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, replaced, err := svc.Update(context.Background(), "u-1", "p1", validInput, "/images/new.png")
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if replaced != "/images/red.png" {
		t.Fatalf("expected replaced image, got %q", replaced)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestPGServiceDeleteByNonOwner(t *testing.T) {
	svc, mock, now := newPGServiceTest(t)

	mock.ExpectQuery("FROM products\\s+WHERE id = \\$1").
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(productColumns).
			AddRow("p1", "Red Book", 12.99, "A very red book.", "/images/red.png", "owner", now, now))

	if _, err := svc.Delete(context.Background(), "intruder", "p1"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestPGServiceDelete(t *testing.T) {
	svc, mock, now := newPGServiceTest(t)

	mock.ExpectQuery("FROM products\\s+WHERE id = \\$1").
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(productColumns).
			AddRow("p1", "Red Book", 12.99, "A very red book.", "/images/red.png", "u-1", now, now))
	mock.ExpectExec("DELETE FROM products WHERE id = \\$1 AND user_id = \\$2").
		WithArgs("p1", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	p, err := svc.Delete(context.Background(), "u-1", "p1")
	if err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if p.ImageURL != "/images/red.png" {
		t.Fatalf("expected deleted product, got %+v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}
