package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
)

func TestPostgresStore_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT value FROM portal_kv WHERE key = \$1`).
		WithArgs("token").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("tok-1"))

	s := NewPostgresStoreWithDB(mock)
	v, ok, err := s.Get(context.Background(), "token")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || v != "tok-1" {
		t.Fatalf("Get = (%q, %v), want (tok-1, true)", v, ok)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresStore_GetMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT value FROM portal_kv WHERE key = \$1`).
		WithArgs("user").
		WillReturnError(pgx.ErrNoRows)

	_, ok, err := NewPostgresStoreWithDB(mock).Get(context.Background(), "user")
	if err != nil {
		t.Fatalf("missing key should not error: %v", err)
	}
	if ok {
		t.Fatal("missing key reported as present")
	}
}

func TestPostgresStore_SetAndDelete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS portal_kv`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`INSERT INTO portal_kv \(key, value, updated_at\) VALUES \(\$1, \$2, now\(\)\)`).
		WithArgs("token", "tok-9").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM portal_kv WHERE key = \$1`).
		WithArgs("token").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	s := NewPostgresStoreWithDB(mock)
	ctx := context.Background()
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	if err := s.Set(ctx, "token", "tok-9"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Delete(ctx, "token"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresStore_SetError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO portal_kv`).
		WithArgs("token", "x").
		WillReturnError(errors.New("connection reset"))

	if err := NewPostgresStoreWithDB(mock).Set(context.Background(), "token", "x"); err == nil {
		t.Fatal("expected error")
	}
}
