package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

var developerCols = []string{"id", "handle", "created_at"}

var entryCols = []string{"id", "first_developer_id", "second_developer_id", "registered_at", "connected", "organisations"}

func newConnectionRepo(t *testing.T) (*ConnectionRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewConnectionRepository(sqlx.NewDb(db, "postgres")), mock
}

// ---------------------------------------------------------------------------
// ResolveHandle
// ---------------------------------------------------------------------------

func TestResolveHandle_Found(t *testing.T) {
	repo, mock := newConnectionRepo(t)
	created := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, handle, created_at FROM developers WHERE lower").
		WithArgs("DEV1").
		WillReturnRows(sqlmock.NewRows(developerCols).AddRow("dev-id-1", "dev1", created))

	dev, err := repo.ResolveHandle(context.Background(), "DEV1")
	if err != nil {
		t.Fatalf("ResolveHandle() error = %v", err)
	}
	if dev == nil {
		t.Fatal("ResolveHandle() = nil, want developer")
	}
	if dev.ID != "dev-id-1" || dev.Handle != "dev1" {
		t.Errorf("ResolveHandle() = %+v, want id=dev-id-1 handle=dev1", dev)
	}
	if !dev.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", dev.CreatedAt, created)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestResolveHandle_NotFound(t *testing.T) {
	repo, mock := newConnectionRepo(t)

	mock.ExpectQuery("FROM developers").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(developerCols))

	dev, err := repo.ResolveHandle(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("ResolveHandle() error = %v, want nil", err)
	}
	if dev != nil {
		t.Errorf("ResolveHandle() = %+v, want nil", dev)
	}
}

func TestResolveHandle_DBError(t *testing.T) {
	repo, mock := newConnectionRepo(t)
	dbErr := errors.New("connection reset")

	mock.ExpectQuery("FROM developers").
		WithArgs("dev1").
		WillReturnError(dbErr)

	_, err := repo.ResolveHandle(context.Background(), "dev1")
	if !errors.Is(err, dbErr) {
		t.Errorf("ResolveHandle() error = %v, want wrapped %v", err, dbErr)
	}
}

// ---------------------------------------------------------------------------
// ListEntries
// ---------------------------------------------------------------------------

func TestListEntries_ReturnsRowsInQueryOrder(t *testing.T) {
	repo, mock := newConnectionRepo(t)
	t1 := time.Date(2022, 5, 30, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM connection_entries WHERE first_developer_id = \\$1 AND second_developer_id = \\$2 ORDER BY registered_at ASC, id ASC").
		WithArgs("a", "b").
		WillReturnRows(sqlmock.NewRows(entryCols).
			AddRow(int64(1), "a", "b", t1, false, "{}").
			AddRow(int64(2), "a", "b", t2, true, "{org1,org3}"))

	entries, err := repo.ListEntries(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("ListEntries() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if !entries[0].RegisteredAt.Equal(t1) || entries[0].Connected {
		t.Errorf("entries[0] = %+v, want disconnected at %v", entries[0], t1)
	}
	if !entries[1].Connected {
		t.Error("entries[1].Connected = false, want true")
	}
	if got := []string(entries[1].Organisations); len(got) != 2 || got[0] != "org1" || got[1] != "org3" {
		t.Errorf("entries[1].Organisations = %v, want [org1 org3]", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestListEntries_EmptyIsNonNil(t *testing.T) {
	repo, mock := newConnectionRepo(t)

	mock.ExpectQuery("FROM connection_entries").
		WithArgs("a", "b").
		WillReturnRows(sqlmock.NewRows(entryCols))

	entries, err := repo.ListEntries(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("ListEntries() error = %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("ListEntries() = %v, want empty non-nil slice", entries)
	}
}

func TestListEntries_DBError(t *testing.T) {
	repo, mock := newConnectionRepo(t)
	dbErr := errors.New("timeout")

	mock.ExpectQuery("FROM connection_entries").WillReturnError(dbErr)

	if _, err := repo.ListEntries(context.Background(), "a", "b"); !errors.Is(err, dbErr) {
		t.Errorf("ListEntries() error = %v, want wrapped %v", err, dbErr)
	}
}
