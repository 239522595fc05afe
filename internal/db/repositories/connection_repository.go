// connection_repository.go implements ConnectionRepository, the read-only storage side of the
// connected registry: developer handle resolution and per-pair connection history.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/connected-registry/connected-registry/internal/db/models"
	"github.com/jmoiron/sqlx"
)

// ConnectionRepository handles database reads for developers and their connection history
type ConnectionRepository struct {
	db *sqlx.DB
}

// NewConnectionRepository creates a new connection repository
func NewConnectionRepository(db *sqlx.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// ResolveHandle retrieves a developer by handle, ignoring case
func (r *ConnectionRepository) ResolveHandle(ctx context.Context, raw string) (*models.Developer, error) {
	query := `
		SELECT id, handle, created_at
		FROM developers
		WHERE lower(handle) = lower($1)
	`

	var dev models.Developer
	err := r.db.GetContext(ctx, &dev, query, raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get developer: %w", err)
	}

	return &dev, nil
}

// ListEntries retrieves the connection history of an ordered developer pair, oldest first.
// Entries sharing a timestamp keep insertion order.
func (r *ConnectionRepository) ListEntries(ctx context.Context, firstID, secondID string) ([]*models.ConnectionEntry, error) {
	query := `
		SELECT id, first_developer_id, second_developer_id, registered_at, connected, organisations
		FROM connection_entries
		WHERE first_developer_id = $1 AND second_developer_id = $2
		ORDER BY registered_at ASC, id ASC
	`

	entries := []*models.ConnectionEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, firstID, secondID); err != nil {
		return nil, fmt.Errorf("failed to list connection entries: %w", err)
	}

	return entries, nil
}
