package registry

import (
	"context"
	"fmt"

	"github.com/connected-registry/connected-registry/internal/db/models"
)

// HistoryStore is the read side of the storage collaborator consumed by
// RepositoryQueryHandler. repositories.ConnectionRepository satisfies it.
type HistoryStore interface {
	// ResolveHandle returns the developer registered under raw, matched
	// case-insensitively, or nil when no such developer exists.
	ResolveHandle(ctx context.Context, raw string) (*models.Developer, error)
	// ListEntries returns the stored snapshots for the ordered pair, oldest first.
	ListEntries(ctx context.Context, firstID, secondID string) ([]*models.ConnectionEntry, error)
}

// RepositoryQueryHandler resolves queries against a HistoryStore.
type RepositoryQueryHandler struct {
	store HistoryStore
}

// NewRepositoryQueryHandler creates a handler backed by store.
func NewRepositoryQueryHandler(store HistoryStore) *RepositoryQueryHandler {
	return &RepositoryQueryHandler{store: store}
}

// Handle implements QueryHandler. Unknown handles yield an empty register that
// echoes the raw query; known handles are echoed in their stored form.
func (h *RepositoryQueryHandler) Handle(ctx context.Context, q ConnectedRegistryQuery) (RegisterFor, error) {
	first, err := h.resolve(ctx, q.First())
	if err != nil {
		return RegisterFor{}, err
	}
	if first == nil {
		return EmptyRegister(q), nil
	}

	second, err := h.resolve(ctx, q.Second())
	if err != nil {
		return RegisterFor{}, err
	}
	if second == nil {
		return EmptyRegister(q), nil
	}

	rows, err := h.store.ListEntries(ctx, first.ID, second.ID)
	if err != nil {
		return RegisterFor{}, fmt.Errorf("failed to list connection entries for %q/%q: %w", first.Handle, second.Handle, err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, Entry{
			RegisteredAt:  row.RegisteredAt,
			Connected:     row.Connected,
			Organizations: []string(row.Organisations),
		})
	}

	return RegisterFor{
		First:   NewHandle(first.Handle),
		Second:  NewHandle(second.Handle),
		Entries: entries,
	}, nil
}

func (h *RepositoryQueryHandler) resolve(ctx context.Context, raw string) (*models.Developer, error) {
	if raw == "" {
		return nil, nil
	}
	dev, err := h.store.ResolveHandle(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve handle %q: %w", raw, err)
	}
	return dev, nil
}
