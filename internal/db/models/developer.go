// Package models - developer.go defines the Developer model: a developer identity
// known to the registry, addressed by its handle.
package models

import "time"

// Developer represents a developer tracked by the connected registry
type Developer struct {
	ID        string    `db:"id"`
	Handle    string    `db:"handle"` // Canonical handle, as first registered
	CreatedAt time.Time `db:"created_at"`
}
