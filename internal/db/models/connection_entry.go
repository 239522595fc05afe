// Package models - connection_entry.go defines ConnectionEntry, one recorded change in the
// connection state between an ordered pair of developers.
package models

import (
	"time"

	"github.com/lib/pq"
)

// ConnectionEntry represents a row of connection_entries
type ConnectionEntry struct {
	ID                int64          `db:"id"`
	FirstDeveloperID  string         `db:"first_developer_id"`
	SecondDeveloperID string         `db:"second_developer_id"`
	RegisteredAt      time.Time      `db:"registered_at"`
	Connected         bool           `db:"connected"`
	Organisations     pq.StringArray `db:"organisations"` // Shared organizations; meaningful only when Connected
}
