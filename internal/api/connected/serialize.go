package connected

import (
	"time"

	"github.com/connected-registry/connected-registry/internal/registry"
)

// TimestampLayout renders registered_at as an ISO-8601 date-time without an
// offset. Values are always converted to UTC first, so the missing offset
// always means UTC. Fractional seconds appear only when non-zero.
const TimestampLayout = "2006-01-02T15:04:05.999999999"

// SerializedEntry is the wire form of one registry.Entry. Field order fixes
// the key order of the JSON object.
type SerializedEntry struct {
	RegisteredAt  string    `json:"registered_at"`
	Connected     bool      `json:"connected"`
	Organisations *[]string `json:"organisations,omitempty"`
}

// FormatTimestamp renders t in TimestampLayout after converting it to UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp is the inverse of FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, s, time.UTC)
}

// SerializeEntry converts e to its wire form. Organisations are emitted only
// for connected entries; whatever a disconnected entry carries is dropped.
func SerializeEntry(e registry.Entry) SerializedEntry {
	out := SerializedEntry{
		RegisteredAt: FormatTimestamp(e.RegisteredAt),
		Connected:    e.Connected,
	}
	if e.Connected {
		orgs := make([]string, len(e.Organizations))
		copy(orgs, e.Organizations)
		out.Organisations = &orgs
	}
	return out
}

// SerializeEntries converts entries in order. The result is never nil so an
// empty history renders as [].
func SerializeEntries(entries []registry.Entry) []SerializedEntry {
	out := make([]SerializedEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, SerializeEntry(e))
	}
	return out
}
