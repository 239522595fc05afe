package registry

import (
	"slices"
	"time"
)

// Entry is one snapshot of the connection state between two developers.
// Organizations lists the organizations both developers belonged to at
// RegisteredAt and only carries meaning when Connected is true.
type Entry struct {
	RegisteredAt  time.Time `json:"registered_at"`
	Connected     bool      `json:"connected"`
	Organizations []string  `json:"organizations,omitempty"`
}

// Equal reports whether e and other describe the same snapshot.
func (e Entry) Equal(other Entry) bool {
	return e.RegisteredAt.Equal(other.RegisteredAt) &&
		e.Connected == other.Connected &&
		slices.Equal(e.Organizations, other.Organizations)
}

// RegisterFor is the connection history for one ordered pair of developers.
// First and Second are the identities as resolved by the handler, which may
// differ in form from the raw query. Entries are ordered by RegisteredAt,
// oldest first, and may be empty.
type RegisterFor struct {
	First   Handle  `json:"first"`
	Second  Handle  `json:"second"`
	Entries []Entry `json:"entries"`
}

// EmptyRegister returns the history reported for a pair with no recorded
// entries. The raw query handles are echoed back.
func EmptyRegister(q ConnectedRegistryQuery) RegisterFor {
	return RegisterFor{
		First:   NewHandle(q.First()),
		Second:  NewHandle(q.Second()),
		Entries: []Entry{},
	}
}

// IsEmpty reports whether the register has no entries.
func (r RegisterFor) IsEmpty() bool {
	return len(r.Entries) == 0
}
