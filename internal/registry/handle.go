// Package registry holds the connected-developers registry: the value types that
// describe the connection history between two developers and the QueryHandler
// contract that produces it.
//
// Every value in this package is immutable once constructed. Handlers may be
// invoked concurrently for distinct requests.
package registry

// Handle identifies a developer. Any string is accepted, including the empty
// string; resolving a handle against known developers is the job of a
// QueryHandler, so a mistyped handle surfaces as an empty history rather than
// an error.
type Handle struct {
	value string
}

// NewHandle wraps s as a Handle.
func NewHandle(s string) Handle {
	return Handle{value: s}
}

// String returns the underlying developer identifier.
func (h Handle) String() string {
	return h.value
}

// MarshalText implements encoding.TextMarshaler.
func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Handle) UnmarshalText(text []byte) error {
	h.value = string(text)
	return nil
}
