package registry

// ConnectedRegistryQuery asks for the connection history of an ordered pair of
// developers. Both handles are kept exactly as received from the transport;
// the pair is directional and is never reordered or deduplicated.
type ConnectedRegistryQuery struct {
	first  string
	second string
}

// NewQuery builds a query for the pair (first, second).
func NewQuery(first, second string) ConnectedRegistryQuery {
	return ConnectedRegistryQuery{first: first, second: second}
}

// First returns the raw first handle.
func (q ConnectedRegistryQuery) First() string { return q.first }

// Second returns the raw second handle.
func (q ConnectedRegistryQuery) Second() string { return q.second }
