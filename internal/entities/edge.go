package entities

import "fmt"

// Edge represents an undirected link between two records.
// First and Second are always in canonical order (see CompareEndpoints),
// so an unordered pair of records maps to exactly one edge.
type Edge struct {
	ID     int64
	First  Endpoint
	Second Endpoint
}

// NewEdge builds an edge between a and b in canonical order
func NewEdge(a, b Endpoint) (*Edge, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("invalid first endpoint: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid second endpoint: %w", err)
	}

	switch CompareEndpoints(a, b) {
	case 0:
		return nil, fmt.Errorf("cannot link %s to itself", a)
	case 1:
		a, b = b, a
	}

	return &Edge{First: a, Second: b}, nil
}

// Touches reports whether ep occupies either side of the edge
func (e *Edge) Touches(ep Endpoint) bool {
	return e.First == ep || e.Second == ep
}

// Other returns the endpoint opposite to ep.
// The second return value is false if ep is not part of the edge.
func (e *Edge) Other(ep Endpoint) (Endpoint, bool) {
	switch ep {
	case e.First:
		return e.Second, true
	case e.Second:
		return e.First, true
	}
	return Endpoint{}, false
}

// String returns a string representation of the edge
// Format: first_type:first_id<->second_type:second_id
func (e *Edge) String() string {
	return fmt.Sprintf("%s<->%s", e.First, e.Second)
}
