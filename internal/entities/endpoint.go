package entities

import (
	"fmt"
	"strings"
)

// TypeName identifies a kind of record (e.g., "person", "project").
// Type names are registered explicitly with the relation registry and are the
// only input to the canonical edge ordering.
type TypeName string

// Bookkeeping types used by the graph engine's own storage.
// Records of these types never take part in cascades.
const (
	EdgeType         TypeName = "edge"
	LinkType         TypeName = "link"
	RelationKindType TypeName = "relation_kind"
)

// IsBookkeeping reports whether t is one of the engine's own storage types
func IsBookkeeping(t TypeName) bool {
	switch t {
	case EdgeType, LinkType, RelationKindType:
		return true
	}
	return false
}

// Endpoint identifies one side of an edge
// Example: person:42
type Endpoint struct {
	Type TypeName // Record type (e.g., "person")
	ID   int64    // Record ID
}

// String returns a string representation of the endpoint
// Format: type:id
func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.Type, e.ID)
}

// Validate checks if the endpoint refers to a persisted record
func (e Endpoint) Validate() error {
	if e.Type == "" {
		return fmt.Errorf("endpoint type is required")
	}
	if e.ID <= 0 {
		return fmt.Errorf("endpoint ID must be positive, got %d", e.ID)
	}
	return nil
}

// CompareEndpoints defines the canonical endpoint order.
// Endpoints are ordered by type name (byte-wise), then by ID.
// It returns -1 when a sorts first, 1 when b sorts first and 0 when equal.
func CompareEndpoints(a, b Endpoint) int {
	if c := strings.Compare(string(a.Type), string(b.Type)); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}
