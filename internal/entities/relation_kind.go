package entities

import "fmt"

// RelationKind tags edges with the declared relation they serve.
// Example: owner "user", name "viewables"
type RelationKind struct {
	ID    int64
	Owner TypeName // Type that declared the relation
	Name  string   // Relation name
}

// String returns a string representation of the relation kind
// Format: owner#name
func (k *RelationKind) String() string {
	return fmt.Sprintf("%s#%s", k.Owner, k.Name)
}

// Validate checks if the relation kind is valid
func (k *RelationKind) Validate() error {
	if k.Owner == "" {
		return fmt.Errorf("relation kind owner is required")
	}
	if k.Name == "" {
		return fmt.Errorf("relation kind name is required")
	}
	return nil
}

// Link tags an edge with a relation kind
type Link struct {
	ID     int64
	EdgeID int64
	KindID int64
}
