package entities

// Cardinality tells whether a relation holds one record or many
type Cardinality int

const (
	CardinalityMany Cardinality = iota
	CardinalityOne
)

// String returns the declaration keyword of the cardinality
func (c Cardinality) String() string {
	if c == CardinalityOne {
		return "has_one"
	}
	return "has_many"
}

// DependentPolicy tells what happens to related records when the owner is destroyed
type DependentPolicy string

const (
	DependentNone    DependentPolicy = "none"
	DependentDestroy DependentPolicy = "destroy"
)

// Valid reports whether the policy is a known value.
// The zero value is treated as DependentNone.
func (p DependentPolicy) Valid() bool {
	switch p {
	case "", DependentNone, DependentDestroy:
		return true
	}
	return false
}

// RelationDescriptor is the declaration of a polymorphic relation on a type
// Example: user has_many viewables from [person, project]
type RelationDescriptor struct {
	Owner       TypeName        // Declaring type (e.g., "user")
	Name        string          // Relation name (e.g., "viewables")
	Cardinality Cardinality     // has_many or has_one
	From        []TypeName      // Allowed target types
	Dependent   DependentPolicy // What to do with related records on destroy
	Through     string          // Relation name mirrored from the other side (optional)
}

// IsReverse reports whether the relation mirrors a relation declared by another type
func (d *RelationDescriptor) IsReverse() bool {
	return d.Through != ""
}

// KindName returns the relation kind name edges are tagged with
func (d *RelationDescriptor) KindName() string {
	if d.IsReverse() {
		return d.Through
	}
	return d.Name
}

// Allows reports whether records of type t may be members of the relation.
// A mirrored relation without a From list accepts any other type.
func (d *RelationDescriptor) Allows(t TypeName) bool {
	if len(d.From) == 0 {
		return d.IsReverse() && t != d.Owner
	}
	for _, f := range d.From {
		if f == t {
			return true
		}
	}
	return false
}

// DestroysDependents reports whether related records are destroyed with the owner
func (d *RelationDescriptor) DestroysDependents() bool {
	return d.Dependent == DependentDestroy
}

// Validate checks the structure of the declaration.
// Naming rules are checked by the registry, which knows the registered types.
func (d *RelationDescriptor) Validate() error {
	if d.Owner == "" {
		return NewVerificationError(d.Owner, d.Name, ErrInvalidDeclaration, "owner type is required")
	}
	if d.Name == "" {
		return NewVerificationError(d.Owner, d.Name, ErrInvalidDeclaration, "relation name is required")
	}
	if !d.IsReverse() && len(d.From) == 0 {
		return NewVerificationError(d.Owner, d.Name, ErrInvalidDeclaration, "from is required")
	}
	if !d.Dependent.Valid() {
		return NewVerificationError(d.Owner, d.Name, ErrInvalidDeclaration,
			"dependent should have value: %s or %s", DependentDestroy, DependentNone)
	}
	for _, t := range d.From {
		if t == d.Owner {
			return NewVerificationError(d.Owner, d.Name, ErrInvalidDeclaration,
				"%s cannot be related to its own type", t)
		}
	}
	return nil
}
