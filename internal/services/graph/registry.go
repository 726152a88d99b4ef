package graph

import (
	"sort"
	"sync"

	"github.com/go-openapi/inflect"

	"github.com/asakaida/polylink/internal/entities"
)

// RelationOptions are the options of a relation declaration
type RelationOptions struct {
	// From lists the allowed target types in relation form:
	// plural for has-many (e.g. "people"), singular for has-one (e.g. "person").
	From      []string
	Dependent entities.DependentPolicy
	// Through names the relation declared by the other side that this one mirrors
	Through string
}

// Registry holds the registered record types and their relation declarations.
// Declarations are expected at startup; lookups are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	types     map[entities.TypeName]struct{}
	relations map[entities.TypeName][]*entities.RelationDescriptor
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		types:     make(map[entities.TypeName]struct{}),
		relations: make(map[entities.TypeName][]*entities.RelationDescriptor),
	}
}

// RegisterType registers record types. Type names must be singular.
func (r *Registry) RegisterType(names ...entities.TypeName) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range names {
		if name == "" {
			return entities.NewVerificationError(name, "", entities.ErrUnknownType, "type name is required")
		}
		if entities.IsBookkeeping(name) {
			return entities.NewVerificationError(name, "", entities.ErrUnknownType, "%s is reserved for graph bookkeeping", name)
		}
		if err := verifySingular(name, "", string(name)); err != nil {
			return err
		}
		r.types[name] = struct{}{}
	}
	return nil
}

// HasMany declares a has-many relation. From entries are plural.
// Example: user has_many viewables from [people, projects]
func (r *Registry) HasMany(owner entities.TypeName, name string, opts RelationOptions) (*entities.RelationDescriptor, error) {
	for _, from := range opts.From {
		if err := verifyPlural(owner, name, from); err != nil {
			return nil, err
		}
	}
	return r.declare(owner, name, entities.CardinalityMany, opts, inflect.Singularize)
}

// HasOne declares a has-one relation. From entries are singular.
// Example: note has_one owner from [person, project]
func (r *Registry) HasOne(owner entities.TypeName, name string, opts RelationOptions) (*entities.RelationDescriptor, error) {
	for _, from := range opts.From {
		if err := verifySingular(owner, name, from); err != nil {
			return nil, err
		}
	}
	return r.declare(owner, name, entities.CardinalityOne, opts, func(s string) string { return s })
}

// BelongsTo is HasOne. No side of an edge holds a foreign key, so both read the same.
func (r *Registry) BelongsTo(owner entities.TypeName, name string, opts RelationOptions) (*entities.RelationDescriptor, error) {
	return r.HasOne(owner, name, opts)
}

// Has declares the has-many relation <action>_<many>.
// Example: Has("person", "created", "items", ...) declares person.created_items
func (r *Registry) Has(owner entities.TypeName, action, many string, opts RelationOptions) (*entities.RelationDescriptor, error) {
	if many == "" {
		return nil, entities.NewVerificationError(owner, action, entities.ErrInvalidDeclaration, "many is required")
	}
	if err := verifyPlural(owner, action, many); err != nil {
		return nil, err
	}
	return r.HasMany(owner, action+"_"+many, opts)
}

func (r *Registry) declare(owner entities.TypeName, name string, card entities.Cardinality, opts RelationOptions, toType func(string) string) (*entities.RelationDescriptor, error) {
	desc := &entities.RelationDescriptor{
		Owner:       owner,
		Name:        name,
		Cardinality: card,
		Dependent:   opts.Dependent,
		Through:     opts.Through,
	}
	for _, from := range opts.From {
		desc.From = append(desc.From, entities.TypeName(toType(from)))
	}

	if err := r.Declare(desc); err != nil {
		return nil, err
	}
	return desc, nil
}

// Declare verifies and registers a relation descriptor whose From list holds type names
func (r *Registry) Declare(desc *entities.RelationDescriptor) error {
	if err := desc.Validate(); err != nil {
		return err
	}

	switch desc.Cardinality {
	case entities.CardinalityMany:
		if err := verifyPlural(desc.Owner, desc.Name, desc.Name); err != nil {
			return err
		}
	case entities.CardinalityOne:
		if err := verifySingular(desc.Owner, desc.Name, desc.Name); err != nil {
			return err
		}
	default:
		return entities.NewVerificationError(desc.Owner, desc.Name, entities.ErrInvalidDeclaration, "unknown cardinality %d", desc.Cardinality)
	}

	if desc.Dependent == "" {
		desc.Dependent = entities.DependentNone
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.types[desc.Owner]; !ok {
		return entities.NewVerificationError(desc.Owner, desc.Name, entities.ErrUnknownType, "owner type %s is not registered", desc.Owner)
	}
	for _, t := range desc.From {
		if _, ok := r.types[t]; !ok {
			return entities.NewVerificationError(desc.Owner, desc.Name, entities.ErrUnknownType, "target type %s is not registered", t)
		}
	}
	for _, existing := range r.relations[desc.Owner] {
		if existing.Name == desc.Name {
			return entities.NewVerificationError(desc.Owner, desc.Name, entities.ErrInvalidDeclaration, "relation is already declared")
		}
	}

	r.relations[desc.Owner] = append(r.relations[desc.Owner], desc)
	return nil
}

// Relations returns the relations declared by owner in declaration order
func (r *Registry) Relations(owner entities.TypeName) []*entities.RelationDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descs := r.relations[owner]
	out := make([]*entities.RelationDescriptor, len(descs))
	copy(out, descs)
	return out
}

// Relation returns one relation of owner
func (r *Registry) Relation(owner entities.TypeName, name string) (*entities.RelationDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, desc := range r.relations[owner] {
		if desc.Name == name {
			return desc, nil
		}
	}
	return nil, entities.NewVerificationError(owner, name, entities.ErrUnknownRelation, "relation is not declared")
}

// Types returns the registered types in name order
func (r *Registry) Types() []entities.TypeName {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]entities.TypeName, 0, len(r.types))
	for t := range r.types {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func verifyPlural(owner entities.TypeName, relation, word string) error {
	plural := inflect.Pluralize(inflect.Singularize(word))
	if word != plural {
		return entities.NewVerificationError(owner, relation, entities.ErrNaming,
			"plural form is required, got %q, did you mean %q?", word, plural)
	}
	return nil
}

func verifySingular(owner entities.TypeName, relation, word string) error {
	singular := inflect.Singularize(inflect.Pluralize(word))
	if word != singular {
		return entities.NewVerificationError(owner, relation, entities.ErrNaming,
			"singular form is required, got %q, did you mean %q?", word, singular)
	}
	return nil
}
