package graph

import (
	"github.com/asakaida/polylink/internal/entities"
)

// Record is an entity that takes part in polymorphic relations.
// Implementations usually embed Tracked to carry their snapshots and are
// used through pointers, so unsaved records stay distinguishable.
type Record interface {
	RecordType() entities.TypeName
	RecordID() int64
	Snapshots() *SnapshotSet
}

// EndpointOf returns the edge endpoint identifying rec
func EndpointOf(rec Record) entities.Endpoint {
	return entities.Endpoint{Type: rec.RecordType(), ID: rec.RecordID()}
}

// Tracked holds the relation snapshots of one record instance.
// Embed it in a record struct and use the struct through a pointer.
type Tracked struct {
	snapshots SnapshotSet
}

// Snapshots returns the snapshot set of the record
func (t *Tracked) Snapshots() *SnapshotSet {
	return &t.snapshots
}

// SnapshotSet maps relation names to their loaded snapshots
type SnapshotSet struct {
	byRelation map[string]*RelationSnapshot
}

// Get returns the snapshot of a relation, or nil if it was never loaded
func (s *SnapshotSet) Get(relation string) *RelationSnapshot {
	return s.byRelation[relation]
}

// Loaded reports whether the relation was loaded
func (s *SnapshotSet) Loaded(relation string) bool {
	_, ok := s.byRelation[relation]
	return ok
}

// Forget drops the snapshot of a relation so the next access reloads it
func (s *SnapshotSet) Forget(relation string) {
	delete(s.byRelation, relation)
}

// Clear drops every snapshot
func (s *SnapshotSet) Clear() {
	s.byRelation = nil
}

func (s *SnapshotSet) put(relation string, snap *RelationSnapshot) {
	if s.byRelation == nil {
		s.byRelation = make(map[string]*RelationSnapshot)
	}
	s.byRelation[relation] = snap
}

// RelationSnapshot holds the current and original members of one relation
// of one record. Members are unique by identity; the first occurrence wins.
type RelationSnapshot struct {
	current  []Record
	original []Record
}

func newRelationSnapshot(members []Record) *RelationSnapshot {
	current := dedupe(members)
	return &RelationSnapshot{
		current:  current,
		original: cloneRecords(current),
	}
}

// Current returns a copy of the in-memory members
func (s *RelationSnapshot) Current() []Record {
	return cloneRecords(s.current)
}

// Original returns a copy of the members as of the last load or save
func (s *RelationSnapshot) Original() []Record {
	return cloneRecords(s.original)
}

// Dirty reports whether current and original differ as sets
func (s *RelationSnapshot) Dirty() bool {
	toAdd, toRemove := s.Diff()
	return len(toAdd) > 0 || len(toRemove) > 0
}

// Diff returns the members to add (current - original) and to remove (original - current)
func (s *RelationSnapshot) Diff() (toAdd, toRemove []Record) {
	return difference(s.current, s.original), difference(s.original, s.current)
}

func (s *RelationSnapshot) replace(members []Record) {
	s.current = dedupe(members)
}

// commitAs marks saved as the persisted members. Changes made after the save stay dirty.
func (s *RelationSnapshot) commitAs(saved []Record) {
	s.original = cloneRecords(saved)
}

// identity is the set key of a record. Unpersisted records have no stable
// endpoint yet and are keyed by the record value itself.
type identity struct {
	endpoint entities.Endpoint
	record   Record
}

func identityOf(rec Record) identity {
	ep := EndpointOf(rec)
	if ep.ID > 0 {
		return identity{endpoint: ep}
	}
	return identity{endpoint: ep, record: rec}
}

func dedupe(members []Record) []Record {
	seen := make(map[identity]struct{}, len(members))
	result := make([]Record, 0, len(members))
	for _, m := range members {
		if m == nil {
			continue
		}
		id := identityOf(m)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, m)
	}
	return result
}

func difference(a, b []Record) []Record {
	in := make(map[identity]struct{}, len(b))
	for _, m := range b {
		in[identityOf(m)] = struct{}{}
	}
	var result []Record
	for _, m := range a {
		if _, ok := in[identityOf(m)]; !ok {
			result = append(result, m)
		}
	}
	return result
}

func cloneRecords(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	copy(out, records)
	return out
}
