package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/asakaida/polylink/internal/entities"
)

type testRecord struct {
	Tracked
	typ entities.TypeName
	id  int64
}

func newRecord(t entities.TypeName, id int64) *testRecord {
	return &testRecord{typ: t, id: id}
}

func (r *testRecord) RecordType() entities.TypeName { return r.typ }
func (r *testRecord) RecordID() int64               { return r.id }

func endpoints(records []Record) []entities.Endpoint {
	out := make([]entities.Endpoint, len(records))
	for i, r := range records {
		out[i] = EndpointOf(r)
	}
	return out
}

func TestRelationSnapshot_Dedupe(t *testing.T) {
	first := newRecord("person", 1)
	again := newRecord("person", 1)
	other := newRecord("project", 1)

	snap := newRelationSnapshot([]Record{first, other, again, nil})

	current := snap.Current()
	assert.Len(t, current, 2)
	assert.Same(t, first, current[0])
	assert.False(t, snap.Dirty())
}

func TestRelationSnapshot_UnsavedRecordsStayDistinct(t *testing.T) {
	a := newRecord("project", 0)
	b := newRecord("project", 0)

	snap := newRelationSnapshot(nil)
	snap.replace([]Record{a, b, a})

	assert.Len(t, snap.Current(), 2)
}

func TestRelationSnapshot_Diff(t *testing.T) {
	x := newRecord("project", 1)
	y := newRecord("project", 2)
	z := newRecord("project", 3)

	snap := newRelationSnapshot([]Record{x, y})
	snap.replace([]Record{y, z})

	toAdd, toRemove := snap.Diff()
	assert.Equal(t, []entities.Endpoint{EndpointOf(z)}, endpoints(toAdd))
	assert.Equal(t, []entities.Endpoint{EndpointOf(x)}, endpoints(toRemove))
	assert.True(t, snap.Dirty())

	snap.commitAs(snap.Current())
	assert.False(t, snap.Dirty())
	assert.Equal(t, endpoints(snap.Current()), endpoints(snap.Original()))
}

func TestRelationSnapshot_CommitKeepsLaterChanges(t *testing.T) {
	x := newRecord("project", 1)
	y := newRecord("project", 2)

	snap := newRelationSnapshot(nil)
	snap.replace([]Record{x})
	saved := snap.Current()

	// Changed again before the save committed
	snap.replace([]Record{x, y})
	snap.commitAs(saved)

	toAdd, toRemove := snap.Diff()
	assert.Equal(t, []entities.Endpoint{EndpointOf(y)}, endpoints(toAdd))
	assert.Empty(t, toRemove)
}

func TestRelationSnapshot_OrderDoesNotMakeDirty(t *testing.T) {
	x := newRecord("project", 1)
	y := newRecord("project", 2)

	snap := newRelationSnapshot([]Record{x, y})
	snap.replace([]Record{newRecord("project", 2), newRecord("project", 1)})

	assert.False(t, snap.Dirty())
}

func TestSnapshotSet(t *testing.T) {
	rec := newRecord("person", 1)
	snaps := rec.Snapshots()

	assert.Nil(t, snaps.Get("viewables"))
	assert.False(t, snaps.Loaded("viewables"))

	snaps.put("viewables", newRelationSnapshot(nil))
	assert.True(t, snaps.Loaded("viewables"))

	snaps.Forget("viewables")
	assert.False(t, snaps.Loaded("viewables"))

	snaps.put("viewables", newRelationSnapshot(nil))
	snaps.Clear()
	assert.Nil(t, snaps.Get("viewables"))
}
