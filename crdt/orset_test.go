package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAddContains(t *testing.T) {
	src := NewTagSource("A")
	s := NewSet[string]()
	assert.False(t, s.Contains("chair"))
	assert.Empty(t, s.Elements())

	s = s.Add("chair", src.Next())
	assert.True(t, s.Contains("chair"))
	assert.False(t, s.Contains("table"))
	assert.Equal(t, []string{"chair"}, s.Elements())
}

func TestSetRemoveAbsentIsNoop(t *testing.T) {
	s := NewSet[string]()
	removed := s.Remove("ghost")
	assert.True(t, s.Equal(removed))
}

func TestSetRemoveCoversAllSeenTags(t *testing.T) {
	// "chair" added by two peers; a remove at a replica that has
	// seen both tags tombstones both
	a := NewTagSource("A")
	b := NewTagSource("B")
	s := NewSet[string]()
	s = s.Add("chair", a.Next())
	s = s.Add("chair", b.Next())
	assert.True(t, s.Contains("chair"))

	s = s.Remove("chair")
	assert.False(t, s.Contains("chair"))
	assert.Empty(t, s.Elements())
}

func TestSetReAddAfterRemove(t *testing.T) {
	src := NewTagSource("A")
	s := NewSet[string]()
	s = s.Add("chair", src.Next())
	s = s.Remove("chair")
	assert.False(t, s.Contains("chair"))

	// a fresh add carries a fresh tag, the old tombstones do not
	// cover it
	s = s.Add("chair", src.Next())
	assert.True(t, s.Contains("chair"))
}

func TestSetAddWins(t *testing.T) {
	// replica A adds; replica B removes concurrently without having
	// observed the add: no entry at B, the remove is a no-op, and
	// the add survives the merge
	a := NewTagSource("A")
	setA := NewSet[string]().Add("chair", a.Next())
	setB := NewSet[string]().Remove("chair")

	merged := setA.Merge(setB)
	assert.True(t, merged.Contains("chair"))
}

func TestSetAddWinsOverConcurrentRemove(t *testing.T) {
	// both replicas share an old add; A re-adds concurrently with
	// B's remove. B tombstones only the tag it has seen, so A's
	// unseen tag survives and the value stays present
	a := NewTagSource("A")
	base := NewSet[string]().Add("chair", a.Next())

	setA := base.Add("chair", a.Next())
	setB := base.Remove("chair")
	assert.False(t, setB.Contains("chair"))

	ab := setA.Merge(setB)
	ba := setB.Merge(setA)
	assert.True(t, ab.Contains("chair"))
	assert.True(t, ab.Equal(ba))
}

func TestSetMergeLaws(t *testing.T) {
	a := NewTagSource("A")
	b := NewTagSource("B")
	c := NewTagSource("C")

	setA := NewSet[string]().Add("x", a.Next()).Add("y", a.Next())
	setB := NewSet[string]().Add("y", b.Next()).Remove("y")
	setC := NewSet[string]().Add("z", c.Next())

	// idempotence
	assert.True(t, setA.Merge(setA).Equal(setA))

	// commutativity
	assert.True(t, setA.Merge(setB).Equal(setB.Merge(setA)))

	// associativity
	left := setA.Merge(setB).Merge(setC)
	right := setA.Merge(setB.Merge(setC))
	assert.True(t, left.Equal(right))
}

func TestSetMergeDuplicateDelivery(t *testing.T) {
	a := NewTagSource("A")
	b := NewTagSource("B")
	setA := NewSet[string]().Add("x", a.Next())
	setB := NewSet[string]().Add("x", b.Next()).Remove("x")

	once := setA.Merge(setB)
	twice := once.Merge(setB).Merge(setB)
	assert.True(t, once.Equal(twice))
}

func TestSetOpsDoNotMutate(t *testing.T) {
	a := NewTagSource("A")
	before := NewSet[string]().Add("x", a.Next())

	_ = before.Add("y", a.Next())
	_ = before.Remove("x")
	_ = before.Merge(NewSet[string]().Add("z", a.Next()))

	assert.True(t, before.Contains("x"))
	assert.False(t, before.Contains("y"))
	assert.False(t, before.Contains("z"))
	elements, tombstones := before.Snapshot()
	require.Len(t, elements, 1)
	assert.Empty(t, tombstones)
}

func TestSetElements(t *testing.T) {
	a := NewTagSource("A")
	s := NewSet[int]()
	s = s.Add(1, a.Next())
	s = s.Add(2, a.Next())
	s = s.Add(3, a.Next())
	s = s.Remove(2)
	assert.ElementsMatch(t, []int{1, 3}, s.Elements())
}

func TestSetCompositeValues(t *testing.T) {
	type placed struct {
		Kind string
		X, Y int
	}
	a := NewTagSource("A")
	s := NewSet[placed]()
	s = s.Add(placed{Kind: "chair", X: 1, Y: 2}, a.Next())

	// structural identity: a fresh equal literal is the same element
	assert.True(t, s.Contains(placed{Kind: "chair", X: 1, Y: 2}))
	assert.False(t, s.Contains(placed{Kind: "chair", X: 1, Y: 3}))

	s = s.Remove(placed{Kind: "chair", X: 1, Y: 2})
	assert.False(t, s.Contains(placed{Kind: "chair", X: 1, Y: 2}))
}

func TestSetSnapshotRoundTrip(t *testing.T) {
	a := NewTagSource("A")
	b := NewTagSource("B")
	s := NewSet[string]()
	s = s.Add("chair", a.Next())
	s = s.Add("chair", b.Next())
	s = s.Add("lamp", a.Next())
	s = s.Remove("lamp")

	elements, tombstones := s.Snapshot()
	restored := SetFromSnapshot(elements, tombstones)
	assert.True(t, s.Equal(restored))
	assert.True(t, restored.Contains("chair"))
	assert.False(t, restored.Contains("lamp"))
}

func TestSetSnapshotDeterministic(t *testing.T) {
	a := NewTagSource("A")
	s := NewSet[string]().Add("x", a.Next()).Add("y", a.Next()).Remove("x")
	e1, t1 := s.Snapshot()
	e2, t2 := s.Snapshot()
	assert.Equal(t, e1, e2)
	assert.Equal(t, t1, t2)
}
