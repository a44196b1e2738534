package crdt

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// Set is an observed-remove set with add-wins semantics (Shapiro et
// al.). Every add mints a unique tag; a remove tombstones only the
// tags visible at the calling replica, so an add merged in later
// survives a concurrent remove. Nothing is physically deleted:
// entries and tombstones only grow, which is what makes merge a plain
// set union and therefore commutative, associative and idempotent.
//
// Set is a pure value type; Add, Remove and Merge return a new set and
// never mutate the receiver. A set is owned by one replica; tag
// minting is the TagSource's concern.
type Set[T any] struct {
	elements   map[string]entry[T]
	tombstones mapset.Set[Tag]
}

// entry keeps one value and every tag ever added for it, live or not.
// Tag sets are treated as immutable once stored; mutation goes through
// Clone/Union only.
type entry[T any] struct {
	value T
	tags  mapset.Set[Tag]
}

// Element is one row of the serialization contract: a value and every
// tag observed for it.
type Element[T any] struct {
	Value T
	Tags  []Tag
}

func NewSet[T any]() Set[T] {
	return Set[T]{
		elements:   make(map[string]entry[T]),
		tombstones: mapset.NewThreadUnsafeSet[Tag](),
	}
}

// tombs tolerates the zero-value Set.
func (s Set[T]) tombs() mapset.Set[Tag] {
	if s.tombstones == nil {
		return mapset.NewThreadUnsafeSet[Tag]()
	}
	return s.tombstones
}

func (s Set[T]) cloneElements(extra int) map[string]entry[T] {
	els := make(map[string]entry[T], len(s.elements)+extra)
	for k, e := range s.elements {
		els[k] = e
	}
	return els
}

// Add records the value under the given tag, creating the entry on
// first add and appending the tag on re-add so that each add remains
// independently removable. Mint tags with a TagSource; reusing a tag
// is a caller contract violation.
func (s Set[T]) Add(value T, tag Tag) Set[T] {
	k := Key(value)
	els := s.cloneElements(1)
	tags := mapset.NewThreadUnsafeSet[Tag](tag)
	if e, ok := els[k]; ok {
		tags = e.tags.Union(tags)
	}
	els[k] = entry[T]{value: value, tags: tags}
	return Set[T]{elements: els, tombstones: s.tombs()}
}

// Remove tombstones every tag currently present in the value's entry
// at this replica — never a fresh tag, never a tag this replica has
// not seen. Tags added concurrently elsewhere are invisible here and
// survive the merge; that is the add-wins mechanism. Removing an
// absent value is a no-op.
func (s Set[T]) Remove(value T) Set[T] {
	e, ok := s.elements[Key(value)]
	if !ok {
		return s
	}
	return Set[T]{elements: s.elements, tombstones: s.tombs().Union(e.tags)}
}

// Contains reports whether the value has at least one live tag.
func (s Set[T]) Contains(value T) bool {
	e, ok := s.elements[Key(value)]
	return ok && !e.tags.Difference(s.tombs()).IsEmpty()
}

// Elements returns every value with at least one live tag, in
// unspecified order.
func (s Set[T]) Elements() []T {
	vals := make([]T, 0, len(s.elements))
	tombs := s.tombs()
	for _, e := range s.elements {
		if !e.tags.Difference(tombs).IsEmpty() {
			vals = append(vals, e.value)
		}
	}
	return vals
}

// Merge unions both sides: tombstones with tombstones, and per value
// the tag sets of both inputs (an absent side contributes nothing).
// Set union makes the result independent of argument order, grouping
// and duplication. Neither input is mutated.
func (s Set[T]) Merge(o Set[T]) Set[T] {
	els := s.cloneElements(len(o.elements))
	for k, oe := range o.elements {
		if e, ok := els[k]; ok {
			els[k] = entry[T]{value: e.value, tags: e.tags.Union(oe.tags)}
		} else {
			els[k] = oe
		}
	}
	return Set[T]{elements: els, tombstones: s.tombs().Union(o.tombs())}
}

// MergeSets is the symmetric spelling of Set.Merge.
func MergeSets[T any](a, b Set[T]) Set[T] {
	return a.Merge(b)
}

// Snapshot flattens the set into the serialization contract form:
// elements as {value, tags} rows plus the tombstone list, both in a
// deterministic order so equal states snapshot to equal bytes.
func (s Set[T]) Snapshot() (elements []Element[T], tombstones []Tag) {
	keys := make([]string, 0, len(s.elements))
	for k := range s.elements {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	elements = make([]Element[T], 0, len(keys))
	for _, k := range keys {
		e := s.elements[k]
		elements = append(elements, Element[T]{Value: e.value, Tags: sortTags(e.tags)})
	}
	return elements, sortTags(s.tombs())
}

// SetFromSnapshot rebuilds a set from its contract form. Rows with the
// same value identity are folded together, so decoding a snapshot and
// merging it behaves exactly like merging the original set.
func SetFromSnapshot[T any](elements []Element[T], tombstones []Tag) Set[T] {
	s := NewSet[T]()
	for _, el := range elements {
		k := Key(el.Value)
		tags := mapset.NewThreadUnsafeSet[Tag](el.Tags...)
		if e, ok := s.elements[k]; ok {
			tags = e.tags.Union(tags)
		}
		s.elements[k] = entry[T]{value: el.Value, tags: tags}
	}
	s.tombstones.Append(tombstones...)
	return s
}

// Equal compares observed state: same entries, same tag sets, same
// tombstones. Used by tests to state the algebraic laws.
func (s Set[T]) Equal(o Set[T]) bool {
	if len(s.elements) != len(o.elements) {
		return false
	}
	for k, e := range s.elements {
		oe, ok := o.elements[k]
		if !ok || !e.tags.Equal(oe.tags) {
			return false
		}
	}
	return s.tombs().Equal(o.tombs())
}

func sortTags(tags mapset.Set[Tag]) []Tag {
	out := tags.ToSlice()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
