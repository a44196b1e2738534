package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyScalars(t *testing.T) {
	assert.Equal(t, Key("chair"), Key("chair"))
	assert.NotEqual(t, Key("chair"), Key("table"))

	assert.Equal(t, Key(42), Key(42))
	assert.NotEqual(t, Key(42), Key(43))
	assert.NotEqual(t, Key(int32(1)), Key("1"))
	assert.NotEqual(t, Key(1), Key(uint(1)))
	assert.NotEqual(t, Key(1.0), Key(1))

	assert.NotEqual(t, Key(true), Key(false))
	assert.NotEqual(t, Key(nil), Key(""))
}

func TestKeyFraming(t *testing.T) {
	// concatenation must not collide: ["ab","c"] != ["a","bc"]
	assert.NotEqual(t, Key([]string{"ab", "c"}), Key([]string{"a", "bc"}))
	// nesting must not flatten: [[1],[2]] != [[1,2]]
	assert.NotEqual(t, Key([][]int{{1}, {2}}), Key([][]int{{1, 2}}))
}

func TestKeyComposites(t *testing.T) {
	type item struct {
		Kind string
		Pos  []int
	}
	a := item{Kind: "chair", Pos: []int{1, 2}}
	b := item{Kind: "chair", Pos: []int{1, 2}}
	c := item{Kind: "chair", Pos: []int{2, 1}}

	assert.Equal(t, Key(a), Key(b))
	assert.NotEqual(t, Key(a), Key(c))
}

func TestKeyMapOrderIndependent(t *testing.T) {
	a := map[string]int{"x": 1, "y": 2, "z": 3}
	b := map[string]int{"z": 3, "y": 2, "x": 1}
	assert.Equal(t, Key(a), Key(b))
	assert.NotEqual(t, Key(a), Key(map[string]int{"x": 1, "y": 2}))
}

func TestKeyPointers(t *testing.T) {
	v := "chair"
	assert.Equal(t, Key(&v), Key("chair"))
	var p *string
	assert.Equal(t, Key(p), Key(nil))
}

func TestKeyUnsupportedPanics(t *testing.T) {
	assert.Panics(t, func() { Key(func() {}) })
	assert.Panics(t, func() { Key(make(chan int)) })
}
