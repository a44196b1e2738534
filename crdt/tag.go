package crdt

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

// Tag is the unique token minted per OR-Set add, "peer:seq".
// Two adds of the same value are distinct operations with distinct
// tags; a remove only ever covers the tags it has observed.
type Tag string

func NewTag(peer string, seq uint64) Tag {
	return Tag(fmt.Sprintf("%s:%d", peer, seq))
}

// Peer returns the replica half of the tag. The peer id itself may
// contain colons, the sequence number never does.
func (t Tag) Peer() string {
	i := strings.LastIndexByte(string(t), ':')
	if i < 0 {
		return string(t)
	}
	return string(t)[:i]
}

func (t Tag) Seq() uint64 {
	i := strings.LastIndexByte(string(t), ':')
	if i < 0 {
		return 0
	}
	seq, _ := strconv.ParseUint(string(t)[i+1:], 10, 64)
	return seq
}

// TagSource mints fresh tags for one replica. Uniqueness is only
// required within the replica's process lifetime, but the counter is
// atomic so a replica serving several goroutines cannot mint the same
// tag twice (a collision would silently break add-wins).
type TagSource struct {
	peer string
	seq  atomic.Uint64
}

func NewTagSource(peer string) *TagSource {
	return &TagSource{peer: peer}
}

func (s *TagSource) Peer() string {
	return s.peer
}

func (s *TagSource) Next() Tag {
	return NewTag(s.peer, s.seq.Add(1))
}
