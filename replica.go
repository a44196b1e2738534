// Package converge is a conflict-free replication core for
// collaborative documents and scenes. Replicas accept local writes
// without coordination and merge divergent histories into identical
// state: crdt.Register resolves single-value fields last-writer-wins,
// crdt.Set resolves collections add-wins. The wire package snapshots
// both for whatever transport the application brings.
//
// The root package carries replica identity: who is writing (peer id),
// what time it is (clock), and which tags fresh adds get (tag source).
// The pure types in crdt care about none of that, so an application
// can also use them directly.
package converge

import (
	"github.com/google/uuid"

	"github.com/drpcorg/converge/crdt"
	"github.com/drpcorg/converge/utils"
)

// Replica bundles one replica's identity: peer id, clock and tag
// source. Every CRDT instance is owned by exactly one replica and
// mutated only through it; cross-replica concurrency happens solely in
// merge. The tag source and clocks are atomic, so a replica shared by
// several goroutines still mints unique tags and monotone timestamps.
type Replica struct {
	peer  string
	clock crdt.Clock
	tags  *crdt.TagSource
	log   utils.Logger
}

// NewReplica creates a replica identity. An empty peer gets a fresh
// uuid; a nil clock defaults to wall time; a nil logger is silent.
func NewReplica(peer string, clock crdt.Clock, log utils.Logger) *Replica {
	if peer == "" {
		peer = uuid.Must(uuid.NewV7()).String()
	}
	if clock == nil {
		clock = &crdt.WallClock{}
	}
	if log == nil {
		log = utils.NewNopLogger()
	}
	return &Replica{
		peer:  peer,
		clock: clock,
		tags:  crdt.NewTagSource(peer),
		log:   log,
	}
}

func (r *Replica) Peer() string {
	return r.peer
}

func (r *Replica) Clock() crdt.Clock {
	return r.clock
}

// NewRegister creates a register initialized by this replica at the
// clock's current time.
func NewRegister[T any](r *Replica, value T) crdt.Register[T] {
	registerOps.WithLabelValues("create").Inc()
	return crdt.NewRegister(value, r.peer, r.clock)
}

// Write applies a local last-write-wins write stamped with this
// replica's peer id and clock.
func Write[T any](r *Replica, reg crdt.Register[T], value T) crdt.Register[T] {
	t := r.clock.Now()
	registerOps.WithLabelValues("set").Inc()
	r.log.Debug("register write", "peer", r.peer, "time", t)
	return reg.Set(value, r.peer, t)
}

// Add inserts a value under a freshly minted tag and returns the tag;
// callers may hold on to it to reference their own add later.
func Add[T any](r *Replica, s crdt.Set[T], value T) (crdt.Set[T], crdt.Tag) {
	tag := r.tags.Next()
	setOps.WithLabelValues("add").Inc()
	r.log.Debug("set add", "peer", r.peer, "tag", string(tag))
	return s.Add(value, tag), tag
}

// Remove tombstones the value's tags visible at this replica.
func Remove[T any](r *Replica, s crdt.Set[T], value T) crdt.Set[T] {
	setOps.WithLabelValues("remove").Inc()
	r.log.Debug("set remove", "peer", r.peer)
	return s.Remove(value)
}

// MergeRegister merges a remote register state into a local one and
// feeds the remote timestamp to this replica's clock, so later local
// writes sort after everything already seen.
func MergeRegister[T any](r *Replica, local, remote crdt.Register[T]) crdt.Register[T] {
	r.clock.See(remote.Time())
	mergeCount.WithLabelValues("register").Inc()
	r.log.Debug("register merge", "peer", r.peer, "remote_peer", remote.Peer())
	return local.Merge(remote)
}

// MergeSet merges a remote set state into a local one.
func MergeSet[T any](r *Replica, local, remote crdt.Set[T]) crdt.Set[T] {
	mergeCount.WithLabelValues("set").Inc()
	r.log.Debug("set merge", "peer", r.peer)
	return local.Merge(remote)
}
