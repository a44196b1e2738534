// Package crdt implements the convergent replicated value types:
// Register (last-write-wins) and Set (observed-remove, add-wins).
// Both are pure values — mutators and Merge return new state — and
// their merge operators are total, commutative, associative and
// idempotent, so replicas converge under any reordering, duplication
// or partition of deliveries. Replica identity, tag minting and
// clocks live here too; snapshots travel via the wire package.
package crdt
