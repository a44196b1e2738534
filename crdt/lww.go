package crdt

// Register is a last-write-wins register. The write carrying the
// greatest (time, peer) pair under a total order holds the value:
// times compare numerically, exact time ties go to the
// lexicographically greater peer. The order has no undefined ties, so
// any two replicas that have seen the same writes hold the same value
// no matter the order or multiplicity of delivery.
//
// Register is a pure value type; Set and Merge return a new register
// and never mutate the receiver.
type Register[T any] struct {
	value T
	time  int64
	peer  string
}

// NewRegisterAt creates a register holding an explicitly timestamped
// initial write.
func NewRegisterAt[T any](value T, peer string, time int64) Register[T] {
	return Register[T]{value: value, time: time, peer: peer}
}

// NewRegister creates a register stamping the initial write with the
// clock's current time.
func NewRegister[T any](value T, peer string, clock Clock) Register[T] {
	return NewRegisterAt(value, peer, clock.Now())
}

func (r Register[T]) Get() T {
	return r.value
}

func (r Register[T]) Time() int64 {
	return r.time
}

func (r Register[T]) Peer() string {
	return r.peer
}

// Set applies a local write. The write is accepted iff (time, peer) is
// strictly greater than the current write; a losing write returns the
// register unchanged. A rejected write is an expected, silent outcome
// in a replicated setting, not a failure.
func (r Register[T]) Set(value T, peer string, time int64) Register[T] {
	if !wins(time, peer, r.time, r.peer) {
		return r
	}
	return Register[T]{value: value, time: time, peer: peer}
}

// Merge picks the winner of two registers under the same total order
// Set uses. An exact (time, peer) tie keeps the receiver, which equals
// the argument in that case, so Merge(a,b) == Merge(b,a) and
// Merge(a,a) == a.
func (r Register[T]) Merge(o Register[T]) Register[T] {
	if wins(o.time, o.peer, r.time, r.peer) {
		return o
	}
	return r
}

// MergeRegisters is the symmetric spelling of Register.Merge.
func MergeRegisters[T any](a, b Register[T]) Register[T] {
	return a.Merge(b)
}

// wins reports whether write (t, p) strictly beats (overT, overP).
func wins(t int64, p string, overT int64, overP string) bool {
	if t != overT {
		return t > overT
	}
	return p > overP
}
