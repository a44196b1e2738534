// Package wire encodes register and set snapshots for a transport to
// ship between replicas. The format is ToyTLV records; value payloads
// are JSON. A snapshot carries an xxhash checksum so a receiver can
// refuse a corrupt state before merging it — the one failure mode the
// merge algebra cannot absorb.
//
// Register snapshot:
//
//	L( T(zipped time) P(peer) V(json value) H(checksum) )
//
// Set snapshot:
//
//	O( E( V(json value) G(tag)... )...  X(tombstone tag)...  H(checksum) )
//
// The checksum covers every record before H. Round-tripping a state
// through Encode/Decode is value-equal to the original.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cespare/xxhash"
	"github.com/learn-decentralized-systems/toyqueue"
	"github.com/learn-decentralized-systems/toytlv"

	"github.com/drpcorg/converge/crdt"
)

var ErrBadSnapshot = errors.New("converge: bad snapshot")

// EncodeRegister snapshots a register as {value, timestamp, peerId}.
func EncodeRegister[T any](reg crdt.Register[T]) ([]byte, error) {
	val, err := json.Marshal(reg.Get())
	if err != nil {
		return nil, fmt.Errorf("converge: register value not serializable: %w", err)
	}
	body := toytlv.Concat(
		toytlv.Record('T', crdt.ZipInt64(reg.Time())),
		toytlv.Record('P', []byte(reg.Peer())),
		toytlv.Record('V', val),
	)
	return toytlv.Record('L', body, checksum(body)), nil
}

// DecodeRegister rebuilds a register from one snapshot record.
func DecodeRegister[T any](data []byte) (reg crdt.Register[T], err error) {
	body, rest := toytlv.Take('L', data)
	if body == nil || len(rest) != 0 {
		return reg, fmt.Errorf("%w: not a register snapshot", ErrBadSnapshot)
	}
	tb, rest := toytlv.Take('T', body)
	pb, rest := toytlv.Take('P', rest)
	vb, rest := toytlv.Take('V', rest)
	if tb == nil || pb == nil || vb == nil {
		return reg, fmt.Errorf("%w: truncated register snapshot", ErrBadSnapshot)
	}
	if err = verify(body, rest); err != nil {
		return reg, err
	}
	var value T
	if err = json.Unmarshal(vb, &value); err != nil {
		return reg, fmt.Errorf("%w: %s", ErrBadSnapshot, err.Error())
	}
	return crdt.NewRegisterAt(value, string(pb), crdt.UnzipInt64(tb)), nil
}

// EncodeSet snapshots a set as its element rows plus tombstones.
func EncodeSet[T any](s crdt.Set[T]) ([]byte, error) {
	elements, tombstones := s.Snapshot()
	var body []byte
	for _, el := range elements {
		val, err := json.Marshal(el.Value)
		if err != nil {
			return nil, fmt.Errorf("converge: set value not serializable: %w", err)
		}
		row := toytlv.Record('V', val)
		for _, tag := range el.Tags {
			row = toytlv.Append(row, 'G', []byte(tag))
		}
		body = toytlv.Append(body, 'E', row)
	}
	for _, tag := range tombstones {
		body = toytlv.Append(body, 'X', []byte(tag))
	}
	return toytlv.Record('O', body, checksum(body)), nil
}

// DecodeSet rebuilds a set from one snapshot record.
func DecodeSet[T any](data []byte) (s crdt.Set[T], err error) {
	body, rest := toytlv.Take('O', data)
	if body == nil || len(rest) != 0 {
		return s, fmt.Errorf("%w: not a set snapshot", ErrBadSnapshot)
	}
	var elements []crdt.Element[T]
	var tombstones []crdt.Tag
	rest = body
	for len(rest) > 0 {
		lit, rec, next, err := toytlv.TakeAnyWary(rest)
		if err != nil {
			return s, fmt.Errorf("%w: %s", ErrBadSnapshot, err.Error())
		}
		switch lit {
		case 'E':
			el, err := decodeElement[T](rec)
			if err != nil {
				return s, err
			}
			elements = append(elements, el)
		case 'X':
			tombstones = append(tombstones, crdt.Tag(rec))
		case 'H':
			if err = verify(body, rest); err != nil {
				return s, err
			}
			return crdt.SetFromSnapshot(elements, tombstones), nil
		default:
			return s, fmt.Errorf("%w: unexpected record %c", ErrBadSnapshot, lit)
		}
		rest = next
	}
	return s, fmt.Errorf("%w: missing checksum", ErrBadSnapshot)
}

func decodeElement[T any](rec []byte) (el crdt.Element[T], err error) {
	vb, rest := toytlv.Take('V', rec)
	if vb == nil {
		return el, fmt.Errorf("%w: element without value", ErrBadSnapshot)
	}
	if err = json.Unmarshal(vb, &el.Value); err != nil {
		return el, fmt.Errorf("%w: %s", ErrBadSnapshot, err.Error())
	}
	for len(rest) > 0 {
		tag, next := toytlv.Take('G', rest)
		if tag == nil {
			return el, fmt.Errorf("%w: bad element tag", ErrBadSnapshot)
		}
		el.Tags = append(el.Tags, crdt.Tag(tag))
		rest = next
	}
	return el, nil
}

// checksum produces the trailing H record for a snapshot body.
func checksum(body []byte) []byte {
	return toytlv.Record('H', crdt.ZipUint64(xxhash.Sum64(body)))
}

// verify checks the H record at rest, which must be the tail of body.
func verify(body, rest []byte) error {
	hb, tail := toytlv.Take('H', rest)
	if hb == nil {
		return fmt.Errorf("%w: missing checksum", ErrBadSnapshot)
	}
	if len(tail) != 0 {
		return fmt.Errorf("%w: data after checksum", ErrBadSnapshot)
	}
	hashed := body[:len(body)-len(rest)]
	if xxhash.Sum64(hashed) != crdt.UnzipUint64(hb) {
		return fmt.Errorf("%w: checksum mismatch", ErrBadSnapshot)
	}
	return nil
}

// Ship drains snapshot records into a transport queue. The core has no
// network of its own; anything implementing toyqueue.Drainer (an
// in-process RecordQueue, a TCP depot) can carry snapshots.
func Ship(d toyqueue.Drainer, recs ...[]byte) error {
	return d.Drain(toyqueue.Records(recs))
}

// Receive feeds one batch of snapshot records from a transport queue.
func Receive(f toyqueue.Feeder) (toyqueue.Records, error) {
	return f.Feed()
}
