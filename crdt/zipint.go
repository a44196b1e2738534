package crdt

import (
	"encoding/binary"
	"math"
)

// ZipUint64 packs a uint64 into the shortest possible byte string,
// little-endian, dropping trailing zero bytes.
func ZipUint64(v uint64) []byte {
	buf := [8]byte{}
	i := 0
	for v > 0 {
		buf[i] = uint8(v)
		v >>= 8
		i++
	}
	return buf[0:i]
}

func UnzipUint64(zip []byte) (v uint64) {
	for i := len(zip) - 1; i >= 0; i-- {
		v <<= 8
		v |= uint64(zip[i])
	}
	return
}

func ZigZagInt64(i int64) uint64 {
	return uint64(i*2) ^ uint64(i>>63)
}

func ZagZigUint64(u uint64) int64 {
	half := u >> 1
	mask := -(u & 1)
	return int64(half ^ mask)
}

func ZipInt64(v int64) []byte {
	return ZipUint64(ZigZagInt64(v))
}

func UnzipInt64(zip []byte) int64 {
	return ZagZigUint64(UnzipUint64(zip))
}

// ZipFloat64 keeps the full IEEE 754 bit pattern; distinct floats
// (incl. signed zeroes and NaN payloads) zip to distinct strings.
func ZipFloat64(f float64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
	return buf[:]
}

func UnzipFloat64(zip []byte) float64 {
	var buf [8]byte
	copy(buf[:], zip)
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[:]))
}
