package crdt

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/learn-decentralized-systems/toytlv"
)

// Key derives the OR-Set identity of a value: a deterministic,
// collision-free encoding of the value's structure. Two values are the
// same set element iff their keys are byte-equal. Supported domain:
// strings, booleans, all int/uint/float kinds, and composites thereof
// (slices, arrays, maps, structs, pointers). Anything else is a caller
// contract violation and panics.
//
// The encoding is TLV-framed so nested composites can never collide by
// concatenation: every node carries a type liter and a length.
func Key(v any) string {
	return string(appendKey(nil, reflect.ValueOf(v)))
}

func appendKey(into []byte, v reflect.Value) []byte {
	if !v.IsValid() {
		return toytlv.Append(into, 'N')
	}
	switch v.Kind() {
	case reflect.String:
		return toytlv.Append(into, 'S', []byte(v.String()))
	case reflect.Bool:
		b := byte(0)
		if v.Bool() {
			b = 1
		}
		return toytlv.Append(into, 'B', []byte{b})
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return toytlv.Append(into, 'I', ZipInt64(v.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return toytlv.Append(into, 'U', ZipUint64(v.Uint()))
	case reflect.Float32, reflect.Float64:
		return toytlv.Append(into, 'F', ZipFloat64(v.Float()))
	case reflect.Slice, reflect.Array:
		var body []byte
		for i := 0; i < v.Len(); i++ {
			body = appendKey(body, v.Index(i))
		}
		return toytlv.Append(into, 'L', body)
	case reflect.Map:
		// map iteration order is random; sort the encoded pairs.
		// keys encode uniquely, so pair order is key order.
		pairs := make([][]byte, 0, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			pair := appendKey(nil, iter.Key())
			pair = appendKey(pair, iter.Value())
			pairs = append(pairs, pair)
		}
		sort.Slice(pairs, func(i, j int) bool {
			return string(pairs[i]) < string(pairs[j])
		})
		var body []byte
		for _, p := range pairs {
			body = toytlv.Append(body, 'P', p)
		}
		return toytlv.Append(into, 'M', body)
	case reflect.Struct:
		var body []byte
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			field := toytlv.Append(nil, 'S', []byte(t.Field(i).Name))
			field = appendKey(field, v.Field(i))
			body = toytlv.Append(body, 'P', field)
		}
		return toytlv.Append(into, 'R', body)
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return toytlv.Append(into, 'N')
		}
		return appendKey(into, v.Elem())
	default:
		panic(fmt.Sprintf("crdt: unsupported key type %s", v.Kind()))
	}
}
