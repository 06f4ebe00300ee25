// Package wire holds the canonical binary encoding shared by every persisted or
// hashed value in the module.
//
// Values are written in protobuf wire format (via protowire, no code generation)
// with fields in ascending number order. The same logical value therefore always
// produces the same bytes, which is what lets encoded values act as cache keys.
package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

var ErrMalformed = errors.New("wire: malformed encoding")

func AppendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func AppendString(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func AppendUint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func AppendBool(b []byte, num protowire.Number, v bool) []byte {
	return AppendUint(b, num, protowire.EncodeBool(v))
}

// Field is one decoded field. Only varint and length-delimited fields are
// produced by this package, so Uint or Bytes is set depending on Type.
type Field struct {
	Num   protowire.Number
	Type  protowire.Type
	Uint  uint64
	Bytes []byte
}

type Fields []Field

// Parse splits b into fields. Unsupported wire types are rejected.
func Parse(b []byte) (Fields, error) {
	var out Fields
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]
		f := Field{Num: num, Type: typ}
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			f.Uint = v
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			f.Bytes = append([]byte(nil), v...)
			b = b[n:]
		default:
			return nil, fmt.Errorf("%w: field %d: unsupported wire type %d", ErrMalformed, num, typ)
		}
		out = append(out, f)
	}
	return out, nil
}

func (fs Fields) Bytes(num protowire.Number) ([]byte, bool) {
	for _, f := range fs {
		if f.Num == num && f.Type == protowire.BytesType {
			return f.Bytes, true
		}
	}
	return nil, false
}

func (fs Fields) String(num protowire.Number) string {
	b, _ := fs.Bytes(num)
	return string(b)
}

func (fs Fields) Uint(num protowire.Number) (uint64, bool) {
	for _, f := range fs {
		if f.Num == num && f.Type == protowire.VarintType {
			return f.Uint, true
		}
	}
	return 0, false
}

func (fs Fields) Bool(num protowire.Number) bool {
	v, _ := fs.Uint(num)
	return protowire.DecodeBool(v)
}

// All returns every length-delimited occurrence of num, in encoding order.
func (fs Fields) All(num protowire.Number) [][]byte {
	var out [][]byte
	for _, f := range fs {
		if f.Num == num && f.Type == protowire.BytesType {
			out = append(out, f.Bytes)
		}
	}
	return out
}

func (fs Fields) Has(num protowire.Number) bool {
	for _, f := range fs {
		if f.Num == num {
			return true
		}
	}
	return false
}
