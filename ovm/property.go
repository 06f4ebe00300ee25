package ovm

import (
	"bytes"
	"context"
	"encoding/binary"
)

// PropertyType tags a Property variant in its canonical encoding.
type PropertyType uint8

const (
	TypeAnd PropertyType = iota + 1
	TypeOr
	TypeNot
	TypeForAllSuchThat
	TypePreimageExists
	TypeSignedBy
	TypeHasLowerNonce
	TypeIncludedInIntervalTreeAtBlock
)

var propertyTypeNames = map[PropertyType]string{
	TypeAnd:                           "and",
	TypeOr:                            "or",
	TypeNot:                           "not",
	TypeForAllSuchThat:                "for_all_such_that",
	TypePreimageExists:                "preimage_exists",
	TypeSignedBy:                      "signed_by",
	TypeHasLowerNonce:                 "has_lower_nonce",
	TypeIncludedInIntervalTreeAtBlock: "included_in_interval_tree_at_block",
}

// String is the variant's name. Leaf deciders use it as their cache namespace.
func (t PropertyType) String() string {
	if n, ok := propertyTypeNames[t]; ok {
		return n
	}
	return "unknown"
}

// ParsePropertyType is the inverse of PropertyType.String.
func ParsePropertyType(s string) (PropertyType, bool) {
	for t, n := range propertyTypeNames {
		if n == s {
			return t, true
		}
	}
	return 0, false
}

// Property is a claim in the logic. The variant set is closed: every variant
// lives in this package and implements evaluation, cache lookup, placeholder
// binding and canonical encoding.
//
// Properties are immutable values; structurally equal properties share a
// PropertyID and are cache-interchangeable.
type Property interface {
	Type() PropertyType

	appendTo(b []byte) []byte
	decide(ctx context.Context, e *Executor, w Witness) (Decision, error)
	checkDecision(ctx context.Context, e *Executor) (Decision, error)
	bind(placeholder []byte, item Item) (Property, error)
}

// And holds iff every sub-property holds.
type And struct {
	Properties []Property
}

// Or holds iff at least one sub-property holds.
type Or struct {
	Properties []Property
}

// Not holds iff Property is decided false.
type Not struct {
	Property Property
}

// ForAllSuchThat holds iff Predicate holds for every item of Quantifier.
//
// Predicate is a template: every bytes field equal to Placeholder is replaced by
// the item's bytes before evaluation. A nested ForAllSuchThat using the same
// placeholder shadows the outer one.
type ForAllSuchThat struct {
	Quantifier  Quantifier
	Placeholder []byte
	Predicate   Property
}

// PreimageExists holds once someone presents bytes whose multihash equals Hash.
type PreimageExists struct {
	Hash []byte
}

// SignedBy holds once someone presents a signature over Message by PublicKey.
type SignedBy struct {
	Message   []byte
	PublicKey string
}

// HasLowerNonce holds iff the encoded channel message Message carries a nonce
// strictly below Nonce. It is a pure predicate and takes no witness.
type HasLowerNonce struct {
	Message []byte
	Nonce   uint64
}

// IncludedInIntervalTreeAtBlock holds once someone proves that the leaf
// ([Start, End), Data) is in the interval tree committed for Block.
//
// BlockVar, when non-empty, lets an enclosing ForAllSuchThat over integers bind
// Block: if BlockVar equals the placeholder, Block becomes the item's value.
type IncludedInIntervalTreeAtBlock struct {
	Block    uint64
	BlockVar []byte
	Start    uint64
	End      uint64
	Data     []byte
}

func (And) Type() PropertyType                           { return TypeAnd }
func (Or) Type() PropertyType                            { return TypeOr }
func (Not) Type() PropertyType                           { return TypeNot }
func (ForAllSuchThat) Type() PropertyType                { return TypeForAllSuchThat }
func (PreimageExists) Type() PropertyType                { return TypePreimageExists }
func (SignedBy) Type() PropertyType                      { return TypeSignedBy }
func (HasLowerNonce) Type() PropertyType                 { return TypeHasLowerNonce }
func (IncludedInIntervalTreeAtBlock) Type() PropertyType { return TypeIncludedInIntervalTreeAtBlock }

// Bind returns p with placeholder replaced by item.
func Bind(p Property, placeholder []byte, item Item) (Property, error) {
	if p == nil {
		return nil, newError(KindInvalidInput, "OVM-INPUT-001", "nil property")
	}
	if len(placeholder) == 0 {
		return nil, newError(KindInvalidInput, "OVM-INPUT-002", "empty placeholder")
	}
	return p.bind(placeholder, item)
}

func bindBytes(field, placeholder []byte, item Item) []byte {
	if bytes.Equal(field, placeholder) {
		return item.Bytes()
	}
	return field
}

func bindAll(ps []Property, placeholder []byte, item Item) ([]Property, error) {
	out := make([]Property, len(ps))
	for i, p := range ps {
		if p == nil {
			return nil, newError(KindInvalidInput, "OVM-INPUT-001", "nil property")
		}
		b, err := p.bind(placeholder, item)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func (a And) bind(placeholder []byte, item Item) (Property, error) {
	ps, err := bindAll(a.Properties, placeholder, item)
	if err != nil {
		return nil, err
	}
	return And{Properties: ps}, nil
}

func (o Or) bind(placeholder []byte, item Item) (Property, error) {
	ps, err := bindAll(o.Properties, placeholder, item)
	if err != nil {
		return nil, err
	}
	return Or{Properties: ps}, nil
}

func (n Not) bind(placeholder []byte, item Item) (Property, error) {
	if n.Property == nil {
		return nil, newError(KindInvalidInput, "OVM-INPUT-001", "nil property")
	}
	p, err := n.Property.bind(placeholder, item)
	if err != nil {
		return nil, err
	}
	return Not{Property: p}, nil
}

func (f ForAllSuchThat) bind(placeholder []byte, item Item) (Property, error) {
	if bytes.Equal(f.Placeholder, placeholder) {
		return f, nil
	}
	if f.Predicate == nil {
		return nil, newError(KindInvalidInput, "OVM-INPUT-001", "nil property")
	}
	p, err := f.Predicate.bind(placeholder, item)
	if err != nil {
		return nil, err
	}
	return ForAllSuchThat{Quantifier: f.Quantifier, Placeholder: f.Placeholder, Predicate: p}, nil
}

func (p PreimageExists) bind(placeholder []byte, item Item) (Property, error) {
	return PreimageExists{Hash: bindBytes(p.Hash, placeholder, item)}, nil
}

func (s SignedBy) bind(placeholder []byte, item Item) (Property, error) {
	return SignedBy{Message: bindBytes(s.Message, placeholder, item), PublicKey: s.PublicKey}, nil
}

func (h HasLowerNonce) bind(placeholder []byte, item Item) (Property, error) {
	return HasLowerNonce{Message: bindBytes(h.Message, placeholder, item), Nonce: h.Nonce}, nil
}

func (in IncludedInIntervalTreeAtBlock) bind(placeholder []byte, item Item) (Property, error) {
	out := in
	out.Data = bindBytes(in.Data, placeholder, item)
	if len(in.BlockVar) > 0 && bytes.Equal(in.BlockVar, placeholder) {
		n, ok := item.(IntegerItem)
		if !ok {
			return nil, newError(KindInvalidInput, "OVM-INPUT-003", "block variable bound to a non-integer item")
		}
		out.Block = uint64(n)
		out.BlockVar = nil
	}
	return out, nil
}

// Uint64Bytes is the big-endian encoding IntegerItem binds into bytes fields.
func Uint64Bytes(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}
