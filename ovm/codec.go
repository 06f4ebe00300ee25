package ovm

import (
	"github.com/ipfs/go-cid"
	"google.golang.org/protobuf/encoding/protowire"

	"xdao.co/ovm/cidutil"
	"xdao.co/ovm/internal/wire"
	"xdao.co/ovm/intervaltree"
	"xdao.co/ovm/messages"
)

// maxDepth bounds nesting when decoding untrusted bytes.
const maxDepth = 64

// Envelope fields shared by every tagged union.
const (
	fieldTag  = 1
	fieldBody = 2
)

func envelope(tag uint8, body []byte) []byte {
	b := wire.AppendUint(nil, fieldTag, uint64(tag))
	return wire.AppendBytes(b, fieldBody, body)
}

func openEnvelope(b []byte) (uint8, wire.Fields, error) {
	fs, err := wire.Parse(b)
	if err != nil {
		return 0, nil, wrapError(KindCodec, "OVM-CODEC-001", "malformed envelope", err)
	}
	tag, ok := fs.Uint(fieldTag)
	if !ok || tag == 0 || tag > 255 {
		return 0, nil, newError(KindCodec, "OVM-CODEC-002", "missing or invalid tag")
	}
	body, _ := fs.Bytes(fieldBody)
	bfs, err := wire.Parse(body)
	if err != nil {
		return 0, nil, wrapError(KindCodec, "OVM-CODEC-001", "malformed body", err)
	}
	return uint8(tag), bfs, nil
}

// EncodeProperty returns the canonical bytes of p. Structurally equal
// properties encode identically.
func EncodeProperty(p Property) []byte {
	return envelope(uint8(p.Type()), p.appendTo(nil))
}

// PropertyID is the content identifier of p's canonical encoding. It is the
// decision cache key.
func PropertyID(p Property) cid.Cid {
	return cidutil.Sum(EncodeProperty(p))
}

func appendChildren(b []byte, num protowire.Number, ps []Property) []byte {
	for _, p := range ps {
		b = wire.AppendBytes(b, num, EncodeProperty(p))
	}
	return b
}

func (a And) appendTo(b []byte) []byte { return appendChildren(b, 1, a.Properties) }
func (o Or) appendTo(b []byte) []byte  { return appendChildren(b, 1, o.Properties) }
func (n Not) appendTo(b []byte) []byte { return wire.AppendBytes(b, 1, EncodeProperty(n.Property)) }

func (f ForAllSuchThat) appendTo(b []byte) []byte {
	b = wire.AppendBytes(b, 1, EncodeQuantifier(f.Quantifier))
	b = wire.AppendBytes(b, 2, f.Placeholder)
	return wire.AppendBytes(b, 3, EncodeProperty(f.Predicate))
}

func (p PreimageExists) appendTo(b []byte) []byte { return wire.AppendBytes(b, 1, p.Hash) }

func (s SignedBy) appendTo(b []byte) []byte {
	b = wire.AppendBytes(b, 1, s.Message)
	return wire.AppendString(b, 2, s.PublicKey)
}

func (h HasLowerNonce) appendTo(b []byte) []byte {
	b = wire.AppendBytes(b, 1, h.Message)
	return wire.AppendUint(b, 2, h.Nonce)
}

func (in IncludedInIntervalTreeAtBlock) appendTo(b []byte) []byte {
	b = wire.AppendUint(b, 1, in.Block)
	b = wire.AppendBytes(b, 2, in.BlockVar)
	b = wire.AppendUint(b, 3, in.Start)
	b = wire.AppendUint(b, 4, in.End)
	return wire.AppendBytes(b, 5, in.Data)
}

// DecodeProperty parses a canonical property encoding.
func DecodeProperty(b []byte) (Property, error) {
	return decodeProperty(b, 0)
}

func decodeProperty(b []byte, depth int) (Property, error) {
	if depth > maxDepth {
		return nil, newError(KindCodec, "OVM-CODEC-003", "property nesting too deep")
	}
	tag, fs, err := openEnvelope(b)
	if err != nil {
		return nil, err
	}
	child := func(raw []byte) (Property, error) { return decodeProperty(raw, depth+1) }
	children := func() ([]Property, error) {
		var out []Property
		for _, raw := range fs.All(1) {
			p, err := child(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, nil
	}
	required := func(num protowire.Number) ([]byte, error) {
		raw, ok := fs.Bytes(num)
		if !ok {
			return nil, newError(KindCodec, "OVM-CODEC-004", "missing field")
		}
		return raw, nil
	}

	switch PropertyType(tag) {
	case TypeAnd:
		ps, err := children()
		return And{Properties: ps}, err
	case TypeOr:
		ps, err := children()
		return Or{Properties: ps}, err
	case TypeNot:
		raw, err := required(1)
		if err != nil {
			return nil, err
		}
		p, err := child(raw)
		if err != nil {
			return nil, err
		}
		return Not{Property: p}, nil
	case TypeForAllSuchThat:
		rawQ, err := required(1)
		if err != nil {
			return nil, err
		}
		q, err := DecodeQuantifier(rawQ)
		if err != nil {
			return nil, err
		}
		rawP, err := required(3)
		if err != nil {
			return nil, err
		}
		p, err := child(rawP)
		if err != nil {
			return nil, err
		}
		ph, _ := fs.Bytes(2)
		return ForAllSuchThat{Quantifier: q, Placeholder: ph, Predicate: p}, nil
	case TypePreimageExists:
		h, _ := fs.Bytes(1)
		return PreimageExists{Hash: h}, nil
	case TypeSignedBy:
		m, _ := fs.Bytes(1)
		return SignedBy{Message: m, PublicKey: fs.String(2)}, nil
	case TypeHasLowerNonce:
		m, _ := fs.Bytes(1)
		n, _ := fs.Uint(2)
		return HasLowerNonce{Message: m, Nonce: n}, nil
	case TypeIncludedInIntervalTreeAtBlock:
		var in IncludedInIntervalTreeAtBlock
		in.Block, _ = fs.Uint(1)
		in.BlockVar, _ = fs.Bytes(2)
		in.Start, _ = fs.Uint(3)
		in.End, _ = fs.Uint(4)
		in.Data, _ = fs.Bytes(5)
		return in, nil
	default:
		return nil, newError(KindNotImplemented, "OVM-NOTIMPL-001", "unknown property type")
	}
}

// EncodeQuantifier returns the canonical bytes of q.
func EncodeQuantifier(q Quantifier) []byte {
	return envelope(uint8(q.Type()), q.appendTo(nil))
}

func (r IntegerRange) appendTo(b []byte) []byte {
	b = wire.AppendUint(b, 1, r.Start)
	return wire.AppendUint(b, 2, r.End)
}

func (r SignedByRange) appendTo(b []byte) []byte {
	b = wire.AppendString(b, 1, r.Signer)
	b = wire.AppendUint(b, 2, r.Start)
	return wire.AppendUint(b, 3, r.End)
}

func DecodeQuantifier(b []byte) (Quantifier, error) {
	tag, fs, err := openEnvelope(b)
	if err != nil {
		return nil, err
	}
	switch QuantifierType(tag) {
	case QuantIntegerRange:
		var r IntegerRange
		r.Start, _ = fs.Uint(1)
		r.End, _ = fs.Uint(2)
		return r, nil
	case QuantSignedByRange:
		r := SignedByRange{Signer: fs.String(1)}
		r.Start, _ = fs.Uint(2)
		r.End, _ = fs.Uint(3)
		return r, nil
	default:
		return nil, newError(KindNotImplemented, "OVM-NOTIMPL-002", "unknown quantifier type")
	}
}

// EncodeWitness returns the canonical bytes of w. A nil witness encodes as nil.
func EncodeWitness(w Witness) []byte {
	if w == nil {
		return nil
	}
	return envelope(uint8(w.witnessType()), w.appendTo(nil))
}

func (w Bytes) appendTo(b []byte) []byte     { return wire.AppendBytes(b, 1, w) }
func (w Signature) appendTo(b []byte) []byte { return wire.AppendBytes(b, 1, w) }

// List entries are wrapped so nil entries keep their position.
func (w List) appendTo(b []byte) []byte {
	for _, e := range w {
		b = wire.AppendBytes(b, 1, wire.AppendBytes(nil, 1, EncodeWitness(e)))
	}
	return b
}

func (w CounterExample) appendTo(b []byte) []byte {
	b = wire.AppendBytes(b, 1, EncodeItem(w.Item))
	if w.Witness != nil {
		b = wire.AppendBytes(b, 2, EncodeWitness(w.Witness))
	}
	return b
}

func (w InclusionWitness) appendTo(b []byte) []byte {
	p, _ := w.Proof.MarshalBinary()
	return wire.AppendBytes(b, 1, p)
}

// DecodeWitness parses a canonical witness encoding. Empty input is a nil witness.
func DecodeWitness(b []byte) (Witness, error) {
	return decodeWitness(b, 0)
}

func decodeWitness(b []byte, depth int) (Witness, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if depth > maxDepth {
		return nil, newError(KindCodec, "OVM-CODEC-003", "witness nesting too deep")
	}
	tag, fs, err := openEnvelope(b)
	if err != nil {
		return nil, err
	}
	switch WitnessType(tag) {
	case WitnessBytes:
		v, _ := fs.Bytes(1)
		return Bytes(v), nil
	case WitnessSignature:
		v, _ := fs.Bytes(1)
		return Signature(v), nil
	case WitnessList:
		out := List{}
		for _, raw := range fs.All(1) {
			inner, err := wire.Parse(raw)
			if err != nil {
				return nil, wrapError(KindCodec, "OVM-CODEC-001", "malformed list entry", err)
			}
			eb, _ := inner.Bytes(1)
			e, err := decodeWitness(eb, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, nil
	case WitnessCounterExample:
		raw, ok := fs.Bytes(1)
		if !ok {
			return nil, newError(KindCodec, "OVM-CODEC-004", "counter-example without item")
		}
		item, err := DecodeItem(raw)
		if err != nil {
			return nil, err
		}
		wb, _ := fs.Bytes(2)
		inner, err := decodeWitness(wb, depth+1)
		if err != nil {
			return nil, err
		}
		return CounterExample{Item: item, Witness: inner}, nil
	case WitnessInclusion:
		raw, _ := fs.Bytes(1)
		var p intervaltree.Proof
		if err := p.UnmarshalBinary(raw); err != nil {
			return nil, wrapError(KindCodec, "OVM-CODEC-005", "malformed inclusion proof", err)
		}
		return InclusionWitness{Proof: p}, nil
	default:
		return nil, newError(KindNotImplemented, "OVM-NOTIMPL-003", "unknown witness type")
	}
}

// EncodeItem returns the canonical bytes of a quantified item.
func EncodeItem(it Item) []byte {
	switch it := it.(type) {
	case IntegerItem:
		return envelope(itemInteger, wire.AppendUint(nil, 1, uint64(it)))
	case MessageItem:
		return envelope(itemMessage, wire.AppendBytes(nil, 1, it.Signed.Encode()))
	default:
		return nil
	}
}

func DecodeItem(b []byte) (Item, error) {
	tag, fs, err := openEnvelope(b)
	if err != nil {
		return nil, err
	}
	switch tag {
	case itemInteger:
		v, _ := fs.Uint(1)
		return IntegerItem(v), nil
	case itemMessage:
		raw, _ := fs.Bytes(1)
		sm, err := messages.DecodeSigned(raw)
		if err != nil {
			return nil, wrapError(KindCodec, "OVM-CODEC-006", "malformed message item", err)
		}
		return MessageItem{Signed: sm}, nil
	default:
		return nil, newError(KindNotImplemented, "OVM-NOTIMPL-004", "unknown item type")
	}
}

const (
	fieldDecision = 1
	fieldWitness  = 2
)

// EncodeDecisionValue returns the persisted bytes of v.
func EncodeDecisionValue(v DecisionValue) []byte {
	b := wire.AppendBool(nil, fieldDecision, v.Decision)
	if v.Witness != nil {
		b = wire.AppendBytes(b, fieldWitness, EncodeWitness(v.Witness))
	}
	return b
}

func DecodeDecisionValue(b []byte) (DecisionValue, error) {
	fs, err := wire.Parse(b)
	if err != nil {
		return DecisionValue{}, wrapError(KindCodec, "OVM-CODEC-007", "malformed decision value", err)
	}
	if !fs.Has(fieldDecision) {
		return DecisionValue{}, newError(KindCodec, "OVM-CODEC-007", "decision value without outcome")
	}
	wb, _ := fs.Bytes(fieldWitness)
	w, err := DecodeWitness(wb)
	if err != nil {
		return DecisionValue{}, err
	}
	return DecisionValue{Decision: fs.Bool(fieldDecision), Witness: w}, nil
}
