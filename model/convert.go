package model

import (
	"strconv"

	"xdao.co/ovm/intervaltree"
	"xdao.co/ovm/messages"
	"xdao.co/ovm/ovm"
)

// ToProperty converts the JSON form into an engine property.
func ToProperty(p Property) (ovm.Property, error) {
	t, ok := ovm.ParsePropertyType(p.Type)
	if !ok {
		return nil, NewError(ErrInvalidRequest, "unknown property type "+strconv.Quote(p.Type))
	}
	switch t {
	case ovm.TypeAnd, ovm.TypeOr:
		children := make([]ovm.Property, 0, len(p.Properties))
		for i, c := range p.Properties {
			op, err := ToProperty(c)
			if err != nil {
				return nil, prefixErr(err, p.Type+".properties["+strconv.Itoa(i)+"]")
			}
			children = append(children, op)
		}
		if t == ovm.TypeAnd {
			return ovm.And{Properties: children}, nil
		}
		return ovm.Or{Properties: children}, nil
	case ovm.TypeNot:
		if p.Property == nil {
			return nil, NewError(ErrInvalidRequest, "not: missing property")
		}
		op, err := ToProperty(*p.Property)
		if err != nil {
			return nil, prefixErr(err, "not.property")
		}
		return ovm.Not{Property: op}, nil
	case ovm.TypeForAllSuchThat:
		if p.Quantifier == nil || p.Predicate == nil {
			return nil, NewError(ErrInvalidRequest, "for_all_such_that: missing quantifier or predicate")
		}
		q, err := ToQuantifier(*p.Quantifier)
		if err != nil {
			return nil, err
		}
		pred, err := ToProperty(*p.Predicate)
		if err != nil {
			return nil, prefixErr(err, "for_all_such_that.predicate")
		}
		return ovm.ForAllSuchThat{Quantifier: q, Placeholder: p.Placeholder, Predicate: pred}, nil
	case ovm.TypePreimageExists:
		return ovm.PreimageExists{Hash: p.Hash}, nil
	case ovm.TypeSignedBy:
		return ovm.SignedBy{Message: p.Message, PublicKey: p.PublicKey}, nil
	case ovm.TypeHasLowerNonce:
		return ovm.HasLowerNonce{Message: p.Message, Nonce: p.Nonce}, nil
	default:
		return ovm.IncludedInIntervalTreeAtBlock{
			Block: p.Block, BlockVar: p.BlockVar, Start: p.Start, End: p.End, Data: p.Data,
		}, nil
	}
}

// FromProperty is the inverse of ToProperty.
func FromProperty(p ovm.Property) Property {
	out := Property{Type: p.Type().String()}
	switch p := p.(type) {
	case ovm.And:
		out.Properties = fromProperties(p.Properties)
	case ovm.Or:
		out.Properties = fromProperties(p.Properties)
	case ovm.Not:
		c := FromProperty(p.Property)
		out.Property = &c
	case ovm.ForAllSuchThat:
		q := FromQuantifier(p.Quantifier)
		pred := FromProperty(p.Predicate)
		out.Quantifier, out.Placeholder, out.Predicate = &q, p.Placeholder, &pred
	case ovm.PreimageExists:
		out.Hash = p.Hash
	case ovm.SignedBy:
		out.Message, out.PublicKey = p.Message, p.PublicKey
	case ovm.HasLowerNonce:
		out.Message, out.Nonce = p.Message, p.Nonce
	case ovm.IncludedInIntervalTreeAtBlock:
		out.Block, out.BlockVar, out.Start, out.End, out.Data = p.Block, p.BlockVar, p.Start, p.End, p.Data
	}
	return out
}

func fromProperties(ps []ovm.Property) []Property {
	out := make([]Property, len(ps))
	for i, p := range ps {
		out[i] = FromProperty(p)
	}
	return out
}

func ToQuantifier(q Quantifier) (ovm.Quantifier, error) {
	switch q.Type {
	case QuantifierIntegerRange:
		return ovm.IntegerRange{Start: q.Start, End: q.End}, nil
	case QuantifierSignedByRange:
		if q.Signer == "" {
			return nil, NewError(ErrInvalidRequest, "signed_by_range: missing signer")
		}
		return ovm.SignedByRange{Signer: q.Signer, Start: q.Start, End: q.End}, nil
	default:
		return nil, NewError(ErrInvalidRequest, "unknown quantifier type "+strconv.Quote(q.Type))
	}
}

func FromQuantifier(q ovm.Quantifier) Quantifier {
	switch q := q.(type) {
	case ovm.IntegerRange:
		return Quantifier{Type: QuantifierIntegerRange, Start: q.Start, End: q.End}
	case ovm.SignedByRange:
		return Quantifier{Type: QuantifierSignedByRange, Signer: q.Signer, Start: q.Start, End: q.End}
	}
	return Quantifier{}
}

// ToWitness converts the JSON form into an engine witness. nil maps to nil.
func ToWitness(w *Witness) (ovm.Witness, error) {
	if w == nil {
		return nil, nil
	}
	switch w.Type {
	case WitnessBytes:
		return ovm.Bytes(w.Bytes), nil
	case WitnessSignature:
		return ovm.Signature(w.Bytes), nil
	case WitnessList:
		out := make(ovm.List, len(w.List))
		for i, e := range w.List {
			ow, err := ToWitness(e)
			if err != nil {
				return nil, prefixErr(err, "list["+strconv.Itoa(i)+"]")
			}
			out[i] = ow
		}
		return out, nil
	case WitnessCounterExample:
		if w.Item == nil {
			return nil, NewError(ErrInvalidRequest, "counter_example: missing item")
		}
		item, err := toItem(*w.Item)
		if err != nil {
			return nil, err
		}
		inner, err := ToWitness(w.Witness)
		if err != nil {
			return nil, prefixErr(err, "counter_example.witness")
		}
		return ovm.CounterExample{Item: item, Witness: inner}, nil
	case WitnessInclusion:
		if w.Proof == nil {
			return nil, NewError(ErrInvalidRequest, "inclusion: missing proof")
		}
		p := intervaltree.Proof{Index: w.Proof.Index}
		for _, n := range w.Proof.Siblings {
			if len(n.Hash) != intervaltree.HashSize {
				return nil, NewError(ErrInvalidRequest, "inclusion: sibling hash must be "+strconv.Itoa(intervaltree.HashSize)+" bytes")
			}
			var node intervaltree.Node
			copy(node.Hash[:], n.Hash)
			node.End = n.End
			p.Siblings = append(p.Siblings, node)
		}
		return ovm.InclusionWitness{Proof: p}, nil
	default:
		return nil, NewError(ErrInvalidRequest, "unknown witness type "+strconv.Quote(w.Type))
	}
}

// FromWitness is the inverse of ToWitness.
func FromWitness(w ovm.Witness) *Witness {
	switch w := w.(type) {
	case ovm.Bytes:
		return &Witness{Type: WitnessBytes, Bytes: w}
	case ovm.Signature:
		return &Witness{Type: WitnessSignature, Bytes: w}
	case ovm.List:
		out := &Witness{Type: WitnessList, List: make([]*Witness, len(w))}
		for i, e := range w {
			out.List[i] = FromWitness(e)
		}
		return out
	case ovm.CounterExample:
		item := fromItem(w.Item)
		return &Witness{Type: WitnessCounterExample, Item: &item, Witness: FromWitness(w.Witness)}
	case ovm.InclusionWitness:
		p := &InclusionProof{Index: w.Proof.Index, Siblings: make([]Node, len(w.Proof.Siblings))}
		for i, n := range w.Proof.Siblings {
			p.Siblings[i] = Node{Hash: append([]byte(nil), n.Hash[:]...), End: n.End}
		}
		return &Witness{Type: WitnessInclusion, Proof: p}
	}
	return nil
}

func toItem(it Item) (ovm.Item, error) {
	switch {
	case it.Integer != nil && it.Message != nil:
		return nil, NewError(ErrInvalidRequest, "item has both integer and message")
	case it.Integer != nil:
		return ovm.IntegerItem(*it.Integer), nil
	case it.Message != nil:
		sm, err := messages.DecodeSigned(it.Message)
		if err != nil {
			return nil, NewError(ErrInvalidRequest, "item message: "+err.Error())
		}
		return ovm.MessageItem{Signed: sm}, nil
	}
	return nil, NewError(ErrInvalidRequest, "item missing integer/message")
}

func fromItem(it ovm.Item) Item {
	switch it := it.(type) {
	case ovm.IntegerItem:
		v := uint64(it)
		return Item{Integer: &v}
	case ovm.MessageItem:
		return Item{Message: it.Signed.Encode()}
	}
	return Item{}
}

func prefixErr(err error, path string) error {
	if ce, ok := err.(*CodedError); ok {
		return &CodedError{Code: ce.Code, RuleID: ce.RuleID, Message: path + ": " + ce.Message}
	}
	return err
}
