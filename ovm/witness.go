package ovm

import (
	"xdao.co/ovm/intervaltree"
)

// WitnessType tags a Witness variant in its canonical encoding.
type WitnessType uint8

const (
	WitnessBytes WitnessType = iota + 1
	WitnessSignature
	WitnessList
	WitnessCounterExample
	WitnessInclusion
)

// Witness is evidence a prover supplies for a claim. A nil Witness means "no
// evidence"; leaves that need evidence then fall back to their cached decision.
type Witness interface {
	witnessType() WitnessType
	appendTo(b []byte) []byte
}

// Bytes is raw evidence, e.g. a hash preimage or a signature.
type Bytes []byte

// Signature is a signature over a SignedBy message.
type Signature []byte

// List routes one witness to each sub-property (And, Or) or quantified item
// (ForAllSuchThat), in order. Entries may be nil.
type List []Witness

// CounterExample refutes a ForAllSuchThat with a single item for which the
// bound predicate decides false, using Witness as that predicate's evidence.
type CounterExample struct {
	Item    Item
	Witness Witness
}

// InclusionWitness proves an interval tree leaf.
type InclusionWitness struct {
	Proof intervaltree.Proof
}

func (Bytes) witnessType() WitnessType            { return WitnessBytes }
func (Signature) witnessType() WitnessType        { return WitnessSignature }
func (List) witnessType() WitnessType             { return WitnessList }
func (CounterExample) witnessType() WitnessType   { return WitnessCounterExample }
func (InclusionWitness) witnessType() WitnessType { return WitnessInclusion }

// routeList splits w across n children. nil yields n nil witnesses.
func routeList(w Witness, n int) ([]Witness, error) {
	switch w := w.(type) {
	case nil:
		return make([]Witness, n), nil
	case List:
		if len(w) != n {
			return nil, newError(KindInvalidWitness, "OVM-WITNESS-002", "witness list length does not match sub-properties")
		}
		return w, nil
	default:
		return nil, newError(KindInvalidWitness, "OVM-WITNESS-001", "combinator witness must be a list")
	}
}
