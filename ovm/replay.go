package ovm

import "context"

// Replay re-derives the outcome of proof[0].Property from the witnesses the
// proof carries. The decision cache is neither read nor written, so a proof
// produced on one node can be audited on another with an empty cache. Message
// and commitment stores are still consulted by quantifiers and inclusion.
func (e *Executor) Replay(ctx context.Context, proof []ImplicationProofElement) (bool, error) {
	if len(proof) == 0 {
		return false, newError(KindInvalidInput, "OVM-INPUT-008", "empty proof")
	}
	r := *e
	r.replay = make(map[string]Witness, len(proof))
	for _, el := range proof {
		if el.Property == nil {
			return false, newError(KindInvalidInput, "OVM-INPUT-001", "nil property in proof")
		}
		if el.Witness != nil {
			r.replay[PropertyID(el.Property).KeyString()] = el.Witness
		}
	}
	d, err := r.decide(ctx, proof[0].Property, proof[0].Witness)
	if err != nil {
		return false, err
	}
	return d.Outcome, nil
}
