package ovm

// Decision is an outcome plus the proof that justifies it.
//
// Proof is ordered root to leaf: every combinator contributes its own element
// followed by the proofs of the sub-decisions it consulted. Replaying the proof
// (Executor.Replay) re-derives Outcome.
type Decision struct {
	Outcome bool
	Proof   []ImplicationProofElement
}

// ImplicationProofElement records one property and the witness used for it.
type ImplicationProofElement struct {
	Property Property
	Witness  Witness
}

// DecisionValue is the persisted form of a leaf decision.
type DecisionValue struct {
	Decision bool
	Witness  Witness
}

func leafDecision(p Property, outcome bool, w Witness) Decision {
	return Decision{Outcome: outcome, Proof: []ImplicationProofElement{{Property: p, Witness: w}}}
}
