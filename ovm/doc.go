// Package ovm decides claims about layer-2 state.
//
// A claim is a Property tree: combinators (And, Or, Not, ForAllSuchThat) over
// leaves (PreimageExists, SignedBy, HasLowerNonce,
// IncludedInIntervalTreeAtBlock). An Executor evaluates a property against an
// optional Witness tree and returns a Decision carrying the proof that
// justifies it.
//
// Outcomes are three-valued. True and false come back as Decision.Outcome;
// "not yet decidable" comes back as an error of KindUndecided, which callers
// treat as "retry with more evidence".
//
// Contract:
//   - Leaves that hold are persisted under decisions/<type>/<PropertyID>, with
//     the witness that proved them. Nothing else is ever written.
//   - CheckDecision reads only that cache; it never verifies a witness.
//   - Replaying a Decision's proof re-derives its outcome without the cache.
//   - ForAllSuchThat never holds over a set the quantifier cannot show complete.
package ovm
