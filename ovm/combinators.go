package ovm

import "context"

// evalFunc is either Executor.decide or a cache-only adapter of Executor.check,
// so each combinator has one rule set for both entry points.
type evalFunc func(ctx context.Context, p Property, w Witness) (Decision, error)

func (e *Executor) checkEval(ctx context.Context, p Property, _ Witness) (Decision, error) {
	return e.check(ctx, p)
}

func (a And) decide(ctx context.Context, e *Executor, w Witness) (Decision, error) {
	ws, err := routeList(w, len(a.Properties))
	if err != nil {
		return Decision{}, err
	}
	return a.eval(ctx, w, ws, e.decide)
}

func (a And) checkDecision(ctx context.Context, e *Executor) (Decision, error) {
	return a.eval(ctx, nil, make([]Witness, len(a.Properties)), e.checkEval)
}

// eval stops at the first sub-property that is false or fails, including
// Undecided; later sub-properties are not evaluated.
func (a And) eval(ctx context.Context, w Witness, ws []Witness, eval evalFunc) (Decision, error) {
	proof := []ImplicationProofElement{{Property: a, Witness: w}}
	for i, p := range a.Properties {
		d, err := eval(ctx, p, ws[i])
		if err != nil {
			return Decision{}, err
		}
		proof = append(proof, d.Proof...)
		if !d.Outcome {
			return Decision{Outcome: false, Proof: proof}, nil
		}
	}
	return Decision{Outcome: true, Proof: proof}, nil
}

func (o Or) decide(ctx context.Context, e *Executor, w Witness) (Decision, error) {
	ws, err := routeList(w, len(o.Properties))
	if err != nil {
		return Decision{}, err
	}
	return o.eval(ctx, w, ws, e.decide)
}

func (o Or) checkDecision(ctx context.Context, e *Executor) (Decision, error) {
	return o.eval(ctx, nil, make([]Witness, len(o.Properties)), e.checkEval)
}

// eval is true at the first true branch. A false branch outweighs undecided
// ones; only when every branch is undecided is the Or undecided.
func (o Or) eval(ctx context.Context, w Witness, ws []Witness, eval evalFunc) (Decision, error) {
	proof := []ImplicationProofElement{{Property: o, Witness: w}}
	undecided := 0
	for i, p := range o.Properties {
		d, err := eval(ctx, p, ws[i])
		if IsUndecided(err) {
			undecided++
			continue
		}
		if err != nil {
			return Decision{}, err
		}
		if d.Outcome {
			out := make([]ImplicationProofElement, 0, 1+len(d.Proof))
			out = append(out, proof[0])
			return Decision{Outcome: true, Proof: append(out, d.Proof...)}, nil
		}
		proof = append(proof, d.Proof...)
	}
	if undecided > 0 && undecided == len(o.Properties) {
		return Decision{}, newError(KindUndecided, "OVM-UNDECIDED-002", "every branch is undecided")
	}
	return Decision{Outcome: false, Proof: proof}, nil
}

func (n Not) decide(ctx context.Context, e *Executor, w Witness) (Decision, error) {
	return n.eval(ctx, w, e.decide)
}

func (n Not) checkDecision(ctx context.Context, e *Executor) (Decision, error) {
	return n.eval(ctx, nil, e.checkEval)
}

func (n Not) eval(ctx context.Context, w Witness, eval evalFunc) (Decision, error) {
	d, err := eval(ctx, n.Property, w)
	if err != nil {
		return Decision{}, err
	}
	proof := append([]ImplicationProofElement{{Property: n, Witness: w}}, d.Proof...)
	return Decision{Outcome: !d.Outcome, Proof: proof}, nil
}

func (f ForAllSuchThat) validate() error {
	if len(f.Placeholder) == 0 {
		return newError(KindInvalidInput, "OVM-INPUT-002", "empty placeholder")
	}
	if f.Quantifier == nil || f.Predicate == nil {
		return newError(KindInvalidInput, "OVM-INPUT-001", "for_all without quantifier or predicate")
	}
	return nil
}

func (f ForAllSuchThat) decide(ctx context.Context, e *Executor, w Witness) (Decision, error) {
	if err := f.validate(); err != nil {
		return Decision{}, err
	}
	switch w := w.(type) {
	case CounterExample:
		return f.refute(ctx, e, w)
	case nil, List:
	default:
		return Decision{}, newError(KindInvalidWitness, "OVM-WITNESS-010", "for_all witness must be a counter-example or a list")
	}

	res, err := e.GetAllQuantified(ctx, f.Quantifier)
	if err != nil {
		return Decision{}, err
	}
	ws := make([]Witness, len(res.Items))
	if l, ok := w.(List); ok {
		if len(l) != len(res.Items) {
			return Decision{}, newError(KindInvalidWitness, "OVM-WITNESS-002", "witness list length does not match quantified items")
		}
		ws = l
	}
	return f.eval(ctx, w, res, ws, e.decide)
}

func (f ForAllSuchThat) checkDecision(ctx context.Context, e *Executor) (Decision, error) {
	if err := f.validate(); err != nil {
		return Decision{}, err
	}
	res, err := e.GetAllQuantified(ctx, f.Quantifier)
	if err != nil {
		return Decision{}, err
	}
	return f.eval(ctx, nil, res, make([]Witness, len(res.Items)), e.checkEval)
}

// eval is false at the first false instance. Otherwise it holds only when
// every instance holds and the quantifier reported its set complete.
func (f ForAllSuchThat) eval(ctx context.Context, w Witness, res QuantifierResult, ws []Witness, eval evalFunc) (Decision, error) {
	proof := []ImplicationProofElement{{Property: f, Witness: w}}
	undecided := false
	for i, item := range res.Items {
		bound, err := f.Predicate.bind(f.Placeholder, item)
		if err != nil {
			return Decision{}, err
		}
		d, err := eval(ctx, bound, ws[i])
		if IsUndecided(err) {
			undecided = true
			continue
		}
		if err != nil {
			return Decision{}, err
		}
		proof = append(proof, d.Proof...)
		if !d.Outcome {
			return Decision{Outcome: false, Proof: proof}, nil
		}
	}
	if undecided || !res.AllItemsCovered {
		return Decision{}, newError(KindUndecided, "OVM-UNDECIDED-003", "not every quantified item is known to hold")
	}
	return Decision{Outcome: true, Proof: proof}, nil
}

// refute decides the claim false from a single counter-example. The item must
// belong to the quantified set and its instance must decide false.
func (f ForAllSuchThat) refute(ctx context.Context, e *Executor, ce CounterExample) (Decision, error) {
	in, err := f.Quantifier.contains(ctx, e, ce.Item)
	if err != nil {
		return Decision{}, err
	}
	if !in {
		return Decision{}, newError(KindInvalidWitness, "OVM-WITNESS-004", "counter-example is not in the quantified set")
	}
	bound, err := f.Predicate.bind(f.Placeholder, ce.Item)
	if err != nil {
		return Decision{}, err
	}
	d, err := e.decide(ctx, bound, ce.Witness)
	if IsUndecided(err) {
		return Decision{}, wrapError(KindInvalidWitness, "OVM-WITNESS-006", "counter-example instance is undecided", err)
	}
	if err != nil {
		return Decision{}, err
	}
	if d.Outcome {
		return Decision{}, newError(KindInvalidWitness, "OVM-WITNESS-005", "counter-example instance holds")
	}
	proof := append([]ImplicationProofElement{{Property: f, Witness: ce}}, d.Proof...)
	return Decision{Outcome: false, Proof: proof}, nil
}
