package model

import (
	"context"

	"xdao.co/ovm/ovm"
)

// Decide converts req, evaluates it with e and projects the outcome.
// Undecided is a state of the response, not an error.
func Decide(ctx context.Context, e *ovm.Executor, req DecideRequest) (*DecideResponse, error) {
	p, err := ToProperty(req.Property)
	if err != nil {
		return nil, err
	}
	w, err := ToWitness(req.Witness)
	if err != nil {
		return nil, err
	}
	d, err := e.Decide(ctx, p, w)
	return respond(p, d, err)
}

// Check reports the cached decision of p.
func Check(ctx context.Context, e *ovm.Executor, p Property) (*DecideResponse, error) {
	op, err := ToProperty(p)
	if err != nil {
		return nil, err
	}
	d, err := e.CheckDecision(ctx, op)
	return respond(op, d, err)
}

func respond(p ovm.Property, d ovm.Decision, err error) (*DecideResponse, error) {
	resp := &DecideResponse{PropertyID: ovm.PropertyID(p).String(), Proof: []ProofElement{}}
	if ovm.IsUndecided(err) {
		resp.State = StateUndecided
		resp.Reason = ovm.RuleID(err)
		return resp, nil
	}
	if err != nil {
		return nil, mapErr(err)
	}
	resp.State = StateFalse
	if d.Outcome {
		resp.State = StateTrue
	}
	for _, el := range d.Proof {
		resp.Proof = append(resp.Proof, ProofElement{
			PropertyID: ovm.PropertyID(el.Property).String(),
			Property:   FromProperty(el.Property),
			Witness:    FromWitness(el.Witness),
		})
	}
	return resp, nil
}

// ToProof converts a response proof back into engine form for Executor.Replay.
func ToProof(elems []ProofElement) ([]ovm.ImplicationProofElement, error) {
	out := make([]ovm.ImplicationProofElement, 0, len(elems))
	for _, el := range elems {
		p, err := ToProperty(el.Property)
		if err != nil {
			return nil, err
		}
		w, err := ToWitness(el.Witness)
		if err != nil {
			return nil, err
		}
		out = append(out, ovm.ImplicationProofElement{Property: p, Witness: w})
	}
	return out, nil
}
