package ovm

import (
	"bytes"
	"context"
	"errors"

	"github.com/multiformats/go-multihash"
	_ "github.com/multiformats/go-multihash/register/sha3"

	"xdao.co/ovm/intervaltree"
	"xdao.co/ovm/keys"
	"xdao.co/ovm/messages"
	"xdao.co/ovm/storage"
)

var (
	_ leafProperty = PreimageExists{}
	_ leafProperty = SignedBy{}
	_ leafProperty = HasLowerNonce{}
	_ leafProperty = IncludedInIntervalTreeAtBlock{}
)

func (p PreimageExists) decide(ctx context.Context, e *Executor, w Witness) (Decision, error) {
	return e.decideLeaf(ctx, p, w)
}

func (p PreimageExists) checkDecision(ctx context.Context, e *Executor) (Decision, error) {
	return e.checkLeaf(ctx, p)
}

func (PreimageExists) needsWitness() bool { return true }

// Supported hash functions. Anything else cannot be checked.
var preimageCodes = map[uint64]bool{
	multihash.SHA2_256:   true,
	multihash.SHA3_256:   true,
	multihash.KECCAK_256: true,
}

func (p PreimageExists) verify(_ context.Context, _ *Executor, w Witness) (bool, error) {
	pre, ok := w.(Bytes)
	if !ok {
		return false, newError(KindInvalidWitness, "OVM-WITNESS-008", "preimage witness must be bytes")
	}
	dec, err := multihash.Decode(p.Hash)
	if err != nil {
		return false, wrapError(KindInvalidInput, "OVM-INPUT-005", "hash is not a multihash", err)
	}
	if !preimageCodes[dec.Code] {
		return false, newError(KindInvalidInput, "OVM-INPUT-005", "unsupported hash function "+dec.Name)
	}
	sum, err := multihash.Sum(pre, dec.Code, dec.Length)
	if err != nil {
		return false, wrapError(KindInvalidInput, "OVM-INPUT-005", "hash preimage", err)
	}
	if !bytes.Equal(sum, p.Hash) {
		return false, newError(KindInvalidPreimage, "OVM-PREIMAGE-001", "preimage does not match hash")
	}
	return true, nil
}

func (s SignedBy) decide(ctx context.Context, e *Executor, w Witness) (Decision, error) {
	return e.decideLeaf(ctx, s, w)
}

func (s SignedBy) checkDecision(ctx context.Context, e *Executor) (Decision, error) {
	return e.checkLeaf(ctx, s)
}

func (SignedBy) needsWitness() bool { return true }

func (s SignedBy) verify(_ context.Context, _ *Executor, w Witness) (bool, error) {
	var sig []byte
	switch w := w.(type) {
	case Signature:
		sig = w
	case Bytes:
		sig = w
	default:
		return false, newError(KindInvalidWitness, "OVM-WITNESS-007", "signed_by witness must be a signature")
	}
	err := keys.Verify(s.PublicKey, s.Message, sig)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, keys.ErrInvalidSignature):
		return false, wrapError(KindInvalidPreimage, "OVM-PREIMAGE-002", "signature does not match message and key", err)
	default:
		return false, wrapError(KindInvalidInput, "OVM-INPUT-004", "unusable public key", err)
	}
}

func (h HasLowerNonce) decide(ctx context.Context, e *Executor, w Witness) (Decision, error) {
	return e.decideLeaf(ctx, h, w)
}

func (h HasLowerNonce) checkDecision(ctx context.Context, e *Executor) (Decision, error) {
	return e.checkLeaf(ctx, h)
}

func (HasLowerNonce) needsWitness() bool { return false }

func (h HasLowerNonce) verify(_ context.Context, _ *Executor, w Witness) (bool, error) {
	if w != nil {
		return false, newError(KindInvalidWitness, "OVM-WITNESS-003", "has_lower_nonce takes no witness")
	}
	msg, err := messages.Decode(h.Message)
	if err != nil {
		return false, wrapError(KindCodec, "OVM-CODEC-008", "decode message", err)
	}
	return msg.Nonce < h.Nonce, nil
}

func (in IncludedInIntervalTreeAtBlock) decide(ctx context.Context, e *Executor, w Witness) (Decision, error) {
	return e.decideLeaf(ctx, in, w)
}

func (in IncludedInIntervalTreeAtBlock) checkDecision(ctx context.Context, e *Executor) (Decision, error) {
	return e.checkLeaf(ctx, in)
}

func (IncludedInIntervalTreeAtBlock) needsWitness() bool { return true }

func (in IncludedInIntervalTreeAtBlock) verify(_ context.Context, e *Executor, w Witness) (bool, error) {
	iw, ok := w.(InclusionWitness)
	if !ok {
		return false, newError(KindInvalidWitness, "OVM-WITNESS-009", "inclusion witness must be an interval tree proof")
	}
	if len(in.BlockVar) > 0 {
		return false, newError(KindInvalidInput, "OVM-INPUT-006", "block variable is unbound")
	}
	root, err := e.commitments.Root(in.Block)
	if storage.IsNotFound(err) {
		return false, newError(KindUndecided, "OVM-UNDECIDED-004", "no root committed for block")
	}
	if err != nil {
		return false, wrapError(KindStore, "OVM-STORE-006", "read block root", err)
	}
	leaf := intervaltree.Leaf{Start: in.Start, End: in.End, Data: in.Data}
	if err := intervaltree.Verify(root, leaf, iw.Proof); err != nil {
		return false, wrapError(KindInvalidPreimage, "OVM-PREIMAGE-003", "inclusion proof does not verify", err)
	}
	return true, nil
}
