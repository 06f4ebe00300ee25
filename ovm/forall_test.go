package ovm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/ovm/messages"
	"xdao.co/ovm/ovm"
)

var ph = []byte("$item")

// signedIntegers is "every integer in [0,3) is signed by s".
func signedIntegers(s signer) ovm.ForAllSuchThat {
	return ovm.ForAllSuchThat{
		Quantifier:  ovm.IntegerRange{Start: 0, End: 3},
		Placeholder: ph,
		Predicate:   ovm.SignedBy{Message: ph, PublicKey: s.addr},
	}
}

func TestForAllWithWitnessList(t *testing.T) {
	ctx := context.Background()
	e, _ := newExecutor(t)
	alice := newSigner(1)
	p := signedIntegers(alice)

	all := ovm.List{}
	for i := uint64(0); i < 3; i++ {
		all = append(all, alice.sign(ovm.Uint64Bytes(i)))
	}

	_, err := e.Decide(ctx, p, all[:2])
	requireKind(t, err, ovm.KindInvalidWitness, "OVM-WITNESS-002")

	_, err = e.Decide(ctx, p, ovm.List{all[0], nil, all[2]})
	requireKind(t, err, ovm.KindUndecided, "OVM-UNDECIDED-003")

	d, err := e.Decide(ctx, p, all)
	require.NoError(t, err)
	require.True(t, d.Outcome)
	require.Len(t, d.Proof, 4)

	// Every instance is now cached.
	c, err := e.CheckDecision(ctx, p)
	require.NoError(t, err)
	require.True(t, c.Outcome)

	auditor, _ := newExecutor(t)
	ok, err := auditor.Replay(ctx, d.Proof)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestForAllCounterExample(t *testing.T) {
	ctx := context.Background()
	e, _ := newExecutor(t)
	alice := newSigner(1)
	notSigned := ovm.ForAllSuchThat{
		Quantifier:  ovm.IntegerRange{Start: 0, End: 3},
		Placeholder: ph,
		Predicate:   ovm.Not{Property: ovm.SignedBy{Message: ph, PublicKey: alice.addr}},
	}

	ce := ovm.CounterExample{Item: ovm.IntegerItem(1), Witness: alice.sign(ovm.Uint64Bytes(1))}
	d, err := e.Decide(ctx, notSigned, ce)
	require.NoError(t, err)
	require.False(t, d.Outcome)
	require.Equal(t, ovm.Witness(ce), d.Proof[0].Witness)

	auditor, _ := newExecutor(t)
	ok, err := auditor.Replay(ctx, d.Proof)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = e.Decide(ctx, notSigned, ovm.CounterExample{Item: ovm.IntegerItem(7), Witness: alice.sign(ovm.Uint64Bytes(7))})
	requireKind(t, err, ovm.KindInvalidWitness, "OVM-WITNESS-004")

	_, err = e.Decide(ctx, notSigned, ovm.CounterExample{Item: nil})
	requireKind(t, err, ovm.KindInvalidWitness, "OVM-WITNESS-004")

	fresh, _ := newExecutor(t)
	_, err = fresh.Decide(ctx, notSigned, ovm.CounterExample{Item: ovm.IntegerItem(2)})
	requireKind(t, err, ovm.KindInvalidWitness, "OVM-WITNESS-006")

	_, err = e.Decide(ctx, signedIntegers(alice), ovm.CounterExample{Item: ovm.IntegerItem(1), Witness: alice.sign(ovm.Uint64Bytes(1))})
	requireKind(t, err, ovm.KindInvalidWitness, "OVM-WITNESS-005")

	_, err = e.Decide(ctx, notSigned, ovm.Bytes("x"))
	requireKind(t, err, ovm.KindInvalidWitness, "OVM-WITNESS-010")
}

func TestForAllNeverHoldsOnIncompleteCoverage(t *testing.T) {
	ctx := context.Background()
	e, db := newExecutor(t)
	alice := newSigner(1)
	msgs := messages.NewStore(db)
	for n := uint64(0); n < 3; n++ {
		require.NoError(t, msgs.Put(alice.message(n, "state")))
	}

	lowNonces := func(end, bound uint64) ovm.ForAllSuchThat {
		return ovm.ForAllSuchThat{
			Quantifier:  ovm.SignedByRange{Signer: alice.addr, Start: 0, End: end},
			Placeholder: ph,
			Predicate:   ovm.HasLowerNonce{Message: ph, Nonce: bound},
		}
	}

	res, err := e.GetAllQuantified(ctx, lowNonces(0, 100).Quantifier)
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	require.False(t, res.AllItemsCovered)

	// Every known message satisfies the predicate, but the set is open.
	_, err = e.Decide(ctx, lowNonces(0, 100), nil)
	requireKind(t, err, ovm.KindUndecided, "OVM-UNDECIDED-003")

	_, err = e.Decide(ctx, lowNonces(3, 100), nil)
	requireKind(t, err, ovm.KindUndecided, "OVM-UNDECIDED-003")

	require.NoError(t, msgs.AttestCoverage(alice.addr, 3))
	d, err := e.Decide(ctx, lowNonces(3, 100), nil)
	require.NoError(t, err)
	require.True(t, d.Outcome)

	// A false instance decides the claim regardless of coverage.
	d, err = e.Decide(ctx, lowNonces(0, 2), nil)
	require.NoError(t, err)
	require.False(t, d.Outcome)
}

func TestSignedByRangeCounterExampleMustBeStored(t *testing.T) {
	ctx := context.Background()
	e, db := newExecutor(t)
	alice := newSigner(1)
	require.NoError(t, messages.NewStore(db).Put(alice.message(0, "stored")))

	p := ovm.ForAllSuchThat{
		Quantifier:  ovm.SignedByRange{Signer: alice.addr, End: 10},
		Placeholder: ph,
		Predicate:   ovm.HasLowerNonce{Message: ph, Nonce: 0},
	}

	forged := ovm.MessageItem{Signed: alice.message(0, "forged")}
	_, err := e.Decide(ctx, p, ovm.CounterExample{Item: forged})
	requireKind(t, err, ovm.KindInvalidWitness, "OVM-WITNESS-004")

	stored := ovm.MessageItem{Signed: alice.message(0, "stored")}
	d, err := e.Decide(ctx, p, ovm.CounterExample{Item: stored})
	require.NoError(t, err)
	require.False(t, d.Outcome)
}

func TestForAllRejectsBadParameters(t *testing.T) {
	ctx := context.Background()
	e, _ := newExecutor(t)

	_, err := e.Decide(ctx, ovm.ForAllSuchThat{Quantifier: ovm.IntegerRange{End: 1}, Predicate: holds}, nil)
	requireKind(t, err, ovm.KindInvalidInput, "OVM-INPUT-002")

	_, err = e.Decide(ctx, ovm.ForAllSuchThat{Quantifier: ovm.IntegerRange{Start: 3, End: 1}, Placeholder: ph, Predicate: holds}, nil)
	requireKind(t, err, ovm.KindInvalidInput, "OVM-INPUT-007")

	_, err = e.Decide(ctx, ovm.ForAllSuchThat{Placeholder: ph, Predicate: holds}, nil)
	requireKind(t, err, ovm.KindInvalidInput, "OVM-INPUT-001")
}

func TestNestedForAllShadowsPlaceholder(t *testing.T) {
	inner := ovm.ForAllSuchThat{
		Quantifier:  ovm.IntegerRange{End: 2},
		Placeholder: ph,
		Predicate:   ovm.PreimageExists{Hash: ph},
	}
	outer := ovm.And{Properties: []ovm.Property{inner, ovm.PreimageExists{Hash: ph}}}

	bound, err := ovm.Bind(outer, ph, ovm.IntegerItem(5))
	require.NoError(t, err)
	got := bound.(ovm.And)
	require.Equal(t, inner, got.Properties[0])
	require.Equal(t, ovm.PreimageExists{Hash: ovm.Uint64Bytes(5)}, got.Properties[1])
}

func TestQuantifiersAreBounded(t *testing.T) {
	ctx := context.Background()
	e, _ := newExecutor(t)

	_, err := e.GetAllQuantified(ctx, ovm.IntegerRange{End: 1 << 62})
	requireKind(t, err, ovm.KindInvalidInput, "OVM-INPUT-009")

	huge := ovm.ForAllSuchThat{Quantifier: ovm.IntegerRange{Start: 1, End: 1e9}, Placeholder: ph, Predicate: holds}
	_, err = e.Decide(ctx, huge, nil)
	requireKind(t, err, ovm.KindInvalidInput, "OVM-INPUT-009")

	small, db := newExecutor(t, ovm.WithMaxQuantifiedItems(2))
	res, err := small.GetAllQuantified(ctx, ovm.IntegerRange{Start: 5, End: 7})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	_, err = small.GetAllQuantified(ctx, ovm.IntegerRange{Start: 5, End: 8})
	requireKind(t, err, ovm.KindInvalidInput, "OVM-INPUT-009")

	alice := newSigner(1)
	msgs := messages.NewStore(db)
	for n := uint64(0); n < 3; n++ {
		require.NoError(t, msgs.Put(alice.message(n, "state")))
	}
	_, err = small.GetAllQuantified(ctx, ovm.SignedByRange{Signer: alice.addr})
	requireKind(t, err, ovm.KindInvalidInput, "OVM-INPUT-009")
}
