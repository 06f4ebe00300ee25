package ovm_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"xdao.co/ovm/ovm"
)

func TestSignedByEndToEnd(t *testing.T) {
	ctx := context.Background()
	e, _ := newExecutor(t)
	alice := newSigner(1)
	p := ovm.SignedBy{Message: []byte("transfer 10 to bob"), PublicKey: alice.addr}

	_, err := e.CheckDecision(ctx, p)
	requireKind(t, err, ovm.KindUndecided, "OVM-UNDECIDED-001")

	sig := alice.sign(p.Message)
	d, err := e.Decide(ctx, p, sig)
	require.NoError(t, err)
	require.True(t, d.Outcome)
	require.Len(t, d.Proof, 1)
	require.Equal(t, ovm.Witness(sig), d.Proof[0].Witness)

	checked, err := e.CheckDecision(ctx, p)
	require.NoError(t, err)
	if diff := cmp.Diff(d, checked); diff != "" {
		t.Fatalf("check disagrees with decide (-decide +check):\n%s", diff)
	}

	// An auditor with an empty cache re-derives the outcome from the proof.
	auditor, _ := newExecutor(t)
	ok, err := auditor.Replay(ctx, d.Proof)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDecisionStoredUnderTypeNamespace(t *testing.T) {
	ctx := context.Background()
	e, db := newExecutor(t)
	alice := newSigner(1)
	p := ovm.SignedBy{Message: []byte("m"), PublicKey: alice.addr}

	_, err := e.Decide(ctx, p, alice.sign(p.Message))
	require.NoError(t, err)

	key := append([]byte("decisions/signed_by/"), ovm.PropertyID(p).Bytes()...)
	raw, err := db.Get(key)
	require.NoError(t, err)
	v, err := ovm.DecodeDecisionValue(raw)
	require.NoError(t, err)
	require.True(t, v.Decision)

	kvs, err := db.Iterate([]byte("decisions/"), func(_, _ []byte) bool { return true })
	require.NoError(t, err)
	require.Len(t, kvs, 1)
}

func TestDecideIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e, _ := newExecutor(t)
	alice := newSigner(1)
	a := ovm.SignedBy{Message: []byte("a"), PublicKey: alice.addr}
	p := ovm.And{Properties: []ovm.Property{a, holds}}
	w := ovm.List{alice.sign(a.Message), nil}

	first, err := e.Decide(ctx, p, w)
	require.NoError(t, err)
	second, err := e.Decide(ctx, p, w)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("second decide differs:\n%s", diff)
	}

	// Without a witness the cached leaf carries the same decision.
	cached, err := e.Decide(ctx, p, nil)
	require.NoError(t, err)
	require.True(t, cached.Outcome)
}

func TestReplayRejectsTamperedProof(t *testing.T) {
	ctx := context.Background()
	e, _ := newExecutor(t)
	alice := newSigner(1)
	a := ovm.SignedBy{Message: []byte("a"), PublicKey: alice.addr}
	b := ovm.SignedBy{Message: []byte("b"), PublicKey: alice.addr}
	p := ovm.And{Properties: []ovm.Property{a, b}}

	d, err := e.Decide(ctx, p, ovm.List{alice.sign(a.Message), alice.sign(b.Message)})
	require.NoError(t, err)
	require.Len(t, d.Proof, 3)

	auditor, _ := newExecutor(t)
	ok, err := auditor.Replay(ctx, d.Proof)
	require.NoError(t, err)
	require.True(t, ok)

	tampered := append([]ovm.ImplicationProofElement(nil), d.Proof...)
	tampered[0].Witness = ovm.List{alice.sign(a.Message), alice.sign([]byte("other"))}
	_, err = auditor.Replay(ctx, tampered)
	requireKind(t, err, ovm.KindInvalidPreimage, "OVM-PREIMAGE-002")

	// Replay never fills the auditor's cache.
	_, err = auditor.CheckDecision(ctx, p)
	requireKind(t, err, ovm.KindUndecided, "")
}

func TestReplayWithCachedLeaves(t *testing.T) {
	ctx := context.Background()
	e, _ := newExecutor(t)
	alice := newSigner(1)
	a := ovm.SignedBy{Message: []byte("a"), PublicKey: alice.addr}
	_, err := e.Decide(ctx, a, alice.sign(a.Message))
	require.NoError(t, err)

	// The Or is decided from the cache; its proof still carries the signature.
	d, err := e.Decide(ctx, ovm.Or{Properties: []ovm.Property{fails, a}}, nil)
	require.NoError(t, err)
	require.True(t, d.Outcome)

	auditor, _ := newExecutor(t)
	ok, err := auditor.Replay(ctx, d.Proof)
	require.NoError(t, err)
	require.True(t, ok)

	// Without the leaf's witness the signed branch is undecided and the false
	// branch wins.
	ok, err = auditor.Replay(ctx, d.Proof[:1])
	require.NoError(t, err)
	require.False(t, ok)

	_, err = auditor.Replay(ctx, nil)
	requireKind(t, err, ovm.KindInvalidInput, "OVM-INPUT-008")
}

func TestNilPropertyAndCanceledContext(t *testing.T) {
	e, _ := newExecutor(t)
	_, err := e.Decide(context.Background(), nil, nil)
	requireKind(t, err, ovm.KindInvalidInput, "OVM-INPUT-001")

	_, err = e.Decide(context.Background(), ovm.And{Properties: []ovm.Property{holds, nil}}, nil)
	requireKind(t, err, ovm.KindInvalidInput, "OVM-INPUT-001")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Decide(ctx, holds, nil)
	require.ErrorIs(t, err, context.Canceled)
	_, err = e.GetAllQuantified(ctx, ovm.IntegerRange{End: 3})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDecisionsAreLoggedAtDebug(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	e := ovm.NewExecutor(newStore(t), ovm.WithLogger(zap.New(core)))

	_, err := e.Decide(context.Background(), ovm.Not{Property: fails}, nil)
	require.NoError(t, err)

	entries := logs.FilterMessage("decide").AllUntimed()
	require.Len(t, entries, 2)
	fields := entries[1].ContextMap()
	require.Equal(t, "not", fields["type"])
	require.Equal(t, "true", fields["outcome"])
	require.Equal(t, ovm.PropertyID(ovm.Not{Property: fails}).String(), fields["property"])
}

func TestDebugLoggingToleratesNilChildren(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	e := ovm.NewExecutor(newStore(t), ovm.WithLogger(zap.New(core)))

	for _, p := range []ovm.Property{
		ovm.And{Properties: []ovm.Property{nil}},
		ovm.Not{},
	} {
		_, err := e.Decide(context.Background(), p, nil)
		requireKind(t, err, ovm.KindInvalidInput, "OVM-INPUT-001")
	}
	entries := logs.FilterMessage("decide").AllUntimed()
	require.Len(t, entries, 2)
	for _, entry := range entries {
		require.NotContains(t, entry.ContextMap(), "property")
		require.Equal(t, "error", entry.ContextMap()["outcome"])
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestMetricsCountDecisionsAndLookups(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	e, _ := newExecutor(t, ovm.WithMetrics(ovm.NewMetrics(reg)))
	alice := newSigner(1)
	p := ovm.SignedBy{Message: []byte("m"), PublicKey: alice.addr}

	_, _ = e.CheckDecision(ctx, p)
	_, err := e.Decide(ctx, p, alice.sign(p.Message))
	require.NoError(t, err)
	_, err = e.CheckDecision(ctx, p)
	require.NoError(t, err)
	_, err = e.Decide(ctx, fails, nil)
	require.NoError(t, err)

	require.Equal(t, 2.0, counterValue(t, reg, "ovm_decisions_total", map[string]string{"type": "signed_by", "result": "true"}))
	require.Equal(t, 1.0, counterValue(t, reg, "ovm_decisions_total", map[string]string{"type": "signed_by", "result": "undecided"}))
	require.Equal(t, 1.0, counterValue(t, reg, "ovm_decisions_total", map[string]string{"type": "has_lower_nonce", "result": "false"}))
	require.Equal(t, 1.0, counterValue(t, reg, "ovm_cache_lookups_total", map[string]string{"result": "miss"}))
	require.Equal(t, 1.0, counterValue(t, reg, "ovm_cache_lookups_total", map[string]string{"result": "hit"}))
}
