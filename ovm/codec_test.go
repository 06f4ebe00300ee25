package ovm_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"xdao.co/ovm/internal/wire"
	"xdao.co/ovm/intervaltree"
	"xdao.co/ovm/ovm"
)

func sampleProperty() ovm.Property {
	return ovm.Or{Properties: []ovm.Property{
		ovm.And{Properties: []ovm.Property{
			ovm.SignedBy{Message: []byte("m"), PublicKey: "ed25519:abc"},
			ovm.PreimageExists{Hash: []byte{0x12, 0x20, 1, 2}},
		}},
		ovm.Not{Property: ovm.HasLowerNonce{Message: []byte("msg"), Nonce: 3}},
		ovm.ForAllSuchThat{
			Quantifier:  ovm.SignedByRange{Signer: "ed25519:abc", Start: 1, End: 9},
			Placeholder: []byte("$m"),
			Predicate:   ovm.IncludedInIntervalTreeAtBlock{Block: 4, BlockVar: []byte("$b"), Start: 1, End: 2, Data: []byte("$m")},
		},
		ovm.ForAllSuchThat{
			Quantifier:  ovm.IntegerRange{Start: 2, End: 5},
			Placeholder: []byte("$n"),
			Predicate:   ovm.And{},
		},
	}}
}

func TestPropertyEncodingRoundTrip(t *testing.T) {
	p := sampleProperty()
	got, err := ovm.DecodeProperty(ovm.EncodeProperty(p))
	require.NoError(t, err)
	if diff := cmp.Diff(p, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, ovm.PropertyID(p), ovm.PropertyID(got))
	require.Equal(t, ovm.EncodeProperty(p), ovm.EncodeProperty(sampleProperty()))
}

func TestPropertyIDSeparatesVariants(t *testing.T) {
	a := ovm.And{Properties: []ovm.Property{holds}}
	o := ovm.Or{Properties: []ovm.Property{holds}}
	require.NotEqual(t, ovm.PropertyID(a), ovm.PropertyID(o))
	require.NotEqual(t, ovm.PropertyID(holds), ovm.PropertyID(fails))
}

func TestDecodeRejectsUnknownTags(t *testing.T) {
	unknown := wire.AppendUint(nil, 1, 99)

	_, err := ovm.DecodeProperty(unknown)
	requireKind(t, err, ovm.KindNotImplemented, "OVM-NOTIMPL-001")
	_, err = ovm.DecodeQuantifier(unknown)
	requireKind(t, err, ovm.KindNotImplemented, "OVM-NOTIMPL-002")
	_, err = ovm.DecodeWitness(unknown)
	requireKind(t, err, ovm.KindNotImplemented, "OVM-NOTIMPL-003")
	_, err = ovm.DecodeItem(unknown)
	requireKind(t, err, ovm.KindNotImplemented, "OVM-NOTIMPL-004")

	_, err = ovm.DecodeProperty([]byte{0xff})
	requireKind(t, err, ovm.KindCodec, "OVM-CODEC-001")
	_, err = ovm.DecodeProperty(nil)
	requireKind(t, err, ovm.KindCodec, "OVM-CODEC-002")
}

func TestDecodeBoundsNesting(t *testing.T) {
	var p ovm.Property = holds
	for i := 0; i < 100; i++ {
		p = ovm.Not{Property: p}
	}
	_, err := ovm.DecodeProperty(ovm.EncodeProperty(p))
	requireKind(t, err, ovm.KindCodec, "OVM-CODEC-003")
}

func TestWitnessEncodingRoundTrip(t *testing.T) {
	tree, err := intervaltree.Build([]intervaltree.Leaf{{Start: 0, End: 1}, {Start: 1, End: 2}})
	require.NoError(t, err)
	proof, err := tree.Proof(1)
	require.NoError(t, err)

	w := ovm.List{
		ovm.Bytes("pre"),
		nil,
		ovm.CounterExample{Item: ovm.IntegerItem(4), Witness: ovm.Signature("sig")},
		ovm.CounterExample{Item: ovm.MessageItem{Signed: newSigner(1).message(3, "body")}},
		ovm.InclusionWitness{Proof: proof},
	}
	got, err := ovm.DecodeWitness(ovm.EncodeWitness(w))
	require.NoError(t, err)
	if diff := cmp.Diff(ovm.Witness(w), got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	none, err := ovm.DecodeWitness(ovm.EncodeWitness(nil))
	require.NoError(t, err)
	require.Nil(t, none)
}

func TestDecisionValueEncoding(t *testing.T) {
	v, err := ovm.DecodeDecisionValue(ovm.EncodeDecisionValue(ovm.DecisionValue{Decision: true}))
	require.NoError(t, err)
	require.True(t, v.Decision)
	require.Nil(t, v.Witness)

	_, err = ovm.DecodeDecisionValue(wire.AppendBytes(nil, 2, nil))
	requireKind(t, err, ovm.KindCodec, "OVM-CODEC-007")
}
