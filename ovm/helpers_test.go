package ovm_test

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"xdao.co/ovm/keys"
	"xdao.co/ovm/messages"
	"xdao.co/ovm/ovm"
	"xdao.co/ovm/storage"
	"xdao.co/ovm/storage/badgerkv"
)

func newStore(t *testing.T) storage.KeyValueStore {
	t.Helper()
	s, err := badgerkv.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newExecutor(t *testing.T, opts ...ovm.Option) (*ovm.Executor, storage.KeyValueStore) {
	t.Helper()
	db := newStore(t)
	opts = append([]ovm.Option{ovm.WithLogger(zaptest.NewLogger(t))}, opts...)
	return ovm.NewExecutor(db, opts...), db
}

type signer struct {
	addr string
	priv ed25519.PrivateKey
}

func newSigner(b byte) signer {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = b
	}
	return signer{addr: keys.AddressFromSeed(seed), priv: ed25519.NewKeyFromSeed(seed)}
}

func (s signer) sign(msg []byte) ovm.Signature {
	return ovm.Signature(keys.SignEd25519(msg, s.priv))
}

func (s signer) message(nonce uint64, body string) messages.SignedMessage {
	return messages.Sign(messages.Message{Channel: "ch-1", Sender: s.addr, Nonce: nonce, Body: []byte(body)}, s.priv)
}

// encodedMessage is a channel message with the given nonce, as HasLowerNonce
// expects it.
func encodedMessage(nonce uint64) []byte {
	return messages.Message{Channel: "ch-1", Sender: "ed25519:x", Nonce: nonce}.Encode()
}

var (
	holds      = ovm.HasLowerNonce{Message: encodedMessage(1), Nonce: 5}
	fails      = ovm.HasLowerNonce{Message: encodedMessage(9), Nonce: 5}
	wouldError = ovm.HasLowerNonce{Message: []byte{0xff}, Nonce: 5}
)

// undecided has no witness and no cached decision in a fresh executor.
func undecided(tag string) ovm.Property {
	return ovm.SignedBy{Message: []byte("never signed " + tag), PublicKey: newSigner(9).addr}
}

func requireKind(t *testing.T, err error, kind ovm.Kind, ruleID string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, ovm.KindOf(err), "err=%v", err)
	if ruleID != "" {
		require.Equal(t, ruleID, ovm.RuleID(err), "err=%v", err)
	}
}
