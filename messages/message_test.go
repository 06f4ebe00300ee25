package messages

import (
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/ovm/keys"
	"xdao.co/ovm/storage"
	"xdao.co/ovm/storage/badgerkv"
)

func signer(t *testing.T, b byte) (ed25519.PrivateKey, string) {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = b
	}
	return ed25519.NewKeyFromSeed(seed), keys.AddressFromSeed(seed)
}

func newStore(t *testing.T) *Store {
	t.Helper()
	kv, err := badgerkv.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return NewStore(kv)
}

func TestEncodeDecodeMessage(t *testing.T) {
	m := Message{Channel: "ch-1", Sender: "ed25519:abc", Nonce: 7, Body: []byte("state")}
	got, err := Decode(m.Encode())
	require.NoError(t, err)
	require.Equal(t, m, got)

	_, err = Decode([]byte{0xff})
	require.ErrorIs(t, err, ErrMalformed)
	_, err = Decode(nil)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestSignedMessageVerify(t *testing.T) {
	priv, addr := signer(t, 1)
	sm := Sign(Message{Sender: addr, Nonce: 1, Body: []byte("x")}, priv)
	require.NoError(t, sm.Verify())

	decoded, err := DecodeSigned(sm.Encode())
	require.NoError(t, err)
	require.NoError(t, decoded.Verify())

	decoded.Message.Nonce = 2
	require.True(t, errors.Is(decoded.Verify(), keys.ErrInvalidSignature))
}

func TestStoreRejectsForgedMessages(t *testing.T) {
	s := newStore(t)
	priv, _ := signer(t, 1)
	_, other := signer(t, 2)

	forged := Sign(Message{Sender: other, Nonce: 0}, priv)
	require.Error(t, s.Put(forged))
	_, err := s.Get(other, 0)
	require.True(t, storage.IsNotFound(err))
}

func TestSignedByRangeAndOrder(t *testing.T) {
	s := newStore(t)
	priv, addr := signer(t, 1)
	privB, addrB := signer(t, 2)

	for _, n := range []uint64{5, 1, 3, 256, 0} {
		require.NoError(t, s.Put(Sign(Message{Sender: addr, Nonce: n}, priv)))
	}
	require.NoError(t, s.Put(Sign(Message{Sender: addrB, Nonce: 2}, privB)))

	nonces := func(ms []SignedMessage) []uint64 {
		var out []uint64
		for _, m := range ms {
			out = append(out, m.Message.Nonce)
		}
		return out
	}

	all, err := s.SignedBy(addr, 0, 0)
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 1, 3, 5, 256}, nonces(all))

	some, err := s.SignedBy(addr, 1, 5)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 3}, nonces(some))

	other, err := s.SignedBy(addrB, 0, 0)
	require.NoError(t, err)
	require.Equal(t, []uint64{2}, nonces(other))

	got, err := s.Get(addr, 3)
	require.NoError(t, err)
	require.Equal(t, uint64(3), got.Message.Nonce)
}

func TestCoverageOnlyGrows(t *testing.T) {
	s := newStore(t)
	_, addr := signer(t, 1)

	c, err := s.Coverage(addr)
	require.NoError(t, err)
	require.Zero(t, c)

	require.NoError(t, s.AttestCoverage(addr, 10))
	require.NoError(t, s.AttestCoverage(addr, 4))
	c, err = s.Coverage(addr)
	require.NoError(t, err)
	require.Equal(t, uint64(10), c)
}
