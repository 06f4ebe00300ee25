package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
)

// AddressFromSeed returns the ed25519 address for a 32 byte seed.
func AddressFromSeed(seed []byte) string {
	priv := ed25519.NewKeyFromSeed(seed)
	addr, _ := AddressFromPublicKey(priv.Public().(ed25519.PublicKey))
	return addr
}

// DeriveRoleSeed deterministically derives a role-specific Ed25519 seed from a root seed.
//
// A participant keeps one root seed and signs channel messages with per-role
// keys (for example "sender" or "operator").
func DeriveRoleSeed(rootSeed []byte, role string) ([]byte, error) {
	if len(rootSeed) != ed25519.SeedSize {
		return nil, fmt.Errorf("root seed must be %d bytes", ed25519.SeedSize)
	}
	if err := CheckRole(role); err != nil {
		return nil, err
	}

	h := sha256.New()
	_, _ = h.Write(rootSeed)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("xdao-ovm-keys-v1"))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("role:" + role))
	return h.Sum(nil)[:ed25519.SeedSize], nil
}
