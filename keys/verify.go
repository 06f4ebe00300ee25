package keys

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

var (
	ErrInvalidAddress   = errors.New("keys: invalid address")
	ErrUnsupportedAlg   = errors.New("keys: unsupported algorithm")
	ErrInvalidSignature = errors.New("keys: signature invalid")
)

// ParseAddress splits an address into its algorithm and raw public key bytes
// and checks the key length for the algorithm.
func ParseAddress(address string) (alg string, pub []byte, err error) {
	alg, enc, ok := strings.Cut(address, ":")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing algorithm prefix", ErrInvalidAddress)
	}
	pub, err = decodeBase64(enc)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	switch alg {
	case AlgEd25519:
		if len(pub) != ed25519.PublicKeySize {
			return "", nil, fmt.Errorf("%w: ed25519 key is %d bytes", ErrInvalidAddress, len(pub))
		}
	case AlgDilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
		}
	default:
		return "", nil, fmt.Errorf("%w: %q", ErrUnsupportedAlg, alg)
	}
	return alg, pub, nil
}

// Verify checks that sig is a signature over message by the key at address.
// It returns nil on success, ErrInvalidSignature when the signature does not
// match, and ErrInvalidAddress/ErrUnsupportedAlg for unusable addresses.
func Verify(address string, message, sig []byte) error {
	alg, pub, err := ParseAddress(address)
	if err != nil {
		return err
	}
	digest, err := digestFor(alg, message)
	if err != nil {
		return err
	}
	switch alg {
	case AlgEd25519:
		if len(sig) != ed25519.SignatureSize || !ed25519.Verify(ed25519.PublicKey(pub), digest, sig) {
			return ErrInvalidSignature
		}
	case AlgDilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
		}
		if len(sig) != mode3.SignatureSize || !mode3.Verify(&pk, digest, sig) {
			return ErrInvalidSignature
		}
	}
	return nil
}

func decodeBase64(s string) ([]byte, error) {
	// Prefer standard padded encoding, but accept raw encoding too.
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
