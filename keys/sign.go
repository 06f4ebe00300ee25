package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"
)

func digestFor(alg string, message []byte) ([]byte, error) {
	switch alg {
	case AlgEd25519:
		s := sha256.Sum256(message)
		return s[:], nil
	case AlgDilithium3:
		s := sha3.Sum256(message)
		return s[:], nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlg, alg)
	}
}

// SignEd25519 returns a signature over sha256(message).
func SignEd25519(message []byte, privateKey ed25519.PrivateKey) []byte {
	digest, _ := digestFor(AlgEd25519, message)
	return ed25519.Sign(privateKey, digest)
}

// SignDilithium3 returns a dilithium3 signature over sha3-256(message).
func SignDilithium3(message []byte, privateKey *mode3.PrivateKey) ([]byte, error) {
	if privateKey == nil {
		return nil, fmt.Errorf("missing private key")
	}
	digest, _ := digestFor(AlgDilithium3, message)
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(privateKey, digest, sig)
	return sig, nil
}

// GenerateDilithium3Keypair returns a new Dilithium3 keypair.
func GenerateDilithium3Keypair(rand io.Reader) (*mode3.PublicKey, *mode3.PrivateKey, error) {
	return mode3.GenerateKey(rand)
}
