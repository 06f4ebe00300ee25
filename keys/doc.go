// Package keys formats signer addresses and signs and verifies messages.
//
// An address is "<alg>:" + base64(public key) where alg is ed25519 or
// dilithium3. Ed25519 signs sha256(message); dilithium3 signs sha3-256(message).
//
// Stable:
//   - address formatting, role-seed derivation, Sign*/Verify.
//
// Experimental:
//   - KeyStore, the filesystem-backed seed store used by the ovm CLI.
package keys
