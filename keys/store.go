package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// KeyStore keeps Ed25519 seeds on the local filesystem:
//
//	<Directory>/<name>/root.key
//	<Directory>/<name>/roles/<role>.key
//
// Each file holds one hex-encoded seed. Role seeds are derived from the root
// seed with DeriveRoleSeed, so a lost role file can always be re-derived.
type KeyStore struct {
	Directory string
}

type KeyEntry struct {
	Name    string
	Address string
	Roles   []string
}

// DefaultDirectory is ~/.ovm/keys.
func DefaultDirectory() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ovm", "keys"), nil
}

// OpenKeyStore returns a store rooted at directory, or DefaultDirectory when empty.
func OpenKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		if directory, err = DefaultDirectory(); err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

func checkIdent(kind, s string) error {
	if s == "" {
		return fmt.Errorf("%s cannot be empty", kind)
	}
	for _, c := range s {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in %s", c, kind)
	}
	return nil
}

func CheckKeyName(name string) error { return checkIdent("key name", name) }

func CheckRole(role string) error { return checkIdent("role", role) }

// ParseSeedHex decodes a 32 byte hex seed, with or without a 0x prefix.
func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimPrefix(strings.TrimSpace(seedHex), "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(data))
	}
	return data, nil
}

func (ks *KeyStore) seedPath(name, role string) (string, error) {
	if err := CheckKeyName(name); err != nil {
		return "", err
	}
	if role == "" {
		return filepath.Join(ks.Directory, name, "root.key"), nil
	}
	if err := CheckRole(role); err != nil {
		return "", err
	}
	return filepath.Join(ks.Directory, name, "roles", role+".key"), nil
}

func writeSeed(path string, seed []byte, overwrite bool) error {
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("expected seed length of %d bytes", ed25519.SeedSize)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func readSeed(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(string(data))
}

// Init stores seed as the root key of name and returns its address.
func (ks *KeyStore) Init(name string, seed []byte, overwrite bool) (string, error) {
	path, err := ks.seedPath(name, "")
	if err != nil {
		return "", err
	}
	if err := writeSeed(path, seed, overwrite); err != nil {
		return "", err
	}
	return AddressFromSeed(seed), nil
}

// Derive writes the role seed of name and returns its address.
func (ks *KeyStore) Derive(name, role string, overwrite bool) (string, error) {
	if err := CheckRole(role); err != nil {
		return "", err
	}
	root, err := ks.Seed(name, "")
	if err != nil {
		return "", err
	}
	seed, err := DeriveRoleSeed(root, role)
	if err != nil {
		return "", err
	}
	path, err := ks.seedPath(name, role)
	if err != nil {
		return "", err
	}
	if err := writeSeed(path, seed, overwrite); err != nil {
		return "", err
	}
	return AddressFromSeed(seed), nil
}

// Seed loads the root seed (role == "") or a role seed.
func (ks *KeyStore) Seed(name, role string) ([]byte, error) {
	path, err := ks.seedPath(name, role)
	if err != nil {
		return nil, err
	}
	return readSeed(path)
}

// Signer returns the private key for name/role.
func (ks *KeyStore) Signer(name, role string) (ed25519.PrivateKey, error) {
	seed, err := ks.Seed(name, role)
	if err != nil {
		return nil, err
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// Address returns the address of name/role without exposing the seed.
func (ks *KeyStore) Address(name, role string) (string, error) {
	seed, err := ks.Seed(name, role)
	if err != nil {
		return "", err
	}
	return AddressFromSeed(seed), nil
}

// List returns all stored keys sorted by name, each with its sorted roles.
func (ks *KeyStore) List() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []KeyEntry
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		addr, err := ks.Address(e.Name(), "")
		if err != nil {
			continue
		}
		entry := KeyEntry{Name: e.Name(), Address: addr}
		roleFiles, _ := os.ReadDir(filepath.Join(ks.Directory, e.Name(), "roles"))
		for _, r := range roleFiles {
			if !r.IsDir() && strings.HasSuffix(r.Name(), ".key") {
				entry.Roles = append(entry.Roles, strings.TrimSuffix(r.Name(), ".key"))
			}
		}
		sort.Strings(entry.Roles)
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
