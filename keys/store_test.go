package keys

import (
	"crypto/ed25519"
	"testing"
)

func TestKeyStoreInitDeriveList(t *testing.T) {
	ks, err := OpenKeyStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenKeyStore: %v", err)
	}
	root := testSeed(1)

	addr, err := ks.Init("alice", root, false)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if addr != AddressFromSeed(root) {
		t.Fatalf("Init address mismatch")
	}
	if _, err := ks.Init("alice", root, false); err == nil {
		t.Fatalf("Init without overwrite replaced an existing key")
	}

	roleAddr, err := ks.Derive("alice", "sender", false)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	want, _ := DeriveRoleSeed(root, "sender")
	if roleAddr != AddressFromSeed(want) {
		t.Fatalf("Derive address mismatch")
	}

	priv, err := ks.Signer("alice", "sender")
	if err != nil {
		t.Fatalf("Signer: %v", err)
	}
	msg := []byte("m")
	if err := Verify(roleAddr, msg, SignEd25519(msg, priv)); err != nil {
		t.Fatalf("Verify with stored signer: %v", err)
	}
	if len(priv) != ed25519.PrivateKeySize {
		t.Fatalf("unexpected private key size")
	}

	list, err := ks.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Name != "alice" || list[0].Address != addr {
		t.Fatalf("List = %+v", list)
	}
	if len(list[0].Roles) != 1 || list[0].Roles[0] != "sender" {
		t.Fatalf("roles = %v", list[0].Roles)
	}
}

func TestKeyStoreRejectsBadNames(t *testing.T) {
	ks := &KeyStore{Directory: t.TempDir()}
	if _, err := ks.Init("../escape", testSeed(0), false); err == nil {
		t.Fatalf("Init accepted a path-like name")
	}
	if _, err := ks.Seed("bob", "a/b"); err == nil {
		t.Fatalf("Seed accepted a path-like role")
	}
	if _, err := ParseSeedHex("0x1234"); err == nil {
		t.Fatalf("ParseSeedHex accepted a short seed")
	}
}

func TestListMissingDirectory(t *testing.T) {
	ks := &KeyStore{Directory: t.TempDir() + "/nope"}
	list, err := ks.List()
	if err != nil || list != nil {
		t.Fatalf("List = %v, %v", list, err)
	}
}
