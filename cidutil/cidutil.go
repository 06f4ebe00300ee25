// Package cidutil derives content identifiers for canonical encodings.
package cidutil

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Sum returns the CIDv1 (raw + sha2-256) of data.
func Sum(data []byte) cid.Cid {
	h, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		// multihash.Sum only errors for unknown codes; SHA2_256 is always registered.
		panic(err)
	}
	return cid.NewCidV1(cid.Raw, h)
}

// Parse decodes s and requires it to be a CIDv1 raw sha2-256 identifier,
// the only form Sum produces.
func Parse(s string) (cid.Cid, error) {
	id, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, err
	}
	return id, check(id)
}

// Cast is Parse for the binary form.
func Cast(b []byte) (cid.Cid, error) {
	id, err := cid.Cast(b)
	if err != nil {
		return cid.Undef, err
	}
	return id, check(id)
}

func check(id cid.Cid) error {
	p := id.Prefix()
	if p.Version != 1 || p.Codec != cid.Raw || p.MhType != multihash.SHA2_256 {
		return fmt.Errorf("cidutil: unsupported cid prefix v%d codec=%#x mh=%#x", p.Version, p.Codec, p.MhType)
	}
	return nil
}

// Matches reports whether id is the identifier of data.
func Matches(id cid.Cid, data []byte) bool {
	return id.Defined() && id.Equals(Sum(data))
}
