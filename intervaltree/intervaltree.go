// Package intervaltree implements a Merkle interval tree.
//
// Each leaf commits to a half-open range [Start, End) and a payload. Interior
// nodes carry the End of their right child, so an inclusion proof also proves
// that no other leaf overlaps the proven range: every left sibling ends at or
// before the leaf's Start and every right sibling ends at or after it.
package intervaltree

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/sha3"
)

const HashSize = 32

var (
	ErrEmpty        = errors.New("intervaltree: no leaves")
	ErrInvalidLeaf  = errors.New("intervaltree: invalid leaf")
	ErrOutOfRange   = errors.New("intervaltree: leaf index out of range")
	ErrInvalidProof = errors.New("intervaltree: proof does not verify")
)

type Leaf struct {
	Start uint64
	End   uint64
	Data  []byte
}

// Node is a committed subtree: its hash and the End of its last range.
type Node struct {
	Hash [HashSize]byte
	End  uint64
}

func keccak(parts ...[]byte) (out [HashSize]byte) {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		_, _ = h.Write(p)
	}
	copy(out[:], h.Sum(nil))
	return out
}

func u64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

// LeafNode commits to l as keccak256(start || end || data).
func LeafNode(l Leaf) Node {
	return Node{Hash: keccak(u64(l.Start), u64(l.End), l.Data), End: l.End}
}

func parent(l, r Node) Node {
	return Node{Hash: keccak(l.Hash[:], u64(l.End), r.Hash[:], u64(r.End)), End: r.End}
}

// Tree holds every level, leaves first.
type Tree struct {
	levels [][]Node
	n      int
}

// Build commits to leaves, which must be non-empty ranges sorted by Start
// without overlap. The leaf level is padded to a power of two with zero-hash
// nodes ending where the last leaf ends.
func Build(leaves []Leaf) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmpty
	}
	for i, l := range leaves {
		if l.End <= l.Start {
			return nil, fmt.Errorf("%w: leaf %d has empty range [%d,%d)", ErrInvalidLeaf, i, l.Start, l.End)
		}
		if i > 0 && leaves[i-1].End > l.Start {
			return nil, fmt.Errorf("%w: leaf %d overlaps or precedes leaf %d", ErrInvalidLeaf, i, i-1)
		}
	}

	width := 1
	for width < len(leaves) {
		width <<= 1
	}
	level := make([]Node, width)
	for i, l := range leaves {
		level[i] = LeafNode(l)
	}
	pad := Node{End: leaves[len(leaves)-1].End}
	for i := len(leaves); i < width; i++ {
		level[i] = pad
	}

	t := &Tree{n: len(leaves), levels: [][]Node{level}}
	for len(level) > 1 {
		next := make([]Node, len(level)/2)
		for i := range next {
			next[i] = parent(level[2*i], level[2*i+1])
		}
		t.levels = append(t.levels, next)
		level = next
	}
	return t, nil
}

func (t *Tree) Root() Node { return t.levels[len(t.levels)-1][0] }

func (t *Tree) Len() int { return t.n }

// Proof returns the inclusion proof of leaf i.
func (t *Tree) Proof(i int) (Proof, error) {
	if i < 0 || i >= t.n {
		return Proof{}, ErrOutOfRange
	}
	p := Proof{Index: uint64(i)}
	idx := i
	for _, level := range t.levels[:len(t.levels)-1] {
		p.Siblings = append(p.Siblings, level[idx^1])
		idx >>= 1
	}
	return p, nil
}

// Proof is a leaf index and the sibling nodes from the leaf level upwards.
type Proof struct {
	Index    uint64
	Siblings []Node
}

// Verify checks that leaf is committed at p.Index under root and that no
// other leaf under root overlaps [leaf.Start, leaf.End).
func Verify(root Node, leaf Leaf, p Proof) error {
	if leaf.End <= leaf.Start {
		return fmt.Errorf("%w: empty range", ErrInvalidLeaf)
	}
	if len(p.Siblings) < 64 && p.Index>>uint(len(p.Siblings)) != 0 {
		return fmt.Errorf("%w: index %d exceeds depth %d", ErrInvalidProof, p.Index, len(p.Siblings))
	}
	cur := LeafNode(leaf)
	idx := p.Index
	for _, sib := range p.Siblings {
		if idx&1 == 1 {
			if sib.End > leaf.Start {
				return fmt.Errorf("%w: left sibling ends at %d after start %d", ErrInvalidProof, sib.End, leaf.Start)
			}
			cur = parent(sib, cur)
		} else {
			if sib.End < cur.End {
				return fmt.Errorf("%w: right sibling ends at %d before %d", ErrInvalidProof, sib.End, cur.End)
			}
			cur = parent(cur, sib)
		}
		idx >>= 1
	}
	if cur != root {
		return ErrInvalidProof
	}
	return nil
}
