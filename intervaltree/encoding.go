package intervaltree

import (
	"fmt"

	"xdao.co/ovm/internal/wire"
)

const (
	fieldHash = 1
	fieldEnd  = 2

	fieldIndex   = 1
	fieldSibling = 2
)

// MarshalBinary encodes n canonically.
func (n Node) MarshalBinary() ([]byte, error) {
	b := wire.AppendBytes(nil, fieldHash, n.Hash[:])
	return wire.AppendUint(b, fieldEnd, n.End), nil
}

func (n *Node) UnmarshalBinary(b []byte) error {
	fs, err := wire.Parse(b)
	if err != nil {
		return err
	}
	h, _ := fs.Bytes(fieldHash)
	if len(h) != HashSize {
		return fmt.Errorf("%w: node hash is %d bytes", wire.ErrMalformed, len(h))
	}
	copy(n.Hash[:], h)
	n.End, _ = fs.Uint(fieldEnd)
	return nil
}

// MarshalBinary encodes p canonically.
func (p Proof) MarshalBinary() ([]byte, error) {
	b := wire.AppendUint(nil, fieldIndex, p.Index)
	for _, s := range p.Siblings {
		sb, _ := s.MarshalBinary()
		b = wire.AppendBytes(b, fieldSibling, sb)
	}
	return b, nil
}

func (p *Proof) UnmarshalBinary(b []byte) error {
	fs, err := wire.Parse(b)
	if err != nil {
		return err
	}
	p.Index, _ = fs.Uint(fieldIndex)
	p.Siblings = nil
	for _, raw := range fs.All(fieldSibling) {
		var n Node
		if err := n.UnmarshalBinary(raw); err != nil {
			return err
		}
		p.Siblings = append(p.Siblings, n)
	}
	return nil
}
