// Package commitment stores the interval tree root committed for each block.
package commitment

import (
	"encoding/binary"
	"errors"
	"fmt"

	"xdao.co/ovm/intervaltree"
	"xdao.co/ovm/storage"
)

// ErrConflict is returned when a block already has a different root.
var ErrConflict = errors.New("commitment: block already committed to a different root")

type Store struct {
	kv *storage.Bucket
}

// NewStore scopes the commitment store to the "commitments/" bucket of kv.
func NewStore(kv storage.KeyValueStore) *Store {
	return &Store{kv: storage.NewBucket(kv, []byte("commitments/"))}
}

func blockKey(block uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, block)
}

// PutRoot records root for block. Roots are write-once: repeating the same root
// is a no-op, a different root is ErrConflict.
func (s *Store) PutRoot(block uint64, root intervaltree.Node) error {
	existing, err := s.Root(block)
	switch {
	case err == nil:
		if existing != root {
			return fmt.Errorf("%w: block %d", ErrConflict, block)
		}
		return nil
	case !storage.IsNotFound(err):
		return err
	}
	b, _ := root.MarshalBinary()
	return s.kv.Put(blockKey(block), b)
}

// Root returns the root of block or storage.ErrNotFound.
func (s *Store) Root(block uint64) (intervaltree.Node, error) {
	b, err := s.kv.Get(blockKey(block))
	if err != nil {
		return intervaltree.Node{}, err
	}
	var n intervaltree.Node
	if err := n.UnmarshalBinary(b); err != nil {
		return intervaltree.Node{}, err
	}
	return n, nil
}

// Latest returns the highest committed block number.
func (s *Store) Latest() (block uint64, ok bool, err error) {
	kvs, err := s.kv.Iterate(nil, func(_, _ []byte) bool { return true })
	if err != nil {
		return 0, false, err
	}
	for i := len(kvs) - 1; i >= 0; i-- {
		if len(kvs[i].Key) == 8 {
			return binary.BigEndian.Uint64(kvs[i].Key), true, nil
		}
	}
	return 0, false, nil
}
