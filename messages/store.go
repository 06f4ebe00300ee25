package messages

import (
	"encoding/binary"
	"fmt"
	"sync"

	"xdao.co/ovm/storage"
)

// Store indexes signed messages by sender and nonce.
//
// Layout inside the store's bucket:
//
//	s/<uvarint len(sender)><sender><nonce big-endian> -> SignedMessage
//	c/<sender>                                         -> coverage (big-endian)
//
// Coverage is an attestation that every message of sender with a nonce below
// the recorded value is present. Quantifiers use it to tell a complete
// enumeration from a partial one.
type Store struct {
	kv *storage.Bucket

	mu sync.Mutex // serializes coverage read-modify-write
}

// NewStore scopes the message store to the "messages/" bucket of kv.
func NewStore(kv storage.KeyValueStore) *Store {
	return &Store{kv: storage.NewBucket(kv, []byte("messages/"))}
}

func senderPrefix(sender string) []byte {
	b := []byte("s/")
	b = binary.AppendUvarint(b, uint64(len(sender)))
	return append(b, sender...)
}

func messageKey(sender string, nonce uint64) []byte {
	return binary.BigEndian.AppendUint64(senderPrefix(sender), nonce)
}

func coverageKey(sender string) []byte {
	return append([]byte("c/"), sender...)
}

// Put verifies sm and stores it. Re-putting the same (sender, nonce)
// overwrites the previous entry.
func (s *Store) Put(sm SignedMessage) error {
	if err := sm.Verify(); err != nil {
		return fmt.Errorf("messages: %w", err)
	}
	return s.kv.Put(messageKey(sm.Message.Sender, sm.Message.Nonce), sm.Encode())
}

// Get returns the message of sender with nonce, or storage.ErrNotFound.
func (s *Store) Get(sender string, nonce uint64) (SignedMessage, error) {
	b, err := s.kv.Get(messageKey(sender, nonce))
	if err != nil {
		return SignedMessage{}, err
	}
	return DecodeSigned(b)
}

// SignedBy returns the messages of sender with start <= nonce < end in nonce
// order. end == 0 means unbounded.
func (s *Store) SignedBy(sender string, start, end uint64) ([]SignedMessage, error) {
	prefix := senderPrefix(sender)
	kvs, err := s.kv.Iterate(prefix, func(k, _ []byte) bool {
		if end == 0 || len(k) != len(prefix)+8 {
			return true
		}
		return binary.BigEndian.Uint64(k[len(prefix):]) < end
	})
	if err != nil {
		return nil, err
	}
	out := make([]SignedMessage, 0, len(kvs))
	for _, kv := range kvs {
		if len(kv.Key) != len(prefix)+8 {
			continue
		}
		if binary.BigEndian.Uint64(kv.Key[len(prefix):]) < start {
			continue
		}
		sm, err := DecodeSigned(kv.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, nil
}

// AttestCoverage records that all messages of sender with nonce < upTo are
// stored. Coverage only grows; a lower attestation is ignored.
func (s *Store) AttestCoverage(sender string, upTo uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.Coverage(sender)
	if err != nil {
		return err
	}
	if upTo <= cur {
		return nil
	}
	return s.kv.Put(coverageKey(sender), binary.BigEndian.AppendUint64(nil, upTo))
}

// Coverage returns the attested coverage bound of sender (0 when none).
func (s *Store) Coverage(sender string) (uint64, error) {
	b, err := s.kv.Get(coverageKey(sender))
	if storage.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(b) != 8 {
		return 0, fmt.Errorf("%w: coverage entry is %d bytes", ErrMalformed, len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}
