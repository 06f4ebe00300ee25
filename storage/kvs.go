package storage

import "bytes"

// KeyValueStore is the minimal persistence contract the decision engine consumes.
//
// Contract:
//   - Get MUST return ErrNotFound when the key is absent.
//   - Put MUST be idempotent; the last write for a key wins.
//   - Batch MUST apply all operations or none.
//   - Iterate visits keys beginning with prefix in lexicographic order and
//     collects each visited entry until visit returns false. The entry for which
//     visit returned false is not collected.
//   - Implementations MUST be safe for concurrent use.
type KeyValueStore interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Batch(ops []Op) error
	Iterate(prefix []byte, visit func(key, value []byte) bool) ([]KeyValue, error)
}

// OpKind selects what a batch operation does.
type OpKind uint8

const (
	OpPut OpKind = iota + 1
	OpDelete
)

// Op is one operation of an atomic batch.
type Op struct {
	Kind  OpKind
	Key   []byte
	Value []byte
}

func PutOp(key, value []byte) Op { return Op{Kind: OpPut, Key: key, Value: value} }

func DeleteOp(key []byte) Op { return Op{Kind: OpDelete, Key: key} }

type KeyValue struct {
	Key   []byte
	Value []byte
}

// Bucket is a prefix-scoped view of a KeyValueStore.
//
// Keys passed to a Bucket are relative; the bucket prepends its prefix before
// touching the parent and strips it from iteration results. Two buckets with
// disjoint prefixes can never observe each other's keys.
type Bucket struct {
	prefix []byte
	parent KeyValueStore
}

var _ KeyValueStore = (*Bucket)(nil)

// NewBucket returns the view of store under prefix. Nested buckets flatten
// onto the root store so each access costs one prefix copy.
func NewBucket(store KeyValueStore, prefix []byte) *Bucket {
	if b, ok := store.(*Bucket); ok {
		return &Bucket{prefix: concat(b.prefix, prefix), parent: b.parent}
	}
	return &Bucket{prefix: append([]byte(nil), prefix...), parent: store}
}

// Bucket returns a nested bucket below this one.
func (b *Bucket) Bucket(prefix []byte) *Bucket {
	return NewBucket(b, prefix)
}

func (b *Bucket) Prefix() []byte { return append([]byte(nil), b.prefix...) }

func (b *Bucket) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	return b.parent.Get(concat(b.prefix, key))
}

func (b *Bucket) Has(key []byte) (bool, error) {
	if len(key) == 0 {
		return false, ErrEmptyKey
	}
	return b.parent.Has(concat(b.prefix, key))
}

func (b *Bucket) Put(key, value []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	return b.parent.Put(concat(b.prefix, key), value)
}

func (b *Bucket) Delete(key []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	return b.parent.Delete(concat(b.prefix, key))
}

func (b *Bucket) Batch(ops []Op) error {
	scoped := make([]Op, 0, len(ops))
	for _, op := range ops {
		if len(op.Key) == 0 {
			return ErrEmptyKey
		}
		scoped = append(scoped, Op{Kind: op.Kind, Key: concat(b.prefix, op.Key), Value: op.Value})
	}
	return b.parent.Batch(scoped)
}

func (b *Bucket) Iterate(prefix []byte, visit func(key, value []byte) bool) ([]KeyValue, error) {
	n := len(b.prefix)
	out, err := b.parent.Iterate(concat(b.prefix, prefix), func(key, value []byte) bool {
		return visit(key[n:], value)
	})
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Key = out[i].Key[n:]
	}
	return out, nil
}

// HasPrefix reports whether key falls inside prefix. Implementations use it to
// bound iteration.
func HasPrefix(key, prefix []byte) bool { return bytes.HasPrefix(key, prefix) }

func concat(a, b []byte) []byte {
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
