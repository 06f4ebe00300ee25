package storage

import "fmt"

// NamedStore associates a KeyValueStore with a stable backend name.
//
// This is used for multi-backend orchestration where callers need to retain
// per-backend metadata (e.g., for reporting or auditing).
type NamedStore struct {
	Name  string
	Store KeyValueStore
}

// Replicated writes to all configured backends.
//
// Reads fall back in order. Writes go to every backend in order and stop at the
// first failure, reporting which backend failed. Backends written before the
// failure keep the write; decision entries are idempotent so a retry converges.
type Replicated struct {
	Backends []NamedStore
}

var _ KeyValueStore = Replicated{}

func (r Replicated) each(fn func(s KeyValueStore) error) error {
	if len(r.Backends) == 0 {
		return ErrNoBackends
	}
	for _, b := range r.Backends {
		if b.Store == nil {
			return fmt.Errorf("storage: nil store for backend %q", b.Name)
		}
		if err := fn(b.Store); err != nil {
			return fmt.Errorf("storage: backend %q: %w", b.Name, err)
		}
	}
	return nil
}

func (r Replicated) Put(key, value []byte) error {
	return r.each(func(s KeyValueStore) error { return s.Put(key, value) })
}

func (r Replicated) Delete(key []byte) error {
	return r.each(func(s KeyValueStore) error { return s.Delete(key) })
}

func (r Replicated) Batch(ops []Op) error {
	return r.each(func(s KeyValueStore) error { return s.Batch(ops) })
}

func (r Replicated) Get(key []byte) ([]byte, error) {
	return r.fallback().Get(key)
}

func (r Replicated) Has(key []byte) (bool, error) {
	return r.fallback().Has(key)
}

func (r Replicated) Iterate(prefix []byte, visit func(key, value []byte) bool) ([]KeyValue, error) {
	return r.fallback().Iterate(prefix, visit)
}

func (r Replicated) fallback() Fallback {
	stores := make([]KeyValueStore, 0, len(r.Backends))
	for _, b := range r.Backends {
		if b.Store != nil {
			stores = append(stores, b.Store)
		}
	}
	return Fallback{Stores: stores}
}
