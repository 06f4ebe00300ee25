package storage

// Fallback provides deterministic, ordered read fallback across multiple stores.
//
// Read order is the slice order in Stores; callers MUST supply a fixed order.
// Writes (Put, Delete, Batch) go only to the first store.
//
// Iterate reads only the first store: merging ordered iterations across
// backends that may disagree would make results depend on backend timing.
type Fallback struct {
	Stores []KeyValueStore
}

var _ KeyValueStore = Fallback{}

func (m Fallback) primary() (KeyValueStore, error) {
	if len(m.Stores) == 0 {
		return nil, ErrNoBackends
	}
	return m.Stores[0], nil
}

func (m Fallback) Get(key []byte) ([]byte, error) {
	if len(m.Stores) == 0 {
		return nil, ErrNoBackends
	}
	for _, s := range m.Stores {
		v, err := s.Get(key)
		if err == nil {
			return v, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

func (m Fallback) Has(key []byte) (bool, error) {
	if len(m.Stores) == 0 {
		return false, ErrNoBackends
	}
	for _, s := range m.Stores {
		ok, err := s.Has(key)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (m Fallback) Put(key, value []byte) error {
	p, err := m.primary()
	if err != nil {
		return err
	}
	return p.Put(key, value)
}

func (m Fallback) Delete(key []byte) error {
	p, err := m.primary()
	if err != nil {
		return err
	}
	return p.Delete(key)
}

func (m Fallback) Batch(ops []Op) error {
	p, err := m.primary()
	if err != nil {
		return err
	}
	return p.Batch(ops)
}

func (m Fallback) Iterate(prefix []byte, visit func(key, value []byte) bool) ([]KeyValue, error) {
	p, err := m.primary()
	if err != nil {
		return nil, err
	}
	return p.Iterate(prefix, visit)
}
