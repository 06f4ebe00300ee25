// Package storeconfig opens the decision store described by configuration.
//
// Backends are resolved by name through storage/registry; callers link the
// backends they want via blank imports.
package storeconfig

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"xdao.co/ovm/storage"
	"xdao.co/ovm/storage/registry"
)

// Config describes how to open one or more backends.
//
// WritePolicy values:
//   - "first" (default): write only to the first backend; reads fall back in order
//   - "all": write to every backend (see storage.Replicated)
//
// Example:
//
//	write_policy: all
//	backends:
//	  - name: badger
//	    config: {dir: /var/lib/ovm}
//	  - name: grpc
//	    id: replica
//	    config: {target: "10.0.0.2:7070"}
type Config struct {
	WritePolicy string          `yaml:"write_policy,omitempty" validate:"omitempty,oneof=first all"`
	Backends    []BackendConfig `yaml:"backends" validate:"required,min=1,dive"`
}

type BackendConfig struct {
	// Name is the registry backend name to open (e.g. "badger", "grpc").
	Name string `yaml:"name" validate:"required"`
	// ID is an optional stable alias reported in replication errors.
	// If empty, Name is used.
	ID     string            `yaml:"id,omitempty"`
	Config map[string]string `yaml:"config,omitempty"`
}

func (b BackendConfig) id() string {
	if b.ID != "" {
		return b.ID
	}
	return b.Name
}

var validate = validator.New()

func LoadFile(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("storeconfig: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("storeconfig: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("storeconfig: %w", err)
	}
	seen := make(map[string]struct{}, len(c.Backends))
	for _, b := range c.Backends {
		id := b.id()
		if _, ok := seen[id]; ok {
			return fmt.Errorf("storeconfig: duplicate backend id %q", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Open opens a store per config.
//
// If preferredBackend is non-empty, backends are reordered so preferredBackend
// is first (and thus used for writes when WritePolicy=="first").
func (c Config) Open(usage registry.Usage, preferredBackend string, log *zap.Logger) (storage.KeyValueStore, func() error, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	ordered := append([]BackendConfig(nil), c.Backends...)
	if preferredBackend != "" {
		idx := -1
		for i := range ordered {
			if ordered[i].Name == preferredBackend || ordered[i].ID == preferredBackend {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, nil, fmt.Errorf("storeconfig: preferred backend %q not found in config", preferredBackend)
		}
		if idx != 0 {
			b := ordered[idx]
			copy(ordered[1:idx+1], ordered[0:idx])
			ordered[0] = b
		}
	}

	named := make([]storage.NamedStore, 0, len(ordered))
	closers := make([]func() error, 0, len(ordered))
	for _, b := range ordered {
		s, closeFn, err := registry.Open(b.Name, usage, b.Config, log)
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				_ = closers[i]()
			}
			return nil, nil, fmt.Errorf("storeconfig: open %q: %w", b.id(), err)
		}
		named = append(named, storage.NamedStore{Name: b.id(), Store: s})
		if closeFn != nil {
			closers = append(closers, closeFn)
		}
		log.Debug("opened backend", zap.String("backend", b.Name), zap.String("id", b.id()))
	}

	closeAll := func() error {
		var firstErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	if len(named) == 1 {
		return named[0].Store, closeAll, nil
	}

	switch c.WritePolicy {
	case "", "first":
		stores := make([]storage.KeyValueStore, 0, len(named))
		for _, n := range named {
			stores = append(stores, n.Store)
		}
		return storage.Fallback{Stores: stores}, closeAll, nil
	case "all":
		return storage.Replicated{Backends: named}, closeAll, nil
	default:
		_ = closeAll()
		return nil, nil, fmt.Errorf("storeconfig: invalid write_policy %q", c.WritePolicy)
	}
}
