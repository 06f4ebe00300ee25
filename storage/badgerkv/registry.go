package badgerkv

import (
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"xdao.co/ovm/storage"
	"xdao.co/ovm/storage/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "badger",
		Description: "Embedded BadgerDB store (directory or in-memory)",
		Usage:       registry.UsageCLI | registry.UsageDaemon,
		Keys: map[string]string{
			"dir":         "database directory",
			"in_memory":   "true to keep data in memory only",
			"sync_writes": "fsync every write (default true)",
			"gc_interval": "value log GC interval, e.g. 5m (0 disables)",
		},
		Open: func(cfg map[string]string, log *zap.Logger) (storage.KeyValueStore, func() error, error) {
			c, err := configFromMap(cfg)
			if err != nil {
				return nil, nil, err
			}
			c.Logger = log
			s, err := Open(c)
			if err != nil {
				return nil, nil, err
			}
			return s, s.Close, nil
		},
	})
}

func configFromMap(m map[string]string) (Config, error) {
	c := DefaultConfig(m["dir"])
	if v, ok := m["in_memory"]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c, fmt.Errorf("badgerkv: in_memory: %w", err)
		}
		c.InMemory = b
	}
	if v, ok := m["sync_writes"]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c, fmt.Errorf("badgerkv: sync_writes: %w", err)
		}
		c.SyncWrites = b
	}
	if v, ok := m["gc_interval"]; ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return c, fmt.Errorf("badgerkv: gc_interval: %w", err)
		}
		c.GCInterval = d
	}
	if !c.InMemory && c.Dir == "" {
		return c, fmt.Errorf("badgerkv: missing dir")
	}
	return c, nil
}
