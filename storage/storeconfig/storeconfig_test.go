package storeconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"xdao.co/ovm/storage"
	_ "xdao.co/ovm/storage/badgerkv"
	"xdao.co/ovm/storage/registry"
)

func TestLoadFileValidates(t *testing.T) {
	dir := t.TempDir()
	write := func(body string) string {
		p := filepath.Join(dir, "store.yaml")
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
		return p
	}

	cfg, err := LoadFile(write("write_policy: all\nbackends:\n  - name: badger\n    config: {in_memory: \"true\"}\n"))
	require.NoError(t, err)
	require.Equal(t, "all", cfg.WritePolicy)
	require.Equal(t, "true", cfg.Backends[0].Config["in_memory"])

	_, err = LoadFile(write("write_policy: some\nbackends:\n  - name: badger\n"))
	require.Error(t, err)

	_, err = LoadFile(write("backends: []\n"))
	require.Error(t, err)

	_, err = LoadFile(write("backends:\n  - name: badger\n  - name: badger\n"))
	require.ErrorContains(t, err, "duplicate backend id")

	_, err = LoadFile("")
	require.Error(t, err)
}

func mem(id string) BackendConfig {
	return BackendConfig{Name: "badger", ID: id, Config: map[string]string{"in_memory": "true"}}
}

func TestOpenSelectsDecoratorByWritePolicy(t *testing.T) {
	log := zaptest.NewLogger(t)

	s, closeFn, err := Config{Backends: []BackendConfig{mem("")}}.Open(registry.UsageCLI, "", log)
	require.NoError(t, err)
	require.NoError(t, closeFn())
	require.NotNil(t, s)

	s, closeFn, err = Config{Backends: []BackendConfig{mem("a"), mem("b")}}.Open(registry.UsageCLI, "", log)
	require.NoError(t, err)
	require.IsType(t, storage.Fallback{}, s)
	require.NoError(t, closeFn())

	s, closeFn, err = Config{WritePolicy: "all", Backends: []BackendConfig{mem("a"), mem("b")}}.Open(registry.UsageCLI, "b", log)
	require.NoError(t, err)
	defer closeFn()
	r, ok := s.(storage.Replicated)
	require.True(t, ok)
	require.Equal(t, "b", r.Backends[0].Name)
}

func TestOpenUnknownPreferredBackend(t *testing.T) {
	_, _, err := Config{Backends: []BackendConfig{mem("a")}}.Open(registry.UsageCLI, "zzz", nil)
	require.Error(t, err)
}

func TestOpenUnknownBackendName(t *testing.T) {
	_, _, err := Config{Backends: []BackendConfig{{Name: "nope"}}}.Open(registry.UsageCLI, "", nil)
	require.ErrorContains(t, err, "unknown backend")
}
