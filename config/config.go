// Package config loads the YAML configuration shared by ovm and ovmd.
//
// Example:
//
//	store:
//	  backends:
//	    - name: badger
//	      config: {dir: /var/lib/ovm}
//	log:
//	  level: info
//	listen:
//	  grpc: 127.0.0.1:7070
//	  http: 127.0.0.1:8080
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"xdao.co/ovm/storage/storeconfig"
)

type Config struct {
	Store  storeconfig.Config `yaml:"store"`
	Log    Log                `yaml:"log"`
	Listen Listen             `yaml:"listen"`
	// KeysDir overrides the key store directory (default ~/.ovm/keys).
	KeysDir string `yaml:"keys_dir,omitempty"`
}

type Log struct {
	Level    string `yaml:"level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	Encoding string `yaml:"encoding,omitempty" validate:"omitempty,oneof=json console"`
}

// Listen holds the daemon addresses. An empty address disables the listener.
type Listen struct {
	GRPC string `yaml:"grpc,omitempty" validate:"omitempty,hostname_port"`
	HTTP string `yaml:"http,omitempty" validate:"omitempty,hostname_port"`
}

var validate = validator.New()

// Default is a single badger store under ~/.ovm/db with info logging.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Store: storeconfig.Config{Backends: []storeconfig.BackendConfig{{
			Name:   "badger",
			Config: map[string]string{"dir": filepath.Join(home, ".ovm", "db")},
		}}},
		Log:    Log{Level: "info", Encoding: "json"},
		Listen: Listen{GRPC: "127.0.0.1:7070", HTTP: "127.0.0.1:8080"},
	}, nil
}

// Load reads path over Default. Sections missing from the file keep their
// defaults; a store section replaces the default store entirely.
func Load(path string) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return Config{}, err
	}
	if path == "" {
		return cfg, errors.New("config: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var file Config
	if err := yaml.Unmarshal(b, &file); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if len(file.Store.Backends) > 0 {
		cfg.Store = file.Store
	}
	if file.Log.Level != "" {
		cfg.Log.Level = file.Log.Level
	}
	if file.Log.Encoding != "" {
		cfg.Log.Encoding = file.Log.Encoding
	}
	if file.Listen.GRPC != "" {
		cfg.Listen.GRPC = file.Listen.GRPC
	}
	if file.Listen.HTTP != "" {
		cfg.Listen.HTTP = file.Listen.HTTP
	}
	if file.KeysDir != "" {
		cfg.KeysDir = file.KeysDir
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return c.Store.Validate()
}

// NewLogger builds the process logger. verbose forces debug level.
func (l Log) NewLogger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	level := zapcore.InfoLevel
	if l.Level != "" {
		if err := level.Set(l.Level); err != nil {
			return nil, fmt.Errorf("config: log level: %w", err)
		}
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if l.Encoding != "" {
		zc.Encoding = l.Encoding
	}
	if zc.Encoding == "console" {
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	return zc.Build()
}
