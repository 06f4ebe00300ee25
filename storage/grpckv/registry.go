package grpckv

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"xdao.co/ovm/storage"
	"xdao.co/ovm/storage/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "grpc",
		Description: "gRPC KV client (talks to an ovmd store endpoint)",
		Usage:       registry.UsageCLI,
		Keys: map[string]string{
			"target":        "gRPC target host:port",
			"timeout":       "per-RPC timeout, e.g. 2s",
			"max_msg_bytes": "max gRPC message size in bytes; 0 uses grpc defaults",
		},
		Open: func(cfg map[string]string, log *zap.Logger) (storage.KeyValueStore, func() error, error) {
			target := strings.TrimSpace(cfg["target"])
			if target == "" {
				return nil, nil, fmt.Errorf("grpckv: missing target")
			}
			var opts DialOptions
			if v := cfg["max_msg_bytes"]; v != "" {
				n, err := strconv.Atoi(v)
				if err != nil {
					return nil, nil, fmt.Errorf("grpckv: max_msg_bytes: %w", err)
				}
				opts.MaxMsgBytes = n
			}
			client, err := Dial(target, opts)
			if err != nil {
				return nil, nil, err
			}
			if v := cfg["timeout"]; v != "" {
				d, err := time.ParseDuration(v)
				if err != nil {
					_ = client.Close()
					return nil, nil, fmt.Errorf("grpckv: timeout: %w", err)
				}
				client.Timeout = d
			}
			log.Debug("dialed store", zap.String("target", target))
			return client, client.Close, nil
		},
	})
}
