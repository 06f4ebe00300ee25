// Command ovmd serves a decision store to peers.
//
// It exposes the store over the KV gRPC service (for ovm CLIs configured with
// a "grpc" backend) and accepts signed messages and decide requests over a
// websocket at /ws. Prometheus metrics are served at /metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"xdao.co/ovm/config"
	"xdao.co/ovm/messages"
	"xdao.co/ovm/node"
	"xdao.co/ovm/ovm"
	"xdao.co/ovm/pubsub"
	"xdao.co/ovm/storage"
	"xdao.co/ovm/storage/grpckv"
	"xdao.co/ovm/storage/registry"

	_ "xdao.co/ovm/storage/badgerkv"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	var (
		configPath   string
		preferred    string
		verbose      bool
		listBackends bool
	)
	cmd := &cobra.Command{
		Use:           "ovmd",
		Short:         "Serve a decision store over gRPC and websocket",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listBackends {
				for _, b := range registry.List(registry.UsageDaemon) {
					fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
				}
				return nil
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			log, err := cfg.Log.NewLogger(verbose)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			db, closeFn, err := cfg.Store.Open(registry.UsageDaemon, preferred, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeFn(); err != nil {
					log.Warn("close store", zap.Error(err))
				}
			}()

			lis, err := listen(cfg.Listen)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), log, db, lis)
		},
	}
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "YAML config file (default: built-in defaults)")
	f.StringVar(&preferred, "backend", "", "Configured backend to read first")
	f.BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	f.BoolVar(&listBackends, "list-backends", false, "List supported backends and exit")

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(errOut, "ovmd: %v\n", err)
		return 1
	}
	return 0
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}

// listeners holds the bound daemon sockets; a nil listener is disabled.
type listeners struct {
	grpc net.Listener
	http net.Listener
}

func listen(l config.Listen) (listeners, error) {
	var out listeners
	var err error
	if l.GRPC != "" {
		if out.grpc, err = net.Listen("tcp", l.GRPC); err != nil {
			return listeners{}, err
		}
	}
	if l.HTTP != "" {
		if out.http, err = net.Listen("tcp", l.HTTP); err != nil {
			if out.grpc != nil {
				_ = out.grpc.Close()
			}
			return listeners{}, err
		}
	}
	if out.grpc == nil && out.http == nil {
		return listeners{}, errors.New("no listen address configured")
	}
	return out, nil
}

// serve runs until ctx is done, then drains both servers.
func serve(ctx context.Context, log *zap.Logger, db storage.KeyValueStore, lis listeners) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	exec := ovm.NewExecutor(db, ovm.WithLogger(log), ovm.WithMetrics(ovm.NewMetrics(reg)))
	intake := &node.Intake{
		Messages: messages.NewStore(db),
		Executor: exec,
		Log:      log.Named("intake"),
	}
	hub := pubsub.NewServer(intake, log.Named("pubsub"))
	intake.Relay = hub.Broadcast

	g, ctx := errgroup.WithContext(ctx)

	if lis.grpc != nil {
		gs := grpc.NewServer()
		grpckv.RegisterKVServer(gs, &grpckv.Server{Store: db, Log: log.Named("grpc")})
		log.Info("grpc listening", zap.String("addr", lis.grpc.Addr().String()))
		g.Go(func() error { return gs.Serve(lis.grpc) })
		g.Go(func() error {
			<-ctx.Done()
			gs.GracefulStop()
			return nil
		})
	}

	if lis.http != nil {
		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "ok\n")
		})
		hs := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		log.Info("http listening", zap.String("addr", lis.http.Addr().String()))
		g.Go(func() error {
			if err := hs.Serve(lis.http); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			// Hijacked websocket connections are not tracked by Shutdown.
			_ = hub.Close()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return hs.Shutdown(sctx)
		})
	}

	err := g.Wait()
	log.Info("stopped", zap.Error(err))
	return err
}
