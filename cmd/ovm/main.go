package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xdao.co/ovm/config"
	"xdao.co/ovm/keys"
	"xdao.co/ovm/ovm"
	"xdao.co/ovm/storage"
	"xdao.co/ovm/storage/registry"
	"xdao.co/ovm/storage/storeconfig"

	_ "xdao.co/ovm/storage/badgerkv"
	_ "xdao.co/ovm/storage/grpckv"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// usageError marks errors caused by bad invocation (exit status 2).
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

type app struct {
	out    io.Writer
	errOut io.Writer

	configPath string
	keysDir    string
	storeDir   string
	verbose    bool

	cfg config.Config
	log *zap.Logger
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	a := &app{out: out, errOut: errOut}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	cmd, err := root.ExecuteContextC(context.Background())
	if a.log != nil {
		_ = a.log.Sync()
	}
	if err == nil {
		return 0
	}
	fmt.Fprintf(errOut, "ovm: %v\n", err)
	var ue usageError
	// Unknown subcommands surface on a non-runnable parent.
	if errors.As(err, &ue) || !cmd.Runnable() {
		return 2
	}
	return 1
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ovm",
		Short:         "Decide fraud-proof claims against a local decision store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file (default: built-in defaults)")
	pf.StringVar(&a.keysDir, "keys-dir", "", "Key store directory (default ~/.ovm/keys)")
	pf.StringVar(&a.storeDir, "store-dir", "", "Use a single badger store at this directory")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Debug logging")

	root.AddCommand(
		a.keyCmd(),
		a.signCmd(),
		a.messageCmd(),
		a.treeCmd(),
		a.decideCmd(),
		a.checkCmd(),
		a.replayCmd(),
		a.backendsCmd(),
	)
	return root
}

func (a *app) setup() error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.Load(a.configPath)
	} else {
		a.cfg, err = config.Default()
	}
	if err != nil {
		return usageError{err}
	}
	if a.storeDir != "" {
		a.cfg.Store = storeconfig.Config{Backends: []storeconfig.BackendConfig{badgerBackend(a.storeDir)}}
	}
	if a.keysDir != "" {
		a.cfg.KeysDir = a.keysDir
	}
	a.log, err = a.cfg.Log.NewLogger(a.verbose)
	return err
}

func (a *app) keyStore() (*keys.KeyStore, error) {
	return keys.OpenKeyStore(a.cfg.KeysDir)
}

func (a *app) openStore() (storage.KeyValueStore, func() error, error) {
	return a.cfg.Store.Open(registry.UsageCLI, "", a.log)
}

// withStore opens the configured store for the duration of fn.
func (a *app) withStore(fn func(db storage.KeyValueStore) error) error {
	db, closeFn, err := a.openStore()
	if err != nil {
		return err
	}
	err = fn(db)
	if cerr := closeFn(); err == nil {
		err = cerr
	}
	return err
}

func (a *app) withExecutor(fn func(e *ovm.Executor) error) error {
	return a.withStore(func(db storage.KeyValueStore) error {
		return fn(ovm.NewExecutor(db, ovm.WithLogger(a.log)))
	})
}

func (a *app) backendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List linked storage backends and their config keys",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, b := range registry.List(registry.UsageCLI) {
				if b.Description == "" {
					fmt.Fprintln(a.out, b.Name)
				} else {
					fmt.Fprintf(a.out, "%s\t%s\n", b.Name, b.Description)
				}
				names := make([]string, 0, len(b.Keys))
				for k := range b.Keys {
					names = append(names, k)
				}
				sort.Strings(names)
				for _, k := range names {
					fmt.Fprintf(a.out, "  %s\t%s\n", k, b.Keys[k])
				}
			}
			return nil
		},
	}
}
