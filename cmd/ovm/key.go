package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/spf13/cobra"

	"xdao.co/ovm/keys"
)

func (a *app) keyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage signing keys",
	}
	cmd.AddCommand(a.keyInitCmd(), a.keyDeriveCmd(), a.keyListCmd(), a.keyExportCmd())
	return cmd
}

func (a *app) keyInitCmd() *cobra.Command {
	var seedHex string
	var force bool
	cmd := &cobra.Command{
		Use:   "init <name>",
		Short: "Create a root key and print its address",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := keys.CheckKeyName(args[0]); err != nil {
				return usageError{err}
			}
			seed := make([]byte, ed25519.SeedSize)
			if seedHex != "" {
				var err error
				if seed, err = keys.ParseSeedHex(seedHex); err != nil {
					return usageError{err}
				}
			} else if _, err := rand.Read(seed); err != nil {
				return err
			}
			ks, err := a.keyStore()
			if err != nil {
				return err
			}
			addr, err := ks.Init(args[0], seed, force)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, addr)
			return nil
		},
	}
	cmd.Flags().StringVar(&seedHex, "seed", "", "32-byte seed as hex (default: random)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing key")
	return cmd
}

func (a *app) keyDeriveCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "derive <name> <role>",
		Short: "Derive a role key from a root key and print its address",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := keys.CheckRole(args[1]); err != nil {
				return usageError{err}
			}
			ks, err := a.keyStore()
			if err != nil {
				return err
			}
			addr, err := ks.Derive(args[0], args[1], force)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, addr)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing role key")
	return cmd
}

func (a *app) keyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored keys",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := a.keyStore()
			if err != nil {
				return err
			}
			entries, err := ks.List()
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(a.out, "%s\t%s\n", e.Name, e.Address)
				for _, r := range e.Roles {
					fmt.Fprintf(a.out, "%s/%s\n", e.Name, r)
				}
			}
			return nil
		},
	}
}

func (a *app) keyExportCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "export <name>",
		Short: "Print the public address of a key",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := a.keyStore()
			if err != nil {
				return err
			}
			addr, err := ks.Address(args[0], role)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, addr)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "Role key to export (default: root key)")
	return cmd
}
