package main

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"xdao.co/ovm/keys"
	"xdao.co/ovm/messages"
	"xdao.co/ovm/storage"
)

func (a *app) signCmd() *cobra.Command {
	var keyName, role string
	cmd := &cobra.Command{
		Use:   "sign <file|->",
		Short: "Sign bytes and print the base64 signature",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyName == "" {
				return usagef("sign: --key is required")
			}
			msg, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			ks, err := a.keyStore()
			if err != nil {
				return err
			}
			priv, err := ks.Signer(keyName, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, base64.StdEncoding.EncodeToString(keys.SignEd25519(msg, priv)))
			return nil
		},
	}
	cmd.Flags().StringVar(&keyName, "key", "", "Key name")
	cmd.Flags().StringVar(&role, "role", "", "Role key (default: root key)")
	return cmd
}

func (a *app) messageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Store and enumerate signed channel messages",
	}
	cmd.AddCommand(a.messagePutCmd(), a.messageAttestCmd(), a.messageListCmd())
	return cmd
}

func (a *app) messagePutCmd() *cobra.Command {
	var keyName, role, channel, body string
	var nonce uint64
	cmd := &cobra.Command{
		Use:   "put",
		Short: "Sign a message, store it and print its base64 encoding",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyName == "" {
				return usagef("message put: --key is required")
			}
			ks, err := a.keyStore()
			if err != nil {
				return err
			}
			priv, err := ks.Signer(keyName, role)
			if err != nil {
				return err
			}
			sender, err := ks.Address(keyName, role)
			if err != nil {
				return err
			}
			sm := messages.Sign(messages.Message{
				Channel: channel,
				Sender:  sender,
				Nonce:   nonce,
				Body:    []byte(body),
			}, priv)
			return a.withStore(func(db storage.KeyValueStore) error {
				if err := messages.NewStore(db).Put(sm); err != nil {
					return err
				}
				fmt.Fprintln(a.out, base64.StdEncoding.EncodeToString(sm.Encode()))
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&keyName, "key", "", "Signing key name")
	f.StringVar(&role, "role", "", "Role key (default: root key)")
	f.StringVar(&channel, "channel", "", "Channel identifier")
	f.Uint64Var(&nonce, "nonce", 0, "Message nonce")
	f.StringVar(&body, "body", "", "Message body")
	return cmd
}

func (a *app) messageAttestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attest <sender> <up-to>",
		Short: "Record that every message of sender below up-to is stored",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := keys.ParseAddress(args[0]); err != nil {
				return usageError{err}
			}
			upTo, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return usagef("attest: bad bound %q", args[1])
			}
			return a.withStore(func(db storage.KeyValueStore) error {
				return messages.NewStore(db).AttestCoverage(args[0], upTo)
			})
		},
	}
}

func (a *app) messageListCmd() *cobra.Command {
	var start, end uint64
	cmd := &cobra.Command{
		Use:   "list <sender>",
		Short: "Print stored messages of sender as nonce and base64 encoding",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(db storage.KeyValueStore) error {
				ms, err := messages.NewStore(db).SignedBy(args[0], start, end)
				if err != nil {
					return err
				}
				for _, sm := range ms {
					fmt.Fprintf(a.out, "%d\t%s\n", sm.Message.Nonce, base64.StdEncoding.EncodeToString(sm.Encode()))
				}
				return nil
			})
		},
	}
	cmd.Flags().Uint64Var(&start, "start", 0, "First nonce")
	cmd.Flags().Uint64Var(&end, "end", 0, "Nonce bound, exclusive (0: unbounded)")
	return cmd
}
