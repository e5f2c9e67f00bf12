// Command mikrond wires the ledger/network core up into a running process
// for manual smoke-testing: a bare cobra root with a handful of subcommands,
// rather than a full daemon-boot/RPC/wallet CLI.
package main

import (
	"crypto/ed25519"
	crand "crypto/rand"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mikron/internal/block"
	"mikron/internal/node"
	"mikron/internal/numbers"
	"mikron/internal/params"
	"mikron/pkg/config"
)

func main() {
	rootCmd := &cobra.Command{Use: "mikrond"}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(genesisCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var configDir, env string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run a mikrond node until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configDir, env)
			if err != nil {
				return err
			}
			level, err := logrus.ParseLevel(cfg.Logging.Level)
			if err != nil {
				level = logrus.InfoLevel
			}
			logrus.SetLevel(level)

			var genesis, manna numbers.Account // zero keys for local smoke-testing only
			netParams, err := cfg.NetworkParams(genesis, manna)
			if err != nil {
				return err
			}

			n, err := node.New(node.Config{
				DBPath:     cfg.Storage.DBPath,
				ListenAddr: cfg.Network.ListenAddr,
				DiagAddr:   cfg.Diag.ListenAddr,
			}, netParams)
			if err != nil {
				return err
			}
			n.Start()
			defer n.Stop()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			return nil
		},
	}
	cmd.Flags().StringVar(&configDir, "config-dir", "cmd/mikrond/config", "directory holding default.yaml")
	cmd.Flags().StringVar(&env, "env", "", "optional config override name")
	return cmd
}

func genesisCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "genesis",
		Short: "print a freshly generated open_genesis block for a local test network",
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, priv, err := ed25519.GenerateKey(crand.Reader)
			if err != nil {
				return err
			}
			var account numbers.Account
			copy(account[:], pub)

			p := params.Test(account, account)
			blk := &block.StateBlock{
				Account:        account,
				CreationTime:   numbers.Now(),
				Representative: account,
				Balance:        p.GenesisAmount,
			}
			blk.Sign(priv)

			fmt.Printf("account:   %s\n", account.ToText())
			fmt.Printf("hash:      %s\n", blk.Hash().Hex())
			fmt.Printf("balance:   %d\n", blk.Balance)
			return nil
		},
	}
}
