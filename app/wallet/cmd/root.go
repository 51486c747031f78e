// Package cmd contains the wallet app.
package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fluerion/node/foundation/wire"
	"github.com/spf13/cobra"
)

var (
	nodeHost       string
	privateKeyName string
	walletPath     string
	timeout        time.Duration
)

const keyExtension = ".ecdsa"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Simple wallet for a fluerion node",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&nodeHost, "node", "n", "127.0.0.1:9000", "Command address of the node.")
	rootCmd.PersistentFlags().StringVarP(&privateKeyName, "wallet", "w", "private", "Name of the private key.")
	rootCmd.PersistentFlags().StringVarP(&walletPath, "wallet-path", "p", "zblock/wallets/", "Path to the directory with private keys.")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "Time allowed for each exchange with the node.")
}

func getPrivateKeyPath() string {
	name := privateKeyName
	if !strings.HasSuffix(name, keyExtension) {
		name += keyExtension
	}
	return filepath.Join(walletPath, name)
}

func client() wire.Client {
	return wire.Client{
		DialTimeout: timeout,
		IOTimeout:   timeout,
	}
}
