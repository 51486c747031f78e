package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fluerion/node/foundation/blockchain/signature"
	"github.com/fluerion/node/foundation/wire"
	"github.com/spf13/cobra"
)

var address string

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print the balance of an address",
	RunE: func(cmd *cobra.Command, args []string) error {
		if address == "" {
			privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
			if err != nil {
				return err
			}
			address = signature.Address(privateKey)
		}

		resp, err := client().Send(cmd.Context(), nodeHost, wire.CmdGetBalance+address)
		if err != nil {
			return err
		}

		balance, err := parseBalance(resp)
		if err != nil {
			return err
		}

		fmt.Printf("%s: %s\n", address, strconv.FormatFloat(balance, 'f', -1, 64))
		return nil
	},
}

// parseBalance extracts the balance from a GET_BALANCE response.
func parseBalance(resp string) (float64, error) {
	if strings.HasPrefix(resp, wire.RespError) {
		return 0, fmt.Errorf("node: %s", resp)
	}

	balance, err := strconv.ParseFloat(strings.TrimSpace(resp), 64)
	if err != nil {
		return 0, &wire.DecodeError{Command: wire.CmdGetBalance, Err: fmt.Errorf("unexpected response %q", resp)}
	}

	return balance, nil
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVarP(&address, "address", "a", "", "Address to query, the wallet address when empty.")
}
