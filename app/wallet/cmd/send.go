package cmd

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fluerion/node/foundation/blockchain/database"
	"github.com/fluerion/node/foundation/blockchain/signature"
	"github.com/fluerion/node/foundation/wire"
	"github.com/spf13/cobra"
)

var (
	from   string
	to     string
	amount float64
	sign   bool
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a transaction to the node",
	RunE:  sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&from, "from", "f", "", "Sender of the transaction, the wallet address when empty.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Receiver of the transaction.")
	sendCmd.Flags().Float64VarP(&amount, "amount", "a", 0, "Amount to send.")
	sendCmd.Flags().BoolVarP(&sign, "sign", "s", true, "Sign the transaction with the wallet key.")
	sendCmd.MarkFlagRequired("to")
}

func sendRun(cmd *cobra.Command, args []string) error {
	tx, err := buildTx()
	if err != nil {
		return err
	}

	msg, err := wire.Encode(wire.CmdNewTransaction, tx)
	if err != nil {
		return err
	}

	resp, err := client().Send(cmd.Context(), nodeHost, msg)
	if err != nil {
		return err
	}

	fmt.Println(resp)
	if resp != wire.RespTransactionAdded {
		return errors.New("transaction not accepted")
	}

	return nil
}

// buildTx constructs the transaction, signing it when a key is used.
func buildTx() (database.Tx, error) {
	if !sign {
		if from == "" {
			return database.Tx{}, errors.New("--from is required for unsigned transactions")
		}
		return database.NewTx(from, to, amount), nil
	}

	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		return database.Tx{}, err
	}

	sender := from
	if sender == "" {
		sender = signature.Address(privateKey)
	}

	tx := database.NewTx(sender, to, amount)

	sig, err := signature.Sign(tx, privateKey)
	if err != nil {
		return database.Tx{}, err
	}

	return tx.Sign(sig), nil
}
