package signature_test

import (
	"testing"

	"github.com/fluerion/node/foundation/blockchain/database"
	"github.com/fluerion/node/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

const pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

func Test_Signing(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the private key: %s", failed, err)
	}

	tx := database.Tx{Sender: signature.Address(pk), Receiver: "Bob", Amount: 50, TimeStamp: 1}

	t.Log("Given the need to sign transactions in the wallet.")
	{
		t.Logf("\tTest 0:\tWhen signing a transaction.")
		{
			sig, err := signature.Sign(tx, pk)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to sign: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to sign.", success)

			addr, err := signature.FromAddress(tx, sig)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to recover the address: %s", failed, err)
			}

			if addr != tx.Sender {
				t.Logf("\t\tTest 0:\tgot: %s", addr)
				t.Logf("\t\tTest 0:\texp: %s", tx.Sender)
				t.Fatalf("\t%s\tTest 0:\tShould recover the signing address.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould recover the signing address.", success)

			signed := tx.Sign(sig)
			if !signed.IsSigned() || tx.IsSigned() {
				t.Fatalf("\t%s\tTest 0:\tShould attach the signature to a copy.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould attach the signature to a copy.", success)
		}

		t.Logf("\tTest 1:\tWhen the value was changed after signing.")
		{
			sig, err := signature.Sign(tx, pk)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to sign: %s", failed, err)
			}

			changed := tx
			changed.Amount = 5000

			addr, err := signature.FromAddress(changed, sig)
			if err == nil && addr == tx.Sender {
				t.Fatalf("\t%s\tTest 1:\tShould not recover the signing address.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould not recover the signing address.", success)
		}

		t.Logf("\tTest 2:\tWhen the signature is malformed.")
		{
			if _, err := signature.FromAddress(tx, "0x1234"); err == nil {
				t.Fatalf("\t%s\tTest 2:\tShould fail.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould fail.", success)
		}
	}
}
