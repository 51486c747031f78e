// Package signature provides the optional wallet signatures. The node
// carries a signature as an opaque string and never checks it.
package signature

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// stampPrefix is mixed into every signed hash so a signature produced for
// this ledger can't be replayed as an Ethereum message signature.
const stampPrefix = "\x19Fluerion Signed Message:\n32"

// =============================================================================

// Sign uses the specified private key to sign the JSON encoding of the
// value. The signature is returned as a 0x prefixed hex string of 65 bytes.
func Sign(value any, privateKey *ecdsa.PrivateKey) (string, error) {

	// Prepare the data for signing.
	data, err := stamp(value)
	if err != nil {
		return "", err
	}

	// Sign the hash with the private key to produce a signature.
	sig, err := crypto.Sign(data, privateKey)
	if err != nil {
		return "", err
	}

	// Check the public key extracted from the data and signature.
	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return "", err
	}
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), data, sig[:crypto.RecoveryIDOffset]) {
		return "", errors.New("invalid signature")
	}

	return hexutil.Encode(sig), nil
}

// FromAddress extracts the address of the key that signed the value. The
// exact same value that was signed must be provided.
func FromAddress(value any, sigStr string) (string, error) {
	sig, err := hexutil.Decode(sigStr)
	if err != nil {
		return "", fmt.Errorf("decode signature: %w", err)
	}

	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("signature length %d, exp %d", len(sig), crypto.SignatureLength)
	}

	data, err := stamp(value)
	if err != nil {
		return "", err
	}

	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return "", err
	}

	return crypto.PubkeyToAddress(*publicKey).String(), nil
}

// Address returns the account address of the private key.
func Address(privateKey *ecdsa.PrivateKey) string {
	return crypto.PubkeyToAddress(privateKey.PublicKey).String()
}

// =============================================================================

// stamp returns a hash of 32 bytes that represents this data with
// the Fluerion stamp embedded into the final hash.
func stamp(value any) ([]byte, error) {
	v, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	// Hash the data into a 32 byte array so every value has
	// the same length.
	txHash := crypto.Keccak256(v)

	return crypto.Keccak256([]byte(stampPrefix), txHash), nil
}
