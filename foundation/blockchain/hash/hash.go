// Package hash provides the digest used to link and seal blocks.
package hash

import (
	"crypto/sha512"
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Size is the number of bytes in a digest.
const Size = 32

// Hash256 represents a 32 byte digest.
type Hash256 [Size]byte

// Zero represents a digest of all zeros. It is the previous hash of the
// genesis block.
var Zero Hash256

// Calculate produces the digest for the specified inputs. The three inputs
// are concatenated in order and hashed with SHA-512. The first 32 bytes of
// that digest are kept.
func Calculate(timestamp string, prevHash Hash256, payload string) Hash256 {
	h := sha512.New()
	h.Write([]byte(timestamp))
	h.Write(prevHash[:])
	h.Write([]byte(payload))

	var out Hash256
	copy(out[:], h.Sum(nil))

	return out
}

// ToHex renders the digest as 64 lowercase hex characters. This is the form
// the proof of work check is performed against.
func ToHex(h Hash256) string {
	return hex.EncodeToString(h[:])
}

// HasZeroPrefix reports if the hex form of the digest starts with at
// least n '0' characters.
func HasZeroPrefix(h Hash256, n uint) bool {
	if n > Size*2 {
		return false
	}

	return strings.HasPrefix(ToHex(h), strings.Repeat("0", int(n)))
}

// IsZero reports if all bytes of the digest are zero.
func (h Hash256) IsZero() bool {
	return h == Zero
}

// String implements the fmt.Stringer interface for logging.
func (h Hash256) String() string {
	return hexutil.Encode(h[:])
}

// Short returns the first 8 bytes in hex for compact log lines.
func (h Hash256) Short() string {
	return ToHex(h)[:16]
}
