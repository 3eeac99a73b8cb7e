// Package codec decodes eth_call result words and encodes call payloads.
// All functions are pure and side-effect free.
package codec

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// WordSize is the width of one ABI-encoded word.
const WordSize = 32

var (
	// ErrOddLength is returned for hex strings with an odd digit count.
	ErrOddLength = errors.New("odd-length hex string")
	// ErrWordLength is returned when an address word is not exactly 32 bytes.
	ErrWordLength = errors.New("address word must be 32 bytes")
	// ErrWordOverflow is returned for big-endian input wider than 32 bytes.
	ErrWordOverflow = errors.New("value wider than 32 bytes")
)

// DecodeHex decodes a hex string with an optional 0x prefix into raw bytes.
func DecodeHex(s string) ([]byte, error) {
	cleaned := strings.TrimPrefix(s, "0x")
	if len(cleaned)%2 != 0 {
		return nil, ErrOddLength
	}
	b, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return b, nil
}

// AddressFromWord extracts an address from a 32-byte big-endian result word:
// the low 20 bytes carry the address.
func AddressFromWord(word []byte) (common.Address, error) {
	if len(word) != WordSize {
		return common.Address{}, ErrWordLength
	}
	return common.BytesToAddress(word[WordSize-common.AddressLength:]), nil
}

// U256FromBE decodes a big-endian byte slice, zero-padded on the left to 32
// bytes, into a 256-bit value.
func U256FromBE(b []byte) (*uint256.Int, error) {
	if len(b) > WordSize {
		return nil, ErrWordOverflow
	}
	var padded [WordSize]byte
	copy(padded[WordSize-len(b):], b)
	return new(uint256.Int).SetBytes(padded[:]), nil
}

// CallData assembles eth_call data from a 4-byte hex selector and 32-byte
// aligned arguments: "0x" + selector + args.
func CallData(selector string, args ...[]byte) string {
	var sb strings.Builder
	sb.WriteString("0x")
	sb.WriteString(selector)
	for _, arg := range args {
		var padded [WordSize]byte
		copy(padded[WordSize-len(arg):], arg)
		sb.WriteString(hex.EncodeToString(padded[:]))
	}
	return sb.String()
}
