package domain

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// WSOLMint is the wrapped SOL mint address, the reference currency
// for qualifying buys.
const WSOLMint = "So11111111111111111111111111111111111111112"

// ValidateTokenAddress checks that addr is a well-formed Solana public key:
// base58 text decoding to exactly 32 bytes.
func ValidateTokenAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("token address is empty")
	}
	decoded, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("token address is not valid base58: %w", err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("token address decodes to %d bytes, want 32", len(decoded))
	}
	return nil
}

// IsOnCurve reports whether addr is a valid ed25519 curve point.
// Mint accounts are regular keypair-derived addresses; program-derived
// addresses are off-curve.
func IsOnCurve(addr string) bool {
	decoded, err := base58.Decode(addr)
	if err != nil || len(decoded) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(decoded)
	return err == nil
}
