package ticketing

import (
	"crypto/ed25519"

	"github.com/tixchain/ticket-server/pkg/solana"
)

var (
	PROGRAM_ADDRESS = solana.MustPublicKeyFromString("Hx377JJrkGwzfUuhvAZTPHtFpKF1jh88k2xz3kVxw9rg")
	PROGRAM_ID      = ed25519.PublicKey(PROGRAM_ADDRESS)

	// PLATFORM_ADDRESS receives the platform share of every resale.
	PLATFORM_ADDRESS = solana.MustPublicKeyFromString("8tE8Xre2tmDRbqZ3oWz4GVXUTJ3c5NtCqVBMobU1b1GG")
)

var (
	SYSTEM_PROGRAM_ID           = solana.MustPublicKeyFromString("11111111111111111111111111111111")
	SPL_TOKEN_PROGRAM_ID        = solana.MustPublicKeyFromString("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	ASSOCIATED_TOKEN_PROGRAM_ID = solana.MustPublicKeyFromString("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)
