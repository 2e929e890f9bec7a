package usdc

import (
	"crypto/ed25519"

	"github.com/solagent/solagent-go/pkg/solana"
)

const (
	// Mint is the address of the USDC mint on mainnet
	Mint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

	Decimals      = 6
	QuarksPerUsdc = 1_000_000
)

var TokenMint ed25519.PublicKey

func init() {
	var err error
	TokenMint, err = solana.ParsePublicKey(Mint)
	if err != nil {
		panic(err)
	}
}
