package solana

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
)

type Environment string

const (
	EnvironmentDev  Environment = "https://api.devnet.solana.com"
	EnvironmentTest Environment = "https://api.testnet.solana.com"
	EnvironmentProd Environment = "https://api.mainnet-beta.solana.com"
)

// LamportsPerSol is the number of lamports in one SOL.
const LamportsPerSol = 1_000_000_000

// ParsePublicKey decodes a base58 address, rejecting anything that isn't
// exactly 32 bytes.
func ParsePublicKey(encoded string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(encoded)
	if err != nil {
		return nil, NewValidationError("address", "invalid base58 %q", encoded)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, NewValidationError("address", "%q decodes to %d bytes", encoded, len(decoded))
	}
	return decoded, nil
}

func mustDecodeKey(encoded string) ed25519.PublicKey {
	decoded, err := base58.Decode(encoded)
	if err != nil {
		panic(err)
	}
	return decoded
}
