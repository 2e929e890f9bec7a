package metaplex

import (
	"crypto/ed25519"

	"github.com/solagent/solagent-go/pkg/solana"
)

var (
	MetadataPrefix = "metadata"
	EditionSuffix  = []byte("edition")
)

// GetMetadataAddress returns the metadata account of a mint.
func GetMetadataAddress(mint ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.DeriveAddress(
		MetadataPrefix,
		PROGRAM_ID,
		PROGRAM_ID,
		mint,
	)
}

// GetMasterEditionAddress returns the master edition account of a mint.
func GetMasterEditionAddress(mint ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.DeriveAddress(
		MetadataPrefix,
		PROGRAM_ID,
		PROGRAM_ID,
		mint,
		EditionSuffix,
	)
}
