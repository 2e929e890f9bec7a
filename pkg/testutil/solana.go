package testutil

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solagent/solagent-go/pkg/solana"
)

func GenerateSolanaKeypair(t *testing.T) *solana.Keypair {
	keypair, err := solana.NewKeypair()
	require.NoError(t, err)
	return keypair
}

func GenerateSolanaKeypairs(t *testing.T, n int) []*solana.Keypair {
	keypairs := make([]*solana.Keypair, n)
	for i := 0; i < n; i++ {
		keypairs[i] = GenerateSolanaKeypair(t)
	}
	return keypairs
}

func GenerateSolanaKeys(t *testing.T, n int) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, n)
	for i := 0; i < n; i++ {
		p, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = p
	}
	return keys
}
