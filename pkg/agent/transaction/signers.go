package transaction

import (
	"bytes"
	"crypto/ed25519"

	"github.com/solagent/solagent-go/pkg/solana"
)

// ResolveSigners returns the addresses that must sign a transaction paying
// for the instructions with feePayer: the fee payer first, then every account
// marked signer in order of first appearance, without duplicates.
func ResolveSigners(feePayer ed25519.PublicKey, instructions []solana.Instruction) []ed25519.PublicKey {
	signers := []ed25519.PublicKey{feePayer}
	for _, ixn := range instructions {
		for _, account := range ixn.Accounts {
			if !account.IsSigner || containsKey(signers, account.PublicKey) {
				continue
			}
			signers = append(signers, account.PublicKey)
		}
	}
	return signers
}

// SelectSigners picks, for every required address, the held signer for it.
// Held signers that aren't required are left out. If any required address has
// no held signer, a MissingSignerError listing all of them is returned.
func SelectSigners(required []ed25519.PublicKey, held ...solana.Signer) ([]solana.Signer, error) {
	var selected []solana.Signer
	var missing []ed25519.PublicKey

	for _, address := range required {
		signer := findSigner(held, address)
		if signer == nil {
			missing = append(missing, address)
			continue
		}
		selected = append(selected, signer)
	}

	if len(missing) > 0 {
		return nil, &solana.MissingSignerError{Missing: missing}
	}
	return selected, nil
}

func findSigner(held []solana.Signer, address ed25519.PublicKey) solana.Signer {
	for _, signer := range held {
		if signer != nil && bytes.Equal(signer.PublicKey(), address) {
			return signer
		}
	}
	return nil
}

func containsKey(keys []ed25519.PublicKey, key ed25519.PublicKey) bool {
	for _, k := range keys {
		if bytes.Equal(k, key) {
			return true
		}
	}
	return false
}
