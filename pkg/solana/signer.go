package solana

import (
	"crypto/ed25519"
	"crypto/rand"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// Signer is a signing authority for a single address.
//
// Implementations hold only static key material and must be safe to use
// concurrently across independent transactions.
type Signer interface {
	PublicKey() ed25519.PublicKey
	Sign(message []byte) ([]byte, error)
}

// Keypair is an in-memory ed25519 Signer.
type Keypair struct {
	key ed25519.PrivateKey
}

// NewKeypair generates a fresh keypair. It's typically used for one-shot
// accounts, such as a new mint, that only sign the transaction creating them.
func NewKeypair() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate keypair")
	}
	return &Keypair{key: priv}, nil
}

// KeypairFromPrivateKey wraps an existing ed25519 private key.
func KeypairFromPrivateKey(key ed25519.PrivateKey) (*Keypair, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("invalid private key size: %d", len(key))
	}
	return &Keypair{key: key}, nil
}

// KeypairFromBase58 decodes a base58 encoded 64 byte private key, which is the
// format produced by most wallets when exporting a key.
func KeypairFromBase58(encoded string) (*Keypair, error) {
	decoded, err := base58.Decode(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "invalid base58 private key")
	}
	return KeypairFromPrivateKey(decoded)
}

// PublicKey implements Signer.PublicKey.
func (k *Keypair) PublicKey() ed25519.PublicKey {
	return k.key.Public().(ed25519.PublicKey)
}

// Sign implements Signer.Sign.
func (k *Keypair) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(k.key, message), nil
}

// PrivateKey returns the underlying private key.
func (k *Keypair) PrivateKey() ed25519.PrivateKey {
	return k.key
}

// String returns the base58 encoded public key.
func (k *Keypair) String() string {
	return base58.Encode(k.PublicKey())
}
