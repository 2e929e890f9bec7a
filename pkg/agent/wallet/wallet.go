package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"os"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/solagent/solagent-go/pkg/solana"
)

var ErrInvalidKey = errors.New("invalid wallet key")

// Load decodes a wallet private key. Both the base58 string exported by
// browser wallets and the JSON byte array written by the Solana CLI are
// accepted, holding either a 64 byte secret key or its 32 byte seed.
func Load(value string) (*solana.Keypair, error) {
	value = strings.TrimSpace(value)
	if len(value) == 0 {
		return nil, errors.Wrap(ErrInvalidKey, "empty key")
	}

	var raw []byte
	if strings.HasPrefix(value, "[") {
		var values []byte
		var ints []int
		if err := json.Unmarshal([]byte(value), &ints); err != nil {
			return nil, errors.Wrap(ErrInvalidKey, "malformed json byte array")
		}
		for _, v := range ints {
			if v < 0 || v > 255 {
				return nil, errors.Wrapf(ErrInvalidKey, "byte value %d out of range", v)
			}
			values = append(values, byte(v))
		}
		raw = values
	} else {
		decoded, err := base58.Decode(value)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidKey, "malformed base58")
		}
		raw = decoded
	}

	return fromBytes(raw)
}

// LoadFile reads a key stored in the format accepted by Load.
func LoadFile(path string) (*solana.Keypair, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "error reading wallet file")
	}
	return Load(string(contents))
}

// ToBase58 encodes the full secret key of kp in the format browser wallets
// import.
func ToBase58(kp *solana.Keypair) string {
	return base58.Encode(kp.PrivateKey())
}

func fromBytes(raw []byte) (*solana.Keypair, error) {
	switch len(raw) {
	case ed25519.SeedSize:
		return solana.KeypairFromPrivateKey(ed25519.NewKeyFromSeed(raw))
	case ed25519.PrivateKeySize:
		key := ed25519.PrivateKey(raw)

		// The trailing half must be the public key of the seed.
		expected := ed25519.NewKeyFromSeed(key.Seed())
		if !expected.Equal(key) {
			return nil, errors.Wrap(ErrInvalidKey, "public key does not match secret")
		}
		return solana.KeypairFromPrivateKey(key)
	default:
		return nil, errors.Wrapf(ErrInvalidKey, "unexpected key length %d", len(raw))
	}
}
