package metaplex

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

var (
	ErrInvalidProgram         = errors.New("invalid program id")
	ErrInvalidInstructionData = errors.New("unexpected instruction data")
)

var (
	PROGRAM_ID = ed25519.PublicKey(mustBase58Decode("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"))

	SYSTEM_PROGRAM_ID  = ed25519.PublicKey(mustBase58Decode("11111111111111111111111111111111"))
	SYSVAR_RENT_PUBKEY = ed25519.PublicKey(mustBase58Decode("SysvarRent111111111111111111111111111111111"))
)

// Byte limits enforced by the token metadata program.
const (
	MaxNameLength           = 32
	MaxSymbolLength         = 10
	MaxURILength            = 200
	MaxCreators             = 5
	MaxSellerFeeBasisPoints = 10000
)

type InstructionType uint8

// Reference: https://github.com/metaplex-foundation/mpl-token-metadata/blob/main/programs/token-metadata/program/src/instruction/mod.rs
const (
	InstructionTypeCreateMasterEditionV3     InstructionType = 17
	InstructionTypeVerifyCollection          InstructionType = 18
	InstructionTypeVerifySizedCollectionItem InstructionType = 30
	InstructionTypeCreateMetadataAccountV3   InstructionType = 33
)

func mustBase58Decode(value string) []byte {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}
