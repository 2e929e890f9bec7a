package agent

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/solagent/solagent-go/pkg/solana"
)

// solDecimals is the number of decimal places of SOL, in lamports.
const solDecimals = 9

var maxUint64 = newDecimalFromUint64(math.MaxUint64)

// toBaseUnits converts a display amount into the base units of an asset with
// the given decimals. Amounts that aren't a positive whole number of base
// units are rejected rather than rounded.
func toBaseUnits(field string, amount decimal.Decimal, decimals byte) (uint64, error) {
	if !amount.IsPositive() {
		return 0, solana.NewValidationError(field, "must be positive, got %s", amount.String())
	}

	shifted := amount.Shift(int32(decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, solana.NewValidationError(field, "%s has more than %d decimal places", amount.String(), decimals)
	}
	if shifted.GreaterThan(maxUint64) {
		return 0, solana.NewValidationError(field, "%s exceeds the maximum amount", amount.String())
	}

	return shifted.BigInt().Uint64(), nil
}

// fromBaseUnits converts base units into a display amount.
func fromBaseUnits(quarks uint64, decimals byte) decimal.Decimal {
	return newDecimalFromUint64(quarks).Shift(-int32(decimals))
}

func lamportsToSol(lamports uint64) decimal.Decimal {
	return fromBaseUnits(lamports, solDecimals)
}

func newDecimalFromUint64(value uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(value), 0)
}
