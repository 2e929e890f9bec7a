package agent

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/solagent/solagent-go/pkg/jupiter"
	"github.com/solagent/solagent-go/pkg/solana"
)

type SwapRequest struct {
	// InputMint defaults to SOL.
	InputMint  ed25519.PublicKey
	OutputMint ed25519.PublicKey

	// InputAmount is in display units of the input mint.
	InputAmount decimal.Decimal

	// SlippageBps defaults to jupiter.DefaultSlippageBps.
	SlippageBps uint32
}

type SwapResult struct {
	Signature solana.Signature

	InputAmount uint64

	// MinimumOutputAmount is the least the swap could have produced, after
	// slippage, in base units of the output mint.
	MinimumOutputAmount uint64
}

// Swap exchanges tokens along the best Jupiter route. The route's instructions
// are assembled and signed locally.
func (a *Agent) Swap(ctx context.Context, req *SwapRequest) (*SwapResult, error) {
	ctx, log, end, tracer := a.invocation(ctx, "Swap")
	defer end()

	res, err := a.swap(ctx, log, req)
	return res, fail(log, tracer, err)
}

func (a *Agent) swap(ctx context.Context, log *logrus.Entry, req *SwapRequest) (*SwapResult, error) {
	if len(req.OutputMint) != ed25519.PublicKeySize {
		return nil, solana.NewValidationError("output mint", "must be a %d byte address", ed25519.PublicKeySize)
	}

	inputMint := req.InputMint
	if len(inputMint) == 0 {
		inputMint = jupiter.WrappedSolMint
	}

	var decimals byte = solDecimals
	if !inputMint.Equal(jupiter.WrappedSolMint) {
		info, err := a.getMintInfo(inputMint)
		if err != nil {
			return nil, err
		}
		decimals = info.decimals
	}

	amount, err := toBaseUnits("input amount", req.InputAmount, decimals)
	if err != nil {
		return nil, err
	}

	quote, err := a.jupiter.GetQuote(ctx, jupiter.QuoteRequest{
		InputMint:   inputMint,
		OutputMint:  req.OutputMint,
		Amount:      amount,
		SlippageBps: req.SlippageBps,
	})
	if err != nil {
		return nil, err
	}

	swapInstructions, err := a.jupiter.GetSwapInstructions(ctx, quote, a.wallet.PublicKey(), nil)
	if err != nil {
		return nil, err
	}

	tables, err := a.pipeline.LoadLookupTables(ctx, swapInstructions.AddressLookupTableAddresses...)
	if err != nil {
		return nil, err
	}

	sig, err := a.pipeline.SubmitVersioned(ctx, tables, swapInstructions.Instructions())
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"input_mint":  base58.Encode(inputMint),
		"output_mint": base58.Encode(req.OutputMint),
		"amount":      amount,
		"signature":   sig.String(),
	}).Info("swap confirmed")

	return &SwapResult{
		Signature:           sig,
		InputAmount:         quote.GetInAmount(),
		MinimumOutputAmount: quote.GetEstimatedSwapAmount(),
	}, nil
}

// Stake stakes SOL into jupSOL. The staking transaction is built remotely,
// then refreshed and co-signed locally.
func (a *Agent) Stake(ctx context.Context, amount decimal.Decimal) (solana.Signature, error) {
	ctx, log, end, tracer := a.invocation(ctx, "Stake")
	defer end()

	sig, err := a.stake(ctx, log, amount)
	return sig, fail(log, tracer, err)
}

func (a *Agent) stake(ctx context.Context, log *logrus.Entry, amount decimal.Decimal) (solana.Signature, error) {
	if _, err := toBaseUnits("amount", amount, solDecimals); err != nil {
		return solana.Signature{}, err
	}

	envelope, err := a.jupiter.GetStakeTransaction(ctx, a.wallet.PublicKey(), amount)
	if err != nil {
		return solana.Signature{}, err
	}

	sig, err := a.pipeline.CoSign(ctx, envelope)
	if err != nil {
		return sig, err
	}

	log.WithFields(logrus.Fields{
		"amount":    amount.String(),
		"signature": sig.String(),
	}).Info("stake confirmed")

	return sig, nil
}
