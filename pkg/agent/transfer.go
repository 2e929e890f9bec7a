package agent

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/solagent/solagent-go/pkg/solana"
	"github.com/solagent/solagent-go/pkg/solana/memo"
	"github.com/solagent/solagent-go/pkg/solana/system"
	"github.com/solagent/solagent-go/pkg/solana/token"
)

type TransferRequest struct {
	To ed25519.PublicKey

	// Amount is in display units: SOL, or whole tokens of Mint.
	Amount decimal.Decimal

	// Mint selects a token transfer. Nil transfers SOL.
	Mint ed25519.PublicKey

	// Memo is attached to the transfer when set.
	Memo string
}

// Transfer sends SOL or tokens from the wallet. Token transfers create the
// recipient's associated account when it doesn't exist.
func (a *Agent) Transfer(ctx context.Context, req *TransferRequest) (solana.Signature, error) {
	ctx, log, end, tracer := a.invocation(ctx, "Transfer")
	defer end()

	sig, err := a.transfer(ctx, log, req)
	return sig, fail(log, tracer, err)
}

func (a *Agent) transfer(ctx context.Context, log *logrus.Entry, req *TransferRequest) (solana.Signature, error) {
	if len(req.To) != ed25519.PublicKeySize {
		return solana.Signature{}, solana.NewValidationError("to", "must be a %d byte address", ed25519.PublicKeySize)
	}
	if len(req.Memo) > 0 {
		if err := memo.Validate(req.Memo); err != nil {
			return solana.Signature{}, err
		}
	}

	owner := a.wallet.PublicKey()

	var instructions []solana.Instruction
	if len(req.Mint) == 0 {
		lamports, err := toBaseUnits("amount", req.Amount, solDecimals)
		if err != nil {
			return solana.Signature{}, err
		}
		instructions = append(instructions, system.Transfer(owner, req.To, lamports))
	} else {
		info, err := a.getMintInfo(req.Mint)
		if err != nil {
			return solana.Signature{}, err
		}

		quarks, err := toBaseUnits("amount", req.Amount, info.decimals)
		if err != nil {
			return solana.Signature{}, err
		}

		source, err := token.GetAssociatedAccount(owner, req.Mint, info.program)
		if err != nil {
			return solana.Signature{}, err
		}
		createDest, dest, err := token.CreateAssociatedTokenAccountIdempotent(owner, req.To, req.Mint, info.program)
		if err != nil {
			return solana.Signature{}, err
		}

		instructions = append(
			instructions,
			createDest,
			token.TransferChecked(info.program, source, req.Mint, dest, owner, quarks, info.decimals),
		)
	}

	if len(req.Memo) > 0 {
		instructions = append(instructions, memo.Instruction(req.Memo))
	}

	sig, err := a.pipeline.SubmitInstructions(ctx, instructions)
	if err != nil {
		return sig, err
	}

	fields := logrus.Fields{
		"to":        base58.Encode(req.To),
		"amount":    req.Amount.String(),
		"signature": sig.String(),
	}
	if len(req.Mint) > 0 {
		fields["mint"] = base58.Encode(req.Mint)
	}
	log.WithFields(fields).Info("transfer confirmed")

	return sig, nil
}
