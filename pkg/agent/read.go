package agent

import (
	"context"
	"crypto/ed25519"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/solagent/solagent-go/pkg/solana"
	"github.com/solagent/solagent-go/pkg/solana/token"
)

// GetBalance returns the SOL balance of account, or of the wallet when
// account is nil.
func (a *Agent) GetBalance(ctx context.Context, account ed25519.PublicKey) (decimal.Decimal, error) {
	_, log, end, tracer := a.invocation(ctx, "GetBalance")
	defer end()

	if len(account) == 0 {
		account = a.wallet.PublicKey()
	}

	lamports, err := a.rpc.GetBalance(account)
	if err != nil {
		return decimal.Zero, fail(log, tracer, err)
	}
	return lamportsToSol(lamports), nil
}

// GetTokenBalance returns the balance of mint held by owner, or by the wallet
// when owner is nil. The associated account is read first. Without one, the
// balances of any other accounts owner holds for mint are summed, and an owner
// with no accounts holds a zero balance.
func (a *Agent) GetTokenBalance(ctx context.Context, mint, owner ed25519.PublicKey) (decimal.Decimal, error) {
	_, log, end, tracer := a.invocation(ctx, "GetTokenBalance")
	defer end()

	balance, err := a.getTokenBalance(mint, owner)
	return balance, fail(log, tracer, err)
}

func (a *Agent) getTokenBalance(mint, owner ed25519.PublicKey) (decimal.Decimal, error) {
	if len(owner) == 0 {
		owner = a.wallet.PublicKey()
	}

	info, err := a.getMintInfo(mint)
	if err != nil {
		return decimal.Zero, err
	}

	ata, err := token.GetAssociatedAccount(owner, mint, info.program)
	if err != nil {
		return decimal.Zero, err
	}

	quarks, err := a.tokenAccountQuarks(ata)
	if err == nil {
		return fromBaseUnits(quarks, info.decimals), nil
	} else if err != solana.ErrNoBalance {
		return decimal.Zero, err
	}

	accounts, err := a.rpc.GetTokenAccountsByOwner(owner, mint)
	if err != nil {
		return decimal.Zero, err
	}

	var total uint64
	for _, account := range accounts {
		quarks, err := a.tokenAccountQuarks(account)
		if err == solana.ErrNoBalance {
			continue
		} else if err != nil {
			return decimal.Zero, err
		}
		total += quarks
	}
	return fromBaseUnits(total, info.decimals), nil
}

func (a *Agent) tokenAccountQuarks(account ed25519.PublicKey) (uint64, error) {
	amount, err := a.rpc.GetTokenAccountBalance(account)
	if err != nil {
		return 0, err
	}
	return amount.Quarks()
}

// RequestFunds airdrops SOL to the wallet and waits for it to confirm. Only
// development clusters honour airdrops.
func (a *Agent) RequestFunds(ctx context.Context) (solana.Signature, error) {
	ctx, log, end, tracer := a.invocation(ctx, "RequestFunds")
	defer end()

	lamports := a.conf.airdropAmount.Get(ctx)
	sig, err := a.rpc.RequestAirdrop(a.wallet.PublicKey(), lamports, solana.CommitmentConfirmed)
	if err != nil {
		return sig, fail(log, tracer, err)
	}

	if err := a.pipeline.Confirm(ctx, sig); err != nil {
		return sig, fail(log, tracer, err)
	}

	log.WithFields(logrus.Fields{
		"amount":    lamportsToSol(lamports).String(),
		"signature": sig.String(),
	}).Info("airdrop confirmed")

	return sig, nil
}
