package agent

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/solagent/solagent-go/pkg/metrics"
	"github.com/solagent/solagent-go/pkg/solana"
	"github.com/solagent/solagent-go/pkg/solana/token"
	"github.com/solagent/solagent-go/pkg/usdc"
)

const closedAccountsMetricName = "agent.closed_token_accounts"

// CloseAccountsResult is the outcome of CloseEmptyTokenAccounts.
type CloseAccountsResult struct {
	// Closed is the number of accounts closed by confirmed transactions.
	Closed int

	// Signatures of the confirmed transactions, in order.
	Signatures []solana.Signature

	// Excluded are empty accounts deliberately left open.
	Excluded []ed25519.PublicKey

	// Unclosed are closable accounts whose transaction failed, or was never
	// attempted after an earlier failure.
	Unclosed []ed25519.PublicKey
}

// CloseEmptyTokenAccounts closes every empty token account of the wallet,
// under both token programs, reclaiming their rent. USDC accounts are kept
// open.
//
// Accounts are collected across both programs before being split into
// transactions of at most the configured number of instructions, further
// limited to what fits in a packet. On a failed
// transaction, the partial result is returned along with the error.
func (a *Agent) CloseEmptyTokenAccounts(ctx context.Context) (*CloseAccountsResult, error) {
	ctx, log, end, tracer := a.invocation(ctx, "CloseEmptyTokenAccounts")
	defer end()

	res, err := a.closeEmptyTokenAccounts(ctx, log)
	return res, fail(log, tracer, err)
}

func (a *Agent) closeEmptyTokenAccounts(ctx context.Context, log *logrus.Entry) (*CloseAccountsResult, error) {
	owner := a.wallet.PublicKey()
	res := &CloseAccountsResult{}

	var closable []ed25519.PublicKey
	var instructions []solana.Instruction
	for _, program := range []ed25519.PublicKey{token.ProgramKey, token.Token2022ProgramKey} {
		accounts, err := a.rpc.GetTokenAccountsByOwnerAndProgram(owner, program)
		if err != nil {
			return nil, err
		}

		for _, keyed := range accounts {
			var account token.Account
			if !account.Unmarshal(keyed.Account.Data) || !account.Closable() {
				continue
			}
			if !account.Owner.Equal(owner) {
				continue
			}
			if account.Mint.Equal(usdc.TokenMint) {
				res.Excluded = append(res.Excluded, keyed.PublicKey)
				continue
			}

			closable = append(closable, keyed.PublicKey)
			instructions = append(instructions, token.CloseAccount(program, keyed.PublicKey, owner, owner))
		}
	}

	log = log.WithFields(logrus.Fields{
		"closable": len(closable),
		"excluded": len(res.Excluded),
	})

	if len(instructions) == 0 {
		log.Debug("no empty token accounts")
		return res, nil
	}

	perBatch := int(a.conf.maxCloseInstructionsPerTx.Get(ctx))
	batchResult, err := a.pipeline.SubmitBatches(ctx, instructions, perBatch)
	if batchResult == nil {
		return nil, err
	}

	res.Closed = batchResult.Processed
	res.Signatures = batchResult.Signatures
	for _, index := range batchResult.Remaining {
		res.Unclosed = append(res.Unclosed, closable[index])
	}

	metrics.RecordCount(ctx, closedAccountsMetricName, uint64(res.Closed))

	log = log.WithFields(logrus.Fields{
		"closed":       res.Closed,
		"transactions": len(res.Signatures),
	})
	if err != nil {
		for _, account := range res.Unclosed {
			log.WithField("account", base58.Encode(account)).Debug("account left open")
		}
		return res, err
	}

	log.Info("empty token accounts closed")
	return res, nil
}
