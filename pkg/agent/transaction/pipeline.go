package transaction

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/solagent/solagent-go/pkg/metrics"
	"github.com/solagent/solagent-go/pkg/retry"
	"github.com/solagent/solagent-go/pkg/retry/backoff"
	"github.com/solagent/solagent-go/pkg/solana"
	"github.com/solagent/solagent-go/pkg/solana/computebudget"
)

const (
	metricsStructName = "transaction.pipeline"

	confirmedEventName        = "TransactionConfirmed"
	confirmationLatencyMetric = "Transaction.ConfirmationLatency"
)

var errPending = errors.New("transaction not yet confirmed")

// Pipeline assembles, signs, submits and confirms transactions paid for by a
// wallet.
//
// Failed RPC calls are never retried. Once a transaction is broadcast, only
// confirmation polling is repeated, until the confirmation timeout elapses.
type Pipeline struct {
	log    *logrus.Entry
	conf   *conf
	client solana.Client
	wallet solana.Signer

	pollRate time.Duration
}

// NewPipeline returns a Pipeline that pays fees with, and always signs using,
// wallet.
func NewPipeline(client solana.Client, wallet solana.Signer, configProvider ConfigProvider) *Pipeline {
	return &Pipeline{
		log:      logrus.StandardLogger().WithField("type", "agent/transaction"),
		conf:     configProvider(),
		client:   client,
		wallet:   wallet,
		pollRate: solana.PollRate,
	}
}

// Wallet returns the address paying for transactions.
func (p *Pipeline) Wallet() ed25519.PublicKey {
	return p.wallet.PublicKey()
}

// Assemble builds a transaction over a freshly fetched blockhash, paid for by
// the wallet and signed by exactly the signers the instructions require.
// oneShot provides signers, such as a new mint, that aren't the wallet.
func (p *Pipeline) Assemble(ctx context.Context, instructions []solana.Instruction, oneShot ...solana.Signer) (solana.Transaction, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Assemble")
	defer tracer.End()

	txn, err := p.assemble(ctx, nil, instructions, oneShot)
	tracer.OnError(err)
	return txn, err
}

func (p *Pipeline) assemble(ctx context.Context, tables []solana.AddressLookupTable, instructions []solana.Instruction, oneShot []solana.Signer) (solana.Transaction, error) {
	if len(instructions) == 0 {
		return solana.Transaction{}, solana.NewValidationError("instructions", "at least one instruction is required")
	}

	feePayer := p.wallet.PublicKey()
	instructions = p.withPriorityFee(ctx, instructions)

	// Signers are resolved before any network call, so a missing keypair
	// never costs a round trip.
	signers, err := SelectSigners(ResolveSigners(feePayer, instructions), append([]solana.Signer{p.wallet}, oneShot...)...)
	if err != nil {
		return solana.Transaction{}, err
	}

	bh, err := p.client.GetLatestBlockhash()
	if err != nil {
		return solana.Transaction{}, err
	}

	txn := compile(feePayer, tables, instructions)
	txn.SetBlockhash(bh)
	if err := txn.Sign(signers...); err != nil {
		return solana.Transaction{}, errors.Wrap(err, "failed to sign transaction")
	}

	if size := len(txn.Marshal()); size > solana.MaxTransactionSize {
		return solana.Transaction{}, solana.NewValidationError("instructions", "transaction is %d bytes, exceeding the %d byte limit", size, solana.MaxTransactionSize)
	}

	return txn, nil
}

func (p *Pipeline) withPriorityFee(ctx context.Context, instructions []solana.Instruction) []solana.Instruction {
	return computebudget.WithPriorityFee(instructions, p.conf.priorityFee.Get(ctx), 0)
}

// fits reports whether instructions, once assembled into a legacy
// transaction, fit in a single packet. Signature slots are sized from the
// message header, so the unsigned encoding has the signed length.
func (p *Pipeline) fits(ctx context.Context, instructions []solana.Instruction) bool {
	txn := compile(p.wallet.PublicKey(), nil, p.withPriorityFee(ctx, instructions))
	return len(txn.Marshal()) <= solana.MaxTransactionSize
}

func compile(feePayer ed25519.PublicKey, tables []solana.AddressLookupTable, instructions []solana.Instruction) solana.Transaction {
	if len(tables) > 0 {
		return solana.NewVersionedTransaction(feePayer, tables, instructions)
	}
	return solana.NewTransaction(feePayer, instructions...)
}

// SubmitInstructions assembles the instructions into a single transaction,
// submits it, and waits for confirmation.
//
// A confirmation timeout returns an AmbiguousOutcomeError. The transaction
// may still land, so it must not be rebuilt and resubmitted before its status
// is known.
func (p *Pipeline) SubmitInstructions(ctx context.Context, instructions []solana.Instruction, oneShot ...solana.Signer) (solana.Signature, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "SubmitInstructions")
	defer tracer.End()

	txn, err := p.assemble(ctx, nil, instructions, oneShot)
	if err != nil {
		tracer.OnError(err)
		return solana.Signature{}, err
	}

	sig, err := p.submitAndConfirm(ctx, txn)
	tracer.AddAttribute("signature", sig.String())
	tracer.OnError(err)
	return sig, err
}

// SubmitVersioned is SubmitInstructions for a v0 transaction that loads
// accounts through the given lookup tables. Without tables, a legacy
// transaction is built.
func (p *Pipeline) SubmitVersioned(ctx context.Context, tables []solana.AddressLookupTable, instructions []solana.Instruction, oneShot ...solana.Signer) (solana.Signature, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "SubmitVersioned")
	defer tracer.End()

	txn, err := p.assemble(ctx, tables, instructions, oneShot)
	if err != nil {
		tracer.OnError(err)
		return solana.Signature{}, err
	}

	sig, err := p.submitAndConfirm(ctx, txn)
	tracer.AddAttribute("signature", sig.String())
	tracer.OnError(err)
	return sig, err
}

// LoadLookupTables fetches and decodes the address lookup tables stored at
// addresses.
func (p *Pipeline) LoadLookupTables(ctx context.Context, addresses ...ed25519.PublicKey) ([]solana.AddressLookupTable, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "LoadLookupTables")
	defer tracer.End()
	tracer.AddAttribute("tables", len(addresses))

	tables := make([]solana.AddressLookupTable, 0, len(addresses))
	for _, address := range addresses {
		info, err := p.client.GetAccountInfo(address, solana.CommitmentConfirmed)
		if err != nil {
			tracer.OnError(err)
			return nil, errors.Wrapf(err, "failed to load lookup table %s", base58.Encode(address))
		}

		table, err := solana.ParseAddressLookupTable(address, info.Data)
		if err != nil {
			tracer.OnError(err)
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, nil
}

// SubmitTransaction submits an already signed transaction and waits for
// confirmation.
func (p *Pipeline) SubmitTransaction(ctx context.Context, txn solana.Transaction) (solana.Signature, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "SubmitTransaction")
	defer tracer.End()

	sig, err := p.submitAndConfirm(ctx, txn)
	tracer.AddAttribute("signature", sig.String())
	tracer.OnError(err)
	return sig, err
}

func (p *Pipeline) submitAndConfirm(ctx context.Context, txn solana.Transaction) (solana.Signature, error) {
	sig := txn.Signature()
	log := p.log.WithFields(logrus.Fields{
		"method":       "submitAndConfirm",
		"signature":    sig.String(),
		"instructions": len(txn.Message.Instructions),
	})

	commitment, err := p.commitment(ctx)
	if err != nil {
		return sig, err
	}

	sig, err = p.client.SubmitTransaction(txn, solana.SubmitOptions{
		SkipPreflight:       p.conf.skipPreflight.Get(ctx),
		PreflightCommitment: commitment,
	})
	switch {
	case err == nil:
	case solana.IsConnectivity(err):
		// The node may have received the transaction before the failure.
		return sig, &solana.AmbiguousOutcomeError{Signature: sig, Cause: err}
	default:
		return sig, err
	}

	log.Debug("transaction submitted")

	start := time.Now()
	if err := p.Confirm(ctx, sig); err != nil {
		return sig, err
	}

	latency := time.Since(start)
	metrics.RecordDuration(ctx, confirmationLatencyMetric, latency)
	metrics.RecordEvent(ctx, confirmedEventName, map[string]interface{}{
		"signature":    sig.String(),
		"instructions": len(txn.Message.Instructions),
		"commitment":   commitment.Commitment,
		"latency_ms":   latency.Milliseconds(),
	})

	log.Debug("transaction confirmed")
	return sig, nil
}

// Confirm polls the status of sig until it reaches the configured commitment,
// fails, or the confirmation timeout elapses.
//
// Failed polls don't end confirmation early. If the deadline passes, or ctx is
// cancelled, before a definitive status is observed, an AmbiguousOutcomeError
// is returned.
func (p *Pipeline) Confirm(ctx context.Context, sig solana.Signature) error {
	commitment, err := p.commitment(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.conf.confirmationTimeout.Get(ctx))
	defer cancel()

	_, err = retry.Retry(
		func() error {
			statuses, err := p.client.GetSignatureStatuses([]solana.Signature{sig})
			if err != nil {
				return err
			}

			if len(statuses) == 0 || statuses[0] == nil {
				return errPending
			}

			status := statuses[0]
			if status.ErrorResult != nil {
				return solana.NewRejectionError(solana.StageConfirm, sig, status.ErrorResult)
			}
			if !status.Reached(commitment) {
				return errPending
			}
			return nil
		},
		func(attempts uint, err error) bool {
			return errors.Is(err, errPending) || solana.IsConnectivity(err)
		},
		retry.Context(ctx),
		retry.ContextBackoff(ctx, backoff.Constant(p.pollRate), p.pollRate),
	)
	if err == nil || solana.IsRejection(err) {
		return err
	}

	return &solana.AmbiguousOutcomeError{
		Signature: sig,
		Cause:     errors.Wrap(err, "confirmation not observed before deadline"),
	}
}

func (p *Pipeline) commitment(ctx context.Context) (solana.Commitment, error) {
	commitment, err := solana.CommitmentFromString(p.conf.commitment.Get(ctx))
	if err != nil {
		return solana.Commitment{}, solana.NewValidationError("commitment", "%s", err.Error())
	}
	return commitment, nil
}
