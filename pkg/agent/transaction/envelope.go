package transaction

import (
	"bytes"
	"context"
	"encoding/base64"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/solagent/solagent-go/pkg/metrics"
	"github.com/solagent/solagent-go/pkg/solana"
)

// DecodeEnvelope decodes a transaction assembled by a remote service. The
// payload may be the raw wire encoding, or its base64 text form.
func DecodeEnvelope(payload []byte) (solana.Transaction, error) {
	var txn solana.Transaction
	if len(payload) == 0 {
		return txn, solana.NewValidationError("envelope", "empty payload")
	}

	rawErr := txn.Unmarshal(payload)
	if rawErr == nil {
		return txn, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(payload)))
	if err != nil {
		return solana.Transaction{}, solana.NewValidationError("envelope", "not a wire encoded transaction (%v), nor base64 (%v)", rawErr, err)
	}

	txn = solana.Transaction{}
	if err := txn.Unmarshal(decoded); err != nil {
		return solana.Transaction{}, solana.NewValidationError("envelope", "invalid transaction: %v", err)
	}
	return txn, nil
}

// DecodeBase64Envelope decodes a base64 encoded remote transaction.
func DecodeBase64Envelope(encoded string) (solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return solana.Transaction{}, solana.NewValidationError("envelope", "invalid base64: %v", err)
	}
	return DecodeEnvelope(raw)
}

// CoSign re-signs and submits a transaction assembled by a remote service.
//
// The remote blockhash is discarded and replaced with one fetched locally,
// since the service can't know when the plan will be signed. Every signer the
// envelope requires must be the wallet or one of oneShot, and every oneShot
// signer must be referenced by the envelope; otherwise an
// EnvelopeMismatchError is returned before anything is submitted.
func (p *Pipeline) CoSign(ctx context.Context, envelope []byte, oneShot ...solana.Signer) (solana.Signature, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "CoSign")
	defer tracer.End()

	txn, err := p.PrepareEnvelope(ctx, envelope, oneShot...)
	if err != nil {
		tracer.OnError(err)
		return solana.Signature{}, err
	}

	sig, err := p.submitAndConfirm(ctx, txn)
	tracer.OnError(err)
	return sig, err
}

// PrepareEnvelope performs the decode, refresh and co-sign steps of CoSign,
// without submitting.
func (p *Pipeline) PrepareEnvelope(ctx context.Context, envelope []byte, oneShot ...solana.Signer) (solana.Transaction, error) {
	txn, err := DecodeEnvelope(envelope)
	if err != nil {
		return solana.Transaction{}, err
	}

	held := append([]solana.Signer{p.wallet}, oneShot...)
	required := txn.RequiredSigners()

	mismatch := &solana.EnvelopeMismatchError{}
	for _, address := range required {
		if findSigner(held, address) == nil {
			mismatch.Missing = append(mismatch.Missing, address)
		}
	}
	for _, signer := range oneShot {
		if !containsKey(required, signer.PublicKey()) {
			mismatch.Unused = append(mismatch.Unused, signer.PublicKey())
		}
	}
	if len(mismatch.Missing) > 0 || len(mismatch.Unused) > 0 {
		return solana.Transaction{}, mismatch
	}

	signers, err := SelectSigners(required, held...)
	if err != nil {
		return solana.Transaction{}, err
	}

	remoteBlockhash := txn.Message.RecentBlockhash
	txn.ClearSignatures()

	bh, err := p.client.GetLatestBlockhash()
	if err != nil {
		return solana.Transaction{}, err
	}
	txn.SetBlockhash(bh)

	if err := txn.Sign(signers...); err != nil {
		return solana.Transaction{}, errors.Wrap(err, "failed to co-sign transaction")
	}

	p.log.WithFields(logrus.Fields{
		"method":           "PrepareEnvelope",
		"signature":        txn.Signature().String(),
		"remote_blockhash": remoteBlockhash.String(),
		"blockhash":        bh.String(),
		"signers":          len(signers),
	}).Debug("remote transaction co-signed")

	return txn, nil
}
