package transaction

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/solagent/solagent-go/pkg/metrics"
	"github.com/solagent/solagent-go/pkg/solana"
)

// DefaultMaxInstructionsPerBatch is the default number of instructions packed
// into one transaction when splitting a bulk operation.
const DefaultMaxInstructionsPerBatch = 40

// BatchResult is the aggregate outcome of SubmitBatches.
type BatchResult struct {
	// Signatures of the batches that were confirmed, in order.
	Signatures []solana.Signature

	// Processed is the number of instructions in confirmed batches.
	Processed int

	// Remaining holds the indexes, into the submitted instruction list, of
	// instructions that were not confirmed: those of the failed batch and of
	// every batch after it.
	Remaining []int

	// FailedBatch is the index of the batch that failed, or -1.
	FailedBatch int

	// Err is the failure of FailedBatch, if any.
	Err error
}

// Complete reports whether every batch was confirmed.
func (r *BatchResult) Complete() bool {
	return r.Err == nil
}

// PackBatches splits instructions into consecutive batches of at most
// perBatch, preserving order. A batch is shortened further when its assembled
// transaction, priority fee included, would exceed the packet size. An
// instruction too large to fit on its own still gets a batch, and fails at
// assembly.
func (p *Pipeline) PackBatches(ctx context.Context, instructions []solana.Instruction, perBatch int) ([][]solana.Instruction, error) {
	if perBatch <= 0 {
		return nil, solana.NewValidationError("batch size", "must be positive, got %d", perBatch)
	}

	var batches [][]solana.Instruction
	for start := 0; start < len(instructions); {
		end := start + perBatch
		if end > len(instructions) {
			end = len(instructions)
		}
		for end-start > 1 && !p.fits(ctx, instructions[start:end]) {
			end--
		}

		batches = append(batches, instructions[start:end:end])
		start = end
	}
	return batches, nil
}

// SubmitBatches packs the instructions into batches of at most perBatch that
// each fit in a packet, then assembles, submits and confirms each batch as its
// own transaction, in order.
//
// Submission stops at the first failed batch. The result always reports what
// was confirmed, along with the instructions left unconfirmed, and the error
// of the failed batch is also returned.
func (p *Pipeline) SubmitBatches(ctx context.Context, instructions []solana.Instruction, perBatch int) (*BatchResult, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "SubmitBatches")
	defer tracer.End()

	batches, err := p.PackBatches(ctx, instructions, perBatch)
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	log := p.log.WithFields(logrus.Fields{
		"method":       "SubmitBatches",
		"instructions": len(instructions),
		"batches":      len(batches),
	})

	result := &BatchResult{FailedBatch: -1}

	offset := 0
	for i, batch := range batches {
		sig, err := p.SubmitInstructions(ctx, batch)
		if err != nil {
			log.WithError(err).WithField("batch", i).Warn("batch failed, remaining batches not attempted")

			result.FailedBatch = i
			result.Err = errors.Wrapf(err, "batch %d of %d failed", i+1, len(batches))
			for j := offset; j < len(instructions); j++ {
				result.Remaining = append(result.Remaining, j)
			}

			tracer.OnError(result.Err)
			return result, result.Err
		}

		result.Signatures = append(result.Signatures, sig)
		result.Processed += len(batch)
		offset += len(batch)
	}

	return result, nil
}
