package agent

import (
	"context"
	"crypto/ed25519"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/solagent/solagent-go/pkg/gibwork"
	"github.com/solagent/solagent-go/pkg/solana"
)

type GibworkTaskRequest struct {
	Title        string
	Content      string
	Requirements string
	Tags         []string

	// TokenMint and TokenAmount set the bounty, in display units.
	TokenMint   ed25519.PublicKey
	TokenAmount decimal.Decimal
}

type GibworkTaskResult struct {
	TaskId    string
	Signature solana.Signature
}

// CreateGibworkTask posts a paid task to the gibwork marketplace and funds it
// by co-signing the marketplace's transaction. The wallet always pays, since
// it is the only fee payer the agent can sign for.
func (a *Agent) CreateGibworkTask(ctx context.Context, req *GibworkTaskRequest) (*GibworkTaskResult, error) {
	ctx, log, end, tracer := a.invocation(ctx, "CreateGibworkTask")
	defer end()

	res, err := a.createGibworkTask(ctx, log, req)
	return res, fail(log, tracer, err)
}

func (a *Agent) createGibworkTask(ctx context.Context, log *logrus.Entry, req *GibworkTaskRequest) (*GibworkTaskResult, error) {
	created, err := a.gibwork.CreateTask(ctx, &gibwork.Task{
		Title:        req.Title,
		Content:      req.Content,
		Requirements: req.Requirements,
		Tags:         req.Tags,
		TokenMint:    req.TokenMint,
		TokenAmount:  req.TokenAmount,
		Payer:        a.wallet.PublicKey(),
	})
	if err != nil {
		return nil, err
	}

	log = log.WithField("task_id", created.TaskId)

	sig, err := a.pipeline.CoSign(ctx, created.Envelope)
	if err != nil {
		return nil, err
	}

	log.WithField("signature", sig.String()).Info("task funded")

	return &GibworkTaskResult{TaskId: created.TaskId, Signature: sig}, nil
}
