package agent

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/solagent/solagent-go/pkg/pumpportal"
	"github.com/solagent/solagent-go/pkg/solana"
)

type PumpLaunchRequest struct {
	Name        string
	Symbol      string
	Description string
	ImageUrl    string

	Twitter  string
	Telegram string
	Website  string

	// InitialLiquidity is the SOL spent buying the new token at launch.
	InitialLiquidity decimal.Decimal
	SlippagePercent  uint32

	// PriorityFee is in SOL.
	PriorityFee decimal.Decimal
}

type PumpLaunchResult struct {
	Mint        ed25519.PublicKey
	MetadataUri string
	Signature   solana.Signature
}

// LaunchPumpToken launches a token on the pump bonding curve. A one-shot mint
// keypair is generated locally, and its address sent to the launch service,
// which builds a transaction both the wallet and the mint must sign.
func (a *Agent) LaunchPumpToken(ctx context.Context, req *PumpLaunchRequest) (*PumpLaunchResult, error) {
	ctx, log, end, tracer := a.invocation(ctx, "LaunchPumpToken")
	defer end()

	res, err := a.launchPumpToken(ctx, log, req)
	return res, fail(log, tracer, err)
}

func (a *Agent) launchPumpToken(ctx context.Context, log *logrus.Entry, req *PumpLaunchRequest) (*PumpLaunchResult, error) {
	mint, err := solana.NewKeypair()
	if err != nil {
		return nil, err
	}
	log = log.WithField("mint", base58.Encode(mint.PublicKey()))

	uri, err := a.pumpportal.UploadMetadata(ctx, &pumpportal.TokenMetadata{
		Name:        req.Name,
		Symbol:      req.Symbol,
		Description: req.Description,
		Twitter:     req.Twitter,
		Telegram:    req.Telegram,
		Website:     req.Website,
		ImageUrl:    req.ImageUrl,
	})
	if err != nil {
		return nil, err
	}

	envelope, err := a.pumpportal.GetCreateTransaction(ctx, &pumpportal.CreateRequest{
		Creator:          a.wallet.PublicKey(),
		Mint:             mint.PublicKey(),
		Name:             req.Name,
		Symbol:           req.Symbol,
		MetadataUri:      uri,
		InitialLiquidity: req.InitialLiquidity,
		SlippagePercent:  req.SlippagePercent,
		PriorityFee:      req.PriorityFee,
	})
	if err != nil {
		return nil, err
	}

	sig, err := a.pipeline.CoSign(ctx, envelope, mint)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"metadata_uri": uri,
		"signature":    sig.String(),
	}).Info("pump token launched")

	return &PumpLaunchResult{
		Mint:        mint.PublicKey(),
		MetadataUri: uri,
		Signature:   sig,
	}, nil
}
