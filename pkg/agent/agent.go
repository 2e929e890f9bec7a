package agent

import (
	"context"
	"crypto/ed25519"
	"net/http"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/solagent/solagent-go/pkg/agent/transaction"
	"github.com/solagent/solagent-go/pkg/agent/wallet"
	"github.com/solagent/solagent-go/pkg/cache"
	"github.com/solagent/solagent-go/pkg/gibwork"
	"github.com/solagent/solagent-go/pkg/jupiter"
	"github.com/solagent/solagent-go/pkg/metrics"
	"github.com/solagent/solagent-go/pkg/pumpportal"
	"github.com/solagent/solagent-go/pkg/rate"
	"github.com/solagent/solagent-go/pkg/solana"
	"github.com/solagent/solagent-go/pkg/solana/token"
	sync_util "github.com/solagent/solagent-go/pkg/sync"
)

const (
	metricsStructName = "agent"

	mintCacheBudget = 1024
	mintLockStripes = 64
)

// Agent runs on-chain operations on behalf of a single wallet. It holds no
// per-operation state, so one Agent may serve concurrent calls.
type Agent struct {
	log  *logrus.Entry
	conf *conf

	rpc      solana.Client
	wallet   solana.Signer
	pipeline *transaction.Pipeline

	httpClient *http.Client
	limiter    rate.Limiter

	jupiter    *jupiter.Client
	gibwork    *gibwork.Client
	pumpportal *pumpportal.Client

	mints     cache.Cache[*mintInfo]
	mintLocks *sync_util.StripedLock
}

type options struct {
	configProvider         ConfigProvider
	pipelineConfigProvider transaction.ConfigProvider
	httpClient             *http.Client
	limiter                rate.Limiter
}

type Option func(*options)

// WithConfig sets how agent and provider configuration is sourced.
func WithConfig(provider ConfigProvider) Option {
	return func(o *options) {
		o.configProvider = provider
	}
}

// WithPipelineConfig sets how submission configuration is sourced.
func WithPipelineConfig(provider transaction.ConfigProvider) Option {
	return func(o *options) {
		o.pipelineConfigProvider = provider
	}
}

// WithHttpClient sets the HTTP client used for remote plan providers.
func WithHttpClient(httpClient *http.Client) Option {
	return func(o *options) {
		o.httpClient = httpClient
	}
}

// WithLimiter throttles calls to remote plan providers.
func WithLimiter(limiter rate.Limiter) Option {
	return func(o *options) {
		o.limiter = limiter
	}
}

// New returns an Agent submitting through rpc and paying with, and signing
// as, wallet.
func New(rpc solana.Client, w solana.Signer, opts ...Option) (*Agent, error) {
	o := &options{
		configProvider:         WithEnvConfigs(),
		pipelineConfigProvider: transaction.WithEnvConfigs(),
		httpClient:             http.DefaultClient,
		limiter:                &rate.NoLimiter{},
	}
	for _, opt := range opts {
		opt(o)
	}

	if rpc == nil {
		return nil, errors.New("rpc client is required")
	}
	if w == nil || len(w.PublicKey()) != ed25519.PublicKeySize {
		return nil, errors.New("wallet is required")
	}

	a := &Agent{
		log:        logrus.StandardLogger().WithField("type", "agent"),
		conf:       o.configProvider(),
		rpc:        rpc,
		wallet:     w,
		pipeline:   transaction.NewPipeline(rpc, w, o.pipelineConfigProvider),
		httpClient: o.httpClient,
		limiter:    o.limiter,
		mints:      cache.NewCache[*mintInfo]("mints", mintCacheBudget),
		mintLocks:  sync_util.NewStripedLock(mintLockStripes),
	}

	ctx := context.Background()
	var err error

	a.jupiter, err = jupiter.NewClient(
		a.conf.jupiterBaseUrl.Get(ctx),
		jupiter.WithStakeBaseUrl(a.conf.jupiterStakeBaseUrl.Get(ctx)),
		jupiter.WithHttpClient(a.httpClient),
		jupiter.WithLimiter(a.limiter),
	)
	if err != nil {
		return nil, err
	}

	a.gibwork, err = gibwork.NewClient(a.conf.gibworkBaseUrl.Get(ctx), a.httpClient, a.limiter)
	if err != nil {
		return nil, err
	}

	a.pumpportal, err = pumpportal.NewClient(a.conf.pumpPortalBaseUrl.Get(ctx), a.conf.pumpIpfsBaseUrl.Get(ctx), a.httpClient, a.limiter)
	if err != nil {
		return nil, err
	}

	return a, nil
}

// NewFromSettings builds an Agent from loaded settings, connecting to the
// configured RPC endpoint.
func NewFromSettings(settings *Settings, opts ...Option) (*Agent, error) {
	w, err := wallet.Load(settings.PrivateKey)
	if err != nil {
		return nil, err
	}

	opts = append([]Option{
		WithConfig(WithOverrides(settings.AgentOverrides())),
		WithPipelineConfig(transaction.WithOverrides(settings.PipelineOverrides())),
	}, opts...)

	return New(solana.New(settings.RpcUrl), w, opts...)
}

// Wallet returns the agent's wallet address.
func (a *Agent) Wallet() ed25519.PublicKey {
	return a.wallet.PublicKey()
}

// Pipeline returns the pipeline the agent submits through.
func (a *Agent) Pipeline() *transaction.Pipeline {
	return a.pipeline
}

// invocation starts tracing a use case, and returns a logger identifying
// this call.
func (a *Agent) invocation(ctx context.Context, method string) (context.Context, *logrus.Entry, func(), *metrics.MethodTracer) {
	ctx, end := metrics.StartTransaction(ctx, metricsStructName+" "+method)
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, method)

	log := a.log.WithFields(logrus.Fields{
		"method":     method,
		"invocation": uuid.NewString(),
		"wallet":     base58.Encode(a.wallet.PublicKey()),
	})

	return ctx, log, func() {
		tracer.End()
		end()
	}, tracer
}

// fail records err against the invocation and returns it unchanged.
func fail(log *logrus.Entry, tracer *metrics.MethodTracer, err error) error {
	if err != nil {
		log.WithError(err).Warn("operation failed")
		tracer.OnError(err)
	}
	return err
}

type mintInfo struct {
	decimals byte
	program  ed25519.PublicKey
}

// getMintInfo returns the decimals and owning token program of mint. Both are
// immutable once initialized, so lookups are cached.
func (a *Agent) getMintInfo(mint ed25519.PublicKey) (*mintInfo, error) {
	key := base58.Encode(mint)
	if info, ok := a.mints.Retrieve(key); ok {
		return info, nil
	}

	// Concurrent lookups of the same mint share a single fetch.
	mu := a.mintLocks.Get(mint)
	mu.Lock()
	defer mu.Unlock()

	if info, ok := a.mints.Retrieve(key); ok {
		return info, nil
	}

	state, program, err := token.NewClient(a.rpc, mint).GetMint(solana.CommitmentConfirmed)
	if err == token.ErrAccountNotFound || err == token.ErrInvalidMint {
		return nil, solana.NewValidationError("mint", "%s is not a token mint", key)
	} else if err != nil {
		return nil, err
	}

	info := &mintInfo{decimals: state.Decimals, program: program}
	if err := a.mints.Insert(key, info, 1); err != nil && err != cache.ErrKeyExists {
		return nil, err
	}
	return info, nil
}
