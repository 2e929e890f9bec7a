package jupiter

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/solagent/solagent-go/pkg/metrics"
	"github.com/solagent/solagent-go/pkg/netutil"
	"github.com/solagent/solagent-go/pkg/rate"
	"github.com/solagent/solagent-go/pkg/solana"
)

// Reference: https://station.jup.ag/docs/apis/swap-api

const (
	DefaultApiBaseUrl   = "https://quote-api.jup.ag/v6/"
	DefaultStakeBaseUrl = "https://worker.jup.ag/blinks/swap/"

	// DefaultSlippageBps is used when a quote request doesn't set one.
	DefaultSlippageBps = 300

	quoteEndpointName            = "quote"
	swapInstructionsEndpointName = "swap-instructions"

	metricsStructName = "jupiter.client"
)

var (
	// WrappedSolMint is the mint used to quote native SOL.
	WrappedSolMint = mustParseKey("So11111111111111111111111111111111111111112")

	// JupSolMint is the liquid staking token received when staking.
	JupSolMint = mustParseKey("jupSoLaHXQiZZTSfEWMTRRgpnyFm8f6sZdosWBjx93v")
)

type Client struct {
	log          *logrus.Entry
	baseUrl      string
	stakeBaseUrl string
	httpClient   *http.Client
	limiter      rate.Limiter
}

type Option func(*Client)

// WithHttpClient overrides the default HTTP client.
func WithHttpClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithStakeBaseUrl overrides the staking endpoint base URL.
func WithStakeBaseUrl(stakeBaseUrl string) Option {
	return func(c *Client) {
		c.stakeBaseUrl = stakeBaseUrl
	}
}

// WithLimiter throttles calls, keyed by endpoint.
func WithLimiter(limiter rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// NewClient returns a new Jupiter client for performing on-chain swaps and
// liquid staking
func NewClient(baseUrl string, opts ...Option) (*Client, error) {
	c := &Client{
		log:          logrus.StandardLogger().WithField("type", "jupiter/client"),
		baseUrl:      baseUrl,
		stakeBaseUrl: DefaultStakeBaseUrl,
		httpClient:   http.DefaultClient,
		limiter:      &rate.NoLimiter{},
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, u := range []string{c.baseUrl, c.stakeBaseUrl} {
		if err := netutil.ValidateHttpUrl(u, true); err != nil {
			return nil, errors.Wrapf(err, "invalid jupiter url %q", u)
		}
	}

	return c, nil
}

type QuoteRequest struct {
	InputMint  ed25519.PublicKey
	OutputMint ed25519.PublicKey

	// Amount is in the input mint's base units.
	Amount      uint64
	SlippageBps uint32

	OnlyDirectRoutes    bool
	MaxAccounts         uint8
	UseSharedAccounts   bool
	AsLegacyTransaction bool
}

type Quote struct {
	jsonString            string
	inAmount              uint64
	outAmount             uint64
	estimatedSwapAmount   uint64
	useSharedAccounts     bool
	useLegacyInstructions bool
}

func (q *Quote) GetInAmount() uint64 {
	return q.inAmount
}

func (q *Quote) GetOutAmount() uint64 {
	return q.outAmount
}

// GetEstimatedSwapAmount is the minimum output amount after slippage
func (q *Quote) GetEstimatedSwapAmount() uint64 {
	return q.estimatedSwapAmount
}

// GetQuote gets an optimal route for performing a swap
func (c *Client) GetQuote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetQuote")
	defer tracer.End()

	quote, err := c.getQuote(ctx, req)
	tracer.OnError(err)
	return quote, err
}

func (c *Client) getQuote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if req.Amount == 0 {
		return nil, solana.NewValidationError("amount", "must be positive")
	}
	if len(req.InputMint) != ed25519.PublicKeySize || len(req.OutputMint) != ed25519.PublicKeySize {
		return nil, solana.NewValidationError("mint", "input and output mints are required")
	}

	slippageBps := req.SlippageBps
	if slippageBps == 0 {
		slippageBps = DefaultSlippageBps
	}

	query := url.Values{}
	query.Set("inputMint", base58.Encode(req.InputMint))
	query.Set("outputMint", base58.Encode(req.OutputMint))
	query.Set("amount", strconv.FormatUint(req.Amount, 10))
	query.Set("slippageBps", strconv.FormatUint(uint64(slippageBps), 10))
	query.Set("onlyDirectRoutes", strconv.FormatBool(req.OnlyDirectRoutes))
	query.Set("useSharedAccounts", strconv.FormatBool(req.UseSharedAccounts))
	query.Set("asLegacyTransaction", strconv.FormatBool(req.AsLegacyTransaction))
	if req.MaxAccounts > 0 {
		query.Set("maxAccounts", strconv.Itoa(int(req.MaxAccounts)))
	}

	respBody, err := netutil.Do(ctx, c.httpClient, c.limiter, netutil.Request{
		Method:       http.MethodGet,
		Url:          netutil.JoinUrl(c.baseUrl, quoteEndpointName) + "?" + query.Encode(),
		RateLimitKey: quoteEndpointName,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error getting quote")
	}

	var parsed jsonQuote
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, errors.Wrap(err, "error unmarshalling json response")
	}

	quote := &Quote{
		jsonString:            string(respBody),
		useSharedAccounts:     req.UseSharedAccounts,
		useLegacyInstructions: req.AsLegacyTransaction,
	}

	for _, amount := range []struct {
		value string
		dest  *uint64
		name  string
	}{
		{parsed.InAmount, &quote.inAmount, "in amount"},
		{parsed.OutAmount, &quote.outAmount, "out amount"},
		{parsed.OtherAmountThreshold, &quote.estimatedSwapAmount, "estimated swap amount"},
	} {
		*amount.dest, err = strconv.ParseUint(amount.value, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "error parsing %s", amount.name)
		}
	}

	return quote, nil
}

type SwapInstructions struct {
	TokenLedgerInstruction    *solana.Instruction
	ComputeBudgetInstructions []solana.Instruction
	SetupInstructions         []solana.Instruction
	SwapInstruction           solana.Instruction
	CleanupInstruction        *solana.Instruction

	// AddressLookupTableAddresses must be loaded into a v0 transaction unless
	// the quote was for a legacy transaction.
	AddressLookupTableAddresses []ed25519.PublicKey
}

// Instructions returns every instruction in execution order.
func (s *SwapInstructions) Instructions() []solana.Instruction {
	var res []solana.Instruction
	res = append(res, s.ComputeBudgetInstructions...)
	if s.TokenLedgerInstruction != nil {
		res = append(res, *s.TokenLedgerInstruction)
	}
	res = append(res, s.SetupInstructions...)
	res = append(res, s.SwapInstruction)
	if s.CleanupInstruction != nil {
		res = append(res, *s.CleanupInstruction)
	}
	return res
}

// GetSwapInstructions gets the instructions to construct a transaction to sign
// and execute on chain to perform a swap with a given quote. The destination
// token account is optional.
func (c *Client) GetSwapInstructions(
	ctx context.Context,
	quote *Quote,
	owner ed25519.PublicKey,
	destinationTokenAccount ed25519.PublicKey,
) (*SwapInstructions, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetSwapInstructions")
	defer tracer.End()

	res, err := c.getSwapInstructions(ctx, quote, owner, destinationTokenAccount)
	tracer.OnError(err)
	return res, err
}

func (c *Client) getSwapInstructions(
	ctx context.Context,
	quote *Quote,
	owner ed25519.PublicKey,
	destinationTokenAccount ed25519.PublicKey,
) (*SwapInstructions, error) {
	reqBody := jsonSwapRequest{
		QuoteResponse:             json.RawMessage(quote.jsonString),
		UserPublicKey:             base58.Encode(owner),
		WrapAndUnwrapSol:          true,
		DynamicComputeUnitLimit:   true,
		PrioritizationFeeLamports: "auto",
		UseSharedAccounts:         quote.useSharedAccounts,
		AsLegacyTransaction:       quote.useLegacyInstructions,
	}
	if len(destinationTokenAccount) > 0 {
		reqBody.DestinationTokenAccount = base58.Encode(destinationTokenAccount)
	}

	var jsonBody jsonSwapInstructions
	err := netutil.DoJSON(ctx, c.httpClient, c.limiter, netutil.Request{
		Method:       http.MethodPost,
		Url:          netutil.JoinUrl(c.baseUrl, swapInstructionsEndpointName),
		Body:         reqBody,
		RateLimitKey: swapInstructionsEndpointName,
	}, &jsonBody)
	if err != nil {
		return nil, errors.Wrap(err, "error getting swap instructions")
	}

	var res SwapInstructions

	if jsonBody.TokenLedgerInstruction != nil {
		res.TokenLedgerInstruction, err = jsonBody.TokenLedgerInstruction.ToSolanaInstruction()
		if err != nil {
			return nil, errors.Wrap(err, "error decoding token ledger instruction")
		}
	}

	for _, jsonIxn := range jsonBody.ComputeBudgetInstructions {
		cbIxn, err := jsonIxn.ToSolanaInstruction()
		if err != nil {
			return nil, errors.Wrap(err, "error decoding compute budget instruction")
		}
		res.ComputeBudgetInstructions = append(res.ComputeBudgetInstructions, *cbIxn)
	}

	for _, jsonIxn := range jsonBody.SetupInstructions {
		setupIxn, err := jsonIxn.ToSolanaInstruction()
		if err != nil {
			return nil, errors.Wrap(err, "error decoding setup instruction")
		}
		res.SetupInstructions = append(res.SetupInstructions, *setupIxn)
	}

	if jsonBody.SwapInstruction == nil {
		return nil, errors.New("swap instruction not provided")
	}

	swapIxn, err := jsonBody.SwapInstruction.ToSolanaInstruction()
	if err != nil {
		return nil, errors.Wrap(err, "error decoding swap instruction")
	}
	res.SwapInstruction = *swapIxn

	if jsonBody.CleanupInstruction != nil {
		res.CleanupInstruction, err = jsonBody.CleanupInstruction.ToSolanaInstruction()
		if err != nil {
			return nil, errors.Wrap(err, "error decoding cleanup instruction")
		}
	}

	for _, address := range jsonBody.AddressLookupTableAddresses {
		decoded, err := base58.Decode(address)
		if err != nil || len(decoded) != ed25519.PublicKeySize {
			return nil, errors.Errorf("invalid address lookup table %q", address)
		}
		res.AddressLookupTableAddresses = append(res.AddressLookupTableAddresses, decoded)
	}

	return &res, nil
}

// GetStakeTransaction requests a remotely built transaction staking the
// given amount of SOL into jupSOL from account. The returned envelope carries
// a blockhash chosen by the remote service.
func (c *Client) GetStakeTransaction(ctx context.Context, account ed25519.PublicKey, amount decimal.Decimal) ([]byte, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetStakeTransaction")
	defer tracer.End()

	envelope, err := c.getStakeTransaction(ctx, account, amount)
	tracer.OnError(err)
	return envelope, err
}

func (c *Client) getStakeTransaction(ctx context.Context, account ed25519.PublicKey, amount decimal.Decimal) ([]byte, error) {
	if !amount.IsPositive() {
		return nil, solana.NewValidationError("amount", "must be positive")
	}

	var jsonBody jsonStakeResponse
	err := netutil.DoJSON(ctx, c.httpClient, c.limiter, netutil.Request{
		Method: http.MethodPost,
		Url: netutil.JoinUrl(
			c.stakeBaseUrl,
			base58.Encode(WrappedSolMint),
			base58.Encode(JupSolMint),
			amount.String(),
		),
		Body:         jsonStakeRequest{Account: base58.Encode(account)},
		RateLimitKey: "stake",
	}, &jsonBody)
	if err != nil {
		return nil, errors.Wrap(err, "error getting stake transaction")
	}

	if len(jsonBody.Transaction) == 0 {
		return nil, errors.New("stake transaction not provided")
	}

	envelope, err := base64.StdEncoding.DecodeString(jsonBody.Transaction)
	if err != nil {
		return nil, errors.Wrap(err, "error decoding base64 stake transaction")
	}

	c.log.WithFields(logrus.Fields{
		"method":  "GetStakeTransaction",
		"account": base58.Encode(account),
		"amount":  amount.String(),
	}).Debug("received stake transaction")

	return envelope, nil
}

func (i *jsonInstruction) ToSolanaInstruction() (*solana.Instruction, error) {
	decodedProgramKey, err := base58.Decode(i.ProgramId)
	if err != nil {
		return nil, errors.Wrap(err, "invalid program public key")
	}

	decodedData, err := base64.StdEncoding.DecodeString(i.Data)
	if err != nil {
		return nil, errors.Wrap(err, "error decoding base64 instruction data")
	}

	var accountMetas []solana.AccountMeta
	for _, instructionAccount := range i.Accounts {
		decodedPubkey, err := base58.Decode(instructionAccount.Pubkey)
		if err != nil {
			return nil, errors.Wrap(err, "invalid instruction account public key")
		}

		accountMetas = append(accountMetas, solana.AccountMeta{
			PublicKey:  decodedPubkey,
			IsSigner:   instructionAccount.IsSigner,
			IsWritable: instructionAccount.IsWritable,
		})
	}

	return &solana.Instruction{
		Program:  decodedProgramKey,
		Accounts: accountMetas,
		Data:     decodedData,
	}, nil
}

func mustParseKey(value string) ed25519.PublicKey {
	key, err := base58.Decode(value)
	if err != nil || len(key) != ed25519.PublicKeySize {
		panic("invalid key " + value)
	}
	return key
}

type jsonQuote struct {
	InAmount             string `json:"inAmount"`
	OutAmount            string `json:"outAmount"`
	OtherAmountThreshold string `json:"otherAmountThreshold"`
}

type jsonSwapRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	DestinationTokenAccount   string          `json:"destinationTokenAccount,omitempty"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit   bool            `json:"dynamicComputeUnitLimit"`
	PrioritizationFeeLamports string          `json:"prioritizationFeeLamports"`
	UseSharedAccounts         bool            `json:"useSharedAccounts"`
	AsLegacyTransaction       bool            `json:"asLegacyTransaction"`
}

type jsonInstructionAccount struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

type jsonInstruction struct {
	ProgramId string                   `json:"programId"`
	Accounts  []jsonInstructionAccount `json:"accounts"`
	Data      string                   `json:"data"`
}

type jsonSwapInstructions struct {
	TokenLedgerInstruction      *jsonInstruction   `json:"tokenLedgerInstruction"`
	ComputeBudgetInstructions   []*jsonInstruction `json:"computeBudgetInstructions"`
	SetupInstructions           []*jsonInstruction `json:"setupInstructions"`
	SwapInstruction             *jsonInstruction   `json:"swapInstruction"`
	CleanupInstruction          *jsonInstruction   `json:"cleanupInstruction"`
	AddressLookupTableAddresses []string           `json:"addressLookupTableAddresses"`
}

type jsonStakeRequest struct {
	Account string `json:"account"`
}

type jsonStakeResponse struct {
	Transaction string `json:"transaction"`
}
