package pumpportal

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/solagent/solagent-go/pkg/metrics"
	"github.com/solagent/solagent-go/pkg/netutil"
	"github.com/solagent/solagent-go/pkg/rate"
	"github.com/solagent/solagent-go/pkg/solana"
)

// Reference: https://pumpportal.fun/creation

const (
	DefaultApiBaseUrl  = "https://pumpportal.fun/api/"
	DefaultIpfsBaseUrl = "https://pump.fun/api/"

	tradeLocalEndpointName = "trade-local"
	ipfsEndpointName       = "ipfs"

	maxImageSize = 4 << 20

	metricsStructName = "pumpportal.client"
)

var (
	DefaultInitialLiquidity = decimal.RequireFromString("0.0001")
	DefaultPriorityFee      = decimal.RequireFromString("0.00005")
)

const DefaultSlippagePercent = 5

// Client launches tokens on the pump bonding curve. Token metadata is pinned
// through the pump IPFS endpoint, and the create transaction is built
// remotely for local signing.
type Client struct {
	log         *logrus.Entry
	baseUrl     string
	ipfsBaseUrl string
	httpClient  *http.Client
	limiter     rate.Limiter
}

func NewClient(baseUrl, ipfsBaseUrl string, httpClient *http.Client, limiter rate.Limiter) (*Client, error) {
	for _, u := range []string{baseUrl, ipfsBaseUrl} {
		if err := netutil.ValidateHttpUrl(u, true); err != nil {
			return nil, errors.Wrapf(err, "invalid pumpportal url %q", u)
		}
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if limiter == nil {
		limiter = &rate.NoLimiter{}
	}

	return &Client{
		log:         logrus.StandardLogger().WithField("type", "pumpportal/client"),
		baseUrl:     baseUrl,
		ipfsBaseUrl: ipfsBaseUrl,
		httpClient:  httpClient,
		limiter:     limiter,
	}, nil
}

type TokenMetadata struct {
	Name        string
	Symbol      string
	Description string

	Twitter  string
	Telegram string
	Website  string

	// ImageUrl is downloaded and pinned alongside the metadata.
	ImageUrl string
}

func (m *TokenMetadata) Validate() error {
	if len(strings.TrimSpace(m.Name)) == 0 {
		return solana.NewValidationError("name", "must not be empty")
	}
	if len(strings.TrimSpace(m.Symbol)) == 0 {
		return solana.NewValidationError("symbol", "must not be empty")
	}
	if !utf8.ValidString(m.Name) || !utf8.ValidString(m.Symbol) {
		return solana.NewValidationError("metadata", "name and symbol must be valid utf-8")
	}
	if len(m.ImageUrl) == 0 {
		return solana.NewValidationError("image url", "must not be empty")
	}
	return nil
}

// UploadMetadata pins the token image and metadata, returning the metadata URI.
func (c *Client) UploadMetadata(ctx context.Context, metadata *TokenMetadata) (string, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "UploadMetadata")
	defer tracer.End()

	uri, err := c.uploadMetadata(ctx, metadata)
	tracer.OnError(err)
	return uri, err
}

func (c *Client) uploadMetadata(ctx context.Context, metadata *TokenMetadata) (string, error) {
	if err := metadata.Validate(); err != nil {
		return "", err
	}

	image, err := netutil.Do(ctx, c.httpClient, nil, netutil.Request{
		Method: http.MethodGet,
		Url:    metadata.ImageUrl,
	})
	if err != nil {
		return "", errors.Wrap(err, "error downloading token image")
	}
	if len(image) >= maxImageSize {
		return "", solana.NewValidationError("image", "must be under %d bytes", maxImageSize)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, field := range []struct{ name, value string }{
		{"name", metadata.Name},
		{"symbol", metadata.Symbol},
		{"description", metadata.Description},
		{"showName", "true"},
		{"twitter", metadata.Twitter},
		{"telegram", metadata.Telegram},
		{"website", metadata.Website},
	} {
		if err := writer.WriteField(field.name, field.value); err != nil {
			return "", errors.Wrap(err, "error writing form field")
		}
	}

	fileName := path.Base(metadata.ImageUrl)
	if fileName == "." || fileName == "/" {
		fileName = "image"
	}
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return "", errors.Wrap(err, "error creating form file")
	}
	if _, err := part.Write(image); err != nil {
		return "", errors.Wrap(err, "error writing form file")
	}
	if err := writer.Close(); err != nil {
		return "", errors.Wrap(err, "error closing form")
	}

	if err := c.limiter.Wait(ctx, ipfsEndpointName); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, netutil.JoinUrl(c.ipfsBaseUrl, ipfsEndpointName), &body)
	if err != nil {
		return "", errors.Wrap(err, "error creating http request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "error executing http request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "error reading response body")
	}
	if resp.StatusCode != http.StatusOK {
		return "", &netutil.HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var parsed jsonIpfsResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", errors.Wrap(err, "error unmarshalling json response")
	}
	if len(parsed.MetadataUri) == 0 {
		return "", errors.New("metadata uri not provided")
	}

	return parsed.MetadataUri, nil
}

type CreateRequest struct {
	// Creator pays for and signs the launch.
	Creator ed25519.PublicKey

	// Mint is the address of a freshly generated mint keypair, which must
	// also sign the returned transaction.
	Mint ed25519.PublicKey

	Name        string
	Symbol      string
	MetadataUri string

	// InitialLiquidity is the SOL spent on the creator's initial buy.
	InitialLiquidity decimal.Decimal
	SlippagePercent  uint32
	PriorityFee      decimal.Decimal
}

// GetCreateTransaction requests the serialized create transaction for a new
// token. The transaction carries a blockhash chosen by the remote service.
func (c *Client) GetCreateTransaction(ctx context.Context, req *CreateRequest) ([]byte, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetCreateTransaction")
	defer tracer.End()

	envelope, err := c.getCreateTransaction(ctx, req)
	tracer.OnError(err)
	return envelope, err
}

func (c *Client) getCreateTransaction(ctx context.Context, req *CreateRequest) ([]byte, error) {
	if len(req.Creator) != ed25519.PublicKeySize || len(req.Mint) != ed25519.PublicKeySize {
		return nil, solana.NewValidationError("create request", "creator and mint addresses are required")
	}
	if len(req.MetadataUri) == 0 {
		return nil, solana.NewValidationError("metadata uri", "must not be empty")
	}

	initialLiquidity := req.InitialLiquidity
	if initialLiquidity.IsZero() {
		initialLiquidity = DefaultInitialLiquidity
	}
	if initialLiquidity.IsNegative() {
		return nil, solana.NewValidationError("initial liquidity", "must not be negative")
	}
	slippage := req.SlippagePercent
	if slippage == 0 {
		slippage = DefaultSlippagePercent
	}
	priorityFee := req.PriorityFee
	if priorityFee.IsZero() {
		priorityFee = DefaultPriorityFee
	}

	envelope, err := netutil.Do(ctx, c.httpClient, c.limiter, netutil.Request{
		Method: http.MethodPost,
		Url:    netutil.JoinUrl(c.baseUrl, tradeLocalEndpointName),
		Body: jsonCreateRequest{
			PublicKey: base58.Encode(req.Creator),
			Action:    "create",
			TokenMetadata: jsonTokenMetadata{
				Name:   req.Name,
				Symbol: req.Symbol,
				Uri:    req.MetadataUri,
			},
			Mint:             base58.Encode(req.Mint),
			DenominatedInSol: "true",
			Amount:           json.Number(initialLiquidity.String()),
			Slippage:         slippage,
			PriorityFee:      json.Number(priorityFee.String()),
			Pool:             "pump",
		},
		RateLimitKey: tradeLocalEndpointName,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error getting create transaction")
	}
	if len(envelope) == 0 {
		return nil, errors.New("create transaction not provided")
	}

	c.log.WithFields(logrus.Fields{
		"method": "GetCreateTransaction",
		"mint":   base58.Encode(req.Mint),
	}).Debug("received create transaction")

	return envelope, nil
}

type jsonIpfsResponse struct {
	MetadataUri string `json:"metadataUri"`
}

type jsonTokenMetadata struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Uri    string `json:"uri"`
}

type jsonCreateRequest struct {
	PublicKey        string            `json:"publicKey"`
	Action           string            `json:"action"`
	TokenMetadata    jsonTokenMetadata `json:"tokenMetadata"`
	Mint             string            `json:"mint"`
	DenominatedInSol string            `json:"denominatedInSol"`
	Amount           json.Number       `json:"amount"`
	Slippage         uint32            `json:"slippage"`
	PriorityFee      json.Number       `json:"priorityFee"`
	Pool             string            `json:"pool"`
}
