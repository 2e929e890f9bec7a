package gibwork

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/solagent/solagent-go/pkg/metrics"
	"github.com/solagent/solagent-go/pkg/netutil"
	"github.com/solagent/solagent-go/pkg/rate"
	"github.com/solagent/solagent-go/pkg/solana"
)

const (
	DefaultApiBaseUrl = "https://api2.gibwork.com/"

	createTaskEndpointName = "tasks/public/transaction"

	metricsStructName = "gibwork.client"
)

// Client creates paid tasks on the gibwork marketplace. The marketplace
// builds the funding transaction, which the payer co-signs and submits.
type Client struct {
	log        *logrus.Entry
	baseUrl    string
	httpClient *http.Client
	limiter    rate.Limiter
}

func NewClient(baseUrl string, httpClient *http.Client, limiter rate.Limiter) (*Client, error) {
	if err := netutil.ValidateHttpUrl(baseUrl, true); err != nil {
		return nil, errors.Wrapf(err, "invalid gibwork url %q", baseUrl)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if limiter == nil {
		limiter = &rate.NoLimiter{}
	}

	return &Client{
		log:        logrus.StandardLogger().WithField("type", "gibwork/client"),
		baseUrl:    baseUrl,
		httpClient: httpClient,
		limiter:    limiter,
	}, nil
}

type Task struct {
	Title        string
	Content      string
	Requirements string
	Tags         []string

	// TokenMint and TokenAmount describe the bounty. The amount is in
	// display units of the mint.
	TokenMint   ed25519.PublicKey
	TokenAmount decimal.Decimal

	Payer ed25519.PublicKey
}

// Validate checks the task carries everything the marketplace requires.
func (t *Task) Validate() error {
	if len(strings.TrimSpace(t.Title)) == 0 {
		return solana.NewValidationError("title", "must not be empty")
	}
	if len(strings.TrimSpace(t.Content)) == 0 {
		return solana.NewValidationError("content", "must not be empty")
	}
	if len(t.TokenMint) != ed25519.PublicKeySize {
		return solana.NewValidationError("token mint", "must be a %d byte address", ed25519.PublicKeySize)
	}
	if !t.TokenAmount.IsPositive() {
		return solana.NewValidationError("token amount", "must be positive")
	}
	if len(t.Payer) != ed25519.PublicKeySize {
		return solana.NewValidationError("payer", "must be a %d byte address", ed25519.PublicKeySize)
	}
	return nil
}

// CreatedTask is the marketplace's response to a task creation request.
type CreatedTask struct {
	TaskId string

	// Envelope is the serialized funding transaction, carrying a blockhash
	// chosen by the marketplace.
	Envelope []byte
}

// CreateTask registers task and returns its funding transaction.
func (c *Client) CreateTask(ctx context.Context, task *Task) (*CreatedTask, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "CreateTask")
	defer tracer.End()

	created, err := c.createTask(ctx, task)
	tracer.OnError(err)
	return created, err
}

func (c *Client) createTask(ctx context.Context, task *Task) (*CreatedTask, error) {
	if err := task.Validate(); err != nil {
		return nil, err
	}

	tags := task.Tags
	if tags == nil {
		tags = []string{}
	}

	reqBody := jsonCreateTaskRequest{
		Title:        task.Title,
		Content:      task.Content,
		Requirements: task.Requirements,
		Tags:         tags,
		Payer:        base58.Encode(task.Payer),
		Token: jsonToken{
			MintAddress: base58.Encode(task.TokenMint),
			Amount:      json.Number(task.TokenAmount.String()),
		},
	}

	var jsonBody jsonCreateTaskResponse
	err := netutil.DoJSON(ctx, c.httpClient, c.limiter, netutil.Request{
		Method:       http.MethodPost,
		Url:          netutil.JoinUrl(c.baseUrl, createTaskEndpointName),
		Body:         reqBody,
		RateLimitKey: createTaskEndpointName,
	}, &jsonBody)
	if err != nil {
		return nil, errors.Wrap(err, "error creating task")
	}

	if len(jsonBody.TaskId) == 0 {
		return nil, errors.New("task id not provided")
	}
	if len(jsonBody.SerializedTransaction) == 0 {
		return nil, errors.New("task transaction not provided")
	}

	envelope, err := base64.StdEncoding.DecodeString(jsonBody.SerializedTransaction)
	if err != nil {
		return nil, errors.Wrap(err, "error decoding base64 task transaction")
	}

	c.log.WithFields(logrus.Fields{
		"method":  "CreateTask",
		"task_id": jsonBody.TaskId,
	}).Debug("task created")

	return &CreatedTask{
		TaskId:   jsonBody.TaskId,
		Envelope: envelope,
	}, nil
}

type jsonToken struct {
	MintAddress string      `json:"mintAddress"`
	Amount      json.Number `json:"amount"`
}

type jsonCreateTaskRequest struct {
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Requirements string    `json:"requirements"`
	Tags         []string  `json:"tags"`
	Payer        string    `json:"payer"`
	Token        jsonToken `json:"token"`
}

type jsonCreateTaskResponse struct {
	TaskId                string `json:"taskId"`
	SerializedTransaction string `json:"serializedTransaction"`
}
