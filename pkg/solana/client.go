package solana

import (
	"crypto/ed25519"
	"encoding/base64"
	"strconv"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"
)

const (
	// todo: we can retrieve these from the Syscall account
	//       but they're unlikely to change.
	ticksPerSec  = 160
	ticksPerSlot = 64
	slotsPerSec  = ticksPerSec / ticksPerSlot

	// PollRate is the rate at which signature statuses should be polled at.
	PollRate = (time.Second / slotsPerSec) / 2

	// Reference: https://github.com/solana-labs/solana/blob/71e9958e061493d7545bd28d4ac7a85aaed6ffbb/client/src/rpc_custom_error.rs#L11
	rpcNodeUnhealthyCode = -32005

	invalidParamCode = -32602
)

type Commitment struct {
	Commitment string `json:"commitment"`
}

const (
	confirmationStatusProcessed = "processed"
	confirmationStatusConfirmed = "confirmed"
	confirmationStatusFinalized = "finalized"
)

var (
	CommitmentProcessed = Commitment{Commitment: confirmationStatusProcessed}
	CommitmentConfirmed = Commitment{Commitment: confirmationStatusConfirmed}
	CommitmentFinalized = Commitment{Commitment: confirmationStatusFinalized}
)

// CommitmentFromString maps a commitment level name to a Commitment.
func CommitmentFromString(level string) (Commitment, error) {
	switch level {
	case confirmationStatusProcessed:
		return CommitmentProcessed, nil
	case confirmationStatusConfirmed:
		return CommitmentConfirmed, nil
	case confirmationStatusFinalized:
		return CommitmentFinalized, nil
	}
	return Commitment{}, errors.Errorf("unknown commitment level: %q", level)
}

var (
	ErrNoAccountInfo = errors.New("no account info")
	ErrNoBalance     = errors.New("no balance")

	errRateLimited  = errors.New("rate limited")
	errServiceError = errors.New("service error")
)

// AccountInfo contains the Solana account information (not to be confused with a TokenAccount)
type AccountInfo struct {
	Data       []byte
	Owner      ed25519.PublicKey
	Lamports   uint64
	Executable bool
}

// KeyedAccount is an account alongside its address.
type KeyedAccount struct {
	PublicKey ed25519.PublicKey
	Account   AccountInfo
}

type SignatureStatus struct {
	Slot        uint64
	ErrorResult *TransactionError

	// Confirmations will be nil if the transaction has been rooted.
	Confirmations      *int
	ConfirmationStatus string
}

func (s SignatureStatus) Confirmed() bool {
	if s.Finalized() {
		return true
	}

	if s.ConfirmationStatus == confirmationStatusConfirmed {
		return true
	}

	return s.Confirmations != nil && *s.Confirmations >= 1
}

func (s SignatureStatus) Finalized() bool {
	return s.Confirmations == nil || s.ConfirmationStatus == confirmationStatusFinalized
}

// Reached reports whether the status satisfies the provided commitment.
func (s SignatureStatus) Reached(commitment Commitment) bool {
	switch commitment {
	case CommitmentProcessed:
		return true
	case CommitmentFinalized:
		return s.Finalized()
	default:
		return s.Confirmed()
	}
}

type TokenAmount struct {
	Amount         string `json:"amount"`   // example: "49801500000",
	Decimals       uint64 `json:"decimals"` // example: 5,
	UIAmountString string `json:"uiAmountString"`
}

// Quarks returns the raw base unit amount.
func (t TokenAmount) Quarks() (uint64, error) {
	return strconv.ParseUint(t.Amount, 10, 64)
}

// SubmitOptions configure SubmitTransaction.
type SubmitOptions struct {
	// SkipPreflight disables simulation before broadcast. With preflight on, a
	// transaction that would fail is rejected with the simulation's reason.
	SkipPreflight       bool
	PreflightCommitment Commitment
}

// Client provides an interaction with the Solana JSON RPC API.
//
// Failed calls are never retried internally. Reads that fail return a
// ConnectivityError, and submissions the ledger refuses return a
// RejectionError carrying the node's reason verbatim.
//
// Reference: https://docs.solana.com/apps/jsonrpc-api
type Client interface {
	GetAccountInfo(ed25519.PublicKey, Commitment) (AccountInfo, error)
	GetBalance(ed25519.PublicKey) (uint64, error)
	GetLatestBlockhash() (Blockhash, error)
	GetMinimumBalanceForRentExemption(size uint64) (lamports uint64, err error)
	GetSignatureStatuses([]Signature) ([]*SignatureStatus, error)
	GetTokenAccountBalance(ed25519.PublicKey) (TokenAmount, error)
	GetTokenAccountsByOwner(owner, mint ed25519.PublicKey) ([]ed25519.PublicKey, error)
	GetTokenAccountsByOwnerAndProgram(owner, program ed25519.PublicKey) ([]KeyedAccount, error)
	RequestAirdrop(ed25519.PublicKey, uint64, Commitment) (Signature, error)
	SubmitTransaction(Transaction, SubmitOptions) (Signature, error)
}

type client struct {
	log    *logrus.Entry
	client jsonrpc.RPCClient
}

// New returns a client using the specified endpoint.
func New(endpoint string) Client {
	return NewWithRPCOptions(endpoint, nil)
}

// NewWithRPCOptions returns a client configured with the specified RPC options.
func NewWithRPCOptions(endpoint string, opts *jsonrpc.RPCClientOpts) Client {
	return &client{
		log:    logrus.StandardLogger().WithField("type", "solana/client"),
		client: jsonrpc.NewClientWithOpts(endpoint, opts),
	}
}

func (c *client) call(stage Stage, out interface{}, method string, params ...interface{}) error {
	err := c.client.CallFor(out, method, params...)
	if err == nil {
		return nil
	}

	return &ConnectivityError{
		Stage: stage,
		Cause: errors.Wrapf(c.classify(method, err), "%s() failed", method),
	}
}

func (c *client) classify(method string, err error) error {
	rpcErr, ok := err.(*jsonrpc.RPCError)
	if !ok {
		return err
	}
	if rpcErr.Code == 429 {
		c.log.WithField("method", method).Warn("rate limited")
		return errors.Wrap(errRateLimited, rpcErr.Message)
	}
	if rpcErr.Code >= 500 || rpcErr.Code == rpcNodeUnhealthyCode {
		return errors.Wrap(errServiceError, rpcErr.Message)
	}

	return err
}

func (c *client) GetMinimumBalanceForRentExemption(dataSize uint64) (lamports uint64, err error) {
	if err := c.call(StageRent, &lamports, "getMinimumBalanceForRentExemption", dataSize); err != nil {
		return 0, err
	}

	return lamports, nil
}

// GetLatestBlockhash always queries the node. Blockhashes are not cached,
// since a cached value shortens the window a plan has to land.
func (c *client) GetLatestBlockhash() (hash Blockhash, err error) {
	type response struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}

	// note: we have to wrap the commitment in an []interface{} otherwise the
	//       solana RPC node receives it as named params.
	var resp response
	if err := c.call(StageBlockhash, &resp, "getLatestBlockhash", []interface{}{CommitmentConfirmed}); err != nil {
		return hash, err
	}

	hashBytes, err := base58.Decode(resp.Value.Blockhash)
	if err != nil || len(hashBytes) != len(hash) {
		return hash, &ConnectivityError{Stage: StageBlockhash, Cause: errors.Errorf("invalid blockhash in response: %q", resp.Value.Blockhash)}
	}

	copy(hash[:], hashBytes)
	return hash, nil
}

func (c *client) GetBalance(account ed25519.PublicKey) (uint64, error) {
	var resp struct {
		Value *uint64 `json:"value"`
	}
	if err := c.client.CallFor(&resp, "getBalance", base58.Encode(account), CommitmentConfirmed); err != nil {
		if rpcErr, ok := err.(*jsonrpc.RPCError); ok && rpcErr.Code == invalidParamCode {
			return 0, ErrNoBalance
		}
		return 0, &ConnectivityError{Stage: StageRead, Cause: errors.Wrap(c.classify("getBalance", err), "getBalance() failed")}
	}

	if resp.Value == nil {
		return 0, &ConnectivityError{Stage: StageRead, Cause: errors.New("getBalance() returned no value")}
	}

	return *resp.Value, nil
}

func (c *client) GetTokenAccountBalance(account ed25519.PublicKey) (TokenAmount, error) {
	var resp struct {
		Value *TokenAmount `json:"value"`
	}
	if err := c.client.CallFor(&resp, "getTokenAccountBalance", base58.Encode(account), CommitmentConfirmed); err != nil {
		if rpcErr, ok := err.(*jsonrpc.RPCError); ok && rpcErr.Code == invalidParamCode {
			return TokenAmount{}, ErrNoBalance
		}
		return TokenAmount{}, &ConnectivityError{Stage: StageRead, Cause: errors.Wrap(c.classify("getTokenAccountBalance", err), "getTokenAccountBalance() failed")}
	}

	if resp.Value == nil {
		return TokenAmount{}, ErrNoBalance
	}
	if _, err := resp.Value.Quarks(); err != nil {
		return TokenAmount{}, &ConnectivityError{Stage: StageRead, Cause: errors.Errorf("invalid amount in response: %q", resp.Value.Amount)}
	}

	return *resp.Value, nil
}

// SubmitTransaction broadcasts a signed transaction. The returned signature is
// the fee payer's signature, which is known locally before broadcast.
//
// A transport failure returns a ConnectivityError. Since the node may have
// received the transaction anyway, callers must treat that outcome as unknown.
func (c *client) SubmitTransaction(txn Transaction, opts SubmitOptions) (Signature, error) {
	sig := txn.Signature()
	if sig == (Signature{}) {
		return sig, errors.New("transaction is not signed by the fee payer")
	}

	preflight := opts.PreflightCommitment
	if preflight == (Commitment{}) {
		preflight = CommitmentConfirmed
	}

	config := struct {
		Encoding            string `json:"encoding"`
		SkipPreflight       bool   `json:"skipPreflight"`
		PreflightCommitment string `json:"preflightCommitment"`
	}{
		Encoding:            "base64",
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: preflight.Commitment,
	}

	log := c.log.WithFields(logrus.Fields{
		"method":    "SubmitTransaction",
		"signature": sig.String(),
	})

	var sigStr string
	err := c.client.CallFor(&sigStr, "sendTransaction", txn.ToBase64(), config)
	if err == nil {
		log.Debug("transaction submitted")
		return sig, nil
	}

	rpcErr, ok := err.(*jsonrpc.RPCError)
	if !ok {
		return sig, &ConnectivityError{Stage: StageSubmit, Cause: errors.Wrap(err, "sendTransaction() failed")}
	}
	if rpcErr.Code == 429 || rpcErr.Code >= 500 || rpcErr.Code == rpcNodeUnhealthyCode {
		return sig, &ConnectivityError{Stage: StageSubmit, Cause: errors.Wrap(c.classify("sendTransaction", err), "sendTransaction() failed")}
	}

	detail, parseErr := parseRPCErrorDetail(rpcErr)
	if parseErr != nil {
		log.WithError(parseErr).Warn("failed to parse rejection detail")
	}

	rejection := newRejectionError(StageSubmit, sig, rpcErr.Message, nil)
	if detail != nil {
		rejection = newRejectionError(StageSubmit, sig, rpcErr.Message, detail.TxErr)
		rejection.Logs = detail.Logs
	}
	return sig, rejection
}

func (c *client) GetAccountInfo(account ed25519.PublicKey, commitment Commitment) (accountInfo AccountInfo, err error) {
	type rpcResponse struct {
		Value *struct {
			Lamports   uint64   `json:"lamports"`
			Owner      string   `json:"owner"`
			Data       []string `json:"data"`
			Executable bool     `json:"executable"`
		} `json:"value"`
	}

	rpcConfig := struct {
		Commitment Commitment `json:"commitment"`
		Encoding   string     `json:"encoding"`
	}{
		Commitment: commitment,
		Encoding:   "base64",
	}

	var resp rpcResponse
	if err := c.call(StageRead, &resp, "getAccountInfo", base58.Encode(account), rpcConfig); err != nil {
		return accountInfo, err
	}

	if resp.Value == nil {
		return accountInfo, ErrNoAccountInfo
	}

	return decodeAccount(resp.Value.Owner, resp.Value.Data, resp.Value.Lamports, resp.Value.Executable)
}

func (c *client) RequestAirdrop(account ed25519.PublicKey, lamports uint64, commitment Commitment) (Signature, error) {
	var sigStr string
	if err := c.call(StageSubmit, &sigStr, "requestAirdrop", base58.Encode(account), lamports, commitment); err != nil {
		return Signature{}, err
	}

	sigBytes, err := base58.Decode(sigStr)
	if err != nil || len(sigBytes) != ed25519.SignatureSize {
		return Signature{}, &ConnectivityError{Stage: StageSubmit, Cause: errors.Errorf("invalid signature in response: %q", sigStr)}
	}

	var sig Signature
	copy(sig[:], sigBytes)
	return sig, nil
}

func (c *client) GetSignatureStatuses(sigs []Signature) ([]*SignatureStatus, error) {
	b58Sigs := make([]string, len(sigs))
	for i := range sigs {
		b58Sigs[i] = base58.Encode(sigs[i][:])
	}

	req := struct {
		SearchTransactionHistory bool `json:"searchTransactionHistory"`
	}{
		SearchTransactionHistory: true,
	}

	type signatureStatus struct {
		Slot               uint64      `json:"slot"`
		Confirmations      *int        `json:"confirmations"`
		ConfirmationStatus string      `json:"confirmationStatus"`
		Err                interface{} `json:"err"`
	}

	var resp struct {
		Value []*signatureStatus `json:"value"`
	}
	if err := c.call(StageConfirm, &resp, "getSignatureStatuses", b58Sigs, req); err != nil {
		return nil, err
	}

	statuses := make([]*SignatureStatus, len(sigs))
	for i, v := range resp.Value {
		if v == nil || i >= len(statuses) {
			continue
		}

		statuses[i] = &SignatureStatus{
			Slot:               v.Slot,
			Confirmations:      v.Confirmations,
			ConfirmationStatus: v.ConfirmationStatus,
		}

		txErr, err := ParseTransactionError(v.Err)
		if err != nil {
			return nil, &ConnectivityError{Stage: StageConfirm, Cause: errors.Wrap(err, "failed to parse transaction result")}
		}
		statuses[i].ErrorResult = txErr
	}

	return statuses, nil
}

func (c *client) GetTokenAccountsByOwner(owner, mint ed25519.PublicKey) ([]ed25519.PublicKey, error) {
	filter := struct {
		Mint string `json:"mint"`
	}{
		Mint: base58.Encode(mint),
	}

	accounts, err := c.getTokenAccountsByOwner(owner, filter)
	if err != nil {
		return nil, err
	}

	keys := make([]ed25519.PublicKey, len(accounts))
	for i := range accounts {
		keys[i] = accounts[i].PublicKey
	}
	return keys, nil
}

func (c *client) GetTokenAccountsByOwnerAndProgram(owner, program ed25519.PublicKey) ([]KeyedAccount, error) {
	filter := struct {
		ProgramID string `json:"programId"`
	}{
		ProgramID: base58.Encode(program),
	}

	return c.getTokenAccountsByOwner(owner, filter)
}

func (c *client) getTokenAccountsByOwner(owner ed25519.PublicKey, filter interface{}) ([]KeyedAccount, error) {
	config := struct {
		Encoding   string `json:"encoding"`
		Commitment string `json:"commitment"`
	}{
		Encoding:   "base64",
		Commitment: confirmationStatusConfirmed,
	}

	var resp struct {
		Value []struct {
			PubKey  string `json:"pubkey"`
			Account struct {
				Lamports   uint64   `json:"lamports"`
				Owner      string   `json:"owner"`
				Data       []string `json:"data"`
				Executable bool     `json:"executable"`
			} `json:"account"`
		} `json:"value"`
	}
	if err := c.call(StageRead, &resp, "getTokenAccountsByOwner", base58.Encode(owner), filter, config); err != nil {
		return nil, err
	}

	accounts := make([]KeyedAccount, len(resp.Value))
	for i, v := range resp.Value {
		key, err := base58.Decode(v.PubKey)
		if err != nil {
			return nil, &ConnectivityError{Stage: StageRead, Cause: errors.Wrap(err, "failed to decode token account public key")}
		}

		info, err := decodeAccount(v.Account.Owner, v.Account.Data, v.Account.Lamports, v.Account.Executable)
		if err != nil {
			return nil, err
		}

		accounts[i] = KeyedAccount{PublicKey: key, Account: info}
	}

	return accounts, nil
}

func decodeAccount(owner string, data []string, lamports uint64, executable bool) (AccountInfo, error) {
	var info AccountInfo
	var err error

	info.Owner, err = base58.Decode(owner)
	if err != nil {
		return info, &ConnectivityError{Stage: StageRead, Cause: errors.Wrap(err, "invalid base58 encoded owner")}
	}

	if len(data) > 0 {
		info.Data, err = base64.StdEncoding.DecodeString(data[0])
		if err != nil {
			return info, &ConnectivityError{Stage: StageRead, Cause: errors.Wrap(err, "invalid base64 encoded data")}
		}
	}

	info.Lamports = lamports
	info.Executable = executable
	return info, nil
}
