// Package solanatest provides an in-memory solana.Client for tests.
package solanatest

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/solagent/solagent-go/pkg/solana"
)

// Method names accepted by InduceError.
const (
	MethodGetAccountInfo                    = "getAccountInfo"
	MethodGetBalance                        = "getBalance"
	MethodGetLatestBlockhash                = "getLatestBlockhash"
	MethodGetMinimumBalanceForRentExemption = "getMinimumBalanceForRentExemption"
	MethodGetSignatureStatuses              = "getSignatureStatuses"
	MethodGetTokenAccountBalance            = "getTokenAccountBalance"
	MethodGetTokenAccountsByOwner           = "getTokenAccountsByOwner"
	MethodRequestAirdrop                    = "requestAirdrop"
	MethodSendTransaction                   = "sendTransaction"
)

// Rejection reasons produced by the fake ledger itself.
const (
	ReasonSignatureVerification = "Transaction signature verification failure"
	ReasonBlockhashNotFound     = "Transaction simulation failed: Blockhash not found"
)

// SubmitHook inspects a submission. A non-nil error is returned from
// SubmitTransaction as is, and the transaction is not recorded as landed.
type SubmitHook func(txn solana.Transaction) error

// Client is an in-memory solana.Client.
//
// Every GetLatestBlockhash call returns a new blockhash, and submissions are
// only accepted when fully signed over a blockhash the client handed out.
// Accepted transactions are reported as finalized unless configured otherwise.
type Client struct {
	mu sync.Mutex

	blockhashCounter uint64
	blockhashes      map[solana.Blockhash]struct{}

	inducedErrors map[string]error
	submitHooks   []SubmitHook
	pending       bool

	submitted []solana.Transaction
	statuses  map[solana.Signature]*solana.SignatureStatus

	balances      map[string]uint64
	tokenBalances map[string]solana.TokenAmount
	accounts      map[string]solana.AccountInfo
	tokenAccounts map[string][]solana.KeyedAccount
}

// NewClient returns an empty in-memory ledger.
func NewClient() *Client {
	return &Client{
		blockhashes:   make(map[solana.Blockhash]struct{}),
		inducedErrors: make(map[string]error),
		statuses:      make(map[solana.Signature]*solana.SignatureStatus),
		balances:      make(map[string]uint64),
		tokenBalances: make(map[string]solana.TokenAmount),
		accounts:      make(map[string]solana.AccountInfo),
		tokenAccounts: make(map[string][]solana.KeyedAccount),
	}
}

// InduceError makes every subsequent call to method fail with err, until
// cleared with a nil err.
func (c *Client) InduceError(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		delete(c.inducedErrors, method)
		return
	}
	c.inducedErrors[method] = err
}

// AddSubmitHook registers a hook run, in order, against every submission that
// passes signature and blockhash checks.
func (c *Client) AddSubmitHook(hook SubmitHook) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.submitHooks = append(c.submitHooks, hook)
}

// RejectSubmissionAt makes the n-th accepted submission (zero based, counting
// from now) fail with a RejectionError carrying reason.
func (c *Client) RejectSubmissionAt(n int, reason string) {
	var seen int
	c.AddSubmitHook(func(txn solana.Transaction) error {
		defer func() { seen++ }()
		if seen != n {
			return nil
		}
		return &solana.RejectionError{
			Stage:            solana.StageSubmit,
			Signature:        txn.Signature(),
			InstructionIndex: -1,
			Reason:           reason,
		}
	})
}

// SetPending controls whether accepted transactions are left without a status,
// as if they never landed.
func (c *Client) SetPending(pending bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = pending
}

// SetStatus overrides the status reported for sig.
func (c *Client) SetStatus(sig solana.Signature, status *solana.SignatureStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.statuses[sig] = status
}

// SetBalance sets the lamport balance of an account.
func (c *Client) SetBalance(account ed25519.PublicKey, lamports uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.balances[base58.Encode(account)] = lamports
}

// SetTokenBalance sets the balance reported for a token account.
func (c *Client) SetTokenBalance(account ed25519.PublicKey, amount solana.TokenAmount) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tokenBalances[base58.Encode(account)] = amount
}

// SetAccountInfo sets the state of an account.
func (c *Client) SetAccountInfo(account ed25519.PublicKey, info solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.accounts[base58.Encode(account)] = info
}

// AddTokenAccount registers a token account for owner. The account's program
// is taken from info.Owner.
func (c *Client) AddTokenAccount(owner, account ed25519.PublicKey, info solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := base58.Encode(owner)
	c.tokenAccounts[key] = append(c.tokenAccounts[key], solana.KeyedAccount{PublicKey: account, Account: info})
	c.accounts[base58.Encode(account)] = info
}

// Submitted returns every transaction accepted so far, in order.
func (c *Client) Submitted() []solana.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]solana.Transaction(nil), c.submitted...)
}

// IssuedBlockhash reports whether bh was handed out by GetLatestBlockhash.
func (c *Client) IssuedBlockhash(bh solana.Blockhash) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.blockhashes[bh]
	return ok
}

// GetAccountInfo implements solana.Client.GetAccountInfo.
func (c *Client) GetAccountInfo(account ed25519.PublicKey, _ solana.Commitment) (solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.induced(MethodGetAccountInfo, solana.StageRead); err != nil {
		return solana.AccountInfo{}, err
	}

	info, ok := c.accounts[base58.Encode(account)]
	if !ok {
		return solana.AccountInfo{}, solana.ErrNoAccountInfo
	}
	return info, nil
}

// GetBalance implements solana.Client.GetBalance.
func (c *Client) GetBalance(account ed25519.PublicKey) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.induced(MethodGetBalance, solana.StageRead); err != nil {
		return 0, err
	}

	return c.balances[base58.Encode(account)], nil
}

// GetLatestBlockhash implements solana.Client.GetLatestBlockhash.
func (c *Client) GetLatestBlockhash() (solana.Blockhash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.induced(MethodGetLatestBlockhash, solana.StageBlockhash); err != nil {
		return solana.Blockhash{}, err
	}

	c.blockhashCounter++
	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], c.blockhashCounter)

	bh := solana.Blockhash(sha256.Sum256(seed[:]))
	c.blockhashes[bh] = struct{}{}
	return bh, nil
}

// GetMinimumBalanceForRentExemption implements
// solana.Client.GetMinimumBalanceForRentExemption, using the default rent
// parameters of a live cluster.
func (c *Client) GetMinimumBalanceForRentExemption(size uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.induced(MethodGetMinimumBalanceForRentExemption, solana.StageRent); err != nil {
		return 0, err
	}

	return RentExemption(size), nil
}

// RentExemption computes the rent exempt minimum for size bytes.
func RentExemption(size uint64) uint64 {
	const (
		accountStorageOverhead = 128
		lamportsPerByteYear    = 3480
		exemptionYears         = 2
	)
	return (accountStorageOverhead + size) * lamportsPerByteYear * exemptionYears
}

// GetSignatureStatuses implements solana.Client.GetSignatureStatuses.
func (c *Client) GetSignatureStatuses(sigs []solana.Signature) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.induced(MethodGetSignatureStatuses, solana.StageConfirm); err != nil {
		return nil, err
	}

	statuses := make([]*solana.SignatureStatus, len(sigs))
	for i, sig := range sigs {
		if status, ok := c.statuses[sig]; ok && status != nil {
			copied := *status
			statuses[i] = &copied
		}
	}
	return statuses, nil
}

// GetTokenAccountBalance implements solana.Client.GetTokenAccountBalance.
func (c *Client) GetTokenAccountBalance(account ed25519.PublicKey) (solana.TokenAmount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.induced(MethodGetTokenAccountBalance, solana.StageRead); err != nil {
		return solana.TokenAmount{}, err
	}

	amount, ok := c.tokenBalances[base58.Encode(account)]
	if !ok {
		return solana.TokenAmount{}, solana.ErrNoBalance
	}
	return amount, nil
}

// GetTokenAccountsByOwner implements solana.Client.GetTokenAccountsByOwner.
// Accounts match on the mint stored in the first 32 bytes of their data.
func (c *Client) GetTokenAccountsByOwner(owner, mint ed25519.PublicKey) ([]ed25519.PublicKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.induced(MethodGetTokenAccountsByOwner, solana.StageRead); err != nil {
		return nil, err
	}

	var keys []ed25519.PublicKey
	for _, account := range c.tokenAccounts[base58.Encode(owner)] {
		data := account.Account.Data
		if len(data) >= ed25519.PublicKeySize && bytes.Equal(data[:ed25519.PublicKeySize], mint) {
			keys = append(keys, account.PublicKey)
		}
	}
	return keys, nil
}

// GetTokenAccountsByOwnerAndProgram implements
// solana.Client.GetTokenAccountsByOwnerAndProgram.
func (c *Client) GetTokenAccountsByOwnerAndProgram(owner, program ed25519.PublicKey) ([]solana.KeyedAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.induced(MethodGetTokenAccountsByOwner, solana.StageRead); err != nil {
		return nil, err
	}

	var accounts []solana.KeyedAccount
	for _, account := range c.tokenAccounts[base58.Encode(owner)] {
		if account.Account.Owner.Equal(program) {
			accounts = append(accounts, account)
		}
	}
	return accounts, nil
}

// RequestAirdrop implements solana.Client.RequestAirdrop.
func (c *Client) RequestAirdrop(account ed25519.PublicKey, lamports uint64, _ solana.Commitment) (solana.Signature, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.induced(MethodRequestAirdrop, solana.StageSubmit); err != nil {
		return solana.Signature{}, err
	}

	key := base58.Encode(account)
	c.balances[key] += lamports

	var sig solana.Signature
	digest := sha256.Sum256(append([]byte("airdrop"), account...))
	copy(sig[:], digest[:])

	if !c.pending {
		c.statuses[sig] = &solana.SignatureStatus{
			ConfirmationStatus: solana.CommitmentFinalized.Commitment,
		}
	}
	return sig, nil
}

// SubmitTransaction implements solana.Client.SubmitTransaction.
func (c *Client) SubmitTransaction(txn solana.Transaction, _ solana.SubmitOptions) (solana.Signature, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sig := txn.Signature()
	if sig == (solana.Signature{}) {
		return sig, errors.New("transaction is not signed by the fee payer")
	}

	if err := c.induced(MethodSendTransaction, solana.StageSubmit); err != nil {
		return sig, err
	}

	if err := txn.VerifySignatures(); err != nil {
		return sig, &solana.RejectionError{
			Stage:            solana.StageSubmit,
			Signature:        sig,
			InstructionIndex: -1,
			Reason:           ReasonSignatureVerification,
		}
	}

	if _, ok := c.blockhashes[txn.Message.RecentBlockhash]; !ok {
		return sig, &solana.RejectionError{
			Stage:            solana.StageSubmit,
			Signature:        sig,
			InstructionIndex: -1,
			Reason:           ReasonBlockhashNotFound,
			TxErr:            solana.NewTransactionError(solana.TransactionErrorBlockhashNotFound),
		}
	}

	for _, hook := range c.submitHooks {
		if err := hook(txn); err != nil {
			return sig, err
		}
	}

	c.submitted = append(c.submitted, txn)
	if !c.pending {
		c.statuses[sig] = &solana.SignatureStatus{
			Slot:               uint64(len(c.submitted)),
			ConfirmationStatus: solana.CommitmentFinalized.Commitment,
		}
	}

	return sig, nil
}

func (c *Client) induced(method string, stage solana.Stage) error {
	err, ok := c.inducedErrors[method]
	if !ok {
		return nil
	}
	if solana.IsRejection(err) || solana.IsConnectivity(err) {
		return err
	}
	return &solana.ConnectivityError{Stage: stage, Cause: err}
}
