package solanatest

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solagent/solagent-go/pkg/solana"
	"github.com/solagent/solagent-go/pkg/solana/system"
)

var _ solana.Client = (*Client)(nil)

func newTransfer(t *testing.T) (solana.Transaction, *solana.Keypair) {
	payer, err := solana.NewKeypair()
	require.NoError(t, err)
	dest, err := solana.NewKeypair()
	require.NoError(t, err)

	return solana.NewTransaction(payer.PublicKey(), system.Transfer(payer.PublicKey(), dest.PublicKey(), 10)), payer
}

func TestClient_Submit(t *testing.T) {
	c := NewClient()
	tx, payer := newTransfer(t)

	bh, err := c.GetLatestBlockhash()
	require.NoError(t, err)
	next, err := c.GetLatestBlockhash()
	require.NoError(t, err)
	assert.NotEqual(t, bh, next)
	assert.True(t, c.IssuedBlockhash(bh))

	tx.SetBlockhash(bh)
	require.NoError(t, tx.Sign(payer))

	sig, err := c.SubmitTransaction(tx, solana.SubmitOptions{})
	require.NoError(t, err)
	assert.Equal(t, tx.Signature(), sig)
	require.Len(t, c.Submitted(), 1)

	statuses, err := c.GetSignatureStatuses([]solana.Signature{sig, {}})
	require.NoError(t, err)
	require.NotNil(t, statuses[0])
	assert.True(t, statuses[0].Finalized())
	assert.Nil(t, statuses[1])
}

func TestClient_Submit_Rejections(t *testing.T) {
	c := NewClient()
	tx, payer := newTransfer(t)

	// Unknown blockhash.
	tx.SetBlockhash(solana.Blockhash{1})
	require.NoError(t, tx.Sign(payer))
	_, err := c.SubmitTransaction(tx, solana.SubmitOptions{})
	var rejection *solana.RejectionError
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, ReasonBlockhashNotFound, rejection.Reason)

	// Bad signature.
	bh, err := c.GetLatestBlockhash()
	require.NoError(t, err)
	tx.SetBlockhash(bh)
	tx.Signatures[0][0] = 1
	_, err = c.SubmitTransaction(tx, solana.SubmitOptions{})
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, ReasonSignatureVerification, rejection.Reason)

	// Scripted.
	require.NoError(t, tx.Sign(payer))
	c.RejectSubmissionAt(0, "custom program error: 0x1")
	_, err = c.SubmitTransaction(tx, solana.SubmitOptions{})
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, "custom program error: 0x1", rejection.Reason)

	_, err = c.SubmitTransaction(tx, solana.SubmitOptions{})
	assert.NoError(t, err)
	assert.Len(t, c.Submitted(), 1)
}

func TestClient_InducedErrors(t *testing.T) {
	c := NewClient()
	c.InduceError(MethodGetLatestBlockhash, errors.New("connection refused"))

	_, err := c.GetLatestBlockhash()
	var connErr *solana.ConnectivityError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, solana.StageBlockhash, connErr.Stage)

	c.InduceError(MethodGetLatestBlockhash, nil)
	_, err = c.GetLatestBlockhash()
	assert.NoError(t, err)
}

func TestClient_Reads(t *testing.T) {
	c := NewClient()
	keys := make([]*solana.Keypair, 5)
	for i := range keys {
		var err error
		keys[i], err = solana.NewKeypair()
		require.NoError(t, err)
	}
	owner, account, program := keys[0].PublicKey(), keys[1].PublicKey(), keys[2].PublicKey()

	balance, err := c.GetBalance(owner)
	require.NoError(t, err)
	assert.Zero(t, balance)

	_, err = c.RequestAirdrop(owner, solana.LamportsPerSol, solana.CommitmentConfirmed)
	require.NoError(t, err)
	balance, err = c.GetBalance(owner)
	require.NoError(t, err)
	assert.EqualValues(t, solana.LamportsPerSol, balance)

	_, err = c.GetTokenAccountBalance(account)
	assert.Equal(t, solana.ErrNoBalance, err)

	c.AddTokenAccount(owner, account, solana.AccountInfo{Owner: program, Lamports: 1})
	accounts, err := c.GetTokenAccountsByOwnerAndProgram(owner, program)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	accounts, err = c.GetTokenAccountsByOwnerAndProgram(owner, owner)
	require.NoError(t, err)
	assert.Empty(t, accounts)

	// The mint is read from the account data, so an account without any
	// matches no mint.
	byMint, err := c.GetTokenAccountsByOwner(owner, program)
	require.NoError(t, err)
	assert.Empty(t, byMint)

	mint := keys[3].PublicKey()
	mintAccount := keys[4].PublicKey()
	c.AddTokenAccount(owner, mintAccount, solana.AccountInfo{Owner: program, Data: append(append([]byte{}, mint...), owner...)})
	byMint, err = c.GetTokenAccountsByOwner(owner, mint)
	require.NoError(t, err)
	require.Len(t, byMint, 1)
	assert.EqualValues(t, mintAccount, byMint[0])

	info, err := c.GetAccountInfo(account, solana.CommitmentConfirmed)
	require.NoError(t, err)
	assert.EqualValues(t, program, info.Owner)

	rent, err := c.GetMinimumBalanceForRentExemption(82)
	require.NoError(t, err)
	assert.EqualValues(t, 1461600, rent)
}
