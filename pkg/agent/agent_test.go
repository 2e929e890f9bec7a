package agent

import (
	"context"
	"crypto/ed25519"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solagent/solagent-go/pkg/agent/transaction"
	"github.com/solagent/solagent-go/pkg/solana"
	"github.com/solagent/solagent-go/pkg/solana/solanatest"
	"github.com/solagent/solagent-go/pkg/solana/token"
	"github.com/solagent/solagent-go/pkg/testutil"
)

type testEnv struct {
	client *solanatest.Client
	wallet *solana.Keypair
	agent  *Agent

	// mux serves every remote plan provider, each under its own prefix.
	mux    *http.ServeMux
	server *httptest.Server
}

func setup(t *testing.T) *testEnv {
	return setupWithOverrides(t, Overrides{})
}

func setupWithOverrides(t *testing.T, overrides Overrides) *testEnv {
	env := &testEnv{
		client: solanatest.NewClient(),
		wallet: testutil.GenerateSolanaKeypair(t),
		mux:    http.NewServeMux(),
	}

	env.server = httptest.NewServer(env.mux)
	t.Cleanup(env.server.Close)

	overrides.JupiterBaseUrl = env.server.URL + "/v6/"
	overrides.JupiterStakeBaseUrl = env.server.URL + "/blinks/swap/"
	overrides.GibworkBaseUrl = env.server.URL + "/gibwork/"
	overrides.PumpPortalBaseUrl = env.server.URL + "/pumpportal/"
	overrides.PumpIpfsBaseUrl = env.server.URL + "/pump/"

	var err error
	env.agent, err = New(
		env.client,
		env.wallet,
		WithConfig(WithOverrides(overrides)),
		WithPipelineConfig(transaction.WithOverrides(transaction.Overrides{ConfirmationTimeout: time.Second})),
		WithHttpClient(env.server.Client()),
	)
	require.NoError(t, err)

	return env
}

// addMint registers an initialized mint owned by program.
func (e *testEnv) addMint(t *testing.T, decimals byte, program ed25519.PublicKey) ed25519.PublicKey {
	mint := testutil.GenerateSolanaKeys(t, 1)[0]
	state := token.Mint{
		MintAuthority: e.wallet.PublicKey(),
		Decimals:      decimals,
		IsInitialized: true,
	}
	e.client.SetAccountInfo(mint, solana.AccountInfo{
		Data:     state.Marshal(),
		Owner:    program,
		Lamports: solanatest.RentExemption(token.MintSize),
	})
	return mint
}

func (e *testEnv) onlySubmission(t *testing.T) solana.Transaction {
	submitted := e.client.Submitted()
	require.Len(t, submitted, 1)

	txn := submitted[0]
	assert.EqualValues(t, e.wallet.PublicKey(), txn.FeePayer())
	assert.True(t, e.client.IssuedBlockhash(txn.Message.RecentBlockhash))
	assert.NoError(t, txn.VerifySignatures())
	return txn
}

func TestNew_Validation(t *testing.T) {
	wallet := testutil.GenerateSolanaKeypair(t)

	_, err := New(nil, wallet)
	assert.Error(t, err)

	_, err = New(solanatest.NewClient(), nil)
	assert.Error(t, err)

	_, err = New(solanatest.NewClient(), wallet, WithConfig(WithOverrides(Overrides{JupiterBaseUrl: "ftp://quote-api.jup.ag"})))
	assert.Error(t, err)

	a, err := New(solanatest.NewClient(), wallet, WithConfig(WithOverrides(Overrides{})))
	require.NoError(t, err)
	assert.EqualValues(t, wallet.PublicKey(), a.Wallet())
	assert.EqualValues(t, wallet.PublicKey(), a.Pipeline().Wallet())
}

func TestGetBalance(t *testing.T) {
	env := setup(t)
	other := testutil.GenerateSolanaKeys(t, 1)[0]

	env.client.SetBalance(env.wallet.PublicKey(), 1_500_000_000)
	env.client.SetBalance(other, 1)

	balance, err := env.agent.GetBalance(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "1.5", balance.String())

	balance, err = env.agent.GetBalance(context.Background(), other)
	require.NoError(t, err)
	assert.Equal(t, "0.000000001", balance.String())

	// An unreachable node is an error, never a zero balance.
	env.client.InduceError(solanatest.MethodGetBalance, errors.New("connection refused"))
	_, err = env.agent.GetBalance(context.Background(), nil)
	assert.True(t, solana.IsConnectivity(err))
}

func TestGetTokenBalance(t *testing.T) {
	env := setup(t)
	mint := env.addMint(t, 6, token.ProgramKey)

	// No associated account yet.
	balance, err := env.agent.GetTokenBalance(context.Background(), mint, nil)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	ata, err := token.GetAssociatedAccount(env.wallet.PublicKey(), mint, token.ProgramKey)
	require.NoError(t, err)
	env.client.SetTokenBalance(ata, solana.TokenAmount{Amount: "12345678", Decimals: 6, UIAmountString: "12.345678"})

	balance, err = env.agent.GetTokenBalance(context.Background(), mint, nil)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12.345678").Equal(balance))

	env.client.InduceError(solanatest.MethodGetTokenAccountBalance, errors.New("connection refused"))
	_, err = env.agent.GetTokenBalance(context.Background(), mint, nil)
	assert.True(t, solana.IsConnectivity(err))

	_, err = env.agent.GetTokenBalance(context.Background(), testutil.GenerateSolanaKeys(t, 1)[0], nil)
	assert.True(t, solana.IsValidation(err))
}

func TestGetTokenBalance_NonAssociatedAccounts(t *testing.T) {
	env := setup(t)
	mint := env.addMint(t, 6, token.ProgramKey)
	other := env.addMint(t, 6, token.ProgramKey)

	held := []ed25519.PublicKey{
		env.addTokenAccount(t, token.ProgramKey, mint, 2_000_000),
		env.addTokenAccount(t, token.ProgramKey, mint, 500_000),
		env.addTokenAccount(t, token.ProgramKey, other, 9_000_000),
	}
	env.client.SetTokenBalance(held[0], solana.TokenAmount{Amount: "2000000", Decimals: 6})
	env.client.SetTokenBalance(held[1], solana.TokenAmount{Amount: "500000", Decimals: 6})
	env.client.SetTokenBalance(held[2], solana.TokenAmount{Amount: "9000000", Decimals: 6})

	// Without an associated account, the owner's other accounts for the mint
	// are summed.
	balance, err := env.agent.GetTokenBalance(context.Background(), mint, nil)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("2.5").Equal(balance), balance.String())

	env.client.InduceError(solanatest.MethodGetTokenAccountsByOwner, errors.New("connection refused"))
	_, err = env.agent.GetTokenBalance(context.Background(), mint, nil)
	assert.True(t, solana.IsConnectivity(err))
}

func TestGetMintInfo_Cached(t *testing.T) {
	env := setup(t)
	mint := env.addMint(t, 9, token.Token2022ProgramKey)

	info, err := env.agent.getMintInfo(mint)
	require.NoError(t, err)
	assert.EqualValues(t, 9, info.decimals)
	assert.EqualValues(t, token.Token2022ProgramKey, info.program)

	// Mint state is immutable, so later lookups don't touch the network.
	env.client.InduceError(solanatest.MethodGetAccountInfo, errors.New("connection refused"))
	cached, err := env.agent.getMintInfo(mint)
	require.NoError(t, err)
	assert.Equal(t, info, cached)
}

func TestRequestFunds(t *testing.T) {
	env := setupWithOverrides(t, Overrides{AirdropAmount: 2_000_000_000})

	_, err := env.agent.RequestFunds(context.Background())
	require.NoError(t, err)

	balance, err := env.agent.GetBalance(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "2", balance.String())

	env.client.InduceError(solanatest.MethodRequestAirdrop, errors.New("airdrop limit reached"))
	_, err = env.agent.RequestFunds(context.Background())
	assert.Error(t, err)
}

type countingClient struct {
	*solanatest.Client
	accountInfoCalls atomic.Int32
}

func (c *countingClient) GetAccountInfo(account ed25519.PublicKey, commitment solana.Commitment) (solana.AccountInfo, error) {
	c.accountInfoCalls.Add(1)
	return c.Client.GetAccountInfo(account, commitment)
}

func TestGetMintInfo_Concurrent(t *testing.T) {
	env := setup(t)
	mint := env.addMint(t, 6, token.ProgramKey)

	client := &countingClient{Client: env.client}
	a, err := New(client, env.wallet, WithConfig(WithOverrides(Overrides{})))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			info, err := a.getMintInfo(mint)
			assert.NoError(t, err)
			assert.EqualValues(t, 6, info.decimals)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, client.accountInfoCalls.Load())
}
