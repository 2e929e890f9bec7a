package token

import (
	"crypto/ed25519"

	"github.com/solagent/solagent-go/pkg/solana/binary"
)

type AccountState byte

const (
	AccountStateUninitialized AccountState = iota
	AccountStateInitialized
	AccountStateFrozen
)

// Reference: https://github.com/solana-labs/solana-program-library/blob/11b1e3eefdd4e523768d63f7c70a7aa391ea0d02/token/program/src/state.rs#L125
const AccountSize = 165

// Reference: https://github.com/solana-labs/solana-program-library/blob/11b1e3eefdd4e523768d63f7c70a7aa391ea0d02/token/program/src/state.rs#L37
const MintSize = 82

type Account struct {
	// The mint associated with this account
	Mint ed25519.PublicKey
	// The owner of this account.
	Owner ed25519.PublicKey
	// The amount of tokens this account holds.
	Amount uint64
	// If set, then the 'DelegatedAmount' represents the amount
	// authorized by the delegate.
	Delegate ed25519.PublicKey
	/// The account's state
	State AccountState
	// If set, this is a native token, and the value logs the rent-exempt reserve.
	IsNative *uint64
	// The amount delegated
	DelegatedAmount uint64
	// Optional authority to close the account.
	CloseAuthority ed25519.PublicKey
}

// Closable reports whether the account can be closed by its owner: it must be
// initialized and hold no tokens.
func (a *Account) Closable() bool {
	return a.State == AccountStateInitialized && a.Amount == 0 && a.IsNative == nil
}

func (a *Account) Marshal() []byte {
	b, err := binary.NewEncoder().
		Key(a.Mint).
		Key(a.Owner).
		U64(a.Amount).
		COptionKey(a.Delegate).
		U8(byte(a.State)).
		COptionU64(a.IsNative).
		U64(a.DelegatedAmount).
		COptionKey(a.CloseAuthority).
		Bytes()
	if err != nil {
		return nil
	}
	return b
}

// Unmarshal decodes an account. Accounts owned by the extension program may
// carry extension data past the base layout, which is ignored.
func (a *Account) Unmarshal(b []byte) bool {
	if len(b) < AccountSize {
		return false
	}

	d := binary.NewDecoder(b)
	a.Mint = d.Key()
	a.Owner = d.Key()
	a.Amount = d.U64()
	a.Delegate = d.COptionKey()
	a.State = AccountState(d.U8())
	a.IsNative = d.COptionU64()
	a.DelegatedAmount = d.U64()
	a.CloseAuthority = d.COptionKey()

	return d.Err() == nil
}

type Mint struct {
	// Optional authority used to mint new tokens. Unset for fixed supply mints.
	MintAuthority ed25519.PublicKey
	// Total supply of tokens.
	Supply uint64
	// Number of base 10 digits to the right of the decimal place.
	Decimals byte
	// Is true if this structure has been initialized
	IsInitialized bool
	// Optional authority to freeze token accounts.
	FreezeAuthority ed25519.PublicKey
}

func (m *Mint) Marshal() []byte {
	b, err := binary.NewEncoder().
		COptionKey(m.MintAuthority).
		U64(m.Supply).
		U8(m.Decimals).
		Bool(m.IsInitialized).
		COptionKey(m.FreezeAuthority).
		Bytes()
	if err != nil {
		return nil
	}
	return b
}

func (m *Mint) Unmarshal(b []byte) bool {
	if len(b) < MintSize {
		return false
	}

	d := binary.NewDecoder(b)
	m.MintAuthority = d.COptionKey()
	m.Supply = d.U64()
	m.Decimals = d.U8()
	m.IsInitialized = d.Bool()
	m.FreezeAuthority = d.COptionKey()

	return d.Err() == nil && m.IsInitialized
}
