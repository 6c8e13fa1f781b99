package token

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/tixchain/ticket-server/pkg/solana/binary"
)

type AccountState byte

const (
	AccountStateUninitialized AccountState = iota
	AccountStateInitialized
	AccountStateFrozen
)

// Reference: https://github.com/solana-labs/solana-program-library/blob/11b1e3eefdd4e523768d63f7c70a7aa391ea0d02/token/program/src/state.rs#L125
const AccountSize = 165

// Reference: https://github.com/solana-labs/solana-program-library/blob/11b1e3eefdd4e523768d63f7c70a7aa391ea0d02/token/program/src/state.rs#L44
const MintSize = 82

const optionSize = 4

var (
	ErrInvalidAccountSize = errors.New("invalid token account size")
	ErrInvalidMintSize    = errors.New("invalid mint size")
)

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
	// The account's state
	State AccountState
	// If set, this is a native token, and the value logs the rent-exempt reserve.
	IsNative *uint64
	// The amount delegated
	DelegatedAmount uint64
	// Optional authority to close the account.
	CloseAuthority ed25519.PublicKey
}

func (a *Account) Marshal() []byte {
	b := make([]byte, AccountSize)

	var offset int
	binary.PutKey32(b, a.Mint, &offset)
	binary.PutKey32(b, a.Owner, &offset)
	binary.PutUint64(b, a.Amount, &offset)
	binary.PutOptionalKey32(b, a.Delegate, &offset, optionSize)
	binary.PutUint8(b, byte(a.State), &offset)
	binary.PutOptionalUint64(b, a.IsNative, &offset, optionSize)
	binary.PutUint64(b, a.DelegatedAmount, &offset)
	binary.PutOptionalKey32(b, a.CloseAuthority, &offset, optionSize)

	return b
}

func (a *Account) Unmarshal(b []byte) error {
	if len(b) != AccountSize {
		return ErrInvalidAccountSize
	}

	var state uint8
	var offset int
	for _, get := range []func() error{
		func() error { return binary.GetKey32(b, &a.Mint, &offset) },
		func() error { return binary.GetKey32(b, &a.Owner, &offset) },
		func() error { return binary.GetUint64(b, &a.Amount, &offset) },
		func() error { return binary.GetOptionalKey32(b, &a.Delegate, &offset, optionSize) },
		func() error { return binary.GetUint8(b, &state, &offset) },
		func() error { return binary.GetOptionalUint64(b, &a.IsNative, &offset, optionSize) },
		func() error { return binary.GetUint64(b, &a.DelegatedAmount, &offset) },
		func() error { return binary.GetOptionalKey32(b, &a.CloseAuthority, &offset, optionSize) },
	} {
		if err := get(); err != nil {
			return err
		}
	}
	a.State = AccountState(state)

	return nil
}

// Mint is the SPL token mint layout.
type Mint struct {
	// Optional authority used to mint new tokens. A nil authority means the
	// supply is fixed.
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
	b := make([]byte, MintSize)

	var offset int
	binary.PutOptionalKey32(b, m.MintAuthority, &offset, optionSize)
	binary.PutUint64(b, m.Supply, &offset)
	binary.PutUint8(b, m.Decimals, &offset)
	binary.PutBool(b, m.IsInitialized, &offset)
	binary.PutOptionalKey32(b, m.FreezeAuthority, &offset, optionSize)

	return b
}

func (m *Mint) Unmarshal(b []byte) error {
	if len(b) != MintSize {
		return ErrInvalidMintSize
	}

	var offset int
	for _, get := range []func() error{
		func() error { return binary.GetOptionalKey32(b, &m.MintAuthority, &offset, optionSize) },
		func() error { return binary.GetUint64(b, &m.Supply, &offset) },
		func() error { return binary.GetUint8(b, &m.Decimals, &offset) },
		func() error { return binary.GetBool(b, &m.IsInitialized, &offset) },
		func() error { return binary.GetOptionalKey32(b, &m.FreezeAuthority, &offset, optionSize) },
	} {
		if err := get(); err != nil {
			return err
		}
	}

	return nil
}
