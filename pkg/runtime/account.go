package runtime

import (
	"bytes"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/tixchain/ticket-server/pkg/data/account"
	"github.com/tixchain/ticket-server/pkg/solana"
	"github.com/tixchain/ticket-server/pkg/solana/system"
)

// NativeLoaderKey owns every builtin program account.
var NativeLoaderKey = solana.MustPublicKeyFromString("NativeLoader1111111111111111111111111111111")

// Account is the in-flight state of a ledger account while a transaction
// executes. Programs mutate it in place; the runtime verifies every change
// against the executing program's privileges.
type Account struct {
	Address    ed25519.PublicKey
	Owner      ed25519.PublicKey
	Lamports   uint64
	Data       []byte
	Executable bool
}

func newEmptyAccount(address ed25519.PublicKey) *Account {
	return &Account{
		Address: address,
		Owner:   system.ProgramKey[:],
	}
}

func newProgramAccount(address ed25519.PublicKey) *Account {
	return &Account{
		Address:    address,
		Owner:      NativeLoaderKey,
		Lamports:   1,
		Executable: true,
	}
}

func fromRecord(record *account.Record) (*Account, error) {
	address, err := record.GetPublicKey()
	if err != nil {
		return nil, errors.Wrap(err, "invalid account address")
	}

	owner, err := record.GetOwnerPublicKey()
	if err != nil {
		return nil, errors.Wrap(err, "invalid account owner")
	}

	data := make([]byte, len(record.Data))
	copy(data, record.Data)

	return &Account{
		Address:    address,
		Owner:      owner,
		Lamports:   record.Lamports,
		Data:       data,
		Executable: record.Executable,
	}, nil
}

func (a *Account) toRecord() *account.Record {
	data := make([]byte, len(a.Data))
	copy(data, a.Data)

	return &account.Record{
		Address:    base58.Encode(a.Address),
		Owner:      base58.Encode(a.Owner),
		Lamports:   a.Lamports,
		Data:       data,
		Executable: a.Executable,
	}
}

// IsOwnedBy reports whether program owns the account.
func (a *Account) IsOwnedBy(program ed25519.PublicKey) bool {
	return bytes.Equal(a.Owner, program)
}

// IsEmpty reports whether the account holds neither lamports nor data, which
// is the state of any address that was never created or has been closed.
func (a *Account) IsEmpty() bool {
	return a.Lamports == 0 && len(a.Data) == 0
}

func (a *Account) String() string {
	return base58.Encode(a.Address)
}

func (a *Account) clone() *Account {
	cloned := &Account{
		Address:    a.Address,
		Owner:      make(ed25519.PublicKey, len(a.Owner)),
		Lamports:   a.Lamports,
		Data:       make([]byte, len(a.Data)),
		Executable: a.Executable,
	}
	copy(cloned.Owner, a.Owner)
	copy(cloned.Data, a.Data)
	return cloned
}

func (a *Account) equal(other *Account) bool {
	return a.Lamports == other.Lamports &&
		a.Executable == other.Executable &&
		bytes.Equal(a.Owner, other.Owner) &&
		bytes.Equal(a.Data, other.Data) &&
		len(a.Data) == len(other.Data)
}

// TransferLamports moves amount from one account to another. The runtime
// only accepts the debit if the executing program owns from.
func TransferLamports(from, to *Account, amount uint64) error {
	if from.Lamports < amount {
		return solana.InstructionErrorInsufficientFunds
	}

	credited := to.Lamports + amount
	if credited < to.Lamports {
		return solana.InstructionErrorArithmeticOverflow
	}

	from.Lamports -= amount
	to.Lamports = credited
	return nil
}

// Close drains the account into destination and releases its data, leaving
// it to be removed from the ledger when the transaction commits.
func Close(a, destination *Account) error {
	if err := TransferLamports(a, destination, a.Lamports); err != nil {
		return err
	}

	a.Data = nil
	a.Owner = system.ProgramKey[:]
	return nil
}

func isZeroed(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}
