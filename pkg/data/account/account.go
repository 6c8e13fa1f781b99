package account

import (
	"crypto/ed25519"
	"math"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// Record is the persisted state of a single ledger account, keyed by its
// base58 address.
type Record struct {
	Id uint64

	Address    string
	Owner      string
	Lamports   uint64
	Data       []byte
	Executable bool

	// Slot is the slot of the last transaction that wrote the account.
	Slot uint64

	CreatedAt time.Time
}

func (r *Record) Validate() error {
	if len(r.Address) == 0 {
		return errors.New("address is required")
	}

	if len(r.Owner) == 0 {
		return errors.New("owner is required")
	}

	if r.Lamports > math.MaxInt64 {
		return errors.New("lamports exceed storable range")
	}

	return nil
}

// IsClosed reports whether the record represents an account that must be
// removed from the ledger.
func (r *Record) IsClosed() bool {
	return r.Lamports == 0
}

func (r *Record) GetPublicKey() (ed25519.PublicKey, error) {
	return base58.Decode(r.Address)
}

func (r *Record) GetOwnerPublicKey() (ed25519.PublicKey, error) {
	return base58.Decode(r.Owner)
}

func (r *Record) Clone() Record {
	data := make([]byte, len(r.Data))
	copy(data, r.Data)

	return Record{
		Id:         r.Id,
		Address:    r.Address,
		Owner:      r.Owner,
		Lamports:   r.Lamports,
		Data:       data,
		Executable: r.Executable,
		Slot:       r.Slot,
		CreatedAt:  r.CreatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id
	dst.Address = r.Address
	dst.Owner = r.Owner
	dst.Lamports = r.Lamports
	dst.Data = make([]byte, len(r.Data))
	copy(dst.Data, r.Data)
	dst.Executable = r.Executable
	dst.Slot = r.Slot
	dst.CreatedAt = r.CreatedAt
}
