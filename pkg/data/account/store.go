package account

import (
	"context"
	"errors"

	"github.com/tixchain/ticket-server/pkg/database/query"
)

var (
	ErrAccountNotFound = errors.New("account not found")
)

type Store interface {
	// Get returns the account at address.
	//
	// Returns ErrAccountNotFound if no live account exists at the address.
	Get(ctx context.Context, address string) (*Record, error)

	// GetAllByOwner returns live accounts owned by the provided program, paged
	// by record id.
	//
	// Returns ErrAccountNotFound if no records are found.
	GetAllByOwner(ctx context.Context, owner string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*Record, error)

	// Commit atomically applies the provided account writes at slot. Either
	// every record is written or none are. A record with zero lamports removes
	// the account. On success, each record is updated with its stored state.
	Commit(ctx context.Context, slot uint64, records ...*Record) error

	// Count returns the number of live accounts.
	Count(ctx context.Context) (uint64, error)
}
