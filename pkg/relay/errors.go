package relay

import (
	"github.com/pkg/errors"
)

var (
	ErrRateLimited        = errors.New("wallet is rate limited")
	ErrEventNotFound      = errors.New("event not found")
	ErrEventExists        = errors.New("event already exists")
	ErrListingNotFound    = errors.New("listing not found")
	ErrAlreadyListed      = errors.New("ticket is already listed")
	ErrSoldOut            = errors.New("event is sold out")
	ErrNotOrganizer       = errors.New("wallet is not the event organizer")
	ErrNotSeller          = errors.New("wallet is not the listing seller")
	ErrNotTicketHolder    = errors.New("wallet does not hold the ticket")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidTransaction = errors.New("invalid transaction")
)
