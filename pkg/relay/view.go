package relay

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/tixchain/ticket-server/pkg/solana"
	ticketing_api "github.com/tixchain/ticket-server/pkg/solana/ticketing"
)

const (
	successJsonKey      = "success"
	errorJsonKey        = "error"
	programErrorJsonKey = "program_error"
)

// ProgramError is a transaction rejected by the ticketing program, named the
// way the program names its errors.
type ProgramError struct {
	Name        string
	Code        solana.CustomError
	Instruction int
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("%s: instruction %d failed with program error %d", e.Name, e.Instruction, int(e.Code))
}

// programErrorFromTransactionError returns the named program error behind
// txErr, or nil when the failure did not come from the ticketing program.
func programErrorFromTransactionError(txErr *solana.TransactionError) *ProgramError {
	ixErr := txErr.InstructionError()
	if ixErr == nil {
		return nil
	}

	code := ixErr.CustomError()
	if code == nil {
		return nil
	}

	name, ok := ticketing_api.ErrorName(*code)
	if !ok {
		return nil
	}

	return &ProgramError{
		Name:        name,
		Code:        *code,
		Instruction: ixErr.Index,
	}
}

type GenericApiResponseBody map[string]any

func NewGenericApiSuccessResponseBody() GenericApiResponseBody {
	return map[string]any{
		successJsonKey: true,
	}
}

func NewGenericApiFailureResponseBody(err error) GenericApiResponseBody {
	body := map[string]any{
		successJsonKey: false,
		errorJsonKey:   err.Error(),
	}

	var programErr *ProgramError
	if errors.As(err, &programErr) {
		body[programErrorJsonKey] = programErr.Name
	}
	return body
}

func (b *GenericApiResponseBody) ToString() string {
	marshalled, _ := json.Marshal(b)
	return string(marshalled)
}

// HandleErrorInWebContext maps builder and chain errors to an HTTP status and
// the error that is safe to show the caller.
func HandleErrorInWebContext(err error) (int, error) {
	if err == nil {
		return http.StatusOK, nil
	}

	var txErr *solana.TransactionError
	switch {
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, ErrRateLimited
	case errors.Is(err, ErrEventNotFound), errors.Is(err, ErrListingNotFound):
		return http.StatusNotFound, err
	case errors.Is(err, ErrNotOrganizer), errors.Is(err, ErrNotSeller), errors.Is(err, ErrNotTicketHolder):
		return http.StatusForbidden, err
	case errors.Is(err, ErrEventExists), errors.Is(err, ErrAlreadyListed), errors.Is(err, ErrSoldOut):
		return http.StatusConflict, err
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrInvalidTransaction):
		return http.StatusBadRequest, err
	case errors.As(err, &txErr):
		if programErr := programErrorFromTransactionError(txErr); programErr != nil {
			return http.StatusUnprocessableEntity, programErr
		}
		return http.StatusUnprocessableEntity, txErr
	default:
		return http.StatusInternalServerError, errors.New("internal server error")
	}
}

func unsignedTransactionToResponseBody(tx *UnsignedTransaction) GenericApiResponseBody {
	addresses := make(map[string]string, len(tx.Addresses))
	for role, address := range tx.Addresses {
		addresses[role] = base58.Encode(address)
	}

	body := NewGenericApiSuccessResponseBody()
	body["transaction"] = tx.Transaction
	body["payer"] = base58.Encode(tx.Payer)
	body["blockhash"] = base58.Encode(tx.Blockhash[:])
	body["accounts"] = addresses
	if tx.TicketIndex != nil {
		body["ticket_index"] = *tx.TicketIndex
	}
	return body
}

func eventToJson(address []byte, event *ticketing_api.EventAccount) map[string]any {
	return map[string]any{
		"address":        base58.Encode(address),
		"organizer":      base58.Encode(event.Organizer),
		"nonce":          event.Nonce,
		"title":          event.Title,
		"venue":          event.Venue,
		"date_ts":        event.DateTs,
		"tier_name":      event.TierName,
		"price_lamports": event.PriceLamports,
		"supply":         event.Supply,
		"sold":           event.Sold,
		"remaining":      event.Remaining(),
		"sold_out":       event.IsSoldOut(),
	}
}

func listingToJson(address []byte, listing *ticketing_api.ListingAccount) map[string]any {
	return map[string]any{
		"address":        base58.Encode(address),
		"seller":         base58.Encode(listing.Seller),
		"event":          base58.Encode(listing.Event),
		"ticket_mint":    base58.Encode(listing.TicketMint),
		"price_lamports": listing.PriceLamports,
	}
}

func splitToJson(price uint64, split *ticketing_api.ResaleSplit) map[string]any {
	return map[string]any{
		"price_lamports":     price,
		"organizer_lamports": split.Organizer,
		"seller_lamports":    split.Seller,
		"platform_lamports":  split.Platform,
	}
}
