package relay

import (
	"crypto/ed25519"
	"encoding/json"
	"io"
	"net/http"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	ticketing_api "github.com/tixchain/ticket-server/pkg/solana/ticketing"
)

type createEventRequest struct {
	organizer ed25519.PublicKey
	args      *ticketing_api.CreateEventInstructionArgs
}

type buyTicketRequest struct {
	buyer ed25519.PublicKey
	event ed25519.PublicKey
}

type closeEventRequest struct {
	organizer ed25519.PublicKey
	event     ed25519.PublicKey
}

type listForResaleRequest struct {
	seller        ed25519.PublicKey
	event         ed25519.PublicKey
	ticketMint    ed25519.PublicKey
	ticketIndex   uint32
	priceLamports uint64
}

type buyResaleRequest struct {
	buyer      ed25519.PublicKey
	ticketMint ed25519.PublicKey
}

type cancelListingRequest struct {
	seller     ed25519.PublicKey
	ticketMint ed25519.PublicKey
}

func decodeJsonBody(r *http.Request, maxSize uint64, dst interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, int64(maxSize)+1))
	if err != nil {
		return err
	}
	if uint64(len(body)) > maxSize {
		return errors.New("request body too large")
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return errors.Wrap(err, "request body is not valid json")
	}
	return nil
}

func parsePublicKey(field, value string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(value)
	if err != nil || len(decoded) != ed25519.PublicKeySize {
		return nil, errors.Errorf("%s is not a public key", field)
	}
	return decoded, nil
}

func newCreateEventRequestFromHttpContext(r *http.Request, maxSize uint64) (*createEventRequest, error) {
	httpRequestBody := struct {
		Organizer     string `json:"organizer"`
		Nonce         uint64 `json:"nonce"`
		Title         string `json:"title"`
		Venue         string `json:"venue"`
		DateTs        int64  `json:"date_ts"`
		TierName      string `json:"tier_name"`
		PriceLamports uint64 `json:"price_lamports"`
		Supply        uint32 `json:"supply"`
	}{}

	if err := decodeJsonBody(r, maxSize, &httpRequestBody); err != nil {
		return nil, err
	}

	organizer, err := parsePublicKey("organizer", httpRequestBody.Organizer)
	if err != nil {
		return nil, err
	}

	return &createEventRequest{
		organizer: organizer,
		args: &ticketing_api.CreateEventInstructionArgs{
			Nonce:         httpRequestBody.Nonce,
			Title:         httpRequestBody.Title,
			Venue:         httpRequestBody.Venue,
			DateTs:        httpRequestBody.DateTs,
			TierName:      httpRequestBody.TierName,
			PriceLamports: httpRequestBody.PriceLamports,
			Supply:        httpRequestBody.Supply,
		},
	}, nil
}

func newBuyTicketRequestFromHttpContext(r *http.Request, maxSize uint64) (*buyTicketRequest, error) {
	httpRequestBody := struct {
		Buyer string `json:"buyer"`
		Event string `json:"event"`
	}{}

	if err := decodeJsonBody(r, maxSize, &httpRequestBody); err != nil {
		return nil, err
	}

	buyer, err := parsePublicKey("buyer", httpRequestBody.Buyer)
	if err != nil {
		return nil, err
	}
	event, err := parsePublicKey("event", httpRequestBody.Event)
	if err != nil {
		return nil, err
	}

	return &buyTicketRequest{
		buyer: buyer,
		event: event,
	}, nil
}

func newCloseEventRequestFromHttpContext(r *http.Request, maxSize uint64) (*closeEventRequest, error) {
	httpRequestBody := struct {
		Organizer string `json:"organizer"`
		Event     string `json:"event"`
	}{}

	if err := decodeJsonBody(r, maxSize, &httpRequestBody); err != nil {
		return nil, err
	}

	organizer, err := parsePublicKey("organizer", httpRequestBody.Organizer)
	if err != nil {
		return nil, err
	}
	event, err := parsePublicKey("event", httpRequestBody.Event)
	if err != nil {
		return nil, err
	}

	return &closeEventRequest{
		organizer: organizer,
		event:     event,
	}, nil
}

func newListForResaleRequestFromHttpContext(r *http.Request, maxSize uint64) (*listForResaleRequest, error) {
	httpRequestBody := struct {
		Seller        string `json:"seller"`
		Event         string `json:"event"`
		TicketMint    string  `json:"ticket_mint"`
		TicketIndex   *uint32 `json:"ticket_index"`
		PriceLamports uint64  `json:"price_lamports"`
	}{}

	if err := decodeJsonBody(r, maxSize, &httpRequestBody); err != nil {
		return nil, err
	}

	seller, err := parsePublicKey("seller", httpRequestBody.Seller)
	if err != nil {
		return nil, err
	}
	event, err := parsePublicKey("event", httpRequestBody.Event)
	if err != nil {
		return nil, err
	}
	ticketMint, err := parsePublicKey("ticket_mint", httpRequestBody.TicketMint)
	if err != nil {
		return nil, err
	}
	if httpRequestBody.TicketIndex == nil {
		return nil, errors.New("ticket_index is required")
	}

	return &listForResaleRequest{
		seller:        seller,
		event:         event,
		ticketMint:    ticketMint,
		ticketIndex:   *httpRequestBody.TicketIndex,
		priceLamports: httpRequestBody.PriceLamports,
	}, nil
}

func newBuyResaleRequestFromHttpContext(r *http.Request, maxSize uint64) (*buyResaleRequest, error) {
	httpRequestBody := struct {
		Buyer      string `json:"buyer"`
		TicketMint string `json:"ticket_mint"`
	}{}

	if err := decodeJsonBody(r, maxSize, &httpRequestBody); err != nil {
		return nil, err
	}

	buyer, err := parsePublicKey("buyer", httpRequestBody.Buyer)
	if err != nil {
		return nil, err
	}
	ticketMint, err := parsePublicKey("ticket_mint", httpRequestBody.TicketMint)
	if err != nil {
		return nil, err
	}

	return &buyResaleRequest{
		buyer:      buyer,
		ticketMint: ticketMint,
	}, nil
}

func newCancelListingRequestFromHttpContext(r *http.Request, maxSize uint64) (*cancelListingRequest, error) {
	httpRequestBody := struct {
		Seller     string `json:"seller"`
		TicketMint string `json:"ticket_mint"`
	}{}

	if err := decodeJsonBody(r, maxSize, &httpRequestBody); err != nil {
		return nil, err
	}

	seller, err := parsePublicKey("seller", httpRequestBody.Seller)
	if err != nil {
		return nil, err
	}
	ticketMint, err := parsePublicKey("ticket_mint", httpRequestBody.TicketMint)
	if err != nil {
		return nil, err
	}

	return &cancelListingRequest{
		seller:     seller,
		ticketMint: ticketMint,
	}, nil
}

func newSubmitTransactionRequestFromHttpContext(r *http.Request, maxSize uint64) (string, error) {
	httpRequestBody := struct {
		Transaction string `json:"transaction"`
	}{}

	if err := decodeJsonBody(r, maxSize, &httpRequestBody); err != nil {
		return "", err
	}
	if len(httpRequestBody.Transaction) == 0 {
		return "", errors.New("transaction is required")
	}
	return httpRequestBody.Transaction, nil
}
