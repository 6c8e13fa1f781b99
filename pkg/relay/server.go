package relay

import (
	"context"
	"crypto/ed25519"
	"net/http"
	"strconv"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	v1PathPrefix = "/v1"

	v1CreateEventPath = v1PathPrefix + "/events/create"
	v1BuyTicketPath   = v1PathPrefix + "/events/buy"
	v1CloseEventPath  = v1PathPrefix + "/events/close"
	v1GetEventsPath   = v1PathPrefix + "/events/get"

	v1ListForResalePath = v1PathPrefix + "/listings/create"
	v1BuyResalePath     = v1PathPrefix + "/listings/buy"
	v1CancelListingPath = v1PathPrefix + "/listings/cancel"
	v1GetListingsPath   = v1PathPrefix + "/listings/get"
	v1QuotePath         = v1PathPrefix + "/listings/quote"

	v1SubmitTransactionPath = v1PathPrefix + "/transactions/submit"

	contentTypeHeaderName      = "content-type"
	jsonContentTypeHeaderValue = "application/json"
)

type Server struct {
	log     *logrus.Entry
	conf    *conf
	builder *Builder
}

func NewServer(builder *Builder) *Server {
	return &Server{
		log:     logrus.StandardLogger().WithField("type", "relay/server"),
		conf:    builder.conf,
		builder: builder,
	}
}

type handlerFunc func(ctx context.Context, log *logrus.Entry, r *http.Request) (int, GenericApiResponseBody)

// handle wraps a handler with method checks and JSON response writing.
func (s *Server) handle(path, method string, handler handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithField("path", path)

		statusCode, body := func() (int, GenericApiResponseBody) {
			if r.Method != method {
				return http.StatusMethodNotAllowed, NewGenericApiFailureResponseBody(errors.Errorf("http %s expected", method))
			}
			return handler(r.Context(), log, r)
		}()

		w.Header().Set(contentTypeHeaderName, jsonContentTypeHeaderValue)
		w.WriteHeader(statusCode)
		if _, err := w.Write([]byte(body.ToString())); err != nil {
			log.WithError(err).Warn("failed to write body")
		}
	}
}

func failure(log *logrus.Entry, err error, msg string) (int, GenericApiResponseBody) {
	statusCode, publicErr := HandleErrorInWebContext(err)
	if statusCode == http.StatusInternalServerError {
		log.WithError(err).Warn(msg)
	} else {
		log.WithError(err).Debug(msg)
	}
	return statusCode, NewGenericApiFailureResponseBody(publicErr)
}

func (s *Server) maxBodySize(ctx context.Context) uint64 {
	return s.conf.maxRequestBodySize.Get(ctx)
}

func (s *Server) createEventHandler(ctx context.Context, log *logrus.Entry, r *http.Request) (int, GenericApiResponseBody) {
	req, err := newCreateEventRequestFromHttpContext(r, s.maxBodySize(ctx))
	if err != nil {
		return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
	}
	log = log.WithField("organizer", base58.Encode(req.organizer))

	tx, err := s.builder.CreateEvent(ctx, req.organizer, req.args)
	if err != nil {
		return failure(log, err, "failure building create_event transaction")
	}
	return http.StatusOK, unsignedTransactionToResponseBody(tx)
}

func (s *Server) buyTicketHandler(ctx context.Context, log *logrus.Entry, r *http.Request) (int, GenericApiResponseBody) {
	req, err := newBuyTicketRequestFromHttpContext(r, s.maxBodySize(ctx))
	if err != nil {
		return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
	}
	log = log.WithFields(logrus.Fields{
		"buyer": base58.Encode(req.buyer),
		"event": base58.Encode(req.event),
	})

	tx, err := s.builder.BuyTicket(ctx, req.buyer, req.event)
	if err != nil {
		return failure(log, err, "failure building buy_ticket transaction")
	}
	return http.StatusOK, unsignedTransactionToResponseBody(tx)
}

func (s *Server) closeEventHandler(ctx context.Context, log *logrus.Entry, r *http.Request) (int, GenericApiResponseBody) {
	req, err := newCloseEventRequestFromHttpContext(r, s.maxBodySize(ctx))
	if err != nil {
		return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
	}
	log = log.WithField("event", base58.Encode(req.event))

	tx, err := s.builder.CloseEvent(ctx, req.organizer, req.event)
	if err != nil {
		return failure(log, err, "failure building close_event transaction")
	}
	return http.StatusOK, unsignedTransactionToResponseBody(tx)
}

// getEventsHandler returns a single event when the event query parameter is
// set, and otherwise lists events, optionally for one organizer.
func (s *Server) getEventsHandler(ctx context.Context, log *logrus.Entry, r *http.Request) (int, GenericApiResponseBody) {
	query := r.URL.Query()

	if value := query.Get("event"); len(value) > 0 {
		address, err := parsePublicKey("event", value)
		if err != nil {
			return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
		}

		event, err := s.builder.GetEvent(ctx, address)
		if err != nil {
			return failure(log, err, "failure getting event")
		}

		body := NewGenericApiSuccessResponseBody()
		body["event"] = eventToJson(address, event)
		return http.StatusOK, body
	}

	var organizer ed25519.PublicKey
	if value := query.Get("organizer"); len(value) > 0 {
		var err error
		organizer, err = parsePublicKey("organizer", value)
		if err != nil {
			return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
		}
	}

	records, err := s.builder.ListEvents(ctx, organizer)
	if err != nil {
		return failure(log, err, "failure listing events")
	}

	events := make([]map[string]any, 0, len(records))
	for _, record := range records {
		events = append(events, eventToJson(record.Address, record.Event))
	}

	body := NewGenericApiSuccessResponseBody()
	body["events"] = events
	return http.StatusOK, body
}

func (s *Server) listForResaleHandler(ctx context.Context, log *logrus.Entry, r *http.Request) (int, GenericApiResponseBody) {
	req, err := newListForResaleRequestFromHttpContext(r, s.maxBodySize(ctx))
	if err != nil {
		return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
	}
	log = log.WithFields(logrus.Fields{
		"seller": base58.Encode(req.seller),
		"mint":   base58.Encode(req.ticketMint),
	})

	tx, err := s.builder.ListForResale(ctx, req.seller, req.event, req.ticketMint, req.ticketIndex, req.priceLamports)
	if err != nil {
		return failure(log, err, "failure building list_for_resale transaction")
	}
	return http.StatusOK, unsignedTransactionToResponseBody(tx)
}

func (s *Server) buyResaleHandler(ctx context.Context, log *logrus.Entry, r *http.Request) (int, GenericApiResponseBody) {
	req, err := newBuyResaleRequestFromHttpContext(r, s.maxBodySize(ctx))
	if err != nil {
		return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
	}
	log = log.WithFields(logrus.Fields{
		"buyer": base58.Encode(req.buyer),
		"mint":  base58.Encode(req.ticketMint),
	})

	tx, err := s.builder.BuyResale(ctx, req.buyer, req.ticketMint)
	if err != nil {
		return failure(log, err, "failure building buy_resale transaction")
	}
	return http.StatusOK, unsignedTransactionToResponseBody(tx)
}

func (s *Server) cancelListingHandler(ctx context.Context, log *logrus.Entry, r *http.Request) (int, GenericApiResponseBody) {
	req, err := newCancelListingRequestFromHttpContext(r, s.maxBodySize(ctx))
	if err != nil {
		return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
	}
	log = log.WithField("mint", base58.Encode(req.ticketMint))

	tx, err := s.builder.CancelListing(ctx, req.seller, req.ticketMint)
	if err != nil {
		return failure(log, err, "failure building cancel_listing transaction")
	}
	return http.StatusOK, unsignedTransactionToResponseBody(tx)
}

// getListingsHandler returns the listing for a ticket_mint when set, and
// otherwise lists active listings, optionally for one event.
func (s *Server) getListingsHandler(ctx context.Context, log *logrus.Entry, r *http.Request) (int, GenericApiResponseBody) {
	query := r.URL.Query()

	if value := query.Get("ticket_mint"); len(value) > 0 {
		mint, err := parsePublicKey("ticket_mint", value)
		if err != nil {
			return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
		}

		address, listing, err := s.builder.GetListing(ctx, mint)
		if err != nil {
			return failure(log, err, "failure getting listing")
		}

		body := NewGenericApiSuccessResponseBody()
		body["listing"] = listingToJson(address, listing)
		return http.StatusOK, body
	}

	var event ed25519.PublicKey
	if value := query.Get("event"); len(value) > 0 {
		var err error
		event, err = parsePublicKey("event", value)
		if err != nil {
			return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
		}
	}

	records, err := s.builder.ListListings(ctx, event)
	if err != nil {
		return failure(log, err, "failure listing listings")
	}

	listings := make([]map[string]any, 0, len(records))
	for _, record := range records {
		listings = append(listings, listingToJson(record.Address, record.Listing))
	}

	body := NewGenericApiSuccessResponseBody()
	body["listings"] = listings
	return http.StatusOK, body
}

func (s *Server) quoteHandler(ctx context.Context, log *logrus.Entry, r *http.Request) (int, GenericApiResponseBody) {
	price, err := strconv.ParseUint(r.URL.Query().Get("price_lamports"), 10, 64)
	if err != nil {
		return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.New("price_lamports is not a valid amount"))
	}

	split, err := s.builder.Quote(price)
	if err != nil {
		return failure(log, err, "failure quoting resale")
	}

	body := NewGenericApiSuccessResponseBody()
	body["quote"] = splitToJson(price, split)
	return http.StatusOK, body
}

func (s *Server) submitTransactionHandler(ctx context.Context, log *logrus.Entry, r *http.Request) (int, GenericApiResponseBody) {
	encoded, err := newSubmitTransactionRequestFromHttpContext(r, s.maxBodySize(ctx))
	if err != nil {
		return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
	}

	sig, err := s.builder.Submit(ctx, encoded)
	if err != nil {
		return failure(log, err, "failure submitting transaction")
	}

	body := NewGenericApiSuccessResponseBody()
	body["signature"] = base58.Encode(sig[:])
	return http.StatusOK, body
}

func (s *Server) GetHandlers() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		v1CreateEventPath: s.handle(v1CreateEventPath, http.MethodPost, s.createEventHandler),
		v1BuyTicketPath:   s.handle(v1BuyTicketPath, http.MethodPost, s.buyTicketHandler),
		v1CloseEventPath:  s.handle(v1CloseEventPath, http.MethodPost, s.closeEventHandler),
		v1GetEventsPath:   s.handle(v1GetEventsPath, http.MethodGet, s.getEventsHandler),

		v1ListForResalePath: s.handle(v1ListForResalePath, http.MethodPost, s.listForResaleHandler),
		v1BuyResalePath:     s.handle(v1BuyResalePath, http.MethodPost, s.buyResaleHandler),
		v1CancelListingPath: s.handle(v1CancelListingPath, http.MethodPost, s.cancelListingHandler),
		v1GetListingsPath:   s.handle(v1GetListingsPath, http.MethodGet, s.getListingsHandler),
		v1QuotePath:         s.handle(v1QuotePath, http.MethodGet, s.quoteHandler),

		v1SubmitTransactionPath: s.handle(v1SubmitTransactionPath, http.MethodPost, s.submitTransactionHandler),
	}
}

// Handler returns a mux serving every relay endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	for path, handler := range s.GetHandlers() {
		mux.HandleFunc(path, handler)
	}
	return mux
}
