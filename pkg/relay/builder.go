package relay

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/tixchain/ticket-server/pkg/cache"
	"github.com/tixchain/ticket-server/pkg/metrics"
	rate_util "github.com/tixchain/ticket-server/pkg/rate"
	"github.com/tixchain/ticket-server/pkg/solana"
	ticketing_api "github.com/tixchain/ticket-server/pkg/solana/ticketing"
	"github.com/tixchain/ticket-server/pkg/solana/token"
)

const (
	metricsStructName = "relay.builder"

	transactionBuiltEventName     = "RelayTransactionBuilt"
	transactionSubmittedEventName = "RelayTransactionSubmitted"
)

// UnsignedTransaction is a transaction ready for its single signer. The relay
// never holds keys, so Transaction carries an empty signature slot for Payer.
type UnsignedTransaction struct {
	Transaction string
	Payer       ed25519.PublicKey
	Blockhash   solana.Blockhash

	// Addresses holds the derived accounts the transaction touches, keyed by
	// role, so clients can display them without re-deriving.
	Addresses map[string]ed25519.PublicKey

	// TicketIndex is the index of the ticket a buy_ticket transaction mints.
	// Holders quote it back when listing the ticket for resale.
	TicketIndex *uint32
}

// Builder assembles unsigned ticketing transactions against the current
// chain state.
type Builder struct {
	log         *logrus.Entry
	conf        *conf
	chain       solana.Client
	tokenClient *token.Client
	limiter     rate_util.Limiter
	quotes      *cache.Cache[ticketing_api.ResaleSplit]
}

func NewBuilder(chain solana.Client, configProvider ConfigProvider) *Builder {
	conf := configProvider()
	ctx := context.Background()

	return &Builder{
		log:         logrus.StandardLogger().WithField("type", "relay/builder"),
		conf:        conf,
		chain:       chain,
		tokenClient: token.NewClient(chain),
		limiter:     rate_util.NewLocalRateLimiter(rate.Limit(conf.walletRateLimit.Get(ctx))),
		quotes:      cache.New[ticketing_api.ResaleSplit]("relay/quotes", int(conf.quoteCacheSize.Get(ctx))),
	}
}

func (b *Builder) CreateEvent(ctx context.Context, organizer ed25519.PublicKey, args *ticketing_api.CreateEventInstructionArgs) (res *UnsignedTransaction, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "CreateEvent")
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	if err := b.checkRateLimit(organizer); err != nil {
		return nil, err
	}

	draft := &ticketing_api.EventAccount{
		Organizer:     organizer,
		Nonce:         args.Nonce,
		Title:         args.Title,
		Venue:         args.Venue,
		DateTs:        args.DateTs,
		TierName:      args.TierName,
		PriceLamports: args.PriceLamports,
		Supply:        args.Supply,
	}
	if err := draft.Validate(); err != nil {
		return nil, errors.Wrap(ErrInvalidArgument, err.Error())
	}

	event, _, err := ticketing_api.GetEventAddress(&ticketing_api.GetEventAddressArgs{
		Organizer: organizer,
		Nonce:     args.Nonce,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error deriving event address")
	}

	exists, err := b.accountExists(ctx, event)
	if err != nil {
		return nil, err
	} else if exists {
		return nil, errors.Wrapf(ErrEventExists, "nonce %d", args.Nonce)
	}

	firstMint, _, err := ticketing_api.GetTicketMintAddress(&ticketing_api.GetTicketMintAddressArgs{
		Event: event,
		Index: 0,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error deriving ticket mint address")
	}

	exists, err = b.accountExists(ctx, firstMint)
	if err != nil {
		return nil, err
	} else if exists {
		return nil, errors.Wrapf(ErrEventExists, "tickets of a closed event with nonce %d still exist", args.Nonce)
	}

	ix := ticketing_api.NewCreateEventInstruction(
		&ticketing_api.CreateEventInstructionAccounts{
			Organizer:       organizer,
			Event:           event,
			FirstTicketMint: firstMint,
		},
		args,
	)

	return b.build(ctx, "create_event", organizer, ix, map[string]ed25519.PublicKey{
		"event": event,
	})
}

func (b *Builder) BuyTicket(ctx context.Context, buyer, eventAddress ed25519.PublicKey) (res *UnsignedTransaction, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "BuyTicket")
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	if err := b.checkRateLimit(buyer); err != nil {
		return nil, err
	}

	event, err := b.GetEvent(ctx, eventAddress)
	if err != nil {
		return nil, err
	}
	if event.IsSoldOut() {
		return nil, ErrSoldOut
	}

	// The ticket is addressed by the next index. If another buyer lands first
	// the program rejects this transaction and the client rebuilds.
	index := event.Sold

	mint, _, err := ticketing_api.GetTicketMintAddress(&ticketing_api.GetTicketMintAddressArgs{
		Event: eventAddress,
		Index: index,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error deriving ticket mint address")
	}

	authority, _, err := ticketing_api.GetTicketAuthorityAddress(&ticketing_api.GetTicketAuthorityAddressArgs{
		Event: eventAddress,
		Index: index,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error deriving ticket authority address")
	}

	buyerTokenAccount, err := token.GetAssociatedAccount(buyer, mint)
	if err != nil {
		return nil, errors.Wrap(err, "error deriving buyer token account")
	}

	ix := ticketing_api.NewBuyTicketInstruction(&ticketing_api.BuyTicketInstructionAccounts{
		Buyer:             buyer,
		Organizer:         event.Organizer,
		Event:             eventAddress,
		TicketMint:        mint,
		TicketAuthority:   authority,
		BuyerTokenAccount: buyerTokenAccount,
	})

	res, err = b.build(ctx, "buy_ticket", buyer, ix, map[string]ed25519.PublicKey{
		"event":               eventAddress,
		"ticket_mint":         mint,
		"ticket_authority":    authority,
		"buyer_token_account": buyerTokenAccount,
	})
	if err != nil {
		return nil, err
	}
	res.TicketIndex = &index
	return res, nil
}

func (b *Builder) CloseEvent(ctx context.Context, organizer, eventAddress ed25519.PublicKey) (res *UnsignedTransaction, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "CloseEvent")
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	if err := b.checkRateLimit(organizer); err != nil {
		return nil, err
	}

	event, err := b.GetEvent(ctx, eventAddress)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(event.Organizer, organizer) {
		return nil, ErrNotOrganizer
	}

	ix := ticketing_api.NewCloseEventInstruction(&ticketing_api.CloseEventInstructionAccounts{
		Organizer: organizer,
		Event:     eventAddress,
	})

	return b.build(ctx, "close_event", organizer, ix, map[string]ed25519.PublicKey{
		"event": eventAddress,
	})
}

// ListForResale builds the listing of the ticket event sold at index, which
// must be the ticket minted as mint.
func (b *Builder) ListForResale(ctx context.Context, seller, eventAddress, mint ed25519.PublicKey, index uint32, priceLamports uint64) (res *UnsignedTransaction, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "ListForResale")
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	if err := b.checkRateLimit(seller); err != nil {
		return nil, err
	}

	if priceLamports == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "price must be positive")
	}
	if _, err := ticketing_api.SplitResalePrice(priceLamports); err != nil {
		return nil, errors.Wrap(ErrInvalidArgument, err.Error())
	}

	event, err := b.GetEvent(ctx, eventAddress)
	if err != nil {
		return nil, err
	}

	if index >= event.Sold {
		return nil, errors.Wrapf(ErrInvalidArgument, "ticket %d has not been sold", index)
	}
	expectedMint, _, err := ticketing_api.GetTicketMintAddress(&ticketing_api.GetTicketMintAddressArgs{
		Event: eventAddress,
		Index: index,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error deriving ticket mint address")
	}
	if !bytes.Equal(expectedMint, mint) {
		return nil, errors.Wrapf(ErrInvalidArgument, "ticket %d of the event is not %s", index, base58.Encode(mint))
	}

	listing, _, err := ticketing_api.GetListingAddress(&ticketing_api.GetListingAddressArgs{TicketMint: mint})
	if err != nil {
		return nil, errors.Wrap(err, "error deriving listing address")
	}
	escrow, _, err := ticketing_api.GetEscrowAddress(&ticketing_api.GetEscrowAddressArgs{TicketMint: mint})
	if err != nil {
		return nil, errors.Wrap(err, "error deriving escrow address")
	}

	exists, err := b.accountExists(ctx, listing)
	if err != nil {
		return nil, err
	} else if exists {
		return nil, ErrAlreadyListed
	}

	sellerTokenAccount, err := token.GetAssociatedAccount(seller, mint)
	if err != nil {
		return nil, errors.Wrap(err, "error deriving seller token account")
	}

	holding, err := b.tokenClient.GetAccount(sellerTokenAccount, mint, b.commitment(ctx))
	if err == token.ErrAccountNotFound {
		return nil, ErrNotTicketHolder
	} else if err != nil {
		return nil, errors.Wrap(err, "error getting seller token account")
	}
	if holding.Amount != 1 {
		return nil, ErrNotTicketHolder
	}

	ix := ticketing_api.NewListForResaleInstruction(
		&ticketing_api.ListForResaleInstructionAccounts{
			Seller:             seller,
			Event:              eventAddress,
			TicketMint:         mint,
			SellerTokenAccount: sellerTokenAccount,
			Listing:            listing,
			Escrow:             escrow,
		},
		&ticketing_api.ListForResaleInstructionArgs{
			PriceLamports: priceLamports,
			TicketIndex:   index,
		},
	)

	return b.build(ctx, "list_for_resale", seller, ix, map[string]ed25519.PublicKey{
		"event":                eventAddress,
		"ticket_mint":          mint,
		"listing":              listing,
		"escrow":               escrow,
		"seller_token_account": sellerTokenAccount,
	})
}

func (b *Builder) BuyResale(ctx context.Context, buyer, mint ed25519.PublicKey) (res *UnsignedTransaction, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "BuyResale")
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	if err := b.checkRateLimit(buyer); err != nil {
		return nil, err
	}

	listingAddress, listing, err := b.GetListing(ctx, mint)
	if err != nil {
		return nil, err
	}

	event, err := b.GetEvent(ctx, listing.Event)
	if err != nil {
		return nil, err
	}

	escrow, _, err := ticketing_api.GetEscrowAddress(&ticketing_api.GetEscrowAddressArgs{TicketMint: mint})
	if err != nil {
		return nil, errors.Wrap(err, "error deriving escrow address")
	}

	buyerTokenAccount, err := token.GetAssociatedAccount(buyer, mint)
	if err != nil {
		return nil, errors.Wrap(err, "error deriving buyer token account")
	}

	ix := ticketing_api.NewBuyResaleInstruction(&ticketing_api.BuyResaleInstructionAccounts{
		Buyer:             buyer,
		Seller:            listing.Seller,
		Organizer:         event.Organizer,
		Platform:          ticketing_api.PLATFORM_ADDRESS,
		Event:             listing.Event,
		TicketMint:        mint,
		Listing:           listingAddress,
		Escrow:            escrow,
		BuyerTokenAccount: buyerTokenAccount,
	})

	return b.build(ctx, "buy_resale", buyer, ix, map[string]ed25519.PublicKey{
		"event":               listing.Event,
		"ticket_mint":         mint,
		"listing":             listingAddress,
		"escrow":              escrow,
		"seller":              listing.Seller,
		"organizer":           event.Organizer,
		"platform":            ticketing_api.PLATFORM_ADDRESS,
		"buyer_token_account": buyerTokenAccount,
	})
}

func (b *Builder) CancelListing(ctx context.Context, seller, mint ed25519.PublicKey) (res *UnsignedTransaction, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "CancelListing")
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	if err := b.checkRateLimit(seller); err != nil {
		return nil, err
	}

	listingAddress, listing, err := b.GetListing(ctx, mint)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(listing.Seller, seller) {
		return nil, ErrNotSeller
	}

	escrow, _, err := ticketing_api.GetEscrowAddress(&ticketing_api.GetEscrowAddressArgs{TicketMint: mint})
	if err != nil {
		return nil, errors.Wrap(err, "error deriving escrow address")
	}

	sellerTokenAccount, err := token.GetAssociatedAccount(seller, mint)
	if err != nil {
		return nil, errors.Wrap(err, "error deriving seller token account")
	}

	ix := ticketing_api.NewCancelListingInstruction(&ticketing_api.CancelListingInstructionAccounts{
		Seller:             seller,
		TicketMint:         mint,
		Listing:            listingAddress,
		Escrow:             escrow,
		SellerTokenAccount: sellerTokenAccount,
	})

	return b.build(ctx, "cancel_listing", seller, ix, map[string]ed25519.PublicKey{
		"ticket_mint":          mint,
		"listing":              listingAddress,
		"escrow":               escrow,
		"seller_token_account": sellerTokenAccount,
	})
}

// Submit forwards a signed transaction to the chain. Signatures are checked
// here so obviously broken submissions never reach the cluster.
func (b *Builder) Submit(ctx context.Context, encoded string) (sig solana.Signature, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Submit")
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	var tx solana.Transaction
	if err := tx.UnmarshalBase64(encoded); err != nil {
		return sig, errors.Wrap(ErrInvalidTransaction, err.Error())
	}
	if len(tx.Message.Accounts) == 0 {
		return sig, errors.Wrap(ErrInvalidTransaction, "no accounts")
	}

	payer := tx.Message.Accounts[0]
	if err := b.checkRateLimit(payer); err != nil {
		return sig, err
	}

	if err := tx.VerifySignatures(); err != nil {
		return sig, errors.Wrap(ErrInvalidTransaction, err.Error())
	}

	log := b.log.WithFields(logrus.Fields{
		"method":    "Submit",
		"payer":     base58.Encode(payer),
		"signature": base58.Encode(tx.Signature()),
	})

	sig, err = b.chain.SubmitTransaction(tx, b.commitment(ctx))
	if err != nil {
		log.WithError(err).Info("transaction rejected")
		return sig, err
	}

	log.Debug("transaction submitted")
	metrics.RecordEvent(ctx, transactionSubmittedEventName, map[string]interface{}{
		"payer":     base58.Encode(payer),
		"signature": base58.Encode(sig[:]),
	})
	return sig, nil
}

func (b *Builder) build(ctx context.Context, name string, payer ed25519.PublicKey, ix solana.Instruction, addresses map[string]ed25519.PublicKey) (*UnsignedTransaction, error) {
	blockhash, err := b.chain.GetLatestBlockhash()
	if err != nil {
		return nil, errors.Wrap(err, "error getting latest blockhash")
	}

	tx := solana.NewTransaction(payer, ix)
	tx.SetBlockhash(blockhash)

	b.log.WithFields(logrus.Fields{
		"method":      "build",
		"instruction": name,
		"payer":       base58.Encode(payer),
	}).Trace("built transaction")

	metrics.RecordEvent(ctx, transactionBuiltEventName, map[string]interface{}{
		"instruction": name,
		"payer":       base58.Encode(payer),
	})

	return &UnsignedTransaction{
		Transaction: tx.MarshalBase64(),
		Payer:       payer,
		Blockhash:   blockhash,
		Addresses:   addresses,
	}, nil
}

func (b *Builder) checkRateLimit(wallet ed25519.PublicKey) error {
	allowed, err := b.limiter.Allow(base58.Encode(wallet))
	if err != nil {
		b.log.WithError(err).Warn("failure checking rate limit")
		return nil
	}
	if !allowed {
		return ErrRateLimited
	}
	return nil
}

func (b *Builder) commitment(ctx context.Context) solana.Commitment {
	return solana.CommitmentFromString(b.conf.commitment.Get(ctx))
}

func (b *Builder) accountExists(ctx context.Context, address ed25519.PublicKey) (bool, error) {
	_, err := b.chain.GetAccountInfo(address, b.commitment(ctx))
	if err == solana.ErrNoAccountInfo {
		return false, nil
	} else if err != nil {
		return false, errors.Wrapf(err, "error getting account %s", base58.Encode(address))
	}
	return true, nil
}
