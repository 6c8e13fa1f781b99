package relay

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"sort"
	"strconv"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/tixchain/ticket-server/pkg/metrics"
	"github.com/tixchain/ticket-server/pkg/solana"
	ticketing_api "github.com/tixchain/ticket-server/pkg/solana/ticketing"
)

// Offsets of the filtered keys within event and listing account data.
const (
	eventOrganizerOffset = 8
	listingEventOffset   = 8 + 32
)

type EventRecord struct {
	Address ed25519.PublicKey
	Event   *ticketing_api.EventAccount
}

type ListingRecord struct {
	Address ed25519.PublicKey
	Listing *ticketing_api.ListingAccount
}

// GetEvent reads and decodes the event at address.
func (b *Builder) GetEvent(ctx context.Context, address ed25519.PublicKey) (*ticketing_api.EventAccount, error) {
	info, err := b.chain.GetAccountInfo(address, b.commitment(ctx))
	if err == solana.ErrNoAccountInfo {
		return nil, ErrEventNotFound
	} else if err != nil {
		return nil, errors.Wrapf(err, "error getting event %s", base58.Encode(address))
	}

	if !bytes.Equal(info.Owner, ticketing_api.PROGRAM_ID) {
		return nil, ErrEventNotFound
	}

	var event ticketing_api.EventAccount
	if err := event.Unmarshal(info.Data); err != nil {
		return nil, ErrEventNotFound
	}
	return &event, nil
}

// GetListing reads and decodes the listing for the ticket mint, returning the
// listing's address alongside it.
func (b *Builder) GetListing(ctx context.Context, mint ed25519.PublicKey) (ed25519.PublicKey, *ticketing_api.ListingAccount, error) {
	address, _, err := ticketing_api.GetListingAddress(&ticketing_api.GetListingAddressArgs{TicketMint: mint})
	if err != nil {
		return nil, nil, errors.Wrap(err, "error deriving listing address")
	}

	info, err := b.chain.GetAccountInfo(address, b.commitment(ctx))
	if err == solana.ErrNoAccountInfo {
		return nil, nil, ErrListingNotFound
	} else if err != nil {
		return nil, nil, errors.Wrapf(err, "error getting listing %s", base58.Encode(address))
	}

	if !bytes.Equal(info.Owner, ticketing_api.PROGRAM_ID) {
		return nil, nil, ErrListingNotFound
	}

	var listing ticketing_api.ListingAccount
	if err := listing.Unmarshal(info.Data); err != nil {
		return nil, nil, ErrListingNotFound
	}
	return address, &listing, nil
}

// ListEvents returns all open events, optionally restricted to a single
// organizer, ordered by address.
func (b *Builder) ListEvents(ctx context.Context, organizer ed25519.PublicKey) (res []*EventRecord, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "ListEvents")
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	offset, filter := uint(0), ticketing_api.EventAccountDiscriminator
	if len(organizer) > 0 {
		offset, filter = eventOrganizerOffset, organizer
	}

	accounts, err := b.chain.GetProgramAccounts(ticketing_api.PROGRAM_ID, offset, filter)
	if err != nil {
		return nil, errors.Wrap(err, "error getting program accounts")
	}

	for _, account := range accounts {
		// Listings share the filtered offset, so anything that doesn't
		// decode as an event is skipped.
		var event ticketing_api.EventAccount
		if err := event.Unmarshal(account.Data); err != nil {
			continue
		}

		res = append(res, &EventRecord{
			Address: account.PublicKey,
			Event:   &event,
		})
	}

	sort.Slice(res, func(i, j int) bool {
		return bytes.Compare(res[i].Address, res[j].Address) < 0
	})
	return res, nil
}

// ListListings returns all active listings, optionally restricted to a single
// event, ordered by address.
func (b *Builder) ListListings(ctx context.Context, event ed25519.PublicKey) (res []*ListingRecord, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "ListListings")
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	offset, filter := uint(0), ticketing_api.ListingAccountDiscriminator
	if len(event) > 0 {
		offset, filter = listingEventOffset, event
	}

	accounts, err := b.chain.GetProgramAccounts(ticketing_api.PROGRAM_ID, offset, filter)
	if err != nil {
		return nil, errors.Wrap(err, "error getting program accounts")
	}

	for _, account := range accounts {
		var listing ticketing_api.ListingAccount
		if err := listing.Unmarshal(account.Data); err != nil {
			continue
		}

		res = append(res, &ListingRecord{
			Address: account.PublicKey,
			Listing: &listing,
		})
	}

	sort.Slice(res, func(i, j int) bool {
		return bytes.Compare(res[i].Address, res[j].Address) < 0
	})
	return res, nil
}

// Quote previews how a resale at priceLamports is distributed.
func (b *Builder) Quote(priceLamports uint64) (*ticketing_api.ResaleSplit, error) {
	key := strconv.FormatUint(priceLamports, 10)

	if cached, ok := b.quotes.Retrieve(key); ok {
		return &cached, nil
	}

	split, err := ticketing_api.SplitResalePrice(priceLamports)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidArgument, err.Error())
	}

	if err := b.quotes.Insert(key, *split, 1); err != nil {
		// Another request computed the same quote concurrently.
		b.log.WithError(err).Trace("quote already cached")
	}
	return split, nil
}
