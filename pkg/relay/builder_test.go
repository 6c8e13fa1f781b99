package relay

import (
	"context"
	"crypto/ed25519"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tixchain/ticket-server/pkg/data/account/memory"
	"github.com/tixchain/ticket-server/pkg/runtime"
	"github.com/tixchain/ticket-server/pkg/solana"
	ticketing_api "github.com/tixchain/ticket-server/pkg/solana/ticketing"
	"github.com/tixchain/ticket-server/pkg/solana/token"
	"github.com/tixchain/ticket-server/pkg/testutil"
	"github.com/tixchain/ticket-server/pkg/ticketing"
)

const (
	testWalletFunds = 100_000_000_000
	testTicketPrice = 1_000_000_000
)

type testEnv struct {
	ctx       context.Context
	bank      *runtime.Bank
	builder   *Builder
	organizer ed25519.PrivateKey
}

func setup(t *testing.T, overrides *Overrides) *testEnv {
	if overrides == nil {
		overrides = &Overrides{WalletRateLimit: 1_000}
	}

	bank := runtime.NewBank(memory.New(), runtime.WithOverrides(&runtime.Overrides{}))
	ticketing.Register(bank)
	testutil.FundAccount(t, bank, ticketing_api.PLATFORM_ADDRESS, 1_000_000_000)

	return &testEnv{
		ctx:       context.Background(),
		bank:      bank,
		builder:   NewBuilder(bank, WithOverrides(overrides)),
		organizer: testutil.NewFundedWallet(t, bank, testWalletFunds),
	}
}

func (e *testEnv) newWallet(t *testing.T) ed25519.PrivateKey {
	return testutil.NewFundedWallet(t, e.bank, testWalletFunds)
}

// signAndSubmit signs an unsigned relay transaction and submits it through
// the builder.
func (e *testEnv) signAndSubmit(t *testing.T, unsigned *UnsignedTransaction, signer ed25519.PrivateKey) error {
	var tx solana.Transaction
	require.NoError(t, tx.UnmarshalBase64(unsigned.Transaction))
	require.NoError(t, tx.Sign(signer))

	_, err := e.builder.Submit(e.ctx, tx.MarshalBase64())
	return err
}

func (e *testEnv) createEvent(t *testing.T, nonce uint64, supply uint32) ed25519.PublicKey {
	unsigned, err := e.builder.CreateEvent(e.ctx, testutil.PublicKey(e.organizer), &ticketing_api.CreateEventInstructionArgs{
		Nonce:         nonce,
		Title:         "Harbour Lights",
		Venue:         "Warehouse 4",
		DateTs:        1_767_225_600,
		TierName:      "Standing",
		PriceLamports: testTicketPrice,
		Supply:        supply,
	})
	require.NoError(t, err)
	require.NoError(t, e.signAndSubmit(t, unsigned, e.organizer))
	return unsigned.Addresses["event"]
}

func (e *testEnv) buyTicket(t *testing.T, buyer ed25519.PrivateKey, event ed25519.PublicKey) ed25519.PublicKey {
	unsigned, err := e.builder.BuyTicket(e.ctx, testutil.PublicKey(buyer), event)
	require.NoError(t, err)
	require.NotNil(t, unsigned.TicketIndex)
	require.NoError(t, e.signAndSubmit(t, unsigned, buyer))
	return unsigned.Addresses["ticket_mint"]
}

func TestBuilder_EventLifecycle(t *testing.T) {
	env := setup(t, nil)
	organizer := testutil.PublicKey(env.organizer)

	event := env.createEvent(t, 1, 2)

	expected, _, err := ticketing_api.GetEventAddress(&ticketing_api.GetEventAddressArgs{Organizer: organizer, Nonce: 1})
	require.NoError(t, err)
	assert.EqualValues(t, expected, event)

	actual, err := env.builder.GetEvent(env.ctx, event)
	require.NoError(t, err)
	assert.Equal(t, "Harbour Lights", actual.Title)
	assert.EqualValues(t, 2, actual.Supply)
	assert.EqualValues(t, 0, actual.Sold)

	_, err = env.builder.CreateEvent(env.ctx, organizer, &ticketing_api.CreateEventInstructionArgs{Nonce: 1, Supply: 1})
	assert.ErrorIs(t, err, ErrEventExists)

	_, err = env.builder.CreateEvent(env.ctx, organizer, &ticketing_api.CreateEventInstructionArgs{Nonce: 2})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	buyer := env.newWallet(t)
	mint := env.buyTicket(t, buyer, event)

	holding, err := token.NewClient(env.bank).GetAccount(getAta(t, testutil.PublicKey(buyer), mint), mint, solana.CommitmentFinalized)
	require.NoError(t, err)
	assert.EqualValues(t, 1, holding.Amount)

	env.buyTicket(t, env.newWallet(t), event)

	_, err = env.builder.BuyTicket(env.ctx, testutil.PublicKey(buyer), event)
	assert.Equal(t, ErrSoldOut, err)

	other := env.newWallet(t)
	env.organizer, organizer = other, testutil.PublicKey(other)
	otherEvent := env.createEvent(t, 1, 10)

	events, err := env.builder.ListEvents(env.ctx, nil)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	events, err = env.builder.ListEvents(env.ctx, organizer)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.EqualValues(t, otherEvent, events[0].Address)

	events, err = env.builder.ListEvents(env.ctx, testutil.GenerateSolanaKeys(t, 1)[0])
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = env.builder.CloseEvent(env.ctx, organizer, event)
	assert.Equal(t, ErrNotOrganizer, err)

	unsigned, err := env.builder.CloseEvent(env.ctx, organizer, otherEvent)
	require.NoError(t, err)
	require.NoError(t, env.signAndSubmit(t, unsigned, env.organizer))

	_, err = env.builder.GetEvent(env.ctx, otherEvent)
	assert.Equal(t, ErrEventNotFound, err)

	_, err = env.builder.BuyTicket(env.ctx, testutil.PublicKey(buyer), otherEvent)
	assert.Equal(t, ErrEventNotFound, err)
}

func TestBuilder_ReuseClosedEventNonce(t *testing.T) {
	env := setup(t, nil)
	organizer := testutil.PublicKey(env.organizer)

	sold := env.createEvent(t, 1, 2)
	env.buyTicket(t, env.newWallet(t), sold)
	unsold := env.createEvent(t, 2, 2)

	for _, event := range []ed25519.PublicKey{sold, unsold} {
		unsigned, err := env.builder.CloseEvent(env.ctx, organizer, event)
		require.NoError(t, err)
		require.NoError(t, env.signAndSubmit(t, unsigned, env.organizer))
	}

	_, err := env.builder.CreateEvent(env.ctx, organizer, &ticketing_api.CreateEventInstructionArgs{
		Nonce:    1,
		Title:    "Harbour Lights",
		TierName: "Standing",
		Supply:   2,
	})
	assert.ErrorIs(t, err, ErrEventExists)

	assert.EqualValues(t, unsold, env.createEvent(t, 2, 2))
	env.buyTicket(t, env.newWallet(t), unsold)
}

func TestBuilder_ResaleLifecycle(t *testing.T) {
	env := setup(t, nil)

	event := env.createEvent(t, 1, 10)
	seller := env.newWallet(t)
	sellerKey := testutil.PublicKey(seller)
	mint := env.buyTicket(t, seller, event)
	env.buyTicket(t, env.newWallet(t), event)

	stranger := env.newWallet(t)
	_, err := env.builder.ListForResale(env.ctx, testutil.PublicKey(stranger), event, mint, 0, 2_000_000_000)
	assert.Equal(t, ErrNotTicketHolder, err)

	_, err = env.builder.ListForResale(env.ctx, sellerKey, event, mint, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = env.builder.ListForResale(env.ctx, sellerKey, event, mint, 0, math.MaxUint64)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// The index must be the one the mint was sold at.
	_, err = env.builder.ListForResale(env.ctx, sellerKey, event, mint, 1, 2_000_000_000)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = env.builder.ListForResale(env.ctx, sellerKey, event, mint, 2, 2_000_000_000)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	unsigned, err := env.builder.ListForResale(env.ctx, sellerKey, event, mint, 0, 2_000_000_000)
	require.NoError(t, err)
	require.NoError(t, env.signAndSubmit(t, unsigned, seller))

	_, err = env.builder.ListForResale(env.ctx, sellerKey, event, mint, 0, 3_000_000_000)
	assert.Equal(t, ErrAlreadyListed, err)

	address, listing, err := env.builder.GetListing(env.ctx, mint)
	require.NoError(t, err)
	assert.EqualValues(t, unsigned.Addresses["listing"], address)
	assert.EqualValues(t, sellerKey, listing.Seller)
	assert.EqualValues(t, 2_000_000_000, listing.PriceLamports)

	listings, err := env.builder.ListListings(env.ctx, nil)
	require.NoError(t, err)
	assert.Len(t, listings, 1)

	listings, err = env.builder.ListListings(env.ctx, event)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.EqualValues(t, mint, listings[0].Listing.TicketMint)

	listings, err = env.builder.ListListings(env.ctx, testutil.GenerateSolanaKeys(t, 1)[0])
	require.NoError(t, err)
	assert.Empty(t, listings)

	_, err = env.builder.CancelListing(env.ctx, testutil.PublicKey(stranger), mint)
	assert.Equal(t, ErrNotSeller, err)

	buyer := env.newWallet(t)
	unsigned, err = env.builder.BuyResale(env.ctx, testutil.PublicKey(buyer), mint)
	require.NoError(t, err)
	assert.EqualValues(t, testutil.PublicKey(env.organizer), unsigned.Addresses["organizer"])
	assert.EqualValues(t, ticketing_api.PLATFORM_ADDRESS, unsigned.Addresses["platform"])
	require.NoError(t, env.signAndSubmit(t, unsigned, buyer))

	_, _, err = env.builder.GetListing(env.ctx, mint)
	assert.Equal(t, ErrListingNotFound, err)

	_, err = env.builder.BuyResale(env.ctx, testutil.PublicKey(stranger), mint)
	assert.Equal(t, ErrListingNotFound, err)

	// The new holder lists and then withdraws the ticket.
	unsigned, err = env.builder.ListForResale(env.ctx, testutil.PublicKey(buyer), event, mint, 0, 4_000_000_000)
	require.NoError(t, err)
	require.NoError(t, env.signAndSubmit(t, unsigned, buyer))

	unsigned, err = env.builder.CancelListing(env.ctx, testutil.PublicKey(buyer), mint)
	require.NoError(t, err)
	require.NoError(t, env.signAndSubmit(t, unsigned, buyer))

	listings, err = env.builder.ListListings(env.ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestBuilder_SingleSigner(t *testing.T) {
	env := setup(t, nil)

	unsigned, err := env.builder.CreateEvent(env.ctx, testutil.PublicKey(env.organizer), &ticketing_api.CreateEventInstructionArgs{
		Nonce:    7,
		Title:    "Signer check",
		TierName: "GA",
		Supply:   1,
	})
	require.NoError(t, err)

	var tx solana.Transaction
	require.NoError(t, tx.UnmarshalBase64(unsigned.Transaction))
	assert.EqualValues(t, 1, tx.Message.Header.NumSignatures)
	assert.EqualValues(t, testutil.PublicKey(env.organizer), tx.Message.Accounts[0])
	assert.Equal(t, unsigned.Blockhash, tx.Message.RecentBlockhash)

	// Unsigned submissions are rejected before reaching the chain.
	_, err = env.builder.Submit(env.ctx, unsigned.Transaction)
	assert.ErrorIs(t, err, ErrInvalidTransaction)

	// So are submissions signed by anyone else.
	forged := tx
	forged.Signatures = make([]solana.Signature, 1)
	copy(forged.Signatures[0][:], ed25519.Sign(env.newWallet(t), tx.Message.Marshal()))
	_, err = env.builder.Submit(env.ctx, forged.MarshalBase64())
	assert.ErrorIs(t, err, ErrInvalidTransaction)

	_, err = env.builder.Submit(env.ctx, "not a transaction")
	assert.ErrorIs(t, err, ErrInvalidTransaction)

	require.NoError(t, env.signAndSubmit(t, unsigned, env.organizer))

	// Chain errors surface unchanged.
	err = env.signAndSubmit(t, unsigned, env.organizer)
	testutil.AssertTransactionErrorWithKey(t, err, solana.TransactionErrorDuplicateSignature)
}

func TestBuilder_RateLimit(t *testing.T) {
	env := setup(t, &Overrides{WalletRateLimit: 1})

	event, _, err := ticketing_api.GetEventAddress(&ticketing_api.GetEventAddressArgs{Organizer: testutil.PublicKey(env.organizer), Nonce: 1})
	require.NoError(t, err)

	buyer := testutil.GenerateSolanaKeys(t, 1)[0]

	_, err = env.builder.BuyTicket(env.ctx, buyer, event)
	assert.Equal(t, ErrEventNotFound, err)

	_, err = env.builder.BuyTicket(env.ctx, buyer, event)
	assert.Equal(t, ErrRateLimited, err)

	// Limits are per wallet.
	_, err = env.builder.BuyTicket(env.ctx, testutil.GenerateSolanaKeys(t, 1)[0], event)
	assert.Equal(t, ErrEventNotFound, err)
}

func TestBuilder_Quote(t *testing.T) {
	env := setup(t, nil)

	for _, price := range []uint64{1_000_000_001, 1_000_000_001, 3, 0} {
		split, err := env.builder.Quote(price)
		require.NoError(t, err)

		total, err := split.Total()
		require.NoError(t, err)
		assert.Equal(t, price, total)
	}

	split, err := env.builder.Quote(1_000_000_001)
	require.NoError(t, err)
	assert.EqualValues(t, 400_000_000, split.Organizer)
	assert.EqualValues(t, 400_000_000, split.Seller)
	assert.EqualValues(t, 200_000_001, split.Platform)

	// Callers may not mutate the cached quote.
	split.Platform = 0
	split, err = env.builder.Quote(1_000_000_001)
	require.NoError(t, err)
	assert.EqualValues(t, 200_000_001, split.Platform)

	_, err = env.builder.Quote(^uint64(0))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func getAta(t *testing.T, owner, mint ed25519.PublicKey) ed25519.PublicKey {
	ata, err := token.GetAssociatedAccount(owner, mint)
	require.NoError(t, err)
	return ata
}
