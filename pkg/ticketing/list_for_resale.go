package ticketing

import (
	"bytes"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tixchain/ticket-server/pkg/runtime"
	"github.com/tixchain/ticket-server/pkg/solana"
	ticketing_api "github.com/tixchain/ticket-server/pkg/solana/ticketing"
	"github.com/tixchain/ticket-server/pkg/solana/token"
)

func (p *Program) listForResale(ic *runtime.InvokeContext, log *logrus.Entry, ix solana.Instruction) error {
	accounts, args, err := ticketing_api.DecompileListForResaleInstruction(ix)
	if err != nil {
		return invalidInstruction(err)
	}

	if err := requireSigner(ic, accounts.Seller, "seller"); err != nil {
		return err
	}

	if args.PriceLamports == 0 {
		return errors.Wrap(ticketing_api.ErrInvalidArgument, "price must be positive")
	}

	// A listing that cannot be split could never be bought.
	if _, err := ticketing_api.SplitResalePrice(args.PriceLamports); err != nil {
		return err
	}

	_, event, err := loadEvent(ic, accounts.Event)
	if err != nil {
		return err
	}

	if err := requireIssuedBy(accounts.Event, event, accounts.TicketMint, args.TicketIndex); err != nil {
		return err
	}

	listingAddress, listingBump, err := ticketing_api.GetListingAddress(&ticketing_api.GetListingAddressArgs{
		TicketMint: accounts.TicketMint,
	})
	if err != nil {
		return errors.Wrap(ticketing_api.ErrInvalidSeeds, err.Error())
	}
	if err := requireKey(accounts.Listing, listingAddress, ticketing_api.ErrInvalidSeeds, "listing address"); err != nil {
		return err
	}

	listingAccount, err := ic.Account(accounts.Listing)
	if err != nil {
		return err
	}
	if !listingAccount.IsEmpty() {
		return errors.Wrapf(ticketing_api.ErrPdaCollision, "ticket %s is already listed", base58.Encode(accounts.TicketMint))
	}

	sellerAta, err := token.GetAssociatedAccount(accounts.Seller, accounts.TicketMint)
	if err != nil {
		return errors.Wrap(ticketing_api.ErrInvalidSeeds, err.Error())
	}
	if err := requireKey(accounts.SellerTokenAccount, sellerAta, ticketing_api.ErrInvalidSeeds, "seller token account"); err != nil {
		return err
	}

	holding, err := loadTokenAccount(ic, accounts.SellerTokenAccount)
	if err != nil {
		return err
	}
	if !bytes.Equal(holding.Mint, accounts.TicketMint) || !bytes.Equal(holding.Owner, accounts.Seller) {
		return errors.Wrap(ticketing_api.ErrUnauthorized, "seller token account does not hold the ticket")
	}
	if holding.Amount != 1 {
		return errors.Wrapf(ticketing_api.ErrUnauthorized, "seller holds %d units of the ticket", holding.Amount)
	}

	custody, err := newEscrow(accounts.TicketMint, accounts.Escrow, accounts.Listing)
	if err != nil {
		return err
	}
	if err := custody.acquire(ic, accounts.Seller, accounts.SellerTokenAccount); err != nil {
		return err
	}

	err = createAccount(
		ic,
		accounts.Seller,
		accounts.Listing,
		ticketing_api.PROGRAM_ID,
		ticketing_api.ListingAccountSize,
		ticketing_api.ListingSignerSeeds(accounts.TicketMint, listingBump),
	)
	if err != nil {
		return err
	}

	listing := &ticketing_api.ListingAccount{
		Seller:        accounts.Seller,
		Event:         accounts.Event,
		TicketMint:    accounts.TicketMint,
		PriceLamports: args.PriceLamports,
		Bump:          listingBump,
	}
	listingAccount.Data = listing.Marshal()

	if err := custody.check(ic); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"listing": listingAccount.String(),
		"mint":    base58.Encode(accounts.TicketMint),
		"index":   args.TicketIndex,
	}).Debug("ticket listed")

	recordEvent(ic, listingCreatedEventName, map[string]interface{}{
		"listing":        listingAccount.String(),
		"event":          base58.Encode(accounts.Event),
		"ticket_mint":    base58.Encode(accounts.TicketMint),
		"seller":         base58.Encode(accounts.Seller),
		"price_lamports": args.PriceLamports,
	})
	return nil
}

// requireIssuedBy checks that mint is the ticket event sold at index. Only
// tickets issued by the event may be listed against it, since the event's
// organizer receives a share of the resale.
func requireIssuedBy(eventAddress ed25519.PublicKey, event *ticketing_api.EventAccount, mint ed25519.PublicKey, index uint32) error {
	if index >= event.Sold {
		return errors.Wrapf(ticketing_api.ErrInvalidSeeds, "ticket %d of %d has not been sold", index, event.Sold)
	}

	expected, _, err := ticketing_api.GetTicketMintAddress(&ticketing_api.GetTicketMintAddressArgs{
		Event: eventAddress,
		Index: index,
	})
	if err != nil {
		return errors.Wrap(ticketing_api.ErrInvalidSeeds, err.Error())
	}
	return requireKey(mint, expected, ticketing_api.ErrInvalidSeeds, "ticket mint")
}
