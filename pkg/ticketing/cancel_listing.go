package ticketing

import (
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tixchain/ticket-server/pkg/runtime"
	"github.com/tixchain/ticket-server/pkg/solana"
	ticketing_api "github.com/tixchain/ticket-server/pkg/solana/ticketing"
	"github.com/tixchain/ticket-server/pkg/solana/token"
)

func (p *Program) cancelListing(ic *runtime.InvokeContext, log *logrus.Entry, ix solana.Instruction) error {
	accounts, err := ticketing_api.DecompileCancelListingInstruction(ix)
	if err != nil {
		return invalidInstruction(err)
	}

	if err := requireSigner(ic, accounts.Seller, "seller"); err != nil {
		return err
	}

	custody, err := newEscrow(accounts.TicketMint, accounts.Escrow, accounts.Listing)
	if err != nil {
		return err
	}

	listingAccount, listing, err := loadListing(ic, accounts.Listing)
	if err != nil {
		return err
	}
	if err := requireKey(listing.TicketMint, accounts.TicketMint, ticketing_api.ErrInvalidSeeds, "listed mint"); err != nil {
		return err
	}
	if err := requireKey(accounts.Seller, listing.Seller, ticketing_api.ErrUnauthorized, "seller"); err != nil {
		return err
	}

	// The seller may have closed their token account while the ticket was
	// in escrow.
	createAta, sellerAta, err := token.CreateAssociatedTokenAccountIdempotent(accounts.Seller, accounts.Seller, accounts.TicketMint)
	if err != nil {
		return errors.Wrap(ticketing_api.ErrInvalidSeeds, err.Error())
	}
	if err := requireKey(accounts.SellerTokenAccount, sellerAta, ticketing_api.ErrInvalidSeeds, "seller token account"); err != nil {
		return err
	}
	if err := ic.Invoke(createAta); err != nil {
		return err
	}

	if err := custody.release(ic, accounts.Seller, accounts.SellerTokenAccount); err != nil {
		return err
	}

	if err := custody.check(ic); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"listing": listingAccount.String(),
		"mint":    base58.Encode(accounts.TicketMint),
	}).Debug("listing canceled")

	recordEvent(ic, listingCanceledEventName, map[string]interface{}{
		"listing":     listingAccount.String(),
		"ticket_mint": base58.Encode(accounts.TicketMint),
		"seller":      base58.Encode(accounts.Seller),
	})
	return nil
}
