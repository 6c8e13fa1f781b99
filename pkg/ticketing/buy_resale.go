package ticketing

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tixchain/ticket-server/pkg/runtime"
	"github.com/tixchain/ticket-server/pkg/solana"
	"github.com/tixchain/ticket-server/pkg/solana/system"
	ticketing_api "github.com/tixchain/ticket-server/pkg/solana/ticketing"
	"github.com/tixchain/ticket-server/pkg/solana/token"
)

func (p *Program) buyResale(ic *runtime.InvokeContext, log *logrus.Entry, ix solana.Instruction) error {
	accounts, err := ticketing_api.DecompileBuyResaleInstruction(ix)
	if err != nil {
		return invalidInstruction(err)
	}

	if err := requireSigner(ic, accounts.Buyer, "buyer"); err != nil {
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
	if err := requireKey(accounts.Event, listing.Event, ticketing_api.ErrInvalidArgument, "event"); err != nil {
		return err
	}

	_, event, err := loadEvent(ic, accounts.Event)
	if err != nil {
		return err
	}
	if err := requireKey(accounts.Organizer, event.Organizer, ticketing_api.ErrUnauthorized, "organizer"); err != nil {
		return err
	}
	if err := requireKey(accounts.Platform, ticketing_api.PLATFORM_ADDRESS, ticketing_api.ErrUnauthorized, "platform"); err != nil {
		return err
	}

	createAta, ataAddress, err := token.CreateAssociatedTokenAccountIdempotent(accounts.Buyer, accounts.Buyer, accounts.TicketMint)
	if err != nil {
		return errors.Wrap(ticketing_api.ErrInvalidSeeds, err.Error())
	}
	if err := requireKey(accounts.BuyerTokenAccount, ataAddress, ticketing_api.ErrInvalidSeeds, "buyer token account"); err != nil {
		return err
	}

	split, err := ticketing_api.SplitResalePrice(listing.PriceLamports)
	if err != nil {
		return err
	}
	if total, err := split.Total(); err != nil {
		return err
	} else if total != listing.PriceLamports {
		return errors.Wrapf(ticketing_api.ErrArithmeticOverflow, "split sums to %d, not %d", total, listing.PriceLamports)
	}

	for _, payout := range []struct {
		to     ed25519.PublicKey
		amount uint64
	}{
		{accounts.Organizer, split.Organizer},
		{accounts.Seller, split.Seller},
		{accounts.Platform, split.Platform},
	} {
		if payout.amount == 0 {
			continue
		}
		if err := ic.Invoke(system.Transfer(accounts.Buyer, payout.to, payout.amount)); err != nil {
			return err
		}
	}

	if err := ic.Invoke(createAta); err != nil {
		return err
	}

	if err := custody.release(ic, accounts.Seller, accounts.BuyerTokenAccount); err != nil {
		return err
	}

	if err := custody.check(ic); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"listing": listingAccount.String(),
		"mint":    base58.Encode(accounts.TicketMint),
		"price":   listing.PriceLamports,
	}).Debug("listing sold")

	recordEvent(ic, listingSoldEventName, map[string]interface{}{
		"listing":            listingAccount.String(),
		"ticket_mint":        base58.Encode(accounts.TicketMint),
		"seller":             base58.Encode(accounts.Seller),
		"buyer":              base58.Encode(accounts.Buyer),
		"price_lamports":     listing.PriceLamports,
		"organizer_lamports": split.Organizer,
		"seller_lamports":    split.Seller,
		"platform_lamports":  split.Platform,
	})
	return nil
}
