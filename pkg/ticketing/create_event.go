package ticketing

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tixchain/ticket-server/pkg/runtime"
	"github.com/tixchain/ticket-server/pkg/solana"
	ticketing_api "github.com/tixchain/ticket-server/pkg/solana/ticketing"
)

func (p *Program) createEvent(ic *runtime.InvokeContext, log *logrus.Entry, ix solana.Instruction) error {
	accounts, args, err := ticketing_api.DecompileCreateEventInstruction(ix)
	if err != nil {
		return invalidInstruction(err)
	}

	if err := requireSigner(ic, accounts.Organizer, "organizer"); err != nil {
		return err
	}

	eventAddress, bump, err := ticketing_api.GetEventAddress(&ticketing_api.GetEventAddressArgs{
		Organizer: accounts.Organizer,
		Nonce:     args.Nonce,
	})
	if err != nil {
		return errors.Wrap(ticketing_api.ErrInvalidSeeds, err.Error())
	}
	if err := requireKey(accounts.Event, eventAddress, ticketing_api.ErrInvalidSeeds, "event address"); err != nil {
		return err
	}

	eventAccount, err := ic.Account(accounts.Event)
	if err != nil {
		return err
	}
	if !eventAccount.IsEmpty() {
		return errors.Wrapf(ticketing_api.ErrPdaCollision, "event %s already exists", eventAccount)
	}

	// Tickets sold by a closed event at this address would collide with
	// the ones this event mints.
	if err := requireFreshTicketMints(ic, accounts.Event, accounts.FirstTicketMint); err != nil {
		return err
	}

	event := &ticketing_api.EventAccount{
		Organizer:     accounts.Organizer,
		Nonce:         args.Nonce,
		Title:         args.Title,
		Venue:         args.Venue,
		DateTs:        args.DateTs,
		TierName:      args.TierName,
		PriceLamports: args.PriceLamports,
		Supply:        args.Supply,
		Sold:          0,
		Bump:          bump,
	}
	if err := event.Validate(); err != nil {
		return errors.Wrap(ticketing_api.ErrInvalidArgument, err.Error())
	}

	err = createAccount(
		ic,
		accounts.Organizer,
		accounts.Event,
		ticketing_api.PROGRAM_ID,
		ticketing_api.EventAccountSize,
		ticketing_api.EventSignerSeeds(accounts.Organizer, args.Nonce, bump),
	)
	if err != nil {
		return err
	}

	eventAccount.Data = event.Marshal()

	log.WithFields(logrus.Fields{
		"event":  eventAccount.String(),
		"supply": event.Supply,
	}).Debug("event created")

	recordEvent(ic, eventCreatedEventName, map[string]interface{}{
		"event":          eventAccount.String(),
		"organizer":      base58.Encode(event.Organizer),
		"supply":         event.Supply,
		"price_lamports": event.PriceLamports,
	})
	return nil
}

func requireFreshTicketMints(ic *runtime.InvokeContext, eventAddress, firstMint ed25519.PublicKey) error {
	expected, _, err := ticketing_api.GetTicketMintAddress(&ticketing_api.GetTicketMintAddressArgs{
		Event: eventAddress,
		Index: 0,
	})
	if err != nil {
		return errors.Wrap(ticketing_api.ErrInvalidSeeds, err.Error())
	}
	if err := requireKey(firstMint, expected, ticketing_api.ErrInvalidSeeds, "first ticket mint"); err != nil {
		return err
	}

	mint, err := ic.Account(firstMint)
	if err != nil {
		return err
	}
	if !mint.IsEmpty() {
		return errors.Wrapf(ticketing_api.ErrPdaCollision, "tickets of a closed event at %s still exist", base58.Encode(eventAddress))
	}
	return nil
}
