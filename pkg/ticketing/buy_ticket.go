package ticketing

import (
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tixchain/ticket-server/pkg/runtime"
	"github.com/tixchain/ticket-server/pkg/solana"
	"github.com/tixchain/ticket-server/pkg/solana/system"
	ticketing_api "github.com/tixchain/ticket-server/pkg/solana/ticketing"
	"github.com/tixchain/ticket-server/pkg/solana/token"
)

// buyTicket sells the ticket at index event.sold. Reading the counter,
// deriving the ticket addresses from it and incrementing it all happen here,
// so two purchases can never mint the same index.
func (p *Program) buyTicket(ic *runtime.InvokeContext, log *logrus.Entry, ix solana.Instruction) error {
	accounts, err := ticketing_api.DecompileBuyTicketInstruction(ix)
	if err != nil {
		return invalidInstruction(err)
	}

	if err := requireSigner(ic, accounts.Buyer, "buyer"); err != nil {
		return err
	}

	eventAccount, event, err := loadEvent(ic, accounts.Event)
	if err != nil {
		return err
	}
	if err := requireKey(accounts.Organizer, event.Organizer, ticketing_api.ErrUnauthorized, "organizer"); err != nil {
		return err
	}

	if event.IsSoldOut() {
		return errors.Wrapf(ticketing_api.ErrSoldOut, "%d of %d sold", event.Sold, event.Supply)
	}

	index := event.Sold
	sold := index + 1
	if sold < index {
		return ticketing_api.ErrArithmeticOverflow
	}

	mintAddress, mintBump, err := ticketing_api.GetTicketMintAddress(&ticketing_api.GetTicketMintAddressArgs{
		Event: accounts.Event,
		Index: index,
	})
	if err != nil {
		return errors.Wrap(ticketing_api.ErrInvalidSeeds, err.Error())
	}
	if err := requireKey(accounts.TicketMint, mintAddress, ticketing_api.ErrInvalidSeeds, "ticket mint"); err != nil {
		return err
	}

	authorityAddress, authorityBump, err := ticketing_api.GetTicketAuthorityAddress(&ticketing_api.GetTicketAuthorityAddressArgs{
		Event: accounts.Event,
		Index: index,
	})
	if err != nil {
		return errors.Wrap(ticketing_api.ErrInvalidSeeds, err.Error())
	}
	if err := requireKey(accounts.TicketAuthority, authorityAddress, ticketing_api.ErrInvalidSeeds, "ticket authority"); err != nil {
		return err
	}

	mintAccount, err := ic.Account(accounts.TicketMint)
	if err != nil {
		return err
	}
	if !mintAccount.IsEmpty() {
		return errors.Wrapf(ticketing_api.ErrPdaCollision, "ticket mint %s already exists", mintAccount)
	}

	createAta, ataAddress, err := token.CreateAssociatedTokenAccountIdempotent(accounts.Buyer, accounts.Buyer, accounts.TicketMint)
	if err != nil {
		return errors.Wrap(ticketing_api.ErrInvalidSeeds, err.Error())
	}
	if err := requireKey(accounts.BuyerTokenAccount, ataAddress, ticketing_api.ErrInvalidSeeds, "buyer token account"); err != nil {
		return err
	}

	if event.PriceLamports > 0 {
		if err := ic.Invoke(system.Transfer(accounts.Buyer, accounts.Organizer, event.PriceLamports)); err != nil {
			return err
		}
	}

	err = createAccount(
		ic,
		accounts.Buyer,
		accounts.TicketMint,
		token.ProgramKey,
		token.MintSize,
		ticketing_api.TicketMintSignerSeeds(accounts.Event, index, mintBump),
	)
	if err != nil {
		return err
	}

	if err := ic.Invoke(token.InitializeMint2(accounts.TicketMint, accounts.TicketAuthority, nil, 0)); err != nil {
		return err
	}

	if err := ic.Invoke(createAta); err != nil {
		return err
	}

	err = ic.Invoke(
		token.MintTo(accounts.TicketMint, accounts.BuyerTokenAccount, accounts.TicketAuthority, 1),
		ticketing_api.TicketAuthoritySignerSeeds(accounts.Event, index, authorityBump),
	)
	if err != nil {
		return err
	}

	event.Sold = sold
	eventAccount.Data = event.Marshal()

	log.WithFields(logrus.Fields{
		"event": eventAccount.String(),
		"mint":  mintAccount.String(),
		"index": index,
	}).Debug("ticket sold")

	recordEvent(ic, ticketSoldEventName, map[string]interface{}{
		"event":          eventAccount.String(),
		"ticket_mint":    mintAccount.String(),
		"buyer":          base58.Encode(accounts.Buyer),
		"index":          index,
		"price_lamports": event.PriceLamports,
	})
	return nil
}
