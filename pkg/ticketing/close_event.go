package ticketing

import (
	"github.com/sirupsen/logrus"

	"github.com/tixchain/ticket-server/pkg/runtime"
	"github.com/tixchain/ticket-server/pkg/solana"
	ticketing_api "github.com/tixchain/ticket-server/pkg/solana/ticketing"
)

// closeEvent returns the event's rent to its organizer. Events with sold
// tickets may be closed; their tickets remain valid token holdings.
func (p *Program) closeEvent(ic *runtime.InvokeContext, log *logrus.Entry, ix solana.Instruction) error {
	accounts, err := ticketing_api.DecompileCloseEventInstruction(ix)
	if err != nil {
		return invalidInstruction(err)
	}

	if err := requireSigner(ic, accounts.Organizer, "organizer"); err != nil {
		return err
	}

	eventAccount, event, err := loadEvent(ic, accounts.Event)
	if err != nil {
		return err
	}
	if err := requireKey(accounts.Organizer, event.Organizer, ticketing_api.ErrUnauthorized, "organizer"); err != nil {
		return err
	}

	organizerAccount, err := ic.Account(accounts.Organizer)
	if err != nil {
		return err
	}

	if err := runtime.Close(eventAccount, organizerAccount); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"event": eventAccount.String(),
		"sold":  event.Sold,
	}).Debug("event closed")

	recordEvent(ic, eventClosedEventName, map[string]interface{}{
		"event":  eventAccount.String(),
		"sold":   event.Sold,
		"supply": event.Supply,
	})
	return nil
}
