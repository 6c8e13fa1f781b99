package ticketing

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tixchain/ticket-server/pkg/metrics"
	"github.com/tixchain/ticket-server/pkg/runtime"
	"github.com/tixchain/ticket-server/pkg/solana"
	"github.com/tixchain/ticket-server/pkg/solana/system"
	ticketing_api "github.com/tixchain/ticket-server/pkg/solana/ticketing"
	"github.com/tixchain/ticket-server/pkg/solana/token"
)

const (
	metricsStructName = "ticketing.program"

	eventCreatedEventName    = "TicketingEventCreated"
	ticketSoldEventName      = "TicketingTicketSold"
	eventClosedEventName     = "TicketingEventClosed"
	listingCreatedEventName  = "TicketingListingCreated"
	listingSoldEventName     = "TicketingListingSold"
	listingCanceledEventName = "TicketingListingCanceled"
)

// Program executes ticketing instructions inside a runtime.Bank.
type Program struct {
	log *logrus.Entry
}

var _ runtime.Program = (*Program)(nil)

func New() *Program {
	return &Program{
		log: logrus.StandardLogger().WithField("type", "ticketing/program"),
	}
}

// Register installs the program at ticketing_api.PROGRAM_ID.
func Register(bank *runtime.Bank) *Program {
	p := New()
	bank.RegisterProgram(ticketing_api.PROGRAM_ID, p)
	return p
}

func (p *Program) Execute(ic *runtime.InvokeContext, ix solana.Instruction) (err error) {
	instructionType, err := ticketing_api.GetInstructionType(ix)
	if err != nil {
		return err
	}

	tracer := metrics.TraceMethodCall(ic.Context(), metricsStructName, instructionType.String())
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	log := p.log.WithFields(logrus.Fields{
		"method":      "Execute",
		"instruction": instructionType.String(),
		"slot":        ic.Slot(),
	})

	switch instructionType {
	case ticketing_api.InstructionTypeCreateEvent:
		err = p.createEvent(ic, log, ix)
	case ticketing_api.InstructionTypeBuyTicket:
		err = p.buyTicket(ic, log, ix)
	case ticketing_api.InstructionTypeCloseEvent:
		err = p.closeEvent(ic, log, ix)
	case ticketing_api.InstructionTypeListForResale:
		err = p.listForResale(ic, log, ix)
	case ticketing_api.InstructionTypeBuyResale:
		err = p.buyResale(ic, log, ix)
	case ticketing_api.InstructionTypeCancelListing:
		err = p.cancelListing(ic, log, ix)
	default:
		err = errors.Wrapf(ticketing_api.ErrInvalidInstructionData, "unhandled instruction %s", instructionType)
	}

	if err != nil {
		log.WithError(err).Debug("instruction rejected")
	}
	return err
}

func invalidInstruction(err error) error {
	return errors.Wrap(ticketing_api.ErrInvalidInstructionData, err.Error())
}

// requireSigner is the capability check performed before any state change:
// key must have signed for the role it plays.
func requireSigner(ic *runtime.InvokeContext, key ed25519.PublicKey, role string) error {
	if !ic.IsSigner(key) {
		return errors.Wrapf(ticketing_api.ErrUnauthorized, "%s did not sign", role)
	}
	return nil
}

func requireKey(actual, expected ed25519.PublicKey, err error, what string) error {
	if !bytes.Equal(actual, expected) {
		return errors.Wrapf(err, "unexpected %s", what)
	}
	return nil
}

func loadEvent(ic *runtime.InvokeContext, key ed25519.PublicKey) (*runtime.Account, *ticketing_api.EventAccount, error) {
	acc, err := ic.Account(key)
	if err != nil {
		return nil, nil, err
	}

	if acc.IsEmpty() {
		return nil, nil, errors.Wrapf(ticketing_api.ErrAccountNotFound, "event %s", acc)
	}
	if !acc.IsOwnedBy(ticketing_api.PROGRAM_ID) {
		return nil, nil, errors.Wrapf(ticketing_api.ErrMalformedAccount, "event %s not owned by program", acc)
	}

	var event ticketing_api.EventAccount
	if err := event.Unmarshal(acc.Data); err != nil {
		return nil, nil, err
	}
	return acc, &event, nil
}

func loadListing(ic *runtime.InvokeContext, key ed25519.PublicKey) (*runtime.Account, *ticketing_api.ListingAccount, error) {
	acc, err := ic.Account(key)
	if err != nil {
		return nil, nil, err
	}

	if acc.IsEmpty() {
		return nil, nil, errors.Wrapf(ticketing_api.ErrAccountNotFound, "listing %s", acc)
	}
	if !acc.IsOwnedBy(ticketing_api.PROGRAM_ID) {
		return nil, nil, errors.Wrapf(ticketing_api.ErrMalformedAccount, "listing %s not owned by program", acc)
	}

	var listing ticketing_api.ListingAccount
	if err := listing.Unmarshal(acc.Data); err != nil {
		return nil, nil, err
	}
	return acc, &listing, nil
}

func loadTokenAccount(ic *runtime.InvokeContext, key ed25519.PublicKey) (*token.Account, error) {
	acc, err := ic.Account(key)
	if err != nil {
		return nil, err
	}

	if acc.IsEmpty() {
		return nil, errors.Wrapf(ticketing_api.ErrAccountNotFound, "token account %s", acc)
	}
	if !acc.IsOwnedBy(token.ProgramKey) {
		return nil, errors.Wrapf(ticketing_api.ErrMalformedAccount, "token account %s not owned by token program", acc)
	}

	var state token.Account
	if err := state.Unmarshal(acc.Data); err != nil {
		return nil, errors.Wrapf(ticketing_api.ErrMalformedAccount, "token account %s: %v", acc, err)
	}
	return &state, nil
}

// createAccount allocates address with size bytes of zeroed data assigned to
// owner, funded to rent exemption by payer. seeds sign for address.
func createAccount(ic *runtime.InvokeContext, payer, address, owner ed25519.PublicKey, size uint64, seeds [][]byte) error {
	return ic.Invoke(
		system.CreateAccount(payer, address, owner, ic.Rent().MinimumBalance(size), size),
		seeds,
	)
}

func recordEvent(ic *runtime.InvokeContext, name string, kvPairs map[string]interface{}) {
	metrics.RecordEvent(ic.Context(), name, kvPairs)
}
