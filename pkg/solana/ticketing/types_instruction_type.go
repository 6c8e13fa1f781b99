package ticketing

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/tixchain/ticket-server/pkg/solana"
)

type InstructionType uint8

const (
	Unknown InstructionType = iota

	InstructionTypeCreateEvent
	InstructionTypeBuyTicket
	InstructionTypeCloseEvent

	InstructionTypeListForResale
	InstructionTypeBuyResale
	InstructionTypeCancelListing
)

// sha256("global:<name>")[:8]
var instructionDiscriminators = map[InstructionType][]byte{
	InstructionTypeCreateEvent:   {49, 219, 29, 203, 22, 98, 100, 87},
	InstructionTypeBuyTicket:     {11, 24, 17, 193, 168, 116, 164, 169},
	InstructionTypeCloseEvent:    {117, 114, 193, 54, 49, 25, 75, 194},
	InstructionTypeListForResale: {235, 101, 201, 204, 83, 163, 213, 243},
	InstructionTypeBuyResale:     {71, 230, 159, 123, 90, 231, 111, 104},
	InstructionTypeCancelListing: {41, 183, 50, 232, 230, 233, 157, 70},
}

func (t InstructionType) String() string {
	switch t {
	case InstructionTypeCreateEvent:
		return "create_event"
	case InstructionTypeBuyTicket:
		return "buy_ticket"
	case InstructionTypeCloseEvent:
		return "close_event"
	case InstructionTypeListForResale:
		return "list_for_resale"
	case InstructionTypeBuyResale:
		return "buy_resale"
	case InstructionTypeCancelListing:
		return "cancel_listing"
	}
	return "unknown"
}

// GetInstructionType identifies a ticketing instruction by its discriminator.
func GetInstructionType(ix solana.Instruction) (InstructionType, error) {
	if !bytes.Equal(ix.Program, PROGRAM_ID) {
		return Unknown, solana.ErrIncorrectProgram
	}
	if len(ix.Data) < discriminatorSize {
		return Unknown, errors.Wrap(ErrInvalidInstructionData, "missing discriminator")
	}

	for t, discriminator := range instructionDiscriminators {
		if bytes.Equal(ix.Data[:discriminatorSize], discriminator) {
			return t, nil
		}
	}
	return Unknown, errors.Wrap(ErrInvalidInstructionData, "unknown discriminator")
}

func putInstructionType(dst []byte, v InstructionType, offset *int) {
	putDiscriminator(dst, instructionDiscriminators[v], offset)
}

func checkInstruction(ix solana.Instruction, expected InstructionType, numAccounts int) error {
	actual, err := GetInstructionType(ix)
	if err != nil {
		return err
	}
	if actual != expected {
		return solana.ErrIncorrectInstruction
	}
	if len(ix.Accounts) < numAccounts {
		return errors.Wrapf(solana.InstructionErrorNotEnoughAccountKeys, "%s expects %d accounts, got %d", expected, numAccounts, len(ix.Accounts))
	}
	return nil
}

func checkTrailingData(ix solana.Instruction, offset int) error {
	if offset != len(ix.Data) {
		return errors.Wrapf(ErrInvalidInstructionData, "%d trailing bytes", len(ix.Data)-offset)
	}
	return nil
}
