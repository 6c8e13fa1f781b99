package ticketing

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/tixchain/ticket-server/pkg/solana"
	"github.com/tixchain/ticket-server/pkg/solana/binary"
)

type CreateEventInstructionArgs struct {
	Nonce         uint64
	Title         string
	Venue         string
	DateTs        int64
	TierName      string
	PriceLamports uint64
	Supply        uint32
}

type CreateEventInstructionAccounts struct {
	Organizer ed25519.PublicKey
	Event     ed25519.PublicKey

	// The mint of ticket 0, which outlives a closed event and blocks reuse
	// of its nonce.
	FirstTicketMint ed25519.PublicKey
}

const createEventInstructionAccountCount = 4

func NewCreateEventInstruction(
	accounts *CreateEventInstructionAccounts,
	args *CreateEventInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, discriminatorSize+
		8+
		binary.StringSize(args.Title)+
		binary.StringSize(args.Venue)+
		8+
		binary.StringSize(args.TierName)+
		8+
		4)

	putInstructionType(data, InstructionTypeCreateEvent, &offset)
	binary.PutUint64(data, args.Nonce, &offset)
	binary.PutString(data, args.Title, &offset)
	binary.PutString(data, args.Venue, &offset)
	binary.PutInt64(data, args.DateTs, &offset)
	binary.PutString(data, args.TierName, &offset)
	binary.PutUint64(data, args.PriceLamports, &offset)
	binary.PutUint32(data, args.Supply, &offset)

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Organizer,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.Event,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.FirstTicketMint,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}

func DecompileCreateEventInstruction(ix solana.Instruction) (*CreateEventInstructionAccounts, *CreateEventInstructionArgs, error) {
	if err := checkInstruction(ix, InstructionTypeCreateEvent, createEventInstructionAccountCount); err != nil {
		return nil, nil, err
	}

	var args CreateEventInstructionArgs
	offset := discriminatorSize
	for _, get := range []func() error{
		func() error { return binary.GetUint64(ix.Data, &args.Nonce, &offset) },
		func() error { return binary.GetString(ix.Data, &args.Title, &offset) },
		func() error { return binary.GetString(ix.Data, &args.Venue, &offset) },
		func() error { return binary.GetInt64(ix.Data, &args.DateTs, &offset) },
		func() error { return binary.GetString(ix.Data, &args.TierName, &offset) },
		func() error { return binary.GetUint64(ix.Data, &args.PriceLamports, &offset) },
		func() error { return binary.GetUint32(ix.Data, &args.Supply, &offset) },
	} {
		if err := get(); err != nil {
			return nil, nil, errors.Wrapf(ErrInvalidInstructionData, "create_event: %v", err)
		}
	}
	if err := checkTrailingData(ix, offset); err != nil {
		return nil, nil, err
	}

	return &CreateEventInstructionAccounts{
		Organizer:       ix.Accounts[0].PublicKey,
		Event:           ix.Accounts[1].PublicKey,
		FirstTicketMint: ix.Accounts[2].PublicKey,
	}, &args, nil
}
