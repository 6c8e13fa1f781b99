package ticketing

import (
	"crypto/ed25519"

	"github.com/tixchain/ticket-server/pkg/solana"
)

type CloseEventInstructionAccounts struct {
	Organizer ed25519.PublicKey
	Event     ed25519.PublicKey
}

const closeEventInstructionAccountCount = 2

func NewCloseEventInstruction(accounts *CloseEventInstructionAccounts) solana.Instruction {
	var offset int

	data := make([]byte, discriminatorSize)
	putInstructionType(data, InstructionTypeCloseEvent, &offset)

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
		},
	}
}

func DecompileCloseEventInstruction(ix solana.Instruction) (*CloseEventInstructionAccounts, error) {
	if err := checkInstruction(ix, InstructionTypeCloseEvent, closeEventInstructionAccountCount); err != nil {
		return nil, err
	}
	if err := checkTrailingData(ix, discriminatorSize); err != nil {
		return nil, err
	}

	return &CloseEventInstructionAccounts{
		Organizer: ix.Accounts[0].PublicKey,
		Event:     ix.Accounts[1].PublicKey,
	}, nil
}
