package ticketing

import (
	"crypto/ed25519"

	"github.com/tixchain/ticket-server/pkg/solana"
)

type BuyTicketInstructionAccounts struct {
	Buyer             ed25519.PublicKey
	Organizer         ed25519.PublicKey
	Event             ed25519.PublicKey
	TicketMint        ed25519.PublicKey
	TicketAuthority   ed25519.PublicKey
	BuyerTokenAccount ed25519.PublicKey
}

const buyTicketInstructionAccountCount = 9

func NewBuyTicketInstruction(accounts *BuyTicketInstructionAccounts) solana.Instruction {
	var offset int

	data := make([]byte, discriminatorSize)
	putInstructionType(data, InstructionTypeBuyTicket, &offset)

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Buyer,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.Organizer,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Event,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.TicketMint,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.TicketAuthority,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.BuyerTokenAccount,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SPL_TOKEN_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  ASSOCIATED_TOKEN_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}

func DecompileBuyTicketInstruction(ix solana.Instruction) (*BuyTicketInstructionAccounts, error) {
	if err := checkInstruction(ix, InstructionTypeBuyTicket, buyTicketInstructionAccountCount); err != nil {
		return nil, err
	}
	if err := checkTrailingData(ix, discriminatorSize); err != nil {
		return nil, err
	}

	return &BuyTicketInstructionAccounts{
		Buyer:             ix.Accounts[0].PublicKey,
		Organizer:         ix.Accounts[1].PublicKey,
		Event:             ix.Accounts[2].PublicKey,
		TicketMint:        ix.Accounts[3].PublicKey,
		TicketAuthority:   ix.Accounts[4].PublicKey,
		BuyerTokenAccount: ix.Accounts[5].PublicKey,
	}, nil
}
