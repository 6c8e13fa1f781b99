package ticketing

import (
	"crypto/ed25519"

	"github.com/tixchain/ticket-server/pkg/solana"
)

type BuyResaleInstructionAccounts struct {
	Buyer             ed25519.PublicKey
	Seller            ed25519.PublicKey
	Organizer         ed25519.PublicKey
	Platform          ed25519.PublicKey
	Event             ed25519.PublicKey
	TicketMint        ed25519.PublicKey
	Listing           ed25519.PublicKey
	Escrow            ed25519.PublicKey
	BuyerTokenAccount ed25519.PublicKey
}

const buyResaleInstructionAccountCount = 12

func NewBuyResaleInstruction(accounts *BuyResaleInstructionAccounts) solana.Instruction {
	var offset int

	data := make([]byte, discriminatorSize)
	putInstructionType(data, InstructionTypeBuyResale, &offset)

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
				PublicKey:  accounts.Seller,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Organizer,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Platform,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Event,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.TicketMint,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Listing,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Escrow,
				IsWritable: true,
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

func DecompileBuyResaleInstruction(ix solana.Instruction) (*BuyResaleInstructionAccounts, error) {
	if err := checkInstruction(ix, InstructionTypeBuyResale, buyResaleInstructionAccountCount); err != nil {
		return nil, err
	}
	if err := checkTrailingData(ix, discriminatorSize); err != nil {
		return nil, err
	}

	return &BuyResaleInstructionAccounts{
		Buyer:             ix.Accounts[0].PublicKey,
		Seller:            ix.Accounts[1].PublicKey,
		Organizer:         ix.Accounts[2].PublicKey,
		Platform:          ix.Accounts[3].PublicKey,
		Event:             ix.Accounts[4].PublicKey,
		TicketMint:        ix.Accounts[5].PublicKey,
		Listing:           ix.Accounts[6].PublicKey,
		Escrow:            ix.Accounts[7].PublicKey,
		BuyerTokenAccount: ix.Accounts[8].PublicKey,
	}, nil
}
