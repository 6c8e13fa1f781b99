package ticketing

import (
	"crypto/ed25519"

	"github.com/tixchain/ticket-server/pkg/solana"
)

type CancelListingInstructionAccounts struct {
	Seller             ed25519.PublicKey
	TicketMint         ed25519.PublicKey
	Listing            ed25519.PublicKey
	Escrow             ed25519.PublicKey
	SellerTokenAccount ed25519.PublicKey
}

const cancelListingInstructionAccountCount = 8

func NewCancelListingInstruction(accounts *CancelListingInstructionAccounts) solana.Instruction {
	var offset int

	data := make([]byte, discriminatorSize)
	putInstructionType(data, InstructionTypeCancelListing, &offset)

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Seller,
				IsWritable: true,
				IsSigner:   true,
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
				PublicKey:  accounts.SellerTokenAccount,
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

func DecompileCancelListingInstruction(ix solana.Instruction) (*CancelListingInstructionAccounts, error) {
	if err := checkInstruction(ix, InstructionTypeCancelListing, cancelListingInstructionAccountCount); err != nil {
		return nil, err
	}
	if err := checkTrailingData(ix, discriminatorSize); err != nil {
		return nil, err
	}

	return &CancelListingInstructionAccounts{
		Seller:             ix.Accounts[0].PublicKey,
		TicketMint:         ix.Accounts[1].PublicKey,
		Listing:            ix.Accounts[2].PublicKey,
		Escrow:             ix.Accounts[3].PublicKey,
		SellerTokenAccount: ix.Accounts[4].PublicKey,
	}, nil
}
