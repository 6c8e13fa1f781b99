package ticketing

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/tixchain/ticket-server/pkg/solana"
	"github.com/tixchain/ticket-server/pkg/solana/binary"
)

const (
	ListForResaleInstructionArgsSize = (8 + // price_lamports
		4) // ticket_index
)

type ListForResaleInstructionArgs struct {
	PriceLamports uint64
	TicketIndex   uint32
}

type ListForResaleInstructionAccounts struct {
	Seller             ed25519.PublicKey
	Event              ed25519.PublicKey
	TicketMint         ed25519.PublicKey
	SellerTokenAccount ed25519.PublicKey
	Listing            ed25519.PublicKey
	Escrow             ed25519.PublicKey
}

const listForResaleInstructionAccountCount = 8

func NewListForResaleInstruction(
	accounts *ListForResaleInstructionAccounts,
	args *ListForResaleInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, discriminatorSize+ListForResaleInstructionArgsSize)

	putInstructionType(data, InstructionTypeListForResale, &offset)
	binary.PutUint64(data, args.PriceLamports, &offset)
	binary.PutUint32(data, args.TicketIndex, &offset)

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
				PublicKey:  accounts.SellerTokenAccount,
				IsWritable: true,
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
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SPL_TOKEN_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}

func DecompileListForResaleInstruction(ix solana.Instruction) (*ListForResaleInstructionAccounts, *ListForResaleInstructionArgs, error) {
	if err := checkInstruction(ix, InstructionTypeListForResale, listForResaleInstructionAccountCount); err != nil {
		return nil, nil, err
	}

	var args ListForResaleInstructionArgs
	offset := discriminatorSize
	if err := binary.GetUint64(ix.Data, &args.PriceLamports, &offset); err != nil {
		return nil, nil, errors.Wrapf(ErrInvalidInstructionData, "list_for_resale: %v", err)
	}
	if err := binary.GetUint32(ix.Data, &args.TicketIndex, &offset); err != nil {
		return nil, nil, errors.Wrapf(ErrInvalidInstructionData, "list_for_resale: %v", err)
	}
	if err := checkTrailingData(ix, offset); err != nil {
		return nil, nil, err
	}

	return &ListForResaleInstructionAccounts{
		Seller:             ix.Accounts[0].PublicKey,
		Event:              ix.Accounts[1].PublicKey,
		TicketMint:         ix.Accounts[2].PublicKey,
		SellerTokenAccount: ix.Accounts[3].PublicKey,
		Listing:            ix.Accounts[4].PublicKey,
		Escrow:             ix.Accounts[5].PublicKey,
	}, &args, nil
}
