package runtime

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/tixchain/ticket-server/pkg/solana"
	"github.com/tixchain/ticket-server/pkg/solana/system"
	"github.com/tixchain/ticket-server/pkg/solana/token"
)

// associatedTokenProgram creates the canonical token account of a wallet for
// a mint, at the address derived from (wallet, token program, mint).
type associatedTokenProgram struct{}

func (p *associatedTokenProgram) Execute(ic *InvokeContext, ix solana.Instruction) error {
	args, err := token.DecompileCreateAssociatedAccount(ix)
	if err != nil {
		return errors.Wrap(solana.InstructionErrorInvalidInstructionData, err.Error())
	}

	expected, bump, err := solana.FindProgramAddressAndBump(
		token.AssociatedTokenAccountProgramKey,
		args.Owner,
		token.ProgramKey,
		args.Mint,
	)
	if err != nil {
		return errors.Wrap(solana.InstructionErrorInvalidSeeds, err.Error())
	}
	if !bytes.Equal(expected, args.Address) {
		return solana.InstructionErrorInvalidSeeds
	}

	ata, err := ic.Account(args.Address)
	if err != nil {
		return err
	}

	if !ata.IsEmpty() {
		if !args.Idempotent {
			return errors.Wrapf(system.ErrorAccountAlreadyInUse, "associated account %s", ata)
		}

		existing, err := loadTokenAccount(ata)
		if err != nil {
			return err
		}
		if !bytes.Equal(existing.Mint, args.Mint) || !bytes.Equal(existing.Owner, args.Owner) {
			return solana.InstructionErrorIllegalOwner
		}
		return nil
	}

	err = ic.Invoke(
		system.CreateAccount(
			args.Subsidizer,
			args.Address,
			token.ProgramKey,
			ic.Rent().MinimumBalance(token.AccountSize),
			token.AccountSize,
		),
		[][]byte{args.Owner, token.ProgramKey, args.Mint, {bump}},
	)
	if err != nil {
		return err
	}

	return ic.Invoke(token.InitializeAccount3(args.Address, args.Mint, args.Owner))
}
