package runtime

import (
	"github.com/pkg/errors"

	"github.com/tixchain/ticket-server/pkg/solana"
	"github.com/tixchain/ticket-server/pkg/solana/system"
)

// systemProgram creates accounts, assigns ownership and transfers lamports
// between system owned accounts.
type systemProgram struct{}

func (p *systemProgram) Execute(ic *InvokeContext, ix solana.Instruction) error {
	switch {
	case system.IsCreateAccount(ix):
		return p.createAccount(ic, ix)
	case system.IsAssign(ix):
		return p.assign(ic, ix)
	case system.IsTransfer(ix):
		return p.transfer(ic, ix)
	default:
		return solana.InstructionErrorInvalidInstructionData
	}
}

func (p *systemProgram) createAccount(ic *InvokeContext, ix solana.Instruction) error {
	args, err := system.DecompileCreateAccount(ix)
	if err != nil {
		return errors.Wrap(solana.InstructionErrorInvalidInstructionData, err.Error())
	}

	funder, err := ic.Account(args.Funder)
	if err != nil {
		return err
	}
	created, err := ic.Account(args.Address)
	if err != nil {
		return err
	}

	if !ic.IsSigner(args.Funder) || !ic.IsSigner(args.Address) {
		return solana.InstructionErrorMissingRequiredSignature
	}

	if created.Lamports > 0 || len(created.Data) > 0 || !created.IsOwnedBy(system.ProgramKey[:]) {
		return errors.Wrapf(system.ErrorAccountAlreadyInUse, "account %s", created)
	}

	if args.Size > system.MaxPermittedDataLength {
		return system.ErrorInvalidAccountDataLength
	}

	if err := p.debit(funder, created, args.Lamports); err != nil {
		return err
	}

	created.Data = make([]byte, args.Size)
	created.Owner = args.Owner
	return nil
}

func (p *systemProgram) assign(ic *InvokeContext, ix solana.Instruction) error {
	args, err := system.DecompileAssign(ix)
	if err != nil {
		return errors.Wrap(solana.InstructionErrorInvalidInstructionData, err.Error())
	}

	assigned, err := ic.Account(args.Address)
	if err != nil {
		return err
	}

	if assigned.IsOwnedBy(args.Owner) {
		return nil
	}

	if !ic.IsSigner(args.Address) {
		return solana.InstructionErrorMissingRequiredSignature
	}

	assigned.Owner = args.Owner
	return nil
}

func (p *systemProgram) transfer(ic *InvokeContext, ix solana.Instruction) error {
	args, err := system.DecompileTransfer(ix)
	if err != nil {
		return errors.Wrap(solana.InstructionErrorInvalidInstructionData, err.Error())
	}

	from, err := ic.Account(args.From)
	if err != nil {
		return err
	}
	to, err := ic.Account(args.To)
	if err != nil {
		return err
	}

	if !ic.IsSigner(args.From) {
		return solana.InstructionErrorMissingRequiredSignature
	}

	return p.debit(from, to, args.Lamports)
}

func (p *systemProgram) debit(from, to *Account, lamports uint64) error {
	if len(from.Data) > 0 {
		return errors.Wrapf(solana.InstructionErrorInvalidArgument, "transfer source %s carries data", from)
	}

	if from.Lamports < lamports {
		return errors.Wrapf(system.ErrorResultWithNegativeLamports, "account %s", from)
	}

	return TransferLamports(from, to, lamports)
}
