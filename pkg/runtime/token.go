package runtime

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/tixchain/ticket-server/pkg/solana"
	"github.com/tixchain/ticket-server/pkg/solana/token"
)

// tokenProgram implements the subset of the SPL token program used for
// tickets: mint and account initialization, minting, transfers and closing
// empty accounts.
type tokenProgram struct{}

func (p *tokenProgram) Execute(ic *InvokeContext, ix solana.Instruction) error {
	cmd, err := token.GetCommand(ix)
	if err != nil {
		return errors.Wrap(token.ErrorInvalidInstruction, err.Error())
	}

	switch cmd {
	case token.CommandInitializeMint2:
		return p.initializeMint(ic, ix)
	case token.CommandInitializeAccount3:
		return p.initializeAccount(ic, ix)
	case token.CommandTransfer:
		return p.transfer(ic, ix)
	case token.CommandMintTo:
		return p.mintTo(ic, ix)
	case token.CommandCloseAccount:
		return p.closeAccount(ic, ix)
	default:
		return errors.Wrapf(token.ErrorInvalidInstruction, "unsupported command %d", cmd)
	}
}

func (p *tokenProgram) initializeMint(ic *InvokeContext, ix solana.Instruction) error {
	args, err := token.DecompileInitializeMint2(ix)
	if err != nil {
		return errors.Wrap(token.ErrorInvalidInstruction, err.Error())
	}

	mintAccount, err := ic.Account(args.Mint)
	if err != nil {
		return err
	}

	if !mintAccount.IsOwnedBy(token.ProgramKey) {
		return solana.InstructionErrorIncorrectProgramID
	}

	var mint token.Mint
	if err := mint.Unmarshal(mintAccount.Data); err != nil {
		return errors.Wrap(solana.InstructionErrorInvalidAccountData, err.Error())
	}
	if mint.IsInitialized {
		return token.ErrorAlreadyInUse
	}

	if !ic.Rent().IsExempt(mintAccount.Lamports, uint64(len(mintAccount.Data))) {
		return token.ErrorNotRentExempt
	}

	mint = token.Mint{
		MintAuthority:   args.MintAuthority,
		Decimals:        args.Decimals,
		IsInitialized:   true,
		FreezeAuthority: args.FreezeAuthority,
	}
	mintAccount.Data = mint.Marshal()
	return nil
}

func (p *tokenProgram) initializeAccount(ic *InvokeContext, ix solana.Instruction) error {
	args, err := token.DecompileInitializeAccount3(ix)
	if err != nil {
		return errors.Wrap(token.ErrorInvalidInstruction, err.Error())
	}

	tokenAccount, err := ic.Account(args.Account)
	if err != nil {
		return err
	}
	mintAccount, err := ic.Account(args.Mint)
	if err != nil {
		return err
	}

	if !tokenAccount.IsOwnedBy(token.ProgramKey) {
		return solana.InstructionErrorIncorrectProgramID
	}

	var state token.Account
	if err := state.Unmarshal(tokenAccount.Data); err != nil {
		return errors.Wrap(solana.InstructionErrorInvalidAccountData, err.Error())
	}
	if state.State != token.AccountStateUninitialized {
		return token.ErrorAlreadyInUse
	}

	if !ic.Rent().IsExempt(tokenAccount.Lamports, uint64(len(tokenAccount.Data))) {
		return token.ErrorNotRentExempt
	}

	if _, err := loadMint(mintAccount); err != nil {
		return err
	}

	state = token.Account{
		Mint:  args.Mint,
		Owner: args.Owner,
		State: token.AccountStateInitialized,
	}
	tokenAccount.Data = state.Marshal()
	return nil
}

func (p *tokenProgram) transfer(ic *InvokeContext, ix solana.Instruction) error {
	args, err := token.DecompileTransfer(ix)
	if err != nil {
		return errors.Wrap(token.ErrorInvalidInstruction, err.Error())
	}

	sourceAccount, err := ic.Account(args.Source)
	if err != nil {
		return err
	}
	destinationAccount, err := ic.Account(args.Destination)
	if err != nil {
		return err
	}

	source, err := loadTokenAccount(sourceAccount)
	if err != nil {
		return err
	}
	destination, err := loadTokenAccount(destinationAccount)
	if err != nil {
		return err
	}

	if source.State == token.AccountStateFrozen || destination.State == token.AccountStateFrozen {
		return token.ErrorAccountFrozen
	}
	if !bytes.Equal(source.Mint, destination.Mint) {
		return token.ErrorMintMismatch
	}
	if err := p.checkAuthority(ic, source.Owner, args.Owner); err != nil {
		return err
	}
	if source.Amount < args.Amount {
		return token.ErrorInsufficientFunds
	}

	if bytes.Equal(args.Source, args.Destination) {
		return nil
	}

	credited := destination.Amount + args.Amount
	if credited < destination.Amount {
		return token.ErrorOverflow
	}

	source.Amount -= args.Amount
	destination.Amount = credited

	sourceAccount.Data = source.Marshal()
	destinationAccount.Data = destination.Marshal()
	return nil
}

func (p *tokenProgram) mintTo(ic *InvokeContext, ix solana.Instruction) error {
	args, err := token.DecompileMintTo(ix)
	if err != nil {
		return errors.Wrap(token.ErrorInvalidInstruction, err.Error())
	}

	mintAccount, err := ic.Account(args.Mint)
	if err != nil {
		return err
	}
	destinationAccount, err := ic.Account(args.Destination)
	if err != nil {
		return err
	}

	mint, err := loadMint(mintAccount)
	if err != nil {
		return err
	}
	destination, err := loadTokenAccount(destinationAccount)
	if err != nil {
		return err
	}

	if destination.State == token.AccountStateFrozen {
		return token.ErrorAccountFrozen
	}
	if !bytes.Equal(destination.Mint, args.Mint) {
		return token.ErrorMintMismatch
	}
	if len(mint.MintAuthority) == 0 {
		return token.ErrorFixedSupply
	}
	if err := p.checkAuthority(ic, mint.MintAuthority, args.Authority); err != nil {
		return err
	}

	supply := mint.Supply + args.Amount
	if supply < mint.Supply {
		return token.ErrorOverflow
	}
	amount := destination.Amount + args.Amount
	if amount < destination.Amount {
		return token.ErrorOverflow
	}

	mint.Supply = supply
	destination.Amount = amount

	mintAccount.Data = mint.Marshal()
	destinationAccount.Data = destination.Marshal()
	return nil
}

func (p *tokenProgram) closeAccount(ic *InvokeContext, ix solana.Instruction) error {
	args, err := token.DecompileCloseAccount(ix)
	if err != nil {
		return errors.Wrap(token.ErrorInvalidInstruction, err.Error())
	}

	closedAccount, err := ic.Account(args.Account)
	if err != nil {
		return err
	}
	destinationAccount, err := ic.Account(args.Destination)
	if err != nil {
		return err
	}

	if bytes.Equal(args.Account, args.Destination) {
		return solana.InstructionErrorInvalidAccountData
	}

	state, err := loadTokenAccount(closedAccount)
	if err != nil {
		return err
	}
	if state.Amount != 0 {
		return token.ErrorNonNativeHasBalance
	}

	authority := state.Owner
	if len(state.CloseAuthority) > 0 {
		authority = state.CloseAuthority
	}
	if err := p.checkAuthority(ic, authority, args.Owner); err != nil {
		return err
	}

	return Close(closedAccount, destinationAccount)
}

func (p *tokenProgram) checkAuthority(ic *InvokeContext, expected, actual ed25519.PublicKey) error {
	if !bytes.Equal(expected, actual) {
		return token.ErrorOwnerMismatch
	}
	if !ic.IsSigner(actual) {
		return solana.InstructionErrorMissingRequiredSignature
	}
	return nil
}

func loadMint(acc *Account) (*token.Mint, error) {
	if !acc.IsOwnedBy(token.ProgramKey) {
		return nil, solana.InstructionErrorIncorrectProgramID
	}

	var mint token.Mint
	if err := mint.Unmarshal(acc.Data); err != nil {
		return nil, token.ErrorInvalidMint
	}
	if !mint.IsInitialized {
		return nil, token.ErrorUninitializedState
	}
	return &mint, nil
}

func loadTokenAccount(acc *Account) (*token.Account, error) {
	if !acc.IsOwnedBy(token.ProgramKey) {
		return nil, solana.InstructionErrorIncorrectProgramID
	}

	var state token.Account
	if err := state.Unmarshal(acc.Data); err != nil {
		return nil, errors.Wrap(solana.InstructionErrorInvalidAccountData, err.Error())
	}
	if state.State == token.AccountStateUninitialized {
		return nil, token.ErrorUninitializedState
	}
	return &state, nil
}
