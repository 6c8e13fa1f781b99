package runtime

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tixchain/ticket-server/pkg/solana"
	"github.com/tixchain/ticket-server/pkg/solana/system"
	"github.com/tixchain/ticket-server/pkg/testutil"
)

const (
	testCommandSpendExternal byte = iota
	testCommandWriteExternal
	testCommandEscalateSigner
	testCommandCustomError
	testCommandMissingAccount
	testCommandCreateOwned
	testCommandRecurse
)

// newTestProgram registers a program that misbehaves on demand, with the
// first two instruction accounts as its operands.
func newTestProgram(t *testing.T, bank *Bank) ed25519.PublicKey {
	programID := testutil.GenerateSolanaKeys(t, 1)[0]

	bank.RegisterProgram(programID, ProgramFunc(func(ic *InvokeContext, ix solana.Instruction) error {
		switch ix.Data[0] {
		case testCommandSpendExternal:
			from, err := ic.Account(ix.Accounts[0].PublicKey)
			if err != nil {
				return err
			}
			to, err := ic.Account(ix.Accounts[1].PublicKey)
			if err != nil {
				return err
			}
			return TransferLamports(from, to, 1)
		case testCommandWriteExternal:
			acc, err := ic.Account(ix.Accounts[0].PublicKey)
			if err != nil {
				return err
			}
			acc.Data = []byte{1}
			return nil
		case testCommandEscalateSigner:
			return ic.Invoke(system.Transfer(ix.Accounts[0].PublicKey, ix.Accounts[1].PublicKey, 1))
		case testCommandCustomError:
			return solana.CustomError(42)
		case testCommandMissingAccount:
			_, err := ic.Account(testutil.GenerateSolanaKeys(t, 1)[0])
			return err
		case testCommandCreateOwned:
			seeds := [][]byte{[]byte("owned")}
			address, bump, err := solana.FindProgramAddressAndBump(ic.ProgramID(), seeds...)
			if err != nil {
				return err
			}
			err = ic.Invoke(
				system.CreateAccount(ix.Accounts[0].PublicKey, address, ic.ProgramID(), ic.Rent().MinimumBalance(4), 4),
				append(seeds, []byte{bump}),
			)
			if err != nil {
				return err
			}
			created, err := ic.Account(address)
			if err != nil {
				return err
			}
			copy(created.Data, []byte("tix!"))
			return nil
		case testCommandRecurse:
			return ic.Invoke(solana.NewInstruction(ic.ProgramID(), []byte{testCommandRecurse}))
		}
		return solana.InstructionErrorInvalidInstructionData
	}))

	return programID
}

func TestInvoke_ExternalLamportSpend(t *testing.T) {
	env := setup(t, nil)
	program := newTestProgram(t, env.bank)

	payer := testutil.NewFundedWallet(t, env.bank, testBalance)
	victim := testutil.NewFundedWallet(t, env.bank, testBalance)

	_, err := testutil.SubmitInstructions(t, env.bank, []ed25519.PrivateKey{payer}, solana.NewInstruction(
		program,
		[]byte{testCommandSpendExternal},
		solana.NewAccountMeta(testutil.PublicKey(victim), false),
		solana.NewAccountMeta(testutil.PublicKey(payer), false),
	))
	testutil.AssertInstructionError(t, err, 0, solana.InstructionErrorExternalAccountLamportSpend)

	balance, err := env.bank.GetBalance(testutil.PublicKey(victim))
	require.NoError(t, err)
	assert.EqualValues(t, testBalance, balance)
}

func TestInvoke_ReadonlyLamportChange(t *testing.T) {
	env := setup(t, nil)
	program := newTestProgram(t, env.bank)

	payer := testutil.NewFundedWallet(t, env.bank, testBalance)
	victim := testutil.NewFundedWallet(t, env.bank, testBalance)

	_, err := testutil.SubmitInstructions(t, env.bank, []ed25519.PrivateKey{payer}, solana.NewInstruction(
		program,
		[]byte{testCommandSpendExternal},
		solana.NewReadonlyAccountMeta(testutil.PublicKey(victim), false),
		solana.NewAccountMeta(testutil.PublicKey(payer), false),
	))
	testutil.AssertInstructionError(t, err, 0, solana.InstructionErrorReadonlyLamportChange)
}

func TestInvoke_ExternalDataModified(t *testing.T) {
	env := setup(t, nil)
	program := newTestProgram(t, env.bank)

	payer := testutil.NewFundedWallet(t, env.bank, testBalance)
	victim := testutil.NewFundedWallet(t, env.bank, testBalance)

	_, err := testutil.SubmitInstructions(t, env.bank, []ed25519.PrivateKey{payer}, solana.NewInstruction(
		program,
		[]byte{testCommandWriteExternal},
		solana.NewAccountMeta(testutil.PublicKey(victim), false),
	))
	testutil.AssertInstructionError(t, err, 0, solana.InstructionErrorExternalAccountDataModified)
}

func TestInvoke_PrivilegeEscalation(t *testing.T) {
	env := setup(t, nil)
	program := newTestProgram(t, env.bank)

	payer := testutil.NewFundedWallet(t, env.bank, testBalance)
	victim := testutil.NewFundedWallet(t, env.bank, testBalance)

	_, err := testutil.SubmitInstructions(t, env.bank, []ed25519.PrivateKey{payer}, solana.NewInstruction(
		program,
		[]byte{testCommandEscalateSigner},
		solana.NewAccountMeta(testutil.PublicKey(victim), false),
		solana.NewAccountMeta(testutil.PublicKey(payer), false),
		solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
	))
	testutil.AssertInstructionError(t, err, 0, solana.InstructionErrorPrivilegeEscalation)

	// The same invocation is accepted once the account signs.
	_, err = testutil.SubmitInstructions(t, env.bank, []ed25519.PrivateKey{payer, victim}, solana.NewInstruction(
		program,
		[]byte{testCommandEscalateSigner},
		solana.NewAccountMeta(testutil.PublicKey(victim), true),
		solana.NewAccountMeta(testutil.PublicKey(payer), false),
		solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
	))
	require.NoError(t, err)

	balance, err := env.bank.GetBalance(testutil.PublicKey(victim))
	require.NoError(t, err)
	assert.EqualValues(t, testBalance-1, balance)
}

func TestInvoke_ProgramErrors(t *testing.T) {
	env := setup(t, nil)
	program := newTestProgram(t, env.bank)

	payer := testutil.NewFundedWallet(t, env.bank, testBalance)

	_, err := testutil.SubmitInstructions(t, env.bank, []ed25519.PrivateKey{payer}, solana.NewInstruction(program, []byte{testCommandCustomError}))
	testutil.AssertInstructionError(t, err, 0, solana.CustomError(42))

	var txErr *solana.TransactionError
	require.ErrorAs(t, err, &txErr)
	encoded, err := txErr.JSONString()
	require.NoError(t, err)
	assert.JSONEq(t, `{"InstructionError": [0, {"Custom": 42}]}`, encoded)

	_, err = testutil.SubmitInstructions(t, env.bank, []ed25519.PrivateKey{payer}, solana.NewInstruction(program, []byte{testCommandMissingAccount}))
	testutil.AssertInstructionError(t, err, 0, solana.InstructionErrorMissingAccount)

	_, err = testutil.SubmitInstructions(t, env.bank, []ed25519.PrivateKey{payer}, solana.NewInstruction(program, []byte{testCommandRecurse}))
	testutil.AssertInstructionError(t, err, 0, solana.InstructionErrorCallDepth)
}

func TestInvoke_ProgramDerivedAccount(t *testing.T) {
	env := setup(t, nil)
	program := newTestProgram(t, env.bank)

	payer := testutil.NewFundedWallet(t, env.bank, testBalance)
	address, _, err := solana.FindProgramAddressAndBump(program, []byte("owned"))
	require.NoError(t, err)

	_, err = testutil.SubmitInstructions(t, env.bank, []ed25519.PrivateKey{payer}, solana.NewInstruction(
		program,
		[]byte{testCommandCreateOwned},
		solana.NewAccountMeta(testutil.PublicKey(payer), true),
		solana.NewAccountMeta(address, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
	))
	require.NoError(t, err)

	info, err := env.bank.GetAccountInfo(address, solana.CommitmentFinalized)
	require.NoError(t, err)
	assert.EqualValues(t, program, info.Owner)
	assert.Equal(t, []byte("tix!"), info.Data)

	accounts, err := env.bank.GetProgramAccounts(program, 0, []byte("tix"))
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.EqualValues(t, address, accounts[0].PublicKey)

	accounts, err = env.bank.GetProgramAccounts(program, 1, []byte("tix"))
	require.NoError(t, err)
	assert.Empty(t, accounts)

	// The address is in use, so a second creation fails inside the system
	// program.
	_, err = testutil.SubmitInstructions(t, env.bank, []ed25519.PrivateKey{payer}, solana.NewInstruction(
		program,
		[]byte{testCommandCreateOwned},
		solana.NewAccountMeta(testutil.PublicKey(payer), true),
		solana.NewAccountMeta(address, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
	))
	testutil.AssertInstructionError(t, err, 0, system.ErrorAccountAlreadyInUse)
}
