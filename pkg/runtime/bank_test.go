package runtime

import (
	"context"
	"crypto/ed25519"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tixchain/ticket-server/pkg/data/account/memory"
	"github.com/tixchain/ticket-server/pkg/solana"
	"github.com/tixchain/ticket-server/pkg/solana/system"
	"github.com/tixchain/ticket-server/pkg/testutil"
)

const (
	testFee     = 5_000
	testBalance = 10_000_000_000
)

type testEnv struct {
	ctx  context.Context
	bank *Bank
}

func setup(t *testing.T, overrides *Overrides) *testEnv {
	if overrides == nil {
		overrides = &Overrides{}
	}
	overrides.LamportsPerSignature = testFee

	return &testEnv{
		ctx:  context.Background(),
		bank: NewBank(memory.New(), WithOverrides(overrides)),
	}
}

func TestBank_Transfer(t *testing.T) {
	env := setup(t, nil)

	sender := testutil.NewFundedWallet(t, env.bank, testBalance)
	receiver := testutil.GenerateSolanaKeys(t, 1)[0]

	slotBefore := env.bank.GetCurrentSlot()

	sig, err := testutil.SubmitInstructions(t, env.bank, []ed25519.PrivateKey{sender}, system.Transfer(testutil.PublicKey(sender), receiver, 1_000_000_000))
	require.NoError(t, err)

	balance, err := env.bank.GetBalance(testutil.PublicKey(sender))
	require.NoError(t, err)
	assert.EqualValues(t, testBalance-1_000_000_000-testFee, balance)

	balance, err = env.bank.GetBalance(receiver)
	require.NoError(t, err)
	assert.EqualValues(t, 1_000_000_000, balance)

	status, err := env.bank.GetSignatureStatus(sig, solana.CommitmentFinalized)
	require.NoError(t, err)
	assert.True(t, status.Finalized())
	assert.Equal(t, slotBefore+1, status.Slot)
	assert.Equal(t, slotBefore+1, env.bank.GetCurrentSlot())

	_, err = env.bank.GetSignatureStatus(solana.Signature{}, solana.CommitmentFinalized)
	assert.Equal(t, solana.ErrSignatureNotFound, err)
}

func TestBank_FeeChecks(t *testing.T) {
	env := setup(t, nil)

	unfunded := testutil.GenerateSolanaKeypair(t)
	_, err := testutil.SubmitInstructions(t, env.bank, []ed25519.PrivateKey{unfunded}, system.Transfer(testutil.PublicKey(unfunded), testutil.GenerateSolanaKeys(t, 1)[0], 1))
	testutil.AssertTransactionErrorWithKey(t, err, solana.TransactionErrorAccountNotFound)

	rentExempt, err := env.bank.GetMinimumBalanceForRentExemption(0)
	require.NoError(t, err)

	// Paying the fee would leave the payer below rent exemption.
	exact := testutil.GenerateSolanaKeypair(t)
	testutil.FundAccount(t, env.bank, testutil.PublicKey(exact), rentExempt)

	sig, err := testutil.SubmitInstructions(t, env.bank, []ed25519.PrivateKey{exact}, system.Transfer(testutil.PublicKey(exact), testutil.GenerateSolanaKeys(t, 1)[0], 1))
	testutil.AssertTransactionErrorWithKey(t, err, solana.TransactionErrorInsufficientFundsForFee)

	balance, err := env.bank.GetBalance(testutil.PublicKey(exact))
	require.NoError(t, err)
	assert.Equal(t, rentExempt, balance)

	_, err = env.bank.GetSignatureStatus(sig, solana.CommitmentFinalized)
	assert.Equal(t, solana.ErrSignatureNotFound, err)

	// A payable transaction is charged even when an instruction fails.
	payer := testutil.GenerateSolanaKeypair(t)
	testutil.FundAccount(t, env.bank, testutil.PublicKey(payer), rentExempt+testFee)

	sig, err = testutil.SubmitInstructions(t, env.bank, []ed25519.PrivateKey{payer}, system.Transfer(testutil.PublicKey(payer), testutil.GenerateSolanaKeys(t, 1)[0], rentExempt+testFee))
	testutil.AssertInstructionError(t, err, 0, system.ErrorResultWithNegativeLamports)

	balance, err = env.bank.GetBalance(testutil.PublicKey(payer))
	require.NoError(t, err)
	assert.Equal(t, rentExempt, balance)

	status, err := env.bank.GetSignatureStatus(sig, solana.CommitmentFinalized)
	require.NoError(t, err)
	require.NotNil(t, status.ErrorResult)
	assert.ErrorIs(t, status.ErrorResult, system.ErrorResultWithNegativeLamports)
}

func TestBank_RentExemption(t *testing.T) {
	env := setup(t, nil)

	sender := testutil.NewFundedWallet(t, env.bank, testBalance)
	receiver := testutil.GenerateSolanaKeys(t, 1)[0]

	_, err := testutil.SubmitInstructions(t, env.bank, []ed25519.PrivateKey{sender}, system.Transfer(testutil.PublicKey(sender), receiver, 1_000))
	testutil.AssertTransactionErrorWithKey(t, err, solana.TransactionErrorInsufficientFundsForRent)

	_, err = env.bank.GetAccountInfo(receiver, solana.CommitmentFinalized)
	assert.Equal(t, solana.ErrNoAccountInfo, err)

	_, err = env.bank.RequestAirdrop(receiver, 1_000, solana.CommitmentFinalized)
	assert.Error(t, err)
}

func TestBank_FailedTransactionIsRolledBack(t *testing.T) {
	env := setup(t, nil)

	sender := testutil.NewFundedWallet(t, env.bank, testBalance)
	receivers := testutil.GenerateSolanaKeys(t, 2)

	_, err := testutil.SubmitInstructions(
		t,
		env.bank,
		[]ed25519.PrivateKey{sender},
		system.Transfer(testutil.PublicKey(sender), receivers[0], 1_000_000_000),
		system.Transfer(testutil.PublicKey(sender), receivers[1], 2*testBalance),
	)
	testutil.AssertInstructionError(t, err, 1, system.ErrorResultWithNegativeLamports)

	// Only the fee is kept.
	balance, err := env.bank.GetBalance(testutil.PublicKey(sender))
	require.NoError(t, err)
	assert.EqualValues(t, testBalance-testFee, balance)

	for _, receiver := range receivers {
		_, err = env.bank.GetAccountInfo(receiver, solana.CommitmentFinalized)
		assert.Equal(t, solana.ErrNoAccountInfo, err)
	}
}

func TestBank_BlockhashExpiry(t *testing.T) {
	env := setup(t, &Overrides{MaxBlockhashAge: 2})

	sender := testutil.NewFundedWallet(t, env.bank, testBalance)

	blockhash, err := env.bank.GetLatestBlockhash()
	require.NoError(t, err)

	tx := solana.NewTransaction(testutil.PublicKey(sender), system.Transfer(testutil.PublicKey(sender), testutil.GenerateSolanaKeys(t, 1)[0], 1_000_000_000))
	tx.SetBlockhash(blockhash)
	require.NoError(t, tx.Sign(sender))

	env.bank.WarpSlots(3)

	_, err = env.bank.SubmitTransaction(tx, solana.CommitmentFinalized)
	testutil.AssertTransactionErrorWithKey(t, err, solana.TransactionErrorBlockhashNotFound)

	balance, err := env.bank.GetBalance(testutil.PublicKey(sender))
	require.NoError(t, err)
	assert.EqualValues(t, testBalance, balance)
}

func TestBank_DuplicateSignature(t *testing.T) {
	env := setup(t, nil)

	sender := testutil.NewFundedWallet(t, env.bank, testBalance)

	blockhash, err := env.bank.GetLatestBlockhash()
	require.NoError(t, err)

	tx := solana.NewTransaction(testutil.PublicKey(sender), system.Transfer(testutil.PublicKey(sender), testutil.GenerateSolanaKeys(t, 1)[0], 1_000_000_000))
	tx.SetBlockhash(blockhash)
	require.NoError(t, tx.Sign(sender))

	_, err = env.bank.SubmitTransaction(tx, solana.CommitmentFinalized)
	require.NoError(t, err)

	_, err = env.bank.SubmitTransaction(tx, solana.CommitmentFinalized)
	testutil.AssertTransactionErrorWithKey(t, err, solana.TransactionErrorDuplicateSignature)
}

func TestBank_SignatureVerification(t *testing.T) {
	env := setup(t, nil)

	sender := testutil.NewFundedWallet(t, env.bank, testBalance)
	other := testutil.GenerateSolanaKeypair(t)

	blockhash, err := env.bank.GetLatestBlockhash()
	require.NoError(t, err)

	tx := solana.NewTransaction(testutil.PublicKey(sender), system.Transfer(testutil.PublicKey(sender), testutil.GenerateSolanaKeys(t, 1)[0], 1_000_000_000))
	tx.SetBlockhash(blockhash)
	require.NoError(t, tx.Sign(sender))
	tx.Signatures[0] = solana.Signature{}
	copy(tx.Signatures[0][:], ed25519.Sign(other, tx.Message.Marshal()))

	_, err = env.bank.SubmitTransaction(tx, solana.CommitmentFinalized)
	testutil.AssertTransactionErrorWithKey(t, err, solana.TransactionErrorSignatureFailure)
}

func TestBank_UnknownProgram(t *testing.T) {
	env := setup(t, nil)

	sender := testutil.NewFundedWallet(t, env.bank, testBalance)
	program := testutil.GenerateSolanaKeys(t, 1)[0]

	_, err := testutil.SubmitInstructions(t, env.bank, []ed25519.PrivateKey{sender}, solana.NewInstruction(program, []byte{0}))
	testutil.AssertTransactionErrorWithKey(t, err, solana.TransactionErrorProgramAccountNotFound)
}

func TestBank_ConcurrentTransfers(t *testing.T) {
	env := setup(t, nil)

	const senders = 16
	const amount = 1_000_000_000

	destination := testutil.GenerateSolanaKeys(t, 1)[0]

	wallets := make([]ed25519.PrivateKey, senders)
	for i := range wallets {
		wallets[i] = testutil.NewFundedWallet(t, env.bank, testBalance)
	}

	blockhash, err := env.bank.GetLatestBlockhash()
	require.NoError(t, err)

	txns := make([]solana.Transaction, senders)
	for i, wallet := range wallets {
		txns[i] = solana.NewTransaction(testutil.PublicKey(wallet), system.Transfer(testutil.PublicKey(wallet), destination, amount))
		txns[i].SetBlockhash(blockhash)
		require.NoError(t, txns[i].Sign(wallet))
	}

	var wg sync.WaitGroup
	errs := make([]error, senders)
	for i := range txns {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.bank.ProcessTransaction(env.ctx, txns[i])
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	balance, err := env.bank.GetBalance(destination)
	require.NoError(t, err)
	assert.EqualValues(t, senders*amount, balance)

	count, err := env.bank.accounts.Count(env.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, senders+1, count)
}
