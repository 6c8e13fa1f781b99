package testutil

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tixchain/ticket-server/pkg/solana"
)

// NewFundedWallet generates a keypair and airdrops lamports to it.
func NewFundedWallet(t *testing.T, client solana.Client, lamports uint64) ed25519.PrivateKey {
	wallet := GenerateSolanaKeypair(t)
	FundAccount(t, client, PublicKey(wallet), lamports)
	return wallet
}

func FundAccount(t *testing.T, client solana.Client, key ed25519.PublicKey, lamports uint64) {
	_, err := client.RequestAirdrop(key, lamports, solana.CommitmentFinalized)
	require.NoError(t, err)
}

// SubmitInstructions signs a transaction paid for by the first signer and
// submits it at the client's latest blockhash.
func SubmitInstructions(t *testing.T, client solana.Client, signers []ed25519.PrivateKey, instructions ...solana.Instruction) (solana.Signature, error) {
	require.NotEmpty(t, signers)

	blockhash, err := client.GetLatestBlockhash()
	require.NoError(t, err)

	tx := solana.NewTransaction(PublicKey(signers[0]), instructions...)
	tx.SetBlockhash(blockhash)
	require.NoError(t, tx.Sign(signers...))

	return client.SubmitTransaction(tx, solana.CommitmentFinalized)
}
