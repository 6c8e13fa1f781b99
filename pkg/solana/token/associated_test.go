package token

import (
	"testing"

	"github.com/mr-tron/base58/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tixchain/ticket-server/pkg/solana"
	"github.com/tixchain/ticket-server/pkg/solana/system"
)

func TestGetAssociatedAccount(t *testing.T) {
	// Values generated from taken from spl code.
	wallet, err := base58.Decode("4uQeVj5tqViQh7yWWGStvkEG1Zmhx6uasJtWCJziofM")
	require.NoError(t, err)
	mint, err := base58.Decode("8opHzTAnfzRpPEx21XtnrVTX28YQuCpAjcn1PczScKh")
	require.NoError(t, err)
	addr, err := base58.Decode("H7MQwEzt97tUJryocn3qaEoy2ymWstwyEk1i9Yv3EmuZ")
	require.NoError(t, err)

	actual, err := GetAssociatedAccount(wallet, mint)
	require.NoError(t, err)
	assert.EqualValues(t, addr, actual)
}

func TestCreateAssociatedAccount(t *testing.T) {
	keys := generateKeys(t, 3)

	expectedAddr, err := GetAssociatedAccount(keys[1], keys[2])
	require.NoError(t, err)

	for _, idempotent := range []bool{false, true} {
		create := CreateAssociatedTokenAccount
		if idempotent {
			create = CreateAssociatedTokenAccountIdempotent
		}

		instruction, addr, err := create(keys[0], keys[1], keys[2])
		require.NoError(t, err)
		assert.Equal(t, expectedAddr, addr)

		require.Len(t, instruction.Accounts, 6)
		assert.True(t, instruction.Accounts[0].IsSigner)
		assert.True(t, instruction.Accounts[0].IsWritable)
		assert.False(t, instruction.Accounts[1].IsSigner)
		assert.True(t, instruction.Accounts[1].IsWritable)
		for i := 2; i < len(instruction.Accounts); i++ {
			assert.False(t, instruction.Accounts[i].IsSigner)
			assert.False(t, instruction.Accounts[i].IsWritable)
		}
		assert.EqualValues(t, system.ProgramKey[:], instruction.Accounts[4].PublicKey)
		assert.EqualValues(t, ProgramKey, instruction.Accounts[5].PublicKey)

		var tx solana.Transaction
		require.NoError(t, tx.Unmarshal(solana.NewTransaction(keys[0], instruction).Marshal()))
		ix, err := tx.Message.DecompileInstruction(0)
		require.NoError(t, err)

		decompiled, err := DecompileCreateAssociatedAccount(ix)
		require.NoError(t, err)
		assert.Equal(t, keys[0], decompiled.Subsidizer)
		assert.Equal(t, addr, decompiled.Address)
		assert.Equal(t, keys[1], decompiled.Owner)
		assert.Equal(t, keys[2], decompiled.Mint)
		assert.Equal(t, idempotent, decompiled.Idempotent)
	}
}

func TestDecompileCreateAssociatedAccount_Invalid(t *testing.T) {
	keys := generateKeys(t, 4)

	instruction, _, err := CreateAssociatedTokenAccount(keys[0], keys[1], keys[2])
	require.NoError(t, err)

	invalid := instruction
	invalid.Data = []byte{2}
	_, err = DecompileCreateAssociatedAccount(invalid)
	assert.Equal(t, solana.ErrIncorrectInstruction, err)

	invalid = instruction
	invalid.Accounts = instruction.Accounts[:5]
	_, err = DecompileCreateAssociatedAccount(invalid)
	assert.Error(t, err)

	invalid = instruction
	invalid.Program = keys[3]
	_, err = DecompileCreateAssociatedAccount(invalid)
	assert.Equal(t, solana.ErrIncorrectProgram, err)
}
