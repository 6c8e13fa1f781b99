package token

import (
	"crypto/ed25519"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tixchain/ticket-server/pkg/solana"
)

func TestGetCommand_Error(t *testing.T) {
	keys := generateKeys(t, 4)

	// invalid program
	cmd, err := GetCommand(solana.NewInstruction(keys[1], []byte{}))
	assert.Equal(t, CommandUnknown, cmd)
	assert.Equal(t, solana.ErrIncorrectProgram, err)

	// no data
	cmd, err = GetCommand(solana.NewInstruction(ProgramKey, []byte{}))
	assert.Equal(t, CommandUnknown, cmd)
	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "missing data")
}

func TestInitializeMint2(t *testing.T) {
	keys := generateKeys(t, 3)

	instruction := InitializeMint2(keys[0], keys[1], nil, 0)
	require.Len(t, instruction.Accounts, 1)
	assert.True(t, instruction.Accounts[0].IsWritable)
	assert.False(t, instruction.Accounts[0].IsSigner)
	assert.EqualValues(t, CommandInitializeMint2, instruction.Data[0])

	decompiled, err := DecompileInitializeMint2(roundTrip(t, keys[2], instruction))
	require.NoError(t, err)
	assert.Equal(t, keys[0], decompiled.Mint)
	assert.EqualValues(t, keys[1], decompiled.MintAuthority)
	assert.EqualValues(t, 0, decompiled.Decimals)
	assert.Nil(t, decompiled.FreezeAuthority)

	instruction = InitializeMint2(keys[0], keys[1], keys[2], 6)
	decompiled, err = DecompileInitializeMint2(instruction)
	require.NoError(t, err)
	assert.EqualValues(t, 6, decompiled.Decimals)
	assert.EqualValues(t, keys[2], decompiled.FreezeAuthority)

	instruction.Data = instruction.Data[:34]
	_, err = DecompileInitializeMint2(instruction)
	assert.Error(t, err)
}

func TestInitializeAccount3(t *testing.T) {
	keys := generateKeys(t, 4)

	instruction := InitializeAccount3(keys[0], keys[1], keys[2])
	require.Len(t, instruction.Accounts, 2)
	assert.True(t, instruction.Accounts[0].IsWritable)
	assert.False(t, instruction.Accounts[1].IsWritable)
	assert.EqualValues(t, CommandInitializeAccount3, instruction.Data[0])

	decompiled, err := DecompileInitializeAccount3(roundTrip(t, keys[3], instruction))
	require.NoError(t, err)
	assert.Equal(t, keys[0], decompiled.Account)
	assert.Equal(t, keys[1], decompiled.Mint)
	assert.EqualValues(t, keys[2], decompiled.Owner)

	_, err = DecompileMintTo(instruction)
	assert.Equal(t, solana.ErrIncorrectInstruction, err)
}

func TestTransfer(t *testing.T) {
	keys := generateKeys(t, 4)

	instruction := Transfer(keys[0], keys[1], keys[2], 123456789)

	expectedAmount := make([]byte, 8)
	binary.LittleEndian.PutUint64(expectedAmount, 123456789)

	assert.EqualValues(t, 3, instruction.Data[0])
	assert.EqualValues(t, expectedAmount, instruction.Data[1:])

	assert.False(t, instruction.Accounts[0].IsSigner)
	assert.True(t, instruction.Accounts[0].IsWritable)
	assert.False(t, instruction.Accounts[1].IsSigner)
	assert.True(t, instruction.Accounts[1].IsWritable)

	assert.True(t, instruction.Accounts[2].IsSigner)
	assert.False(t, instruction.Accounts[2].IsWritable)

	decompiled, err := DecompileTransfer(roundTrip(t, keys[2], instruction))
	assert.NoError(t, err)
	assert.EqualValues(t, 123456789, decompiled.Amount)
	assert.Equal(t, keys[0], decompiled.Source)
	assert.Equal(t, keys[1], decompiled.Destination)
	assert.Equal(t, keys[2], decompiled.Owner)

	cmd, err := GetCommand(instruction)
	require.NoError(t, err)
	assert.Equal(t, CommandTransfer, cmd)

	instruction.Data = instruction.Data[:1]
	_, err = DecompileTransfer(instruction)
	assert.NotNil(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid instruction data size"))

	instruction.Accounts = instruction.Accounts[:2]
	_, err = DecompileTransfer(instruction)
	assert.NotNil(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid number of accounts"))

	instruction.Data[0] = byte(CommandApprove)
	_, err = DecompileTransfer(instruction)
	assert.Equal(t, solana.ErrIncorrectInstruction, err)

	instruction.Program = keys[3]
	_, err = DecompileTransfer(instruction)
	assert.Equal(t, solana.ErrIncorrectProgram, err)
}

func TestMintTo(t *testing.T) {
	keys := generateKeys(t, 4)

	instruction := MintTo(keys[0], keys[1], keys[2], 1)
	assert.EqualValues(t, CommandMintTo, instruction.Data[0])
	assert.True(t, instruction.Accounts[0].IsWritable)
	assert.True(t, instruction.Accounts[1].IsWritable)
	assert.True(t, instruction.Accounts[2].IsSigner)
	assert.False(t, instruction.Accounts[2].IsWritable)

	decompiled, err := DecompileMintTo(roundTrip(t, keys[3], instruction))
	require.NoError(t, err)
	assert.Equal(t, keys[0], decompiled.Mint)
	assert.Equal(t, keys[1], decompiled.Destination)
	assert.Equal(t, keys[2], decompiled.Authority)
	assert.EqualValues(t, 1, decompiled.Amount)
}

func TestCloseAccount(t *testing.T) {
	keys := generateKeys(t, 4)

	instruction := CloseAccount(keys[0], keys[1], keys[2])

	assert.Equal(t, []byte{byte(CommandCloseAccount)}, instruction.Data)
	assert.False(t, instruction.Accounts[0].IsSigner)
	assert.True(t, instruction.Accounts[0].IsWritable)
	assert.False(t, instruction.Accounts[1].IsSigner)
	assert.True(t, instruction.Accounts[1].IsWritable)
	assert.True(t, instruction.Accounts[2].IsSigner)
	assert.False(t, instruction.Accounts[2].IsWritable)

	decompiled, err := DecompileCloseAccount(roundTrip(t, keys[2], instruction))
	require.NoError(t, err)
	assert.Equal(t, keys[0], decompiled.Account)
	assert.Equal(t, keys[1], decompiled.Destination)
	assert.Equal(t, keys[2], decompiled.Owner)

	instruction.Data = []byte{byte(CommandTransfer)}
	decompiled, err = DecompileCloseAccount(instruction)
	assert.Equal(t, solana.ErrIncorrectInstruction, err)
	assert.Nil(t, decompiled)
}

func roundTrip(t *testing.T, payer ed25519.PublicKey, instruction solana.Instruction) solana.Instruction {
	var tx solana.Transaction
	require.NoError(t, tx.Unmarshal(solana.NewTransaction(payer, instruction).Marshal()))

	decompiled, err := tx.Message.DecompileInstruction(0)
	require.NoError(t, err)
	return decompiled
}

func generateKeys(t *testing.T, amount int) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, amount)

	for i := 0; i < amount; i++ {
		pub, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = pub
	}

	return keys
}
