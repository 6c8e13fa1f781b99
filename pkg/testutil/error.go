package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tixchain/ticket-server/pkg/solana"
)

// AssertTransactionErrorWithKey verifies that the provided error is a
// transaction error of the provided kind.
func AssertTransactionErrorWithKey(t *testing.T, err error, key solana.TransactionErrorKey) {
	require.Error(t, err)

	var txErr *solana.TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, key, txErr.ErrorKey())
}

// AssertInstructionError verifies that the provided error is a transaction
// error raised by the instruction at index, carrying expected.
func AssertInstructionError(t *testing.T, err error, index int, expected error) {
	require.Error(t, err)

	var txErr *solana.TransactionError
	require.ErrorAs(t, err, &txErr)
	require.NotNil(t, txErr.InstructionError())
	assert.Equal(t, index, txErr.InstructionError().Index)
	assert.ErrorIs(t, err, expected)
}
