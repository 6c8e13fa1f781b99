package relay

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tixchain/ticket-server/pkg/solana"
	ticketing_api "github.com/tixchain/ticket-server/pkg/solana/ticketing"
)

func TestHandleErrorInWebContext_ProgramErrors(t *testing.T) {
	txErr, err := solana.TransactionErrorFromInstructionError(&solana.InstructionError{
		Index: 1,
		Err:   ticketing_api.ErrSoldOut,
	})
	require.NoError(t, err)

	status, publicErr := HandleErrorInWebContext(errors.Wrap(txErr, "failed to submit"))
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	var programErr *ProgramError
	require.True(t, errors.As(publicErr, &programErr))
	assert.Equal(t, "SoldOut", programErr.Name)
	assert.Equal(t, ticketing_api.ErrSoldOut, programErr.Code)
	assert.Equal(t, 1, programErr.Instruction)

	body := NewGenericApiFailureResponseBody(publicErr)
	assert.Equal(t, "SoldOut", body[programErrorJsonKey])
	assert.Contains(t, body[errorJsonKey], "SoldOut")

	// Errors outside the program's range keep the transaction error as is.
	txErr, err = solana.TransactionErrorFromInstructionError(&solana.InstructionError{
		Index: 0,
		Err:   solana.CustomError(1),
	})
	require.NoError(t, err)

	status, publicErr = HandleErrorInWebContext(txErr)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, txErr, publicErr)
	assert.NotContains(t, NewGenericApiFailureResponseBody(publicErr), programErrorJsonKey)

	txErr = solana.NewTransactionError(solana.TransactionErrorInsufficientFundsForFee)
	status, publicErr = HandleErrorInWebContext(txErr)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, txErr, publicErr)
}
