package ticketing

import (
	"github.com/tixchain/ticket-server/pkg/solana"
)

// Program errors are returned as custom instruction errors, so they can be
// matched with errors.Is against a TransactionError from either a local bank
// or an RPC node.
const (
	ErrAccountNotFound solana.CustomError = iota + 6000
	ErrSoldOut
	ErrPdaCollision
	ErrUnauthorized
	ErrMalformedAccount
	ErrArithmeticOverflow
	ErrInvalidArgument
	ErrInvalidSeeds
	ErrInvalidInstructionData
	ErrEscrowInvariantViolated
)

var errorNames = map[solana.CustomError]string{
	ErrAccountNotFound:         "AccountNotFound",
	ErrSoldOut:                 "SoldOut",
	ErrPdaCollision:            "PdaCollision",
	ErrUnauthorized:            "Unauthorized",
	ErrMalformedAccount:        "MalformedAccount",
	ErrArithmeticOverflow:      "ArithmeticOverflow",
	ErrInvalidArgument:         "InvalidArgument",
	ErrInvalidSeeds:            "InvalidSeeds",
	ErrInvalidInstructionData:  "InvalidInstructionData",
	ErrEscrowInvariantViolated: "EscrowInvariantViolated",
}

// ErrorName returns the program's name for the code, and false for codes
// the program does not define.
func ErrorName(code solana.CustomError) (string, bool) {
	name, ok := errorNames[code]
	return name, ok
}
