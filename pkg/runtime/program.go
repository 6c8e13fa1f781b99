package runtime

import (
	"github.com/tixchain/ticket-server/pkg/solana"
)

// Program executes the instructions addressed to its program id.
//
// Errors returned by Execute abort the whole transaction. Returning a
// solana.CustomError (optionally wrapped) surfaces it to the submitter as
// {"InstructionError": [index, {"Custom": code}]}.
type Program interface {
	Execute(ic *InvokeContext, ix solana.Instruction) error
}

// ProgramFunc adapts an ordinary function to a Program.
type ProgramFunc func(ic *InvokeContext, ix solana.Instruction) error

func (f ProgramFunc) Execute(ic *InvokeContext, ix solana.Instruction) error {
	return f(ic, ix)
}
