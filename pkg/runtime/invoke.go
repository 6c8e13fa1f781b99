package runtime

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"math/bits"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tixchain/ticket-server/pkg/solana"
	"github.com/tixchain/ticket-server/pkg/solana/system"
)

// InvokeContext is the execution state of a single transaction. Programs use
// it to access the accounts of the executing instruction and to invoke other
// programs.
type InvokeContext struct {
	ctx  context.Context
	log  *logrus.Entry
	bank *Bank
	slot uint64

	accounts map[string]*Account
	stack    []*frame
	maxDepth int
}

type frame struct {
	program  ed25519.PublicKey
	signers  map[string]bool
	writable map[string]bool
	pre      map[string]*Account
}

func newInvokeContext(ctx context.Context, log *logrus.Entry, bank *Bank, slot uint64, accounts map[string]*Account, maxDepth int) *InvokeContext {
	return &InvokeContext{
		ctx:      ctx,
		log:      log,
		bank:     bank,
		slot:     slot,
		accounts: accounts,
		maxDepth: maxDepth,
	}
}

func (ic *InvokeContext) Context() context.Context {
	return ic.ctx
}

func (ic *InvokeContext) Log() *logrus.Entry {
	return ic.log
}

// Slot is the slot the transaction executes in.
func (ic *InvokeContext) Slot() uint64 {
	return ic.slot
}

func (ic *InvokeContext) Rent() system.Rent {
	return ic.bank.rent
}

// ProgramID is the id of the executing program.
func (ic *InvokeContext) ProgramID() ed25519.PublicKey {
	return ic.current().program
}

// Account returns the account at key, which must be referenced by the
// executing instruction.
func (ic *InvokeContext) Account(key ed25519.PublicKey) (*Account, error) {
	if _, ok := ic.current().pre[string(key)]; !ok {
		return nil, errors.Wrapf(solana.InstructionErrorMissingAccount, "account %s", base58.Encode(key))
	}
	return ic.accounts[string(key)], nil
}

// IsSigner reports whether key signed the executing instruction, either
// directly or as a program derived address of the invoking program.
func (ic *InvokeContext) IsSigner(key ed25519.PublicKey) bool {
	return ic.current().signers[string(key)]
}

// IsWritable reports whether the executing instruction may modify key.
func (ic *InvokeContext) IsWritable(key ed25519.PublicKey) bool {
	return ic.current().writable[string(key)]
}

// Invoke executes ix as a cross-program invocation from the executing
// program. Each entry of signerSeeds derives, under the executing program, an
// address that is treated as a signer of ix.
//
// The invoked instruction may only reference accounts available to the
// caller, and may not gain signer or writable privileges the caller lacks.
func (ic *InvokeContext) Invoke(ix solana.Instruction, signerSeeds ...[][]byte) error {
	caller := ic.current()

	derived := make(map[string]bool)
	for _, seeds := range signerSeeds {
		address, err := solana.CreateProgramAddress(caller.program, seeds...)
		if err != nil {
			return errors.Wrap(solana.InstructionErrorInvalidSeeds, err.Error())
		}
		derived[string(address)] = true
	}

	if _, ok := caller.pre[string(ix.Program)]; !ok {
		return errors.Wrapf(solana.InstructionErrorMissingAccount, "program %s", base58.Encode(ix.Program))
	}

	for _, meta := range ix.Accounts {
		key := string(meta.PublicKey)

		if _, ok := caller.pre[key]; !ok {
			return errors.Wrapf(solana.InstructionErrorMissingAccount, "account %s", base58.Encode(meta.PublicKey))
		}
		if meta.IsWritable && !caller.writable[key] {
			return errors.Wrapf(solana.InstructionErrorPrivilegeEscalation, "writable %s", base58.Encode(meta.PublicKey))
		}
		if meta.IsSigner && !caller.signers[key] && !derived[key] {
			return errors.Wrapf(solana.InstructionErrorPrivilegeEscalation, "signer %s", base58.Encode(meta.PublicKey))
		}
	}

	// Changes the caller made so far are checked against the caller's
	// privileges before the callee can touch the same accounts.
	if err := ic.verify(caller); err != nil {
		return err
	}
	ic.snapshot(caller)

	if err := ic.execute(ix); err != nil {
		return err
	}

	ic.snapshot(caller)
	return nil
}

func (ic *InvokeContext) current() *frame {
	return ic.stack[len(ic.stack)-1]
}

func (ic *InvokeContext) execute(ix solana.Instruction) error {
	if len(ic.stack) >= ic.maxDepth {
		return solana.InstructionErrorCallDepth
	}

	program, ok := ic.bank.getProgram(ix.Program)
	if !ok {
		return errors.Wrapf(solana.InstructionErrorUnsupportedProgramID, "program %s", base58.Encode(ix.Program))
	}

	// A program may call itself, but may not be re-entered through another
	// program.
	if len(ic.stack) > 0 && !bytes.Equal(ic.current().program, ix.Program) {
		for _, f := range ic.stack {
			if bytes.Equal(f.program, ix.Program) {
				return solana.InstructionErrorReentrancyNotAllowed
			}
		}
	}

	f := &frame{
		program:  ix.Program,
		signers:  make(map[string]bool),
		writable: make(map[string]bool),
		pre:      make(map[string]*Account),
	}
	f.pre[string(ix.Program)] = nil
	for _, meta := range ix.Accounts {
		key := string(meta.PublicKey)
		if _, ok := ic.accounts[key]; !ok {
			return errors.Wrapf(solana.InstructionErrorMissingAccount, "account %s", base58.Encode(meta.PublicKey))
		}

		f.pre[key] = nil
		if meta.IsSigner {
			f.signers[key] = true
		}
		if meta.IsWritable {
			f.writable[key] = true
		}
	}
	ic.snapshot(f)

	ic.stack = append(ic.stack, f)
	err := program.Execute(ic, ix)
	ic.stack = ic.stack[:len(ic.stack)-1]
	if err != nil {
		return err
	}

	return ic.verify(f)
}

func (ic *InvokeContext) snapshot(f *frame) {
	for key := range f.pre {
		f.pre[key] = ic.accounts[key].clone()
	}
}

// verify checks every change made to the frame's accounts since its last
// snapshot against the privileges of the frame's program.
func (ic *InvokeContext) verify(f *frame) error {
	var preHi, preLo, postHi, postLo, carry uint64

	for key, pre := range f.pre {
		post := ic.accounts[key]

		preLo, carry = bits.Add64(preLo, pre.Lamports, 0)
		preHi += carry
		postLo, carry = bits.Add64(postLo, post.Lamports, 0)
		postHi += carry

		if pre.equal(post) {
			continue
		}

		address := base58.Encode(post.Address)

		if pre.Executable {
			return errors.Wrapf(solana.InstructionErrorExecutableModified, "account %s", address)
		}

		if !f.writable[key] {
			if pre.Lamports != post.Lamports {
				return errors.Wrapf(solana.InstructionErrorReadonlyLamportChange, "account %s", address)
			}
			return errors.Wrapf(solana.InstructionErrorReadonlyDataModified, "account %s", address)
		}

		isOwner := bytes.Equal(pre.Owner, f.program)

		if !bytes.Equal(pre.Owner, post.Owner) {
			if !isOwner || !isZeroed(post.Data) {
				return errors.Wrapf(solana.InstructionErrorModifiedProgramID, "account %s", address)
			}
		}

		if post.Lamports < pre.Lamports && !isOwner {
			return errors.Wrapf(solana.InstructionErrorExternalAccountLamportSpend, "account %s", address)
		}

		if !isOwner && (len(pre.Data) != len(post.Data) || !bytes.Equal(pre.Data, post.Data)) {
			return errors.Wrapf(solana.InstructionErrorExternalAccountDataModified, "account %s", address)
		}
	}

	if preHi != postHi || preLo != postLo {
		return solana.InstructionErrorUnbalancedInstruction
	}
	return nil
}
