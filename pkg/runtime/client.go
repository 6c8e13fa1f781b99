package runtime

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/tixchain/ticket-server/pkg/data/account"
	"github.com/tixchain/ticket-server/pkg/database/query"
	"github.com/tixchain/ticket-server/pkg/solana"
	"github.com/tixchain/ticket-server/pkg/solana/system"
)

const programAccountsPageSize = 1000

var _ solana.Client = (*Bank)(nil)

// GetAccountInfo implements solana.Client.GetAccountInfo
func (b *Bank) GetAccountInfo(key ed25519.PublicKey, _ solana.Commitment) (solana.AccountInfo, error) {
	if _, ok := b.getProgram(key); ok {
		acc := newProgramAccount(key)
		return solana.AccountInfo{
			Owner:      acc.Owner,
			Lamports:   acc.Lamports,
			Executable: true,
		}, nil
	}

	record, err := b.accounts.Get(context.Background(), base58.Encode(key))
	if err == account.ErrAccountNotFound {
		return solana.AccountInfo{}, solana.ErrNoAccountInfo
	} else if err != nil {
		return solana.AccountInfo{}, err
	}

	acc, err := fromRecord(record)
	if err != nil {
		return solana.AccountInfo{}, err
	}

	return solana.AccountInfo{
		Data:       acc.Data,
		Owner:      acc.Owner,
		Lamports:   acc.Lamports,
		Executable: acc.Executable,
	}, nil
}

// GetBalance implements solana.Client.GetBalance
func (b *Bank) GetBalance(key ed25519.PublicKey) (uint64, error) {
	record, err := b.accounts.Get(context.Background(), base58.Encode(key))
	if err == account.ErrAccountNotFound {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return record.Lamports, nil
}

// GetLatestBlockhash implements solana.Client.GetLatestBlockhash
func (b *Bank) GetLatestBlockhash() (solana.Blockhash, error) {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	return b.blockhash, nil
}

// GetMinimumBalanceForRentExemption implements solana.Client.GetMinimumBalanceForRentExemption
func (b *Bank) GetMinimumBalanceForRentExemption(size uint64) (uint64, error) {
	return b.rent.MinimumBalance(size), nil
}

// GetProgramAccounts implements solana.Client.GetProgramAccounts. Accounts are
// returned in creation order; when filterValue is set, only accounts whose
// data holds it at offset are returned.
func (b *Bank) GetProgramAccounts(program ed25519.PublicKey, offset uint, filterValue []byte) ([]solana.KeyedAccountInfo, error) {
	ctx := context.Background()

	var res []solana.KeyedAccountInfo
	var cursor query.Cursor
	for {
		records, err := b.accounts.GetAllByOwner(ctx, base58.Encode(program), cursor, programAccountsPageSize, query.Ascending)
		if err == account.ErrAccountNotFound {
			break
		} else if err != nil {
			return nil, errors.Wrap(err, "failed to scan program accounts")
		}

		for _, record := range records {
			if !matchesFilter(record.Data, offset, filterValue) {
				continue
			}

			acc, err := fromRecord(record)
			if err != nil {
				return nil, err
			}

			res = append(res, solana.KeyedAccountInfo{
				PublicKey: acc.Address,
				AccountInfo: solana.AccountInfo{
					Data:       acc.Data,
					Owner:      acc.Owner,
					Lamports:   acc.Lamports,
					Executable: acc.Executable,
				},
			})
		}

		if len(records) < programAccountsPageSize {
			break
		}
		cursor = query.ToCursor(records[len(records)-1].Id)
	}

	return res, nil
}

func matchesFilter(data []byte, offset uint, filterValue []byte) bool {
	if len(filterValue) == 0 {
		return true
	}
	if uint(len(data)) < offset+uint(len(filterValue)) {
		return false
	}
	return bytes.Equal(data[offset:offset+uint(len(filterValue))], filterValue)
}

// GetSignatureStatus implements solana.Client.GetSignatureStatus
func (b *Bank) GetSignatureStatus(sig solana.Signature, _ solana.Commitment) (*solana.SignatureStatus, error) {
	status, ok := b.statuses.Retrieve(base58.Encode(sig[:]))
	if !ok {
		return nil, solana.ErrSignatureNotFound
	}
	return &status, nil
}

// GetSlot implements solana.Client.GetSlot
func (b *Bank) GetSlot(_ solana.Commitment) (uint64, error) {
	return b.GetCurrentSlot(), nil
}

// RequestAirdrop implements solana.Client.RequestAirdrop by crediting the
// account directly in its own slot.
func (b *Bank) RequestAirdrop(key ed25519.PublicKey, lamports uint64, _ solana.Commitment) (solana.Signature, error) {
	ctx := context.Background()

	var sig solana.Signature

	release := b.locks.Acquire([][]byte{key}, nil)
	defer release()

	loaded, err := b.loadAccounts(ctx, []ed25519.PublicKey{key})
	if err != nil {
		return sig, err
	}

	acc := loaded[0]
	if acc.Executable {
		return sig, errors.New("cannot airdrop to a program account")
	}

	credited := acc.Lamports + lamports
	if credited < acc.Lamports {
		return sig, errors.New("airdrop overflows account balance")
	}
	if !b.rent.IsExempt(credited, uint64(len(acc.Data))) {
		return sig, errors.Errorf("airdrop leaves account below rent exemption of %d lamports", b.rent.MinimumBalance(uint64(len(acc.Data))))
	}
	acc.Lamports = credited

	var encodedLamports [8]byte
	binary.LittleEndian.PutUint64(encodedLamports[:], lamports)
	blockhash, _ := b.GetLatestBlockhash()

	hasher := sha256.New()
	hasher.Write(system.ProgramKey[:])
	hasher.Write(key)
	hasher.Write(encodedLamports[:])
	hasher.Write(blockhash[:])
	copy(sig[:sha256.Size], hasher.Sum(nil))
	copy(sig[sha256.Size:], blockhash[:])

	if err := b.commit(ctx, b.GetCurrentSlot()+1, sig, []*account.Record{acc.toRecord()}, nil); err != nil {
		return sig, err
	}
	return sig, nil
}

// SubmitTransaction implements solana.Client.SubmitTransaction
func (b *Bank) SubmitTransaction(tx solana.Transaction, _ solana.Commitment) (solana.Signature, error) {
	return b.ProcessTransaction(b.clientCtx, tx)
}
