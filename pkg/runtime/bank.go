package runtime

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tixchain/ticket-server/pkg/cache"
	"github.com/tixchain/ticket-server/pkg/data/account"
	"github.com/tixchain/ticket-server/pkg/metrics"
	"github.com/tixchain/ticket-server/pkg/solana"
	"github.com/tixchain/ticket-server/pkg/solana/system"
	"github.com/tixchain/ticket-server/pkg/solana/token"
	sync_util "github.com/tixchain/ticket-server/pkg/sync"
)

const (
	metricsStructName = "runtime.bank"

	committedTransactionsMetricName = "Runtime/CommittedTransactions"
	failedTransactionsMetricName    = "Runtime/FailedTransactions"
	transactionLatencyMetricName    = "Runtime/TransactionLatency"
)

var genesisBlockhash = solana.Blockhash(sha256.Sum256([]byte("genesis")))

// Bank is a deterministic, single node ledger that executes Solana
// transactions against an account.Store.
//
// Transactions touching disjoint accounts execute concurrently. A transaction
// holds exclusive locks on its writable accounts and shared locks on its
// readonly accounts from load through commit, and its writes are committed
// atomically or not at all.
type Bank struct {
	log      *logrus.Entry
	conf     *conf
	accounts account.Store
	locks    *sync_util.StripedLock
	rent     system.Rent

	programsMu sync.RWMutex
	programs   map[string]Program

	// Serializes store commits so slots advance in commit order
	commitMu sync.Mutex

	stateMu     sync.Mutex
	slot        uint64
	blockhash   solana.Blockhash
	blockhashes map[solana.Blockhash]uint64
	processed   map[solana.Blockhash]map[solana.Signature]struct{}

	statuses *cache.Cache[solana.SignatureStatus]

	// Context for calls arriving through the solana.Client surface, which
	// carries none of its own
	clientCtx context.Context
}

// NewBank returns a Bank with the system, SPL token and associated token
// account programs registered.
func NewBank(accounts account.Store, configProvider ConfigProvider) *Bank {
	conf := configProvider()
	ctx := context.Background()

	b := &Bank{
		log:         logrus.StandardLogger().WithField("type", "runtime/bank"),
		conf:        conf,
		accounts:    accounts,
		locks:       sync_util.NewStripedLock(uint(conf.accountLockStripes.Get(ctx))),
		rent:        system.DefaultRent,
		programs:    make(map[string]Program),
		blockhash:   genesisBlockhash,
		blockhashes: map[solana.Blockhash]uint64{genesisBlockhash: 0},
		processed:   make(map[solana.Blockhash]map[solana.Signature]struct{}),
		statuses:    cache.New[solana.SignatureStatus]("runtime/signature_status", int(conf.statusCacheSize.Get(ctx))),
		clientCtx:   ctx,
	}

	b.RegisterProgram(system.ProgramKey[:], &systemProgram{})
	b.RegisterProgram(token.ProgramKey, &tokenProgram{})
	b.RegisterProgram(token.AssociatedTokenAccountProgramKey, &associatedTokenProgram{})

	return b
}

// SetMetricsProvider reports transaction metrics for calls made through the
// solana.Client methods to app. It must be called before the bank is shared.
func (b *Bank) SetMetricsProvider(app *newrelic.Application) {
	b.clientCtx = metrics.NewContext(context.Background(), app)
}

// RegisterProgram makes program executable at id, replacing any program
// previously registered there.
func (b *Bank) RegisterProgram(id ed25519.PublicKey, program Program) {
	b.programsMu.Lock()
	b.programs[string(id)] = program
	b.programsMu.Unlock()
}

func (b *Bank) getProgram(id ed25519.PublicKey) (Program, bool) {
	b.programsMu.RLock()
	defer b.programsMu.RUnlock()

	program, ok := b.programs[string(id)]
	return program, ok
}

// ProcessTransaction verifies, executes and commits tx. Transaction level
// failures are returned as a *solana.TransactionError. Failures before the
// fee is charged leave the ledger untouched, and failures after it commit
// only the fee. Any other error is an infrastructure failure.
func (b *Bank) ProcessTransaction(ctx context.Context, tx solana.Transaction) (sig solana.Signature, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "ProcessTransaction")
	defer tracer.End()

	start := time.Now()
	defer func() {
		tracer.OnError(err)

		if err != nil {
			metrics.RecordCount(ctx, failedTransactionsMetricName, 1)
			return
		}
		metrics.RecordCount(ctx, committedTransactionsMetricName, 1)
		metrics.RecordDuration(ctx, transactionLatencyMetricName, time.Since(start))
	}()

	if len(tx.Signatures) == 0 {
		return sig, solana.NewTransactionError(solana.TransactionErrorMissingSignatureForFee)
	}
	sig = tx.Signatures[0]

	log := b.log.WithFields(logrus.Fields{
		"method":    "ProcessTransaction",
		"signature": base58.Encode(sig[:]),
	})

	if err := tx.Message.Sanitize(); err != nil {
		log.WithError(err).Debug("transaction failed sanitization")
		return sig, solana.NewTransactionError(solana.TransactionErrorSanitizeFailure)
	}

	if err := tx.VerifySignatures(); err != nil {
		log.WithError(err).Debug("transaction failed signature verification")
		return sig, solana.NewTransactionError(solana.TransactionErrorSignatureFailure)
	}

	for _, compiled := range tx.Message.Instructions {
		if _, ok := b.getProgram(tx.Message.Accounts[compiled.ProgramIndex]); !ok {
			return sig, solana.NewTransactionError(solana.TransactionErrorProgramAccountNotFound)
		}
	}

	if err := b.reserveSignature(sig, tx.Message.RecentBlockhash); err != nil {
		return sig, err
	}

	var committed bool
	defer func() {
		if !committed {
			b.releaseSignature(sig, tx.Message.RecentBlockhash)
		}
	}()

	var writeKeys, readKeys [][]byte
	for i, key := range tx.Message.Accounts {
		if tx.Message.IsWritable(i) {
			writeKeys = append(writeKeys, key)
		} else {
			readKeys = append(readKeys, key)
		}
	}
	release := b.locks.Acquire(writeKeys, readKeys)
	defer release()

	loaded, err := b.loadAccounts(ctx, tx.Message.Accounts)
	if err != nil {
		log.WithError(err).Warn("failure loading transaction accounts")
		return sig, err
	}

	working := make(map[string]*Account, len(loaded))
	for _, acc := range loaded {
		working[string(acc.Address)] = acc.clone()
	}

	feePayer := loaded[0].clone()
	if err := b.chargeFee(ctx, feePayer, len(tx.Signatures)); err != nil {
		return sig, err
	}
	working[string(feePayer.Address)] = feePayer.clone()

	slot := b.GetCurrentSlot() + 1

	// Once the fee is payable the transaction lands: a failure during
	// execution still commits the fee and records the error.
	fail := func(txErr *solana.TransactionError) (solana.Signature, error) {
		if err := b.commit(ctx, slot, sig, []*account.Record{feePayer.toRecord()}, txErr); err != nil {
			log.WithError(err).Warn("failure committing transaction fee")
			return sig, err
		}
		committed = true
		return sig, txErr
	}

	ic := newInvokeContext(ctx, log, b, slot, working, int(b.conf.maxInvokeDepth.Get(ctx)))
	for i := range tx.Message.Instructions {
		ix, err := tx.Message.DecompileInstruction(i)
		if err != nil {
			return fail(solana.NewTransactionError(solana.TransactionErrorSanitizeFailure))
		}

		if err := ic.execute(ix); err != nil {
			log.WithError(err).WithField("instruction", i).Debug("instruction failed")

			txErr, marshalErr := solana.TransactionErrorFromInstructionError(&solana.InstructionError{
				Index: i,
				Err:   normalizeInstructionError(err),
			})
			if marshalErr != nil {
				return sig, errors.Wrap(marshalErr, "failed to build transaction error")
			}
			return fail(txErr)
		}
	}

	var records []*account.Record
	for i, key := range tx.Message.Accounts {
		if !tx.Message.IsWritable(i) {
			continue
		}

		acc := working[string(key)]
		if acc.Executable {
			continue
		}

		if acc.Lamports > 0 && !b.rent.IsExempt(acc.Lamports, uint64(len(acc.Data))) {
			log.WithField("account", acc.String()).Debug("account left below rent exemption")
			return fail(solana.NewTransactionError(solana.TransactionErrorInsufficientFundsForRent))
		}

		if !acc.equal(loaded[i]) {
			records = append(records, acc.toRecord())
		}
	}

	if err := b.commit(ctx, slot, sig, records, nil); err != nil {
		log.WithError(err).Warn("failure committing transaction")
		return sig, err
	}
	committed = true

	log.WithField("slot", slot).Trace("transaction committed")
	return sig, nil
}

func (b *Bank) loadAccounts(ctx context.Context, keys []ed25519.PublicKey) ([]*Account, error) {
	loaded := make([]*Account, len(keys))
	for i, key := range keys {
		if _, ok := b.getProgram(key); ok {
			loaded[i] = newProgramAccount(key)
			continue
		}

		record, err := b.accounts.Get(ctx, base58.Encode(key))
		if err == account.ErrAccountNotFound {
			loaded[i] = newEmptyAccount(key)
			continue
		} else if err != nil {
			return nil, errors.Wrapf(err, "failed to load account %s", base58.Encode(key))
		}

		loaded[i], err = fromRecord(record)
		if err != nil {
			return nil, err
		}
	}
	return loaded, nil
}

func (b *Bank) chargeFee(ctx context.Context, payer *Account, signatures int) error {
	if payer.IsEmpty() {
		return solana.NewTransactionError(solana.TransactionErrorAccountNotFound)
	}

	if !payer.IsOwnedBy(system.ProgramKey[:]) || len(payer.Data) > 0 {
		return solana.NewTransactionError(solana.TransactionErrorInvalidAccountForFee)
	}

	fee := b.conf.lamportsPerSignature.Get(ctx) * uint64(signatures)
	if payer.Lamports < fee {
		return solana.NewTransactionError(solana.TransactionErrorInsufficientFundsForFee)
	}

	payer.Lamports -= fee

	// A payer either pays itself out entirely or stays rent exempt.
	if payer.Lamports > 0 && !b.rent.IsExempt(payer.Lamports, uint64(len(payer.Data))) {
		return solana.NewTransactionError(solana.TransactionErrorInsufficientFundsForFee)
	}
	return nil
}

// commit writes records at slot and advances the bank to it. txErr is
// recorded as the outcome of sig, and is nil for successful transactions.
func (b *Bank) commit(ctx context.Context, slot uint64, sig solana.Signature, records []*account.Record, txErr *solana.TransactionError) error {
	b.commitMu.Lock()
	defer b.commitMu.Unlock()

	// Concurrent commits on disjoint accounts may have advanced the slot
	// since execution started.
	if current := b.GetCurrentSlot(); slot <= current {
		slot = current + 1
	}

	if err := b.accounts.Commit(ctx, slot, records...); err != nil {
		return errors.Wrap(err, "failed to commit accounts")
	}

	b.advance(slot)
	b.recordStatus(sig, slot, txErr)
	return nil
}

// WarpSlots advances the bank by n empty slots.
func (b *Bank) WarpSlots(n uint64) {
	b.commitMu.Lock()
	defer b.commitMu.Unlock()

	for i := uint64(0); i < n; i++ {
		b.advance(b.GetCurrentSlot() + 1)
	}
}

func (b *Bank) GetCurrentSlot() uint64 {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	return b.slot
}

func (b *Bank) advance(slot uint64) {
	maxAge := b.conf.maxBlockhashAge.Get(context.Background())

	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	var encodedSlot [8]byte
	binary.LittleEndian.PutUint64(encodedSlot[:], slot)

	hasher := sha256.New()
	hasher.Write(b.blockhash[:])
	hasher.Write(encodedSlot[:])
	copy(b.blockhash[:], hasher.Sum(nil))

	b.slot = slot
	b.blockhashes[b.blockhash] = slot

	for blockhash, createdAt := range b.blockhashes {
		if slot-createdAt > maxAge {
			delete(b.blockhashes, blockhash)
			delete(b.processed, blockhash)
		}
	}
}

func (b *Bank) reserveSignature(sig solana.Signature, blockhash solana.Blockhash) error {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	if _, ok := b.blockhashes[blockhash]; !ok {
		return solana.NewTransactionError(solana.TransactionErrorBlockhashNotFound)
	}

	signatures, ok := b.processed[blockhash]
	if !ok {
		signatures = make(map[solana.Signature]struct{})
		b.processed[blockhash] = signatures
	}

	if _, ok := signatures[sig]; ok {
		return solana.NewTransactionError(solana.TransactionErrorDuplicateSignature)
	}

	signatures[sig] = struct{}{}
	return nil
}

func (b *Bank) releaseSignature(sig solana.Signature, blockhash solana.Blockhash) {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	if signatures, ok := b.processed[blockhash]; ok {
		delete(signatures, sig)
	}
}

func (b *Bank) recordStatus(sig solana.Signature, slot uint64, txErr *solana.TransactionError) {
	status := solana.SignatureStatus{
		Slot:               slot,
		ErrorResult:        txErr,
		ConfirmationStatus: solana.CommitmentFinalized.Commitment,
	}

	if err := b.statuses.Insert(base58.Encode(sig[:]), status, 1); err != nil {
		b.log.WithError(err).Debug("signature status already recorded")
	}
}

// normalizeInstructionError reduces a program error to the value carried on
// the wire: a custom program error code or an instruction error key.
func normalizeInstructionError(err error) error {
	var custom solana.CustomError
	if errors.As(err, &custom) {
		return custom
	}

	var key solana.InstructionErrorKey
	if errors.As(err, &key) {
		return key
	}

	return solana.InstructionErrorGenericError
}
