package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/tixchain/ticket-server/pkg/data/account"
	"github.com/tixchain/ticket-server/pkg/database/query"
)

type store struct {
	db *sqlx.DB
}

// New returns a postgres backed account.Store.
func New(db *sql.DB) account.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Get implements account.Store.Get
func (s *store) Get(ctx context.Context, address string) (*account.Record, error) {
	model, err := dbGet(ctx, s.db, address)
	if err != nil {
		return nil, err
	}
	return fromAccountModel(model), nil
}

// GetAllByOwner implements account.Store.GetAllByOwner
func (s *store) GetAllByOwner(ctx context.Context, owner string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*account.Record, error) {
	models, err := dbGetAllByOwner(ctx, s.db, owner, cursor, limit, direction)
	if err != nil {
		return nil, err
	}

	res := make([]*account.Record, len(models))
	for i, model := range models {
		res[i] = fromAccountModel(model)
	}
	return res, nil
}

// Commit implements account.Store.Commit
func (s *store) Commit(ctx context.Context, slot uint64, records ...*account.Record) error {
	models := make([]*accountModel, len(records))
	closed := make([]bool, len(records))
	for i, record := range records {
		model, err := toAccountModel(record)
		if err != nil {
			return err
		}
		model.Slot = int64(slot)

		models[i] = model
		closed[i] = record.IsClosed()
	}

	if err := dbCommit(ctx, s.db, models, closed); err != nil {
		return err
	}

	for i, record := range records {
		if closed[i] {
			continue
		}
		fromAccountModel(models[i]).CopyTo(record)
	}
	return nil
}

// Count implements account.Store.Count
func (s *store) Count(ctx context.Context) (uint64, error) {
	return dbGetCount(ctx, s.db)
}
