package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tixchain/ticket-server/pkg/data/account"

	pgutil "github.com/tixchain/ticket-server/pkg/database/postgres"
	q "github.com/tixchain/ticket-server/pkg/database/query"
)

const (
	accountTableName = "ticketing__core_account"

	allColumns = `id, address, owner, lamports, data, executable, slot, created_at`
)

type accountModel struct {
	Id         sql.NullInt64 `db:"id"`
	Address    string        `db:"address"`
	Owner      string        `db:"owner"`
	Lamports   int64         `db:"lamports"`
	Data       []byte        `db:"data"`
	Executable bool          `db:"executable"`
	Slot       int64         `db:"slot"`
	CreatedAt  time.Time     `db:"created_at"`
}

func toAccountModel(obj *account.Record) (*accountModel, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	data := obj.Data
	if data == nil {
		data = []byte{}
	}

	createdAt := obj.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return &accountModel{
		Id:         sql.NullInt64{Int64: int64(obj.Id), Valid: true},
		Address:    obj.Address,
		Owner:      obj.Owner,
		Lamports:   int64(obj.Lamports),
		Data:       data,
		Executable: obj.Executable,
		Slot:       int64(obj.Slot),
		CreatedAt:  createdAt.UTC(),
	}, nil
}

func fromAccountModel(obj *accountModel) *account.Record {
	return &account.Record{
		Id:         uint64(obj.Id.Int64),
		Address:    obj.Address,
		Owner:      obj.Owner,
		Lamports:   uint64(obj.Lamports),
		Data:       obj.Data,
		Executable: obj.Executable,
		Slot:       uint64(obj.Slot),
		CreatedAt:  obj.CreatedAt,
	}
}

func (m *accountModel) dbUpsert(ctx context.Context, tx *sqlx.Tx) error {
	query := `INSERT INTO ` + accountTableName + `
		(address, owner, lamports, data, executable, slot, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (address)
		DO UPDATE
			SET owner = $2, lamports = $3, data = $4, executable = $5, slot = $6
			WHERE ` + accountTableName + `.address = $1
		RETURNING
			` + allColumns

	err := tx.QueryRowxContext(
		ctx,
		query,
		m.Address,
		m.Owner,
		m.Lamports,
		m.Data,
		m.Executable,
		m.Slot,
		m.CreatedAt,
	).StructScan(m)

	return pgutil.CheckNoRows(err, account.ErrAccountNotFound)
}

func (m *accountModel) dbDelete(ctx context.Context, tx *sqlx.Tx) error {
	query := `DELETE FROM ` + accountTableName + ` WHERE address = $1`
	_, err := tx.ExecContext(ctx, query, m.Address)
	return err
}

func dbCommit(ctx context.Context, db *sqlx.DB, models []*accountModel, closed []bool) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		for i, model := range models {
			var err error
			if closed[i] {
				err = model.dbDelete(ctx, tx)
			} else {
				err = model.dbUpsert(ctx, tx)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func dbGet(ctx context.Context, db *sqlx.DB, address string) (*accountModel, error) {
	res := &accountModel{}

	query := `SELECT ` + allColumns + `
		FROM ` + accountTableName + `
		WHERE address = $1
	`

	err := db.GetContext(ctx, res, query, address)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, account.ErrAccountNotFound)
	}
	return res, nil
}

func dbGetAllByOwner(ctx context.Context, db *sqlx.DB, owner string, cursor q.Cursor, limit uint64, direction q.Ordering) ([]*accountModel, error) {
	res := []*accountModel{}

	query, opts := q.PaginateQuery(
		`SELECT `+allColumns+` FROM `+accountTableName+` WHERE (owner = $1)`,
		[]interface{}{owner},
		cursor,
		limit,
		direction,
	)

	err := db.SelectContext(ctx, &res, query, opts...)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, account.ErrAccountNotFound)
	}

	if len(res) == 0 {
		return nil, account.ErrAccountNotFound
	}
	return res, nil
}

func dbGetCount(ctx context.Context, db *sqlx.DB) (uint64, error) {
	var res uint64

	query := `SELECT COUNT(*) FROM ` + accountTableName
	err := db.GetContext(ctx, &res, query)
	if err != nil {
		return 0, err
	}

	return res, nil
}
