// Package query holds the pagination primitives shared by store
// implementations.
package query

import (
	"encoding/binary"
	"strconv"
)

// Cursor is an opaque position in a result set. Stores encode the record id as
// a big-endian uint64, so cursors sort the same way ids do.
type Cursor []byte

func ToCursor(id uint64) Cursor {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, id)
	return b
}

// ToUint64 decodes the record id, treating an empty cursor as zero.
func (c Cursor) ToUint64() uint64 {
	if len(c) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(c)
}

// Ordering is the direction in which records are returned.
type Ordering uint

const (
	Ascending Ordering = iota
	Descending
)

// PaginateQuery appends cursor, ordering and limit clauses to a query whose
// WHERE conditions are wrapped in parentheses, numbering new placeholders
// after args:
//
//	"SELECT ... WHERE (owner = $1)" -> "SELECT ... WHERE (owner = $1) AND id > $2 ORDER BY id ASC LIMIT $3"
func PaginateQuery(query string, args []interface{}, cursor Cursor, limit uint64, direction Ordering) (string, []interface{}) {
	if len(cursor) > 0 {
		comparison := " AND id > $"
		if direction == Descending {
			comparison = " AND id < $"
		}

		args = append(args, cursor.ToUint64())
		query += comparison + strconv.Itoa(len(args))
	}

	if direction == Descending {
		query += " ORDER BY id DESC"
	} else {
		query += " ORDER BY id ASC"
	}

	if limit > 0 {
		args = append(args, limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	return query, args
}
