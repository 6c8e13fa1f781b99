package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tixchain/ticket-server/pkg/data/account"
	"github.com/tixchain/ticket-server/pkg/database/query"
)

type store struct {
	mu      sync.Mutex
	records map[string]*account.Record
	last    uint64
}

type ById []*account.Record

func (a ById) Len() int           { return len(a) }
func (a ById) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ById) Less(i, j int) bool { return a[i].Id < a[j].Id }

func New() account.Store {
	return &store{
		records: make(map[string]*account.Record),
	}
}

func (s *store) reset() {
	s.mu.Lock()
	s.records = make(map[string]*account.Record)
	s.last = 0
	s.mu.Unlock()
}

// Get implements account.Store.Get
func (s *store) Get(_ context.Context, address string) (*account.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.records[address]
	if !ok {
		return nil, account.ErrAccountNotFound
	}

	cloned := item.Clone()
	return &cloned, nil
}

// GetAllByOwner implements account.Store.GetAllByOwner
func (s *store) GetAllByOwner(_ context.Context, owner string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*account.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []*account.Record
	for _, item := range s.records {
		if item.Owner == owner {
			items = append(items, item)
		}
	}
	sort.Sort(ById(items))

	res := s.filter(items, cursor, limit, direction)
	if len(res) == 0 {
		return nil, account.ErrAccountNotFound
	}
	return res, nil
}

func (s *store) filter(items []*account.Record, cursor query.Cursor, limit uint64, direction query.Ordering) []*account.Record {
	var start uint64
	if direction == query.Descending {
		start = s.last + 1
	}
	if len(cursor) > 0 {
		start = cursor.ToUint64()
	}

	var res []*account.Record
	for _, item := range items {
		if item.Id > start && direction == query.Ascending {
			cloned := item.Clone()
			res = append(res, &cloned)
		}
		if item.Id < start && direction == query.Descending {
			cloned := item.Clone()
			res = append(res, &cloned)
		}
	}

	if direction == query.Descending {
		for left, right := 0, len(res)-1; left < right; left, right = left+1, right-1 {
			res[left], res[right] = res[right], res[left]
		}
	}

	if limit > 0 && uint64(len(res)) > limit {
		return res[:limit]
	}
	return res
}

// Commit implements account.Store.Commit
func (s *store) Commit(_ context.Context, slot uint64, records ...*account.Record) error {
	for _, record := range records {
		if err := record.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range records {
		if record.IsClosed() {
			delete(s.records, record.Address)
			continue
		}

		item, ok := s.records[record.Address]
		if !ok {
			s.last++
			item = &account.Record{
				Id:        s.last,
				Address:   record.Address,
				CreatedAt: time.Now(),
			}
			s.records[record.Address] = item
		}

		item.Owner = record.Owner
		item.Lamports = record.Lamports
		item.Data = make([]byte, len(record.Data))
		copy(item.Data, record.Data)
		item.Executable = record.Executable
		item.Slot = slot

		item.CopyTo(record)
	}

	return nil
}

// Count implements account.Store.Count
func (s *store) Count(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return uint64(len(s.records)), nil
}
