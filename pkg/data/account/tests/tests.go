package tests

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tixchain/ticket-server/pkg/data/account"
	"github.com/tixchain/ticket-server/pkg/database/query"
)

func RunTests(t *testing.T, s account.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s account.Store){
		testRoundTrip,
		testCommitUpdate,
		testCommitClose,
		testCommitIsAtomic,
		testGetAllByOwner,
		testCount,
	} {
		tf(t, s)
		teardown()
	}
}

func testRoundTrip(t *testing.T, s account.Store) {
	t.Run("testRoundTrip", func(t *testing.T) {
		ctx := context.Background()

		actual, err := s.Get(ctx, "test_address")
		assert.Equal(t, account.ErrAccountNotFound, err)
		assert.Nil(t, actual)

		expected := &account.Record{
			Address:  "test_address",
			Owner:    "test_owner",
			Lamports: 1_000_000,
			Data:     []byte{1, 2, 3, 4},
		}
		require.NoError(t, s.Commit(ctx, 10, expected))
		assert.True(t, expected.Id > 0)
		assert.EqualValues(t, 10, expected.Slot)
		assert.False(t, expected.CreatedAt.IsZero())

		actual, err = s.Get(ctx, "test_address")
		require.NoError(t, err)
		assertEquivalentRecords(t, expected, actual)

		// Mutating a returned record must not affect the stored account
		actual.Data[0] = 0xff
		actual, err = s.Get(ctx, "test_address")
		require.NoError(t, err)
		assert.EqualValues(t, 1, actual.Data[0])
	})
}

func testCommitUpdate(t *testing.T, s account.Store) {
	t.Run("testCommitUpdate", func(t *testing.T) {
		ctx := context.Background()

		record := &account.Record{
			Address:  "test_address",
			Owner:    "system",
			Lamports: 890_880,
		}
		require.NoError(t, s.Commit(ctx, 1, record))
		id := record.Id

		record.Owner = "program"
		record.Lamports = 2_000_000
		record.Data = make([]byte, 64)
		record.Data[63] = 7
		require.NoError(t, s.Commit(ctx, 2, record))
		assert.Equal(t, id, record.Id)

		actual, err := s.Get(ctx, "test_address")
		require.NoError(t, err)
		assert.Equal(t, "program", actual.Owner)
		assert.EqualValues(t, 2_000_000, actual.Lamports)
		assert.Len(t, actual.Data, 64)
		assert.EqualValues(t, 7, actual.Data[63])
		assert.EqualValues(t, 2, actual.Slot)
		assert.Equal(t, id, actual.Id)
	})
}

func testCommitClose(t *testing.T, s account.Store) {
	t.Run("testCommitClose", func(t *testing.T) {
		ctx := context.Background()

		record := &account.Record{
			Address:  "test_address",
			Owner:    "program",
			Lamports: 1_000,
			Data:     []byte{1},
		}
		require.NoError(t, s.Commit(ctx, 1, record))

		record.Lamports = 0
		require.NoError(t, s.Commit(ctx, 2, record))

		_, err := s.Get(ctx, "test_address")
		assert.Equal(t, account.ErrAccountNotFound, err)

		// Closing an account that doesn't exist is a no-op
		require.NoError(t, s.Commit(ctx, 3, &account.Record{
			Address: "missing_address",
			Owner:   "system",
		}))

		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)
	})
}

func testCommitIsAtomic(t *testing.T, s account.Store) {
	t.Run("testCommitIsAtomic", func(t *testing.T) {
		ctx := context.Background()

		existing := &account.Record{
			Address:  "existing",
			Owner:    "program",
			Lamports: 100,
			Data:     []byte{1},
		}
		require.NoError(t, s.Commit(ctx, 1, existing))

		err := s.Commit(
			ctx,
			2,
			&account.Record{Address: "existing", Owner: "program", Lamports: 50, Data: []byte{2}},
			&account.Record{Address: "new", Owner: "program", Lamports: 50},
			&account.Record{Address: "invalid", Lamports: 1},
		)
		require.Error(t, err)

		actual, err := s.Get(ctx, "existing")
		require.NoError(t, err)
		assertEquivalentRecords(t, existing, actual)

		_, err = s.Get(ctx, "new")
		assert.Equal(t, account.ErrAccountNotFound, err)
	})
}

func testGetAllByOwner(t *testing.T, s account.Store) {
	t.Run("testGetAllByOwner", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetAllByOwner(ctx, "program", nil, 10, query.Ascending)
		assert.Equal(t, account.ErrAccountNotFound, err)

		var expected []*account.Record
		for i := 0; i < 10; i++ {
			owner := "program"
			if i%2 == 1 {
				owner = "other"
			}

			record := &account.Record{
				Address:  fmt.Sprintf("address%d", i),
				Owner:    owner,
				Lamports: uint64(i + 1),
				Data:     []byte{byte(i)},
			}
			require.NoError(t, s.Commit(ctx, uint64(i), record))

			if owner == "program" {
				expected = append(expected, record)
			}
		}

		actual, err := s.GetAllByOwner(ctx, "program", nil, 0, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, len(expected))
		for i := range expected {
			assertEquivalentRecords(t, expected[i], actual[i])
		}

		actual, err = s.GetAllByOwner(ctx, "program", nil, 2, query.Descending)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assert.Equal(t, expected[4].Address, actual[0].Address)
		assert.Equal(t, expected[3].Address, actual[1].Address)

		actual, err = s.GetAllByOwner(ctx, "program", query.ToCursor(expected[1].Id), 2, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assert.Equal(t, expected[2].Address, actual[0].Address)
		assert.Equal(t, expected[3].Address, actual[1].Address)

		_, err = s.GetAllByOwner(ctx, "program", query.ToCursor(expected[4].Id), 2, query.Ascending)
		assert.Equal(t, account.ErrAccountNotFound, err)
	})
}

func testCount(t *testing.T, s account.Store) {
	t.Run("testCount", func(t *testing.T) {
		ctx := context.Background()

		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)

		for i := 0; i < 5; i++ {
			require.NoError(t, s.Commit(ctx, 1, &account.Record{
				Address:  fmt.Sprintf("address%d", i),
				Owner:    "owner",
				Lamports: 1,
			}))
		}

		count, err = s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 5, count)
	})
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *account.Record) {
	assert.Equal(t, obj1.Id, obj2.Id)
	assert.Equal(t, obj1.Address, obj2.Address)
	assert.Equal(t, obj1.Owner, obj2.Owner)
	assert.Equal(t, obj1.Lamports, obj2.Lamports)
	assert.Equal(t, obj1.Data, obj2.Data)
	assert.Equal(t, obj1.Executable, obj2.Executable)
	assert.Equal(t, obj1.Slot, obj2.Slot)
}
