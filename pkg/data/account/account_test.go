package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Validate(t *testing.T) {
	valid := Record{
		Address:  "address",
		Owner:    "owner",
		Lamports: 1,
	}
	require.NoError(t, valid.Validate())

	for _, invalid := range []Record{
		{Owner: "owner", Lamports: 1},
		{Address: "address", Lamports: 1},
		{Address: "address", Owner: "owner", Lamports: 1 << 63},
	} {
		assert.Error(t, invalid.Validate())
	}
}

func TestRecord_CloneIsDeep(t *testing.T) {
	original := Record{
		Address:  "address",
		Owner:    "owner",
		Lamports: 10,
		Data:     []byte{1, 2, 3},
	}

	cloned := original.Clone()
	cloned.Data[0] = 9
	assert.EqualValues(t, 1, original.Data[0])

	var copied Record
	original.CopyTo(&copied)
	copied.Data[1] = 9
	assert.EqualValues(t, 2, original.Data[1])
	assert.Equal(t, original.Address, copied.Address)
	assert.True(t, (&Record{}).IsClosed())
}
