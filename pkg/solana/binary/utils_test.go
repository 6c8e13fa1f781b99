package binary

import (
	"crypto/ed25519"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedWidth_RoundTrip(t *testing.T) {
	key, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	buf := make([]byte, 32+8+8+4+1+1)

	var offset int
	PutKey32(buf, key, &offset)
	PutUint64(buf, math.MaxUint64, &offset)
	PutInt64(buf, -1700000000, &offset)
	PutUint32(buf, 42, &offset)
	PutUint8(buf, 254, &offset)
	PutBool(buf, true, &offset)
	require.Equal(t, len(buf), offset)

	var actualKey ed25519.PublicKey
	var u64 uint64
	var i64 int64
	var u32 uint32
	var u8 uint8
	var b bool

	offset = 0
	require.NoError(t, GetKey32(buf, &actualKey, &offset))
	require.NoError(t, GetUint64(buf, &u64, &offset))
	require.NoError(t, GetInt64(buf, &i64, &offset))
	require.NoError(t, GetUint32(buf, &u32, &offset))
	require.NoError(t, GetUint8(buf, &u8, &offset))
	require.NoError(t, GetBool(buf, &b, &offset))

	assert.EqualValues(t, key, actualKey)
	assert.EqualValues(t, uint64(math.MaxUint64), u64)
	assert.EqualValues(t, -1700000000, i64)
	assert.EqualValues(t, 42, u32)
	assert.EqualValues(t, 254, u8)
	assert.True(t, b)
	assert.Equal(t, len(buf), offset)
}

func TestLittleEndianLayout(t *testing.T) {
	buf := make([]byte, 4)

	var offset int
	PutUint32(buf, 0x01020304, &offset)
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, buf)
}

func TestString(t *testing.T) {
	value := "Main Stage ☉"
	buf := make([]byte, StringSize(value)+3)

	var offset int
	PutString(buf, value, &offset)
	assert.Equal(t, StringSize(value), offset)
	assert.Equal(t, byte(len(value)), buf[0])

	var actual string
	offset = 0
	require.NoError(t, GetString(buf, &actual, &offset))
	assert.Equal(t, value, actual)
	assert.Equal(t, StringSize(value), offset)
}

func TestString_Empty(t *testing.T) {
	buf := make([]byte, StringLengthPrefixSize)

	var actual string
	var offset int
	require.NoError(t, GetString(buf, &actual, &offset))
	assert.Empty(t, actual)
}

func TestGet_ShortBuffers(t *testing.T) {
	var offset int
	var u64 uint64
	err := GetUint64(make([]byte, 7), &u64, &offset)
	assert.True(t, errors.Is(err, ErrBufferTooSmall))
	assert.Equal(t, 0, offset)

	var key ed25519.PublicKey
	err = GetKey32(make([]byte, 31), &key, &offset)
	assert.True(t, errors.Is(err, ErrBufferTooSmall))

	var u32 uint32
	offset = 2
	err = GetUint32(make([]byte, 5), &u32, &offset)
	assert.True(t, errors.Is(err, ErrBufferTooSmall))

	var u8 uint8
	offset = 0
	err = GetUint8(nil, &u8, &offset)
	assert.True(t, errors.Is(err, ErrBufferTooSmall))
}

func TestGetString_DeclaredLengthExceedsBuffer(t *testing.T) {
	buf := make([]byte, 8)
	var offset int
	PutUint32(buf, 5, &offset)

	var actual string
	offset = 0
	err := GetString(buf, &actual, &offset)
	assert.True(t, errors.Is(err, ErrBufferTooSmall))
	assert.Empty(t, actual)

	offset = 0
	PutUint32(buf, math.MaxUint32, &offset)
	offset = 0
	err = GetString(buf, &actual, &offset)
	assert.True(t, errors.Is(err, ErrBufferTooSmall))
}

func TestGetString_InvalidUtf8(t *testing.T) {
	buf := []byte{2, 0, 0, 0, 0xff, 0xfe}

	var actual string
	var offset int
	assert.Equal(t, ErrInvalidUtf8, GetString(buf, &actual, &offset))
}

func TestOptionalFields(t *testing.T) {
	key, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	value := uint64(1234)

	buf := make([]byte, 2*(4+32)+2*(4+8))
	var offset int
	PutOptionalKey32(buf, key, &offset, 4)
	PutOptionalKey32(buf, nil, &offset, 4)
	PutOptionalUint64(buf, &value, &offset, 4)
	PutOptionalUint64(buf, nil, &offset, 4)
	require.Equal(t, len(buf), offset)

	var set, unset ed25519.PublicKey
	var setValue, unsetValue *uint64
	offset = 0
	require.NoError(t, GetOptionalKey32(buf, &set, &offset, 4))
	require.NoError(t, GetOptionalKey32(buf, &unset, &offset, 4))
	require.NoError(t, GetOptionalUint64(buf, &setValue, &offset, 4))
	require.NoError(t, GetOptionalUint64(buf, &unsetValue, &offset, 4))

	assert.EqualValues(t, key, set)
	assert.Nil(t, unset)
	require.NotNil(t, setValue)
	assert.EqualValues(t, 1234, *setValue)
	assert.Nil(t, unsetValue)
}
