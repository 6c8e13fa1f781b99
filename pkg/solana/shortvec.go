package solana

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

// encodeLen appends the compact-u16 encoding of n to w.
func encodeLen(w io.ByteWriter, n int) error {
	if n < 0 || n > math.MaxUint16 {
		return errors.Errorf("len exceeds %d", math.MaxUint16)
	}

	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n == 0 {
			return w.WriteByte(b)
		}

		if err := w.WriteByte(b | 0x80); err != nil {
			return err
		}
	}
}

// decodeLen reads a compact-u16 encoded length of at most 3 bytes.
func decodeLen(r io.ByteReader) (int, error) {
	var val int
	for i := 0; i < 3; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}

		val |= int(b&0x7f) << (i * 7)
		if b&0x80 == 0 {
			if val > math.MaxUint16 {
				return 0, errors.Errorf("len exceeds %d", math.MaxUint16)
			}
			return val, nil
		}
	}

	return 0, errors.New("invalid size (max 3 bytes)")
}
