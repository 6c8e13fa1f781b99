// Package binary contains the little endian field helpers shared by the
// account and instruction layouts. Put* helpers write at dst[*offset:] and
// assume the destination was sized by the caller. Get* helpers read at
// src[*offset:] and fail with ErrBufferTooSmall instead of reading past the
// end of the buffer.
package binary

import (
	"crypto/ed25519"
	"encoding/binary"
	"unicode/utf8"

	"github.com/pkg/errors"
)

const (
	// StringLengthPrefixSize is the size of the u32 length preceding string bytes.
	StringLengthPrefixSize = 4
)

var (
	ErrBufferTooSmall = errors.New("buffer too small for field")
	ErrInvalidUtf8    = errors.New("string field is not valid utf-8")
)

func PutKey32(dst []byte, src []byte, offset *int) {
	copy(dst[*offset:*offset+ed25519.PublicKeySize], src)
	*offset += ed25519.PublicKeySize
}

func PutOptionalKey32(dst []byte, src []byte, offset *int, optionSize int) {
	if len(src) > 0 {
		dst[*offset] = 1
		copy(dst[*offset+optionSize:], src)
	}

	*offset += optionSize + ed25519.PublicKeySize
}

func PutUint64(dst []byte, v uint64, offset *int) {
	binary.LittleEndian.PutUint64(dst[*offset:], v)
	*offset += 8
}

func PutInt64(dst []byte, v int64, offset *int) {
	PutUint64(dst, uint64(v), offset)
}

func PutUint32(dst []byte, v uint32, offset *int) {
	binary.LittleEndian.PutUint32(dst[*offset:], v)
	*offset += 4
}

func PutUint8(dst []byte, v uint8, offset *int) {
	dst[*offset] = v
	*offset += 1
}

func PutBool(dst []byte, v bool, offset *int) {
	var b uint8
	if v {
		b = 1
	}
	PutUint8(dst, b, offset)
}

func PutOptionalUint64(dst []byte, v *uint64, offset *int, optionSize int) {
	if v != nil {
		dst[*offset] = 1
		binary.LittleEndian.PutUint64(dst[*offset+optionSize:], *v)
	}
	*offset += optionSize + 8
}

// PutString writes a u32 length prefixed string.
func PutString(dst []byte, v string, offset *int) {
	PutUint32(dst, uint32(len(v)), offset)
	copy(dst[*offset:], v)
	*offset += len(v)
}

// StringSize is the encoded size of a length prefixed string.
func StringSize(v string) int {
	return StringLengthPrefixSize + len(v)
}

func GetKey32(src []byte, dst *ed25519.PublicKey, offset *int) error {
	if err := checkRemaining(src, *offset, ed25519.PublicKeySize); err != nil {
		return err
	}

	*dst = make([]byte, ed25519.PublicKeySize)
	copy(*dst, src[*offset:])
	*offset += ed25519.PublicKeySize
	return nil
}

func GetOptionalKey32(src []byte, dst *ed25519.PublicKey, offset *int, optionSize int) error {
	if err := checkRemaining(src, *offset, optionSize+ed25519.PublicKeySize); err != nil {
		return err
	}

	if src[*offset] == 1 {
		*dst = make([]byte, ed25519.PublicKeySize)
		copy(*dst, src[*offset+optionSize:])
	} else {
		*dst = nil
	}
	*offset += optionSize + ed25519.PublicKeySize
	return nil
}

func GetUint64(src []byte, dst *uint64, offset *int) error {
	if err := checkRemaining(src, *offset, 8); err != nil {
		return err
	}

	*dst = binary.LittleEndian.Uint64(src[*offset:])
	*offset += 8
	return nil
}

func GetInt64(src []byte, dst *int64, offset *int) error {
	var v uint64
	if err := GetUint64(src, &v, offset); err != nil {
		return err
	}
	*dst = int64(v)
	return nil
}

func GetUint32(src []byte, dst *uint32, offset *int) error {
	if err := checkRemaining(src, *offset, 4); err != nil {
		return err
	}

	*dst = binary.LittleEndian.Uint32(src[*offset:])
	*offset += 4
	return nil
}

func GetUint8(src []byte, dst *uint8, offset *int) error {
	if err := checkRemaining(src, *offset, 1); err != nil {
		return err
	}

	*dst = src[*offset]
	*offset += 1
	return nil
}

func GetBool(src []byte, dst *bool, offset *int) error {
	var v uint8
	if err := GetUint8(src, &v, offset); err != nil {
		return err
	}
	*dst = v != 0
	return nil
}

func GetOptionalUint64(src []byte, dst **uint64, offset *int, optionSize int) error {
	if err := checkRemaining(src, *offset, optionSize+8); err != nil {
		return err
	}

	if src[*offset] == 1 {
		val := binary.LittleEndian.Uint64(src[*offset+optionSize:])
		*dst = &val
	} else {
		*dst = nil
	}
	*offset += optionSize + 8
	return nil
}

// GetString reads a u32 length prefixed utf-8 string. The declared length
// must fit within the remaining bytes.
func GetString(src []byte, dst *string, offset *int) error {
	var length uint32
	if err := GetUint32(src, &length, offset); err != nil {
		return err
	}

	if err := checkRemaining(src, *offset, int(length)); err != nil {
		return err
	}

	raw := src[*offset : *offset+int(length)]
	if !utf8.Valid(raw) {
		return ErrInvalidUtf8
	}

	*dst = string(raw)
	*offset += int(length)
	return nil
}

func checkRemaining(src []byte, offset, size int) error {
	if offset < 0 || size < 0 || len(src)-offset < size {
		return errors.Wrapf(ErrBufferTooSmall, "need %d bytes at offset %d, have %d", size, offset, len(src)-offset)
	}
	return nil
}
