package ticketing

import (
	"bytes"
	"encoding/binary"
)

const discriminatorSize = 8

func putDiscriminator(dst, discriminator []byte, offset *int) {
	copy(dst[*offset:], discriminator)
	*offset += discriminatorSize
}

func hasDiscriminator(data, discriminator []byte) bool {
	return len(data) >= discriminatorSize && bytes.Equal(data[:discriminatorSize], discriminator)
}

func nonceSeed(nonce uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, nonce)
	return b
}

func ticketIndexSeed(index uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, index)
	return b
}
