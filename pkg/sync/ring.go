package sync

import (
	"encoding/binary"
	"strconv"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

// ring is a consistent hash ring over stripe indexes. Each stripe owns
// virtualNodes points on the ring, and a key maps to the first point at or
// after its hash, wrapping around to the lowest point.
type ring struct {
	points *treemap.Map // int64 hash -> int stripe

	// Cached since treemap.Min is O(log n)
	first int
}

func newRing(stripes, virtualNodes uint) *ring {
	points := treemap.NewWith(utils.Int64Comparator)

	seed := make([]byte, 12)
	for stripe := uint(0); stripe < stripes; stripe++ {
		stripeHash, _ := murmur3.Sum128([]byte("stripe" + strconv.FormatUint(uint64(stripe), 10)))
		binary.LittleEndian.PutUint64(seed, stripeHash)

		for node := uint(0); node < virtualNodes; node++ {
			binary.LittleEndian.PutUint32(seed[8:], uint32(node))
			points.Put(hashKey(seed), int(stripe))
		}
	}

	r := &ring{points: points}
	if _, first := points.Min(); first != nil {
		r.first = first.(int)
	}
	return r
}

func (r *ring) stripe(key []byte) int {
	if _, stripe := r.points.Ceiling(hashKey(key)); stripe != nil {
		return stripe.(int)
	}
	return r.first
}

func hashKey(key []byte) int64 {
	h, _ := murmur3.Sum128(key)
	return int64(h)
}
