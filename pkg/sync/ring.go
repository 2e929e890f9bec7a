package sync

import (
	"encoding/binary"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

// ring consistently hashes keys onto a fixed number of stripes. Each stripe
// is placed on the ring at several points so keys spread evenly.
type ring struct {
	points *treemap.Map

	// first is the stripe at the lowest point, which keys hashing past the
	// highest point wrap around to.
	first int
}

func newRing(stripes, pointsPerStripe uint) *ring {
	points := treemap.NewWith(utils.Int64Comparator)

	seed := make([]byte, 8)
	index := make([]byte, 4)
	for stripe := 0; stripe < int(stripes); stripe++ {
		binary.LittleEndian.PutUint64(seed, uint64(stripe))
		stripeHash, _ := murmur3.Sum128(seed)
		binary.LittleEndian.PutUint64(seed, stripeHash)

		for i := 0; i < int(pointsPerStripe); i++ {
			binary.LittleEndian.PutUint32(index, uint32(i))

			hasher := murmur3.New128()
			hasher.Write(seed)
			hasher.Write(index)
			point, _ := hasher.Sum128()
			points.Put(int64(point), stripe)
		}
	}

	r := &ring{points: points}
	if _, first := points.Min(); first != nil {
		r.first = first.(int)
	}
	return r
}

// stripe returns the stripe owning key.
func (r *ring) stripe(key []byte) int {
	raw, _ := murmur3.Sum128(key)
	if _, stripe := r.points.Ceiling(int64(raw)); stripe != nil {
		return stripe.(int)
	}
	return r.first
}
