package simulator

const (
	mtN         = 624
	mtM         = 397
	mtMatrixA   = 0x9908b0df
	mtUpperMask = 0x80000000
	mtLowerMask = 0x7fffffff
)

// mt19937 is the 32-bit Mersenne Twister. Its output stream matches
// std::mt19937 for the same seed, which keeps remap offsets comparable with
// runs of the C++ reference tool.
type mt19937 struct {
	state [mtN]uint32
	index int
}

func newMT19937(seed uint32) *mt19937 {
	mt := &mt19937{}
	mt.seed(seed)
	return mt
}

func (mt *mt19937) seed(seed uint32) {
	mt.state[0] = seed
	for i := 1; i < mtN; i++ {
		prev := mt.state[i-1]
		mt.state[i] = 1812433253*(prev^(prev>>30)) + uint32(i)
	}
	mt.index = mtN
}

func (mt *mt19937) twist() {
	for i := 0; i < mtN; i++ {
		y := (mt.state[i] & mtUpperMask) | (mt.state[(i+1)%mtN] & mtLowerMask)
		next := mt.state[(i+mtM)%mtN] ^ (y >> 1)
		if y&1 != 0 {
			next ^= mtMatrixA
		}
		mt.state[i] = next
	}
	mt.index = 0
}

// Uint32 returns the next tempered output
func (mt *mt19937) Uint32() uint32 {
	if mt.index >= mtN {
		mt.twist()
	}
	y := mt.state[mt.index]
	mt.index++

	y ^= y >> 11
	y ^= (y << 7) & 0x9d2c5680
	y ^= (y << 15) & 0xefc60000
	y ^= y >> 18
	return y
}

// uniformUint64 draws from [0, urange] the way libstdc++'s
// uniform_int_distribution<uint64_t> does on top of a 32-bit engine.
func (mt *mt19937) uniformUint64(urange uint64) uint64 {
	const urngRange = uint64(^uint32(0))

	switch {
	case urngRange > urange:
		// Lemire's nearly-divisionless reduction.
		uerange := uint32(urange + 1)
		product := uint64(mt.Uint32()) * uint64(uerange)
		low := uint32(product)
		if low < uerange {
			threshold := -uerange % uerange
			for low < threshold {
				product = uint64(mt.Uint32()) * uint64(uerange)
				low = uint32(product)
			}
		}
		return product >> 32

	case urngRange < urange:
		// Upscaling: combine a recursive high draw with one raw low draw.
		const uerngRange = urngRange + 1
		for {
			tmp := uerngRange * mt.uniformUint64(urange/uerngRange)
			ret := tmp + uint64(mt.Uint32())
			if ret <= urange && ret >= tmp {
				return ret
			}
		}

	default:
		return uint64(mt.Uint32())
	}
}
