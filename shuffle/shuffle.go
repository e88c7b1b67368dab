// Package shuffle implements the stream shuffler underlying the chunk pool:
// a device that emits every integer in a half-open interval [lower, upper)
// exactly once in uniform random order, whose bounds may be adjusted while a
// pass is in progress.
//
// The chunk pool drives this through a "get next global index" step backed
// by a Fisher-Yates permutation over a sparse swap map, pulled out here into
// a self-contained type rather than kept inline inside the pool.
package shuffle

import "math/rand/v2"

// Shuffler emits every integer in [lower, upper) exactly once per pass, in
// uniform random order. It is not safe for concurrent use; callers serialize
// access (the chunk pool does so under its own lock).
//
// Internally it is a lazy Fisher-Yates shuffle over a sparse "remaining"
// array: rather than materializing [lower, upper) (which may be enormous),
// positions are stored in a swap map and default to the identity mapping
// (position i holds value origin+i) until touched. Popping a random
// remaining element is O(1); growing the interval inserts new identity
// slots at the remaining/consumed boundary, pushing already-consumed values
// to the tail, which keeps future pops uniform over exactly the unconsumed
// set.
type Shuffler struct {
	rng *rand.Rand

	origin uint64 // value represented by virtual slot 0
	size   int    // number of virtual slots ever allocated (origin+size is the high-water mark)
	remain int    // slots [0, remain) are unconsumed; [remain, size) are consumed

	lower, upper uint64 // externally visible bounds, used to filter pops

	perm map[int]uint64 // sparse overrides; absent entries default to identity
}

// New creates a Shuffler with no active interval. Call Reset before the
// first Next.
func New(seed uint64) *Shuffler {
	return &Shuffler{
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		perm: make(map[int]uint64),
	}
}

// Reset discards all iteration state and starts a fresh pass over
// [lower, upper).
func (s *Shuffler) Reset(lower, upper uint64) {
	s.perm = make(map[int]uint64)
	s.origin = lower
	s.lower = lower
	s.upper = upper
	if upper > lower {
		s.size = int(upper - lower)
	} else {
		s.size = 0
	}
	s.remain = s.size
}

// SetLowerBound advances the lower bound without discarding iteration
// state. Indices below the new bound are not removed; Next silently skips
// over them if they're drawn before being consumed.
func (s *Shuffler) SetLowerBound(lower uint64) {
	s.lower = lower
}

// SetUpperBound adjusts the upper bound without discarding iteration
// state. Raising it admits new indices into the current pass, inserted at
// the remaining/consumed boundary so they remain reachable by future calls
// to Next without re-ordering already-consumed slots. Lowering it narrows
// the visible range; Next silently skips indices that fall outside it.
func (s *Shuffler) SetUpperBound(upper uint64) {
	s.upper = upper
	hiWater := s.origin + uint64(s.size)
	if upper > hiWater {
		s.growTo(int(upper - s.origin))
	}
}

// growTo extends the virtual slot count to newSize, inserting the new
// identity-valued slots at the current remaining/consumed boundary.
func (s *Shuffler) growTo(newSize int) {
	for s.size < newSize {
		newValue := s.origin + uint64(s.size)
		boundary := s.remain
		tail := s.size

		displaced := s.get(boundary)
		s.set(tail, displaced)
		s.set(boundary, newValue)

		s.size++
		s.remain++
	}
}

func (s *Shuffler) get(i int) uint64 {
	if v, ok := s.perm[i]; ok {
		return v
	}
	return s.origin + uint64(i)
}

func (s *Shuffler) set(i int, v uint64) {
	if v == s.origin+uint64(i) {
		delete(s.perm, i)
		return
	}
	s.perm[i] = v
}

// Next returns the next index in the current pass, or (0, false) once the
// pass is exhausted. Indices that fall outside the current [lower, upper)
// bounds at the moment they're drawn are consumed silently and never
// returned; the caller sees only in-range values or exhaustion.
func (s *Shuffler) Next() (uint64, bool) {
	for s.remain > 0 {
		k := s.rng.IntN(s.remain)
		last := s.remain - 1

		vk := s.get(k)
		vlast := s.get(last)
		s.set(k, vlast)
		s.set(last, vk)
		s.remain--

		if vk >= s.lower && vk < s.upper {
			return vk, true
		}
	}
	return 0, false
}

// Remaining reports how many unconsumed slots are left in the current pass,
// counting slots that may yet be skipped as out-of-bounds.
func (s *Shuffler) Remaining() int {
	return s.remain
}

// Bounds returns the shuffler's current [lower, upper) interval.
func (s *Shuffler) Bounds() (lower, upper uint64) {
	return s.lower, s.upper
}
