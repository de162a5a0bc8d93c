// Package bitmap is a growable set of small non-negative ints,
// used for byte offsets within a segment.
package bitmap

import (
	"math/bits"

	"tlog.app/go/tlog/tlwire"
)

type (
	Bitmap struct {
		b  []uint64
		b0 [1]uint64
	}
)

func New() *Bitmap {
	s := Make()
	return &s
}

func Make() Bitmap {
	s := Bitmap{}
	s.b = s.b0[:]

	return s
}

func (s *Bitmap) Set(i int) {
	i, j := s.ij(i)

	s.grow(i)

	s.b[i] |= 1 << j
}

// SetRange sets [l, r).
func (s *Bitmap) SetRange(l, r int) {
	for i := l; i < r; i++ {
		s.Set(i)
	}
}

func (s *Bitmap) IsSet(i int) bool {
	if s == nil {
		return false
	}

	i, j := s.ij(i)

	if i >= len(s.b) {
		return false
	}

	return s.b[i]&(1<<j) != 0
}

// Overlaps reports whether any of [l, r) is set.
func (s *Bitmap) Overlaps(l, r int) bool {
	for i := l; i < r; i++ {
		if s.IsSet(i) {
			return true
		}
	}

	return false
}

func (s *Bitmap) Size() (n int) {
	if s == nil {
		return 0
	}

	for _, x := range s.b {
		n += bits.OnesCount64(x)
	}

	return n
}

func (s *Bitmap) Range(f func(i int) bool) {
	if s == nil {
		return
	}

	for i, x := range s.b {
		for x != 0 {
			j := bits.TrailingZeros64(x)
			x &^= 1 << j

			if !f(i*64 + j) {
				return
			}
		}
	}
}

// Slice returns set elements in increasing order.
func (s *Bitmap) Slice() (r []int) {
	s.Range(func(i int) bool {
		r = append(r, i)
		return true
	})

	return r
}

func (s *Bitmap) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	if s == nil {
		return e.AppendNil(b)
	}

	b = e.AppendTag(b, tlwire.Array, -1)

	s.Range(func(i int) bool {
		b = e.AppendInt(b, i)

		return true
	})

	b = e.AppendBreak(b)

	return b
}

func (s *Bitmap) ij(pos int) (i, j int) {
	return pos / 64, pos % 64
}

func (s *Bitmap) grow(i int) {
	for i >= len(s.b) {
		s.b = append(s.b, 0)
	}
}
