package bitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitmap(t *testing.T) {
	s := New()

	assert.False(t, s.IsSet(0))
	assert.False(t, s.IsSet(1000))

	s.Set(3)
	s.SetRange(63, 66)
	s.Set(200)

	assert.True(t, s.IsSet(3))
	assert.True(t, s.IsSet(64))
	assert.False(t, s.IsSet(66))
	assert.Equal(t, 5, s.Size())
	assert.Equal(t, []int{3, 63, 64, 65, 200}, s.Slice())

	assert.True(t, s.Overlaps(0, 4))
	assert.False(t, s.Overlaps(4, 63))

	var first []int
	s.Range(func(i int) bool {
		first = append(first, i)
		return len(first) < 2
	})

	assert.Equal(t, []int{3, 63}, first)

	var nilset *Bitmap
	assert.Equal(t, 0, nilset.Size())
	assert.False(t, nilset.IsSet(1))
	assert.Nil(t, nilset.Slice())
}
