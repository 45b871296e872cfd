package memory

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-xray/xray/addr"
)

func randomImage(r *rand.Rand) []byte {
	image := make([]byte, addr.Space)
	r.Read(image)
	return image
}

func TestSnapshot_NewIsZeroed(t *testing.T) {
	s := New()

	for _, a := range []int{0, 0x3C00, 0xFFFF} {
		v, err := s.Read(a)
		require.NoError(t, err)
		assert.Equal(t, uint8(0), v)
		assert.False(t, s.IsChanged(a))
	}
	assert.Equal(t, 0, s.ChangedCount())
}

func TestSnapshot_FullUpdateScenario(t *testing.T) {
	s := New()
	image := make([]byte, addr.Space)
	image[0x3C00] = 65

	require.NoError(t, s.ApplyFull(image))

	v, err := s.Read(0x3C00)
	require.NoError(t, err)
	assert.Equal(t, uint8(65), v)
	assert.True(t, s.IsChanged(0x3C00))
	assert.False(t, s.IsChanged(0x3C01))
	assert.Equal(t, 1, s.ChangedCount())
}

func TestSnapshot_FullUpdateDiff(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for i := 0; i < 4; i++ {
		s1 := randomImage(r)
		s2 := randomImage(r)
		// make sure some bytes are equal
		for a := 0; a < addr.Space; a += 3 {
			s2[a] = s1[a]
		}

		s := New()
		require.NoError(t, s.ApplyFull(s1))
		require.NoError(t, s.ApplyFull(s2))

		for a := 0; a < addr.Space; a++ {
			if s.IsChanged(a) != (s1[a] != s2[a]) {
				t.Fatalf("changed[0x%04X] = %v, want %v", a, s.IsChanged(a), s1[a] != s2[a])
			}
			if s.At(uint16(a)) != s2[a] {
				t.Fatalf("data[0x%04X] = %d, want %d", a, s.At(uint16(a)), s2[a])
			}
		}
	}
}

func TestSnapshot_FullUpdateIdempotent(t *testing.T) {
	image := randomImage(rand.New(rand.NewSource(1)))
	s := New()

	require.NoError(t, s.ApplyFull(image))
	require.NoError(t, s.ApplyFull(image))

	assert.Equal(t, 0, s.ChangedCount())
}

func TestSnapshot_FullUpdateWrongSize(t *testing.T) {
	s := New()
	err := s.ApplyFull(make([]byte, 100))
	assert.ErrorIs(t, err, ErrMalformedUpdate)
	assert.Equal(t, uint64(0), s.Updates())
}

func TestSnapshot_PartialUpdateBounds(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	initial := randomImage(r)

	s := New()
	require.NoError(t, s.ApplyFull(initial))
	require.Greater(t, s.ChangedCount(), 0)

	start := 0x3C00
	data := make([]byte, 0x400)
	r.Read(data)
	require.NoError(t, s.ApplyPartial(uint16(start), data))

	for a := 0; a < addr.Space; a++ {
		inside := a >= start && a < start+len(data)
		if inside {
			assert.Equal(t, data[a-start], s.At(uint16(a)))
			assert.Equal(t, initial[a] != data[a-start], s.IsChanged(a), "address 0x%04X", a)
			continue
		}
		if s.At(uint16(a)) != initial[a] {
			t.Fatalf("data[0x%04X] modified outside update range", a)
		}
		if s.IsChanged(a) {
			t.Fatalf("changed[0x%04X] set outside update range", a)
		}
	}

	gotStart, gotLen := s.LastUpdate()
	assert.Equal(t, start, gotStart)
	assert.Equal(t, len(data), gotLen)
}

func TestSnapshot_PartialUpdateUsesAbsoluteAddresses(t *testing.T) {
	s := New()
	require.NoError(t, s.ApplyPartial(0x4000, []byte{1, 0, 3}))

	assert.True(t, s.IsChanged(0x4000))
	assert.False(t, s.IsChanged(0x4001))
	assert.True(t, s.IsChanged(0x4002))
	// payload offsets must not be marked
	assert.False(t, s.IsChanged(0))
	assert.False(t, s.IsChanged(2))
}

func TestSnapshot_PartialUpdateTruncatesAtEnd(t *testing.T) {
	s := New()
	require.NoError(t, s.ApplyPartial(0xFFFE, []byte{1, 2, 3, 4}))

	assert.Equal(t, uint8(1), s.At(0xFFFE))
	assert.Equal(t, uint8(2), s.At(0xFFFF))
	assert.Equal(t, uint8(0), s.At(0x0000), "update must not wrap around")
	assert.Equal(t, uint8(0), s.At(0x0001))

	_, n := s.LastUpdate()
	assert.Equal(t, 2, n)
}

func TestSnapshot_ReadOutOfRange(t *testing.T) {
	s := New()

	for _, a := range []int{-1, addr.Space, addr.Space + 10} {
		_, err := s.Read(a)
		assert.ErrorIs(t, err, ErrOutOfRange)
		assert.False(t, s.IsChanged(a))
	}
}

func TestSnapshot_AccessorsReturnCopies(t *testing.T) {
	s := New()
	require.NoError(t, s.ApplyPartial(0x10, []byte{0xAA, 0xBB}))

	image := s.Image()
	image[0x10] = 0
	assert.Equal(t, uint8(0xAA), s.At(0x10))

	r := s.Range(0x10, 2)
	assert.Equal(t, []byte{0xAA, 0xBB}, r)
	r[0] = 0
	assert.Equal(t, uint8(0xAA), s.At(0x10))

	assert.Len(t, s.Range(0xFFFF, 10), 1)
	assert.Nil(t, s.Range(0, 0))
}

func TestSnapshot_ApplyPayload(t *testing.T) {
	s := New()

	full := make([]byte, addr.Space)
	full[5] = 9
	require.NoError(t, s.Apply(Payload{Bytes: full, Full: true}))
	assert.True(t, s.IsChanged(5))

	require.NoError(t, s.Apply(Payload{Start: 0x20, Bytes: []byte{7}}))
	assert.False(t, s.IsChanged(5))
	assert.True(t, s.IsChanged(0x20))
	assert.Equal(t, uint8(9), s.At(5))
}
