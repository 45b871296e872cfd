package memory

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/valerio/go-xray/xray/addr"
)

var (
	// ErrOutOfRange is returned for addresses outside the address space.
	ErrOutOfRange = errors.New("address out of range")
	// ErrMalformedUpdate is returned for memory payloads that cannot be applied.
	// The snapshot is left untouched when it is returned.
	ErrMalformedUpdate = errors.New("malformed memory update")
)

// Snapshot holds the last known memory image of the system under test, along
// with a bitmap of the bytes that differed on the most recent update.
type Snapshot struct {
	data    [addr.Space]uint8
	changed [addr.Space]bool

	lastStart int
	lastLen   int
	updates   uint64
}

// New returns a zero-filled snapshot with nothing marked as changed.
func New() *Snapshot {
	return &Snapshot{}
}

// Apply applies a parsed payload, either a full image or a partial update.
func (s *Snapshot) Apply(p Payload) error {
	if p.Full {
		return s.ApplyFull(p.Bytes)
	}
	return s.ApplyPartial(p.Start, p.Bytes)
}

// ApplyFull replaces the whole image. A byte is marked changed iff its new
// value differs from the previous one.
func (s *Snapshot) ApplyFull(image []byte) error {
	if len(image) != addr.Space {
		return fmt.Errorf("%w: full image is %d bytes, want %d", ErrMalformedUpdate, len(image), addr.Space)
	}

	for a, v := range image {
		s.changed[a] = s.data[a] != v
		s.data[a] = v
	}

	s.lastStart = 0
	s.lastLen = addr.Space
	s.updates++
	return nil
}

// ApplyPartial writes a contiguous run of bytes starting at start.
//
// Change tracking is reset for the whole address space first: bytes outside
// the run were not observed by this update and are never reported as changed.
// Bytes that would land past the end of the address space are dropped.
func (s *Snapshot) ApplyPartial(start uint16, data []byte) error {
	clear(s.changed[:])

	n := len(data)
	if int(start)+n > addr.Space {
		n = addr.Space - int(start)
		slog.Debug("Partial memory update truncated",
			"start", fmt.Sprintf("0x%04X", start),
			"length", len(data),
			"dropped", len(data)-n)
	}

	for i := 0; i < n; i++ {
		a := int(start) + i
		s.changed[a] = s.data[a] != data[i]
		s.data[a] = data[i]
	}

	s.lastStart = int(start)
	s.lastLen = n
	s.updates++
	return nil
}

// Read returns the byte at address.
func (s *Snapshot) Read(address int) (uint8, error) {
	if address < 0 || address >= addr.Space {
		return 0, fmt.Errorf("%w: %d", ErrOutOfRange, address)
	}
	return s.data[address], nil
}

// At returns the byte at a 16 bit address, which is always in range.
func (s *Snapshot) At(address uint16) uint8 {
	return s.data[address]
}

// IsChanged reports whether the byte at address changed on the last update.
// Addresses outside the address space are never changed.
func (s *Snapshot) IsChanged(address int) bool {
	if address < 0 || address >= addr.Space {
		return false
	}
	return s.changed[address]
}

// ChangedCount returns how many bytes changed on the last update.
func (s *Snapshot) ChangedCount() int {
	count := 0
	for _, c := range s.changed {
		if c {
			count++
		}
	}
	return count
}

// LastUpdate returns the range covered by the most recent update.
func (s *Snapshot) LastUpdate() (start, length int) {
	return s.lastStart, s.lastLen
}

// Updates returns the number of updates applied since creation.
func (s *Snapshot) Updates() uint64 {
	return s.updates
}

// Image returns a copy of the full memory image.
func (s *Snapshot) Image() []byte {
	image := make([]byte, addr.Space)
	copy(image, s.data[:])
	return image
}

// Range returns a copy of up to n bytes starting at start, clamped to the
// end of the address space.
func (s *Snapshot) Range(start uint16, n int) []byte {
	if n <= 0 {
		return nil
	}
	end := int(start) + n
	if end > addr.Space {
		end = addr.Space
	}
	out := make([]byte, end-int(start))
	copy(out, s.data[start:end])
	return out
}
