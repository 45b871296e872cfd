package memory

import (
	"fmt"

	"github.com/valerio/go-xray/xray/addr"
	"github.com/valerio/go-xray/xray/bit"
)

// headerSize is the size of the big-endian start address prefixing partial dumps.
const headerSize = 2

// Payload is a memory update received from the system under test.
type Payload struct {
	Start uint16
	Bytes []byte
	Full  bool
}

// ParsePayload interprets a binary frame.
//
// A frame of exactly the address space size is a headerless full image.
// Any other frame starts with the big-endian start address followed by the
// data; a header of 0 followed by a whole address space is a full image too.
func ParsePayload(frame []byte) (Payload, error) {
	if len(frame) == addr.Space {
		return Payload{Bytes: frame, Full: true}, nil
	}

	if len(frame) < headerSize {
		return Payload{}, fmt.Errorf("%w: frame of %d bytes has no start address", ErrMalformedUpdate, len(frame))
	}

	start := bit.Combine(frame[0], frame[1])
	data := frame[headerSize:]

	return Payload{
		Start: start,
		Bytes: data,
		Full:  start == 0 && len(data) == addr.Space,
	}, nil
}

// Encode renders the payload in the framing accepted by ParsePayload.
func (p Payload) Encode() []byte {
	frame := make([]byte, headerSize+len(p.Bytes))
	frame[0] = bit.High(p.Start)
	frame[1] = bit.Low(p.Start)
	copy(frame[headerSize:], p.Bytes)
	return frame
}
