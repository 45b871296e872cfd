package debug

import (
	"errors"
	"fmt"
)

// ErrLookupMiss is returned when an address expected to hold a decoded
// instruction, usually the PC, is not in the index.
var ErrLookupMiss = errors.New("no instruction at address")

// Predictor computes where execution may go next.
type Predictor struct {
	index *Index
}

// NewPredictor returns a predictor reading from index.
func NewPredictor(index *Index) Predictor {
	return Predictor{index: index}
}

// PredictNext returns the addresses execution can reach from the instruction
// at pc: the fall-through address when the instruction can fall through,
// then its static jump target if it has one. The result holds at most two
// addresses.
func (p Predictor) PredictNext(pc uint16) ([]uint16, error) {
	in, ok := p.index.Lookup(pc)
	if !ok {
		return nil, fmt.Errorf("%w: 0x%04X", ErrLookupMiss, pc)
	}

	next := make([]uint16, 0, 2)
	if in.FallsThrough {
		next = append(next, pc+uint16(in.Length))
	}
	if in.HasTarget && !(len(next) == 1 && next[0] == in.Target) {
		next = append(next, in.Target)
	}
	return next, nil
}
