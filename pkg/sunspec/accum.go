package sunspec

import (
	"errors"
	"fmt"
)

var (
	ErrAccumNotPositive = errors.New("accumulated value must be positive")
	ErrAccumBackwards   = errors.New("accumulated value went backwards")
)

// Accumulator guards a lifetime counter against zero reads and values that
// go backwards. The zero value is ready to use.
type Accumulator struct {
	last float64
}

func (a *Accumulator) Update(value float64) (float64, error) {
	if !(value > 0) {
		return 0, ErrAccumNotPositive
	}
	if value < a.last {
		return 0, fmt.Errorf("%w: %v < %v", ErrAccumBackwards, value, a.last)
	}
	a.last = value
	return value, nil
}

func (a *Accumulator) Last() float64 {
	return a.last
}

func (a *Accumulator) Reset() {
	a.last = 0
}
