// Package draw picks lottery numbers.
package draw

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"

	"LuckyNumbers/internal/model"
)

// Generator picks count unique numbers from [from, to]
type Generator interface {
	Draw(from, to, count int) ([]int, error)
}

// Random samples without replacement from a cryptographic source
type Random struct {
	src io.Reader
}

// New uses crypto/rand
func New() *Random {
	return &Random{src: rand.Reader}
}

// NewWithSource reads randomness from r, for deterministic tests
func NewWithSource(r io.Reader) *Random {
	return &Random{src: r}
}

// Draw returns the numbers in the order they were drawn.
func (g *Random) Draw(from, to, count int) ([]int, error) {
	if err := checkArgs(from, to, count); err != nil {
		return nil, err
	}

	candidates := make([]int, 0, to-from+1)
	for n := from; n <= to; n++ {
		candidates = append(candidates, n)
	}

	drawn := make([]int, 0, count)
	for len(drawn) < count {
		idx, err := g.uniform(len(candidates))
		if err != nil {
			return nil, fmt.Errorf("read random source: %w", err)
		}
		drawn = append(drawn, candidates[idx])
		last := len(candidates) - 1
		candidates[idx] = candidates[last]
		candidates = candidates[:last]
	}
	return drawn, nil
}

// uniform returns an index in [0, n). Values past the largest multiple of n are rejected so
// small ranges carry no modulo bias.
func (g *Random) uniform(n int) (int, error) {
	if n == 1 {
		return 0, nil
	}
	if n <= 256 {
		limit := 256 - 256%n
		var b [1]byte
		for {
			if _, err := io.ReadFull(g.src, b[:]); err != nil {
				return 0, err
			}
			if int(b[0]) < limit {
				return int(b[0]) % n, nil
			}
		}
	}

	const space = uint64(1) << 32
	limit := space - space%uint64(n)
	var b [4]byte
	for {
		if _, err := io.ReadFull(g.src, b[:]); err != nil {
			return 0, err
		}
		v := uint64(binary.BigEndian.Uint32(b[:]))
		if v < limit {
			return int(v % uint64(n)), nil
		}
	}
}

// Fixed always draws the same numbers. Used to force a result.
type Fixed []int

// Draw returns a copy of the fixed numbers, which must fit the arguments
func (f Fixed) Draw(from, to, count int) ([]int, error) {
	if err := checkArgs(from, to, count); err != nil {
		return nil, err
	}
	if len(f) != count {
		return nil, fmt.Errorf("%w: fixed draw has %d numbers, want %d", model.ErrValidation, len(f), count)
	}
	seen := make(map[int]struct{}, len(f))
	for _, n := range f {
		if n < from || n > to {
			return nil, fmt.Errorf("%w: fixed number %d outside %d..%d", model.ErrValidation, n, from, to)
		}
		if _, dup := seen[n]; dup {
			return nil, fmt.Errorf("%w: fixed number %d repeated", model.ErrValidation, n)
		}
		seen[n] = struct{}{}
	}
	out := make([]int, len(f))
	copy(out, f)
	return out, nil
}

func checkArgs(from, to, count int) error {
	if from > to {
		return fmt.Errorf("%w: range %d..%d is empty", model.ErrValidation, from, to)
	}
	if count < 1 || count > to-from+1 {
		return fmt.Errorf("%w: cannot draw %d numbers from %d..%d", model.ErrValidation, count, from, to)
	}
	return nil
}
