package draw

import (
	"bytes"
	"testing"

	"LuckyNumbers/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomDrawUniqueInRange(t *testing.T) {
	g := New()
	cases := []struct{ from, to, count int }{
		{1, 45, 6},
		{1, 6, 6},
		{10, 10, 1},
		{-5, 5, 11},
		{1, 1000, 20},
	}
	for _, c := range cases {
		for i := 0; i < 50; i++ {
			got, err := g.Draw(c.from, c.to, c.count)
			require.NoError(t, err)
			require.Len(t, got, c.count)
			seen := map[int]bool{}
			for _, n := range got {
				assert.GreaterOrEqual(t, n, c.from)
				assert.LessOrEqual(t, n, c.to)
				assert.False(t, seen[n], "duplicate %d", n)
				seen[n] = true
			}
		}
	}
}

func TestRandomDrawInvalidArgs(t *testing.T) {
	g := New()
	for _, c := range []struct{ from, to, count int }{
		{5, 1, 1},
		{1, 5, 0},
		{1, 5, 6},
		{1, 5, -1},
	} {
		_, err := g.Draw(c.from, c.to, c.count)
		assert.ErrorIs(t, err, model.ErrValidation, "%+v", c)
	}
}

func TestRandomDrawDeterministicSource(t *testing.T) {
	// candidates 1..5; byte 0 picks index 0 each time, the last candidate moves into the hole
	g := NewWithSource(bytes.NewReader([]byte{0, 0, 0}))
	got, err := g.Draw(1, 5, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 5, 4}, got)
}

func TestRandomDrawRejectsBiasedBytes(t *testing.T) {
	// n=5: bytes >= 255 are rejected, 255 is skipped and 7%5 = 2 is used
	g := NewWithSource(bytes.NewReader([]byte{255, 7}))
	got, err := g.Draw(1, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, got)
}

func TestRandomDrawShortSource(t *testing.T) {
	g := NewWithSource(bytes.NewReader(nil))
	_, err := g.Draw(1, 45, 6)
	assert.Error(t, err)
}

func TestFixed(t *testing.T) {
	got, err := Fixed{6, 1, 2, 3, 4, 5}.Draw(1, 45, 6)
	require.NoError(t, err)
	assert.Equal(t, []int{6, 1, 2, 3, 4, 5}, got)

	_, err = Fixed{1, 2, 3}.Draw(1, 45, 6)
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = Fixed{1, 2, 3, 4, 5, 5}.Draw(1, 45, 6)
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = Fixed{1, 2, 3, 4, 5, 50}.Draw(1, 45, 6)
	assert.ErrorIs(t, err, model.ErrValidation)
}
