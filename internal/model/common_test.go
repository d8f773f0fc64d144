package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucket(t *testing.T) {
	at := time.Date(2026, 10, 16, 12, 34, 56, 789_000_000, time.UTC)
	assert.Equal(t, time.Date(2026, 10, 16, 12, 34, 0, 0, time.UTC), Bucket(at, time.Minute))
	assert.Equal(t, time.Date(2026, 10, 16, 12, 30, 0, 0, time.UTC), Bucket(at, 5*time.Minute))
	assert.Equal(t, time.Date(2026, 10, 16, 12, 34, 0, 0, time.UTC), Bucket(at, 0), "zero interval means one minute")

	// other zones land on the same instant, expressed in UTC
	cet := time.FixedZone("CET", 3600)
	b := Bucket(at.In(cet), time.Minute)
	assert.Equal(t, time.UTC, b.Location())
	assert.True(t, b.Equal(Bucket(at, time.Minute)))

	assert.Equal(t, int64(1792154040000), BucketID(Bucket(at, time.Minute)))
}

func TestRulesNextBucket(t *testing.T) {
	r := DefaultRules()
	at := time.Date(2026, 10, 16, 12, 34, 56, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 10, 16, 12, 35, 0, 0, time.UTC), r.NextBucket(at))
	assert.Equal(t, time.Date(2026, 10, 16, 12, 35, 0, 0, time.UTC), r.NextBucket(r.Bucket(at)))
}

func TestValidateNumbers(t *testing.T) {
	r := DefaultRules()

	got, err := r.ValidateNumbers([]int{45, 1, 9, 9, 22, 3, 17})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 9, 17, 22, 45}, got)

	_, err = r.ValidateNumbers([]int{1, 2, 3, 4, 5})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = r.ValidateNumbers([]int{1, 2, 3, 4, 5, 5})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = r.ValidateNumbers([]int{1, 2, 3, 4, 5, 99})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestClassify(t *testing.T) {
	r := DefaultRules()
	tests := []struct {
		matched int
		winner  bool
		prize   string
	}{
		{0, false, PrizeNone},
		{3, false, PrizeNone},
		{4, true, PrizeThird},
		{5, true, PrizeSecond},
		{6, true, PrizeJackpot},
	}
	for _, tt := range tests {
		winner, prize := r.Classify(tt.matched)
		assert.Equal(t, tt.winner, winner, "matched %d", tt.matched)
		assert.Equal(t, tt.prize, prize, "matched %d", tt.matched)
	}

	// odd counts: 3 of 5 is more than half
	odd := Rules{Interval: time.Minute, RangeFrom: 1, RangeTo: 10, Count: 5}
	winner, _ := odd.Classify(2)
	assert.False(t, winner)
	winner, prize := odd.Classify(3)
	assert.True(t, winner)
	assert.Equal(t, PrizeThird, prize)
}

func TestIntersectAndResolve(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3}, Intersect([]int{6, 5, 4, 3, 2, 1}, []int{9, 3, 8, 2, 7, 1}))
	assert.Equal(t, []int{}, Intersect([]int{1, 2}, []int{3, 4}))

	res := DefaultRules().Resolve("g1", time.Time{}, nil)
	assert.Equal(t, []int{}, res.Matches)
	assert.Equal(t, PrizeNone, res.Prize)
	assert.False(t, res.IsWinner)
}

func TestGuessMatches(t *testing.T) {
	var g Guess
	assert.Nil(t, g.MatchList())

	g.SetMatches([]int{4, 8})
	assert.Equal(t, []int{4, 8}, g.MatchList())

	g.SetMatches(nil)
	assert.Equal(t, []int{}, g.MatchList())
	assert.Equal(t, "/api/guesses/abc", GuessRef("abc"))
}
