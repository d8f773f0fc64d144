package model

import (
	"fmt"
	"sort"
	"time"
)

// Prize tiers sent with every guess result
const (
	PrizeJackpot = "jackpot"
	PrizeSecond  = "second"
	PrizeThird   = "third"
	PrizeNone    = "none"
)

// Rules lottery parameters shared by the stores and the draw engine
type Rules struct {
	Interval  time.Duration // bucket width
	RangeFrom int
	RangeTo   int
	Count     int // numbers per draw
}

// DefaultRules 6 from 1..45 every minute
func DefaultRules() Rules {
	return Rules{Interval: time.Minute, RangeFrom: 1, RangeTo: 45, Count: 6}
}

// MatchResult outcome of one guess against one draw
type MatchResult struct {
	GuessID  string    `json:"guess"`
	ForDate  time.Time `json:"for_date"`
	Matches  []int     `json:"matches"`
	IsWinner bool      `json:"is_winner"`
	Prize    string    `json:"prize"`
}

// Bucket truncates t to the interval boundary, in UTC
func (r Rules) Bucket(t time.Time) time.Time {
	return Bucket(t, r.Interval)
}

// NextBucket the first bucket strictly after the one containing t
func (r Rules) NextBucket(t time.Time) time.Time {
	return r.Bucket(t).Add(r.Interval)
}

// Bucket truncates t to the interval boundary, in UTC
func Bucket(t time.Time, interval time.Duration) time.Time {
	if interval <= 0 {
		interval = time.Minute
	}
	return t.UTC().Truncate(interval)
}

// BucketID the key a bucket is stored under
func BucketID(bucket time.Time) int64 {
	return bucket.UnixMilli()
}

// ValidateNumbers de-duplicates and sorts a guess, requiring at least Count unique numbers in range
func (r Rules) ValidateNumbers(numbers []int) ([]int, error) {
	seen := make(map[int]struct{}, len(numbers))
	unique := make([]int, 0, len(numbers))
	for _, n := range numbers {
		if n < r.RangeFrom || n > r.RangeTo {
			return nil, fmt.Errorf("%w: number %d is outside %d..%d", ErrValidation, n, r.RangeFrom, r.RangeTo)
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		unique = append(unique, n)
	}
	if len(unique) < r.Count {
		return nil, fmt.Errorf("%w: need at least %d unique numbers, got %d", ErrValidation, r.Count, len(unique))
	}
	sort.Ints(unique)
	return unique, nil
}

// Classify a guess is a winner when it matched more than half of the drawn numbers.
// Exactly half is not a win.
func (r Rules) Classify(matched int) (bool, string) {
	if matched*2 <= r.Count {
		return false, PrizeNone
	}
	switch {
	case matched >= r.Count:
		return true, PrizeJackpot
	case matched == r.Count-1:
		return true, PrizeSecond
	default:
		return true, PrizeThird
	}
}

// Resolve builds the MatchResult for a guess
func (r Rules) Resolve(guessID string, forDate time.Time, matches []int) MatchResult {
	if matches == nil {
		matches = []int{}
	}
	winner, prize := r.Classify(len(matches))
	return MatchResult{
		GuessID:  guessID,
		ForDate:  forDate,
		Matches:  matches,
		IsWinner: winner,
		Prize:    prize,
	}
}

// Intersect numbers present in both sets, ascending
func Intersect(drawn, guessed []int) []int {
	in := make(map[int]struct{}, len(drawn))
	for _, n := range drawn {
		in[n] = struct{}{}
	}
	out := []int{}
	for _, n := range guessed {
		if _, ok := in[n]; ok {
			out = append(out, n)
			delete(in, n)
		}
	}
	sort.Ints(out)
	return out
}
