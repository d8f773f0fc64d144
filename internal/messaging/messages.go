// Package messaging carries draw and guess notifications to players.
package messaging

import (
	"encoding/json"
	"time"

	"LuckyNumbers/internal/model"
)

// Topics and actions
const (
	TopicNumbers      = "numbers"
	guessTopicPrefix  = "guesses/"
	ActionNewDraw     = "NEW_DRAW_RESULTS"
	ActionGuessResult = "GUESS_RESULTS"
	ActionShutdown    = "SHUTDOWN"
)

// GuessTopic the per-guess topic
func GuessTopic(guessID string) string {
	return guessTopicPrefix + guessID
}

// DrawMessage broadcast when a draw is persisted
type DrawMessage struct {
	Action  string            `json:"action"`
	Results *model.DrawResult `json:"results"`
}

// GuessMessage sent to one guess's topic after its draw
type GuessMessage struct {
	Action   string    `json:"action"`
	Guess    string    `json:"guess"`
	Ref      string    `json:"ref"`
	ForDate  time.Time `json:"for_date"`
	Matches  []int     `json:"matches"`
	IsWinner bool      `json:"is_winner"`
	Prize    string    `json:"prize"`
}

// ShutdownMessage broadcast when the server stops
type ShutdownMessage struct {
	Action string    `json:"action"`
	At     time.Time `json:"at"`
}

// NewDrawMessage encodes the broadcast for a result
func NewDrawMessage(result *model.DrawResult) ([]byte, error) {
	return json.Marshal(DrawMessage{Action: ActionNewDraw, Results: result})
}

// NewGuessMessage encodes the notification for one guess
func NewGuessMessage(res model.MatchResult) ([]byte, error) {
	matches := res.Matches
	if matches == nil {
		matches = []int{}
	}
	return json.Marshal(GuessMessage{
		Action:   ActionGuessResult,
		Guess:    res.GuessID,
		Ref:      model.GuessRef(res.GuessID),
		ForDate:  res.ForDate,
		Matches:  matches,
		IsWinner: res.IsWinner,
		Prize:    res.Prize,
	})
}

// NewShutdownMessage encodes the shutdown broadcast
func NewShutdownMessage(at time.Time) ([]byte, error) {
	return json.Marshal(ShutdownMessage{Action: ActionShutdown, At: at.UTC()})
}
