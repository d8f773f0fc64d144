package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// DrawResult one draw per time bucket. ID is the bucket as unix milliseconds.
type DrawResult struct {
	ID         int64      `gorm:"column:id;primaryKey;autoIncrement:false" json:"id,string"`
	Date       time.Time  `gorm:"column:draw_date;not null;uniqueIndex;comment:bucket the draw belongs to" json:"date"`
	Host       string     `gorm:"column:host;type:varchar(128);comment:process that won the draw" json:"-"`
	NotifiedAt *time.Time `gorm:"column:notified_at;comment:set once notifications were claimed" json:"-"`
	CreatedAt  time.Time  `gorm:"column:created_at" json:"-"`
	Numbers    []int      `gorm:"-" json:"numbers"`
}

// DrawNumber a drawn number, Position keeps draw order
type DrawNumber struct {
	ResultID int64 `gorm:"column:result_id;primaryKey;autoIncrement:false"`
	Number   int   `gorm:"column:number;primaryKey;autoIncrement:false"`
	Position int   `gorm:"column:position;not null"`
}

// DrawnStat how often a number has been drawn
type DrawnStat struct {
	Number     int   `gorm:"column:number;primaryKey;autoIncrement:false" json:"number"`
	TimesDrawn int64 `gorm:"column:times_drawn;not null;default:0" json:"count"`
}

// Guess a player's numbers for one future bucket. Knowing the ID is ownership.
type Guess struct {
	ID         string         `gorm:"column:id;primaryKey;type:varchar(64)" json:"id"`
	ForDate    time.Time      `gorm:"column:for_date;not null;index;comment:bucket the guess plays in" json:"for_date"`
	Matches    datatypes.JSON `gorm:"column:matches;comment:numbers matched once the draw is reconciled" json:"matches,omitempty"`
	Prize      *string        `gorm:"column:prize;type:varchar(16)" json:"prize,omitempty"`
	ResolvedAt *time.Time     `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
	CreatedAt  time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"column:updated_at" json:"updated_at"`

	Numbers []int       `gorm:"-" json:"numbers"`
	Result  *DrawResult `gorm:"-" json:"result,omitempty"`
	Ref     string      `gorm:"-" json:"ref,omitempty"`
}

// GuessNumber one number of a guess
type GuessNumber struct {
	GuessID string `gorm:"column:guess_id;primaryKey;type:varchar(64)"`
	Number  int    `gorm:"column:number;primaryKey;autoIncrement:false"`
}

func (DrawResult) TableName() string  { return "draw_results" }
func (DrawNumber) TableName() string  { return "draw_numbers" }
func (DrawnStat) TableName() string   { return "drawn_stats" }
func (Guess) TableName() string       { return "guesses" }
func (GuessNumber) TableName() string { return "guess_numbers" }

// AllModels lists the tables in migration order
func AllModels() []interface{} {
	return []interface{}{
		&DrawResult{},
		&DrawNumber{},
		&DrawnStat{},
		&Guess{},
		&GuessNumber{},
	}
}

// SetMatches stores matches in the JSON column
func (g *Guess) SetMatches(matches []int) {
	if matches == nil {
		matches = []int{}
	}
	raw, _ := json.Marshal(matches)
	g.Matches = datatypes.JSON(raw)
}

// MatchList decodes the JSON column, nil when the guess is unresolved
func (g *Guess) MatchList() []int {
	if len(g.Matches) == 0 {
		return nil
	}
	var out []int
	if err := json.Unmarshal(g.Matches, &out); err != nil {
		return nil
	}
	return out
}

// GuessRef the resource path of a guess
func GuessRef(id string) string {
	return "/api/guesses/" + id
}
