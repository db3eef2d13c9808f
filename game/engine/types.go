package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Move is one of the three hand shapes. The zero value means the slot is unset.
type Move string

const (
	Rock     Move = "ROCK"
	Paper    Move = "PAPER"
	Scissors Move = "SCISSORS"

	// DefaultWinThreshold is the number of round wins that ends a match
	DefaultWinThreshold = 3
)

// Moves lists every valid move in display order
var Moves = []Move{Rock, Paper, Scissors}

// ParseMove converts raw input into a Move. Only the exact upper-case names are accepted.
func ParseMove(s string) (Move, error) {
	m := Move(s)
	if !m.Valid() {
		return "", &Error{
			Kind:    KindInvalidMove,
			Message: fmt.Sprintf("invalid move %q: must be ROCK, PAPER or SCISSORS", s),
		}
	}
	return m, nil
}

// Valid reports whether m is one of ROCK, PAPER or SCISSORS
func (m Move) Valid() bool {
	switch m {
	case Rock, Paper, Scissors:
		return true
	}
	return false
}

// IsSet reports whether a move has been recorded
func (m Move) IsSet() bool {
	return m != ""
}

// MarshalJSON encodes an unset move as null
func (m Move) MarshalJSON() ([]byte, error) {
	if !m.IsSet() {
		return []byte("null"), nil
	}
	return json.Marshal(string(m))
}

// UnmarshalJSON accepts null or a valid move name
func (m *Move) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*m = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMove(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Slot identifies the first-mover or second-mover position of a round
type Slot int

const (
	Player1Slot Slot = iota + 1
	Player2Slot
)

func (s Slot) String() string {
	switch s {
	case Player1Slot:
		return "player1"
	case Player2Slot:
		return "player2"
	}
	return "unknown"
}

// Rules holds the tunable parameters of a match
type Rules struct {
	WinThreshold int `json:"win_threshold"`
}

// DefaultRules returns the standard best-of-five rules
func DefaultRules() Rules {
	return Rules{WinThreshold: DefaultWinThreshold}
}

// Player is an immutable participant record
type Player struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Round is one exchange of moves within a match
type Round struct {
	ID          string    `json:"id"`
	Player1Move Move      `json:"player1_move"`
	Player2Move Move      `json:"player2_move"`
	Winner      *Player   `json:"winner"`
	Result      string    `json:"result"`
	CreatedAt   time.Time `json:"created_at"`
}

// Complete reports whether both moves are in or a result has been computed
func (r *Round) Complete() bool {
	return (r.Player1Move.IsSet() && r.Player2Move.IsSet()) || r.Winner != nil
}

// Match is the full state of a two-player contest
type Match struct {
	ID           string    `json:"id"`
	Player1      Player    `json:"player1"`
	Player2      Player    `json:"player2"`
	Player1Score int       `json:"player1_score"`
	Player2Score int       `json:"player2_score"`
	Winner       *Player   `json:"winner"`
	IsActive     bool      `json:"is_active"`
	Status       string    `json:"status"`
	Rounds       []Round   `json:"rounds"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Version counts published snapshots; the store increments it on every
	// accepted change so consumers can discard stale copies
	Version int64 `json:"version"`
}
