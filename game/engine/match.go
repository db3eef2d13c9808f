package engine

import (
	"fmt"
	"time"
)

const (
	roundInProgress = "Round in progress"
	matchInProgress = "Match in progress"
)

// NewMatch creates an active match with an empty round history
func NewMatch(id string, player1, player2 Player, now time.Time) *Match {
	m := &Match{
		ID:        id,
		Player1:   player1,
		Player2:   player2,
		IsActive:  true,
		Rounds:    []Round{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.refreshStatus()
	return m
}

// OpenRound returns the round still waiting for a move, or nil
func (m *Match) OpenRound() *Round {
	if len(m.Rounds) == 0 {
		return nil
	}
	last := &m.Rounds[len(m.Rounds)-1]
	if last.Complete() {
		return nil
	}
	return last
}

// Play records move in slot. A Player1Slot move opens a new round with the
// given id; a Player2Slot move completes the open round, which is resolved,
// scored and returned. The slot must come from AdmissibleSlot.
func (m *Match) Play(slot Slot, move Move, roundID string, now time.Time, rules Rules) (*Round, error) {
	switch slot {
	case Player1Slot:
		if m.OpenRound() != nil {
			return nil, fmt.Errorf("cannot open round %s: round %d is still open", roundID, len(m.Rounds))
		}
		m.Rounds = append(m.Rounds, Round{
			ID:          roundID,
			Player1Move: move,
			Result:      roundInProgress,
			CreatedAt:   now,
		})
		m.UpdatedAt = now
		return nil, nil

	case Player2Slot:
		current := m.OpenRound()
		if current == nil || !current.Player1Move.IsSet() {
			return nil, fmt.Errorf("no round is waiting for %s", m.Player2.Name)
		}
		current.Player2Move = move
		m.resolveRound(current)
		m.recomputeScores()
		m.checkWinner(rules)
		m.UpdatedAt = now
		return current, nil
	}

	return nil, fmt.Errorf("unknown slot %d", slot)
}

// Restart wipes the round history and scores, keeping id and players
func (m *Match) Restart(now time.Time) {
	m.Rounds = []Round{}
	m.Player1Score = 0
	m.Player2Score = 0
	m.Winner = nil
	m.IsActive = true
	m.UpdatedAt = now
	m.refreshStatus()
}

// Clone returns a deep copy that shares no mutable state with m
func (m *Match) Clone() *Match {
	c := *m
	if m.Winner != nil {
		w := *m.Winner
		c.Winner = &w
	}
	c.Rounds = make([]Round, len(m.Rounds))
	for i, r := range m.Rounds {
		if r.Winner != nil {
			w := *r.Winner
			r.Winner = &w
		}
		c.Rounds[i] = r
	}
	return &c
}

func (m *Match) resolveRound(r *Round) {
	switch Resolve(r.Player1Move, r.Player2Move) {
	case Player1Wins:
		w := m.Player1
		r.Winner = &w
		r.Result = fmt.Sprintf("%s wins: %s beats %s (%s)", m.Player1.Name, r.Player1Move, r.Player2Move, m.Player2.Name)
	case Player2Wins:
		w := m.Player2
		r.Winner = &w
		r.Result = fmt.Sprintf("%s wins: %s beats %s (%s)", m.Player2.Name, r.Player2Move, r.Player1Move, m.Player1.Name)
	default:
		r.Winner = nil
		r.Result = fmt.Sprintf("Tie: both played %s", r.Player1Move)
	}
}

// recomputeScores re-derives both scores from the round history
func (m *Match) recomputeScores() {
	m.Player1Score, m.Player2Score = m.countWins()
}

func (m *Match) countWins() (p1, p2 int) {
	for _, r := range m.Rounds {
		if r.Winner == nil {
			continue
		}
		switch r.Winner.ID {
		case m.Player1.ID:
			p1++
		case m.Player2.ID:
			p2++
		}
	}
	return p1, p2
}

func (m *Match) checkWinner(rules Rules) {
	switch {
	case m.Player1Score >= rules.WinThreshold:
		w := m.Player1
		m.Winner = &w
		m.IsActive = false
	case m.Player2Score >= rules.WinThreshold:
		w := m.Player2
		m.Winner = &w
		m.IsActive = false
	}
	m.refreshStatus()
}

func (m *Match) refreshStatus() {
	if m.IsActive || m.Winner == nil {
		m.Status = matchInProgress
		return
	}
	m.Status = fmt.Sprintf("Match finished. Winner: %s", m.Winner.Name)
}
