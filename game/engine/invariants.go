package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvariant is wrapped by every error returned from Validate
var ErrInvariant = errors.New("match invariant violated")

// Validate checks that m is a state reachable through Play and Restart.
// It is used on snapshots loaded from storage, which are not trusted.
func (m *Match) Validate(rules Rules) error {
	if m.ID == "" {
		return fmt.Errorf("%w: match id is empty", ErrInvariant)
	}
	if strings.TrimSpace(m.Player1.Name) == "" || strings.TrimSpace(m.Player2.Name) == "" {
		return fmt.Errorf("%w: match %s has a player without a name", ErrInvariant, m.ID)
	}
	if m.Player1.ID == "" || m.Player1.ID == m.Player2.ID {
		return fmt.Errorf("%w: match %s needs two distinct player ids", ErrInvariant, m.ID)
	}

	for i := range m.Rounds {
		r := &m.Rounds[i]
		if r.Player1Move.IsSet() && !r.Player1Move.Valid() || r.Player2Move.IsSet() && !r.Player2Move.Valid() {
			return fmt.Errorf("%w: round %d has an invalid move", ErrInvariant, i+1)
		}
		if !r.Player1Move.IsSet() {
			return fmt.Errorf("%w: round %d has no first move", ErrInvariant, i+1)
		}
		if !r.Complete() && i != len(m.Rounds)-1 {
			return fmt.Errorf("%w: round %d is open but not last", ErrInvariant, i+1)
		}
		if r.Complete() {
			if !r.Player2Move.IsSet() {
				return fmt.Errorf("%w: round %d is resolved without a second move", ErrInvariant, i+1)
			}
			if err := m.checkRoundWinner(i, r); err != nil {
				return err
			}
		} else if r.Winner != nil {
			return fmt.Errorf("%w: open round %d has a winner", ErrInvariant, i+1)
		}
	}

	p1, p2 := m.countWins()
	if m.Player1Score != p1 || m.Player2Score != p2 {
		return fmt.Errorf("%w: scores %d-%d do not match round wins %d-%d",
			ErrInvariant, m.Player1Score, m.Player2Score, p1, p2)
	}

	reached := p1 >= rules.WinThreshold || p2 >= rules.WinThreshold
	if m.IsActive == reached {
		return fmt.Errorf("%w: is_active=%t with scores %d-%d and threshold %d",
			ErrInvariant, m.IsActive, p1, p2, rules.WinThreshold)
	}

	switch {
	case m.IsActive && m.Winner != nil:
		return fmt.Errorf("%w: active match has a winner", ErrInvariant)
	case !m.IsActive && m.Winner == nil:
		return fmt.Errorf("%w: finished match has no winner", ErrInvariant)
	case !m.IsActive:
		if m.Winner.ID == m.Player1.ID && p1 < rules.WinThreshold ||
			m.Winner.ID == m.Player2.ID && p2 < rules.WinThreshold ||
			m.Winner.ID != m.Player1.ID && m.Winner.ID != m.Player2.ID {
			return fmt.Errorf("%w: winner %s did not reach the threshold", ErrInvariant, m.Winner.Name)
		}
	}

	return nil
}

func (m *Match) checkRoundWinner(i int, r *Round) error {
	var want *Player
	switch Resolve(r.Player1Move, r.Player2Move) {
	case Player1Wins:
		want = &m.Player1
	case Player2Wins:
		want = &m.Player2
	}
	if want == nil && r.Winner != nil || want != nil && (r.Winner == nil || r.Winner.ID != want.ID) {
		return fmt.Errorf("%w: round %d winner does not match %s vs %s", ErrInvariant, i+1, r.Player1Move, r.Player2Move)
	}
	return nil
}
