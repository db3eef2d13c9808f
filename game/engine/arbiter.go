package engine

import "fmt"

// AdmissibleSlot decides whether playerID may move right now and which slot
// of the current round the move fills. Player1Slot on a match with no open
// round means the move starts a new round. The match is not modified.
func AdmissibleSlot(m *Match, playerID string) (Slot, error) {
	if !m.IsActive {
		return 0, ErrMatchFinished
	}

	isPlayer1 := playerID == m.Player1.ID
	isPlayer2 := playerID == m.Player2.ID
	if !isPlayer1 && !isPlayer2 {
		return 0, &Error{
			Kind:    KindUnknownPlayer,
			Message: fmt.Sprintf("player %s is not part of match %s", playerID, m.ID),
		}
	}

	current := m.OpenRound()
	if current == nil {
		// The starter role is fixed to player1 for every round
		if isPlayer1 {
			return Player1Slot, nil
		}
		return 0, notYourTurn(m.Player1)
	}

	if isPlayer1 && current.Player1Move.IsSet() {
		return 0, ErrDuplicateMove
	}
	if isPlayer2 && current.Player2Move.IsSet() {
		return 0, ErrDuplicateMove
	}

	if !current.Player1Move.IsSet() {
		if isPlayer1 {
			return Player1Slot, nil
		}
		return 0, notYourTurn(m.Player1)
	}

	if isPlayer2 {
		return Player2Slot, nil
	}
	return 0, notYourTurn(m.Player2)
}

func notYourTurn(waitingOn Player) error {
	return &Error{
		Kind:    KindNotYourTurn,
		Message: fmt.Sprintf("not your turn: waiting for %s", waitingOn.Name),
	}
}
