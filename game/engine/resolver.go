package engine

// Outcome is the result of a completed round from player1's point of view
type Outcome int

const (
	Tie Outcome = iota
	Player1Wins
	Player2Wins
)

func (o Outcome) String() string {
	switch o {
	case Player1Wins:
		return "player1"
	case Player2Wins:
		return "player2"
	}
	return "tie"
}

// beats maps each move to the move it defeats
var beats = map[Move]Move{
	Rock:     Scissors,
	Scissors: Paper,
	Paper:    Rock,
}

// Beats reports whether m defeats other
func (m Move) Beats(other Move) bool {
	return beats[m] == other
}

// Resolve decides a round. Both moves must already be valid.
func Resolve(move1, move2 Move) Outcome {
	switch {
	case move1 == move2:
		return Tie
	case move1.Beats(move2):
		return Player1Wins
	default:
		return Player2Wins
	}
}
