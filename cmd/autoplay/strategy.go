package main

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/wricardo/mcp-training/rpsmatch/game/engine"
)

// Strategy picks the next move for one side of a match
type Strategy interface {
	Name() string
	NextMove(match *engine.Match, self engine.Slot) engine.Move
}

// newStrategy builds a strategy by name: random, cycle, counter, or a fixed
// move such as ROCK
func newStrategy(name string, rng *rand.Rand) (Strategy, error) {
	switch strings.ToLower(name) {
	case "random":
		return &randomStrategy{rng: rng}, nil
	case "cycle":
		return &cycleStrategy{}, nil
	case "counter":
		return &counterStrategy{fallback: &randomStrategy{rng: rng}}, nil
	}

	move, err := engine.ParseMove(strings.ToUpper(name))
	if err != nil {
		return nil, fmt.Errorf("unknown strategy %q (use random, cycle, counter, ROCK, PAPER or SCISSORS)", name)
	}
	return fixedStrategy{move: move}, nil
}

type randomStrategy struct {
	rng *rand.Rand
}

func (s *randomStrategy) Name() string { return "random" }

func (s *randomStrategy) NextMove(_ *engine.Match, _ engine.Slot) engine.Move {
	return engine.Moves[s.rng.Intn(len(engine.Moves))]
}

// cycleStrategy plays ROCK, PAPER, SCISSORS in turn, one per round
type cycleStrategy struct{}

func (cycleStrategy) Name() string { return "cycle" }

func (cycleStrategy) NextMove(match *engine.Match, _ engine.Slot) engine.Move {
	return engine.Moves[completedRounds(match)%len(engine.Moves)]
}

// counterStrategy plays whatever beats the opponent's last move
type counterStrategy struct {
	fallback Strategy
}

func (s *counterStrategy) Name() string { return "counter" }

func (s *counterStrategy) NextMove(match *engine.Match, self engine.Slot) engine.Move {
	last, ok := lastCompleted(match)
	if !ok {
		return s.fallback.NextMove(match, self)
	}

	opponent := last.Player1Move
	if self == engine.Player1Slot {
		opponent = last.Player2Move
	}
	return beaterOf(opponent)
}

type fixedStrategy struct {
	move engine.Move
}

func (s fixedStrategy) Name() string { return string(s.move) }

func (s fixedStrategy) NextMove(_ *engine.Match, _ engine.Slot) engine.Move {
	return s.move
}

func beaterOf(move engine.Move) engine.Move {
	for _, m := range engine.Moves {
		if m.Beats(move) {
			return m
		}
	}
	return engine.Rock
}

func completedRounds(match *engine.Match) int {
	n := 0
	for i := range match.Rounds {
		if match.Rounds[i].Complete() {
			n++
		}
	}
	return n
}

func lastCompleted(match *engine.Match) (engine.Round, bool) {
	for i := len(match.Rounds) - 1; i >= 0; i-- {
		if match.Rounds[i].Complete() {
			return match.Rounds[i], true
		}
	}
	return engine.Round{}, false
}
