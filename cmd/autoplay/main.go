// Command autoplay drives a complete match against a running server through
// the REST API, with one move strategy per player.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/rpsmatch/game/engine"
	"github.com/wricardo/mcp-training/rpsmatch/logger"
)

func main() {
	cmd := &cli.Command{
		Name:  "autoplay",
		Usage: "Play Rock-Paper-Scissors matches against a running server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Server base URL", Sources: cli.EnvVars("RPS_URL")},
			&cli.StringFlag{Name: "player1", Value: "Ana", Usage: "Player one name"},
			&cli.StringFlag{Name: "player2", Value: "Luis", Usage: "Player two name"},
			&cli.StringFlag{Name: "strategy1", Value: "random", Usage: "Player one strategy: random, cycle, counter or a fixed move"},
			&cli.StringFlag{Name: "strategy2", Value: "random", Usage: "Player two strategy"},
			&cli.StringFlag{Name: "match", Usage: "Replay an existing match id instead of creating one"},
			&cli.IntFlag{Name: "games", Value: 1, Usage: "Number of games to play, restarting the match between games"},
			&cli.IntFlag{Name: "max-rounds", Value: 100, Usage: "Give up a game after this many rounds"},
			&cli.DurationFlag{Name: "delay", Usage: "Pause between moves"},
			&cli.Int64Flag{Name: "seed", Usage: "Random seed (0 uses the clock)"},
			&cli.BoolFlag{Name: "verbose", Usage: "Log every round"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger.Fatal("autoplay failed", "error", err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	level := "info"
	if cmd.Bool("verbose") {
		level = "debug"
	}
	logger.Init(level, false)

	seed := cmd.Int64("seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	s1, err := newStrategy(cmd.String("strategy1"), rng)
	if err != nil {
		return err
	}
	s2, err := newStrategy(cmd.String("strategy2"), rng)
	if err != nil {
		return err
	}

	client := NewClient(cmd.String("url"))

	var match *engine.Match
	if id := cmd.String("match"); id != "" {
		match, err = client.GetMatch(ctx, id)
		if err != nil {
			return err
		}
		logger.Info("resuming match", "match_id", match.ID)
	} else {
		match, err = client.CreateMatch(ctx, cmd.String("player1"), cmd.String("player2"))
		if err != nil {
			return err
		}
		logger.Info("match created", "match_id", match.ID)
	}

	p := player{strategy: s1}
	q := player{strategy: s2}
	wins := map[string]int{}

	for game := 1; game <= cmd.Int("games"); game++ {
		if game > 1 || !match.IsActive {
			if match, err = client.Restart(ctx, match.ID); err != nil {
				return err
			}
		}

		match, err = playMatch(ctx, client, match, p, q, cmd.Int("max-rounds"), cmd.Duration("delay"))
		if err != nil {
			return err
		}

		winner := "none"
		if match.Winner != nil {
			winner = match.Winner.Name
		}
		wins[winner]++
		logger.Info("game finished",
			"game", game,
			"winner", winner,
			"score", fmt.Sprintf("%d-%d", match.Player1Score, match.Player2Score),
			"rounds", len(match.Rounds),
		)
	}

	logger.Info("autoplay done",
		"match_id", match.ID,
		"player1", fmt.Sprintf("%s (%s)", match.Player1.Name, s1.Name()),
		"player1_wins", wins[match.Player1.Name],
		"player2", fmt.Sprintf("%s (%s)", match.Player2.Name, s2.Name()),
		"player2_wins", wins[match.Player2.Name],
	)
	return nil
}

type player struct {
	strategy Strategy
}

var errTooManyRounds = errors.New("match did not finish within the round limit")

// playMatch alternates moves until the match finishes or maxRounds rounds
// have completed. Player one always moves first in a round.
func playMatch(ctx context.Context, client *Client, match *engine.Match, p1, p2 player, maxRounds int, delay time.Duration) (*engine.Match, error) {
	var err error
	for match.IsActive {
		if completedRounds(match) >= maxRounds {
			return match, errTooManyRounds
		}

		move1 := p1.strategy.NextMove(match, engine.Player1Slot)
		move2 := p2.strategy.NextMove(match, engine.Player2Slot)

		if !awaitingPlayerTwo(match) {
			if match, err = client.SubmitMove(ctx, match.ID, match.Player1.ID, move1); err != nil {
				return nil, fmt.Errorf("player one move: %w", err)
			}
			pause(ctx, delay)
		}

		if match, err = client.SubmitMove(ctx, match.ID, match.Player2.ID, move2); err != nil {
			return nil, fmt.Errorf("player two move: %w", err)
		}
		pause(ctx, delay)

		if last, ok := lastCompleted(match); ok {
			logger.Debug("round",
				"round", completedRounds(match),
				"player1", last.Player1Move,
				"player2", last.Player2Move,
				"result", last.Result,
			)
		}
	}
	return match, nil
}

// awaitingPlayerTwo reports whether the open round already holds a move from
// player one, as happens when resuming a match
func awaitingPlayerTwo(match *engine.Match) bool {
	if len(match.Rounds) == 0 {
		return false
	}
	last := match.Rounds[len(match.Rounds)-1]
	return !last.Complete() && last.Player1Move.IsSet()
}

func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
