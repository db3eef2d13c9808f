package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/mcp-training/rpsmatch/game/engine"
	"github.com/wricardo/mcp-training/rpsmatch/logger"
	"github.com/wricardo/mcp-training/rpsmatch/metrics"
)

// matchServiceImpl implements the MatchService interface
type matchServiceImpl struct {
	store MatchStore
	rules engine.Rules
	newID func() string
	now   func() time.Time
}

// Option customizes a MatchService
type Option func(*matchServiceImpl)

// WithIDGenerator replaces the UUID generator used for match, player and round ids
func WithIDGenerator(fn func() string) Option {
	return func(s *matchServiceImpl) { s.newID = fn }
}

// WithClock replaces time.Now
func WithClock(fn func() time.Time) Option {
	return func(s *matchServiceImpl) { s.now = fn }
}

// NewMatchService creates a new match service instance
func NewMatchService(store MatchStore, rules engine.Rules, opts ...Option) MatchService {
	if rules.WinThreshold <= 0 {
		rules = engine.DefaultRules()
	}
	s := &matchServiceImpl{
		store: store,
		rules: rules,
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *matchServiceImpl) Rules() engine.Rules {
	return s.rules
}

// CreateMatch registers two players and a fresh match between them
func (s *matchServiceImpl) CreateMatch(ctx context.Context, player1Name, player2Name string) (*engine.Match, error) {
	name1 := strings.TrimSpace(player1Name)
	name2 := strings.TrimSpace(player2Name)
	if name1 == "" || name2 == "" {
		return nil, engine.ErrInvalidPlayerName
	}

	now := s.now()
	player1 := engine.Player{ID: s.newID(), Name: name1, CreatedAt: now}
	player2 := engine.Player{ID: s.newID(), Name: name2, CreatedAt: now}
	match := engine.NewMatch(s.newID(), player1, player2, now)

	if err := s.store.Create(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	metrics.MatchesCreated.Inc()
	logger.Info("match created", "match_id", match.ID, "player1", name1, "player2", name2)

	return s.store.Get(ctx, match.ID)
}

// GetMatch returns a snapshot of the match
func (s *matchServiceImpl) GetMatch(ctx context.Context, matchID string) (*engine.Match, error) {
	return s.store.Get(ctx, matchID)
}

// ListMatches returns all known matches, newest first
func (s *matchServiceImpl) ListMatches(ctx context.Context) ([]*engine.Match, error) {
	matches := s.store.List(ctx)
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}

// ListPlayers returns every player seated in a known match, ordered by name
// then id
func (s *matchServiceImpl) ListPlayers(ctx context.Context) ([]engine.Player, error) {
	seen := make(map[string]bool)
	var players []engine.Player
	for _, m := range s.store.List(ctx) {
		for _, p := range []engine.Player{m.Player1, m.Player2} {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			players = append(players, p)
		}
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].Name == players[j].Name {
			return players[i].ID < players[j].ID
		}
		return players[i].Name < players[j].Name
	})
	return players, nil
}

// GetPlayer looks a player up by id across all known matches
func (s *matchServiceImpl) GetPlayer(ctx context.Context, playerID string) (*engine.Player, error) {
	for _, m := range s.store.List(ctx) {
		for _, p := range []engine.Player{m.Player1, m.Player2} {
			if p.ID == playerID {
				return &p, nil
			}
		}
	}
	return nil, engine.ErrPlayerNotFound
}

// DeleteMatch removes a match
func (s *matchServiceImpl) DeleteMatch(ctx context.Context, matchID string) error {
	if err := s.store.Delete(ctx, matchID); err != nil {
		return err
	}
	logger.Info("match deleted", "match_id", matchID)
	return nil
}

// SubmitMove applies one player's move. Checks run in order: the match must
// exist, the move must parse, then the arbiter decides whether the player may
// act. A rejected move leaves the match unchanged.
func (s *matchServiceImpl) SubmitMove(ctx context.Context, matchID, playerID, move string) (*engine.Match, error) {
	var (
		slot      engine.Slot
		completed *engine.Round
	)

	updated, err := s.store.Update(ctx, matchID, func(m *engine.Match) error {
		parsed, err := engine.ParseMove(move)
		if err != nil {
			return err
		}

		slot, err = engine.AdmissibleSlot(m, playerID)
		if err != nil {
			return err
		}

		roundID := ""
		if slot == engine.Player1Slot {
			roundID = s.newID()
		}
		completed, err = m.Play(slot, parsed, roundID, s.now(), s.rules)
		return err
	})
	if err != nil {
		if kind, ok := engine.KindOf(err); ok {
			metrics.MovesRejected.WithLabelValues(string(kind)).Inc()
			logger.Debug("move rejected", "match_id", matchID, "player_id", playerID, "kind", kind, "reason", err.Error())
			return nil, err
		}
		return nil, fmt.Errorf("failed to submit move: %w", err)
	}

	metrics.MovesApplied.WithLabelValues(slot.String()).Inc()
	if completed != nil {
		outcome := engine.Resolve(completed.Player1Move, completed.Player2Move)
		metrics.RoundsCompleted.WithLabelValues(outcome.String()).Inc()
		logger.Info("round completed", "match_id", matchID, "result", completed.Result)
	}
	if !updated.IsActive {
		metrics.MatchesFinished.Inc()
		logger.Info("match finished", "match_id", matchID, "winner", updated.Winner.Name)
	}

	return updated, nil
}

// RestartMatch clears scores, rounds and winner, keeping the players
func (s *matchServiceImpl) RestartMatch(ctx context.Context, matchID string) (*engine.Match, error) {
	updated, err := s.store.Update(ctx, matchID, func(m *engine.Match) error {
		m.Restart(s.now())
		return nil
	})
	if err != nil {
		if errors.Is(err, engine.ErrMatchNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to restart match: %w", err)
	}

	metrics.MatchesRestarted.Inc()
	logger.Info("match restarted", "match_id", matchID)
	return updated, nil
}
