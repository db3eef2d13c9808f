package service

import (
	"context"

	"github.com/wricardo/mcp-training/rpsmatch/game/engine"
)

// MatchService defines all match operations. It is the only component
// transports talk to.
type MatchService interface {
	// Match lifecycle
	CreateMatch(ctx context.Context, player1Name, player2Name string) (*engine.Match, error)
	GetMatch(ctx context.Context, matchID string) (*engine.Match, error)
	ListMatches(ctx context.Context) ([]*engine.Match, error)
	DeleteMatch(ctx context.Context, matchID string) error

	// Play
	SubmitMove(ctx context.Context, matchID, playerID, move string) (*engine.Match, error)
	RestartMatch(ctx context.Context, matchID string) (*engine.Match, error)

	// Players registered by any known match
	ListPlayers(ctx context.Context) ([]engine.Player, error)
	GetPlayer(ctx context.Context, playerID string) (*engine.Player, error)

	// Rules returns the rules every match is played under
	Rules() engine.Rules
}

// MatchStore defines match storage operations
type MatchStore interface {
	Create(ctx context.Context, match *engine.Match) error
	Get(ctx context.Context, id string) (*engine.Match, error)
	Update(ctx context.Context, id string, fn func(m *engine.Match) error) (*engine.Match, error)
	List(ctx context.Context) []*engine.Match
	Delete(ctx context.Context, id string) error
}
