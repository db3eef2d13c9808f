package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wricardo/mcp-training/rpsmatch/game/engine"
)

// MatchPersistence defines the interface for persisting match snapshots
type MatchPersistence interface {
	// Save persists a snapshot, replacing any previous one with the same id
	Save(ctx context.Context, match *engine.Match) error

	// Load retrieves a snapshot by id, or engine.ErrMatchNotFound
	Load(ctx context.Context, id string) (*engine.Match, error)

	// Delete removes a snapshot from storage
	Delete(ctx context.Context, id string) error

	// ListAll returns all persisted match ids
	ListAll(ctx context.Context) ([]string, error)

	// Exists checks if a snapshot exists in storage
	Exists(ctx context.Context, id string) bool
}

// PersistedMatchData is the JSON envelope every backend stores
type PersistedMatchData struct {
	ID      string        `json:"id"`
	SavedAt time.Time     `json:"saved_at"`
	Match   *engine.Match `json:"match"`
}

func encodeMatch(match *engine.Match, indent bool) ([]byte, error) {
	if match == nil {
		return nil, fmt.Errorf("match cannot be nil")
	}

	data := PersistedMatchData{
		ID:      match.ID,
		SavedAt: time.Now().UTC(),
		Match:   match,
	}

	var (
		out []byte
		err error
	)
	if indent {
		out, err = json.MarshalIndent(data, "", "  ")
	} else {
		out, err = json.Marshal(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal match data: %w", err)
	}
	return out, nil
}

func decodeMatch(raw []byte) (*engine.Match, error) {
	var data PersistedMatchData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match data: %w", err)
	}
	if data.Match == nil {
		return nil, fmt.Errorf("persisted record %s has no match", data.ID)
	}
	if data.Match.ID != data.ID {
		return nil, fmt.Errorf("persisted record id %s does not match match id %s", data.ID, data.Match.ID)
	}
	if data.Match.Rounds == nil {
		data.Match.Rounds = []engine.Round{}
	}
	return data.Match, nil
}
