package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/mcp-training/rpsmatch/game/engine"
)

func TestFilePersistence(t *testing.T) {
	ctx := context.Background()
	tempDir := t.TempDir()

	persistence, err := NewFilePersistence(tempDir)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	match := createTestMatch("test1")
	if _, err := match.Play(engine.Player1Slot, engine.Rock, "r1", testTime, engine.DefaultRules()); err != nil {
		t.Fatalf("Failed to play: %v", err)
	}

	t.Run("Save and Load Match", func(t *testing.T) {
		if err := persistence.Save(ctx, match); err != nil {
			t.Fatalf("Failed to save match: %v", err)
		}

		if !persistence.Exists(ctx, "test1") {
			t.Error("Match file should exist after save")
		}

		loaded, err := persistence.Load(ctx, "test1")
		if err != nil {
			t.Fatalf("Failed to load match: %v", err)
		}
		if loaded.ID != match.ID {
			t.Errorf("Expected ID %s, got %s", match.ID, loaded.ID)
		}
		if len(loaded.Rounds) != 1 || loaded.Rounds[0].Player1Move != engine.Rock {
			t.Errorf("Round not restored: %+v", loaded.Rounds)
		}
		if loaded.Rounds[0].Player2Move.IsSet() {
			t.Error("Unset move should stay unset after reload")
		}
		if err := loaded.Validate(engine.DefaultRules()); err != nil {
			t.Errorf("Loaded match is invalid: %v", err)
		}
	})

	t.Run("Save replaces previous snapshot", func(t *testing.T) {
		updated := match.Clone()
		if _, err := updated.Play(engine.Player2Slot, engine.Scissors, "", testTime, engine.DefaultRules()); err != nil {
			t.Fatalf("Failed to play: %v", err)
		}
		if err := persistence.Save(ctx, updated); err != nil {
			t.Fatalf("Failed to save match: %v", err)
		}

		loaded, err := persistence.Load(ctx, "test1")
		if err != nil {
			t.Fatalf("Failed to load match: %v", err)
		}
		if loaded.Player1Score != 1 {
			t.Errorf("Expected score 1, got %d", loaded.Player1Score)
		}

		entries, _ := os.ReadDir(tempDir)
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), ".tmp") {
				t.Errorf("Temp file left behind: %s", e.Name())
			}
		}
	})

	t.Run("List Matches", func(t *testing.T) {
		if err := persistence.Save(ctx, createTestMatch("test2")); err != nil {
			t.Fatalf("Failed to save match: %v", err)
		}

		ids, err := persistence.ListAll(ctx)
		if err != nil {
			t.Fatalf("Failed to list matches: %v", err)
		}
		if len(ids) != 2 {
			t.Errorf("Expected 2 matches, got %d: %v", len(ids), ids)
		}
	})

	t.Run("Delete Match", func(t *testing.T) {
		if err := persistence.Delete(ctx, "test2"); err != nil {
			t.Fatalf("Failed to delete match: %v", err)
		}
		if persistence.Exists(ctx, "test2") {
			t.Error("Match should not exist after delete")
		}
		if err := persistence.Delete(ctx, "test2"); !errors.Is(err, engine.ErrMatchNotFound) {
			t.Errorf("Expected ErrMatchNotFound, got %v", err)
		}
	})

	t.Run("Load Missing Match", func(t *testing.T) {
		_, err := persistence.Load(ctx, "missing")
		if !errors.Is(err, engine.ErrMatchNotFound) {
			t.Errorf("Expected ErrMatchNotFound, got %v", err)
		}
	})

	t.Run("Unsafe IDs", func(t *testing.T) {
		for _, id := range []string{"../escape", "a/b", "", "dots.json"} {
			if persistence.Exists(ctx, id) {
				t.Errorf("Exists(%q) should be false", id)
			}
			if _, err := persistence.Load(ctx, id); !errors.Is(err, engine.ErrMatchNotFound) {
				t.Errorf("Load(%q): expected ErrMatchNotFound, got %v", id, err)
			}
		}
		bad := createTestMatch("x")
		bad.ID = "../escape"
		if err := persistence.Save(ctx, bad); err == nil {
			t.Error("Save should refuse unsafe id")
		}
	})
}

func TestFilePersistenceFileStructure(t *testing.T) {
	ctx := context.Background()
	tempDir := t.TempDir()

	persistence, err := NewFilePersistence(tempDir)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	match := createTestMatch("struct1")
	if _, err := match.Play(engine.Player1Slot, engine.Paper, "r1", testTime, engine.DefaultRules()); err != nil {
		t.Fatalf("Failed to play: %v", err)
	}
	if err := persistence.Save(ctx, match); err != nil {
		t.Fatalf("Failed to save match: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(tempDir, "struct1.json"))
	if err != nil {
		t.Fatalf("Failed to read match file: %v", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("Match file is not valid JSON: %v", err)
	}
	for _, field := range []string{"id", "saved_at", "match"} {
		if _, ok := doc[field]; !ok {
			t.Errorf("Expected field %q in envelope", field)
		}
	}

	m := doc["match"].(map[string]interface{})
	for _, field := range []string{"player1", "player2", "player1_score", "player2_score", "is_active", "status", "rounds"} {
		if _, ok := m[field]; !ok {
			t.Errorf("Expected field %q in match", field)
		}
	}

	rounds := m["rounds"].([]interface{})
	round := rounds[0].(map[string]interface{})
	if round["player1_move"] != "PAPER" {
		t.Errorf("Expected player1_move PAPER, got %v", round["player1_move"])
	}
	if v, ok := round["player2_move"]; !ok || v != nil {
		t.Errorf("Expected player2_move null, got %v", v)
	}
}

func TestDecodeMatch(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "not json", raw: "{", wantErr: true},
		{name: "missing match", raw: `{"id":"a"}`, wantErr: true},
		{name: "id mismatch", raw: `{"id":"a","match":{"id":"b"}}`, wantErr: true},
		{name: "nil rounds become empty", raw: `{"id":"a","match":{"id":"a"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := decodeMatch([]byte(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if m.Rounds == nil {
				t.Error("Rounds should not be nil")
			}
		})
	}
}
