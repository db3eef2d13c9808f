package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/rpsmatch/game/engine"
	"github.com/wricardo/mcp-training/rpsmatch/game/store"
)

var testTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newMatch(id string) *engine.Match {
	ana := engine.Player{ID: id + "-p1", Name: "Ana", CreatedAt: testTime}
	luis := engine.Player{ID: id + "-p2", Name: "Luis", CreatedAt: testTime}
	return engine.NewMatch(id, ana, luis, testTime)
}

func setup(t *testing.T) (context.Context, *store.FilePersistence) {
	t.Helper()
	fp, err := store.NewFilePersistence(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}
	return context.Background(), fp
}

func TestValidateMatch_Valid(t *testing.T) {
	ctx, fp := setup(t)
	rules := engine.DefaultRules()

	m := newMatch("good")
	m.Play(engine.Player1Slot, engine.Rock, "r1", testTime, rules)
	m.Play(engine.Player2Slot, engine.Scissors, "r1", testTime, rules)
	if err := fp.Save(ctx, m); err != nil {
		t.Fatalf("Failed to save match: %v", err)
	}

	result := validateMatch(ctx, fp, "good", rules)
	if !result.Valid {
		t.Fatalf("Expected valid match, got %v", result.Messages)
	}
	if result.File != "good.json" {
		t.Errorf("Expected file good.json, got %s", result.File)
	}
	if !containsMessage(result.Messages, "Score: 1-0 after 1 rounds") {
		t.Errorf("Expected score line, got %v", result.Messages)
	}
}

func TestValidateMatch_InvalidJSON(t *testing.T) {
	ctx, fp := setup(t)

	if err := os.WriteFile(filepath.Join(fp.Dir(), "broken.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	result := validateMatch(ctx, fp, "broken", engine.DefaultRules())
	if result.Valid {
		t.Error("Expected invalid result for malformed JSON")
	}
	if !containsMessage(result.Messages, "Failed to load") {
		t.Errorf("Expected load failure, got %v", result.Messages)
	}
}

func TestValidateMatch_IDMismatch(t *testing.T) {
	ctx, fp := setup(t)

	if err := fp.Save(ctx, newMatch("original")); err != nil {
		t.Fatalf("Failed to save match: %v", err)
	}
	if err := os.Rename(filepath.Join(fp.Dir(), "original.json"), filepath.Join(fp.Dir(), "renamed.json")); err != nil {
		t.Fatalf("Failed to rename: %v", err)
	}

	result := validateMatch(ctx, fp, "renamed", engine.DefaultRules())
	if result.Valid {
		t.Error("Expected invalid result for id mismatch")
	}
	if !containsMessage(result.Messages, "does not match file name") {
		t.Errorf("Expected id mismatch message, got %v", result.Messages)
	}
}

func TestValidateMatch_ScoreMismatch(t *testing.T) {
	ctx, fp := setup(t)

	m := newMatch("tampered")
	m.Player1Score = 2
	if err := fp.Save(ctx, m); err != nil {
		t.Fatalf("Failed to save match: %v", err)
	}

	result := validateMatch(ctx, fp, "tampered", engine.DefaultRules())
	if result.Valid {
		t.Error("Expected invalid result for tampered score")
	}
	if !containsMessage(result.Messages, "do not match round wins") {
		t.Errorf("Expected score mismatch message, got %v", result.Messages)
	}
}

func TestValidateMatch_ThresholdMatters(t *testing.T) {
	ctx, fp := setup(t)
	one := engine.Rules{WinThreshold: 1}

	m := newMatch("short")
	m.Play(engine.Player1Slot, engine.Paper, "r1", testTime, one)
	m.Play(engine.Player2Slot, engine.Rock, "r1", testTime, one)
	if err := fp.Save(ctx, m); err != nil {
		t.Fatalf("Failed to save match: %v", err)
	}

	if result := validateMatch(ctx, fp, "short", one); !result.Valid {
		t.Errorf("Expected valid under threshold 1, got %v", result.Messages)
	}
	if result := validateMatch(ctx, fp, "short", engine.DefaultRules()); result.Valid {
		t.Error("Expected finished-after-one-win match to fail under the default threshold")
	}
}

func TestValidateDir(t *testing.T) {
	ctx, fp := setup(t)

	if err := fp.Save(ctx, newMatch("a")); err != nil {
		t.Fatalf("Failed to save match: %v", err)
	}
	if err := fp.Save(ctx, newMatch("b")); err != nil {
		t.Fatalf("Failed to save match: %v", err)
	}

	results, allValid, err := validateDir(ctx, fp.Dir(), engine.DefaultRules())
	if err != nil {
		t.Fatalf("validateDir failed: %v", err)
	}
	if !allValid || len(results) != 2 {
		t.Errorf("Expected 2 valid results, got %d (allValid=%t)", len(results), allValid)
	}

	os.WriteFile(filepath.Join(fp.Dir(), "c.json"), []byte("[]"), 0644)
	_, allValid, err = validateDir(ctx, fp.Dir(), engine.DefaultRules())
	if err != nil {
		t.Fatalf("validateDir failed: %v", err)
	}
	if allValid {
		t.Error("Expected allValid to be false with a bad file present")
	}
}

func containsMessage(messages []string, substr string) bool {
	for _, m := range messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}
