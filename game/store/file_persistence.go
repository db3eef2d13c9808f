package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/wricardo/mcp-training/rpsmatch/game/engine"
)

var safeID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// FilePersistence implements MatchPersistence with one JSON file per match
type FilePersistence struct {
	matchesDir string
}

// NewFilePersistence creates a new file-based persistence layer
func NewFilePersistence(matchesDir string) (*FilePersistence, error) {
	// Create matches directory if it doesn't exist
	if err := os.MkdirAll(matchesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create matches directory: %w", err)
	}

	return &FilePersistence{
		matchesDir: matchesDir,
	}, nil
}

// Save writes the snapshot to a temp file and renames it into place
func (fp *FilePersistence) Save(ctx context.Context, match *engine.Match) error {
	if match == nil {
		return fmt.Errorf("match cannot be nil")
	}
	filePath, err := fp.getFilePath(match.ID)
	if err != nil {
		return err
	}

	jsonData, err := encodeMatch(match, true)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(fp.matchesDir, match.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(jsonData); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write match file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write match file: %w", err)
	}

	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return fmt.Errorf("failed to replace match file: %w", err)
	}

	return nil
}

// Load retrieves a snapshot from its JSON file
func (fp *FilePersistence) Load(ctx context.Context, id string) (*engine.Match, error) {
	filePath, err := fp.getFilePath(id)
	if err != nil {
		return nil, engine.ErrMatchNotFound
	}

	jsonData, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, engine.ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to read match file: %w", err)
	}

	return decodeMatch(jsonData)
}

// Delete removes a match file
func (fp *FilePersistence) Delete(ctx context.Context, id string) error {
	if !fp.Exists(ctx, id) {
		return engine.ErrMatchNotFound
	}

	filePath, err := fp.getFilePath(id)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to remove match file: %w", err)
	}

	return nil
}

// ListAll returns all persisted match ids
func (fp *FilePersistence) ListAll(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(fp.matchesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read matches directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasSuffix(name, ".json") {
			ids = append(ids, strings.TrimSuffix(name, ".json"))
		}
	}

	return ids, nil
}

// Exists checks if a match file exists
func (fp *FilePersistence) Exists(ctx context.Context, id string) bool {
	filePath, err := fp.getFilePath(id)
	if err != nil {
		return false
	}
	_, err = os.Stat(filePath)
	return err == nil
}

// Dir returns the directory holding the match files
func (fp *FilePersistence) Dir() string {
	return fp.matchesDir
}

// getFilePath returns the full file path for a match id. Ids that could
// escape the directory are refused.
func (fp *FilePersistence) getFilePath(id string) (string, error) {
	if !safeID.MatchString(id) {
		return "", fmt.Errorf("invalid match id %q", id)
	}
	return filepath.Join(fp.matchesDir, fmt.Sprintf("%s.json", id)), nil
}
