// Command validate checks persisted match files in a matches directory.
// For every *.json file it checks:
//   - the file decodes as a match record
//   - the match id matches the file name
//   - players, rounds, scores, status and winner are consistent with the
//     win threshold (see engine.Match.Validate)
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/rpsmatch/game/config"
	"github.com/wricardo/mcp-training/rpsmatch/game/engine"
	"github.com/wricardo/mcp-training/rpsmatch/game/store"
)

// ValidationResult captures the outcome of validating a single match file.
// If Valid is true, Messages contains informational lines; otherwise it
// holds the problems that were found.
type ValidationResult struct {
	File     string
	Valid    bool
	Messages []string
}

// validateMatch loads one persisted match and checks it against rules
func validateMatch(ctx context.Context, fp *store.FilePersistence, id string, rules engine.Rules) ValidationResult {
	result := ValidationResult{
		File:     id + ".json",
		Valid:    true,
		Messages: []string{},
	}

	match, err := fp.Load(ctx, id)
	if err != nil {
		result.Valid = false
		result.Messages = append(result.Messages, fmt.Sprintf("Failed to load: %v", err))
		return result
	}

	if match.ID != id {
		result.Valid = false
		result.Messages = append(result.Messages, fmt.Sprintf("Match id %q does not match file name", match.ID))
	}

	if err := match.Validate(rules); err != nil {
		result.Valid = false
		result.Messages = append(result.Messages, err.Error())
	}

	if result.Valid {
		result.Messages = append(result.Messages,
			fmt.Sprintf("✓ Players: %s vs %s", match.Player1.Name, match.Player2.Name),
			fmt.Sprintf("✓ Score: %d-%d after %d rounds", match.Player1Score, match.Player2Score, len(match.Rounds)),
			fmt.Sprintf("✓ Status: %s", match.Status),
		)
	}

	return result
}

// validateDir validates every match file in dir and reports whether all passed
func validateDir(ctx context.Context, dir string, rules engine.Rules) ([]ValidationResult, bool, error) {
	fp, err := store.NewFilePersistence(dir)
	if err != nil {
		return nil, false, err
	}

	ids, err := fp.ListAll(ctx)
	if err != nil {
		return nil, false, err
	}

	allValid := true
	results := make([]ValidationResult, 0, len(ids))
	for _, id := range ids {
		result := validateMatch(ctx, fp, id, rules)
		if !result.Valid {
			allValid = false
		}
		results = append(results, result)
	}
	return results, allValid, nil
}

func printReport(results []ValidationResult, allValid bool) {
	for _, result := range results {
		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Messages {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			for _, problem := range result.Messages {
				fmt.Println("  ❌ " + problem)
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Printf("✅ All %d matches are valid!\n", len(results))
	} else {
		fmt.Println("❌ Some matches have errors")
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "validate",
		Usage: "Validate persisted match files",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: config.Defaults().MatchesDir, Usage: "Matches directory", Sources: cli.EnvVars("MATCHES_DIR")},
			&cli.IntFlag{Name: "win-threshold", Value: engine.DefaultWinThreshold, Usage: "Round wins needed to take a match", Sources: cli.EnvVars("WIN_THRESHOLD")},
			&cli.StringFlag{Name: "rules-file", Usage: "JSON file with match rules (overrides --win-threshold)", Sources: cli.EnvVars("RULES_FILE")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rules := engine.Rules{WinThreshold: cmd.Int("win-threshold")}
			if path := cmd.String("rules-file"); path != "" {
				loaded, err := config.LoadRules(path)
				if err != nil {
					return err
				}
				rules = loaded
			}

			results, allValid, err := validateDir(ctx, cmd.String("dir"), rules)
			if err != nil {
				return err
			}
			printReport(results, allValid)
			if !allValid {
				return cli.Exit("", 1)
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
