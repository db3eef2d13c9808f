// Package config provides server configuration for the Rock-Paper-Scissors match engine.
//
// The config package handles:
//   - Command line flags, each backed by an environment variable
//   - Validation of the resulting settings
//   - Loading match rules from a JSON file
//
// Sources:
//
// Values come from flags first, then environment variables, then defaults.
// main loads a .env file before flags are parsed, so anything in it behaves
// like a regular environment variable.
//
// Rules File:
//
// A rules file is a JSON object using the engine.Rules field names:
//
//	{"win_threshold": 5}
//
// Usage:
//
//	cmd := &cli.Command{
//		Flags: config.Flags(),
//		Action: func(ctx context.Context, cmd *cli.Command) error {
//			cfg, err := config.FromCommand(cmd)
//			if err != nil {
//				return err
//			}
//			...
//		},
//	}
package config
