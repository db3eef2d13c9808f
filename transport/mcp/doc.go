// Package mcp provides a Model Context Protocol server for the Rock-Paper-Scissors match engine.
//
// The Client is a thin proxy: every tool call becomes one REST request against
// the api package, so MCP agents and HTTP clients see exactly the same rules
// and errors.
//
// MCP Tools:
//   - create_match: Create a match between two named players
//   - get_match: Get scores, rounds and the player to move
//   - submit_move: Play ROCK, PAPER or SCISSORS for a player
//   - restart_match: Reset scores and rounds
//   - list_matches: List known matches
//   - game_rules: Describe the rules and win threshold
//
// Rejections are returned as tool errors prefixed with their kind, for
// example "NOT_YOUR_TURN: not your turn: waiting for Ana".
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: POST /mcp, handled in main via MCPServer.HandleMessage
package mcp
