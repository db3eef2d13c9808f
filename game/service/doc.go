// Package service provides the business logic layer for the Rock-Paper-Scissors match engine.
//
// The service package implements:
//   - Match creation with fresh player and match identifiers
//   - Move validation and application
//   - Match restart and removal
//   - Snapshot reads for transports
//
// Core Interfaces:
//
// MatchService is the main service interface providing high-level match operations.
// MatchStore handles match storage and the atomic per-match update primitive.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the engine. Every mutation runs inside MatchStore.Update, so the turn check
// and the move it admits are applied against the same snapshot. Two players
// racing on one match cannot both be accepted for the same slot.
//
// Usage:
//
//	st := store.NewStore(engine.DefaultRules())
//	svc := service.NewMatchService(st, engine.DefaultRules())
//
//	m, err := svc.CreateMatch(ctx, "Ana", "Luis")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	m, err = svc.SubmitMove(ctx, m.ID, m.Player1.ID, "ROCK")
//	m, err = svc.SubmitMove(ctx, m.ID, m.Player2.ID, "SCISSORS")
//
// Error Handling:
//
// Rejections are *engine.Error values. Use errors.Is against the engine
// sentinels, or engine.KindOf to map them to transport status codes.
package service
