// Package api provides HTTP REST API handlers for the Rock-Paper-Scissors match engine.
//
// Endpoints:
//
// Matches:
//   - POST /api/matches - Create a match from {"player1_name", "player2_name"}
//   - GET /api/matches - List matches (query: order=asc|desc, limit=N)
//   - GET /api/matches/{id} - Get a match snapshot
//   - DELETE /api/matches/{id} - Delete a match
//
// Players:
//   - GET /api/players - List players seated in known matches
//   - GET /api/players/{id} - Get one player
//
// Play:
//   - POST /api/matches/{id}/moves - Submit {"player_id", "move"}
//   - POST /api/matches/{id}/restart - Reset scores and rounds
//
// Other:
//   - GET /api - Endpoint index
//   - GET /api/rules - Move cycle and win threshold
//   - GET /ws?match={id} - WebSocket subscription to match updates
//   - GET /healthz - Liveness check
//   - GET /metrics - Prometheus metrics
//
// Errors:
//
// Every error body is {"error": message, "kind": KIND}. Rejections carry the
// engine error kind and map to a status code:
//
//	MATCH_NOT_FOUND, PLAYER_NOT_FOUND                 404
//	INVALID_MOVE, INVALID_PLAYER_NAME, UNKNOWN_PLAYER 400
//	NOT_YOUR_TURN, DUPLICATE_MOVE, MATCH_FINISHED     409
//
// Malformed bodies return 400 with kind BAD_REQUEST. Anything else is a 500
// with kind INTERNAL.
//
// After every accepted move or restart the server pushes the new snapshot to
// WebSocket subscribers of that match.
package api
