// Package websocket provides WebSocket push for the Rock-Paper-Scissors match engine.
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Each client connection has a read goroutine and a
// write goroutine; the hub goroutine owns registration and fan-out.
//
// Clients subscribe to one match via the query parameter (?match=<id>).
// After every accepted mutation the API server calls BroadcastMatch, and each
// subscriber receives:
//
//	{"match_id": "<id>", "event": "match_update", "match": { ...snapshot... }}
//
// Incoming client messages are ignored. Push is a convenience; the source of
// truth is always GET /api/matches/{id}.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("match"))
//	})
package websocket
