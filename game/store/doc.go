// Package store holds match records for the Rock-Paper-Scissors match engine.
//
// The store package implements:
//   - A map of match id to the latest published snapshot
//   - Per-match serialized updates with copy-on-write publication
//   - Optional write-through persistence (file, Redis or PostgreSQL)
//   - Lazy loading of persisted matches on first access
//
// Core Types:
//
// Store is the match store. Every match owns its own lock, so updates to
// different matches proceed in parallel while updates to the same match are
// applied one at a time. Readers never block on writers: they load the last
// published snapshot and get a deep copy of it.
//
// MatchPersistence is the storage backend contract. FilePersistence writes
// one JSON file per match, RedisPersistence stores one key per match plus an
// index set, and PostgresPersistence keeps a JSONB row per match.
//
// Update semantics:
//
//	updated, err := st.Update(ctx, id, func(m *engine.Match) error {
//		slot, err := engine.AdmissibleSlot(m, playerID)
//		if err != nil {
//			return err
//		}
//		_, err = m.Play(slot, move, roundID, now, rules)
//		return err
//	})
//
// The callback works on a private copy. If it returns an error, or the copy
// cannot be persisted, the published snapshot is left untouched.
package store
