// Package engine provides the core rules of a two-player Rock-Paper-Scissors match.
//
// The engine package implements:
//   - Move validation and round resolution (Resolve)
//   - Turn ownership (AdmissibleSlot)
//   - Round lifecycle, score accumulation and win detection (Match.Play)
//   - Restart to a fresh match with the same identity (Match.Restart)
//   - Invariant checking for snapshots loaded from storage (Match.Validate)
//
// Core Types:
//
// Match holds the two players, both scores, the winner and the ordered round
// history. Round records the two moves of one exchange and its result. Move is
// one of ROCK, PAPER or SCISSORS. Every rejection is an *Error carrying an
// ErrorKind that transports can surface to players.
//
// Usage:
//
//	m := engine.NewMatch(id, ana, luis, time.Now())
//
//	slot, err := engine.AdmissibleSlot(m, ana.ID)
//	if err != nil {
//		return err // NOT_YOUR_TURN, DUPLICATE_MOVE, ...
//	}
//	round, err := m.Play(slot, engine.Rock, roundID, time.Now(), engine.DefaultRules())
//
// Game Rules:
//
// ROCK beats SCISSORS, SCISSORS beats PAPER and PAPER beats ROCK. Player1
// always opens a round and player2 answers. A tied round is recorded without
// changing the score and play moves on to a fresh round. The first player to
// win three rounds takes the match.
//
// The package holds no locks. Callers serialize mutations of a Match; the
// store package does this per match id.
package engine
