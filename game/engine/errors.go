package engine

import "errors"

// ErrorKind classifies why a request was rejected
type ErrorKind string

const (
	KindMatchNotFound     ErrorKind = "MATCH_NOT_FOUND"
	KindUnknownPlayer     ErrorKind = "UNKNOWN_PLAYER"
	KindInvalidMove       ErrorKind = "INVALID_MOVE"
	KindInvalidPlayerName ErrorKind = "INVALID_PLAYER_NAME"
	KindNotYourTurn       ErrorKind = "NOT_YOUR_TURN"
	KindDuplicateMove     ErrorKind = "DUPLICATE_MOVE"
	KindMatchFinished     ErrorKind = "MATCH_FINISHED"
	KindPlayerNotFound    ErrorKind = "PLAYER_NOT_FOUND"
)

// Error is a rejection of a single request. Two errors are equal under
// errors.Is when their kinds match, so callers can attach detail messages.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrMatchNotFound     = &Error{Kind: KindMatchNotFound, Message: "match not found"}
	ErrUnknownPlayer     = &Error{Kind: KindUnknownPlayer, Message: "player is not part of this match"}
	ErrInvalidMove       = &Error{Kind: KindInvalidMove, Message: "invalid move: must be ROCK, PAPER or SCISSORS"}
	ErrInvalidPlayerName = &Error{Kind: KindInvalidPlayerName, Message: "player name must not be empty"}
	ErrNotYourTurn       = &Error{Kind: KindNotYourTurn, Message: "not your turn"}
	ErrDuplicateMove     = &Error{Kind: KindDuplicateMove, Message: "move already submitted for this round"}
	ErrMatchFinished     = &Error{Kind: KindMatchFinished, Message: "match is already finished"}
	ErrPlayerNotFound    = &Error{Kind: KindPlayerNotFound, Message: "player not found"}
)

// KindOf extracts the rejection kind from err, if any
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
