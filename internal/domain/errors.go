package domain

import "errors"

var (
	// ErrInvalidQuestion is returned when a ledger operation names a question outside the session.
	ErrInvalidQuestion = errors.New("question not part of session")
	// ErrEmptyQuestionSet is returned when a session is created without questions.
	ErrEmptyQuestionSet = errors.New("question set is empty")
	// ErrInvalidDuration is returned when a session is created with a non-positive duration.
	ErrInvalidDuration = errors.New("duration must be positive")
	// ErrInvalidQuestionSet indicates malformed or duplicate questions at creation time.
	ErrInvalidQuestionSet = errors.New("invalid question set")
	// ErrUnknownSession is returned when dispatching against a missing or expired session.
	ErrUnknownSession = errors.New("exam session not found")
	// ErrExamNotFound indicates the exam content could not be loaded.
	ErrExamNotFound = errors.New("exam not found")
)

// ErrUnsupportedEvent is returned when a dispatched event has no handler.
var ErrUnsupportedEvent = errors.New("unsupported session event")
