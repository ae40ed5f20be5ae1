package domain

import "errors"

var (
	// ErrPoolTooSmall is returned when fewer than 4 usable vocabulary items
	// are available; a 4-way choice set cannot be built.
	ErrPoolTooSmall = errors.New("vocabulary pool too small (need at least 4 items)")
	// ErrSourceUnavailable indicates a vocabulary source could not be read.
	ErrSourceUnavailable = errors.New("vocabulary source unavailable")
	// ErrNoLiveQuestion is returned when an answer arrives with no issued question.
	ErrNoLiveQuestion = errors.New("no live question for session")
	// ErrAnswerInFlight is returned when a submission arrives while a prior
	// one is still being recorded; the new one is dropped, not queued.
	ErrAnswerInFlight = errors.New("answer already in flight")
	// ErrSessionNotActive is returned for game operations outside a running round.
	ErrSessionNotActive = errors.New("session not active")
	// ErrSessionActive is returned when starting a round that is already running.
	ErrSessionActive = errors.New("session already active")
	// ErrRemoteUnavailable wraps failures of a remote-backed score ledger.
	ErrRemoteUnavailable = errors.New("remote score store unavailable")
	// ErrInvalidLabel indicates a submitted choice outside A-D.
	ErrInvalidLabel = errors.New("invalid choice label")
)
