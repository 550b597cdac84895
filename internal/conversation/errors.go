package conversation

import "errors"

var (
	// ErrEmptyTranscript is returned for a session without messages.
	ErrEmptyTranscript = errors.New("session has no messages")

	// ErrNoJSON is returned when a completion contains no JSON object.
	ErrNoJSON = errors.New("no JSON found in response")

	// ErrMissingKeys is returned when a completion's JSON lacks a requested key.
	ErrMissingKeys = errors.New("response is missing required keys")
)
