package email

import "errors"

var (
	// ErrRateLimitExceeded is returned when a recipient's hourly limit is reached
	ErrRateLimitExceeded = errors.New("email rate limit exceeded")

	// ErrNoRecipient is returned when a message has no To address
	ErrNoRecipient = errors.New("email has no recipient")
)
