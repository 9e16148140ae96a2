package jobs

import "errors"

var (
	// ErrNotConfigured means the inference credential is absent. Fatal at
	// submission time; no job record is created.
	ErrNotConfigured = errors.New("inference client is not configured")

	// ErrInvalidGiftContext means the intake lacks a valid parent gift.
	ErrInvalidGiftContext = errors.New("gift context requires a valid gift")
)
