package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrUnresolvable is returned when submission is blocked by errors on
	// fields the user cannot reach (hidden or read-only).
	ErrUnresolvable = errors.New("tui: blocking errors on fields that cannot be prompted")
	// ErrTooManyAttempts is returned when the configured number of correction
	// rounds is exhausted.
	ErrTooManyAttempts = errors.New("tui: too many attempts")
)
