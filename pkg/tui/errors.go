package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrNoControls is returned for forms the document has no controls for.
	ErrNoControls = errors.New("tui: form has no controls")
)

// ErrUnresolved is returned when the form is still invalid or rejected
// after the last allowed round.
var ErrUnresolved = errors.New("tui: form unresolved after the last round")
