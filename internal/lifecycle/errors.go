package lifecycle

import "errors"

var (
	// ErrNotFound means the order or master does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoCityOverlap means the master serves none of the order's cities.
	ErrNoCityOverlap = errors.New("master does not serve the order's city")
	// ErrInvalidTransition means the requested status change is not in the
	// transition table.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrTerminalState means the order is already closed.
	ErrTerminalState = errors.New("order is in a terminal state")
	// ErrMasterInactive means the master is fired.
	ErrMasterInactive = errors.New("master is not active")
	// ErrNotAssigned means the acting master is not the order's master.
	ErrNotAssigned = errors.New("order is not assigned to this master")
	// ErrInvalidAmount means a settlement figure is negative.
	ErrInvalidAmount = errors.New("settlement amounts must not be negative")
)
