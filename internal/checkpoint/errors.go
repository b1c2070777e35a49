package checkpoint

import "errors"

var (
	// ErrNotFound indicates no chain or checkpoint exists for the task.
	ErrNotFound = errors.New("checkpoint not found")
	// ErrDuplicateActiveSession indicates a non-terminal chain already
	// exists for the task.
	ErrDuplicateActiveSession = errors.New("duplicate active session")
	// ErrStaleChain indicates the caller's base sequence no longer matches
	// the stored latest checkpoint — a concurrent advance won.
	ErrStaleChain = errors.New("stale chain")
	// ErrChainClosed indicates the chain reached a terminal outcome and no
	// further appends are permitted.
	ErrChainClosed = errors.New("chain closed")
)
