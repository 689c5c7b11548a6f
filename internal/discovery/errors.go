package discovery

import "errors"

// Error taxonomy surfaced by the engine. Handlers map these to HTTP statuses;
// everything else is wrapped as ErrStoreUnavailable so callers can retry.
var (
	ErrInvalidFilter     = errors.New("invalid filter")
	ErrNotFound          = errors.New("profile not found")
	ErrTargetUnavailable = errors.New("target profile unavailable")
	ErrAlreadyInteracted = errors.New("already interacted with this profile")
	ErrMatchNotFound     = errors.New("match not found")
	ErrUnauthorized      = errors.New("unauthorized to perform this action")
	ErrStoreUnavailable  = errors.New("profile store unavailable")
)
