package sentinel

import "errors"

// Sentinel errors for infrastructure facts. The key-value media return these
// (optionally wrapped) so the record store can translate them into domain errors.
//
// These represent factual states about the medium, not validation failures:
// - ErrNotFound: key does not exist in the medium
// - ErrQuotaExceeded: medium refused a write because it is full
// - ErrUnavailable: medium temporarily unreachable
// - ErrInvalidState: stored document cannot be decoded
var (
	ErrNotFound      = errors.New("not found")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrUnavailable   = errors.New("unavailable")
	ErrInvalidState  = errors.New("invalid state")
)
