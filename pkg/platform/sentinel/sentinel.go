package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Infrastructure clients return
// these wrapped so callers can branch without string matching.
var (
	ErrUnavailable = errors.New("unavailable")
)
