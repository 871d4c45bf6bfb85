package plaid

import (
	"errors"
	"fmt"
)

// Sync error sentinels, matched with errors.Is against a *SyncError.
var (
	ErrLocked       = errors.New("plaid item locked")
	ErrNotConnected = errors.New("plaid item not connected")
)

// SyncErrorKind classifies a failed sync.
type SyncErrorKind int

// Sync error kinds.
const (
	// SyncLocked means the institution flagged the token and the user must
	// resolve it out of band. No response currently maps to it.
	SyncLocked SyncErrorKind = iota
	// SyncNotConnected means the link was severed and must be re-verified
	// with PatchInstitution.
	SyncNotConnected
)

func (k SyncErrorKind) String() string {
	if k == SyncLocked {
		return "locked"
	}
	return "not_connected"
}

// SyncError reports why a sync produced no data for a token.
type SyncError struct {
	Provider    *ProviderError
	AccessToken string
	Kind        SyncErrorKind
}

func (e *SyncError) Error() string {
	if e.Provider != nil {
		return fmt.Sprintf("sync %s: %v", e.Kind, e.Provider)
	}
	return "sync " + e.Kind.String()
}

// Is matches the kind sentinels.
func (e *SyncError) Is(target error) bool {
	switch target {
	case ErrLocked:
		return e.Kind == SyncLocked
	case ErrNotConnected:
		return e.Kind == SyncNotConnected
	}
	return false
}

// Unwrap exposes the provider error.
func (e *SyncError) Unwrap() error {
	if e.Provider == nil {
		return nil
	}
	return e.Provider
}
