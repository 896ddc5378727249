package rotauth

import "errors"

var (
	// ErrTokenInvalid is returned for any token that cannot be accepted for
	// structural reasons: undecodable, forged, expired, or of the wrong type.
	// The categories are deliberately collapsed; only the audit log records
	// which one occurred.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrFamilyInvalidated is returned when the presented token belongs to a
	// poisoned lineage, or when its presentation is the replay that poisons
	// it. Callers must treat every session of the lineage as compromised and
	// force re-authentication.
	ErrFamilyInvalidated = errors.New("token family invalidated")
	// ErrStoreUnavailable is returned when the ledger cannot be consulted.
	// The request is rejected; retry is the caller's policy.
	ErrStoreUnavailable = errors.New("ledger store unavailable")
	// ErrEngineNotReady is returned when an Engine method is called on a nil
	// or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
