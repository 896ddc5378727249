package rotauth

import (
	"context"
	"errors"
	"time"

	"github.com/rotauth/rotauth/ledger"
	"github.com/rotauth/rotauth/token"
)

const (
	auditEventTokenIssued          = "token_issued"
	auditEventIssueFailure         = "issue_failure"
	auditEventRotateSuccess        = "rotate_success"
	auditEventRotateInvalid        = "rotate_invalid"
	auditEventRotateFamilyRejected = "rotate_family_rejected"
	auditEventRotateReplayDetected = "rotate_replay_detected"
	auditEventTokenRevoked         = "token_revoked"
	auditEventRevokeIgnored        = "revoke_ignored"
	auditEventFamilyInvalidated    = "family_invalidated"
	auditEventStoreUnavailable     = "store_unavailable"
)

// AuditErrorCode is the compact rejection detail recorded on audit events.
// It is never surfaced to clients.
type AuditErrorCode string

const (
	auditErrTokenInvalid      AuditErrorCode = "invalid_token"
	auditErrFamilyInvalidated AuditErrorCode = "family_invalidated"
	auditErrStoreUnavailable  AuditErrorCode = "store_unavailable"
	auditErrMalformed         AuditErrorCode = "malformed"
	auditErrSignatureInvalid  AuditErrorCode = "signature_invalid"
	auditErrExpired           AuditErrorCode = "expired"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	family string,
	jti string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Family:    family,
		JTI:       jti,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, token.ErrMalformed):
		return auditErrMalformed
	case errors.Is(err, token.ErrSignatureInvalid):
		return auditErrSignatureInvalid
	case errors.Is(err, token.ErrExpired):
		return auditErrExpired
	case errors.Is(err, ledger.ErrUnavailable), errors.Is(err, ErrStoreUnavailable):
		return auditErrStoreUnavailable
	case errors.Is(err, ErrFamilyInvalidated):
		return auditErrFamilyInvalidated
	case errors.Is(err, ErrTokenInvalid):
		return auditErrTokenInvalid
	default:
		return AuditErrorCode(err.Error())
	}
}
