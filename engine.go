package rotauth

import (
	"context"
	"errors"
	"time"

	"github.com/rotauth/rotauth/internal"
	"github.com/rotauth/rotauth/jwt"
	"github.com/rotauth/rotauth/ledger"
	"github.com/rotauth/rotauth/token"
)

// Engine orchestrates the refresh-token lifecycle: issuance, one-time-use
// rotation, replay detection, and family invalidation. It holds no mutable
// state of its own; the Redis ledger is the single arbiter of consumption, so
// any number of Engine instances can serve the same token population.
type Engine struct {
	config     Config
	codec      *token.Codec
	ledger     *ledger.Store
	jwtManager *jwt.Manager
	audit      *auditDispatcher
	metrics    *Metrics
}

// Close drains and stops the audit dispatcher. The engine must not be used
// after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Issue mints the first refresh token of a brand-new family together with an
// access token. Called by the login collaborator after credential
// verification, which is outside this engine. Issuance writes nothing to the
// ledger; a fresh token is unconsumed by construction.
func (e *Engine) Issue(ctx context.Context, userID string) (*TokenPair, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}

	family := internal.NewFamilyID()
	pair, _, err := e.mint(userID, family)
	if err != nil {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventIssueFailure, false, userID, family, "", err, nil)
		return nil, err
	}

	e.metricInc(MetricIssueSuccess)
	e.emitAudit(ctx, auditEventTokenIssued, true, userID, family, "", nil, nil)
	return pair, nil
}

// Rotate trades a presented refresh token for its successor. The presented
// jti is atomically consumed before the successor is minted, so a crash
// mid-rotation fails safe (re-login) rather than leaving the token reusable.
//
// A presented token that was already consumed is theft evidence: the whole
// family is invalidated synchronously and the caller receives
// [ErrFamilyInvalidated]. Structural rejections all collapse to
// [ErrTokenInvalid] without touching the ledger.
func (e *Engine) Rotate(ctx context.Context, opaque string) (*TokenPair, error) {
	if e == nil || e.codec == nil || e.ledger == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	pair, err := e.rotate(ctx, opaque)
	if e.metrics != nil {
		e.metrics.Observe(MetricRotateLatency, time.Since(start))
	}
	return pair, err
}

func (e *Engine) rotate(ctx context.Context, opaque string) (*TokenPair, error) {
	claims, err := e.codec.Decode(opaque)
	if err != nil {
		// No ledger lookups on undecodable input: the rejection must not
		// reveal whether the token was malformed, forged, or expired.
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, auditEventRotateInvalid, false, "", "", "", err, func() map[string]string {
			return map[string]string{
				"reason": "decode_failed",
			}
		})
		return nil, ErrTokenInvalid
	}

	if claims.TokenType != token.TypeRefresh {
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, auditEventRotateInvalid, false, claims.UserID, claims.Family, claims.JTI, ErrTokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "wrong_token_type",
			}
		})
		return nil, ErrTokenInvalid
	}

	dead, err := e.ledger.IsFamilyInvalidated(ctx, claims.Family)
	if err != nil {
		e.metricInc(MetricRotateFailure)
		return nil, e.storeUnavailable(ctx, claims, err)
	}
	if dead {
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, auditEventRotateFamilyRejected, false, claims.UserID, claims.Family, claims.JTI, ErrFamilyInvalidated, nil)
		return nil, ErrFamilyInvalidated
	}

	// Consumed-marker TTL covers the remaining token lifetime plus leeway so
	// the marker can never expire while the token it guards is presentable.
	markerTTL := claims.Remaining(time.Now()) + e.config.Token.ClockSkewLeeway
	won, err := e.ledger.MarkConsumed(ctx, claims.JTI, markerTTL)
	if err != nil {
		e.metricInc(MetricRotateFailure)
		return nil, e.storeUnavailable(ctx, claims, err)
	}
	if !won {
		// Replay. Either an attacker used the token before the legitimate
		// holder, replayed it after legitimate rotation, or lost a race
		// between two simultaneous uses. All three poison the lineage.
		if invErr := e.ledger.InvalidateFamily(ctx, claims.Family, e.config.Token.RefreshTTL); invErr != nil {
			e.metricInc(MetricRotateFailure)
			return nil, e.storeUnavailable(ctx, claims, invErr)
		}
		e.metricInc(MetricRotateFailure)
		e.metricInc(MetricReplayDetected)
		e.metricInc(MetricFamilyInvalidated)
		e.emitAudit(ctx, auditEventRotateReplayDetected, false, claims.UserID, claims.Family, claims.JTI, ErrFamilyInvalidated, nil)
		return nil, ErrFamilyInvalidated
	}

	pair, jti, err := e.mint(claims.UserID, claims.Family)
	if err != nil {
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, auditEventRotateInvalid, false, claims.UserID, claims.Family, claims.JTI, err, func() map[string]string {
			return map[string]string{
				"reason": "mint_successor_failed",
			}
		})
		return nil, err
	}

	e.metricInc(MetricRotateSuccess)
	e.emitAudit(ctx, auditEventRotateSuccess, true, claims.UserID, claims.Family, claims.JTI, nil, func() map[string]string {
		return map[string]string{
			"successor_jti": jti,
		}
	})
	return pair, nil
}

// Revoke consumes a single token on logout. It is deliberately soft on dead
// input: revoking an undecodable, expired, or already-consumed token is a
// no-op, never an error. Sibling sessions in the same family stay alive; use
// [Engine.RevokeFamily] for sign-out-everywhere.
func (e *Engine) Revoke(ctx context.Context, opaque string) error {
	if e == nil || e.codec == nil || e.ledger == nil {
		return ErrEngineNotReady
	}

	claims, err := e.codec.Decode(opaque)
	if err != nil {
		e.emitAudit(ctx, auditEventRevokeIgnored, true, "", "", "", err, func() map[string]string {
			return map[string]string{
				"reason": "decode_failed",
			}
		})
		return nil
	}
	if claims.TokenType != token.TypeRefresh {
		e.emitAudit(ctx, auditEventRevokeIgnored, true, claims.UserID, claims.Family, claims.JTI, ErrTokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "wrong_token_type",
			}
		})
		return nil
	}

	markerTTL := claims.Remaining(time.Now()) + e.config.Token.ClockSkewLeeway
	if _, err := e.ledger.MarkConsumed(ctx, claims.JTI, markerTTL); err != nil {
		// Fail closed: the caller must retry rather than believe the token
		// is dead when the ledger never recorded it.
		return e.storeUnavailable(ctx, claims, err)
	}

	e.metricInc(MetricRevoke)
	e.emitAudit(ctx, auditEventTokenRevoked, true, claims.UserID, claims.Family, claims.JTI, nil, nil)
	return nil
}

// RevokeFamily poisons the lineage of the presented token: the
// sign-out-everywhere action. Like Revoke it soft-fails on undecodable input.
func (e *Engine) RevokeFamily(ctx context.Context, opaque string) error {
	if e == nil || e.codec == nil || e.ledger == nil {
		return ErrEngineNotReady
	}

	claims, err := e.codec.Decode(opaque)
	if err != nil {
		e.emitAudit(ctx, auditEventRevokeIgnored, true, "", "", "", err, func() map[string]string {
			return map[string]string{
				"reason": "decode_failed",
			}
		})
		return nil
	}

	if err := e.invalidateFamily(ctx, claims.UserID, claims.Family); err != nil {
		return err
	}

	markerTTL := claims.Remaining(time.Now()) + e.config.Token.ClockSkewLeeway
	if _, err := e.ledger.MarkConsumed(ctx, claims.JTI, markerTTL); err != nil {
		return e.storeUnavailable(ctx, claims, err)
	}
	return nil
}

// InvalidateFamily poisons a lineage by id, for callers that track their
// users' active families out of band.
func (e *Engine) InvalidateFamily(ctx context.Context, family string) error {
	if e == nil || e.ledger == nil {
		return ErrEngineNotReady
	}
	return e.invalidateFamily(ctx, "", family)
}

func (e *Engine) invalidateFamily(ctx context.Context, userID, family string) error {
	if err := e.ledger.InvalidateFamily(ctx, family, e.config.Token.RefreshTTL); err != nil {
		e.metricInc(MetricStoreUnavailable)
		e.emitAudit(ctx, auditEventStoreUnavailable, false, userID, family, "", err, nil)
		return ErrStoreUnavailable
	}

	e.metricInc(MetricFamilyInvalidated)
	e.emitAudit(ctx, auditEventFamilyInvalidated, true, userID, family, "", nil, nil)
	return nil
}

// ParseAccess verifies an access token on behalf of the HTTP collaborator.
func (e *Engine) ParseAccess(tokenStr string) (*jwt.AccessClaims, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	return e.jwtManager.ParseAccess(tokenStr)
}

// mint builds and seals a refresh token with a fresh jti for the given
// family, plus the matching access token.
func (e *Engine) mint(userID, family string) (*TokenPair, string, error) {
	rawJTI, err := internal.NewJTI()
	if err != nil {
		return nil, "", err
	}
	jti := rawJTI.String()

	now := time.Now()
	refresh, err := e.codec.Encode(&token.Claims{
		UserID:    userID,
		Family:    family,
		JTI:       jti,
		TokenType: token.TypeRefresh,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(e.config.Token.RefreshTTL).Unix(),
	})
	if err != nil {
		return nil, "", err
	}

	access, err := e.jwtManager.CreateAccess(userID)
	if err != nil {
		return nil, "", err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(e.config.JWT.AccessTTL / time.Second),
	}, jti, nil
}

func (e *Engine) storeUnavailable(ctx context.Context, claims *token.Claims, err error) error {
	if !errors.Is(err, ledger.ErrUnavailable) {
		// Ledger errors are transport errors by contract; anything else
		// still fails closed.
		err = ledger.ErrUnavailable
	}
	e.metricInc(MetricStoreUnavailable)
	e.emitAudit(ctx, auditEventStoreUnavailable, false, claims.UserID, claims.Family, claims.JTI, err, nil)
	return ErrStoreUnavailable
}
