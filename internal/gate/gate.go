// Package gate decides whether an inbound analysis request is served,
// rejected with a sign-in prompt, or rejected with an upgrade prompt.
package gate

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"nutrascan/internal/domain"
)

// Identity is the caller of an analysis request: authenticated callers carry
// a durable user id, anonymous callers are distinguished by client address.
type Identity struct {
	UserID   string
	ClientIP string
}

// Anonymous reports whether the identity has no authenticated user behind it.
func (id Identity) Anonymous() bool { return id.UserID == "" }

// Outcome is the gate verdict for one request.
type Outcome int

const (
	Allow Outcome = iota
	DenyNeedsAuth
	DenyNeedsUpgrade
)

// QuotaStore reads and mutates the durable quota fields of a profile row.
type QuotaStore interface {
	UserQuota(ctx context.Context, userID string) (domain.UserQuota, error)
	IncrementFreeAnalyses(ctx context.Context, userID string) error
}

// Decision is the verdict plus everything Commit needs to settle the quota
// afterwards. The quota snapshot is taken at decision time on purpose:
// re-reading the row inside Commit could race with a concurrent request from
// the same user.
type Decision struct {
	Outcome   Outcome
	FreeTrial bool // an allowed call that consumes the free allotment

	identity Identity
}

// Allowed reports whether the request may proceed to analysis.
func (d Decision) Allowed() bool { return d.Outcome == Allow }

// Gate is the single decision point for analysis access. FreeLimit is the
// number of analyses the free tier grants, for anonymous addresses and
// non-premium accounts alike.
type Gate struct {
	FreeLimit int
	Anonymous Counter
	Users     QuotaStore
	Logger    zerolog.Logger
}

func New(anonymous Counter, users QuotaStore, freeLimit int, logger zerolog.Logger) *Gate {
	if freeLimit <= 0 {
		freeLimit = 1
	}
	return &Gate{FreeLimit: freeLimit, Anonymous: anonymous, Users: users, Logger: logger}
}

// Decide applies the access rule, first match wins:
//
//  1. anonymous, address already at the free limit  -> DenyNeedsAuth
//  2. anonymous, under the limit                    -> Allow (free trial)
//  3. authenticated premium                         -> Allow, no counting
//  4. authenticated free, at the limit              -> DenyNeedsUpgrade
//  5. authenticated free, under the limit           -> Allow (free trial)
//
// Decide never mutates a counter; call Commit after the analysis succeeded.
func (g *Gate) Decide(ctx context.Context, id Identity) (Decision, error) {
	if id.Anonymous() {
		if id.ClientIP == "" {
			return Decision{}, fmt.Errorf("anonymous identity without client address")
		}
		count, err := g.Anonymous.Get(ctx, id.ClientIP)
		if err != nil {
			// Soft throttle: an unreachable counter backend must not take
			// the product down, so the address is treated as unused.
			g.Logger.Warn().Err(err).Str("ip", id.ClientIP).Msg("anonymous counter read failed, failing open")
			count = 0
		}
		if count >= g.FreeLimit {
			return Decision{Outcome: DenyNeedsAuth, identity: id}, nil
		}
		return Decision{Outcome: Allow, FreeTrial: true, identity: id}, nil
	}

	quota, err := g.Users.UserQuota(ctx, id.UserID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return Decision{}, fmt.Errorf("read user quota: %w", err)
		}
		// Known user without a profile row: fail open to one free analysis.
		g.Logger.Warn().Str("user_id", id.UserID).Msg("profile row missing, treating as unused free tier")
		quota = domain.UserQuota{}
	}
	if quota.IsPremium {
		return Decision{Outcome: Allow, identity: id}, nil
	}
	if quota.FreeAnalysesUsed >= g.FreeLimit {
		return Decision{Outcome: DenyNeedsUpgrade, identity: id}, nil
	}
	return Decision{Outcome: Allow, FreeTrial: true, identity: id}, nil
}

// Commit settles the quota for an allowed, successfully completed analysis.
// It must be called exactly once per allowed request whose analysis and
// persistence both succeeded; a failed analysis never consumes quota.
// Premium decisions are a no-op.
func (g *Gate) Commit(ctx context.Context, d Decision) error {
	if !d.Allowed() || !d.FreeTrial {
		return nil
	}
	if d.identity.Anonymous() {
		if _, err := g.Anonymous.Increment(ctx, d.identity.ClientIP); err != nil {
			return fmt.Errorf("increment anonymous counter: %w", err)
		}
		return nil
	}
	if err := g.Users.IncrementFreeAnalyses(ctx, d.identity.UserID); err != nil {
		return fmt.Errorf("increment free analyses: %w", err)
	}
	return nil
}

// Reason maps a deny outcome to its domain error.
func (d Decision) Reason() error {
	switch d.Outcome {
	case DenyNeedsAuth:
		return domain.ErrNeedsAuth
	case DenyNeedsUpgrade:
		return domain.ErrNeedsUpgrade
	default:
		return nil
	}
}
