package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"nutrascan/internal/domain"
	"nutrascan/internal/infra"
	"nutrascan/internal/sqlinline"
)

// ProfileRepositoryPG persists profile and quota state in PostgreSQL. It
// implements gate.QuotaStore.
type ProfileRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewProfileRepository(sql infra.SQLExecutor) *ProfileRepositoryPG {
	return &ProfileRepositoryPG{sql: sql}
}

// UpsertByGoogleSub inserts or refreshes a profile row keyed by Google sub.
func (r *ProfileRepositoryPG) UpsertByGoogleSub(ctx context.Context, sub, email, name string) (*domain.Profile, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QUpsertGoogleProfile, sub, email, name)
	profile := &domain.Profile{GoogleSub: sub, Email: email, Name: name}
	if err := row.Scan(&profile.ID, &profile.IsPremium, &profile.FreeAnalysesUsed); err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return profile, nil
}

// GetByID fetches a full profile row.
func (r *ProfileRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectProfileByID, id)
	var p domain.Profile
	err := row.Scan(&p.ID, &p.GoogleSub, &p.Email, &p.Name, &p.IsPremium, &p.FreeAnalysesUsed, &p.StripeCustomerID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select profile: %w", err)
	}
	return &p, nil
}

// UserQuota reads the quota slice of a profile.
func (r *ProfileRepositoryPG) UserQuota(ctx context.Context, userID string) (domain.UserQuota, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectProfileQuota, userID)
	var quota domain.UserQuota
	if err := row.Scan(&quota.IsPremium, &quota.FreeAnalysesUsed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserQuota{}, domain.ErrNotFound
		}
		return domain.UserQuota{}, fmt.Errorf("select quota: %w", err)
	}
	return quota, nil
}

// IncrementFreeAnalyses bumps the persisted free-tier counter by one.
func (r *ProfileRepositoryPG) IncrementFreeAnalyses(ctx context.Context, userID string) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QIncrementFreeAnalyses, userID); err != nil {
		return fmt.Errorf("increment free analyses: %w", err)
	}
	return nil
}

// StripeCustomerID returns the stored Stripe customer for the profile, "" if none.
func (r *ProfileRepositoryPG) StripeCustomerID(ctx context.Context, userID string) (string, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectStripeCustomer, userID)
	var customerID string
	if err := row.Scan(&customerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("select stripe customer: %w", err)
	}
	return customerID, nil
}

// SetStripeCustomer stores the Stripe customer id on the profile.
func (r *ProfileRepositoryPG) SetStripeCustomer(ctx context.Context, userID, customerID string) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QSetStripeCustomer, userID, customerID); err != nil {
		return fmt.Errorf("set stripe customer: %w", err)
	}
	return nil
}

// SetPremiumByStripeCustomer flips the premium flag for the profile owning
// the Stripe customer. Only the billing webhook calls this.
func (r *ProfileRepositoryPG) SetPremiumByStripeCustomer(ctx context.Context, customerID string, premium bool) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QSetPremiumByStripeCustomer, customerID, premium)
	if err != nil {
		return fmt.Errorf("set premium: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetPremiumByID flips the premium flag directly. Used by the operator CLI.
func (r *ProfileRepositoryPG) SetPremiumByID(ctx context.Context, userID string, premium bool) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QSetPremiumByID, userID, premium)
	if err != nil {
		return fmt.Errorf("set premium: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
