package domain

import "time"

// Profile represents an authenticated account within the platform. The auth
// provider owns identity; this row only carries what the service needs.
type Profile struct {
	ID               string
	GoogleSub        string
	Email            string
	Name             string
	IsPremium        bool
	FreeAnalysesUsed int
	StripeCustomerID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// UserQuota is the slice of a profile the access gate reads. Both fields are
// monotonic for the lifetime of the row: FreeAnalysesUsed only grows, and
// IsPremium is flipped exclusively by the billing webhook.
type UserQuota struct {
	IsPremium        bool
	FreeAnalysesUsed int
}
