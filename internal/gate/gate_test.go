package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"nutrascan/internal/domain"
)

type fakeQuotaStore struct {
	quotas     map[string]domain.UserQuota
	lookupErr  error
	increments map[string]int
}

func newFakeQuotaStore() *fakeQuotaStore {
	return &fakeQuotaStore{
		quotas:     make(map[string]domain.UserQuota),
		increments: make(map[string]int),
	}
}

func (s *fakeQuotaStore) UserQuota(_ context.Context, userID string) (domain.UserQuota, error) {
	if s.lookupErr != nil {
		return domain.UserQuota{}, s.lookupErr
	}
	quota, ok := s.quotas[userID]
	if !ok {
		return domain.UserQuota{}, domain.ErrNotFound
	}
	return quota, nil
}

func (s *fakeQuotaStore) IncrementFreeAnalyses(_ context.Context, userID string) error {
	quota := s.quotas[userID]
	quota.FreeAnalysesUsed++
	s.quotas[userID] = quota
	s.increments[userID]++
	return nil
}

func newTestGate(users QuotaStore) *Gate {
	return New(NewMemoryCounter(), users, 1, zerolog.Nop())
}

func TestAnonymousFirstAllowedSecondDenied(t *testing.T) {
	g := newTestGate(newFakeQuotaStore())
	ctx := context.Background()
	id := Identity{ClientIP: "1.2.3.4"}

	first, err := g.Decide(ctx, id)
	if err != nil {
		t.Fatalf("first Decide: %v", err)
	}
	if !first.Allowed() || !first.FreeTrial {
		t.Fatalf("first decision = %+v, want allowed free trial", first)
	}
	if err := g.Commit(ctx, first); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	second, err := g.Decide(ctx, id)
	if err != nil {
		t.Fatalf("second Decide: %v", err)
	}
	if second.Outcome != DenyNeedsAuth {
		t.Fatalf("second decision outcome = %v, want DenyNeedsAuth", second.Outcome)
	}
	if !errors.Is(second.Reason(), domain.ErrNeedsAuth) {
		t.Fatalf("second reason = %v, want ErrNeedsAuth", second.Reason())
	}
}

func TestAnonymousAddressesAreIndependent(t *testing.T) {
	g := newTestGate(newFakeQuotaStore())
	ctx := context.Background()

	first, _ := g.Decide(ctx, Identity{ClientIP: "1.2.3.4"})
	if err := g.Commit(ctx, first); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	other, err := g.Decide(ctx, Identity{ClientIP: "5.6.7.8"})
	if err != nil {
		t.Fatalf("Decide other address: %v", err)
	}
	if !other.Allowed() {
		t.Fatalf("fresh address denied: %+v", other)
	}
}

func TestAuthenticatedFreeUserConsumesQuotaOnce(t *testing.T) {
	store := newFakeQuotaStore()
	store.quotas["u1"] = domain.UserQuota{}
	g := newTestGate(store)
	ctx := context.Background()
	id := Identity{UserID: "u1"}

	first, err := g.Decide(ctx, id)
	if err != nil {
		t.Fatalf("first Decide: %v", err)
	}
	if !first.Allowed() || !first.FreeTrial {
		t.Fatalf("first decision = %+v, want allowed free trial", first)
	}
	if err := g.Commit(ctx, first); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if got := store.quotas["u1"].FreeAnalysesUsed; got != 1 {
		t.Fatalf("FreeAnalysesUsed = %d, want 1", got)
	}

	second, err := g.Decide(ctx, id)
	if err != nil {
		t.Fatalf("second Decide: %v", err)
	}
	if second.Outcome != DenyNeedsUpgrade {
		t.Fatalf("second outcome = %v, want DenyNeedsUpgrade", second.Outcome)
	}
	if !errors.Is(second.Reason(), domain.ErrNeedsUpgrade) {
		t.Fatalf("second reason = %v, want ErrNeedsUpgrade", second.Reason())
	}
}

func TestPremiumUserNeverConsumesQuota(t *testing.T) {
	store := newFakeQuotaStore()
	store.quotas["u2"] = domain.UserQuota{IsPremium: true, FreeAnalysesUsed: 1}
	g := newTestGate(store)
	ctx := context.Background()
	id := Identity{UserID: "u2"}

	for i := 0; i < 5; i++ {
		d, err := g.Decide(ctx, id)
		if err != nil {
			t.Fatalf("Decide #%d: %v", i+1, err)
		}
		if !d.Allowed() || d.FreeTrial {
			t.Fatalf("decision #%d = %+v, want unconditional allow", i+1, d)
		}
		if err := g.Commit(ctx, d); err != nil {
			t.Fatalf("Commit #%d: %v", i+1, err)
		}
	}
	if got := store.quotas["u2"].FreeAnalysesUsed; got != 1 {
		t.Fatalf("FreeAnalysesUsed changed to %d", got)
	}
	if store.increments["u2"] != 0 {
		t.Fatalf("premium user was incremented %d times", store.increments["u2"])
	}
}

func TestFailedAnalysisDoesNotConsumeQuota(t *testing.T) {
	store := newFakeQuotaStore()
	store.quotas["u1"] = domain.UserQuota{}
	g := newTestGate(store)
	ctx := context.Background()

	// The handler only calls Commit after a successful analysis. Simulate a
	// failure by deciding and never committing.
	d, err := g.Decide(ctx, Identity{UserID: "u1"})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !d.Allowed() {
		t.Fatalf("decision = %+v, want allow", d)
	}

	if got := store.quotas["u1"].FreeAnalysesUsed; got != 0 {
		t.Fatalf("FreeAnalysesUsed = %d, want 0 after failed analysis", got)
	}
	next, err := g.Decide(ctx, Identity{UserID: "u1"})
	if err != nil {
		t.Fatalf("second Decide: %v", err)
	}
	if !next.Allowed() {
		t.Fatalf("retry after failure denied: %+v", next)
	}
}

func TestMissingProfileRowFailsOpen(t *testing.T) {
	g := newTestGate(newFakeQuotaStore())

	d, err := g.Decide(context.Background(), Identity{UserID: "ghost"})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !d.Allowed() || !d.FreeTrial {
		t.Fatalf("decision = %+v, want allowed free trial", d)
	}
}

func TestQuotaStoreErrorPropagates(t *testing.T) {
	store := newFakeQuotaStore()
	store.lookupErr = errors.New("connection refused")
	g := newTestGate(store)

	if _, err := g.Decide(context.Background(), Identity{UserID: "u1"}); err == nil {
		t.Fatal("Decide expected error on store failure")
	}
}

func TestAnonymousWithoutAddressRejected(t *testing.T) {
	g := newTestGate(newFakeQuotaStore())
	if _, err := g.Decide(context.Background(), Identity{}); err == nil {
		t.Fatal("Decide expected error for empty identity")
	}
}
