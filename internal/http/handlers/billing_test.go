package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testWebhookSecret = "whsec_test"

func stripeSignature(secret string, payload []byte, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func postWebhook(app *App, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/billing/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signature)
	rec := httptest.NewRecorder()
	app.BillingWebhook(rec, req)
	return rec
}

func TestBillingWebhookGrantsPremiumOnCheckoutCompleted(t *testing.T) {
	profiles := newFakeProfiles()
	profiles.stripeCustomers["u1"] = "cus_123"
	app := newTestApp(profiles, newFakeAnalyses(), &fakeAnalyzer{result: testResult()})
	app.Config.StripeWebhookSecret = testWebhookSecret

	payload := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_1", "customer": "cus_123", "client_reference_id": "u1"}}
	}`)
	rec := postWebhook(app, payload, stripeSignature(testWebhookSecret, payload, time.Now()))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if !profiles.premiumSet["cus:cus_123"] {
		t.Fatal("premium was not granted for the checkout customer")
	}
}

func TestBillingWebhookFallsBackToClientReference(t *testing.T) {
	// Customer id was never stored, so activation falls back to the profile
	// id carried as the client reference.
	profiles := newFakeProfiles()
	app := newTestApp(profiles, newFakeAnalyses(), &fakeAnalyzer{result: testResult()})
	app.Config.StripeWebhookSecret = testWebhookSecret

	payload := []byte(`{
		"id": "evt_2",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_2", "customer": "cus_unknown", "client_reference_id": "u7"}}
	}`)
	rec := postWebhook(app, payload, stripeSignature(testWebhookSecret, payload, time.Now()))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if !profiles.premiumSet["user:u7"] {
		t.Fatal("premium was not granted via client reference id")
	}
}

func TestBillingWebhookRevokesPremiumOnSubscriptionDeleted(t *testing.T) {
	profiles := newFakeProfiles()
	profiles.stripeCustomers["u1"] = "cus_123"
	profiles.premiumSet["cus:cus_123"] = true
	app := newTestApp(profiles, newFakeAnalyses(), &fakeAnalyzer{result: testResult()})
	app.Config.StripeWebhookSecret = testWebhookSecret

	payload := []byte(`{
		"id": "evt_3",
		"type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_1", "customer": "cus_123"}}
	}`)
	rec := postWebhook(app, payload, stripeSignature(testWebhookSecret, payload, time.Now()))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if profiles.premiumSet["cus:cus_123"] {
		t.Fatal("premium flag should have been revoked")
	}
}

func TestBillingWebhookRejectsBadSignature(t *testing.T) {
	profiles := newFakeProfiles()
	app := newTestApp(profiles, newFakeAnalyses(), &fakeAnalyzer{result: testResult()})
	app.Config.StripeWebhookSecret = testWebhookSecret

	payload := []byte(`{"id": "evt_4", "type": "checkout.session.completed", "data": {"object": {}}}`)
	rec := postWebhook(app, payload, stripeSignature("whsec_other", payload, time.Now()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(profiles.premiumSet) != 0 {
		t.Fatal("unsigned event must not change premium state")
	}
}
