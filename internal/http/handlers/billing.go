package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/webhook"

	"nutrascan/internal/domain"
)

const webhookMaxBodyBytes = int64(65536)

type checkoutResponse struct {
	URL string `json:"url"`
}

// BillingCheckout starts a Stripe Checkout Session for the premium
// subscription. Router-level auth guarantees a signed-in caller.
func (a *App) BillingCheckout(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if a.Config.StripeSecretKey == "" || a.Config.StripePriceID == "" {
		a.Logger.Error().Msg("stripe not configured")
		a.error(w, http.StatusInternalServerError, "internal", "billing not configured")
		return
	}

	customerID, err := a.ensureStripeCustomer(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("ensure stripe customer failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to prepare billing")
		return
	}

	frontendURL := strings.TrimRight(a.Config.FrontendURL, "/")
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(customerID),
		ClientReferenceID: stripe.String(userID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(a.Config.StripePriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(frontendURL + "/billing/success"),
		CancelURL:  stripe.String(frontendURL + "/billing/cancel"),
	}
	sess, err := session.New(params)
	if err != nil {
		a.Logger.Error().Err(err).Msg("stripe checkout session failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create checkout session")
		return
	}

	a.json(w, http.StatusOK, checkoutResponse{URL: sess.URL})
}

// ensureStripeCustomer finds or creates the Stripe customer bound to the
// profile and stores its id for webhook correlation.
func (a *App) ensureStripeCustomer(ctx context.Context, userID string) (string, error) {
	existing, err := a.Profiles.StripeCustomerID(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}
	if existing != "" {
		return existing, nil
	}

	params := &stripe.CustomerParams{
		Metadata: map[string]string{"user_id": userID},
	}
	cust, err := customer.New(params)
	if err != nil {
		return "", err
	}
	if err := a.Profiles.SetStripeCustomer(ctx, userID, cust.ID); err != nil {
		return "", err
	}
	return cust.ID, nil
}

// BillingWebhook consumes Stripe subscription events. It is the only writer
// of the premium flag.
func (a *App) BillingWebhook(w http.ResponseWriter, r *http.Request) {
	if a.Config.StripeWebhookSecret == "" {
		a.Logger.Error().Msg("stripe webhook secret missing")
		a.error(w, http.StatusInternalServerError, "internal", "webhook not configured")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, webhookMaxBodyBytes))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		body,
		r.Header.Get("Stripe-Signature"),
		a.Config.StripeWebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		a.Logger.Error().Err(err).Msg("stripe webhook signature failed")
		a.error(w, http.StatusBadRequest, "bad_request", "signature verification failed")
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			a.Logger.Error().Err(err).Msg("stripe session unmarshal failed")
			a.error(w, http.StatusBadRequest, "bad_request", "invalid event payload")
			return
		}
		if err := a.grantPremium(r.Context(), &sess); err != nil {
			a.Logger.Error().Err(err).Msg("grant premium failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to activate subscription")
			return
		}
	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			a.Logger.Error().Err(err).Msg("stripe subscription unmarshal failed")
			a.error(w, http.StatusBadRequest, "bad_request", "invalid event payload")
			return
		}
		if sub.Customer != nil {
			if err := a.Profiles.SetPremiumByStripeCustomer(r.Context(), sub.Customer.ID, false); err != nil && !errors.Is(err, domain.ErrNotFound) {
				a.Logger.Error().Err(err).Msg("revoke premium failed")
				a.error(w, http.StatusInternalServerError, "internal", "failed to deactivate subscription")
				return
			}
		}
	default:
		a.Logger.Debug().Str("type", string(event.Type)).Msg("ignoring stripe event")
	}

	a.json(w, http.StatusOK, map[string]bool{"received": true})
}

func (a *App) grantPremium(ctx context.Context, sess *stripe.CheckoutSession) error {
	if sess.Customer != nil && sess.Customer.ID != "" {
		err := a.Profiles.SetPremiumByStripeCustomer(ctx, sess.Customer.ID, true)
		if err == nil || !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	// Checkout sessions created before the customer id was stored still
	// carry the profile id as the client reference.
	if sess.ClientReferenceID != "" {
		return a.Profiles.SetPremiumByID(ctx, sess.ClientReferenceID, true)
	}
	return domain.ErrNotFound
}
