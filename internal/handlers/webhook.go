package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"medallion-storefront/internal/models"
	"medallion-storefront/internal/services"
)

const maxWebhookBytes = 65536

// CheckoutRecorder turns a paid checkout session into an order.
type CheckoutRecorder interface {
	RecordCheckout(ctx context.Context, sessionID string) (*models.Order, bool, error)
}

// WebhookHandler receives payment provider events.
type WebhookHandler struct {
	secret string
	orders CheckoutRecorder
	log    zerolog.Logger
}

func NewWebhookHandler(secret string, orders CheckoutRecorder, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{secret: secret, orders: orders, log: log}
}

// Stripe handles POST /webhooks/stripe. A 2xx tells the provider the event is
// done; anything else makes it redeliver later, which recording tolerates.
func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), h.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		h.log.Warn().Err(err).Msg("rejected webhook with invalid signature")
		writeError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	log := h.log.With().Str("event_id", event.ID).Str("event_type", string(event.Type)).Logger()

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil || session.ID == "" {
			log.Error().Err(err).Msg("webhook event carried no checkout session")
			writeError(w, http.StatusBadRequest, "malformed checkout session")
			return
		}

		order, created, err := h.orders.RecordCheckout(r.Context(), session.ID)
		if errors.Is(err, services.ErrPaymentPending) {
			log.Info().Str("session_id", session.ID).Msg("payment pending, waiting for async confirmation")
			writeJSON(w, http.StatusOK, map[string]string{"status": "pending"})
			return
		}
		if err != nil {
			log.Error().Err(err).Str("session_id", session.ID).Msg("failed to record checkout")
			writeError(w, http.StatusInternalServerError, "failed to record order")
			return
		}

		status := "duplicate"
		if created {
			status = "recorded"
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": status, "order_number": order.OrderNumber})

	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed, stripe.EventTypeCheckoutSessionExpired:
		log.Info().Msg("checkout session ended without payment")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})

	default:
		log.Debug().Msg("unhandled webhook event")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	}
}
