package api

import (
	"errors"
	"net/http"

	"github.com/inspira/dailyquote/internal/auth"
	"github.com/inspira/dailyquote/internal/pkg/httputil"
	"github.com/inspira/dailyquote/internal/subscription"
)

// verifyPaymentRequest mirrors the payment callback the client forwards
// after checkout. Field names follow the provider's callback payload.
type verifyPaymentRequest struct {
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	Amount            int64  `json:"amount"`
}

// HandleCreateOrder creates a subscription order for the authenticated user.
// The plan price is configured server-side; any amount in the request body
// is ignored.
func (h *Handlers) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httputil.Unauthorized(w)
		return
	}

	order, err := h.subscriptions.CreateOrder(r.Context(), userID)
	if err != nil {
		if errors.Is(err, subscription.ErrOrderCreationFailed) {
			httputil.Error(w, http.StatusBadGateway, "order_creation_failed",
				"could not create payment order")
			return
		}
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, map[string]interface{}{
		"id":       order.ID,
		"amount":   order.Amount,
		"currency": order.Currency,
	})
}

// HandleVerifyPayment validates the payment callback and activates the
// authenticated user's subscription. The error mapping keeps the dangerous
// case (payment captured, activation not persisted) on a distinct code so
// operators can reconcile.
func (h *Handlers) HandleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httputil.Unauthorized(w)
		return
	}

	var req verifyPaymentRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.RazorpayPaymentID == "" || req.RazorpayOrderID == "" || req.RazorpaySignature == "" {
		httputil.BadRequest(w, "razorpay_payment_id, razorpay_order_id and razorpay_signature are required")
		return
	}

	_, err := h.subscriptions.VerifyAndActivate(r.Context(), subscription.Callback{
		PaymentID: req.RazorpayPaymentID,
		OrderID:   req.RazorpayOrderID,
		Signature: req.RazorpaySignature,
		UserID:    userID,
		Amount:    req.Amount,
	})
	if err != nil {
		switch {
		case errors.Is(err, subscription.ErrInvalidSignature):
			httputil.Error(w, http.StatusBadRequest, "invalid_signature", "payment signature verification failed")
		case errors.Is(err, subscription.ErrAmountMismatch):
			httputil.Error(w, http.StatusBadRequest, "amount_mismatch", "payment amount does not match the plan price")
		case errors.Is(err, subscription.ErrActivationPersist):
			httputil.Error(w, http.StatusInternalServerError, "activation_persist_failed",
				"payment verified but subscription update failed; contact support")
		default:
			httputil.InternalError(w, err)
		}
		return
	}

	httputil.OK(w, map[string]bool{"success": true})
}

// HandleSubscriptionStatus reports the authenticated user's subscription
// state. The active flag reflects the entitlement invariant at call time,
// not just the stored subscribed flag.
func (h *Handlers) HandleSubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httputil.Unauthorized(w)
		return
	}

	profile, active, err := h.subscriptions.Status(r.Context(), userID)
	if err != nil {
		if errors.Is(err, subscription.ErrProfileNotFound) {
			httputil.Error(w, http.StatusNotFound, "profile_not_found", "no profile for user")
			return
		}
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, map[string]interface{}{
		"active":                active,
		"is_subscribed":         profile.IsSubscribed,
		"subscription_status":   profile.SubscriptionStatus,
		"subscription_end_date": profile.SubscriptionEndDate,
	})
}

// HandleUnsubscribe cancels the authenticated user's subscription.
func (h *Handlers) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httputil.Unauthorized(w)
		return
	}

	if err := h.subscriptions.Unsubscribe(r.Context(), userID); err != nil {
		if errors.Is(err, subscription.ErrProfileNotFound) {
			httputil.Error(w, http.StatusNotFound, "profile_not_found", "no profile for user")
			return
		}
		httputil.InternalError(w, err)
		return
	}

	httputil.OK(w, map[string]bool{"success": true})
}
