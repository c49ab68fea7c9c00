// Package subscription implements the subscription order and payment
// verification workflows: creating a Razorpay order for the fixed plan
// price, verifying the provider's payment callback, and flipping the
// user's subscription state.
package subscription

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/inspira/dailyquote/internal/config"
	"github.com/inspira/dailyquote/internal/domain"
	"github.com/inspira/dailyquote/internal/razorpay"
)

// SubscriptionDuration is how long one verified payment entitles the user.
const SubscriptionDuration = 30 * 24 * time.Hour

// OrderCreator creates payment orders in the provider's ledger.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error)
}

// ProfileStore is the slice of the record store this service touches.
type ProfileStore interface {
	// Activate applies the post-payment profile patch in a single update.
	Activate(ctx context.Context, a domain.Activation) error
	// Cancel marks the profile unsubscribed. Idempotent.
	Cancel(ctx context.Context, userID string) error
	// Get fetches one profile row, or ErrProfileNotFound.
	Get(ctx context.Context, userID string) (*domain.Profile, error)
}

// Callback is a payment provider callback as forwarded by the client.
type Callback struct {
	PaymentID string
	OrderID   string
	Signature string
	UserID    string
	// Amount the client claims was paid, in the minor currency unit.
	Amount int64
}

// Service wires the payment provider and the profile store together.
type Service struct {
	provider  OrderCreator
	profiles  ProfileStore
	keySecret string
	amount    int64
	currency  string
	now       func() time.Time
}

// NewService creates a subscription service. The plan amount and currency
// come from configuration, never from the client.
func NewService(provider OrderCreator, profiles ProfileStore, cfg config.RazorpayConfig) *Service {
	return &Service{
		provider:  provider,
		profiles:  profiles,
		keySecret: cfg.KeySecret,
		amount:    cfg.SubscriptionAmount,
		currency:  cfg.Currency,
		now:       time.Now,
	}
}

// CreateOrder creates a subscription order for the authenticated user.
// The receipt is unique per (user, timestamp) so the provider can
// deduplicate retried creation calls. No local state is written.
func (s *Service) CreateOrder(ctx context.Context, userID string) (*razorpay.Order, error) {
	receipt := fmt.Sprintf("sub_%s_%d", userID, s.now().UnixMilli())

	order, err := s.provider.CreateOrder(ctx, razorpay.OrderRequest{
		Amount:         s.amount,
		Currency:       s.currency,
		Receipt:        receipt,
		PaymentCapture: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderCreationFailed, err)
	}

	log.Printf("[subscription] order %s created for user %s (%d %s)",
		order.ID, userID, order.Amount, order.Currency)
	return order, nil
}

// VerifyAndActivate validates a payment callback and activates the user's
// subscription. The signature check runs first and a mismatch rejects the
// callback with no store mutation. On success the profile is patched in a
// single update; a failed update surfaces ErrActivationPersist so operators
// know money was captured without entitlement.
func (s *Service) VerifyAndActivate(ctx context.Context, cb Callback) (*domain.Activation, error) {
	if !razorpay.VerifySignature(cb.OrderID, cb.PaymentID, cb.Signature, s.keySecret) {
		log.Printf("[subscription] signature rejected for user %s, order %s", cb.UserID, cb.OrderID)
		return nil, ErrInvalidSignature
	}

	if cb.Amount != s.amount {
		log.Printf("[subscription] amount mismatch for user %s: got %d, plan is %d",
			cb.UserID, cb.Amount, s.amount)
		return nil, ErrAmountMismatch
	}

	now := s.now()
	activation := domain.Activation{
		UserID:    cb.UserID,
		PaymentID: cb.PaymentID,
		Amount:    s.amount,
		PaidAt:    now,
		// Expiry is reset from now, not extended from the previous end date.
		EndDate: now.Add(SubscriptionDuration),
	}

	if err := s.profiles.Activate(ctx, activation); err != nil {
		log.Printf("[subscription] ALERT: payment %s verified but activation persist failed for user %s: %v",
			cb.PaymentID, cb.UserID, err)
		return nil, fmt.Errorf("%w: %v", ErrActivationPersist, err)
	}

	log.Printf("[subscription] user %s activated until %s (payment %s)",
		cb.UserID, activation.EndDate.Format(time.RFC3339), cb.PaymentID)
	return &activation, nil
}

// Status reports the user's current subscription state. Active is derived
// from the full entitlement invariant at call time, so a stale subscribed
// flag on an expired or inconsistent row reads as inactive.
func (s *Service) Status(ctx context.Context, userID string) (*domain.Profile, bool, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return p, p.IsSubscribed && p.SubscriptionStatus == domain.SubscriptionActive &&
		p.SubscriptionEndDate != nil && !p.SubscriptionEndDate.Before(s.now()), nil
}

// Unsubscribe cancels the user's subscription. Independent of payment and
// safe to call repeatedly.
func (s *Service) Unsubscribe(ctx context.Context, userID string) error {
	if err := s.profiles.Cancel(ctx, userID); err != nil {
		return fmt.Errorf("cancel subscription: %w", err)
	}
	log.Printf("[subscription] user %s unsubscribed", userID)
	return nil
}
