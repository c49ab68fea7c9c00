package domain

import "time"

// Subscription status values stored on a profile.
const (
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
	SubscriptionNone      = "none"
)

// Profile is a user profile row. Profiles are never deleted, only updated;
// payment verification and unsubscribe are the only writers in this service.
type Profile struct {
	ID                  string
	Phone               *string
	IsSubscribed        bool
	SubscriptionStatus  string
	SubscriptionEndDate *time.Time
	LastPaymentID       *string
	LastPaymentAmount   *int64
	LastPaymentDate     *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Eligible reports whether the profile should receive the daily broadcast
// at the given instant. Any violation of the subscription invariant
// (subscribed but not active, or expired) counts as not eligible.
func (p Profile) Eligible(now time.Time) bool {
	if p.Phone == nil || *p.Phone == "" {
		return false
	}
	if !p.IsSubscribed || p.SubscriptionStatus != SubscriptionActive {
		return false
	}
	return p.SubscriptionEndDate != nil && !p.SubscriptionEndDate.Before(now)
}

// Activation captures the profile mutation applied after a verified payment.
type Activation struct {
	UserID    string
	PaymentID string
	Amount    int64
	PaidAt    time.Time
	EndDate   time.Time
}
