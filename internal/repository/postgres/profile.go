// Package postgres implements the record store repositories against
// PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/inspira/dailyquote/internal/domain"
	"github.com/inspira/dailyquote/internal/subscription"
)

// ProfileRepo implements subscription.ProfileStore and
// broadcast.RecipientStore against the profiles table.
type ProfileRepo struct{ db *sql.DB }

// NewProfileRepo creates a Postgres-backed profile repository.
func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{db: db} }

// Activate applies the post-payment subscription patch in a single update.
func (r *ProfileRepo) Activate(ctx context.Context, a domain.Activation) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET is_subscribed = true,
		    subscription_status = 'active',
		    subscription_end_date = $1,
		    last_payment_id = $2,
		    last_payment_amount = $3,
		    last_payment_date = $4,
		    updated_at = NOW()
		WHERE id = $5
	`, a.EndDate, a.PaymentID, a.Amount, a.PaidAt, a.UserID)
	if err != nil {
		return fmt.Errorf("activate profile: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return subscription.ErrProfileNotFound
	}
	return nil
}

// Cancel marks the profile unsubscribed. Re-cancelling an already cancelled
// profile still matches the row, so the call stays idempotent.
func (r *ProfileRepo) Cancel(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET is_subscribed = false,
		    subscription_status = 'cancelled',
		    updated_at = NOW()
		WHERE id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("cancel subscription: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return subscription.ErrProfileNotFound
	}
	return nil
}

// EligibleRecipients returns profiles entitled to the daily broadcast at the
// given instant. The filter re-states the full invariant so a row violating
// it (subscribed flag set while the status or window disagrees) never
// receives a message.
func (r *ProfileRepo) EligibleRecipients(ctx context.Context, now time.Time) ([]domain.Profile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, phone, is_subscribed, subscription_status, subscription_end_date
		FROM profiles
		WHERE phone IS NOT NULL
		  AND is_subscribed = true
		  AND subscription_status = 'active'
		  AND subscription_end_date >= $1
	`, now)
	if err != nil {
		return nil, fmt.Errorf("query eligible recipients: %w", err)
	}
	defer rows.Close()

	var out []domain.Profile
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(&p.ID, &p.Phone, &p.IsSubscribed,
			&p.SubscriptionStatus, &p.SubscriptionEndDate); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Get fetches a single profile row.
func (r *ProfileRepo) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	p := &domain.Profile{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, phone, is_subscribed, subscription_status, subscription_end_date,
		       last_payment_id, last_payment_amount, last_payment_date,
		       created_at, updated_at
		FROM profiles
		WHERE id = $1
	`, userID).Scan(
		&p.ID, &p.Phone, &p.IsSubscribed, &p.SubscriptionStatus, &p.SubscriptionEndDate,
		&p.LastPaymentID, &p.LastPaymentAmount, &p.LastPaymentDate,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, subscription.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}
