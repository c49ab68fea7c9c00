package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/inspira/dailyquote/internal/broadcast"
	"github.com/inspira/dailyquote/internal/domain"
)

// QuoteRepo implements broadcast.QuoteStore against the quotes table.
type QuoteRepo struct{ db *sql.DB }

// NewQuoteRepo creates a Postgres-backed quote repository.
func NewQuoteRepo(db *sql.DB) *QuoteRepo { return &QuoteRepo{db: db} }

// QuoteForDate returns the quote for the exact calendar date.
func (r *QuoteRepo) QuoteForDate(ctx context.Context, date time.Time) (*domain.Quote, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, quote, author, date, author_photo_url
		FROM quotes
		WHERE date = $1
		LIMIT 1
	`, date.Format("2006-01-02")))
}

// LatestQuoteOnOrBefore returns the most recent quote dated on or before the
// given date.
func (r *QuoteRepo) LatestQuoteOnOrBefore(ctx context.Context, date time.Time) (*domain.Quote, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, quote, author, date, author_photo_url
		FROM quotes
		WHERE date <= $1
		ORDER BY date DESC
		LIMIT 1
	`, date.Format("2006-01-02")))
}

func (r *QuoteRepo) scanOne(row *sql.Row) (*domain.Quote, error) {
	q := &domain.Quote{}
	err := row.Scan(&q.ID, &q.Text, &q.Author, &q.Date, &q.AuthorPhotoURL)
	if err == sql.ErrNoRows {
		return nil, broadcast.ErrNoQuoteAvailable
	}
	if err != nil {
		return nil, fmt.Errorf("scan quote: %w", err)
	}
	return q, nil
}
