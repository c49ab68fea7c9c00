// Package broadcast implements the daily quote broadcast: select the day's
// quote, resolve the currently entitled recipients, and deliver to each one
// concurrently, tolerating partial failure.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/inspira/dailyquote/internal/domain"
)

// ErrNoQuoteAvailable is fatal for a single run: no quote exists dated on or
// before today, so there is nothing to send. The run aborts before any
// delivery is attempted.
var ErrNoQuoteAvailable = errors.New("no quote available")

// QuoteStore reads quotes from the record store.
type QuoteStore interface {
	// QuoteForDate returns the quote for the exact calendar date, or
	// ErrNoQuoteAvailable if none exists.
	QuoteForDate(ctx context.Context, date time.Time) (*domain.Quote, error)
	// LatestQuoteOnOrBefore returns the most recent quote dated on or before
	// the given date, or ErrNoQuoteAvailable if none exists.
	LatestQuoteOnOrBefore(ctx context.Context, date time.Time) (*domain.Quote, error)
}

// RecipientStore resolves the currently entitled recipients.
type RecipientStore interface {
	// EligibleRecipients returns profiles with a phone number, an active
	// subscription, and an entitlement window covering now.
	EligibleRecipients(ctx context.Context, now time.Time) ([]domain.Profile, error)
}

// MessageSender delivers one message to one phone number.
type MessageSender interface {
	SendWhatsApp(ctx context.Context, to, body string) (string, error)
}

// Result is the per-recipient outcome of one delivery attempt.
type Result struct {
	UserID string `json:"userId"`
	Phone  string `json:"phone"`
	Status string `json:"status"` // "success" or "error"
	Detail string `json:"detail,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Summary aggregates one complete broadcast run.
type Summary struct {
	RunID     string   `json:"runId"`
	QuoteID   int64    `json:"quoteId"`
	QuoteDate string   `json:"quoteDate"`
	Sent      int      `json:"sent"`
	Failed    int      `json:"failed"`
	Total     int      `json:"total"`
	Results   []Result `json:"results"`
}

// Dispatcher runs the daily broadcast.
type Dispatcher struct {
	quotes     QuoteStore
	recipients RecipientStore
	sender     MessageSender
	now        func() time.Time
}

// NewDispatcher creates a broadcast dispatcher.
func NewDispatcher(quotes QuoteStore, recipients RecipientStore, sender MessageSender) *Dispatcher {
	return &Dispatcher{
		quotes:     quotes,
		recipients: recipients,
		sender:     sender,
		now:        time.Now,
	}
}

// Run executes one broadcast: quote selection, recipient resolution, and
// concurrent per-recipient delivery. One recipient's failure never affects
// the others; the summary counts exactly the recipients attempted. An empty
// recipient set is a successful run with an empty summary.
func (d *Dispatcher) Run(ctx context.Context) (*Summary, error) {
	runID := uuid.New().String()
	now := d.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	quote, err := d.selectQuote(ctx, today)
	if err != nil {
		return nil, err
	}
	log.Printf("[broadcast] run %s: quote %d (%s) by %s", runID, quote.ID,
		quote.Date.Format("2006-01-02"), quote.Author)

	rows, err := d.recipients.EligibleRecipients(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("resolving recipients: %w", err)
	}

	// The store query already filters, but a row violating the subscription
	// invariant must never receive a message, so re-check every row here.
	profiles := make([]domain.Profile, 0, len(rows))
	for _, p := range rows {
		if p.Eligible(now) {
			profiles = append(profiles, p)
		}
	}

	summary := &Summary{
		RunID:     runID,
		QuoteID:   quote.ID,
		QuoteDate: quote.Date.Format("2006-01-02"),
		Total:     len(profiles),
		Results:   []Result{},
	}
	if len(profiles) == 0 {
		log.Printf("[broadcast] run %s: no eligible recipients", runID)
		return summary, nil
	}

	body := quote.Message()
	results := make([]Result, len(profiles))

	// One task per recipient; each writes only its own slot, so the join is
	// the single serialization point and the counts reflect every attempt.
	var wg sync.WaitGroup
	for i, p := range profiles {
		wg.Add(1)
		go func(i int, p domain.Profile) {
			defer wg.Done()
			results[i] = d.deliver(ctx, p, body)
		}(i, p)
	}
	wg.Wait()

	for _, r := range results {
		if r.Status == "success" {
			summary.Sent++
		} else {
			summary.Failed++
		}
	}
	summary.Results = results

	log.Printf("[broadcast] run %s complete: sent=%d failed=%d total=%d",
		runID, summary.Sent, summary.Failed, summary.Total)
	return summary, nil
}

// selectQuote picks today's quote, falling back to the most recent quote
// dated on or before today when there is no exact match.
func (d *Dispatcher) selectQuote(ctx context.Context, today time.Time) (*domain.Quote, error) {
	quote, err := d.quotes.QuoteForDate(ctx, today)
	if err == nil {
		return quote, nil
	}
	if !errors.Is(err, ErrNoQuoteAvailable) {
		return nil, fmt.Errorf("fetching quote for %s: %w", today.Format("2006-01-02"), err)
	}

	quote, err = d.quotes.LatestQuoteOnOrBefore(ctx, today)
	if err != nil {
		if errors.Is(err, ErrNoQuoteAvailable) {
			return nil, ErrNoQuoteAvailable
		}
		return nil, fmt.Errorf("fetching fallback quote: %w", err)
	}
	log.Printf("[broadcast] no quote dated %s, using fallback from %s",
		today.Format("2006-01-02"), quote.Date.Format("2006-01-02"))
	return quote, nil
}

func (d *Dispatcher) deliver(ctx context.Context, p domain.Profile, body string) Result {
	phone := ""
	if p.Phone != nil {
		phone = *p.Phone
	}

	sid, err := d.sender.SendWhatsApp(ctx, phone, body)
	if err != nil {
		log.Printf("[broadcast] send to %s failed: %v", maskPhone(phone), err)
		return Result{UserID: p.ID, Phone: phone, Status: "error", Error: err.Error()}
	}
	return Result{UserID: p.ID, Phone: phone, Status: "success", Detail: sid}
}

// maskPhone keeps only the last four digits for logs.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}
