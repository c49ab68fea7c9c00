package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/inspira/dailyquote/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(s string) *string { return &s }

// fakeQuotes serves quotes from an in-memory slice using the same date
// semantics as the real repository.
type fakeQuotes struct {
	quotes []domain.Quote
	err    error
}

func (f *fakeQuotes) QuoteForDate(_ context.Context, d time.Time) (*domain.Quote, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.quotes {
		if f.quotes[i].Date.Equal(d) {
			return &f.quotes[i], nil
		}
	}
	return nil, ErrNoQuoteAvailable
}

func (f *fakeQuotes) LatestQuoteOnOrBefore(_ context.Context, d time.Time) (*domain.Quote, error) {
	if f.err != nil {
		return nil, f.err
	}
	var best *domain.Quote
	for i := range f.quotes {
		q := &f.quotes[i]
		if q.Date.After(d) {
			continue
		}
		if best == nil || q.Date.After(best.Date) {
			best = q
		}
	}
	if best == nil {
		return nil, ErrNoQuoteAvailable
	}
	return best, nil
}

type fakeRecipients struct {
	profiles []domain.Profile
	err      error
}

func (f *fakeRecipients) EligibleRecipients(_ context.Context, now time.Time) ([]domain.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Profile
	for _, p := range f.profiles {
		if p.Eligible(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakeSender records sends and fails for phones listed in failFor.
type fakeSender struct {
	mu      sync.Mutex
	sends   []string
	failFor map[string]bool
}

func (f *fakeSender) SendWhatsApp(_ context.Context, to, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, to)
	if f.failFor[to] {
		return "", errors.New("gateway rejected message")
	}
	return "SM_" + to, nil
}

func activeProfile(id, phone string, end time.Time) domain.Profile {
	return domain.Profile{
		ID:                  id,
		Phone:               ptr(phone),
		IsSubscribed:        true,
		SubscriptionStatus:  domain.SubscriptionActive,
		SubscriptionEndDate: &end,
	}
}

func newTestDispatcher(q QuoteStore, r RecipientStore, s MessageSender, now time.Time) *Dispatcher {
	d := NewDispatcher(q, r, s)
	d.now = func() time.Time { return now }
	return d
}

func TestRun_PartialFailure(t *testing.T) {
	now := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)
	end := now.Add(24 * time.Hour)
	quotes := &fakeQuotes{quotes: []domain.Quote{
		{ID: 1, Text: "Stay hungry", Author: "Jobs", Date: date(2024, 1, 2)},
	}}
	recipients := &fakeRecipients{profiles: []domain.Profile{
		activeProfile("u1", "+911111111111", end),
		activeProfile("u2", "+912222222222", end),
		activeProfile("u3", "+913333333333", end),
	}}
	sender := &fakeSender{failFor: map[string]bool{"+912222222222": true}}

	summary, err := newTestDispatcher(quotes, recipients, sender, now).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if summary.Sent != 2 || summary.Failed != 1 || summary.Total != 3 {
		t.Errorf("summary = sent=%d failed=%d total=%d, want 2/1/3",
			summary.Sent, summary.Failed, summary.Total)
	}

	var failed *Result
	for i := range summary.Results {
		if summary.Results[i].Status == "error" {
			failed = &summary.Results[i]
		}
	}
	if failed == nil {
		t.Fatal("no error result recorded")
	}
	if failed.UserID != "u2" || failed.Error == "" {
		t.Errorf("failed result = %+v, want u2 with error detail", failed)
	}
}

func TestRun_EmptyRecipients(t *testing.T) {
	now := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)
	quotes := &fakeQuotes{quotes: []domain.Quote{
		{ID: 1, Text: "q", Author: "a", Date: date(2024, 1, 2)},
	}}
	sender := &fakeSender{}

	summary, err := newTestDispatcher(quotes, &fakeRecipients{}, sender, now).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if summary.Total != 0 || summary.Sent != 0 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want empty", summary)
	}
	if summary.Results == nil || len(summary.Results) != 0 {
		t.Errorf("Results = %v, want empty non-nil slice", summary.Results)
	}
	if len(sender.sends) != 0 {
		t.Errorf("sends = %d, want 0", len(sender.sends))
	}
}

func TestRun_QuoteFallbackMostRecentOnOrBefore(t *testing.T) {
	// Quotes exist for Jan 1 and Jan 3; today is Jan 2. The fallback must
	// pick Jan 1, the most recent date on or before today, never Jan 3.
	now := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)
	end := now.Add(time.Hour)
	quotes := &fakeQuotes{quotes: []domain.Quote{
		{ID: 1, Text: "first", Author: "a", Date: date(2024, 1, 1)},
		{ID: 3, Text: "third", Author: "a", Date: date(2024, 1, 3)},
	}}
	recipients := &fakeRecipients{profiles: []domain.Profile{
		activeProfile("u1", "+911111111111", end),
	}}

	summary, err := newTestDispatcher(quotes, recipients, &fakeSender{}, now).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if summary.QuoteID != 1 {
		t.Errorf("QuoteID = %d, want 1 (most recent on or before today)", summary.QuoteID)
	}
}

func TestRun_NoQuoteAvailable(t *testing.T) {
	now := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)
	sender := &fakeSender{}
	recipients := &fakeRecipients{profiles: []domain.Profile{
		activeProfile("u1", "+911111111111", now.Add(time.Hour)),
	}}

	_, err := newTestDispatcher(&fakeQuotes{}, recipients, sender, now).Run(context.Background())
	if !errors.Is(err, ErrNoQuoteAvailable) {
		t.Errorf("err = %v, want ErrNoQuoteAvailable", err)
	}
	// The run must abort before attempting any delivery.
	if len(sender.sends) != 0 {
		t.Errorf("sends = %d, want 0", len(sender.sends))
	}
}

func TestRun_OnlyFutureQuotesIsFatal(t *testing.T) {
	now := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)
	quotes := &fakeQuotes{quotes: []domain.Quote{
		{ID: 9, Text: "future", Author: "a", Date: date(2024, 1, 5)},
	}}

	_, err := newTestDispatcher(quotes, &fakeRecipients{}, &fakeSender{}, now).Run(context.Background())
	if !errors.Is(err, ErrNoQuoteAvailable) {
		t.Errorf("err = %v, want ErrNoQuoteAvailable for future-only quotes", err)
	}
}

func TestEligibility_EntitlementWindowBoundaries(t *testing.T) {
	now := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)

	expired := activeProfile("u-old", "+911111111111", now.AddDate(0, 0, -1))
	justActive := activeProfile("u-new", "+912222222222", now.Add(time.Second))
	noPhone := activeProfile("u-np", "", now.Add(time.Hour))
	noPhone.Phone = nil
	cancelled := activeProfile("u-c", "+913333333333", now.Add(time.Hour))
	cancelled.IsSubscribed = false
	cancelled.SubscriptionStatus = domain.SubscriptionCancelled
	// Invariant violation: subscribed flag set but status not active.
	inconsistent := activeProfile("u-i", "+914444444444", now.Add(time.Hour))
	inconsistent.SubscriptionStatus = domain.SubscriptionNone

	recipients := &fakeRecipients{profiles: []domain.Profile{
		expired, justActive, noPhone, cancelled, inconsistent,
	}}
	quotes := &fakeQuotes{quotes: []domain.Quote{
		{ID: 1, Text: "q", Author: "a", Date: date(2024, 1, 2)},
	}}
	sender := &fakeSender{}

	summary, err := newTestDispatcher(quotes, recipients, sender, now).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if summary.Total != 1 {
		t.Fatalf("Total = %d, want 1 (only the just-active profile)", summary.Total)
	}
	if summary.Results[0].UserID != "u-new" {
		t.Errorf("recipient = %s, want u-new", summary.Results[0].UserID)
	}
}

// rawRecipients returns rows verbatim, like a store whose filter has
// drifted out of sync with the entitlement invariant.
type rawRecipients struct {
	profiles []domain.Profile
}

func (r *rawRecipients) EligibleRecipients(context.Context, time.Time) ([]domain.Profile, error) {
	return r.profiles, nil
}

func TestRun_RejectsInvariantViolatingStoreRows(t *testing.T) {
	now := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)

	inconsistent := activeProfile("u-bad", "+912222222222", now.Add(time.Hour))
	inconsistent.SubscriptionStatus = domain.SubscriptionNone
	expired := activeProfile("u-exp", "+913333333333", now.Add(-time.Minute))

	recipients := &rawRecipients{profiles: []domain.Profile{
		activeProfile("u-ok", "+911111111111", now.Add(time.Hour)),
		inconsistent,
		expired,
	}}
	quotes := &fakeQuotes{quotes: []domain.Quote{
		{ID: 1, Text: "q", Author: "a", Date: date(2024, 1, 2)},
	}}
	sender := &fakeSender{}

	summary, err := newTestDispatcher(quotes, recipients, sender, now).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if summary.Total != 1 {
		t.Fatalf("Total = %d, want 1 (store rows violating the invariant dropped)", summary.Total)
	}
	if summary.Results[0].UserID != "u-ok" {
		t.Errorf("recipient = %s, want u-ok", summary.Results[0].UserID)
	}
	if len(sender.sends) != 1 || sender.sends[0] != "+911111111111" {
		t.Errorf("sends = %v, want only u-ok's phone", sender.sends)
	}
}

func TestRun_MessageFormat(t *testing.T) {
	now := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)
	quotes := &fakeQuotes{quotes: []domain.Quote{
		{ID: 1, Text: "Stay hungry, stay foolish.", Author: "Steve Jobs", Date: date(2024, 1, 2)},
	}}

	var gotBody string
	sender := &senderFunc{fn: func(_ context.Context, to, body string) (string, error) {
		gotBody = body
		return "SM1", nil
	}}
	recipients := &fakeRecipients{profiles: []domain.Profile{
		activeProfile("u1", "+911111111111", now.Add(time.Hour)),
	}}

	if _, err := newTestDispatcher(quotes, recipients, sender, now).Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if want := "Stay hungry, stay foolish.\n— Steve Jobs"; gotBody != want {
		t.Errorf("body = %q, want %q", gotBody, want)
	}
}

type senderFunc struct {
	fn func(ctx context.Context, to, body string) (string, error)
}

func (s *senderFunc) SendWhatsApp(ctx context.Context, to, body string) (string, error) {
	return s.fn(ctx, to, body)
}
