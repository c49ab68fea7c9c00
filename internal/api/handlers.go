package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/inspira/dailyquote/internal/broadcast"
	"github.com/inspira/dailyquote/internal/domain"
	"github.com/inspira/dailyquote/internal/pkg/httputil"
	"github.com/inspira/dailyquote/internal/razorpay"
	"github.com/inspira/dailyquote/internal/subscription"
)

// SubscriptionService is the subscription workflow surface the handlers use.
type SubscriptionService interface {
	CreateOrder(ctx context.Context, userID string) (*razorpay.Order, error)
	VerifyAndActivate(ctx context.Context, cb subscription.Callback) (*domain.Activation, error)
	Status(ctx context.Context, userID string) (*domain.Profile, bool, error)
	Unsubscribe(ctx context.Context, userID string) error
}

// BroadcastRunner runs one broadcast and reports the summary.
type BroadcastRunner interface {
	Run(ctx context.Context) (*broadcast.Summary, error)
}

// MessageSender sends a single message, used by the test-send endpoint.
type MessageSender interface {
	SendWhatsApp(ctx context.Context, to, body string) (string, error)
}

// Handlers contains all HTTP handlers
type Handlers struct {
	subscriptions SubscriptionService
	dispatcher    BroadcastRunner
	scheduler     *broadcast.Scheduler
	sender        MessageSender
	validate      *validator.Validate
	startedAt     time.Time
}

// NewHandlers creates a new Handlers instance
func NewHandlers(subs SubscriptionService, dispatcher BroadcastRunner, sender MessageSender) *Handlers {
	return &Handlers{
		subscriptions: subs,
		dispatcher:    dispatcher,
		sender:        sender,
		validate:      validator.New(),
		startedAt:     time.Now(),
	}
}

// SetScheduler attaches the broadcast scheduler so health can report on it.
func (h *Handlers) SetScheduler(s *broadcast.Scheduler) {
	h.scheduler = s
}

// HealthCheck returns the health status of the API
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
	}
	if h.scheduler != nil {
		resp["scheduler_running"] = h.scheduler.IsRunning()
		resp["broadcast_stats"] = h.scheduler.Stats()
	}
	httputil.OK(w, resp)
}
