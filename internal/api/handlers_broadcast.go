package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/inspira/dailyquote/internal/broadcast"
	"github.com/inspira/dailyquote/internal/pkg/httputil"
)

// HandleRunBroadcast triggers one broadcast run. Normally invoked by the
// scheduler, but callable on demand for a manual re-send. Per-recipient
// delivery failures do not fail the run; only a missing quote does.
func (h *Handlers) HandleRunBroadcast(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dispatcher.Run(r.Context())
	if err != nil {
		if errors.Is(err, broadcast.ErrNoQuoteAvailable) {
			httputil.Error(w, http.StatusServiceUnavailable, "no_quote_available",
				"no quotes available in the database")
			return
		}
		httputil.InternalError(w, err)
		return
	}

	message := fmt.Sprintf("Daily quotes sent: %d successful, %d failed", summary.Sent, summary.Failed)
	if summary.Total == 0 {
		message = "No active subscribed users found"
	}

	httputil.OK(w, map[string]interface{}{
		"success": true,
		"message": message,
		"runId":   summary.RunID,
		"results": summary.Results,
	})
}

// testSendRequest is the body for the diagnostic single-message send.
type testSendRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
}

const testMessage = "Test message from Daily Quotes!\n\n" +
	"This is a test to verify WhatsApp delivery is working correctly.\n" +
	"If you receive this, the setup is successful."

// HandleTestSend sends a single diagnostic message to the given phone
// number. Used during onboarding to confirm the gateway configuration.
func (h *Handlers) HandleTestSend(w http.ResponseWriter, r *http.Request) {
	var req testSendRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.BadRequest(w, "phone must be a valid E.164 number")
		return
	}

	sid, err := h.sender.SendWhatsApp(r.Context(), req.Phone, testMessage)
	if err != nil {
		httputil.Error(w, http.StatusBadGateway, "delivery_failed", err.Error())
		return
	}

	httputil.OK(w, map[string]interface{}{
		"success": true,
		"message": "Test message sent successfully",
		"sid":     sid,
	})
}
