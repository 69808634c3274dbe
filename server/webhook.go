package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/instantcurrency/rates/subscription"
)

var errUnableToApplyEvent = errors.New("unable to apply payment event")

// CheckoutWebhook ingests payment processor events. Recognized events are
// applied to the subscription store; everything else parseable is
// acknowledged so the processor stops redelivering it
func (s *Server) CheckoutWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)

		return
	}

	event, err := subscription.ParseEvent(payload)
	if err != nil {
		s.logger.Debug(
			"discarding malformed payment event",
			"err", err,
		)

		writeError(w, http.StatusBadRequest, err)

		return
	}

	if !event.Recognized() {
		s.logger.Info("acknowledging unhandled payment event", "type", event.Type)

		writeJSON(w, http.StatusOK, &WebhookResponse{Success: true})

		return
	}

	if err := s.subscriptions.Apply(r.Context(), event); err != nil {
		s.logger.Error(
			"unable to apply payment event",
			"type", event.Type,
			"err", err,
		)

		writeError(w, http.StatusInternalServerError, errUnableToApplyEvent)

		return
	}

	writeJSON(w, http.StatusOK, &WebhookResponse{Success: true})
}
