package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/oapi-codegen/runtime"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/model"
	"ai-image-studio/internal/infra/logging"
	"ai-image-studio/internal/infra/metrics"
	"ai-image-studio/internal/infra/security"
	"ai-image-studio/internal/usecase"
)

type paymentWebhookResponse struct {
	Received  bool   `json:"received"`
	EventType string `json:"eventType,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Ignored   bool   `json:"ignored,omitempty"`
}

type trainingWebhookResponse struct {
	TrainingJobID string `json:"trainingJobId,omitempty"`
	UpdatedStatus string `json:"updatedStatus,omitempty"`
	Progress      int    `json:"progress"`
	Duplicate     bool   `json:"duplicate,omitempty"`
}

// verified reads the body and checks its signature. It writes the response
// and returns ok=false when the request must stop here.
func (s *Server) verified(w http.ResponseWriter, r *http.Request, source model.WebhookSource, v *security.Verifier) ([]byte, string, bool) {
	log := logging.With(r.Context(), s.log)
	if v == nil {
		log.Error().Str("source", string(source)).Msg("webhook secret is not configured")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "webhook secret not configured"})
		return nil, "", false
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "unreadable body"})
		return nil, "", false
	}
	h := security.HeadersFrom(r.Header)
	if err := v.Verify(body, h); err != nil {
		reason := "invalid_signature"
		switch {
		case errors.Is(err, security.ErrMissingHeaders):
			reason = "missing_headers"
		case errors.Is(err, security.ErrStaleTimestamp), errors.Is(err, security.ErrInvalidTimestamp):
			reason = "stale_timestamp"
		}
		metrics.IncSignatureReject(string(source), reason)
		log.Warn().Err(err).Str("source", string(source)).Msg("webhook signature rejected")
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid signature", Code: reason})
		return nil, "", false
	}
	return body, h.ID, true
}

// webhookFailure answers a processing error. Anything but an unknown training
// job or an in-flight duplicate is a 400 so the provider retries.
func (s *Server) webhookFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, domain.ErrTrainingJobNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrEventInFlight):
		status = http.StatusConflict
	}
	logging.With(r.Context(), s.log).Warn().Err(err).Int("status", status).Msg("webhook not processed")
	writeJSON(w, status, errorBody{Error: http.StatusText(status)})
}

func (s *Server) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, eventID, ok := s.verified(w, r, model.WebhookSourcePayment, s.paymentVerifier)
	if !ok {
		return
	}
	res, err := s.webhooks.HandlePayment(r.Context(), eventID, body)
	if err != nil {
		s.webhookFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentWebhookResponse{
		Received:  true,
		EventType: res.EventType,
		Duplicate: res.Duplicate,
		Ignored:   res.Ignored,
	})
}

func (s *Server) handleTrainingWebhook(w http.ResponseWriter, r *http.Request) {
	body, eventID, ok := s.verified(w, r, model.WebhookSourceTraining, s.trainingVerifier)
	if !ok {
		return
	}
	var hints usecase.TrainingHints
	q := r.URL.Query()
	for name, dest := range map[string]*string{"userId": &hints.UserID, "modelId": &hints.ModelID, "fileName": &hints.FileName} {
		if err := runtime.BindQueryParameter("form", true, false, name, q, dest); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid query parameter " + name})
			return
		}
	}

	res, err := s.webhooks.HandleTraining(r.Context(), eventID, body, hints)
	if err != nil {
		s.webhookFailure(w, r, err)
		return
	}
	out := trainingWebhookResponse{Duplicate: res.Duplicate}
	if j := res.TrainingJob; j != nil {
		out.TrainingJobID, out.UpdatedStatus, out.Progress = j.ID, string(j.Status), j.Progress
	}
	writeJSON(w, http.StatusOK, out)
}
