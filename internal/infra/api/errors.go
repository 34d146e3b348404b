package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/usecase"
)

type errorBody struct {
	Error       string `json:"error"`
	Code        string `json:"code,omitempty"`
	Reason      string `json:"reason,omitempty"`
	UpgradeHint string `json:"upgradeHint,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors onto HTTP statuses for the user API.
func statusFor(err error) (int, string) {
	var qe *usecase.QuotaError
	switch {
	case errors.As(err, &qe):
		return http.StatusForbidden, "quota_exceeded"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrTrainingJobNotFound),
		errors.Is(err, domain.ErrNoSubscription),
		errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrCannotCancelFree):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrUserUnresolved),
		errors.Is(err, domain.ErrPlanNotFound):
		return http.StatusUnprocessableEntity, "unprocessable"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, domain.ErrEventInFlight):
		return http.StatusConflict, "in_flight"
	case errors.Is(err, domain.ErrAlreadySubscribed):
		return http.StatusConflict, "already_subscribed"
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway, "upstream_error"
	}
	return http.StatusInternalServerError, "internal"
}

var publicMessages = map[int]string{
	http.StatusUnauthorized:        "unauthorized",
	http.StatusForbidden:           "forbidden",
	http.StatusNotFound:            "not found",
	http.StatusUnprocessableEntity: "request could not be processed",
	http.StatusTooManyRequests:     "too many requests",
	http.StatusConflict:            "request is already being processed",
	http.StatusBadGateway:          "upstream service unavailable",
	http.StatusInternalServerError: "internal error",
}

// writeError renders err with a generic message; details go to the log only.
// Invalid-argument messages are authored by this service and are shown as is.
func writeError(w http.ResponseWriter, log *zerolog.Logger, err error) {
	status, code := statusFor(err)
	body := errorBody{Error: publicMessages[status], Code: code}

	var qe *usecase.QuotaError
	switch {
	case errors.As(err, &qe):
		body.Error = qe.Decision.Reason
		body.Code = qe.Decision.Code
		body.Reason = qe.Decision.Reason
		body.UpgradeHint = qe.Decision.UpgradeHint
	case errors.Is(err, domain.ErrCannotCancelFree):
		body.Error = domain.ErrCannotCancelFree.Error()
	case errors.Is(err, domain.ErrAlreadySubscribed):
		body.Error = domain.ErrAlreadySubscribed.Error()
	case status == http.StatusBadRequest:
		body.Error = err.Error()
	}

	ev := log.Warn()
	if status >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).Int("status", status).Msg("request failed")
	writeJSON(w, status, body)
}
