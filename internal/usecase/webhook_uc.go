package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/model"
	"ai-image-studio/internal/domain/ports/adapter"
	"ai-image-studio/internal/infra/logging"
	"ai-image-studio/internal/infra/metrics"
)

// Compile-time check
var _ WebhookUseCase = (*webhookUC)(nil)

// inFlightWindow is how long an unfinished, error-free record blocks a redelivery.
const inFlightWindow = 2 * time.Minute

var subscriptionEventKinds = map[string]bool{
	"created": true, "updated": true, "cancelled": true, "canceled": true,
	"activated": true, "renewed": true, "active": true,
	"on_hold": true, "failed": true, "expired": true,
}

// WebhookResult describes what a delivery did.
type WebhookResult struct {
	EventType string
	// Duplicate is set when the event id was already processed.
	Duplicate bool
	// Ignored is set for recorded events of a type nothing handles.
	Ignored      bool
	Subscription *model.Subscription
	Payment      *model.PaymentTransaction
	TrainingJob  *model.TrainingJob
}

// WebhookUseCase processes verified webhook bodies exactly once per event id.
type WebhookUseCase interface {
	HandlePayment(ctx context.Context, eventID string, body []byte) (*WebhookResult, error)
	HandleTraining(ctx context.Context, eventID string, body []byte, hints TrainingHints) (*WebhookResult, error)
}

type webhookUC struct {
	events   *EventStore
	ledger   LedgerUseCase
	training TrainingUseCase
	alerter  adapter.OpsAlerter
	validate *validator.Validate
	now      func() time.Time
	log      *zerolog.Logger
}

func NewWebhookUseCase(
	events *EventStore,
	ledger LedgerUseCase,
	training TrainingUseCase,
	alerter adapter.OpsAlerter,
	logger *zerolog.Logger,
) *webhookUC {
	return &webhookUC{
		events:   events,
		ledger:   ledger,
		training: training,
		alerter:  alerter,
		validate: validator.New(),
		now:      time.Now,
		log:      logger,
	}
}

func (w *webhookUC) HandlePayment(ctx context.Context, eventID string, body []byte) (*WebhookResult, error) {
	defer logging.TraceDuration(w.log, "WebhookUC.HandlePayment")()

	var env PaymentEnvelope
	if err := w.decode(body, &env); err != nil {
		metrics.IncWebhook(string(model.WebhookSourcePayment), "unknown", "invalid")
		return nil, err
	}
	res := &WebhookResult{EventType: env.Type}
	err := w.process(ctx, model.WebhookSourcePayment, eventID, env.Type, body, res, func(ctx context.Context) error {
		return w.dispatchPayment(ctx, env, res)
	})
	return res, err
}

func (w *webhookUC) dispatchPayment(ctx context.Context, env PaymentEnvelope, res *WebhookResult) error {
	typ := strings.ToLower(env.Type)
	switch {
	case strings.HasPrefix(typ, "subscription.") && subscriptionEventKinds[strings.TrimPrefix(typ, "subscription.")]:
		var data SubscriptionEventData
		if err := w.decode(env.Data, &data); err != nil {
			return err
		}
		sub, err := w.ledger.ApplySubscriptionEvent(ctx, typ, data)
		if err != nil {
			return err
		}
		res.Subscription = sub
	case strings.HasPrefix(typ, "payment."):
		var data PaymentEventData
		if err := w.decode(env.Data, &data); err != nil {
			return err
		}
		p, err := w.ledger.ApplyPaymentEvent(ctx, typ, data)
		if err != nil {
			return err
		}
		res.Payment = p
	default:
		res.Ignored = true
	}
	return nil
}

func (w *webhookUC) HandleTraining(ctx context.Context, eventID string, body []byte, hints TrainingHints) (*WebhookResult, error) {
	defer logging.TraceDuration(w.log, "WebhookUC.HandleTraining")()

	var cb model.TrainingCallback
	if err := w.decode(body, &cb); err != nil {
		metrics.IncWebhook(string(model.WebhookSourceTraining), "unknown", "invalid")
		return nil, err
	}
	res := &WebhookResult{EventType: "training." + strings.ToLower(cb.Status)}
	err := w.process(ctx, model.WebhookSourceTraining, eventID, res.EventType, body, res, func(ctx context.Context) error {
		job, err := w.training.ApplyCallback(ctx, cb, hints)
		if err != nil {
			return err
		}
		res.TrainingJob = job
		return nil
	})
	return res, err
}

// process records the delivery, runs handle at most once per event id and
// stores the outcome. Failed records are retried on redelivery.
func (w *webhookUC) process(
	ctx context.Context,
	source model.WebhookSource,
	eventID, eventType string,
	body []byte,
	res *WebhookResult,
	handle func(ctx context.Context) error,
) error {
	ctx = logging.WithEventID(ctx, eventID)
	log := logging.With(ctx, w.log)

	isNew, rec, err := w.events.RecordIfNew(ctx, source, eventID, eventType, body)
	if err != nil {
		return err
	}
	if !isNew && rec != nil {
		if rec.Processed {
			res.Duplicate = true
			metrics.IncWebhook(string(source), eventType, "duplicate")
			log.Info().Str("event_type", eventType).Msg("duplicate webhook delivery")
			return nil
		}
		if rec.ProcessingError == nil && w.now().Sub(rec.ReceivedAt) < inFlightWindow {
			metrics.IncWebhook(string(source), eventType, "in_flight")
			return domain.ErrEventInFlight
		}
		log.Info().Int("attempts", rec.Attempts).Msg("reprocessing webhook event")
	}

	// The outcome is stored even when the sender hangs up mid-handle, or the
	// record would sit in the in-flight window until it expires.
	done := context.WithoutCancel(ctx)

	if err := handle(ctx); err != nil {
		metrics.IncWebhook(string(source), eventType, "failed")
		log.Error().Err(err).Str("event_type", eventType).Msg("webhook processing failed")
		if mErr := w.events.MarkFailed(done, eventID, err.Error()); mErr != nil {
			log.Error().Err(mErr).Msg("failed to mark webhook event failed")
		}
		w.alert(ctx, source, eventID, eventType, err)
		return err
	}

	if err := w.events.MarkProcessed(done, eventID); err != nil {
		// Side effects are already applied; a redelivery replays idempotent writes.
		log.Error().Err(err).Msg("failed to mark webhook event processed")
	}
	result := "processed"
	if res.Ignored {
		result = "ignored"
	}
	metrics.IncWebhook(string(source), eventType, result)
	return nil
}

func (w *webhookUC) alert(ctx context.Context, source model.WebhookSource, eventID, eventType string, err error) {
	if w.alerter == nil || errors.Is(err, domain.ErrTrainingJobNotFound) {
		return
	}
	text := fmt.Sprintf("%s webhook %s (%s) failed: %v", source, eventID, eventType, err)
	if aErr := w.alerter.Alert(ctx, text); aErr != nil {
		logging.With(ctx, w.log).Warn().Err(aErr).Msg("ops alert failed")
	}
}

func (w *webhookUC) decode(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: malformed payload: %v", domain.ErrInvalidArgument, err)
	}
	if err := w.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}
