package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ai-image-studio/internal/domain/ports/adapter"
	"ai-image-studio/internal/infra/worker"
)

var (
	_ adapter.Notifier   = (*Async)(nil)
	_ adapter.OpsAlerter = (*Async)(nil)
)

const deliveryTimeout = 30 * time.Second

// Async hands deliveries to the worker pool so request handlers never wait on
// SMTP or the bot API. Returned errors only report a full queue.
type Async struct {
	pool     *worker.Pool
	notifier adapter.Notifier
	alerter  adapter.OpsAlerter
	log      *zerolog.Logger
}

func NewAsync(pool *worker.Pool, notifier adapter.Notifier, alerter adapter.OpsAlerter, log *zerolog.Logger) *Async {
	if notifier == nil {
		notifier = NewNoop(log)
	}
	if alerter == nil {
		alerter = NewNoop(log)
	}
	return &Async{pool: pool, notifier: notifier, alerter: alerter, log: log}
}

func (a *Async) Notify(ctx context.Context, to string, n adapter.Notification) error {
	err := a.pool.Submit(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
		defer cancel()
		return a.notifier.Notify(ctx, to, n)
	})
	if err != nil {
		a.log.Warn().Err(err).Str("subject", n.Subject).Msg("notification dropped")
	}
	return err
}

func (a *Async) Alert(ctx context.Context, text string) error {
	err := a.pool.Submit(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
		defer cancel()
		return a.alerter.Alert(ctx, text)
	})
	if err != nil {
		a.log.Warn().Err(err).Msg("ops alert dropped")
	}
	return err
}
