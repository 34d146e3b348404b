package notify

import (
	"context"

	"github.com/rs/zerolog"

	"ai-image-studio/internal/domain/ports/adapter"
)

var (
	_ adapter.Notifier   = (*Noop)(nil)
	_ adapter.OpsAlerter = (*Noop)(nil)
)

// Noop logs instead of delivering.
type Noop struct {
	log *zerolog.Logger
}

func NewNoop(log *zerolog.Logger) *Noop {
	return &Noop{log: log}
}

func (n *Noop) Notify(ctx context.Context, to string, msg adapter.Notification) error {
	n.log.Debug().Str("to", to).Str("subject", msg.Subject).Msg("noop notify")
	return nil
}

func (n *Noop) Alert(ctx context.Context, text string) error {
	n.log.Debug().Str("text", text).Msg("noop alert")
	return nil
}
