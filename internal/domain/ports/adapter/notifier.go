package adapter

import "context"

type Notification struct {
	Subject string
	Body    string
}

// Notifier delivers a message to a user. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, to string, n Notification) error
}

// OpsAlerter sends operational alerts to the operators of the service.
type OpsAlerter interface {
	Alert(ctx context.Context, text string) error
}
