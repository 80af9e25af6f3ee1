package out

import (
	"context"

	"psichat_server/core/domain"
)

// Stream names
const (
	StreamTutorAlerts = "alerts:tutor"
)

// AlertPublisher pushes alert events to the tutor notification stream.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert *domain.AlertEvent) error
}
