// Package sink delivers structured chat messages to the configured chat
// service. Exactly one outbound send happens per Send call; there are no
// retries.
package sink

import (
	"context"

	"github.com/nahidhasan98/commit-notifier/internal/models"
)

// Sink accepts structured webhook messages
type Sink interface {
	Send(ctx context.Context, msg models.WebhookMessage) error
}
