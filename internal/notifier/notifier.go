package notifier

import (
	"context"

	"github.com/nahidhasan98/commit-notifier/internal/errors"
	"github.com/nahidhasan98/commit-notifier/internal/logger"
	"github.com/nahidhasan98/commit-notifier/internal/metrics"
	"github.com/nahidhasan98/commit-notifier/internal/models"
	"github.com/nahidhasan98/commit-notifier/internal/sink"
)

// Notifier delivers formatted commit notifications to a sink
type Notifier struct {
	sink    sink.Sink
	metrics *metrics.Metrics
	log     *logger.Logger
}

// New creates a notifier
func New(s sink.Sink, m *metrics.Metrics, log *logger.Logger) *Notifier {
	return &Notifier{
		sink:    s,
		metrics: m,
		log:     log.Component("notifier"),
	}
}

// Deliver sends msg once under the commit author's identity. Failures are
// returned, never retried.
func (n *Notifier) Deliver(ctx context.Context, msg models.NotificationMessage, c models.Commit) error {
	wm := BuildMessage(msg, c)

	err := n.sink.Send(ctx, wm)
	n.metrics.Delivered(err)
	if err != nil {
		if !errors.Is(err, errors.ErrCodeDeliveryFailed) {
			err = errors.DeliveryFailed(err)
		}
		return err
	}

	n.log.Infof("Message sent successfully with %d embeds and %d attachments", len(wm.Embeds), len(wm.Attachments))
	return nil
}

// BuildMessage wraps a notification into a webhook message. Pings are
// limited to roles.
func BuildMessage(msg models.NotificationMessage, c models.Commit) models.WebhookMessage {
	wm := models.WebhookMessage{
		Content:         msg.Lead,
		Username:        c.User.Name,
		Embeds:          msg.Embeds(),
		Attachments:     msg.Attachments,
		AllowedMentions: &models.AllowedMentions{Parse: []string{models.MentionRoles}},
	}
	if msg.Primary.Author != nil {
		wm.AvatarURL = msg.Primary.Author.IconURL
	}
	return wm
}
