package reporter

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/nahidhasan98/commit-notifier/internal/errors"
	"github.com/nahidhasan98/commit-notifier/internal/logger"
	"github.com/nahidhasan98/commit-notifier/internal/metrics"
	"github.com/nahidhasan98/commit-notifier/internal/models"
)

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Reporter isolates a stage failure: it records the error and never returns one
type Reporter interface {
	Report(ctx context.Context, err error, action string)
}

// AlertSender delivers the operator alert
type AlertSender interface {
	Send(ctx context.Context, msg models.WebhookMessage) error
}

// ErrorReporter appends diagnostics to a file, logs them and alerts the owner
type ErrorReporter struct {
	path    string
	ownerID string
	alerts  AlertSender
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time
	mu      sync.Mutex
}

// New creates an error reporter. alerts may be nil to disable owner alerts.
func New(path, ownerID string, alerts AlertSender, m *metrics.Metrics, log *logger.Logger) *ErrorReporter {
	return &ErrorReporter{
		path:    path,
		ownerID: ownerID,
		alerts:  alerts,
		metrics: m,
		log:     log.Component("reporter"),
		now:     time.Now,
	}
}

// SetAlertSender replaces the alert sender. The sink is usually built after
// the reporter because the sink itself reports errors.
func (r *ErrorReporter) SetAlertSender(alerts AlertSender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = alerts
}

// Report records err as having happened while performing action
func (r *ErrorReporter) Report(ctx context.Context, err error, action string) {
	if err == nil {
		return
	}

	code := errors.CodeOf(err)
	r.metrics.ErrorReported(string(code))

	line := fmt.Sprintf("[%s] Error encountered when %s: %s\n", r.timestamp(), action, singleLine(fmt.Sprintf("%+v", err)))
	r.appendLine(line)
	r.log.With("error_code", code).With("action", action).Error("Error encountered", err)

	r.notifyOwner(ctx, action)
}

// notifyOwner is a dead end on failure: it only logs locally
func (r *ErrorReporter) notifyOwner(ctx context.Context, action string) {
	r.mu.Lock()
	alerts := r.alerts
	r.mu.Unlock()
	if alerts == nil {
		return
	}

	content := fmt.Sprintf("An error was encountered when %s. Please check %s for more details.", action, r.path)
	if r.ownerID != "" {
		content = fmt.Sprintf("<@!%s> %s", r.ownerID, content)
	}

	msg := models.WebhookMessage{
		Content:         content,
		AllowedMentions: &models.AllowedMentions{Parse: []string{models.MentionUsers}},
	}
	if err := alerts.Send(ctx, msg); err != nil {
		r.log.Error("Failed to notify owner", err)
		r.appendLine(fmt.Sprintf("[%s] Failed to notify owner: %s\n", r.timestamp(), singleLine(err.Error())))
	}
}

func (r *ErrorReporter) appendLine(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		r.log.Error("Failed to open diagnostic log", err)
		return
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		r.log.Error("Failed to write diagnostic log", err)
	}
}

// singleLine keeps one diagnostic entry on one line
func singleLine(s string) string {
	return lineBreaks.Replace(strings.TrimSpace(s))
}

func (r *ErrorReporter) timestamp() string {
	return r.now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
