package sink

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"github.com/nahidhasan98/commit-notifier/internal/errors"
	"github.com/nahidhasan98/commit-notifier/internal/logger"
	"github.com/nahidhasan98/commit-notifier/internal/models"
)

var (
	roleMentionPattern = regexp.MustCompile(`<@&\d+>`)
	userMentionPattern = regexp.MustCompile(`<@!?\d+>\s*`)
)

// WhatsAppOptions configures the WhatsApp sink
type WhatsAppOptions struct {
	DBDriver   string
	DBDSN      string
	LogLevel   string
	DeviceName string
	Recipient  string // JID receiving commit notifications
	Owner      string // JID receiving operator alerts, defaults to Recipient
}

// WhatsApp delivers messages as text through a linked WhatsApp device
type WhatsApp struct {
	client    *whatsmeow.Client
	recipient types.JID
	owner     types.JID
	log       *logger.Logger

	mu              sync.RWMutex
	connected       bool
	cancelReconnect context.CancelFunc
	maxRetries      int
	backoff         backoff.Backoff
}

// NewWhatsApp opens the device store and creates the client. Connect must be
// called before Send.
func NewWhatsApp(ctx context.Context, opts WhatsAppOptions, log *logger.Logger) (*WhatsApp, error) {
	recipient, err := types.ParseJID(opts.Recipient)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient JID %s: %w", opts.Recipient, err)
	}
	owner := recipient
	if opts.Owner != "" {
		if owner, err = types.ParseJID(opts.Owner); err != nil {
			return nil, fmt.Errorf("invalid owner JID %s: %w", opts.Owner, err)
		}
	}

	container, err := sqlstore.New(ctx, opts.DBDriver, opts.DBDSN, waLog.Stdout("Database", opts.LogLevel, true))
	if err != nil {
		return nil, fmt.Errorf("failed to create database container: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device store: %w", err)
	}

	// Name shown in WhatsApp's linked devices
	if opts.DeviceName == "" {
		opts.DeviceName = "macOS"
	}
	store.SetOSInfo(opts.DeviceName, [3]uint32{0, 1, 0})
	deviceStore.Platform = opts.DeviceName

	w := &WhatsApp{
		client:     whatsmeow.NewClient(deviceStore, waLog.Stdout("Client", opts.LogLevel, true)),
		recipient:  recipient,
		owner:      owner,
		log:        log.Component("whatsapp"),
		maxRetries: 10,
		backoff: backoff.Backoff{
			Min:    5 * time.Second,
			Max:    5 * time.Minute,
			Factor: 1.5,
			Jitter: true,
		},
	}
	w.client.AddEventHandler(w.handleConnectionEvents)

	return w, nil
}

// Connect connects with the stored session, or starts QR pairing in the
// background when there is none.
func (w *WhatsApp) Connect(ctx context.Context) error {
	if w.client.Store.ID == nil {
		w.log.Info("No existing session found, starting QR authentication...")
		go w.authenticateWithQR(ctx)
		return nil
	}

	w.log.Info("Existing session found. Connecting...")
	if err := w.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect client: %w", err)
	}
	return nil
}

// Disconnect stops reconnection attempts and closes the connection
func (w *WhatsApp) Disconnect() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancelReconnect != nil {
		w.cancelReconnect()
		w.cancelReconnect = nil
	}
	w.client.Disconnect()
	w.connected = false
	w.log.Info("Disconnected from WhatsApp")
}

// IsConnected checks the connection and session state
func (w *WhatsApp) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected && w.client.IsConnected() && w.client.Store.ID != nil
}

// Send renders msg as text. Messages that only allow user mentions are
// operator alerts and go to the owner.
func (w *WhatsApp) Send(ctx context.Context, msg models.WebhookMessage) error {
	if !w.IsConnected() {
		return errors.DeliveryFailed(fmt.Errorf("whatsapp client is not connected"))
	}

	to := w.recipient
	if isUserAlert(msg) {
		to = w.owner
	}

	wa := &waE2E.Message{
		Conversation: proto.String(RenderText(msg)),
	}
	if _, err := w.client.SendMessage(ctx, to, wa); err != nil {
		return errors.DeliveryFailed(err)
	}

	w.log.Infof("Message sent to %s", to.String())
	return nil
}

func isUserAlert(msg models.WebhookMessage) bool {
	return msg.AllowedMentions != nil &&
		len(msg.AllowedMentions.Parse) == 1 &&
		msg.AllowedMentions.Parse[0] == models.MentionUsers
}

// RenderText flattens a webhook message into WhatsApp markup. Attachments
// and images are sent as links.
func RenderText(msg models.WebhookMessage) string {
	var sb strings.Builder

	lead := roleMentionPattern.ReplaceAllString(msg.Content, "commit")
	lead = strings.TrimSpace(userMentionPattern.ReplaceAllString(lead, ""))
	if lead != "" {
		sb.WriteString(fmt.Sprintf("🔔 *%s*\n", lead))
	}

	for i, e := range msg.Embeds {
		if i == 0 {
			writePrimaryEmbed(&sb, e)
			continue
		}
		if e.Image != nil {
			sb.WriteString(fmt.Sprintf("🖼 %s\n", e.Image.URL))
		}
	}

	for _, a := range msg.Attachments {
		sb.WriteString(fmt.Sprintf("📎 %s\n", a.URL))
	}

	return strings.TrimRight(sb.String(), "\n")
}

func writePrimaryEmbed(sb *strings.Builder, e models.Embed) {
	sb.WriteString("\n")
	if e.Title != "" {
		sb.WriteString(fmt.Sprintf("*%s*\n", e.Title))
	}
	if e.Author != nil {
		sb.WriteString(fmt.Sprintf("👤 %s\n", e.Author.Name))
	}
	if e.Description != "" {
		sb.WriteString("\n" + e.Description + "\n\n")
	}
	for _, f := range e.Fields {
		sb.WriteString("```" + f.Value + "```\n")
	}
	if e.URL != "" {
		sb.WriteString(fmt.Sprintf("🔗 %s\n", e.URL))
	}
	if e.Image != nil {
		sb.WriteString(fmt.Sprintf("🖼 %s\n", e.Image.URL))
	}
	if e.Footer != nil {
		sb.WriteString(fmt.Sprintf("_%s_\n", e.Footer.Text))
	}
}

func (w *WhatsApp) handleConnectionEvents(evt interface{}) {
	switch v := evt.(type) {
	case *events.Connected:
		w.mu.Lock()
		w.connected = true
		if w.cancelReconnect != nil {
			w.cancelReconnect()
			w.cancelReconnect = nil
		}
		w.mu.Unlock()
		w.log.Info("WhatsApp client connected")

	case *events.Disconnected:
		w.mu.Lock()
		w.connected = false
		shouldReconnect := w.cancelReconnect == nil
		w.mu.Unlock()

		w.log.Warn("WhatsApp client disconnected")
		if shouldReconnect {
			go w.reconnect()
		}

	case *events.StreamError:
		w.log.Errorf("WhatsApp stream error: %v", v)
	}
}

func (w *WhatsApp) reconnect() {
	w.mu.Lock()
	if w.connected || w.cancelReconnect != nil {
		w.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancelReconnect = cancel
	w.backoff.Reset()
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.cancelReconnect = nil
		w.mu.Unlock()
	}()

	for attempt := 1; attempt <= w.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			w.log.Info("Reconnection cancelled")
			return
		case <-time.After(w.backoff.Duration()):
		}

		if w.client.IsConnected() {
			w.mu.Lock()
			w.connected = true
			w.mu.Unlock()
			return
		}

		w.log.Infof("Reconnection attempt %d/%d", attempt, w.maxRetries)
		if err := w.client.Connect(); err != nil {
			w.log.Errorf("Reconnection attempt %d failed: %v", attempt, err)
			continue
		}

		w.log.Info("Successfully reconnected to WhatsApp")
		return
	}

	w.log.Error("All reconnection attempts failed", nil)
}

// authenticateWithQR pairs a new device, regenerating the code on expiry
func (w *WhatsApp) authenticateWithQR(ctx context.Context) {
	const maxAttempts = 5

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return
		}

		qrCtx, qrCancel := context.WithTimeout(ctx, 60*time.Second)
		qrChan, err := w.client.GetQRChannel(qrCtx)
		if err != nil {
			qrCancel()
			w.log.Errorf("Failed to get QR channel: %v", err)
			continue
		}

		if !w.client.IsConnected() {
			if err := w.client.Connect(); err != nil {
				qrCancel()
				w.log.Errorf("Failed to connect client: %v", err)
				continue
			}
		}

		paired := w.waitForPairing(qrCtx, qrChan)
		qrCancel()

		if paired {
			w.mu.Lock()
			w.connected = true
			w.mu.Unlock()
			w.log.Info("WhatsApp authentication successful")
			return
		}
		w.log.Warnf("QR code authentication failed (attempt %d/%d)", attempt, maxAttempts)
	}

	w.log.Error("Failed to authenticate after multiple attempts", nil)
}

func (w *WhatsApp) waitForPairing(ctx context.Context, qrChan <-chan whatsmeow.QRChannelItem) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case evt, ok := <-qrChan:
			if !ok {
				return false
			}
			switch evt.Event {
			case "code":
				fmt.Println("\n" + strings.Repeat("=", 64))
				fmt.Println("Scan this QR code with WhatsApp > Settings > Linked Devices (60s)")
				fmt.Println(strings.Repeat("=", 64))
				qrterminal.GenerateWithConfig(evt.Code, qrterminal.Config{
					Level:      qrterminal.M,
					Writer:     os.Stdout,
					HalfBlocks: true,
					QuietZone:  1,
				})
			case "success":
				return true
			case "timeout":
				w.log.Warn("QR code expired")
				return false
			default:
				w.log.Infof("Authentication event: %s", evt.Event)
			}
		}
	}
}
