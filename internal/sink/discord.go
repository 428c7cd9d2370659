package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/nahidhasan98/commit-notifier/internal/errors"
	"github.com/nahidhasan98/commit-notifier/internal/logger"
	"github.com/nahidhasan98/commit-notifier/internal/models"
)

// maxErrorBody bounds how much of a rejected response is kept in the error
const maxErrorBody = 512

// Discord posts messages to a Discord-compatible webhook
type Discord struct {
	client     *http.Client
	webhookURL string
	log        *logger.Logger
}

// NewDiscord creates a webhook sink
func NewDiscord(c *http.Client, webhookURL string, log *logger.Logger) *Discord {
	return &Discord{
		client:     c,
		webhookURL: webhookURL,
		log:        log.Component("discord"),
	}
}

type attachmentRef struct {
	ID       int    `json:"id"`
	Filename string `json:"filename"`
}

type discordPayload struct {
	models.WebhookMessage
	Attachments []attachmentRef `json:"attachments,omitempty"`
}

// Send posts msg as JSON, or as multipart form data when it has attachments
func (d *Discord) Send(ctx context.Context, msg models.WebhookMessage) error {
	var (
		body        []byte
		contentType string
		err         error
	)

	if len(msg.Attachments) == 0 {
		body, err = json.Marshal(msg)
		contentType = "application/json"
	} else {
		body, contentType, err = d.multipartBody(ctx, msg)
	}
	if err != nil {
		return errors.DeliveryFailed(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return errors.DeliveryFailed(err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := d.client.Do(req)
	if err != nil {
		return errors.DeliveryFailed(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return errors.DeliveryFailed(fmt.Errorf("webhook responded %d: %s", resp.StatusCode, bytes.TrimSpace(snippet)))
	}

	return nil
}

func (d *Discord) multipartBody(ctx context.Context, msg models.WebhookMessage) ([]byte, string, error) {
	payload := discordPayload{WebhookMessage: msg}
	for i, a := range msg.Attachments {
		payload.Attachments = append(payload.Attachments, attachmentRef{ID: i, Filename: a.Filename})
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="payload_json"`)
	header.Set("Content-Type", "application/json")
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if err := json.NewEncoder(part).Encode(payload); err != nil {
		return nil, "", err
	}

	for i, a := range msg.Attachments {
		fw, err := mw.CreateFormFile(fmt.Sprintf("files[%d]", i), a.Filename)
		if err != nil {
			return nil, "", err
		}
		if err := d.download(ctx, a.URL, fw); err != nil {
			return nil, "", fmt.Errorf("failed to download attachment %s: %w", a.URL, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

func (d *Discord) download(ctx context.Context, url string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("server error: %d", resp.StatusCode)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return err
	}
	d.log.Debugf("Downloaded attachment %s (%d bytes)", url, n)
	return nil
}
