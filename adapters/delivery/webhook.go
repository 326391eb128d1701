package exportdelivery

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-invoice-export/export"
)

// WebhookSharer posts share payloads as JSON. 401 and 403 responses to an
// attachment payload are reported as permission denied.
type WebhookSharer struct {
	URL     string
	Method  string
	Headers map[string]string
	Client  *http.Client
	Now     func() time.Time
}

var _ Sharer = (*WebhookSharer)(nil)

// WebhookPayload describes the webhook event body.
type WebhookPayload struct {
	Title      string             `json:"title"`
	Text       string             `json:"text"`
	Attachment *WebhookAttachment `json:"attachment,omitempty"`
	SentAt     time.Time          `json:"sent_at"`
}

// WebhookAttachment describes attachment payloads for webhooks.
type WebhookAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Data        string `json:"data"`
}

// Share posts the payload.
func (s *WebhookSharer) Share(ctx context.Context, payload SharePayload) error {
	if s == nil {
		return export.NewError(export.KindInternal, "webhook sharer is nil", nil)
	}
	if strings.TrimSpace(s.URL) == "" {
		return export.NewError(export.KindValidation, "webhook URL is required", nil)
	}
	method := s.Method
	if method == "" {
		method = http.MethodPost
	}

	body := WebhookPayload{Title: payload.Title, Text: payload.Text, SentAt: nowOr(s.Now)}
	if a := payload.Attachment; a != nil {
		body.Attachment = &WebhookAttachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Size:        int64(len(a.Data)),
			Data:        base64.StdEncoding.EncodeToString(a.Data),
		}
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return export.NewError(export.KindValidation, "webhook payload invalid", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.URL, bytes.NewReader(raw))
	if err != nil {
		return export.NewError(export.KindInternal, "webhook request failed", err)
	}
	for key, value := range s.Headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		req.Header.Set(key, value)
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return export.NewError(export.KindExternal, "webhook request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		return nil
	case payload.Attachment != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden):
		return export.NewError(export.KindSharePermissionDenied, fmt.Sprintf("webhook rejected attachment: %s", resp.Status), nil)
	default:
		return export.NewError(export.KindExternal, fmt.Sprintf("webhook response error: %s", resp.Status), nil)
	}
}
