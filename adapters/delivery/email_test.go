package exportdelivery

import (
	"context"
	"net/smtp"
	"net/textproto"
	"strings"
	"testing"

	"github.com/goliatone/go-invoice-export/export"
)

type captureSMTP struct {
	addr  string
	from  string
	to    []string
	msg   []byte
	calls int
	err   error
}

func (c *captureSMTP) SendMail(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
	c.calls++
	c.addr = addr
	c.from = from
	c.to = append([]string{}, to...)
	c.msg = append([]byte{}, msg...)
	return c.err
}

func newMailer(client SMTPClient) *EmailSharer {
	return &EmailSharer{
		Addr:   "smtp.test:25",
		From:   "billing@example.com",
		To:     []string{"client@example.com"},
		Client: client,
	}
}

func TestEmailSharer_ShareWithAttachment(t *testing.T) {
	client := &captureSMTP{}
	err := newMailer(client).Share(context.Background(), SharePayload{
		Title: "Invoice INV-001",
		Text:  "Invoice from Acme",
		Attachment: &Attachment{
			Filename:    "INV-001.pdf",
			ContentType: "application/pdf",
			Data:        []byte("%PDF"),
		},
	})
	if err != nil {
		t.Fatalf("share: %v", err)
	}

	payload := string(client.msg)
	if !strings.Contains(payload, "multipart/mixed") {
		t.Fatalf("expected multipart email")
	}
	if !strings.Contains(payload, "Subject: Invoice INV-001") {
		t.Fatalf("expected title as subject")
	}
	if !strings.Contains(payload, `Content-Disposition: attachment; filename="INV-001.pdf"`) {
		t.Fatalf("expected attachment header")
	}
	if len(client.to) != 1 || client.from != "billing@example.com" {
		t.Fatalf("unexpected envelope %q %v", client.from, client.to)
	}
}

func TestEmailSharer_TextOnly(t *testing.T) {
	client := &captureSMTP{}
	err := newMailer(client).Share(context.Background(), SharePayload{Title: "Invoice 7", Text: "Invoice from Acme"})
	if err != nil {
		t.Fatalf("share: %v", err)
	}

	payload := string(client.msg)
	if !strings.Contains(payload, "Content-Type: text/plain") {
		t.Fatalf("expected text/plain email")
	}
	if strings.Contains(payload, "multipart/mixed") {
		t.Fatalf("did not expect multipart email")
	}
}

func TestEmailSharer_PolicyRejection(t *testing.T) {
	client := &captureSMTP{err: &textproto.Error{Code: 554, Msg: "attachment type not allowed"}}
	payload := SharePayload{Title: "Invoice 7", Attachment: &Attachment{Filename: "7.pdf", Data: []byte("x")}}

	err := newMailer(client).Share(context.Background(), payload)
	if export.KindFromError(err) != export.KindSharePermissionDenied {
		t.Fatalf("expected permission denied, got %v", err)
	}

	err = newMailer(client).Share(context.Background(), payload.TextOnly())
	if export.KindFromError(err) != export.KindExternal {
		t.Fatalf("expected external error for text-only rejection, got %v", err)
	}

	client.err = &textproto.Error{Code: 451, Msg: "try later"}
	if err := newMailer(client).Share(context.Background(), payload); export.KindFromError(err) != export.KindExternal {
		t.Fatalf("expected external error, got %v", err)
	}
}

func TestEmailSharer_RequiresRecipients(t *testing.T) {
	mailer := newMailer(&captureSMTP{})
	mailer.To = nil
	if err := mailer.Share(context.Background(), SharePayload{}); export.KindFromError(err) != export.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
