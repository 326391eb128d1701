package storefs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-invoice-export/export"
)

type captureSigner struct {
	input SignedURLInput
}

func (s *captureSigner) SignURL(input SignedURLInput) (string, error) {
	s.input = input
	return fmt.Sprintf("%s/%s?expires=%d", input.BaseURL, input.Key, input.ExpiresAt.Unix()), nil
}

func TestStore_PutOpenDelete(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	ref, err := store.Put(context.Background(), "exports/INV-001.pdf", bytes.NewBufferString("%PDF-1.4"), export.ArtifactMeta{
		ContentType: export.ContentType,
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if ref.Meta.Size != 8 {
		t.Fatalf("expected size 8, got %d", ref.Meta.Size)
	}
	if ref.Meta.CreatedAt.IsZero() || ref.Meta.Filename != "INV-001.pdf" {
		t.Fatalf("expected defaults filled, got %+v", ref.Meta)
	}

	reader, meta, err := store.Open(context.Background(), "exports/INV-001.pdf")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, err := io.ReadAll(reader)
	_ = reader.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "%PDF-1.4" {
		t.Fatalf("expected payload, got %q", string(data))
	}
	if meta.ContentType != "application/pdf" {
		t.Fatalf("expected content type, got %q", meta.ContentType)
	}

	if err := store.Delete(context.Background(), "exports/INV-001.pdf"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := store.Open(context.Background(), "exports/INV-001.pdf"); export.KindFromError(err) != export.KindNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestStore_RejectsEscapingKeys(t *testing.T) {
	store := NewStore(t.TempDir())
	for _, key := range []string{"", "/", "a.pdf.meta.json"} {
		if _, err := store.Put(context.Background(), key, strings.NewReader("x"), export.ArtifactMeta{}); export.KindFromError(err) != export.KindValidation {
			t.Fatalf("expected validation error for %q, got %v", key, err)
		}
	}
	// traversal is cleaned into the root
	ref, err := store.Put(context.Background(), "../../etc/INV.pdf", strings.NewReader("x"), export.ArtifactMeta{})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, _, err := store.Open(context.Background(), "etc/INV.pdf"); err != nil {
		t.Fatalf("expected cleaned key to resolve inside root: %v (%s)", err, ref.Key)
	}
}

func TestStore_ExpiryAndSweep(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(t.TempDir())
	store.Now = func() time.Time { return now }

	if _, err := store.Put(context.Background(), "a/old.pdf", strings.NewReader("x"), export.ArtifactMeta{ExpiresAt: now.Add(time.Minute)}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(context.Background(), "b/keep.pdf", strings.NewReader("y"), export.ArtifactMeta{}); err != nil {
		t.Fatalf("put: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, _, err := store.Open(context.Background(), "a/old.pdf"); export.KindFromError(err) != export.KindNotFound {
		t.Fatalf("expected expired artifact to be hidden, got %v", err)
	}

	removed, err := store.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one removal, got %d", removed)
	}
	if _, _, err := store.Open(context.Background(), "b/keep.pdf"); err != nil {
		t.Fatalf("expected unexpiring artifact to survive: %v", err)
	}
}

func TestStore_SignedURL_NotConfigured(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.SignedURL(context.Background(), "exports/INV-001.pdf", time.Minute)
	if export.KindFromError(err) != export.KindNotImpl {
		t.Fatalf("expected not implemented error, got %v", err)
	}
}

func TestStore_SignedURL(t *testing.T) {
	store := NewStore(t.TempDir())
	store.BaseURL = "https://example.test/files/"
	signer := &captureSigner{}
	store.Signer = signer
	store.Now = func() time.Time {
		return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	}

	link, err := store.SignedURL(context.Background(), "exports/INV-001.pdf", 5*time.Minute)
	if err != nil {
		t.Fatalf("signed url: %v", err)
	}
	expected := "https://example.test/files/exports/INV-001.pdf?expires=1704110700"
	if link != expected {
		t.Fatalf("unexpected url: %q", link)
	}
	if signer.input.Key != "exports/INV-001.pdf" {
		t.Fatalf("unexpected signer key: %q", signer.input.Key)
	}
}

func TestHMACSigner(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	signer := HMACSigner{Secret: []byte("s3cret"), Now: func() time.Time { return now }}

	link, err := signer.SignURL(SignedURLInput{BaseURL: "http://localhost/files", Key: "x/INV-1.pdf", ExpiresAt: now.Add(time.Minute)})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	parsed, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Path != "/files/x/INV-1.pdf" {
		t.Fatalf("unexpected path %q", parsed.Path)
	}
	q := parsed.Query()
	if err := signer.Verify("x/INV-1.pdf", q.Get("expires"), q.Get("sig")); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := signer.Verify("x/other.pdf", q.Get("expires"), q.Get("sig")); err == nil {
		t.Fatalf("expected signature mismatch for another key")
	}

	now = now.Add(2 * time.Minute)
	if err := signer.Verify("x/INV-1.pdf", q.Get("expires"), q.Get("sig")); export.KindFromError(err) != export.KindNotFound {
		t.Fatalf("expected expired link, got %v", err)
	}

	odd := "x/INV #7?100%.pdf"
	link, err = signer.SignURL(SignedURLInput{BaseURL: "http://localhost/files", Key: odd, ExpiresAt: now.Add(time.Hour)})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	parsed, err = url.Parse(link)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Path != "/files/"+odd || parsed.Fragment != "" {
		t.Fatalf("key not escaped in link %q", link)
	}
	oq := parsed.Query()
	if err := signer.Verify(odd, oq.Get("expires"), oq.Get("sig")); err != nil {
		t.Fatalf("verify escaped key: %v", err)
	}
}
