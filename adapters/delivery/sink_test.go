package exportdelivery

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/goliatone/go-invoice-export/document"
	"github.com/goliatone/go-invoice-export/export"
)

func sampleDoc() document.Document {
	doc := document.New(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	doc.Number = "INV-042"
	doc.Issuer.Name = "Acme Ltd"
	return doc
}

func sampleArtifact() *export.Artifact {
	return &export.Artifact{Filename: "INV-042.pdf", Data: []byte("%PDF-1.4")}
}

type recordingSharer struct {
	calls []SharePayload
	errs  []error
}

func (r *recordingSharer) Share(ctx context.Context, payload SharePayload) error {
	_ = ctx
	r.calls = append(r.calls, payload)
	if i := len(r.calls) - 1; i < len(r.errs) {
		return r.errs[i]
	}
	return nil
}

func TestShareSuccessAttachesArtifact(t *testing.T) {
	sharer := &recordingSharer{}
	sink := &Sink{Sharer: sharer}

	outcome, err := sink.Share(context.Background(), sampleDoc(), sampleArtifact())
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if outcome != ShareCompleted || len(sharer.calls) != 1 {
		t.Fatalf("unexpected outcome %q after %d calls", outcome, len(sharer.calls))
	}
	got := sharer.calls[0]
	if got.Title != "Invoice INV-042" || got.Text != "Invoice from Acme Ltd" {
		t.Fatalf("unexpected payload texts %q / %q", got.Title, got.Text)
	}
	if got.Attachment == nil || got.Attachment.Filename != "INV-042.pdf" || got.Attachment.ContentType != "application/pdf" {
		t.Fatalf("unexpected attachment %+v", got.Attachment)
	}
}

func TestSharePermissionDeniedRetriesTextOnlyOnce(t *testing.T) {
	denied := export.NewError(export.KindSharePermissionDenied, "files not allowed", nil)
	sharer := &recordingSharer{errs: []error{denied}}
	sink := &Sink{Sharer: sharer}

	outcome, err := sink.Share(context.Background(), sampleDoc(), sampleArtifact())
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if outcome != ShareTextOnly {
		t.Fatalf("expected text-only outcome, got %q", outcome)
	}
	if len(sharer.calls) != 2 {
		t.Fatalf("expected exactly one retry, got %d calls", len(sharer.calls))
	}
	if sharer.calls[1].Attachment != nil || sharer.calls[1].Title != "Invoice INV-042" {
		t.Fatalf("retry must be text-only, got %+v", sharer.calls[1])
	}
}

func TestShareSecondFailureIsNotRetried(t *testing.T) {
	denied := export.NewError(export.KindSharePermissionDenied, "files not allowed", nil)
	sharer := &recordingSharer{errs: []error{denied, denied}}
	sink := &Sink{Sharer: sharer}

	_, err := sink.Share(context.Background(), sampleDoc(), sampleArtifact())
	if export.KindFromError(err) != export.KindShareFailed {
		t.Fatalf("expected share_failed, got %v", err)
	}
	if len(sharer.calls) != 2 {
		t.Fatalf("expected two calls, got %d", len(sharer.calls))
	}
}

func TestShareOtherErrorsSurfaceWithoutRetry(t *testing.T) {
	sharer := &recordingSharer{errs: []error{errors.New("network down")}}
	sink := &Sink{Sharer: sharer}

	_, err := sink.Share(context.Background(), sampleDoc(), sampleArtifact())
	if export.KindFromError(err) != export.KindShareFailed {
		t.Fatalf("expected share_failed, got %v", err)
	}
	if len(sharer.calls) != 1 {
		t.Fatalf("expected no retry, got %d calls", len(sharer.calls))
	}
}

func TestShareUnsupportedIsNoop(t *testing.T) {
	outcome, err := (&Sink{}).Share(context.Background(), sampleDoc(), sampleArtifact())
	if err != nil || outcome != ShareUnsupported {
		t.Fatalf("expected unsupported outcome, got %q %v", outcome, err)
	}
}

func TestDownloadToWriter(t *testing.T) {
	var buf bytes.Buffer
	var prepared Attachment
	sink := &Sink{Saver: WriterSaver{W: &buf, Prepare: func(file Attachment) { prepared = file }}}

	doc := sampleDoc()
	doc.Number = "  "
	artifact := sampleArtifact()
	artifact.Filename = ""

	receipt, err := sink.Download(context.Background(), doc, artifact)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if receipt.Filename != "invoice.pdf" || prepared.Filename != "invoice.pdf" {
		t.Fatalf("expected fallback filename, got %q", receipt.Filename)
	}
	if buf.String() != "%PDF-1.4" || receipt.Size != 8 {
		t.Fatalf("unexpected body %q (%d)", buf.String(), receipt.Size)
	}
}

func TestDownloadToStore(t *testing.T) {
	store := export.NewMemoryStore()
	now := time.Now().Truncate(time.Second)
	sink := &Sink{Saver: StoreSaver{Store: store, TTL: time.Hour, Now: func() time.Time { return now }}}

	receipt, err := sink.Download(context.Background(), sampleDoc(), sampleArtifact())
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if receipt.Ref == nil || receipt.URL != "" {
		t.Fatalf("expected stored reference without url, got %+v", receipt)
	}
	rc, meta, err := store.Open(context.Background(), receipt.Ref.Key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "%PDF-1.4" || meta.Filename != "INV-042.pdf" || !meta.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected stored artifact %q %+v", data, meta)
	}
}

func TestDownloadRejectsEmptyArtifact(t *testing.T) {
	sink := &Sink{Saver: WriterSaver{W: io.Discard}}
	if _, err := sink.Download(context.Background(), sampleDoc(), &export.Artifact{}); export.KindFromError(err) != export.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
