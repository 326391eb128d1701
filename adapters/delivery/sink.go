package exportdelivery

import (
	"context"

	"github.com/goliatone/go-invoice-export/document"
	"github.com/goliatone/go-invoice-export/export"
)

// Sink delivers assembled artifacts.
type Sink struct {
	Saver  Saver
	Sharer Sharer
	Logger export.Logger
}

// Download hands the artifact to the configured saver.
func (s *Sink) Download(ctx context.Context, doc document.Document, artifact *export.Artifact) (Receipt, error) {
	if s == nil || s.Saver == nil {
		return Receipt{}, export.NewError(export.KindNotImpl, "download saver not configured", nil)
	}
	if artifact == nil || len(artifact.Data) == 0 {
		return Receipt{}, export.NewError(export.KindValidation, "artifact is empty", nil)
	}
	file := FileFor(doc, artifact)
	receipt, err := s.Saver.Save(ctx, file)
	if err != nil {
		s.logger().Errorf("download %s failed: %v", file.Filename, err)
		return Receipt{}, err
	}
	s.logger().Infof("download %s saved (%d bytes)", receipt.Filename, receipt.Size)
	return receipt, nil
}

// Share hands the artifact to the share target. A permission-denied rejection
// of the attachment is retried exactly once with the text-only payload.
func (s *Sink) Share(ctx context.Context, doc document.Document, artifact *export.Artifact) (ShareOutcome, error) {
	if s == nil || s.Sharer == nil {
		return ShareUnsupported, nil
	}
	if artifact == nil || len(artifact.Data) == 0 {
		return "", export.NewError(export.KindValidation, "artifact is empty", nil)
	}

	payload := BuildSharePayload(doc, artifact)
	err := s.Sharer.Share(ctx, payload)
	if err == nil {
		s.logger().Infof("shared %s", payload.Attachment.Filename)
		return ShareCompleted, nil
	}
	if !export.IsKind(err, export.KindSharePermissionDenied) {
		s.logger().Errorf("share failed: %v", err)
		return "", shareFailed(err)
	}

	s.logger().Infof("attachment rejected, sharing text only: %v", err)
	if err := s.Sharer.Share(ctx, payload.TextOnly()); err != nil {
		s.logger().Errorf("text-only share failed: %v", err)
		return "", shareFailed(err)
	}
	return ShareTextOnly, nil
}

func (s *Sink) logger() export.Logger {
	if s == nil || s.Logger == nil {
		return export.NopLogger{}
	}
	return s.Logger
}

func shareFailed(err error) error {
	if export.IsKind(err, export.KindShareFailed) {
		return err
	}
	return export.NewError(export.KindShareFailed, "share failed", err)
}
