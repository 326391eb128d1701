package exportdelivery

import (
	"context"

	"github.com/goliatone/go-invoice-export/export"
)

// Attachment captures file data for delivery.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// SharePayload is what a share target receives. Attachment is nil for the
// text-only fallback.
type SharePayload struct {
	Title      string
	Text       string
	Attachment *Attachment
}

// ShareOutcome reports how a share request ended.
type ShareOutcome string

const (
	// ShareCompleted means the attachment was shared.
	ShareCompleted ShareOutcome = "shared"
	// ShareTextOnly means the attachment was rejected and the text fallback was shared.
	ShareTextOnly ShareOutcome = "shared_text_only"
	// ShareUnsupported means no share target is configured. It is not an error.
	ShareUnsupported ShareOutcome = "unsupported"
)

// Sharer hands a payload to a share capability. Implementations report a
// rejected attachment with an export.KindSharePermissionDenied error.
type Sharer interface {
	Share(ctx context.Context, payload SharePayload) error
}

// SharerFunc adapts a function to a Sharer.
type SharerFunc func(ctx context.Context, payload SharePayload) error

func (f SharerFunc) Share(ctx context.Context, payload SharePayload) error {
	if f == nil {
		return export.NewError(export.KindNotImpl, "sharer not configured", nil)
	}
	return f(ctx, payload)
}

// Saver completes a download.
type Saver interface {
	Save(ctx context.Context, file Attachment) (Receipt, error)
}

// SaverFunc adapts a function to a Saver.
type SaverFunc func(ctx context.Context, file Attachment) (Receipt, error)

func (f SaverFunc) Save(ctx context.Context, file Attachment) (Receipt, error) {
	if f == nil {
		return Receipt{}, export.NewError(export.KindNotImpl, "saver not configured", nil)
	}
	return f(ctx, file)
}

// Receipt describes a completed download.
type Receipt struct {
	Filename    string
	ContentType string
	Size        int64
	// Ref is set when the artifact was wrapped into a stored reference.
	Ref *export.ArtifactRef
	// URL is a download link for stored references, when the store can sign one.
	URL string
}
