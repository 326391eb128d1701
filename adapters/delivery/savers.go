package exportdelivery

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-invoice-export/export"
)

// WriterSaver writes the file straight to an io.Writer.
type WriterSaver struct {
	W io.Writer
	// Prepare runs before the first byte is written, e.g. to set response headers.
	Prepare func(file Attachment)
}

func (s WriterSaver) Save(ctx context.Context, file Attachment) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	if s.W == nil {
		return Receipt{}, export.NewError(export.KindInternal, "writer is nil", nil)
	}
	if s.Prepare != nil {
		s.Prepare(file)
	}
	n, err := io.Copy(s.W, bytes.NewReader(file.Data))
	if err != nil {
		return Receipt{}, export.NewError(export.KindExternal, "write download", err)
	}
	return Receipt{Filename: file.Filename, ContentType: file.ContentType, Size: n}, nil
}

// StoreSaver wraps the raw bytes into a downloadable reference in an artifact store.
type StoreSaver struct {
	Store export.ArtifactStore
	TTL   time.Duration
	// KeyFunc derives the storage key; defaults to "<uuid>/<filename>".
	KeyFunc func(file Attachment) string
	Now     func() time.Time
}

func (s StoreSaver) Save(ctx context.Context, file Attachment) (Receipt, error) {
	if s.Store == nil {
		return Receipt{}, export.NewError(export.KindNotImpl, "artifact store not configured", nil)
	}
	key := s.key(file)
	now := nowOr(s.Now)
	meta := export.ArtifactMeta{
		ContentType: file.ContentType,
		Filename:    file.Filename,
		CreatedAt:   now,
	}
	if s.TTL > 0 {
		meta.ExpiresAt = now.Add(s.TTL)
	}

	ref, err := s.Store.Put(ctx, key, bytes.NewReader(file.Data), meta)
	if err != nil {
		return Receipt{}, err
	}
	receipt := Receipt{
		Filename:    file.Filename,
		ContentType: file.ContentType,
		Size:        ref.Meta.Size,
		Ref:         &ref,
	}
	url, err := s.Store.SignedURL(ctx, ref.Key, s.TTL)
	switch {
	case err == nil:
		receipt.URL = url
	case export.IsKind(err, export.KindNotImpl):
	default:
		return Receipt{}, err
	}
	return receipt, nil
}

func (s StoreSaver) key(file Attachment) string {
	if s.KeyFunc != nil {
		if key := strings.TrimSpace(s.KeyFunc(file)); key != "" {
			return key
		}
	}
	return uuid.NewString() + "/" + file.Filename
}

func nowOr(nowFn func() time.Time) time.Time {
	if nowFn != nil {
		return nowFn()
	}
	return time.Now()
}
