// Package session owns an editable document and gates its exports so only one
// runs at a time.
package session

import (
	"context"
	"sync"
	"sync/atomic"

	exportdelivery "github.com/goliatone/go-invoice-export/adapters/delivery"
	"github.com/goliatone/go-invoice-export/document"
	"github.com/goliatone/go-invoice-export/export"
)

// Builder produces a fresh artifact for a document snapshot.
type Builder interface {
	Build(ctx context.Context, key string, doc document.Document) (*export.Artifact, error)
}

// Session holds one document and the export-in-flight flag.
type Session struct {
	ID      string
	Builder Builder
	Sink    *exportdelivery.Sink
	ViewKey string
	Logger  export.Logger

	mu       sync.Mutex
	doc      document.Document
	inFlight atomic.Bool
}

// New creates a session editing doc.
func New(doc document.Document, builder Builder, sink *exportdelivery.Sink) *Session {
	return &Session{
		Builder: builder,
		Sink:    sink,
		ViewKey: export.DefaultViewKey,
		Logger:  export.NopLogger{},
		doc:     doc.Clone(),
	}
}

// Document returns a copy of the current document.
func (s *Session) Document() document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Update applies fn to the document under the session lock.
func (s *Session) Update(fn func(doc *document.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.doc.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

// Replace swaps the whole document.
func (s *Session) Replace(doc document.Document) {
	s.mu.Lock()
	s.doc = doc.Clone()
	s.mu.Unlock()
}

// Busy reports whether an export is in flight.
func (s *Session) Busy() bool {
	return s.inFlight.Load()
}

// Option adjusts a single Download or Share call.
type Option func(*runOptions)

type runOptions struct {
	doc *document.Document
}

// WithDocument replaces the session document once the call has claimed the
// session. A call rejected as busy leaves the current document untouched.
func WithDocument(doc document.Document) Option {
	doc = doc.Clone()
	return func(o *runOptions) {
		o.doc = &doc
	}
}

// Download builds a new artifact and hands it to saver, or to the sink's
// saver when saver is nil.
func (s *Session) Download(ctx context.Context, saver exportdelivery.Saver, opts ...Option) (exportdelivery.Receipt, error) {
	var receipt exportdelivery.Receipt
	err := s.run(ctx, "download", opts, func(ctx context.Context, doc document.Document, artifact *export.Artifact) error {
		sink := s.sink()
		if saver != nil {
			sink.Saver = saver
		}
		var err error
		receipt, err = sink.Download(ctx, doc, artifact)
		return err
	})
	return receipt, err
}

// Share builds a new artifact and hands it to the share target.
func (s *Session) Share(ctx context.Context, opts ...Option) (exportdelivery.ShareOutcome, error) {
	var outcome exportdelivery.ShareOutcome
	err := s.run(ctx, "share", opts, func(ctx context.Context, doc document.Document, artifact *export.Artifact) error {
		sink := s.sink()
		var err error
		outcome, err = sink.Share(ctx, doc, artifact)
		return err
	})
	return outcome, err
}

// run holds the in-flight flag for the whole pipeline. Once started the export
// ignores caller cancellation and runs to completion or failure.
func (s *Session) run(ctx context.Context, op string, opts []Option, deliver func(context.Context, document.Document, *export.Artifact) error) error {
	if s.Builder == nil {
		return export.NewError(export.KindNotImpl, "exporter not configured", nil)
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return export.NewError(export.KindBusy, "an export is already in progress", nil)
	}
	defer s.inFlight.Store(false)

	var o runOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.doc != nil {
		s.Replace(*o.doc)
	}

	ctx = context.WithoutCancel(ctx)
	doc := s.Document()
	log := s.logger()
	log.Debugf("session %s: %s %s started", s.ID, op, doc.Number)

	artifact, err := s.Builder.Build(ctx, s.ViewKey, doc)
	if err != nil {
		log.Errorf("session %s: %s failed: %v", s.ID, op, err)
		return err
	}
	if err := deliver(ctx, doc, artifact); err != nil {
		return err
	}
	log.Infof("session %s: %s %s finished (%d pages)", s.ID, op, artifact.Filename, len(artifact.Pages))
	return nil
}

// sink returns a copy so per-call savers never leak into the shared sink.
func (s *Session) sink() exportdelivery.Sink {
	var sink exportdelivery.Sink
	if s.Sink != nil {
		sink = *s.Sink
	}
	if sink.Logger == nil {
		sink.Logger = s.logger()
	}
	return sink
}

func (s *Session) logger() export.Logger {
	if s.Logger == nil {
		return export.NopLogger{}
	}
	return s.Logger
}
