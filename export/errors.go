package export

import (
	"context"
	"errors"

	errorslib "github.com/goliatone/go-errors"
)

// ErrorKind defines export error kinds.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindTimeout    ErrorKind = "timeout"
	KindCanceled   ErrorKind = "canceled"
	KindInternal   ErrorKind = "internal"
	KindNotImpl    ErrorKind = "not_implemented"
	KindExternal   ErrorKind = "external"
	KindBusy       ErrorKind = "busy"

	KindMissingRenderTarget ErrorKind = "missing_render_target"
	KindRenderFailed        ErrorKind = "render_failed"
	KindLayoutInvariant     ErrorKind = "layout_invariant"

	KindSharePermissionDenied ErrorKind = "share_permission_denied"
	KindShareFailed           ErrorKind = "share_failed"
)

// ExportError wraps errors with a kind.
type ExportError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *ExportError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// NewError creates a new export error.
func NewError(kind ErrorKind, msg string, err error) *ExportError {
	return &ExportError{Kind: kind, Msg: msg, Err: err}
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindFromError(err) == kind
}

// AsGoError maps an error into a go-errors error.
func AsGoError(err error) *errorslib.Error {
	if err == nil {
		return nil
	}

	var ge *errorslib.Error
	if errors.As(err, &ge) {
		return ge
	}

	msg := err.Error()
	var exportErr *ExportError
	if errors.As(err, &exportErr) && exportErr.Msg != "" {
		msg = exportErr.Msg
	}

	kind := KindFromError(err)
	code := string(kind)

	switch kind {
	case KindValidation:
		return errorslib.New(msg, errorslib.CategoryValidation).WithTextCode(code)
	case KindNotFound:
		return errorslib.New(msg, errorslib.CategoryNotFound).WithTextCode(code)
	case KindTimeout, KindCanceled, KindNotImpl, KindBusy,
		KindMissingRenderTarget, KindRenderFailed, KindLayoutInvariant:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode(code)
	case KindExternal, KindSharePermissionDenied, KindShareFailed:
		return errorslib.New(msg, errorslib.CategoryExternal).WithTextCode(code)
	default:
		return errorslib.New(msg, errorslib.CategoryInternal).WithTextCode(string(KindInternal))
	}
}

// KindFromError maps an error to its export error kind.
func KindFromError(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var exportErr *ExportError
	if errors.As(err, &exportErr) {
		return exportErr.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}

	var ge *errorslib.Error
	if errors.As(err, &ge) {
		return kindFromGoError(ge)
	}

	return KindInternal
}

var knownKinds = map[ErrorKind]struct{}{
	KindValidation: {}, KindNotFound: {}, KindTimeout: {}, KindCanceled: {},
	KindInternal: {}, KindNotImpl: {}, KindExternal: {}, KindBusy: {},
	KindMissingRenderTarget: {}, KindRenderFailed: {}, KindLayoutInvariant: {},
	KindSharePermissionDenied: {}, KindShareFailed: {},
}

func kindFromGoError(ge *errorslib.Error) ErrorKind {
	if _, ok := knownKinds[ErrorKind(ge.TextCode)]; ok {
		return ErrorKind(ge.TextCode)
	}
	switch ge.Category {
	case errorslib.CategoryValidation:
		return KindValidation
	case errorslib.CategoryNotFound:
		return KindNotFound
	case errorslib.CategoryExternal:
		return KindExternal
	default:
		return KindInternal
	}
}
