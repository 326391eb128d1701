package export

import (
	"context"
	"errors"
	"fmt"
	"testing"

	errorslib "github.com/goliatone/go-errors"
)

func TestAsGoErrorMapping(t *testing.T) {
	cases := []struct {
		err      error
		category errorslib.Category
		code     string
	}{
		{NewError(KindValidation, "bad input", nil), errorslib.CategoryValidation, "validation"},
		{NewError(KindNotFound, "missing", nil), errorslib.CategoryNotFound, "not_found"},
		{context.DeadlineExceeded, errorslib.CategoryOperation, "timeout"},
		{context.Canceled, errorslib.CategoryOperation, "canceled"},
		{NewError(KindBusy, "in flight", nil), errorslib.CategoryOperation, "busy"},
		{NewError(KindMissingRenderTarget, "no view", nil), errorslib.CategoryOperation, "missing_render_target"},
		{NewError(KindRenderFailed, "empty", nil), errorslib.CategoryOperation, "render_failed"},
		{NewError(KindLayoutInvariant, "bad rect", nil), errorslib.CategoryOperation, "layout_invariant"},
		{NewError(KindShareFailed, "share", nil), errorslib.CategoryExternal, "share_failed"},
		{NewError(KindSharePermissionDenied, "denied", nil), errorslib.CategoryExternal, "share_permission_denied"},
		{NewError(KindInternal, "boom", nil), errorslib.CategoryInternal, "internal"},
		{errors.New("plain"), errorslib.CategoryInternal, "internal"},
	}

	for _, tc := range cases {
		mapped := AsGoError(tc.err)
		if mapped == nil {
			t.Fatalf("expected mapping for %v", tc.err)
		}
		if mapped.Category != tc.category {
			t.Fatalf("expected category %s, got %s", tc.category, mapped.Category)
		}
		if mapped.TextCode != tc.code {
			t.Fatalf("expected text code %s, got %s", tc.code, mapped.TextCode)
		}
	}
}

func TestKindFromErrorUnwraps(t *testing.T) {
	err := fmt.Errorf("deliver: %w", NewError(KindShareFailed, "share failed", nil))
	if got := KindFromError(err); got != KindShareFailed {
		t.Fatalf("expected share_failed, got %s", got)
	}
	if !IsKind(err, KindShareFailed) {
		t.Fatalf("expected IsKind to match")
	}
	if IsKind(nil, KindShareFailed) {
		t.Fatalf("nil error must not match a kind")
	}
}

func TestKindFromGoError(t *testing.T) {
	err := errorslib.New("quantity must be no less than 0", errorslib.CategoryValidation).WithTextCode("INVALID_DOCUMENT")
	if got := KindFromError(err); got != KindValidation {
		t.Fatalf("expected validation, got %s", got)
	}
	coded := errorslib.New("busy", errorslib.CategoryOperation).WithTextCode("busy")
	if got := KindFromError(coded); got != KindBusy {
		t.Fatalf("expected busy, got %s", got)
	}
}

func TestAsGoErrorNil(t *testing.T) {
	if AsGoError(nil) != nil {
		t.Fatalf("expected nil")
	}
}
