package export

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-invoice-export/document"
)

// ViewRegistry stores views by lookup key.
type ViewRegistry struct {
	mu    sync.RWMutex
	views map[string]View
}

// NewViewRegistry creates an empty registry.
func NewViewRegistry() *ViewRegistry {
	return &ViewRegistry{views: make(map[string]View)}
}

// Register adds a view under key.
func (r *ViewRegistry) Register(key string, view View) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return NewError(KindValidation, "view key is required", nil)
	}
	if view == nil {
		return NewError(KindValidation, "view is required", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.views == nil {
		r.views = make(map[string]View)
	}
	if _, exists := r.views[key]; exists {
		return NewError(KindValidation, fmt.Sprintf("view %q already registered", key), nil)
	}
	r.views[key] = view
	return nil
}

// Resolve returns the view for key.
func (r *ViewRegistry) Resolve(key string) (View, error) {
	if r == nil {
		return nil, NewError(KindMissingRenderTarget, "view registry not configured", nil)
	}
	r.mu.RLock()
	view, ok := r.views[key]
	r.mu.RUnlock()
	if !ok {
		return nil, NewError(KindMissingRenderTarget, fmt.Sprintf("render target %q not found", key), nil)
	}
	return view, nil
}

// Keys lists registered view keys.
func (r *ViewRegistry) Keys() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.views))
	for key := range r.views {
		keys = append(keys, key)
	}
	return keys
}

// Detach resolves key and detaches a target for doc.
func (r *ViewRegistry) Detach(ctx context.Context, key string, doc document.Document) (Target, error) {
	view, err := r.Resolve(key)
	if err != nil {
		return nil, err
	}
	return view.Detach(ctx, key, doc)
}
