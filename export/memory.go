package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// DefaultMemoryLimit bounds the payload bytes a MemoryStore keeps.
const DefaultMemoryLimit = 64 << 20

// LinkFunc returns a download URL for key that stays valid until expiresAt.
type LinkFunc func(key string, expiresAt time.Time) (string, error)

// MemoryStore keeps assembled PDFs in process memory for link downloads
// when no storage directory is configured. Expired artifacts are dropped on
// access and by Sweep. Once MaxBytes is exceeded the oldest artifacts go first.
type MemoryStore struct {
	Link     LinkFunc
	MaxBytes int64
	Now      func() time.Time

	mu      sync.Mutex
	entries map[string]storedPDF
	used    int64
}

type storedPDF struct {
	data []byte
	meta ArtifactMeta
}

var _ ArtifactStore = (*MemoryStore)(nil)

// NewMemoryStore creates a store holding up to DefaultMemoryLimit bytes.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{MaxBytes: DefaultMemoryLimit, entries: make(map[string]storedPDF)}
}

func (s *MemoryStore) Put(ctx context.Context, key string, r io.Reader, meta ArtifactMeta) (ArtifactRef, error) {
	if err := ctx.Err(); err != nil {
		return ArtifactRef{}, err
	}
	if key == "" {
		return ArtifactRef{}, NewError(KindValidation, "artifact key is required", nil)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return ArtifactRef{}, NewError(KindInternal, "read artifact", err)
	}
	size := int64(len(data))
	if s.MaxBytes > 0 && size > s.MaxBytes {
		return ArtifactRef{}, NewError(KindValidation, fmt.Sprintf("artifact of %d bytes exceeds the %d byte memory limit", size, s.MaxBytes), nil)
	}

	now := s.now()
	meta.Size = size
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		s.entries = make(map[string]storedPDF)
	}
	s.removeLocked(key)
	s.sweepLocked(now)
	for s.MaxBytes > 0 && s.used+size > s.MaxBytes && len(s.entries) > 0 {
		s.removeLocked(s.oldestLocked())
	}
	s.entries[key] = storedPDF{data: data, meta: meta}
	s.used += size
	return ArtifactRef{Key: key, Meta: meta}, nil
}

// Open returns the artifact under key. Expired artifacts are not_found.
func (s *MemoryStore) Open(ctx context.Context, key string) (io.ReadCloser, ArtifactMeta, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if ok && expiredAt(entry.meta, s.now()) {
		s.removeLocked(key)
		ok = false
	}
	if !ok {
		return nil, ArtifactMeta{}, NewError(KindNotFound, fmt.Sprintf("artifact %q not found", key), nil)
	}
	return io.NopCloser(bytes.NewReader(entry.data)), entry.meta, nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	s.mu.Lock()
	s.removeLocked(key)
	s.mu.Unlock()
	return nil
}

// Sweep drops expired artifacts and reports how many were removed.
func (s *MemoryStore) Sweep(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now()), nil
}

// SignedURL delegates to Link; without one the store cannot hand out links.
func (s *MemoryStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	_ = ctx
	if s.Link == nil {
		return "", NewError(KindNotImpl, "memory store has no link builder", nil)
	}
	if ttl <= 0 {
		return "", NewError(KindValidation, "link ttl must be positive", nil)
	}
	return s.Link(key, s.now().Add(ttl))
}

// Len returns the number of stored artifacts.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Used returns the payload bytes currently held.
func (s *MemoryStore) Used() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used
}

func (s *MemoryStore) removeLocked(key string) {
	if entry, ok := s.entries[key]; ok {
		s.used -= entry.meta.Size
		delete(s.entries, key)
	}
}

func (s *MemoryStore) sweepLocked(now time.Time) int {
	removed := 0
	for key, entry := range s.entries {
		if expiredAt(entry.meta, now) {
			s.removeLocked(key)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) oldestLocked() string {
	var key string
	var oldest time.Time
	for k, entry := range s.entries {
		if key == "" || entry.meta.CreatedAt.Before(oldest) {
			key, oldest = k, entry.meta.CreatedAt
		}
	}
	return key
}

func (s *MemoryStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func expiredAt(meta ArtifactMeta, now time.Time) bool {
	return !meta.ExpiresAt.IsZero() && now.After(meta.ExpiresAt)
}
