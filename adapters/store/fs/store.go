package storefs

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-invoice-export/export"
)

const metaSuffix = ".meta.json"

// SignedURLInput describes a signed URL request.
type SignedURLInput struct {
	BaseURL   string
	Key       string
	ExpiresAt time.Time
}

// SignedURLSigner signs artifact URLs.
type SignedURLSigner interface {
	SignURL(input SignedURLInput) (string, error)
}

// Store keeps assembled PDFs on disk next to a JSON metadata sidecar.
// Writes go through a temp file and a rename so readers never see partial files.
type Store struct {
	Root    string
	BaseURL string
	Signer  SignedURLSigner
	Now     func() time.Time
}

var _ export.ArtifactStore = (*Store)(nil)

// NewStore creates a filesystem-backed artifact store.
func NewStore(root string) *Store {
	return &Store{Root: root, Now: time.Now}
}

// Put stores an artifact on disk.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, meta export.ArtifactMeta) (export.ArtifactRef, error) {
	_ = ctx
	pathOnDisk, err := s.pathFor(key)
	if err != nil {
		return export.ArtifactRef{}, err
	}

	dir := filepath.Dir(pathOnDisk)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return export.ArtifactRef{}, export.NewError(export.KindInternal, "create artifact directory", err)
	}

	size, err := writeAtomic(dir, ".invoice-*", pathOnDisk, func(w io.Writer) (int64, error) {
		return io.Copy(w, r)
	})
	if err != nil {
		return export.ArtifactRef{}, export.NewError(export.KindInternal, fmt.Sprintf("write artifact %q", key), err)
	}

	meta.Size = size
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = s.now()
	}
	if meta.ContentType == "" {
		meta.ContentType = mime.TypeByExtension(filepath.Ext(pathOnDisk))
	}
	if meta.Filename == "" {
		meta.Filename = filepath.Base(pathOnDisk)
	}

	payload, err := json.Marshal(meta)
	if err != nil {
		return export.ArtifactRef{}, export.NewError(export.KindInternal, "encode artifact metadata", err)
	}
	if _, err := writeAtomic(dir, ".meta-*", pathOnDisk+metaSuffix, func(w io.Writer) (int64, error) {
		n, err := w.Write(payload)
		return int64(n), err
	}); err != nil {
		return export.ArtifactRef{}, export.NewError(export.KindInternal, "write artifact metadata", err)
	}

	return export.ArtifactRef{Key: key, Meta: meta}, nil
}

// Open reads an artifact from disk. Expired artifacts are reported as not found.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, export.ArtifactMeta, error) {
	_ = ctx
	pathOnDisk, err := s.pathFor(key)
	if err != nil {
		return nil, export.ArtifactMeta{}, err
	}

	meta := readMeta(pathOnDisk)
	if expired(meta, s.now()) {
		return nil, export.ArtifactMeta{}, export.NewError(export.KindNotFound, fmt.Sprintf("artifact %q expired", key), nil)
	}

	file, err := os.Open(pathOnDisk)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, export.ArtifactMeta{}, export.NewError(export.KindNotFound, fmt.Sprintf("artifact %q not found", key), err)
		}
		return nil, export.ArtifactMeta{}, export.NewError(export.KindInternal, fmt.Sprintf("open artifact %q", key), err)
	}

	if meta.ContentType == "" {
		meta.ContentType = mime.TypeByExtension(filepath.Ext(pathOnDisk))
	}
	if meta.Size == 0 {
		if info, err := file.Stat(); err == nil {
			meta.Size = info.Size()
			if meta.CreatedAt.IsZero() {
				meta.CreatedAt = info.ModTime()
			}
		}
	}
	return file, meta, nil
}

// Delete removes an artifact and its metadata.
func (s *Store) Delete(ctx context.Context, key string) error {
	_ = ctx
	pathOnDisk, err := s.pathFor(key)
	if err != nil {
		return err
	}
	_ = os.Remove(pathOnDisk)
	_ = os.Remove(pathOnDisk + metaSuffix)
	return nil
}

// Sweep deletes every expired artifact under Root and returns how many were removed.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	if s == nil || s.Root == "" {
		return 0, export.NewError(export.KindValidation, "store root is required", nil)
	}
	now := s.now()
	removed := 0
	err := filepath.WalkDir(s.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, metaSuffix) {
			return nil
		}
		artifact := strings.TrimSuffix(p, metaSuffix)
		if !expired(readMeta(artifact), now) {
			return nil
		}
		_ = os.Remove(artifact)
		_ = os.Remove(p)
		removed++
		return nil
	})
	if err != nil {
		return removed, export.NewError(export.KindInternal, "sweep artifacts", err)
	}
	return removed, nil
}

// SignedURL generates a signed URL when configured.
func (s *Store) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	_ = ctx
	if s == nil {
		return "", export.NewError(export.KindInternal, "store is nil", nil)
	}
	if s.Signer == nil || s.BaseURL == "" {
		return "", export.NewError(export.KindNotImpl, "signed URLs not configured", nil)
	}
	if ttl <= 0 {
		return "", export.NewError(export.KindValidation, "signed URL TTL is required", nil)
	}
	if key == "" {
		return "", export.NewError(export.KindValidation, "artifact key is required", nil)
	}
	return s.Signer.SignURL(SignedURLInput{
		BaseURL:   strings.TrimRight(s.BaseURL, "/"),
		Key:       key,
		ExpiresAt: s.now().Add(ttl),
	})
}

func (s *Store) pathFor(key string) (string, error) {
	if s == nil {
		return "", export.NewError(export.KindInternal, "store is nil", nil)
	}
	if s.Root == "" {
		return "", export.NewError(export.KindValidation, "store root is required", nil)
	}
	if key == "" {
		return "", export.NewError(export.KindValidation, "artifact key is required", nil)
	}

	clean := path.Clean("/" + key)
	rel := strings.TrimPrefix(clean, "/")
	if rel == "" || rel == "." || strings.HasSuffix(rel, metaSuffix) {
		return "", export.NewError(export.KindValidation, "invalid artifact key", nil)
	}

	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", export.NewError(export.KindInternal, "resolve store root", err)
	}
	target := filepath.Join(root, filepath.FromSlash(rel))
	if !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", export.NewError(export.KindValidation, "artifact key escapes root", nil)
	}
	return target, nil
}

func (s *Store) now() time.Time {
	if s == nil || s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func writeAtomic(dir, pattern, dest string, write func(io.Writer) (int64, error)) (int64, error) {
	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	n, err := write(tmp)
	if err != nil {
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	return n, os.Rename(tmp.Name(), dest)
}

func readMeta(pathOnDisk string) export.ArtifactMeta {
	data, err := os.ReadFile(pathOnDisk + metaSuffix)
	if err != nil {
		return export.ArtifactMeta{}
	}
	var meta export.ArtifactMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return export.ArtifactMeta{}
	}
	return meta
}

func expired(meta export.ArtifactMeta, now time.Time) bool {
	return !meta.ExpiresAt.IsZero() && now.After(meta.ExpiresAt)
}

// HMACSigner signs "<base>/<key>?expires=<unix>&sig=<hex>" links with a shared secret.
type HMACSigner struct {
	Secret []byte
	Now    func() time.Time
}

func (h HMACSigner) SignURL(input SignedURLInput) (string, error) {
	if len(h.Secret) == 0 {
		return "", export.NewError(export.KindValidation, "signing secret is required", nil)
	}
	expires := strconv.FormatInt(input.ExpiresAt.Unix(), 10)
	q := url.Values{}
	q.Set("expires", expires)
	q.Set("sig", h.sign(input.Key, expires))
	return input.BaseURL + "/" + escapeKey(input.Key) + "?" + q.Encode(), nil
}

// escapeKey path-escapes every segment of key so filenames survive in links.
func escapeKey(key string) string {
	segments := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

// Verify checks a signature produced by SignURL.
func (h HMACSigner) Verify(key, expires, sig string) error {
	if len(h.Secret) == 0 {
		return export.NewError(export.KindValidation, "signing secret is required", nil)
	}
	unix, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return export.NewError(export.KindValidation, "invalid expiry", err)
	}
	if !hmac.Equal([]byte(h.sign(key, expires)), []byte(sig)) {
		return export.NewError(export.KindNotFound, "invalid signature", nil)
	}
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	if now.After(time.Unix(unix, 0)) {
		return export.NewError(export.KindNotFound, "link expired", nil)
	}
	return nil
}

func (h HMACSigner) sign(key, expires string) string {
	mac := hmac.New(sha256.New, h.Secret)
	mac.Write([]byte(strings.TrimLeft(key, "/")))
	mac.Write([]byte{0})
	mac.Write([]byte(expires))
	return hex.EncodeToString(mac.Sum(nil))
}
