package exportfiber

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	errorslib "github.com/goliatone/go-errors"

	exportdelivery "github.com/goliatone/go-invoice-export/adapters/delivery"
	exporttemplate "github.com/goliatone/go-invoice-export/adapters/template"
	"github.com/goliatone/go-invoice-export/document"
	"github.com/goliatone/go-invoice-export/export"
	"github.com/goliatone/go-invoice-export/session"
)

// SessionHeader selects the editing session; requests without it share the default one.
const SessionHeader = "X-Session-ID"

// DefaultBasePath is used when Config.BasePath is empty.
const DefaultBasePath = "/invoice"

// LinkVerifier checks signed download links.
type LinkVerifier interface {
	Verify(key, expires, sig string) error
}

// Config configures the fiber handler.
type Config struct {
	BasePath string
	Sessions *session.Registry
	Preview  *exporttemplate.Renderer
	// Store enables "?mode=link" downloads and the signed file route.
	Store    export.ArtifactStore
	Verifier LinkVerifier
	LinkTTL  time.Duration
}

// Handler exposes invoice export routes on a fiber router.
type Handler struct {
	cfg Config
}

// NewHandler creates a fiber handler.
func NewHandler(cfg Config) *Handler {
	if cfg.BasePath == "" {
		cfg.BasePath = DefaultBasePath
	}
	cfg.BasePath = "/" + strings.Trim(cfg.BasePath, "/")
	return &Handler{cfg: cfg}
}

// RegisterRoutes registers the export routes.
func (h *Handler) RegisterRoutes(r fiber.Router) {
	base := h.cfg.BasePath
	r.Get(base+"/document", h.GetDocument)
	r.Put(base+"/document", h.PutDocument)
	r.Post(base+"/download", h.Download)
	r.Post(base+"/share", h.Share)
	r.Post(base+"/preview", h.Preview)
	if h.cfg.Store != nil && h.cfg.Verifier != nil {
		r.Get(base+"/files/*", h.File)
	}
}

// DocumentResponse is the document plus its derived totals.
type DocumentResponse struct {
	Document document.Document `json:"document"`
	Totals   document.Totals   `json:"totals"`
	Busy     bool              `json:"busy"`
}

// DownloadLinkResponse is returned for stored downloads.
type DownloadLinkResponse struct {
	Filename string `json:"filename"`
	Key      string `json:"key"`
	URL      string `json:"url,omitempty"`
	Size     int64  `json:"size"`
}

// ShareResponse reports the share outcome.
type ShareResponse struct {
	Outcome exportdelivery.ShareOutcome `json:"outcome"`
}

func (h *Handler) GetDocument(c *fiber.Ctx) error {
	s := h.session(c)
	doc := s.Document()
	return c.JSON(DocumentResponse{Document: doc, Totals: doc.Totals(), Busy: s.Busy()})
}

func (h *Handler) PutDocument(c *fiber.Ctx) error {
	doc, err := decodeDocument(c)
	if err != nil {
		return writeError(c, err)
	}
	if doc == nil {
		return writeError(c, export.NewError(export.KindValidation, "document body is required", nil))
	}
	if err := doc.Validate(); err != nil {
		return writeError(c, err)
	}
	s := h.session(c)
	s.Replace(*doc)
	return c.JSON(DocumentResponse{Document: *doc, Totals: doc.Totals(), Busy: s.Busy()})
}

// Download builds the PDF. A JSON body replaces the session document first.
func (h *Handler) Download(c *fiber.Ctx) error {
	s, opts, err := h.prepare(c)
	if err != nil {
		return writeError(c, err)
	}

	if strings.EqualFold(c.Query("mode"), "link") {
		if h.cfg.Store == nil {
			return writeError(c, export.NewError(export.KindNotImpl, "stored downloads are not configured", nil))
		}
		receipt, err := s.Download(c.UserContext(), exportdelivery.StoreSaver{Store: h.cfg.Store, TTL: h.cfg.LinkTTL}, opts...)
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(http.StatusCreated).JSON(DownloadLinkResponse{
			Filename: receipt.Filename,
			Key:      receipt.Ref.Key,
			URL:      receipt.URL,
			Size:     receipt.Size,
		})
	}

	var buf bytes.Buffer
	saver := exportdelivery.WriterSaver{W: &buf, Prepare: func(file exportdelivery.Attachment) {
		c.Set(fiber.HeaderContentType, file.ContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", file.Filename))
	}}
	if _, err := s.Download(c.UserContext(), saver, opts...); err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).Send(buf.Bytes())
}

func (h *Handler) Share(c *fiber.Ctx) error {
	s, opts, err := h.prepare(c)
	if err != nil {
		return writeError(c, err)
	}
	outcome, err := s.Share(c.UserContext(), opts...)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(ShareResponse{Outcome: outcome})
}

// Preview renders the HTML view of the posted or current document.
func (h *Handler) Preview(c *fiber.Ctx) error {
	if h.cfg.Preview == nil {
		return writeError(c, export.NewError(export.KindNotImpl, "preview renderer not configured", nil))
	}
	doc, err := decodeDocument(c)
	if err != nil {
		return writeError(c, err)
	}
	if doc == nil {
		current := h.session(c).Document()
		doc = &current
	}
	html, err := h.cfg.Preview.RenderHTML(c.UserContext(), *doc)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(html)
}

// File streams a stored artifact behind a signed link.
func (h *Handler) File(c *fiber.Ctx) error {
	key, err := url.PathUnescape(strings.TrimLeft(c.Params("*"), "/"))
	if err != nil {
		return writeError(c, export.NewError(export.KindNotFound, "invalid artifact key", err))
	}
	if err := h.cfg.Verifier.Verify(key, c.Query("expires"), c.Query("sig")); err != nil {
		return writeError(c, err)
	}
	rc, meta, err := h.cfg.Store.Open(c.UserContext(), key)
	if err != nil {
		return writeError(c, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return writeError(c, export.NewError(export.KindInternal, "read artifact", err))
	}
	c.Set(fiber.HeaderContentType, meta.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", meta.Filename))
	return c.Send(data)
}

// prepare resolves the session. A posted document only replaces the session
// document once the export has claimed the session.
func (h *Handler) prepare(c *fiber.Ctx) (*session.Session, []session.Option, error) {
	if h.cfg.Sessions == nil {
		return nil, nil, export.NewError(export.KindNotImpl, "sessions not configured", nil)
	}
	doc, err := decodeDocument(c)
	if err != nil {
		return nil, nil, err
	}
	var opts []session.Option
	if doc != nil {
		opts = append(opts, session.WithDocument(*doc))
	}
	return h.session(c), opts, nil
}

func (h *Handler) session(c *fiber.Ctx) *session.Session {
	// header values point into the reused request buffer
	return h.cfg.Sessions.Get(utils.CopyString(c.Get(SessionHeader)))
}

// decodeDocument returns nil when the request has no body.
func decodeDocument(c *fiber.Ctx) (*document.Document, error) {
	if len(bytes.TrimSpace(c.Body())) == 0 {
		return nil, nil
	}
	var doc document.Document
	if err := c.BodyParser(&doc); err != nil {
		return nil, export.NewError(export.KindValidation, "invalid document payload", err)
	}
	return &doc, nil
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func writeError(c *fiber.Ctx, err error) error {
	ge := export.AsGoError(err)
	return c.Status(StatusForError(err)).JSON(ErrorResponse{
		Error: ErrorBody{Message: ge.Message, Code: ge.TextCode},
	})
}

// StatusForError maps an export error onto an HTTP status.
func StatusForError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch export.KindFromError(err) {
	case export.KindBusy:
		return http.StatusConflict
	case export.KindNotImpl:
		return http.StatusNotImplemented
	case export.KindMissingRenderTarget, export.KindLayoutInvariant, export.KindRenderFailed:
		return http.StatusUnprocessableEntity
	case export.KindSharePermissionDenied:
		return http.StatusForbidden
	case export.KindShareFailed, export.KindExternal:
		return http.StatusBadGateway
	case export.KindTimeout:
		return http.StatusGatewayTimeout
	case export.KindCanceled:
		return http.StatusConflict
	}
	switch export.AsGoError(err).Category {
	case errorslib.CategoryValidation:
		return http.StatusBadRequest
	case errorslib.CategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// BasePath returns the normalized route prefix.
func (h *Handler) BasePath() string {
	return h.cfg.BasePath
}
