package exporttemplate

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"sync"

	"github.com/flosch/pongo2/v6"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

// TemplateExecutor executes a named template with data.
type TemplateExecutor interface {
	ExecuteTemplate(w io.Writer, name string, data any) error
}

// PongoExecutor executes pongo2 templates compiled from source strings.
type PongoExecutor struct {
	mu        sync.RWMutex
	templates map[string]*pongo2.Template
}

var _ TemplateExecutor = (*PongoExecutor)(nil)

// NewPongoExecutor compiles every source keyed by template name.
func NewPongoExecutor(sources map[string]string) (*PongoExecutor, error) {
	exec := &PongoExecutor{templates: make(map[string]*pongo2.Template, len(sources))}
	for name, src := range sources {
		if err := exec.Add(name, src); err != nil {
			return nil, err
		}
	}
	return exec, nil
}

// NewEmbeddedExecutor compiles the templates shipped with this package.
func NewEmbeddedExecutor() (*PongoExecutor, error) {
	sources := map[string]string{}
	entries, err := fs.ReadDir(embeddedTemplates, "templates")
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		data, err := embeddedTemplates.ReadFile("templates/" + entry.Name())
		if err != nil {
			return nil, err
		}
		sources[entry.Name()] = string(data)
	}
	return NewPongoExecutor(sources)
}

// Add compiles src under name, replacing any previous template.
func (e *PongoExecutor) Add(name, src string) error {
	tpl, err := pongo2.FromString(src)
	if err != nil {
		return fmt.Errorf("compile template %s: %w", name, err)
	}
	e.mu.Lock()
	e.templates[name] = tpl
	e.mu.Unlock()
	return nil
}

// ExecuteTemplate renders a named template into w. Struct data is exposed as
// "invoice", "target_id" and "page_width_px" when it is TemplateData.
func (e *PongoExecutor) ExecuteTemplate(w io.Writer, name string, data any) error {
	e.mu.RLock()
	tpl, ok := e.templates[name]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return tpl.ExecuteWriter(contextFor(data), w)
}

func contextFor(data any) pongo2.Context {
	switch v := data.(type) {
	case TemplateData:
		return pongo2.Context{
			"invoice":       v.Invoice,
			"target_id":     v.TargetID,
			"page_width_px": v.PageWidthPx,
		}
	case *TemplateData:
		return contextFor(*v)
	case pongo2.Context:
		return v
	case map[string]any:
		return pongo2.Context(v)
	default:
		return pongo2.Context{"data": data}
	}
}
