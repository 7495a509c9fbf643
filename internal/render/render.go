package render

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/gofiber/template/html/v2"
	"github.com/valyala/bytebufferpool"
)

//go:embed templates/mail/*.html
var embedFS embed.FS

// Renderer renders HTML templates by name, e.g. "mail/otp-code". Templates
// found in the configured directory take precedence over the embedded ones.
type Renderer struct {
	dirEngine   *html.Engine
	embedEngine *html.Engine
	globals     map[string]interface{}
}

func (r *Renderer) merge(vars map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(r.globals)+len(vars))
	for k, v := range r.globals {
		merged[k] = v
	}
	for k, v := range vars {
		merged[k] = v
	}
	return merged
}

func (r *Renderer) RenderHTML(name string, vars map[string]interface{}) (string, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	binding := r.merge(vars)
	if r.dirEngine != nil {
		err := r.dirEngine.Render(buf, name, binding)
		if err == nil {
			return buf.String(), nil
		}
		slog.Warn("Render template failed, falling back to embedded", "template", name, "error", err)
		buf.Reset()
	}
	if err := r.embedEngine.Render(buf, name, binding); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func NewRenderer(templateDir string, globals map[string]interface{}) (*Renderer, error) {
	sub, err := fs.Sub(embedFS, "templates")
	if err != nil {
		return nil, err
	}
	r := &Renderer{
		embedEngine: html.NewFileSystem(http.FS(sub), ".html"),
		globals:     globals,
	}
	if err := r.embedEngine.Load(); err != nil {
		return nil, fmt.Errorf("failed to parse embedded templates: %w", err)
	}
	if templateDir != "" {
		info, err := os.Stat(templateDir)
		if err != nil {
			return nil, fmt.Errorf("template directory does not exist: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("template path is not a directory: %s", templateDir)
		}
		r.dirEngine = html.NewFileSystem(http.Dir(templateDir), ".html")
	}
	return r, nil
}
