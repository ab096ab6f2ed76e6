package web

import (
	"bytes"
	"context"
	"net/http"

	"github.com/gin-gonic/gin/render"

	"github.com/dangdungcntt/gelly"
)

// View names a template together with the scope to render it with.
type View interface {
	Name() string
	Scope() *gelly.Scope
	Status() int
}

type view struct {
	name   string
	scope  *gelly.Scope
	status int
}

// NewView creates a View for handlers that want to return templates through
// gin's render path instead of the Router.
func NewView(name string, scope *gelly.Scope, status ...int) View {
	statusCode := http.StatusOK
	if len(status) > 0 {
		statusCode = status[0]
	}
	return view{name: name, scope: scope, status: statusCode}
}

func (v view) Name() string        { return v.name }
func (v view) Scope() *gelly.Scope { return v.scope }
func (v view) Status() int         { return v.status }

var _ render.HTMLRender = (*HTMLRender)(nil)

// HTMLRender makes a gelly engine usable as gin's HTMLRender, for embedding
// gelly pages in an existing gin application.
type HTMLRender struct {
	e *gelly.Engine
}

// NewHTMLRender creates a new HTMLRender.
func NewHTMLRender(e *gelly.Engine) *HTMLRender {
	return &HTMLRender{e: e}
}

// Instance returns a new render.Render. data must be a *gelly.Scope or nil.
func (h *HTMLRender) Instance(name string, data any) render.Render {
	scope, _ := data.(*gelly.Scope)
	if scope == nil {
		scope = gelly.NewScope(nil)
	}
	return &Render{e: h.e, name: name, scope: scope}
}

// Render renders a template with a scope and writes to w.
type Render struct {
	e     *gelly.Engine
	name  string
	scope *gelly.Scope
}

// Render buffers the full template output before committing it, so a failed
// render never leaves partial bytes on the wire.
func (r *Render) Render(w http.ResponseWriter) error {
	var buf bytes.Buffer
	if err := r.e.Render(context.Background(), &buf, r.name, r.scope); err != nil {
		return err
	}
	r.WriteContentType(w)
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteContentType writes an HTML content type to the response header if not set
func (r *Render) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	if val := header["Content-Type"]; len(val) == 0 {
		header["Content-Type"] = []string{contentType}
	}
}
