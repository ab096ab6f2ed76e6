// Package web is the request adapter: it maps inbound paths to templates,
// seeds the per-request variable scope, renders through the engine into a
// buffer, and commits either the full output or an error page.
package web

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dangdungcntt/gelly"
)

const contentType = "text/html; charset=utf-8"

// Router drives the per-request pipeline. All paths route through Handle,
// GET and POST alike.
type Router struct {
	engine   *gelly.Engine
	sessions *SessionStore
	log      *slog.Logger
}

// NewRouter wires the router. logger may be nil.
func NewRouter(engine *gelly.Engine, sessions *SessionStore, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{engine: engine, sessions: sessions, log: log.With("component", "web")}
}

// Mount attaches the router to a gin engine, catching every path.
func (r *Router) Mount(g *gin.Engine) {
	g.Any("/*path", r.Handle)
}

// ResolveTemplate maps a request path to a template file name. A pure string
// transform: "/" becomes the index page, the leading separator is stripped,
// and the template extension is appended unless already present.
func ResolveTemplate(p string) string {
	if p == "" || p == "/" {
		return "index" + gelly.Ext
	}
	p = strings.TrimPrefix(p, "/")
	if !strings.HasSuffix(p, gelly.Ext) {
		p += gelly.Ext
	}
	return p
}

// Handle renders the template resolved from the request path. Output is
// buffered in full before anything is committed, so a failing render is
// replaced wholesale by an error page.
func (r *Router) Handle(c *gin.Context) {
	name := ResolveTemplate(c.Request.URL.Path)

	sess := r.sessions.Load(c)
	scope := r.buildScope(c, sess)

	var buf bytes.Buffer
	err := r.engine.Render(c.Request.Context(), &buf, name, scope)
	if err == nil {
		if err := r.sessions.Save(c, sess); err != nil {
			r.log.Warn("session cookie not saved", "error", err)
		}
		c.Data(http.StatusOK, contentType, buf.Bytes())
		return
	}

	var te *gelly.TemplateError
	if errors.As(err, &te) && te.Kind == gelly.TemplateNotFound {
		r.log.Info("template not found", "path", c.Request.URL.Path, "template", name)
		c.Data(http.StatusNotFound, contentType, notFoundPage(name))
		return
	}

	// Full detail goes to the log; the client sees only the error kind and
	// a correlation id.
	cid := uuid.NewString()
	kind := "render failed"
	if errors.As(err, &te) {
		kind = te.Kind.String()
	}
	r.log.Error("template render failed", "template", name, "correlation_id", cid, "error", err)
	c.Data(http.StatusInternalServerError, contentType, errorPage(kind, cid))
}

// buildScope seeds a fresh scope with the request, the session, and every
// request parameter: single-valued as scalars, multi-valued as lists.
func (r *Router) buildScope(c *gin.Context, sess *Session) *gelly.Scope {
	scope := gelly.NewScope(nil)

	req := gelly.NewScope(nil)
	req.Set("method", gelly.String(c.Request.Method))
	req.Set("path", gelly.String(c.Request.URL.Path))
	req.Set("host", gelly.String(c.Request.Host))
	req.Set("remoteAddr", gelly.String(c.Request.RemoteAddr))
	scope.Set("request", gelly.ScopeOf(req))

	resp := gelly.NewScope(nil)
	resp.Set("contentType", gelly.String(contentType))
	scope.Set("response", gelly.ScopeOf(resp))

	scope.Set("session", gelly.ScopeOf(sess.Vars))

	if err := c.Request.ParseForm(); err == nil {
		for key, vals := range c.Request.Form {
			if len(vals) == 1 {
				scope.Set(key, gelly.String(vals[0]))
			} else {
				scope.Set(key, gelly.StringList(vals))
			}
		}
	}
	return scope
}

func notFoundPage(name string) []byte {
	return fmt.Appendf(nil, `<html><body>
<h1>Not Found</h1>
<p>No such page: %s</p>
</body></html>
`, strings.TrimSuffix(name, gelly.Ext))
}

func errorPage(kind, correlationID string) []byte {
	return fmt.Appendf(nil, `<html><body>
<h1>Something went wrong</h1>
<p>%s</p>
<p>Reference: %s</p>
</body></html>
`, kind, correlationID)
}
