// Package gelly is an XML-flavoured templating host: templates mix literal
// markup, ${...} expressions and namespaced custom tags. The engine compiles
// a template once, caches the compilation, and walks it per request against a
// hierarchical variable scope; custom tags dispatch through per-namespace
// registries populated at wiring time.
package gelly

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Ext is the template file extension.
const Ext = ".gelly"

// DefaultMaxIncludeDepth bounds g:include nesting, guarding against
// accidental self-inclusion cycles.
const DefaultMaxIncludeDepth = 16

// Engine holds compiled templates and the registered tag libraries.
type Engine struct {
	fs       fs.FS
	libs     map[string]*Registry
	maxDepth int

	mu        sync.RWMutex
	templates map[string]*Template
}

// Template is one compiled template, safe for concurrent renders.
type Template struct {
	name  string
	nodes []compiledNode
}

// New creates an engine pointing to a directory with template files.
func New(dir string) *Engine {
	return NewFS(os.DirFS(dir))
}

// NewFS creates an engine pointing to a filesystem.
func NewFS(fsys fs.FS) *Engine {
	return &Engine{
		fs:        fsys,
		libs:      map[string]*Registry{},
		maxDepth:  DefaultMaxIncludeDepth,
		templates: map[string]*Template{},
	}
}

// RegisterLibrary binds a tag registry to a namespace prefix
// (e.g. <app:query> for prefix "app"). Call before serving; registration is
// not synchronized against in-flight renders.
func (e *Engine) RegisterLibrary(prefix string, lib *Registry) {
	e.libs[prefix] = lib
}

// SetMaxIncludeDepth overrides the include nesting bound.
func (e *Engine) SetMaxIncludeDepth(n int) {
	if n > 0 {
		e.maxDepth = n
	}
}

// Template resolves and compiles the named template, reusing a cached
// compilation when one exists. Templates are treated as immutable for the
// process lifetime; restart to pick up edits.
func (e *Engine) Template(name string) (*Template, error) {
	name = normalizeName(name)

	e.mu.RLock()
	t, ok := e.templates[name]
	e.mu.RUnlock()
	if ok {
		return t, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.templates[name]; ok {
		return t, nil
	}

	f, err := e.fs.Open(name + Ext)
	if err != nil {
		return nil, &TemplateError{Kind: TemplateNotFound, Name: name, Cause: err}
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, &TemplateError{Kind: TemplateNotFound, Name: name, Cause: err}
	}

	parsed, err := parseNodes(raw)
	if err != nil {
		return nil, &TemplateError{Kind: TagExecutionFailed, Name: name, Cause: err}
	}
	nodes, err := compileNodes(e, name, parsed)
	if err != nil {
		if te, ok := err.(*TemplateError); ok {
			return nil, te
		}
		return nil, &TemplateError{Kind: TagExecutionFailed, Name: name, Cause: err}
	}

	t = &Template{name: name, nodes: nodes}
	e.templates[name] = t
	return t, nil
}

// Render executes the template identified by name (e.g. "pages/home") into w
// with the given scope. Any tag handler error aborts the render and is
// returned as a TemplateError; callers that need all-or-nothing output must
// buffer.
func (e *Engine) Render(ctx context.Context, w io.Writer, name string, scope *Scope) error {
	return e.renderInto(ctx, w, name, scope, 0)
}

func (e *Engine) renderInto(ctx context.Context, w io.Writer, name string, scope *Scope, depth int) error {
	if depth > e.maxDepth {
		return &TemplateError{Kind: NestingTooDeep, Name: normalizeName(name)}
	}
	t, err := e.Template(name)
	if err != nil {
		return err
	}
	st := &renderState{eng: e, out: w, scope: scope, depth: depth}
	for _, n := range t.nodes {
		if err := n.render(ctx, st); err != nil {
			if te, ok := err.(*TemplateError); ok {
				return te
			}
			return &TemplateError{Kind: TagExecutionFailed, Name: t.name, Cause: err}
		}
	}
	return nil
}

// normalizeName: remove quotes/spaces and extensions, normalize slashes
func normalizeName(n string) string {
	n = strings.TrimSpace(n)
	n = strings.Trim(n, `"' `)
	n = strings.TrimSuffix(n, filepath.Ext(n))
	n = filepath.ToSlash(n)
	return n
}
