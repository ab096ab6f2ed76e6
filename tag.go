package gelly

import (
	"context"
	"io"
)

// Tag is implemented by custom tag handlers. A handler runs once per tag
// occurrence during rendering; the invocation carries everything it may
// touch: attributes, literal body text, the active scope and the output sink.
type Tag interface {
	Run(ctx context.Context, inv *Invocation) error
}

// TagFunc adapts a function to the Tag interface.
type TagFunc func(ctx context.Context, inv *Invocation) error

func (f TagFunc) Run(ctx context.Context, inv *Invocation) error { return f(ctx, inv) }

// Invocation is an in-flight execution of a single custom tag. It lives only
// for the duration of the handler call.
type Invocation struct {
	name       string
	attrs      map[string]Value
	body       string
	scope      *Scope
	out        io.Writer
	renderBody func(ctx context.Context) error
}

// Name returns the tag name as written in the template, without namespace.
func (inv *Invocation) Name() string { return inv.name }

// Attr returns the evaluated attribute value, Absent when not present.
func (inv *Invocation) Attr(name string) Value {
	if v, ok := inv.attrs[name]; ok {
		return v
	}
	return Absent
}

// AttrText returns the attribute rendered as text, "" when absent.
func (inv *Invocation) AttrText(name string) string {
	return inv.Attr(name).Text()
}

// Body returns the tag's literal body text, whitespace-trimmed. Expressions
// and nested markup inside the body are NOT evaluated; handlers that treat
// the body as data (SQL text) read it through here.
func (inv *Invocation) Body() string { return inv.body }

// Scope returns the active variable scope.
func (inv *Invocation) Scope() *Scope { return inv.scope }

// Out returns the output sink the tag may write to.
func (inv *Invocation) Out() io.Writer { return inv.out }

// Write writes s to the output sink.
func (inv *Invocation) Write(s string) error {
	_, err := io.WriteString(inv.out, s)
	return err
}

// RenderBody executes the tag's body as template content, including nested
// tags. Handlers that never call it leave nested content unexecuted.
func (inv *Invocation) RenderBody(ctx context.Context) error {
	if inv.renderBody == nil {
		return nil
	}
	return inv.renderBody(ctx)
}
