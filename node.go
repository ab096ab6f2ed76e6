package gelly

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// rawNode is a node of the parsed markup tree before compilation.
type rawNode interface{}

type rawText struct{ text string }

type rawComment struct{ text string }

type rawDirective struct{ text string }

type rawProcInst struct {
	target string
	inst   string
}

type rawElem struct {
	name     xml.Name
	attrs    []xml.Attr
	children []rawNode
}

// parseNodes tokenizes template markup into a raw tree. Elements keep their
// namespace prefix in Name.Space when the prefix is not bound to a URI, which
// is how tag libraries are addressed (e.g. <app:query>).
func parseNodes(content []byte) ([]rawNode, error) {
	d := xml.NewDecoder(bytes.NewReader(content))
	d.Strict = false
	d.AutoClose = xml.HTMLAutoClose
	d.Entity = xml.HTMLEntity
	var top []rawNode
	var stack []*rawElem

	appendNode := func(n rawNode) {
		if len(stack) == 0 {
			top = append(top, n)
			return
		}
		parent := stack[len(stack)-1]
		parent.children = append(parent.children, n)
	}

	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &rawElem{name: t.Name, attrs: append([]xml.Attr(nil), t.Attr...)}
			appendNode(el)
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, errors.Errorf("unexpected closing tag </%s>", t.Name.Local)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			appendNode(rawText{text: string(t)})
		case xml.Comment:
			appendNode(rawComment{text: string(t)})
		case xml.Directive:
			appendNode(rawDirective{text: string(t)})
		case xml.ProcInst:
			appendNode(rawProcInst{target: t.Target, inst: string(t.Inst)})
		}
	}
	if len(stack) != 0 {
		return nil, errors.Errorf("unclosed tag <%s>", stack[len(stack)-1].name.Local)
	}
	return top, nil
}

// bodyText collects the literal character data under el, for tags whose body
// is data rather than markup.
func bodyText(el *rawElem) string {
	var b strings.Builder
	var walk func(ns []rawNode)
	walk = func(ns []rawNode) {
		for _, n := range ns {
			switch t := n.(type) {
			case rawText:
				b.WriteString(t.text)
			case *rawElem:
				walk(t.children)
			}
		}
	}
	walk(el.children)
	return strings.TrimSpace(b.String())
}

// compiledNode is a node ready to render.
type compiledNode interface {
	render(ctx context.Context, st *renderState) error
}

// renderState is the per-render cursor: output sink, active scope and the
// include nesting depth.
type renderState struct {
	eng   *Engine
	out   io.Writer
	scope *Scope
	depth int
}

// literalNode is static markup emitted verbatim.
type literalNode struct{ text string }

func (n *literalNode) render(_ context.Context, st *renderState) error {
	_, err := io.WriteString(st.out, n.text)
	return err
}

// textOut is character data with ${...} placeholders. Literal portions are
// re-escaped; expression results are written as produced.
type textOut struct{ tpl *interp }

func (n *textOut) render(ctx context.Context, st *renderState) error {
	for _, s := range n.tpl.segments {
		if s.expr == nil {
			if _, err := io.WriteString(st.out, escapeText(s.literal)); err != nil {
				return err
			}
			continue
		}
		res, err := s.expr(ctx, st.scope.snapshot())
		if err != nil {
			continue // missing variable renders as nothing
		}
		if _, err := io.WriteString(st.out, FromNative(res).Text()); err != nil {
			return err
		}
	}
	return nil
}

type compiledAttr struct {
	name string
	tpl  *interp
}

// elemOut is a plain markup element: start tag, children, end tag.
type elemOut struct {
	name     string
	attrs    []compiledAttr
	children []compiledNode
}

func (n *elemOut) render(ctx context.Context, st *renderState) error {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(n.name)
	for _, a := range n.attrs {
		b.WriteString(" ")
		b.WriteString(a.name)
		b.WriteString(`="`)
		b.WriteString(escapeAttr(a.tpl.evalText(ctx, st.scope)))
		b.WriteString(`"`)
	}
	if len(n.children) == 0 {
		b.WriteString("/>")
		_, err := io.WriteString(st.out, b.String())
		return err
	}
	b.WriteString(">")
	if _, err := io.WriteString(st.out, b.String()); err != nil {
		return err
	}
	for _, c := range n.children {
		if err := c.render(ctx, st); err != nil {
			return err
		}
	}
	_, err := io.WriteString(st.out, "</"+n.name+">")
	return err
}

// tagCall dispatches to a registered tag handler.
type tagCall struct {
	prefix   string
	name     string
	factory  Factory
	attrs    []compiledAttr
	body     string
	children []compiledNode
}

func (n *tagCall) render(ctx context.Context, st *renderState) error {
	attrs := make(map[string]Value, len(n.attrs))
	for _, a := range n.attrs {
		attrs[a.name] = a.tpl.evalValue(ctx, st.scope)
	}
	inv := &Invocation{
		name:  n.name,
		attrs: attrs,
		body:  n.body,
		scope: st.scope,
		out:   st.out,
		renderBody: func(ctx context.Context) error {
			for _, c := range n.children {
				if err := c.render(ctx, st); err != nil {
					return err
				}
			}
			return nil
		},
	}
	return n.factory().Run(ctx, inv)
}

// setCall is the core g:set tag: bind an evaluated value into the scope.
type setCall struct {
	varTpl   *interp
	valueTpl *interp
}

func (n *setCall) render(ctx context.Context, st *renderState) error {
	name := strings.TrimSpace(n.varTpl.evalText(ctx, st.scope))
	if name == "" {
		return &TagError{Kind: TagMissingAttribute, Tag: "set", Cause: errors.New(`"var" attribute is required`)}
	}
	st.scope.Set(name, n.valueTpl.evalValue(ctx, st.scope))
	return nil
}

// includeCall is the core g:include tag: render another template in place,
// sharing the caller's scope, with a bounded nesting depth.
type includeCall struct {
	pageTpl *interp
}

func (n *includeCall) render(ctx context.Context, st *renderState) error {
	page := strings.TrimSpace(n.pageTpl.evalText(ctx, st.scope))
	if page == "" {
		return &TagError{Kind: TagMissingAttribute, Tag: "include", Cause: errors.New(`"page" attribute is required`)}
	}
	return st.eng.renderInto(ctx, st.out, page, st.scope, st.depth+1)
}

// corePrefix is the namespace of the engine's built-in tags.
const corePrefix = "g"

// compileNodes lowers the raw tree into renderable nodes, precompiling every
// expression and resolving every custom tag. Resolution failures are
// compile-time errors.
func compileNodes(e *Engine, tplName string, raw []rawNode) ([]compiledNode, error) {
	var out []compiledNode
	for _, n := range raw {
		switch t := n.(type) {
		case rawText:
			tpl, err := compileInterp(t.text)
			if err != nil {
				return nil, err
			}
			if !tpl.hasExpr() {
				out = append(out, &literalNode{text: escapeText(t.text)})
				continue
			}
			out = append(out, &textOut{tpl: tpl})
		case rawComment:
			out = append(out, &literalNode{text: "<!--" + t.text + "-->"})
		case rawDirective:
			out = append(out, &literalNode{text: "<!" + t.text + ">"})
		case rawProcInst:
			out = append(out, &literalNode{text: "<?" + t.target + " " + t.inst + "?>"})
		case *rawElem:
			cn, err := compileElem(e, tplName, t)
			if err != nil {
				return nil, err
			}
			out = append(out, cn)
		}
	}
	return out, nil
}

func compileElem(e *Engine, tplName string, el *rawElem) (compiledNode, error) {
	prefix := el.name.Space

	if prefix == corePrefix {
		return compileCoreTag(e, tplName, el)
	}

	if lib, ok := e.libs[prefix]; ok {
		factory, ok := lib.Resolve(el.name.Local)
		if !ok {
			return nil, &TemplateError{
				Kind:  UnknownTag,
				Name:  tplName,
				Cause: errors.Errorf("no tag %q in library %q (have %v)", el.name.Local, prefix, lib.Names()),
			}
		}
		attrs, err := compileAttrs(el)
		if err != nil {
			return nil, err
		}
		children, err := compileNodes(e, tplName, el.children)
		if err != nil {
			return nil, err
		}
		return &tagCall{
			prefix:   prefix,
			name:     el.name.Local,
			factory:  factory,
			attrs:    attrs,
			body:     bodyText(el),
			children: children,
		}, nil
	}

	// plain markup element
	attrs, err := compileAttrs(el)
	if err != nil {
		return nil, err
	}
	children, err := compileNodes(e, tplName, el.children)
	if err != nil {
		return nil, err
	}
	name := el.name.Local
	if prefix != "" {
		name = prefix + ":" + name
	}
	return &elemOut{name: name, attrs: attrs, children: children}, nil
}

func compileCoreTag(e *Engine, tplName string, el *rawElem) (compiledNode, error) {
	attrs, err := compileAttrs(el)
	if err != nil {
		return nil, err
	}
	attr := func(name string) *interp {
		for _, a := range attrs {
			if a.name == name {
				return a.tpl
			}
		}
		return &interp{}
	}
	switch el.name.Local {
	case "include":
		return &includeCall{pageTpl: attr("page")}, nil
	case "set":
		return &setCall{varTpl: attr("var"), valueTpl: attr("value")}, nil
	default:
		return nil, &TemplateError{
			Kind:  UnknownTag,
			Name:  tplName,
			Cause: errors.Errorf("no core tag %q", el.name.Local),
		}
	}
}

func compileAttrs(el *rawElem) ([]compiledAttr, error) {
	out := make([]compiledAttr, 0, len(el.attrs))
	for _, a := range el.attrs {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		tpl, err := compileInterp(a.Value)
		if err != nil {
			return nil, err
		}
		name := a.Name.Local
		if a.Name.Space != "" {
			name = a.Name.Space + ":" + name
		}
		out = append(out, compiledAttr{name: name, tpl: tpl})
	}
	return out, nil
}

func escapeText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	return strings.ReplaceAll(s, "<", "&lt;")
}

func escapeAttr(s string) string {
	return strings.ReplaceAll(escapeText(s), `"`, "&quot;")
}
