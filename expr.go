package gelly

import (
	"context"
	"strings"

	"github.com/PaesslerAG/gval"
	"github.com/pkg/errors"
)

// exprLang is the expression language for ${...} placeholders. Treated as a
// black box: gelly only feeds it the flattened scope and prints the result.
var exprLang = gval.Full()

// segment is one piece of an interpolated string: literal text, or a
// precompiled expression.
type segment struct {
	literal string
	expr    gval.Evaluable
	raw     string
}

// interp is a template string with its ${...} placeholders precompiled.
type interp struct {
	src      string
	segments []segment
}

// compileInterp splits src on ${...} placeholders and precompiles each
// expression. Malformed expressions are compile-time errors; evaluation
// itself never fails the render.
func compileInterp(src string) (*interp, error) {
	p := &interp{src: src}
	rest := src
	for {
		i := strings.Index(rest, "${")
		if i < 0 {
			break
		}
		end := strings.Index(rest[i+2:], "}")
		if end < 0 {
			return nil, errors.Errorf("unterminated expression in %q", src)
		}
		if i > 0 {
			p.segments = append(p.segments, segment{literal: rest[:i]})
		}
		raw := strings.TrimSpace(rest[i+2 : i+2+end])
		ev, err := exprLang.NewEvaluable(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid expression %q", raw)
		}
		p.segments = append(p.segments, segment{expr: ev, raw: raw})
		rest = rest[i+2+end+1:]
	}
	if rest != "" {
		p.segments = append(p.segments, segment{literal: rest})
	}
	return p, nil
}

// hasExpr reports whether any placeholder was found.
func (p *interp) hasExpr() bool {
	for _, s := range p.segments {
		if s.expr != nil {
			return true
		}
	}
	return false
}

// evalValue evaluates against scope. A src that is exactly one placeholder
// keeps the expression's native type; anything else renders to a string.
// Missing variables (and any other evaluation failure) yield Absent rather
// than an error, matching the engine's permissive lookup policy.
func (p *interp) evalValue(ctx context.Context, scope *Scope) Value {
	if len(p.segments) == 1 && p.segments[0].expr != nil {
		res, err := p.segments[0].expr(ctx, scope.snapshot())
		if err != nil {
			return Absent
		}
		return FromNative(res)
	}
	return String(p.evalText(ctx, scope))
}

// evalText renders the interpolated string. Placeholders that fail to
// evaluate contribute nothing.
func (p *interp) evalText(ctx context.Context, scope *Scope) string {
	if len(p.segments) == 1 && p.segments[0].expr == nil {
		return p.segments[0].literal
	}
	var b strings.Builder
	var params map[string]any
	for _, s := range p.segments {
		if s.expr == nil {
			b.WriteString(s.literal)
			continue
		}
		if params == nil {
			params = scope.snapshot()
		}
		res, err := s.expr(ctx, params)
		if err != nil {
			continue
		}
		b.WriteString(FromNative(res).Text())
	}
	return b.String()
}
