package gelly

import (
	"fmt"
	"time"
)

// Kind discriminates the variants a scope Value can hold.
type Kind int

const (
	KindAbsent Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindTime
	KindList
	KindRows
	KindScope
)

// String returns the variant name, used in error messages.
func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindList:
		return "list"
	case KindRows:
		return "rows"
	case KindScope:
		return "scope"
	default:
		return "unknown"
	}
}

// Row is a single query result row: column name (lower-cased) to value.
type Row map[string]Value

// Rows is the materialized result of a query, in result-set order.
// Not mutated after creation.
type Rows []Row

// Value is a tagged union over the types a template variable can hold.
// A missing variable is represented by the Absent value, never by an error.
type Value struct {
	kind  Kind
	str   string
	num   int64
	flt   float64
	b     bool
	t     time.Time
	list  []Value
	rows  Rows
	scope *Scope
}

// Absent is the zero Value: a lookup miss.
var Absent = Value{}

func String(s string) Value     { return Value{kind: KindString, str: s} }
func Int(i int64) Value         { return Value{kind: KindInt, num: i} }
func Float(f float64) Value     { return Value{kind: KindFloat, flt: f} }
func Bool(b bool) Value         { return Value{kind: KindBool, b: b} }
func Time(t time.Time) Value    { return Value{kind: KindTime, t: t} }
func List(vs []Value) Value     { return Value{kind: KindList, list: vs} }
func RowsOf(rs Rows) Value      { return Value{kind: KindRows, rows: rs} }
func ScopeOf(s *Scope) Value    { return Value{kind: KindScope, scope: s} }
func StringList(ss []string) Value {
	vs := make([]Value, len(ss))
	for i, s := range ss {
		vs[i] = String(s)
	}
	return List(vs)
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// Str returns the string variant, or "" for any other kind.
func (v Value) Str() string {
	if v.kind == KindString {
		return v.str
	}
	return ""
}

// Rows returns the rows variant, or nil for any other kind.
func (v Value) Rows() Rows {
	if v.kind == KindRows {
		return v.rows
	}
	return nil
}

// Scope returns the nested-scope variant, or nil for any other kind.
func (v Value) Scope() *Scope {
	if v.kind == KindScope {
		return v.scope
	}
	return nil
}

// Native unwraps the value to plain Go types for expression evaluation:
// rows become []map[string]any, nested scopes become maps, absent becomes nil.
func (v Value) Native() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return v.num
	case KindFloat:
		return v.flt
	case KindBool:
		return v.b
	case KindTime:
		return v.t
	case KindList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = e.Native()
		}
		return out
	case KindRows:
		out := make([]any, len(v.rows))
		for i, r := range v.rows {
			m := make(map[string]any, len(r))
			for k, c := range r {
				m[k] = c.Native()
			}
			out[i] = m
		}
		return out
	case KindScope:
		return v.scope.snapshot()
	default:
		return nil
	}
}

// Text renders the value the way an expression placeholder prints it.
// Absent prints as the empty string.
func (v Value) Text() string {
	switch v.kind {
	case KindAbsent:
		return ""
	case KindString:
		return v.str
	case KindInt:
		return fmt.Sprintf("%d", v.num)
	case KindFloat:
		return fmt.Sprintf("%g", v.flt)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindTime:
		return v.t.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v.Native())
	}
}

// FromNative converts a plain Go value (driver results, expression results)
// into a Value. Unrecognized types are stringified.
func FromNative(x any) Value {
	switch t := x.(type) {
	case nil:
		return Absent
	case Value:
		return t
	case string:
		return String(t)
	case []byte:
		return String(string(t))
	case bool:
		return Bool(t)
	case int:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case float32:
		return Float(float64(t))
	case float64:
		return Float(t)
	case time.Time:
		return Time(t)
	case []string:
		return StringList(t)
	default:
		return String(fmt.Sprintf("%v", t))
	}
}

// Scope is the per-request variable store. Lookups fall back to the parent
// chain; writes are local. A scope never outlives the request that made it.
type Scope struct {
	parent *Scope
	vars   map[string]Value
}

// NewScope creates a scope. parent may be nil for a root scope.
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, vars: map[string]Value{}}
}

// Get looks up name, walking up the parent chain. Missing names return Absent.
func (s *Scope) Get(name string) Value {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[name]; ok {
			return v
		}
	}
	return Absent
}

// Set binds name locally, shadowing any parent binding.
func (s *Scope) Set(name string, v Value) {
	s.vars[name] = v
}

// SetRoot binds name in the outermost scope, visible to all descendants.
func (s *Scope) SetRoot(name string, v Value) {
	sc := s
	for sc.parent != nil {
		sc = sc.parent
	}
	sc.vars[name] = v
}

// Names returns the locally bound names, for diagnostics.
func (s *Scope) Names() []string {
	out := make([]string, 0, len(s.vars))
	for k := range s.vars {
		out = append(out, k)
	}
	return out
}

// snapshot flattens the scope chain into a native map for the expression
// evaluator. Child bindings shadow parents.
func (s *Scope) snapshot() map[string]any {
	var chain []*Scope
	for sc := s; sc != nil; sc = sc.parent {
		chain = append(chain, sc)
	}
	out := map[string]any{}
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].vars {
			out[k] = v.Native()
		}
	}
	return out
}
