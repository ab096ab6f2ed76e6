package gelly

import "fmt"

// TagErrorKind classifies tag handler failures.
type TagErrorKind int

const (
	TagMissingAttribute TagErrorKind = iota
	TagEmptyBody
	TagQueryFailed
	TagUpdateFailed
	TagExecuteFailed
)

func (k TagErrorKind) String() string {
	switch k {
	case TagMissingAttribute:
		return "missing attribute"
	case TagEmptyBody:
		return "empty body"
	case TagQueryFailed:
		return "query failed"
	case TagUpdateFailed:
		return "update failed"
	case TagExecuteFailed:
		return "execute failed"
	default:
		return "unknown"
	}
}

// TagError is returned by tag handlers. It always carries the underlying
// cause when one exists.
type TagError struct {
	Kind  TagErrorKind
	Tag   string
	Cause error
}

func (e *TagError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("tag %q: %s", e.Tag, e.Kind)
	}
	return fmt.Sprintf("tag %q: %s: %v", e.Tag, e.Kind, e.Cause)
}

func (e *TagError) Unwrap() error { return e.Cause }

// TemplateErrorKind classifies template resolution and rendering failures.
type TemplateErrorKind int

const (
	TemplateNotFound TemplateErrorKind = iota
	UnknownTag
	TagExecutionFailed
	NestingTooDeep
)

func (k TemplateErrorKind) String() string {
	switch k {
	case TemplateNotFound:
		return "template not found"
	case UnknownTag:
		return "unknown tag"
	case TagExecutionFailed:
		return "tag execution failed"
	case NestingTooDeep:
		return "nesting too deep"
	default:
		return "unknown"
	}
}

// TemplateError is the engine's error surface toward the router.
type TemplateError struct {
	Kind  TemplateErrorKind
	Name  string
	Cause error
}

func (e *TemplateError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("template %q: %s", e.Name, e.Kind)
	}
	return fmt.Sprintf("template %q: %s: %v", e.Name, e.Kind, e.Cause)
}

func (e *TemplateError) Unwrap() error { return e.Cause }
