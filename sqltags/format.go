package sqltags

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/dangdungcntt/gelly"
)

const defaultDateLayout = "2006-01-02 15:04:05"

// formatDateTag writes a formatted timestamp to the output.
//
// Usage:
//
//	<app:formatDate value="${created_at}" pattern="2006-01-02"/>
//
// An absent value writes nothing. Epoch milliseconds (int or numeric string)
// are accepted alongside time values.
type formatDateTag struct{}

func (t *formatDateTag) Run(_ context.Context, inv *gelly.Invocation) error {
	v := inv.Attr("value")
	if v.IsAbsent() {
		return nil
	}
	layout := inv.AttrText("pattern")
	if layout == "" {
		layout = defaultDateLayout
	}

	var ts time.Time
	switch x := v.Native().(type) {
	case time.Time:
		ts = x
	case int64:
		ts = time.UnixMilli(x)
	case float64:
		ts = time.UnixMilli(int64(x))
	case string:
		ms, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "formatDate: cannot interpret %q as a timestamp", x)
		}
		ts = time.UnixMilli(ms)
	default:
		return errors.Errorf("formatDate: cannot interpret %v (%T) as a timestamp", x, x)
	}

	return inv.Write(ts.Format(layout))
}

// formatNumberTag writes a formatted number to the output.
//
// Usage:
//
//	<app:formatNumber value="${price}" pattern="%.2f"/>
//
// An absent value writes "0".
type formatNumberTag struct{}

func (t *formatNumberTag) Run(_ context.Context, inv *gelly.Invocation) error {
	v := inv.Attr("value")
	if v.IsAbsent() {
		return inv.Write("0")
	}
	pattern := inv.AttrText("pattern")
	if pattern == "" {
		pattern = "%.2f"
	}

	var n float64
	switch x := v.Native().(type) {
	case int64:
		n = float64(x)
	case float64:
		n = x
	case string:
		parsed, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return errors.Wrapf(err, "formatNumber: cannot interpret %q as a number", x)
		}
		n = parsed
	default:
		return errors.Errorf("formatNumber: cannot interpret %v (%T) as a number", x, x)
	}

	return inv.Write(fmt.Sprintf(pattern, n))
}
