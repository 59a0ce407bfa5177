// Package track records how often an operation is called and what went in
// and out of each call, keeping the records in a cache.KV backend.
//
// CountCalls and CallHistory wrap a Storer and return a Storer, so they stack:
//
//	op := track.CallHistory(kv, "Cache.store", track.CountCalls(kv, "Cache.store", next))
//
// Counter and history writes are separate backend calls; concurrent callers
// may interleave between them.
package track

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/leonardcser/kvtrack/internal/cache"
)

// Storer is the operation being tracked.
type Storer interface {
	Store(ctx context.Context, value any) (string, error)
}

// StorerFunc adapts a function to Storer.
type StorerFunc func(ctx context.Context, value any) (string, error)

func (f StorerFunc) Store(ctx context.Context, value any) (string, error) { return f(ctx, value) }

// Traced is implemented by wrappers that know where their records live.
// Replay only works on a Traced operation.
type Traced interface {
	Name() string
	Backend() cache.KV
}

// InputsKey and OutputsKey name the history lists for an operation.
func InputsKey(name string) string  { return name + ":inputs" }
func OutputsKey(name string) string { return name + ":outputs" }

// Counter increments the backend key named after the operation on every call.
type Counter struct {
	kv   cache.KV
	name string
	next Storer
}

// CountCalls wraps next with a call counter stored under name.
func CountCalls(kv cache.KV, name string, next Storer) *Counter {
	return &Counter{kv: kv, name: name, next: next}
}

func (c *Counter) Store(ctx context.Context, value any) (string, error) {
	if c.kv != nil {
		if _, err := c.kv.Incr(ctx, c.name); err != nil {
			return "", fmt.Errorf("count %s: %w", c.name, err)
		}
	}
	return c.next.Store(ctx, value)
}

func (c *Counter) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

func (c *Counter) Backend() cache.KV {
	if c == nil {
		return nil
	}
	return c.kv
}

// History appends the input and output of every call to two lists.
type History struct {
	kv   cache.KV
	name string
	next Storer
}

// CallHistory wraps next and logs its calls under name.
func CallHistory(kv cache.KV, name string, next Storer) *History {
	return &History{kv: kv, name: name, next: next}
}

// Store records the input before calling next and the output after. A failed
// call records "error: <msg>" as its output so both lists stay aligned.
func (h *History) Store(ctx context.Context, value any) (string, error) {
	if h.kv == nil {
		return h.next.Store(ctx, value)
	}
	if _, err := h.kv.RPush(ctx, InputsKey(h.name), []byte(FormatArgs(value))); err != nil {
		return "", fmt.Errorf("record input %s: %w", h.name, err)
	}
	out, callErr := h.next.Store(ctx, value)
	recorded := out
	if callErr != nil {
		recorded = "error: " + callErr.Error()
	}
	if _, err := h.kv.RPush(ctx, OutputsKey(h.name), []byte(recorded)); err != nil && callErr == nil {
		return "", fmt.Errorf("record output %s: %w", h.name, err)
	}
	return out, callErr
}

func (h *History) Name() string {
	if h == nil {
		return ""
	}
	return h.name
}

func (h *History) Backend() cache.KV {
	if h == nil {
		return nil
	}
	return h.kv
}

// FormatArgs renders call arguments as a tuple: strings single-quoted,
// a lone argument followed by a trailing comma, e.g. ('hello',).
func FormatArgs(args ...any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = formatArg(a)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatArg(a any) string {
	switch v := a.(type) {
	case string:
		return quote(v)
	case []byte:
		return "b" + quote(string(v))
	case float64:
		return FormatFloat(v, 64)
	case float32:
		return FormatFloat(float64(v), 32)
	case nil:
		return "nil"
	default:
		return fmt.Sprint(v)
	}
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

// FormatFloat renders f in its shortest form, keeping a ".0" on whole
// numbers so 3.0 does not read back as the integer 3.
func FormatFloat(f float64, bitSize int) string {
	s := strconv.FormatFloat(f, 'g', -1, bitSize)
	if !strings.ContainsAny(s, ".eEnNiI") {
		s += ".0"
	}
	return s
}
