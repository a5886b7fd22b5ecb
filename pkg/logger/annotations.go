package logger

import (
	"context"
	"sync"
)

type annotationsKey struct{}

// annotations collects fields that handlers learn while serving a request
// (sale code, product id) so the request log line written after the handler
// returns can carry them.
type annotations struct {
	mu     sync.Mutex
	fields map[string]any
}

// WithAnnotations returns a context that Annotate can write to.
func WithAnnotations(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, annotationsKey{}, &annotations{fields: map[string]any{}})
}

// Annotate records key=value for the enclosing request. It is a no-op when the
// context was not prepared with WithAnnotations.
func Annotate(ctx context.Context, key string, value any) {
	if ctx == nil {
		return
	}
	a, ok := ctx.Value(annotationsKey{}).(*annotations)
	if !ok {
		return
	}
	a.mu.Lock()
	a.fields[key] = value
	a.mu.Unlock()
}

// AnnotateSale records the sale a request produced or read.
func AnnotateSale(ctx context.Context, id int64, code string) {
	Annotate(ctx, "sale_id", id)
	Annotate(ctx, "sale_code", code)
}

// Annotations returns a copy of the recorded fields, or nil when there are none.
func Annotations(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}
	a, ok := ctx.Value(annotationsKey{}).(*annotations)
	if !ok {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.fields) == 0 {
		return nil
	}
	out := make(map[string]any, len(a.fields))
	for k, v := range a.fields {
		out[k] = v
	}
	return out
}
