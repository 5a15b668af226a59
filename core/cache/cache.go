// Package cache is a request scoped memo. A Scope lives in a request context
// between Open and Close, so handlers can share computed values (catalog
// lookups, parsed backend replies) while serving one request without any
// cross request state.
package cache

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type scopeKey struct{}

// Scope is safe for concurrent use by goroutines serving the same request.
type Scope struct {
	mu     sync.Mutex
	values map[string]interface{}
	closed bool
}

// Open attaches a new Scope to ctx. Opening a scope inside an already open
// one is a programming error: it is reported via DPanic (panic in
// development logger) and the existing scope is returned.
func Open(ctx context.Context) (context.Context, *Scope) {
	if s := FromContext(ctx); s != nil {
		zap.L().DPanic("Request cache scope is already open")
		return ctx, s
	}
	s := &Scope{values: map[string]interface{}{}}
	return context.WithValue(ctx, scopeKey{}, s), s
}

// FromContext returns the open scope or nil.
func FromContext(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	if s == nil || s.isClosed() {
		return nil
	}
	return s
}

// Close drops all values. Nil Scope Close is a no-op.
func (s *Scope) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.values = nil
	s.closed = true
	s.mu.Unlock()
}

func (s *Scope) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Scope) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

// Get returns the value cached in the ctx scope. Without an open scope it
// is always a miss.
func Get(ctx context.Context, key string) (interface{}, bool) {
	s := FromContext(ctx)
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Put caches value in the ctx scope. Without an open scope it is a no-op.
func Put(ctx context.Context, key string, value interface{}) {
	s := FromContext(ctx)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values != nil {
		s.values[key] = value
	}
}

// GetOrCompute returns the cached value for key, computing and caching it
// on a miss. Errors are not cached.
func GetOrCompute[T any](ctx context.Context, key string, compute func() (T, error)) (T, error) {
	if v, ok := Get(ctx, key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}
	t, err := compute()
	if err != nil {
		return t, err
	}
	Put(ctx, key, t)
	return t, nil
}
