// Package catalog answers what a request path refers to: whether it exists,
// whether it is a collection or a dataset the backend can serve, and whether
// the gateway may expose it.
package catalog

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/opendap/olfs/core/cache"
)

// DataSource describes one catalog path.
type DataSource struct {
	Name   string
	Exists bool
	// Collection is set for directories and other catalog nodes.
	Collection bool
	// Dataset is set when the backend can build data products for it.
	Dataset bool
	// Accessible is unset for paths hidden by gateway policy.
	Accessible   bool
	LastModified time.Time
	Size         int64
}

type Source interface {
	Info(ctx context.Context, path string) (DataSource, error)
}

// Lookup is src.Info memoized in the request cache scope of ctx.
func Lookup(ctx context.Context, src Source, p string) (DataSource, error) {
	key := fmt.Sprintf("catalog:%p:%s", src, Clean(p))
	return cache.GetOrCompute(ctx, key, func() (DataSource, error) {
		return src.Info(ctx, p)
	})
}

// Clean returns rooted slash separated p without dot elements.
func Clean(p string) string {
	return path.Clean("/" + p)
}
