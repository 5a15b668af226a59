// Package handler holds the built-in request handlers. Each handler claims
// one family of resources below the service prefix and is created from its
// config through the handler registry.
package handler

import (
	"context"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/opendap/olfs/core"
	"github.com/opendap/olfs/core/bes"
	"github.com/opendap/olfs/core/catalog"
	"github.com/opendap/olfs/core/respcache"
)

// Deps are process wide collaborators shared by handlers.
type Deps struct {
	Log     *zap.Logger
	API     *bes.API
	Catalog catalog.Source
	// Cache may be nil: responses are not cached then.
	Cache respcache.Store
	// Fs is the file system local catalog and file handler roots are
	// resolved in.
	Fs afero.Fs
}

func (d Deps) logger() *zap.Logger {
	if d.Log == nil {
		return zap.L()
	}
	return d.Log
}

// base implements optional parts of core.Handler.
type base struct {
	name string
	log  *zap.Logger
}

func newBase(name string, deps Deps) base {
	return base{name: name, log: deps.logger().Named(name)}
}

func (b *base) Name() string { return b.name }

func (b *base) Init(context.Context) error { return nil }

func (b *base) LastModified(*core.Request) (time.Time, error) { return time.Time{}, nil }

func (b *base) Shutdown(context.Context) error { return nil }

// sourceInfo is catalog lookup of the request dataset memoized in the
// request scope.
func sourceInfo(src catalog.Source, req *core.Request, p string) (catalog.DataSource, error) {
	return catalog.Lookup(req.Context(), src, p)
}
