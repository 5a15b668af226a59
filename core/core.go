// Package core defines olfs extension points: the request view that handlers
// inspect and the Handler contract the dispatch engine drives.
// Handler implementations are registered in the plugin system (look at
// core/plugin and core/register), so the handler chain is built from config.
package core

import (
	"context"
	"net/http"
	"time"
)

//go:generate mockery -name=Handler -case=underscore -outpkg=coremock

// Handler serves one family of resources. Handlers are created from config,
// initialized once in declared order and are read only afterwards, so they
// must be goroutine safe.
type Handler interface {
	// Init is called once before any other method. Failed Init aborts server
	// startup.
	Init(ctx context.Context) error
	// CanHandle reports whether the handler claims the request. It should be
	// cheap and must not write anything to the client. Error aborts dispatch
	// and is reported to the client.
	CanHandle(req *Request) (bool, error)
	// Handle writes the response. Handle is called only after CanHandle
	// returned true for the same request.
	Handle(w http.ResponseWriter, req *Request) error
	// LastModified returns the modification time of the resource behind req.
	// Zero time means unknown.
	LastModified(req *Request) (time.Time, error)
	// Shutdown releases handler resources. Called once on server stop.
	Shutdown(ctx context.Context) error
}
