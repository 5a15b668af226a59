// Package register holds the process wide plugin registries: handlers,
// response cache stores and catalog sources. Built-in plugins are registered
// by core/import.
package register

import (
	"github.com/opendap/olfs/core"
	"github.com/opendap/olfs/core/catalog"
	"github.com/opendap/olfs/core/plugin"
	"github.com/opendap/olfs/core/respcache"
)

var (
	Handlers     = plugin.NewRegistry[core.Handler]("handler")
	Stores       = plugin.NewRegistry[respcache.Store]("response cache")
	CatalogTypes = plugin.NewRegistry[catalog.Source]("catalog")
)

func Handler[C any](name string, newHandler func(C) (core.Handler, error), newDefaultConfig func() C) {
	plugin.Register(Handlers, name, newHandler, newDefaultConfig)
}

func Store[C any](name string, newStore func(C) (respcache.Store, error), newDefaultConfig func() C) {
	plugin.Register(Stores, name, newStore, newDefaultConfig)
}

func Catalog[C any](name string, newSource func(C) (catalog.Source, error), newDefaultConfig func() C) {
	plugin.Register(CatalogTypes, name, newSource, newDefaultConfig)
}
