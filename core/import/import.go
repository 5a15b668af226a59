// Package coreimport registers the built-in plugins: request handlers,
// response cache stores and catalog sources.
package coreimport

import (
	"github.com/pkg/errors"

	"github.com/opendap/olfs/components/handler"
	"github.com/opendap/olfs/core"
	"github.com/opendap/olfs/core/catalog"
	"github.com/opendap/olfs/core/register"
	"github.com/opendap/olfs/core/respcache"
)

// Import registers built-in plugins. Handlers and catalogs are built with
// deps, which must be filled before they are created from config. Import
// should be called once.
func Import(deps *handler.Deps) {
	register.Store("memory", func(conf respcache.MemoryConfig) (respcache.Store, error) {
		return respcache.NewMemory(conf), nil
	}, respcache.DefaultMemoryConfig)
	register.Store("bolt", func(conf respcache.BoltConfig) (respcache.Store, error) {
		return respcache.NewBolt(conf)
	}, respcache.DefaultBoltConfig)
	register.Store("sql", func(conf respcache.SQLConfig) (respcache.Store, error) {
		return respcache.NewSQL(conf)
	}, respcache.DefaultSQLConfig)

	register.Catalog("local", func(conf catalog.LocalConfig) (catalog.Source, error) {
		return catalog.NewLocal(deps.Fs, conf), nil
	}, catalog.DefaultLocalConfig)
	register.Catalog("bes", func(struct{}) (catalog.Source, error) {
		return catalog.NewBES(deps.API), nil
	}, nil)

	register.Handler("version", func(conf handler.VersionConfig) (core.Handler, error) {
		return handler.NewVersion(*deps, conf), nil
	}, handler.DefaultVersionConfig)
	register.Handler("bot-blocker", func(conf handler.BotBlockerConfig) (core.Handler, error) {
		return handler.NewBotBlocker(*deps, conf), nil
	}, nil)
	register.Handler("thredds", func(conf handler.ThreddsConfig) (core.Handler, error) {
		return handler.NewThredds(*deps, conf), nil
	}, handler.DefaultThreddsConfig)
	register.Handler("wcs", func(conf handler.WCSConfig) (core.Handler, error) {
		return handler.NewWCS(*deps, conf), nil
	}, handler.DefaultWCSConfig)
	register.Handler("dap", func(conf handler.DAPConfig) (core.Handler, error) {
		return handler.NewDAP(*deps, conf), nil
	}, handler.DefaultDAPConfig)
	register.Handler("directory", func(conf handler.DirectoryConfig) (core.Handler, error) {
		return handler.NewDirectory(*deps, conf), nil
	}, handler.DefaultDirectoryConfig)
	register.Handler("file", func(conf handler.FileConfig) (core.Handler, error) {
		return handler.NewFile(*deps, conf), nil
	}, nil)
}

// NewHandlers creates handlers from their configs, in order.
func NewHandlers(confs []map[string]interface{}) ([]core.Handler, error) {
	handlers := make([]core.Handler, 0, len(confs))
	for i, conf := range confs {
		_, h, err := register.Handlers.New(conf)
		if err != nil {
			return nil, errors.WithMessagef(err, "handler %d", i)
		}
		handlers = append(handlers, h)
	}
	return handlers, nil
}
