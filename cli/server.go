package cli

import (
	"context"
	"expvar"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zapio"
	xnetutil "golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/opendap/olfs/components/handler"
	"github.com/opendap/olfs/core/bes"
	"github.com/opendap/olfs/core/dispatch"
	coreimport "github.com/opendap/olfs/core/import"
	"github.com/opendap/olfs/core/register"
	"github.com/opendap/olfs/core/respcache"
	"github.com/opendap/olfs/lib/errutil"
)

var (
	importOnce sync.Once
	// pluginDeps is shared by all registered handler constructors. It is
	// filled by newServer before handlers are created.
	pluginDeps = &handler.Deps{}
)

func importPlugins() {
	importOnce.Do(func() {
		coreimport.Import(pluginDeps)
	})
}

type server struct {
	log    *zap.Logger
	conf   cliConfig
	engine *dispatch.Engine
	store  respcache.Store
	http   *http.Server
	// hard makes the next stop close connections instead of draining them.
	hard atomic.Bool
}

// newServer builds the handler chain from conf. Nothing is initialized or
// listening yet.
func newServer(log *zap.Logger, conf cliConfig, fs afero.Fs, settings *bes.Settings) (*server, error) {
	err := settings.Configure(conf.BES.Host, conf.BES.Port)
	if err != nil && err != bes.ErrAlreadyConfigured {
		return nil, err
	}
	importPlugins()

	client := bes.NewClient(conf.BES.Client, settings, nil, log.Named("bes"))
	*pluginDeps = handler.Deps{
		Log: log,
		API: bes.NewAPI(client, log.Named("bes")),
		Fs:  fs,
	}
	_, pluginDeps.Catalog, err = register.CatalogTypes.New(conf.Catalog)
	if err != nil {
		return nil, errors.WithMessage(err, "catalog")
	}
	var store respcache.Store
	if len(conf.Cache) > 0 {
		_, store, err = register.Stores.New(conf.Cache)
		if err != nil {
			return nil, errors.WithMessage(err, "response cache")
		}
		pluginDeps.Cache = store
	}
	closeStore := func() {
		if store != nil {
			_ = store.Close()
		}
	}

	get, err := coreimport.NewHandlers(conf.Handlers)
	if err != nil {
		closeStore()
		return nil, err
	}
	post, err := coreimport.NewHandlers(conf.PostHandlers)
	if err != nil {
		closeStore()
		return nil, errors.WithMessage(err, "post")
	}

	s := &server{
		log:    log,
		conf:   conf,
		engine: dispatch.New(log.Named("dispatch"), conf.Dispatch, get, post),
		store:  store,
	}
	s.http = &http.Server{
		Handler:           s.router(),
		ReadHeaderTimeout: conf.Server.ReadHeaderTimeout,
		ErrorLog:          zap.NewStdLog(log.Named("http")),
	}
	return s, nil
}

func (s *server) router() http.Handler {
	r := mux.NewRouter()
	if s.conf.Server.Monitoring {
		r.Handle("/metrics", promhttp.Handler())
		r.Handle("/debug/vars", expvar.Handler())
	}
	prefix := strings.TrimSuffix(s.conf.Dispatch.ServicePrefix, "/")
	if prefix != "" {
		r.Path(prefix).Handler(s.engine)
	}
	r.PathPrefix(prefix + "/").Handler(s.engine)

	accessLog := &zapio.Writer{Log: s.log.Named("access"), Level: zapcore.InfoLevel}
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(s.log.Named("recovery"))),
	)
	return handlers.CombinedLoggingHandler(accessLog, recovery(r))
}

// Run initializes handlers and serves until ctx is done or serving fails.
// Handlers are shut down and the response cache closed before return.
func (s *server) Run(ctx context.Context) error {
	err := s.engine.Init(ctx)
	if err != nil {
		// Initialized handlers are shut down by Init already.
		return errutil.Join(errors.WithMessage(err, "handlers init failed"), s.closeStore())
	}
	ln, err := net.Listen("tcp", s.conf.Server.Listen)
	if err == nil {
		err = s.serve(ctx, ln)
	}
	return s.close(errors.WithStack(err))
}

func (s *server) serve(ctx context.Context, ln net.Listener) error {
	if limit := s.conf.Server.MaxConnections; limit > 0 {
		ln = xnetutil.LimitListener(ln, limit)
	}
	s.log.Info("Serving", zap.Stringer("addr", ln.Addr()), zap.String("prefix", s.conf.Dispatch.ServicePrefix))
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.http.Serve(ln)
		if err == http.ErrServerClosed {
			return nil
		}
		return errors.WithStack(err)
	})
	g.Go(func() error {
		<-ctx.Done()
		if s.hard.Load() {
			s.log.Info("Closing connections")
			return s.http.Close()
		}
		s.log.Info("Stopping gracefully", zap.Duration("timeout", s.conf.Server.ShutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.conf.Server.ShutdownTimeout)
		defer cancel()
		err := s.http.Shutdown(shutdownCtx)
		if err != nil {
			s.log.Warn("Graceful shutdown failed. Closing connections.", zap.Error(err))
			return s.http.Close()
		}
		return nil
	})
	return g.Wait()
}

// quit makes the server drop connections instead of draining them on stop.
func (s *server) quit() {
	s.hard.Store(true)
}

func (s *server) close(runErr error) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.conf.Server.ShutdownTimeout)
	defer cancel()
	err := s.engine.Shutdown(ctx)
	if err != nil {
		s.log.Error("Handlers shutdown failed", zap.Error(err))
	}
	return errutil.Join(errutil.Join(runErr, err), s.closeStore())
}

func (s *server) closeStore() error {
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	if err != nil {
		s.log.Error("Response cache close failed", zap.Error(err))
	}
	return err
}
