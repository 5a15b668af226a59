// Package dispatch routes every gateway request to the first handler that
// claims it and funnels every failure into a single error reporter.
package dispatch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/opendap/olfs/core"
	"github.com/opendap/olfs/core/cache"
	"github.com/opendap/olfs/core/fault"
)

type Config struct {
	// ServicePrefix is where the gateway is mounted, like "/opendap".
	ServicePrefix string         `config:"service-prefix" validate:"url-path"`
	HTTPPost      HTTPPostConfig `config:"http-post"`
}

type HTTPPostConfig struct {
	Enabled bool `config:"enabled"`
}

func DefaultConfig() Config {
	return Config{ServicePrefix: "/opendap"}
}

// Engine is an http.Handler. Handler lists are read only after New.
type Engine struct {
	log  *zap.Logger
	conf Config
	// get serves GET and HEAD.
	get  []core.Handler
	post []core.Handler
	now  func() time.Time
}

func New(log *zap.Logger, conf Config, get, post []core.Handler) *Engine {
	return &Engine{
		log:  log,
		conf: conf,
		get:  append([]core.Handler(nil), get...),
		post: append([]core.Handler(nil), post...),
		now:  time.Now,
	}
}

// Select returns the first handler claiming req, in list order. Nil handler
// and nil error means no handler claimed it. CanHandle error aborts selection.
func Select(req *core.Request, handlers []core.Handler) (core.Handler, error) {
	for _, h := range handlers {
		ok, err := h.CanHandle(req)
		if err != nil {
			return nil, err
		}
		if ok {
			return h, nil
		}
	}
	return nil, nil
}

func (e *Engine) all() []core.Handler {
	all := make([]core.Handler, 0, len(e.get)+len(e.post))
	return append(append(all, e.get...), e.post...)
}

// Init initializes handlers one by one in declared order. On the first
// failure handlers that were initialized already are shut down and the
// error is returned.
func (e *Engine) Init(ctx context.Context) error {
	all := e.all()
	for i, h := range all {
		e.log.Debug("Handler init", zap.Int("index", i), zap.String("handler", handlerName(h)))
		err := h.Init(ctx)
		if err == nil {
			continue
		}
		err = errors.WithMessagef(err, "handler %d (%s) init failed", i, handlerName(h))
		if shutdownErr := shutdown(ctx, e.log, all[:i]); shutdownErr != nil {
			e.log.Warn("Shutdown of initialized handlers failed", zap.Error(shutdownErr))
		}
		return err
	}
	e.log.Info("Handlers initialized", zap.Int("get", len(e.get)), zap.Int("post", len(e.post)))
	return nil
}

// Shutdown calls Shutdown of every handler, even if some of them fail.
func (e *Engine) Shutdown(ctx context.Context) error {
	return shutdown(ctx, e.log, e.all())
}

func shutdown(ctx context.Context, log *zap.Logger, handlers []core.Handler) error {
	var merr *multierror.Error
	for _, h := range handlers {
		if err := h.Shutdown(ctx); err != nil {
			log.Warn("Handler shutdown failed", zap.String("handler", handlerName(h)), zap.Error(err))
			merr = multierror.Append(merr, errors.WithMessagef(err, "%s shutdown", handlerName(h)))
		}
	}
	return merr.ErrorOrNil()
}

// LastModified asks the claiming handler. If no handler claims req or it
// fails, the current time is returned so the resource is never considered
// cached.
func (e *Engine) LastModified(req *core.Request) time.Time {
	h, err := Select(req, e.handlers(req.HTTP.Method))
	if err != nil || h == nil {
		return e.now()
	}
	lm, err := h.LastModified(req)
	if err != nil {
		e.log.Debug("Last modified lookup failed", zap.String("url", req.RelativeURL), zap.Error(err))
		return e.now()
	}
	if lm.IsZero() {
		return e.now()
	}
	return lm
}

func (e *Engine) handlers(method string) []core.Handler {
	if method == http.MethodPost {
		return e.post
	}
	return e.get
}

func (e *Engine) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	ctx, scope := cache.Open(r.Context())
	defer scope.Close()
	metricRequests.Inc()
	metricActiveRequests.Inc()
	defer metricActiveRequests.Dec()

	start := e.now()
	w := &responseWriter{ResponseWriter: rw}
	req := core.NewRequest(r.WithContext(ctx), e.conf.ServicePrefix)
	name := "none"
	defer func() {
		if p := recover(); p != nil {
			if p == http.ErrAbortHandler {
				panic(p)
			}
			e.log.Error("Handler panic", zap.String("url", r.URL.String()), zap.Any("panic", p), zap.Stack("stack"))
			e.report(w, req, fault.New(fault.Internal, "Internal server error."))
		}
		requestsTotal.WithLabelValues(name, statusLabel(w.Status())).Inc()
		requestSeconds.WithLabelValues(name).Observe(e.now().Sub(start).Seconds())
	}()

	h, err := e.dispatch(w, req)
	if h != nil {
		name = handlerName(h)
	}
	if err != nil {
		e.report(w, req, err)
	}
}

// dispatch returns the claiming handler, if any was selected, and the error
// to report.
func (e *Engine) dispatch(w *responseWriter, req *core.Request) (core.Handler, error) {
	switch req.HTTP.Method {
	case http.MethodGet, http.MethodHead:
	case http.MethodPost:
		if !e.conf.HTTPPost.Enabled {
			return nil, methodNotAllowed(req)
		}
	default:
		return nil, methodNotAllowed(req)
	}
	if req.Outside {
		return nil, fault.NotFound("Unable to locate the requested resource: %s", req.RelativeURL)
	}
	if req.IsServiceOnly() {
		http.Redirect(w, req.HTTP, req.ServicePrefix+"/", http.StatusFound)
		return nil, nil
	}
	h, err := Select(req, e.handlers(req.HTTP.Method))
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, e.miss(req)
	}
	if e.notModified(w, h, req) {
		return h, nil
	}
	e.log.Debug("Request dispatched", zap.String("url", req.RelativeURL), zap.String("handler", handlerName(h)))
	return h, h.Handle(w, req)
}

// notModified handles conditional GET. It writes 304 and returns true when
// the client copy is fresh.
func (e *Engine) notModified(w http.ResponseWriter, h core.Handler, req *core.Request) bool {
	if req.HTTP.Method == http.MethodPost {
		return false
	}
	lm, err := h.LastModified(req)
	if err != nil || lm.IsZero() {
		return false
	}
	w.Header().Set("Last-Modified", lm.UTC().Format(http.TimeFormat))
	ims, err := http.ParseTime(req.HTTP.Header.Get("If-Modified-Since"))
	if err != nil {
		return false
	}
	if lm.Truncate(time.Second).After(ims) {
		return false
	}
	w.WriteHeader(http.StatusNotModified)
	return true
}

func methodNotAllowed(req *core.Request) error {
	f := fault.New(fault.InvalidParameter, "Method %s is not supported.", req.HTTP.Method)
	f.Status = http.StatusMethodNotAllowed
	return f
}

type named interface {
	Name() string
}

// missHinter is implemented by handlers that can tell the client what they
// would have served instead.
type missHinter interface {
	MissHint(req *core.Request) string
}

func (e *Engine) miss(req *core.Request) error {
	msg := "Unable to locate the requested resource: " + req.RelativeURL
	for _, h := range e.handlers(req.HTTP.Method) {
		if mh, ok := h.(missHinter); ok {
			if hint := mh.MissHint(req); hint != "" {
				msg += ". " + hint
			}
		}
	}
	return fault.NotFound("%s", msg)
}

func handlerName(h core.Handler) string {
	if n, ok := h.(named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", h)
}
