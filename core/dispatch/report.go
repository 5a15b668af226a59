package dispatch

import (
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/opendap/olfs/core"
	"github.com/opendap/olfs/core/fault"
)

var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Status}} {{.StatusText}}</title></head>
<body>
<h1>{{.StatusText}}</h1>
<pre>{{.Message}}</pre>
{{- if .Locator}}
<p>Offending parameter: <code>{{.Locator}}</code></p>
{{- end}}
{{- if .ServiceURL}}
<p>Return to the <a href="{{.ServiceURL}}">service root</a>.</p>
{{- end}}
</body>
</html>
`))

type errorPageData struct {
	Status     int
	StatusText string
	Message    string
	Locator    string
	ServiceURL string
}

// report is the single exit for request failures. It picks the status from
// the fault kind and writes a best effort page. A failure while reporting
// is logged and swallowed.
func (e *Engine) report(w *responseWriter, req *core.Request, err error) {
	defer func() {
		if p := recover(); p != nil {
			e.log.Error("Panic while reporting request failure", zap.Any("panic", p), zap.NamedError("reported", err))
		}
	}()
	kind := fault.KindOf(err)
	status := fault.Status(err)
	faultsTotal.WithLabelValues(kind.String()).Inc()
	log := e.log.With(zap.String("url", req.HTTP.URL.String()), zap.Stringer("kind", kind), zap.Int("status", status))

	switch {
	case kind == fault.ClientAbort:
		log.Debug("Client went away", zap.Error(err))
		return
	case status >= http.StatusInternalServerError:
		log.Error("Request failed", zap.Error(err))
	default:
		log.Info("Request rejected", zap.Error(err))
	}

	if w.WroteHeader() {
		log.Warn("Response already started, error page dropped")
		return
	}
	data := errorPageData{
		Status:     status,
		StatusText: http.StatusText(status),
		Message:    fault.Public(err),
	}
	if f, ok := fault.As(err); ok {
		data.Locator = f.Locator
	}
	if kind == fault.DispatchMiss || kind == fault.Forbidden {
		data.ServiceURL = req.ServiceURL()
	}
	h := w.Header()
	h.Del("Content-Length")
	h.Del("Content-Disposition")
	h.Del("Last-Modified")
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if err := errorPage.Execute(w, data); err != nil {
		log.Warn("Error page write failed", zap.Error(err))
	}
}
