package core

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// Request is an immutable view of one HTTP request: where it points relative
// to the service root, the requested response suffix and the constraint
// expression.
type Request struct {
	HTTP *http.Request
	// ServicePrefix is the path the service is mounted at, without trailing
	// slash. Empty for root mount.
	ServicePrefix string
	// RelativeURL is the request path below ServicePrefix. Always starts
	// with "/" unless the request targets the service itself.
	RelativeURL string
	// Suffix is the part of the last path component after the last dot.
	Suffix string
	// Dataset is RelativeURL without the leading slash and without the
	// ".Suffix" part.
	Dataset string
	// CE is the decoded query string, passed to the backend as is.
	CE string
	// Outside is set when the path is not below ServicePrefix, like
	// "/opendapnc/x" for "/opendap". RelativeURL is the whole path then.
	Outside bool
}

// NewRequest builds a Request for r served under servicePrefix.
func NewRequest(r *http.Request, servicePrefix string) *Request {
	prefix := strings.TrimSuffix(servicePrefix, "/")
	p := r.URL.Path
	rel := p
	outside := false
	if prefix != "" {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			rel = p[len(prefix):]
		} else {
			outside = true
		}
	}
	req := &Request{
		HTTP:          r,
		ServicePrefix: prefix,
		RelativeURL:   rel,
		CE:            decodeCE(r.URL.RawQuery),
		Outside:       outside,
	}
	base := path.Base(rel)
	if !strings.HasSuffix(rel, "/") {
		if dot := strings.LastIndexByte(base, '.'); dot > 0 {
			req.Suffix = base[dot+1:]
		}
	}
	req.Dataset = strings.TrimPrefix(rel, "/")
	if req.Suffix != "" {
		req.Dataset = strings.TrimSuffix(req.Dataset, "."+req.Suffix)
	}
	return req
}

func decodeCE(raw string) string {
	ce, err := url.QueryUnescape(raw)
	if err != nil {
		return raw
	}
	return ce
}

func (r *Request) Context() context.Context {
	return r.HTTP.Context()
}

// WithContext returns a shallow copy of r whose HTTP request carries ctx.
func (r *Request) WithContext(ctx context.Context) *Request {
	r2 := *r
	r2.HTTP = r.HTTP.WithContext(ctx)
	return &r2
}

// IsServiceOnly reports whether the request targets the service mount point
// without a trailing slash, like "/opendap".
func (r *Request) IsServiceOnly() bool {
	return r.RelativeURL == ""
}

// ServiceURL returns the absolute URL of the service root, with trailing
// slash.
func (r *Request) ServiceURL() string {
	scheme := "http"
	if r.HTTP.TLS != nil {
		scheme = "https"
	}
	if fwd := r.HTTP.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + r.HTTP.Host + r.ServicePrefix + "/"
}

// Param returns the query parameter value, matching the key case
// insensitively as OGC KVP encoding requires.
func (r *Request) Param(key string) string {
	for k, v := range r.HTTP.URL.Query() {
		if strings.EqualFold(k, key) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

// Params returns all values of a repeatable query parameter, matching the
// key case insensitively.
func (r *Request) Params(key string) []string {
	var res []string
	for k, v := range r.HTTP.URL.Query() {
		if strings.EqualFold(k, key) {
			res = append(res, v...)
		}
	}
	return res
}
