package handler

import (
	"net/http"

	"github.com/opendap/olfs/core"
)

type VersionConfig struct {
	Path string `config:"path" validate:"url-path"`
}

func DefaultVersionConfig() VersionConfig {
	return VersionConfig{Path: "/version"}
}

// Version serves the backend version document.
type Version struct {
	base
	conf VersionConfig
	deps Deps
}

func NewVersion(deps Deps, conf VersionConfig) *Version {
	return &Version{base: newBase("version", deps), conf: conf, deps: deps}
}

func (v *Version) CanHandle(req *core.Request) (bool, error) {
	return req.RelativeURL == v.conf.Path, nil
}

func (v *Version) Handle(w http.ResponseWriter, req *core.Request) error {
	doc, err := v.deps.API.ShowVersion(req.Context())
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	_, err = w.Write(doc)
	return clientAbort(err)
}
