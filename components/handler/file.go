package handler

import (
	"context"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/opendap/olfs/core"
	"github.com/opendap/olfs/core/catalog"
	"github.com/opendap/olfs/core/fault"
)

type FileConfig struct {
	// Root is the data tree the backend serves.
	Root string `config:"root" validate:"required"`
	// AllowDirectAccess lets clients download backend datasets as raw
	// files. Non dataset files are always served.
	AllowDirectAccess bool `config:"allow-direct-access"`
}

// File serves raw files of the data tree. Access decisions are made from
// the catalog only, so a denied request never reaches the backend.
type File struct {
	base
	conf FileConfig
	deps Deps
	fs   afero.Fs
}

func NewFile(deps Deps, conf FileConfig) *File {
	return &File{
		base: newBase("file", deps),
		conf: conf,
		deps: deps,
		fs:   afero.NewReadOnlyFs(afero.NewBasePathFs(deps.Fs, conf.Root)),
	}
}

func (f *File) Init(_ context.Context) error {
	fi, err := f.fs.Stat("/")
	if err != nil {
		return errors.Wrapf(err, "file handler root %q", f.conf.Root)
	}
	if !fi.IsDir() {
		return errors.Errorf("file handler root %q is not a directory", f.conf.Root)
	}
	return nil
}

func (f *File) CanHandle(req *core.Request) (bool, error) {
	if req.RelativeURL == "" || strings.HasSuffix(req.RelativeURL, "/") {
		return false, nil
	}
	ds, err := sourceInfo(f.deps.Catalog, req, req.RelativeURL)
	if err != nil {
		return false, err
	}
	return ds.Exists && !ds.Collection, nil
}

func (f *File) LastModified(req *core.Request) (time.Time, error) {
	ds, err := sourceInfo(f.deps.Catalog, req, req.RelativeURL)
	return ds.LastModified, err
}

func (f *File) Handle(w http.ResponseWriter, req *core.Request) error {
	p := catalog.Clean(req.RelativeURL)
	ds, err := sourceInfo(f.deps.Catalog, req, p)
	if err != nil {
		return err
	}
	if !ds.Accessible {
		return fault.New(fault.Forbidden, "ACCESS DENIED: the requested resource %s is not available from this server.", p)
	}
	if ds.Dataset && !f.conf.AllowDirectAccess {
		f.log.Debug("Direct dataset access denied", zap.String("path", p))
		return fault.New(fault.Forbidden,
			"ACCESS DENIED: direct download of %s is not allowed by this server. "+
				"Use the data access form %s.html or the DAP responses of the dataset instead.", p, path.Base(p))
	}
	file, err := f.fs.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return fault.NotFound("Unable to locate the requested resource: %s", p)
		}
		return errors.Wrapf(err, "open %q", p)
	}
	defer file.Close()
	fi, err := file.Stat()
	if err != nil {
		return errors.Wrapf(err, "stat %q", p)
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(fi.Name(), `"`, "_")+`"`)
	http.ServeContent(w, req.HTTP, fi.Name(), fi.ModTime(), file)
	return nil
}
