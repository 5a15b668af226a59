package catalog

import (
	"context"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

type LocalConfig struct {
	Root string `config:"root" validate:"required"`
	// Datasets match paths the backend serves as data. Other files are
	// plain files.
	Datasets []*regexp.Regexp `config:"datasets"`
	// Exclude match names of path elements the gateway must not expose.
	Exclude []*regexp.Regexp `config:"exclude"`
}

func DefaultLocalConfig() LocalConfig {
	return LocalConfig{
		Datasets: []*regexp.Regexp{
			regexp.MustCompile(`\.(nc|nc4|h5|hdf|hdf5|he5|HDF5|grb|grib|grb2|dods|csv)(\.gz|\.bz2|\.Z)?$`),
		},
		Exclude: []*regexp.Regexp{
			regexp.MustCompile(`^\.`),
		},
	}
}

// Local reads the catalog from the file tree the backend serves. The tree
// is accessed read only.
type Local struct {
	fs   afero.Fs
	conf LocalConfig
}

func NewLocal(fs afero.Fs, conf LocalConfig) *Local {
	return &Local{
		fs:   afero.NewReadOnlyFs(afero.NewBasePathFs(fs, conf.Root)),
		conf: conf,
	}
}

// Fs is the read only catalog tree.
func (l *Local) Fs() afero.Fs { return l.fs }

func (l *Local) Info(_ context.Context, p string) (DataSource, error) {
	p = Clean(p)
	ds := DataSource{Name: p}
	fi, err := l.fs.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return ds, nil
		}
		return ds, errors.Wrapf(err, "catalog stat %q", p)
	}
	ds.Exists = true
	ds.Collection = fi.IsDir()
	ds.LastModified = fi.ModTime()
	ds.Size = fi.Size()
	ds.Accessible = !l.excluded(p)
	if !ds.Collection {
		ds.Dataset = l.isDataset(p)
	}
	return ds, nil
}

func (l *Local) excluded(p string) bool {
	for _, elem := range strings.Split(strings.Trim(p, "/"), "/") {
		for _, re := range l.conf.Exclude {
			if elem != "" && re.MatchString(elem) {
				return true
			}
		}
	}
	return false
}

func (l *Local) isDataset(p string) bool {
	for _, re := range l.conf.Datasets {
		if re.MatchString(p) || re.MatchString(path.Base(p)) {
			return true
		}
	}
	return false
}
