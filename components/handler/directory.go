package handler

import (
	"html/template"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/opendap/olfs/core"
	"github.com/opendap/olfs/core/bes"
	"github.com/opendap/olfs/core/catalog"
)

const contentsPage = "contents.html"

var directoryPage = template.Must(template.New("directory").Parse(`<!DOCTYPE html>
<html>
<head><title>OPeNDAP Server Dataset Index of {{.Path}}</title></head>
<body>
<h1>Contents of {{.Path}}</h1>
<table>
<tr><th>Name</th><th>Last Modified</th><th>Size</th><th>DAP Response Links</th></tr>
{{- if ne .Path "/"}}
<tr><td><a href="../{{.Page}}">Parent Directory/</a></td><td></td><td></td><td></td></tr>
{{- end}}
{{- range .Entries}}
<tr>
{{- if .Collection}}
<td><a href="{{.Name}}/{{$.Page}}">{{.Name}}/</a></td>
{{- else if .Data}}
<td><a href="{{.Name}}.html">{{.Name}}</a></td>
{{- else}}
<td><a href="{{.Name}}">{{.Name}}</a></td>
{{- end}}
<td>{{.LastModified}}</td>
<td>{{if not .Collection}}{{.Size}}{{end}}</td>
<td>{{if .Data}}<a href="{{.Name}}.ddx">ddx</a> <a href="{{.Name}}.dds">dds</a> <a href="{{.Name}}.das">das</a> <a href="{{.Name}}.info">info</a> <a href="{{.Name}}.html">html</a>{{end}}</td>
</tr>
{{- end}}
</table>
<p><a href="{{.VersionURL}}">OLFS {{.ServerVersion}}</a></p>
</body>
</html>
`))

type directoryEntry struct {
	Name         string
	Collection   bool
	Data         bool
	Size         int64
	LastModified string
}

type directoryPageData struct {
	Path          string
	Page          string
	Entries       []directoryEntry
	VersionURL    string
	ServerVersion string
}

type DirectoryConfig struct {
	// VersionPath is linked from the page footer.
	VersionPath string `config:"version-path" validate:"url-path"`
}

func DefaultDirectoryConfig() DirectoryConfig {
	return DirectoryConfig{VersionPath: "/version"}
}

// Directory serves HTML listings of catalog collections for paths ending in
// "/" or "contents.html".
type Directory struct {
	base
	conf DirectoryConfig
	deps Deps
}

func NewDirectory(deps Deps, conf DirectoryConfig) *Directory {
	return &Directory{base: newBase("directory", deps), conf: conf, deps: deps}
}

// collectionPath returns catalog path of a directory request.
func collectionPath(rel string) (string, bool) {
	switch {
	case strings.HasSuffix(rel, "/"):
		return catalog.Clean(rel), true
	case path.Base(rel) == contentsPage:
		return catalog.Clean(path.Dir(rel)), true
	}
	return "", false
}

func (d *Directory) CanHandle(req *core.Request) (bool, error) {
	p, ok := collectionPath(req.RelativeURL)
	if !ok {
		return false, nil
	}
	ds, err := sourceInfo(d.deps.Catalog, req, p)
	if err != nil {
		return false, err
	}
	return ds.Exists && ds.Collection && ds.Accessible, nil
}

func (d *Directory) LastModified(req *core.Request) (time.Time, error) {
	p, _ := collectionPath(req.RelativeURL)
	ds, err := sourceInfo(d.deps.Catalog, req, p)
	return ds.LastModified, err
}

func (d *Directory) Handle(w http.ResponseWriter, req *core.Request) error {
	p, _ := collectionPath(req.RelativeURL)
	coll, err := d.deps.API.ShowCatalog(req.Context(), p)
	if err != nil {
		return err
	}
	data := directoryPageData{
		Path:          p,
		Page:          contentsPage,
		VersionURL:    req.ServicePrefix + d.conf.VersionPath,
		ServerVersion: ServerVersion,
	}
	for _, child := range coll.Children {
		if d.hidden(req, p, child) {
			continue
		}
		data.Entries = append(data.Entries, directoryEntry{
			Name:         path.Base(child.Name),
			Collection:   child.Collection,
			Data:         child.Data,
			Size:         child.Size,
			LastModified: child.LastModified.UTC().Format("2006-01-02T15:04:05"),
		})
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return clientAbort(directoryPage.Execute(w, data))
}

// hidden reports whether the catalog policy hides child from listings.
func (d *Directory) hidden(req *core.Request, dir string, child *bes.Dataset) bool {
	ds, err := sourceInfo(d.deps.Catalog, req, path.Join(dir, path.Base(child.Name)))
	return err == nil && ds.Exists && !ds.Accessible
}
