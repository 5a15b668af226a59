package handler

import (
	"encoding/xml"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/opendap/olfs/core"
	"github.com/opendap/olfs/core/bes"
	"github.com/opendap/olfs/core/catalog"
)

const (
	threddsCatalogFile = "catalog.xml"
	threddsNS          = "http://www.unidata.ucar.edu/namespaces/thredds/InvCatalog/v1.0"
	xlinkNS            = "http://www.w3.org/1999/xlink"
)

type threddsCatalog struct {
	XMLName xml.Name         `xml:"catalog"`
	XMLNS   string           `xml:"xmlns,attr"`
	XLink   string           `xml:"xmlns:xlink,attr"`
	Name    string           `xml:"name,attr"`
	Version string           `xml:"version,attr"`
	Service threddsService   `xml:"service"`
	Dataset threddsContainer `xml:"dataset"`
}

type threddsService struct {
	Name        string `xml:"name,attr"`
	ServiceType string `xml:"serviceType,attr"`
	Base        string `xml:"base,attr"`
}

type threddsContainer struct {
	Name        string               `xml:"name,attr"`
	ID          string               `xml:"ID,attr"`
	CatalogRefs []threddsCatalogRef  `xml:"catalogRef"`
	Datasets    []threddsDatasetLeaf `xml:"dataset"`
}

type threddsCatalogRef struct {
	Href  string `xml:"xlink:href,attr"`
	Title string `xml:"xlink:title,attr"`
	Type  string `xml:"xlink:type,attr"`
	Name  string `xml:"name,attr"`
	ID    string `xml:"ID,attr"`
}

type threddsDatasetLeaf struct {
	Name     string         `xml:"name,attr"`
	ID       string         `xml:"ID,attr"`
	DataSize *threddsSize   `xml:"dataSize,omitempty"`
	Date     *threddsDate   `xml:"date,omitempty"`
	Access   *threddsAccess `xml:"access,omitempty"`
}

type threddsSize struct {
	Units string `xml:"units,attr"`
	Value int64  `xml:",chardata"`
}

type threddsDate struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type threddsAccess struct {
	ServiceName string `xml:"serviceName,attr"`
	URLPath     string `xml:"urlPath,attr"`
}

type ThreddsConfig struct {
	// Prefix is stripped from the request path before the catalog lookup,
	// like "/thredds".
	Prefix string `config:"prefix" validate:"omitempty,url-path"`
}

func DefaultThreddsConfig() ThreddsConfig {
	return ThreddsConfig{}
}

// Thredds serves THREDDS catalogs built from backend catalog listings for
// "<collection>/catalog.xml" requests.
type Thredds struct {
	base
	conf ThreddsConfig
	deps Deps
}

func NewThredds(deps Deps, conf ThreddsConfig) *Thredds {
	conf.Prefix = strings.TrimSuffix(conf.Prefix, "/")
	return &Thredds{base: newBase("thredds", deps), conf: conf, deps: deps}
}

func (t *Thredds) catalogPath(rel string) (string, bool) {
	if path.Base(rel) != threddsCatalogFile {
		return "", false
	}
	if t.conf.Prefix != "" {
		if !strings.HasPrefix(rel, t.conf.Prefix+"/") {
			return "", false
		}
		rel = strings.TrimPrefix(rel, t.conf.Prefix)
	}
	return catalog.Clean(path.Dir(rel)), true
}

func (t *Thredds) CanHandle(req *core.Request) (bool, error) {
	p, ok := t.catalogPath(req.RelativeURL)
	if !ok {
		return false, nil
	}
	ds, err := sourceInfo(t.deps.Catalog, req, p)
	if err != nil {
		return false, err
	}
	return ds.Exists && ds.Collection && ds.Accessible, nil
}

func (t *Thredds) LastModified(req *core.Request) (time.Time, error) {
	p, _ := t.catalogPath(req.RelativeURL)
	ds, err := sourceInfo(t.deps.Catalog, req, p)
	return ds.LastModified, err
}

func (t *Thredds) Handle(w http.ResponseWriter, req *core.Request) error {
	p, _ := t.catalogPath(req.RelativeURL)
	coll, err := t.deps.API.ShowCatalog(req.Context(), p)
	if err != nil {
		return err
	}
	doc := t.build(req, p, coll)
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	if _, err := w.Write([]byte(xml.Header)); err != nil {
		return clientAbort(err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return clientAbort(enc.Encode(doc))
}

func (t *Thredds) build(req *core.Request, dir string, coll *bes.Dataset) *threddsCatalog {
	base := req.ServicePrefix + "/"
	doc := &threddsCatalog{
		XMLNS:   threddsNS,
		XLink:   xlinkNS,
		Name:    "Hyrax: THREDDS Catalog of " + dir,
		Version: "1.0.1",
		Service: threddsService{Name: "dap", ServiceType: "OPeNDAP", Base: base},
		Dataset: threddsContainer{Name: dir, ID: dirURL(base, dir)},
	}
	for _, child := range coll.Children {
		name := path.Base(child.Name)
		childPath := path.Join(dir, name)
		if info, err := sourceInfo(t.deps.Catalog, req, childPath); err == nil && info.Exists && !info.Accessible {
			continue
		}
		if child.Collection {
			doc.Dataset.CatalogRefs = append(doc.Dataset.CatalogRefs, threddsCatalogRef{
				Href:  name + "/" + threddsCatalogFile,
				Title: name,
				Type:  "simple",
				Name:  name,
				ID:    dirURL(base, childPath),
			})
			continue
		}
		leaf := threddsDatasetLeaf{
			Name:     name,
			ID:       joinURL(base, childPath),
			DataSize: &threddsSize{Units: "bytes", Value: child.Size},
			Date:     &threddsDate{Type: "modified", Value: child.LastModified.UTC().Format(time.RFC3339)},
		}
		if child.Data {
			leaf.Access = &threddsAccess{ServiceName: "dap", URLPath: strings.TrimPrefix(childPath, "/")}
		}
		doc.Dataset.Datasets = append(doc.Dataset.Datasets, leaf)
	}
	return doc
}

func joinURL(base, p string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(p, "/")
}

func dirURL(base, p string) string {
	return strings.TrimSuffix(joinURL(base, p), "/") + "/"
}
