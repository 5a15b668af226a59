package handler

import (
	"bytes"
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/opendap/olfs/core"
	"github.com/opendap/olfs/core/bes"
	"github.com/opendap/olfs/core/catalog"
	"github.com/opendap/olfs/core/fault"
)

// ServerVersion is sent in the XDODS-Server and XOPeNDAP-Server headers.
const ServerVersion = "3.2.1"

// dapResponse is how a request suffix maps to a backend product.
type dapResponse struct {
	product     bes.Product
	contentType string
	description string
	// metadata responses are small and cacheable.
	metadata bool
	// attachment responses are downloaded as "<dataset>.<suffix>".
	attachment bool
}

var dapResponses = map[string]dapResponse{
	"dds":    {product: bes.DDS, contentType: "text/plain", description: "dods_dds", metadata: true},
	"das":    {product: bes.DAS, contentType: "text/plain", description: "dods_das", metadata: true},
	"ddx":    {product: bes.DDX, contentType: "text/xml", description: "dods_ddx", metadata: true},
	"info":   {product: bes.InfoPage, contentType: "text/html", description: "dods_description", metadata: true},
	"html":   {product: bes.HTMLForm, contentType: "text/html", description: "dods_form", metadata: true},
	"dods":   {product: bes.DODS, contentType: "application/octet-stream", description: "dods_data"},
	"ascii":  {product: bes.ASCII, contentType: "text/plain", description: "dods_ascii"},
	"asc":    {product: bes.ASCII, contentType: "text/plain", description: "dods_ascii"},
	"nc":     {product: bes.NetCDF, contentType: "application/x-netcdf", description: "dods_data", attachment: true},
	"tiff":   {product: bes.GeoTIFF, contentType: "image/tiff", description: "dods_data", attachment: true},
	"gmljp2": {product: bes.JPEG2000, contentType: "image/jp2", description: "dods_data", attachment: true},
}

func dapSuffixes() string {
	suffixes := make([]string, 0, len(dapResponses))
	for s := range dapResponses {
		suffixes = append(suffixes, "."+s)
	}
	sort.Strings(suffixes)
	return strings.Join(suffixes, ", ")
}

type DAPConfig struct {
	// CacheMetadata stores metadata responses in the response cache.
	CacheMetadata bool `config:"cache-metadata"`
}

func DefaultDAPConfig() DAPConfig {
	return DAPConfig{CacheMetadata: true}
}

// DAP serves "<dataset>.<suffix>" requests for datasets the backend can
// serve.
type DAP struct {
	base
	conf  DAPConfig
	deps  Deps
	fills singleflight.Group
	now   func() time.Time
}

func NewDAP(deps Deps, conf DAPConfig) *DAP {
	return &DAP{base: newBase("dap", deps), conf: conf, deps: deps, now: time.Now}
}

// CanHandle claims requests whose dataset part is a backend dataset. An
// unknown suffix is claimed too, so it is reported as a bad request.
func (d *DAP) CanHandle(req *core.Request) (bool, error) {
	if req.Suffix == "" {
		return false, nil
	}
	ds, err := sourceInfo(d.deps.Catalog, req, req.Dataset)
	if err != nil {
		return false, err
	}
	return ds.Exists && ds.Dataset && ds.Accessible, nil
}

// MissHint lists the supported suffixes for unclaimed requests with a suffix
// DAP does not know.
func (d *DAP) MissHint(req *core.Request) string {
	if req.Suffix == "" {
		return ""
	}
	if _, ok := dapResponses[req.Suffix]; ok {
		return ""
	}
	return "Supported DAP suffixes are: " + dapSuffixes()
}

func (d *DAP) LastModified(req *core.Request) (time.Time, error) {
	ds, err := sourceInfo(d.deps.Catalog, req, req.Dataset)
	return ds.LastModified, err
}

func (d *DAP) Handle(w http.ResponseWriter, req *core.Request) error {
	resp, ok := dapResponses[req.Suffix]
	if !ok {
		return fault.InvalidParam("suffix", "Unrecognized request suffix '.%s'. Supported suffixes are: %s",
			req.Suffix, dapSuffixes())
	}
	h := w.Header()
	h.Set("Content-Type", resp.contentType)
	h.Set("Content-Description", resp.description)
	h.Set("XDODS-Server", "dods/"+ServerVersion)
	h.Set("XOPeNDAP-Server", "olfs/"+ServerVersion)
	h.Set("XDAP", "3.2")
	if resp.attachment {
		name := req.Dataset[strings.LastIndexByte(req.Dataset, '/')+1:]
		name = strings.ReplaceAll(name, `"`, "_")
		h.Set("Content-Disposition", `attachment; filename="`+name+"."+req.Suffix+`"`)
	}

	if resp.metadata && d.conf.CacheMetadata && d.deps.Cache != nil {
		doc, err := d.cachedMetadata(req, resp.product)
		if err != nil {
			return err
		}
		_, err = w.Write(doc)
		return clientAbort(err)
	}
	return d.deps.API.GetProduct(req.Context(), resp.product, req.Dataset, req.CE, w)
}

// cachedMetadata returns the cached document, if it is not older than the
// dataset. Otherwise the document is fetched, once for concurrent requests,
// and stored.
func (d *DAP) cachedMetadata(req *core.Request, product bes.Product) ([]byte, error) {
	key := string(product) + ":" + catalog.Clean(req.Dataset) + "?" + req.CE
	ds, err := sourceInfo(d.deps.Catalog, req, req.Dataset)
	if err != nil {
		return nil, err
	}
	entry, ok, err := d.deps.Cache.Get(key)
	if err != nil {
		d.log.Warn("Response cache read failed", zap.String("key", key), zap.Error(err))
	}
	if ok && !ds.LastModified.After(entry.LastVisited) {
		cacheLookups.WithLabelValues("hit").Inc()
		return entry.Doc, nil
	}
	cacheLookups.WithLabelValues("miss").Inc()
	v, err, shared := d.fills.Do(key, func() (interface{}, error) {
		return d.fill(req.Context(), key, product, req)
	})
	if shared {
		d.log.Debug("Response cache fill shared", zap.String("key", key))
	}
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (d *DAP) fill(ctx context.Context, key string, product bes.Product, req *core.Request) ([]byte, error) {
	var buf bytes.Buffer
	if err := d.deps.API.GetProduct(ctx, product, req.Dataset, req.CE, &buf); err != nil {
		return nil, err
	}
	doc := buf.Bytes()
	if err := d.deps.Cache.Put(key, doc, d.now()); err != nil {
		d.log.Warn("Response cache write failed", zap.String("key", key), zap.Error(err))
	}
	return doc, nil
}

// Shutdown flushes the response cache.
func (d *DAP) Shutdown(context.Context) error {
	if d.deps.Cache == nil {
		return nil
	}
	return d.deps.Cache.Save()
}
