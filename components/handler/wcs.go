package handler

import (
	"context"
	"encoding/xml"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/opendap/olfs/core"
	"github.com/opendap/olfs/core/ce"
	"github.com/opendap/olfs/core/fault"
)

const (
	wcsGetCapabilities   = "GetCapabilities"
	wcsDescribeCoverage  = "DescribeCoverage"
	wcsGetCoverage       = "GetCoverage"
	wcsSupportedRequests = wcsGetCapabilities + ", " + wcsDescribeCoverage + ", " + wcsGetCoverage
)

// dataAccessSuffixes are DAP handler suffixes a coverage can be fetched
// with, by format name.
var dataAccessSuffixes = []struct {
	format string
	suffix string
}{
	{"application/x-netcdf", ".nc"},
	{"image/tiff", ".tiff"},
	{"image/jp2", ".gmljp2"},
	{"application/octet-stream", ".dods"},
	{"text/xml", ".ddx"},
}

type WCSConfig struct {
	Path      string        `config:"path" validate:"url-path"`
	Coverages []ce.Coverage `config:"coverages" validate:"dive"`
}

func DefaultWCSConfig() WCSConfig {
	return WCSConfig{Path: "/wcs"}
}

// WCS serves a key value pair encoded subset of WCS 2.0 over the coverages
// listed in config. Coverage requests are translated to backend constraint
// expressions.
type WCS struct {
	base
	conf WCSConfig
	deps Deps
}

func NewWCS(deps Deps, conf WCSConfig) *WCS {
	return &WCS{base: newBase("wcs", deps), conf: conf, deps: deps}
}

func (s *WCS) Init(context.Context) error {
	ids := map[string]bool{}
	for _, cov := range s.conf.Coverages {
		if ids[cov.ID] {
			return errors.Errorf("duplicate coverage %q", cov.ID)
		}
		ids[cov.ID] = true
	}
	s.log.Info("Coverages configured", zap.Int("count", len(ids)))
	return nil
}

func (s *WCS) CanHandle(req *core.Request) (bool, error) {
	return req.RelativeURL == s.conf.Path, nil
}

func (s *WCS) Handle(w http.ResponseWriter, req *core.Request) error {
	if service := req.Param("service"); service != "" && !strings.EqualFold(service, "WCS") {
		return fault.InvalidParam("service", "Unsupported service '%s'. Supported services are: WCS", scrubParam(service))
	}
	request := req.Param("request")
	for _, op := range []string{wcsGetCapabilities, wcsDescribeCoverage, wcsGetCoverage} {
		if strings.EqualFold(request, op) {
			coverageRequests.WithLabelValues(op).Inc()
		}
	}
	switch {
	case strings.EqualFold(request, wcsGetCoverage):
		return s.getCoverage(w, req)
	case strings.EqualFold(request, wcsDescribeCoverage):
		return s.describeCoverage(w, req)
	case strings.EqualFold(request, wcsGetCapabilities):
		return s.getCapabilities(w, req)
	case request == "":
		return fault.InvalidParam("request", "Missing request parameter. Supported requests are: %s", wcsSupportedRequests)
	}
	return fault.InvalidParam("request", "Unsupported request '%s'. Supported requests are: %s",
		scrubParam(request), wcsSupportedRequests)
}

// coverageRequest is a validated coverage selection.
type coverageRequest struct {
	cov     *ce.Coverage
	fields  []string
	subsets []ce.Subset
	scale   *ce.Scale
}

func (s *WCS) parseCoverageRequest(req *core.Request) (*coverageRequest, error) {
	id := req.Param("coverageId")
	if id == "" {
		return nil, fault.InvalidParam("coverageId", "Missing coverageId parameter. Available coverages are: %s", s.coverageIDs())
	}
	cov := s.coverage(id)
	if cov == nil {
		return nil, fault.InvalidParam("coverageId", "Unknown coverage '%s'. Available coverages are: %s",
			scrubParam(id), s.coverageIDs())
	}
	subsets, err := ce.ParseSubsets(req.Params("subset"))
	if err != nil {
		return nil, err
	}
	scale, err := ce.ParseScaleSize(req.Param("scaleSize"))
	if err != nil {
		return nil, err
	}
	var fields []string
	for _, f := range strings.Split(req.Param("rangeSubset"), ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return &coverageRequest{cov: cov, fields: fields, subsets: subsets, scale: scale}, nil
}

func (s *WCS) getCoverage(w http.ResponseWriter, req *core.Request) error {
	cr, err := s.parseCoverageRequest(req)
	if err != nil {
		return err
	}
	format, err := ce.LookupFormat(req.Param("format"))
	if err != nil {
		return err
	}
	expr, err := ce.Build(cr.cov, cr.fields, cr.subsets, cr.scale)
	if err != nil {
		return err
	}
	s.log.Debug("Coverage constraint", zap.String("coverage", cr.cov.ID), zap.String("ce", expr))
	w.Header().Set("Content-Type", format.MIME)
	w.Header().Set("Content-Disposition", format.ContentDisposition(cr.cov.ID))
	return s.deps.API.GetProduct(req.Context(), format.Product, cr.cov.Dataset, expr, w)
}

type coverageDescriptions struct {
	XMLName      xml.Name              `xml:"CoverageDescriptions"`
	Descriptions []coverageDescription `xml:"CoverageDescription"`
}

type coverageDescription struct {
	CoverageID  string          `xml:"coverageId,attr"`
	Dataset     string          `xml:"Dataset"`
	Fields      []ce.Field      `xml:"Field"`
	Coordinates []ce.Coordinate `xml:"Coordinate"`
	DataAccess  []dataAccessURL `xml:"DataAccess>URL"`
}

type dataAccessURL struct {
	Format string `xml:"format,attr"`
	URL    string `xml:",chardata"`
}

func (s *WCS) describeCoverage(w http.ResponseWriter, req *core.Request) error {
	cr, err := s.parseCoverageRequest(req)
	if err != nil {
		return err
	}
	query, err := ce.Synthesize(cr.cov, cr.fields, cr.subsets, cr.scale)
	if err != nil {
		return err
	}
	datasetURL := joinURL(req.ServiceURL(), cr.cov.Dataset)
	desc := coverageDescription{
		CoverageID:  cr.cov.ID,
		Dataset:     cr.cov.Dataset,
		Fields:      cr.cov.Fields,
		Coordinates: cr.cov.Coordinates,
	}
	for _, da := range dataAccessSuffixes {
		desc.DataAccess = append(desc.DataAccess, dataAccessURL{
			Format: da.format,
			URL:    datasetURL + da.suffix + "?" + query,
		})
	}
	return writeXML(w, coverageDescriptions{Descriptions: []coverageDescription{desc}})
}

type capabilities struct {
	XMLName   xml.Name          `xml:"Capabilities"`
	Version   string            `xml:"version,attr"`
	Requests  []string          `xml:"OperationsMetadata>Operation"`
	Formats   []string          `xml:"ServiceMetadata>formatSupported"`
	Coverages []coverageSummary `xml:"Contents>CoverageSummary"`
}

type coverageSummary struct {
	CoverageID string `xml:"CoverageId"`
}

func (s *WCS) getCapabilities(w http.ResponseWriter, _ *core.Request) error {
	caps := capabilities{
		Version:  "2.0.1",
		Requests: []string{wcsGetCapabilities, wcsDescribeCoverage, wcsGetCoverage},
		Formats:  ce.FormatNames(),
	}
	for _, cov := range s.conf.Coverages {
		caps.Coverages = append(caps.Coverages, coverageSummary{CoverageID: cov.ID})
	}
	return writeXML(w, caps)
}

func writeXML(w http.ResponseWriter, v interface{}) error {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	if _, err := w.Write([]byte(xml.Header)); err != nil {
		return clientAbort(err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return clientAbort(enc.Encode(v))
}

func (s *WCS) coverage(id string) *ce.Coverage {
	for i := range s.conf.Coverages {
		if s.conf.Coverages[i].ID == id {
			return &s.conf.Coverages[i]
		}
	}
	return nil
}

func (s *WCS) coverageIDs() string {
	ids := make([]string, len(s.conf.Coverages))
	for i, cov := range s.conf.Coverages {
		ids[i] = cov.ID
	}
	return strings.Join(ids, ", ")
}

// scrubParam cuts echoed request values to a sane printable size.
func scrubParam(v string) string {
	const maxLen = 64
	v = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, v)
	if len(v) > maxLen {
		v = v[:maxLen] + "..."
	}
	return v
}
