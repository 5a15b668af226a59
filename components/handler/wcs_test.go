package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/antchfx/xmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendap/olfs/core/bes/bestest"
	"github.com/opendap/olfs/core/ce"
)

func testWCSConfig() WCSConfig {
	conf := DefaultWCSConfig()
	conf.Coverages = []ce.Coverage{{
		ID:      "sst",
		Dataset: "nc/sst.mnmean.nc",
		Fields:  []ce.Field{{Name: "sst"}},
		Coordinates: []ce.Coordinate{
			{Name: "time"}, {Name: "lat"}, {Name: "lon"},
		},
	}}
	return conf
}

func wcsEnv(t *testing.T) *testEnv {
	return newTestEnv(t, map[string]bestest.Response{
		"get netcdf":  {Data: []byte("CDF\x01coverage")},
		"get geotiff": {Data: []byte("II*\x00")},
	}, map[string]string{"nc/sst.mnmean.nc": "CDF"})
}

func wcsURL(params ...string) string {
	v := url.Values{}
	for i := 0; i < len(params); i += 2 {
		v.Add(params[i], params[i+1])
	}
	return "http://example.org/opendap/wcs?" + v.Encode()
}

func TestWCSGetCoverage(t *testing.T) {
	env := wcsEnv(t)
	rec := get(t, NewWCS(env.deps, testWCSConfig()), wcsURL(
		"service", "WCS", "request", "GetCoverage", "coverageId", "sst",
		"subset", "lat(10,20)", "subset", "time[3]"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "CDF\x01coverage", rec.Body.String())
	assert.Equal(t, "application/x-netcdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="sst.nc"`, rec.Header().Get("Content-Disposition"))

	require.Len(t, sessions(env), 1)
	assert.Equal(t, []string{
		"set container in catalog values nc/sst.mnmean.nc, nc/sst.mnmean.nc;",
		`define d1 as nc/sst.mnmean.nc with nc/sst.mnmean.nc.constraint="grid(sst,10<=lat<=20),sst[3][*][*]";`,
		"get netcdf for d1;",
	}, sessions(env)[0].Commands)
}

func TestWCSGetCoverageFormat(t *testing.T) {
	env := wcsEnv(t)
	rec := get(t, NewWCS(env.deps, testWCSConfig()), wcsURL(
		"REQUEST", "getcoverage", "COVERAGEID", "sst", "FORMAT", "image/tiff"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/tiff", rec.Header().Get("Content-Type"))
	assert.Equal(t, "get geotiff for d1;", sessions(env)[0].Commands[2])
	assert.Equal(t, "define d1 as nc/sst.mnmean.nc with nc/sst.mnmean.nc.constraint=\"sst\";", sessions(env)[0].Commands[1])
}

func TestWCSValidationBeforeBackend(t *testing.T) {
	tests := []struct {
		name   string
		params []string
		want   []string
	}{
		{"unknown request", []string{"request", "Transaction"}, []string{"GetCoverage", "DescribeCoverage"}},
		{"missing request", nil, []string{"GetCoverage"}},
		{"unknown service", []string{"service", "WMS", "request", "GetCoverage"}, []string{"WCS"}},
		{"unknown coverage", []string{"request", "GetCoverage", "coverageId", "chl"}, []string{"sst"}},
		{"unknown dimension", []string{"request", "GetCoverage", "coverageId", "sst", "subset", "depth(0,5)"},
			[]string{"wcs:dimension", "time", "lat", "lon"}},
		{"unknown format", []string{"request", "GetCoverage", "coverageId", "sst", "format", "text/csv"},
			[]string{"image/tiff", "application/x-netcdf"}},
		{"bad subset", []string{"request", "GetCoverage", "coverageId", "sst", "subset", "lat"}, []string{"subset"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := wcsEnv(t)
			rec := get(t, NewWCS(env.deps, testWCSConfig()), wcsURL(tt.params...))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			for _, want := range tt.want {
				assert.Contains(t, rec.Body.String(), want)
			}
			assert.Empty(t, sessions(env))
		})
	}
}

func TestWCSDescribeCoverage(t *testing.T) {
	env := wcsEnv(t)
	rec := get(t, NewWCS(env.deps, testWCSConfig()), wcsURL(
		"request", "DescribeCoverage", "coverageId", "sst", "subset", "lat[2:5]"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, sessions(env))

	doc, err := xmlquery.Parse(strings.NewReader(rec.Body.String()))
	require.NoError(t, err)
	desc := xmlquery.FindOne(doc, "//CoverageDescription")
	require.NotNil(t, desc)
	assert.Equal(t, "sst", desc.SelectAttr("coverageId"))
	urls := xmlquery.Find(doc, "//DataAccess/URL")
	require.Len(t, urls, 5)
	enc := url.QueryEscape("sst[*][2:5][*]")
	assert.Equal(t, "http://example.org/opendap/nc/sst.mnmean.nc.nc?"+enc, urls[0].InnerText())
	assert.Equal(t, "application/x-netcdf", urls[0].SelectAttr("format"))
	for i, suffix := range []string{".nc", ".tiff", ".gmljp2", ".dods", ".ddx"} {
		assert.Contains(t, urls[i].InnerText(), ".nc"+suffix+"?")
	}
}

func TestWCSGetCapabilities(t *testing.T) {
	env := wcsEnv(t)
	rec := get(t, NewWCS(env.deps, testWCSConfig()), wcsURL("request", "GetCapabilities"))
	require.Equal(t, http.StatusOK, rec.Code)
	doc, err := xmlquery.Parse(strings.NewReader(rec.Body.String()))
	require.NoError(t, err)
	assert.Equal(t, "sst", xmlquery.FindOne(doc, "//CoverageSummary/CoverageId").InnerText())
	assert.Len(t, xmlquery.Find(doc, "//Operation"), 3)
}

func TestWCSInitRejectsDuplicates(t *testing.T) {
	env := wcsEnv(t)
	conf := testWCSConfig()
	conf.Coverages = append(conf.Coverages, conf.Coverages[0])
	assert.Error(t, NewWCS(env.deps, conf).Init(context.Background()))
}

func TestWCSOnlyOwnPath(t *testing.T) {
	env := wcsEnv(t)
	rec := get(t, NewWCS(env.deps, testWCSConfig()), "/opendap/wcs/other")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
