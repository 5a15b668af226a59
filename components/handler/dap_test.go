package handler

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendap/olfs/core/bes/bestest"
)

func dapEnv(t *testing.T) *testEnv {
	return newTestEnv(t, map[string]bestest.Response{
		"get das":    {Data: []byte("Attributes {\n}\n")},
		"get dds":    {Data: []byte("Dataset {\n} fnoc1.nc;\n")},
		"get dods":   {Data: []byte("Dataset {} fnoc1.nc;\nData:\n\x00\x01")},
		"get netcdf": {Data: []byte("CDF\x01")},
	}, map[string]string{
		"nc/fnoc1.nc":   "CDF",
		"nc/README.txt": "readme",
	})
}

func TestDAPAttributesScript(t *testing.T) {
	env := dapEnv(t)
	rec := get(t, NewDAP(env.deps, DefaultDAPConfig()), "/opendap/nc/fnoc1.nc.das")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Attributes {\n}\n", rec.Body.String())
	assert.Equal(t, "dods_das", rec.Header().Get("Content-Description"))
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))

	require.Len(t, sessions(env), 1)
	assert.Equal(t, []string{
		"set container in catalog values nc/fnoc1.nc, nc/fnoc1.nc;",
		"define d1 as nc/fnoc1.nc;",
		"get das for d1;",
	}, sessions(env)[0].Commands)
}

func TestDAPConstraintPassed(t *testing.T) {
	env := dapEnv(t)
	rec := get(t, NewDAP(env.deps, DefaultDAPConfig()), "/opendap/nc/fnoc1.nc.dods?u%5B0:1%5D")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	require.Len(t, sessions(env), 1)
	assert.Equal(t, `define d1 as nc/fnoc1.nc with nc/fnoc1.nc.constraint="u[0:1]";`, sessions(env)[0].Commands[1])
}

func TestDAPNetCDFAttachment(t *testing.T) {
	env := dapEnv(t)
	rec := get(t, NewDAP(env.deps, DefaultDAPConfig()), "/opendap/nc/fnoc1.nc.nc")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="fnoc1.nc.nc"`, rec.Header().Get("Content-Disposition"))
}

func TestDAPUnknownSuffix(t *testing.T) {
	env := dapEnv(t)
	rec := get(t, NewDAP(env.deps, DefaultDAPConfig()), "/opendap/nc/fnoc1.nc.xyz")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), ".das")
	assert.Contains(t, rec.Body.String(), ".dods")
	assert.Empty(t, sessions(env))
}

func TestDAPDoesNotClaim(t *testing.T) {
	env := dapEnv(t)
	d := NewDAP(env.deps, DefaultDAPConfig())
	for _, target := range []string{
		"/opendap/nc/fnoc1.nc",
		"/opendap/nc/README.txt",
		"/opendap/nc/README.txt.das",
		"/opendap/nc/missing.nc.das",
		"/opendap/nc/",
	} {
		rec := get(t, d, target)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
	}
	assert.Empty(t, sessions(env))
}

func TestDAPMissListsSuffixes(t *testing.T) {
	env := dapEnv(t)
	d := NewDAP(env.deps, DefaultDAPConfig())
	rec := get(t, d, "/opendap/nope.xyz")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Supported DAP suffixes are: ")
	assert.Contains(t, rec.Body.String(), ".dods")

	rec = get(t, d, "/opendap/nc/missing.nc.das")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Supported DAP suffixes")
	assert.Empty(t, sessions(env))
}

func TestDAPMetadataCached(t *testing.T) {
	env := dapEnv(t)
	d := NewDAP(env.deps, DefaultDAPConfig())
	for i := 0; i < 3; i++ {
		rec := get(t, d, "/opendap/nc/fnoc1.nc.dds")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Dataset {\n} fnoc1.nc;\n", rec.Body.String())
	}
	assert.Len(t, sessions(env), 1)
	keys, err := env.deps.Cache.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"dds:/nc/fnoc1.nc?"}, keys)

	get(t, d, "/opendap/nc/fnoc1.nc.dds?x")
	assert.Len(t, sessions(env), 2)
}

func TestDAPCacheRevalidated(t *testing.T) {
	env := dapEnv(t)
	d := NewDAP(env.deps, DefaultDAPConfig())
	require.NoError(t, env.deps.Cache.Put("das:/nc/fnoc1.nc?", []byte("stale"), testTime.Add(-time.Hour)))
	rec := get(t, d, "/opendap/nc/fnoc1.nc.das")
	assert.Equal(t, "Attributes {\n}\n", rec.Body.String())
	assert.Len(t, sessions(env), 1)

	e, ok, err := env.deps.Cache.Get("das:/nc/fnoc1.nc?")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Attributes {\n}\n", string(e.Doc))
}

func TestDAPConcurrentFillsShared(t *testing.T) {
	env := dapEnv(t)
	d := NewDAP(env.deps, DefaultDAPConfig())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := get(t, d, "/opendap/nc/fnoc1.nc.dds")
			assert.Equal(t, http.StatusOK, rec.Code)
		}()
	}
	wg.Wait()
	assert.NotEmpty(t, sessions(env))
	assert.LessOrEqual(t, len(sessions(env)), 8)
}

func TestDAPBackendException(t *testing.T) {
	env := newTestEnv(t, map[string]bestest.Response{
		"get dds": {Error: true, Data: bestest.ErrorDoc(
			bestest.Exception("BESSyntaxUserError", "Constraint expression parse error", "ce_parser"))},
	}, map[string]string{"nc/fnoc1.nc": "CDF"})
	rec := get(t, NewDAP(env.deps, DefaultDAPConfig()), "/opendap/nc/fnoc1.nc.dds?bad(")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Constraint expression parse error")
	keys, err := env.deps.Cache.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestDAPLastModified(t *testing.T) {
	env := dapEnv(t)
	d := NewDAP(env.deps, DefaultDAPConfig())
	rec := get(t, d, "/opendap/nc/fnoc1.nc.das")
	assert.Equal(t, testTime.Format(http.TimeFormat), rec.Header().Get("Last-Modified"))
}
