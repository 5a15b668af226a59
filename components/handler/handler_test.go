package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opendap/olfs/core"
	"github.com/opendap/olfs/core/bes"
	"github.com/opendap/olfs/core/bes/bestest"
	"github.com/opendap/olfs/core/catalog"
	"github.com/opendap/olfs/core/dispatch"
	"github.com/opendap/olfs/core/respcache"
	"github.com/opendap/olfs/lib/testutil"
)

const dataRoot = "/srv/hyrax/data"

var testTime = time.Date(2021, 6, 7, 8, 9, 10, 0, time.UTC)

type testEnv struct {
	server *bestest.Server
	fs     afero.Fs
	deps   Deps
}

// newTestEnv starts a fake backend answering replies and a data tree with
// files, relative to the data root.
func newTestEnv(t *testing.T, replies map[string]bestest.Response, files map[string]string) *testEnv {
	server, err := bestest.NewServer(bestest.Replies(replies))
	require.NoError(t, err)
	t.Cleanup(server.Close)

	settings := &bes.Settings{}
	require.NoError(t, settings.Configure(server.Host, server.Port))
	conf := bes.DefaultClientConfig()
	conf.Timeout = 2 * time.Second
	conf.ExitTimeout = 100 * time.Millisecond
	conf.Retry.Attempts = 1
	conf.DNSCache = false
	api := bes.NewAPI(bes.NewClient(conf, settings, nil, zap.NewNop()), zap.NewNop())

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(dataRoot, 0755))
	abs := map[string]string{}
	for name, content := range files {
		abs[dataRoot+"/"+name] = content
	}
	testutil.WriteFiles(t, fs, abs)
	for name := range abs {
		require.NoError(t, fs.Chtimes(name, testTime, testTime))
	}

	catConf := catalog.DefaultLocalConfig()
	catConf.Root = dataRoot
	return &testEnv{
		server: server,
		fs:     fs,
		deps: Deps{
			Log:     zap.NewNop(),
			API:     api,
			Catalog: catalog.NewLocal(fs, catConf),
			Cache:   respcache.NewMemory(respcache.DefaultMemoryConfig()),
			Fs:      fs,
		},
	}
}

// serve dispatches a request to h through the engine, so faults are
// reported as they are in production.
func serve(t *testing.T, h core.Handler, method, target string) *httptest.ResponseRecorder {
	e := dispatch.New(zap.NewNop(), dispatch.DefaultConfig(), []core.Handler{h}, nil)
	require.NoError(t, e.Init(context.Background()))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func get(t *testing.T, h core.Handler, target string) *httptest.ResponseRecorder {
	return serve(t, h, http.MethodGet, target)
}

func sessions(env *testEnv) []bestest.Session {
	return env.server.Sessions()
}
