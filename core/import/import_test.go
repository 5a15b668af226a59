package coreimport

import (
	"context"
	"net/http/httptest"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/mock"

	"github.com/opendap/olfs/components/handler"
	"github.com/opendap/olfs/core"
	"github.com/opendap/olfs/core/catalog"
	"github.com/opendap/olfs/core/dispatch"
	coremock "github.com/opendap/olfs/core/mocks"
	"github.com/opendap/olfs/core/register"
	"github.com/opendap/olfs/core/respcache"
	"github.com/opendap/olfs/lib/testutil"
)

var _ = Describe("built-in plugins", func() {
	DescribeTable("handler registered",
		func(name string) {
			Expect(register.Handlers.Lookup(name)).To(BeTrue())
		},
		Entry("version", "version"),
		Entry("bot-blocker", "bot-blocker"),
		Entry("thredds", "thredds"),
		Entry("wcs", "wcs"),
		Entry("dap", "dap"),
		Entry("directory", "directory"),
		Entry("file", "file"),
	)

	It("stores and catalogs registered", func() {
		Expect(register.Stores.Names()).To(Equal([]string{"bolt", "memory", "sql"}))
		Expect(register.CatalogTypes.Names()).To(Equal([]string{"bes", "local"}))
	})

	It("creates handlers in config order", func() {
		handlers, err := NewHandlers([]map[string]interface{}{
			testutil.ParseYAML(`
type: version
path: /about/version
`),
			{"type": "dap", "cache-metadata": false},
			testutil.ParseYAML(`
type: wcs
coverages:
  - id: sst
    dataset: nc/sst.nc
    fields:
      - name: sst
    coordinates:
      - name: lat
      - name: lon
`),
			{"type": "file", "root": "/srv/data"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(handlers).To(HaveLen(4))
		Expect(handlers[0]).To(BeAssignableToTypeOf(&handler.Version{}))
		Expect(handlers[1]).To(BeAssignableToTypeOf(&handler.DAP{}))
		Expect(handlers[2]).To(BeAssignableToTypeOf(&handler.WCS{}))
		Expect(handlers[3]).To(BeAssignableToTypeOf(&handler.File{}))
		Expect(handlers[2].Init(context.Background())).To(Succeed())
	})

	It("created handlers are selected in config order", func() {
		handlers, err := NewHandlers([]map[string]interface{}{{"type": "version"}})
		Expect(err).NotTo(HaveOccurred())
		before, after := &coremock.Handler{}, &coremock.Handler{}
		before.On("CanHandle", mock.Anything).Return(false, nil)
		chain := []core.Handler{before, handlers[0], after}

		req := core.NewRequest(httptest.NewRequest("GET", "/opendap/version", nil), "/opendap")
		h, err := dispatch.Select(req, chain)
		Expect(err).NotTo(HaveOccurred())
		Expect(h).To(BeIdenticalTo(handlers[0]))
		testutil.AssertExpectations(before, after)
		testutil.AssertNotCalled(after, "CanHandle")
	})

	It("rejects invalid handler config", func() {
		_, err := NewHandlers([]map[string]interface{}{{"type": "file"}})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("handler 0"))

		_, err = NewHandlers([]map[string]interface{}{{"type": "dap", "no-such-option": 1}})
		Expect(err).To(HaveOccurred())

		_, err = NewHandlers([]map[string]interface{}{{"type": "gopher"}})
		Expect(err).To(MatchError(ContainSubstring("registered: bot-blocker, dap")))
	})

	It("creates memory store", func() {
		_, s, err := register.Stores.New(map[string]interface{}{"type": "memory", "max-entries": 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeAssignableToTypeOf(&respcache.Memory{}))
		Expect(s.Close()).To(Succeed())
	})

	It("creates local catalog over the import fs", func() {
		Expect(testFs.MkdirAll("/srv/data/nc", 0755)).To(Succeed())
		_, src, err := register.CatalogTypes.New(map[string]interface{}{"type": "local", "root": "/srv/data"})
		Expect(err).NotTo(HaveOccurred())
		ds, err := src.Info(context.Background(), "/nc")
		Expect(err).NotTo(HaveOccurred())
		Expect(ds.Exists).To(BeTrue())
		Expect(ds.Collection).To(BeTrue())
	})

	It("creates bes catalog", func() {
		_, src, err := register.CatalogTypes.New(map[string]interface{}{"type": "bes"})
		Expect(err).NotTo(HaveOccurred())
		Expect(src).To(BeAssignableToTypeOf(&catalog.BES{}))
	})
})
