package plugin

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	"github.com/opendap/olfs/lib/testutil"
)

type testPlugin interface{ Value() string }

type testPluginImpl struct{ value string }

func (p *testPluginImpl) Value() string { return p.value }

type testConfig struct {
	Value string `config:"value" validate:"required"`
	Count int    `config:"count" validate:"min=1"`
}

func newTestPlugin(conf testConfig) (testPlugin, error) {
	return &testPluginImpl{conf.Value}, nil
}

func defaultTestConfig() testConfig { return testConfig{Value: "default", Count: 1} }

var _ = Describe("registry", func() {
	var r *Registry[testPlugin]
	BeforeEach(func() {
		r = NewRegistry[testPlugin]("test")
		Register(r, "impl", newTestPlugin, defaultTestConfig)
	})

	It("creates plugin with default config", func() {
		name, p, err := r.New(testutil.ParseYAML(`type: impl`))
		Expect(err).NotTo(HaveOccurred())
		Expect(name).To(Equal("impl"))
		Expect(p.Value()).To(Equal("default"))
	})

	It("decodes config over defaults", func() {
		_, p, err := r.New(map[interface{}]interface{}{"Type": "impl", "value": "conf"})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Value()).To(Equal("conf"))
	})

	It("validates config", func() {
		_, _, err := r.New(map[string]interface{}{"type": "impl", "count": 0})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring(`test "impl" config`))
	})

	It("rejects unknown fields", func() {
		_, _, err := r.New(map[string]interface{}{"type": "impl", "colour": "red"})
		Expect(err).To(HaveOccurred())
	})

	It("fails on unknown name listing registered", func() {
		Register(r, "other", newTestPlugin, nil)
		_, _, err := r.New(map[string]interface{}{"type": "nope"})
		Expect(err).To(MatchError(`unknown test "nope"; registered: impl, other`))
	})

	It("panics on duplicate registration", func() {
		Expect(func() { Register(r, "impl", newTestPlugin, nil) }).To(Panic())
	})

	DescribeTable("name key errors",
		func(conf interface{}) {
			_, _, err := r.New(conf)
			Expect(err).To(HaveOccurred())
		},
		Entry("no type", map[string]interface{}{"value": "x"}),
		Entry("non string type", map[string]interface{}{"type": 1}),
		Entry("two type keys", map[string]interface{}{"type": "impl", "TYPE": "impl"}),
		Entry("not a map", "impl"),
	)
})
