package monitoring

import (
	"expvar"
	"strconv"

	"go.uber.org/atomic"
)

// Counter is an int64 gauge published through expvar, so it shows up at
// /debug/vars.
type Counter struct {
	i atomic.Int64
}

var _ expvar.Var = (*Counter)(nil)

func (c *Counter) String() string {
	return strconv.FormatInt(c.i.Load(), 10)
}

func (c *Counter) Inc() int64 { return c.i.Inc() }

func (c *Counter) Dec() int64 { return c.i.Dec() }

func (c *Counter) Add(delta int64) {
	c.i.Add(delta)
}

func (c *Counter) Set(value int64) {
	c.i.Store(value)
}

func (c *Counter) Get() int64 {
	return c.i.Load()
}

// NewCounter publishes a counter under name. If a Counter with this name is
// already published, it is returned, so components created several times in
// one process share the counter.
func NewCounter(name string) *Counter {
	if v, ok := expvar.Get(name).(*Counter); ok {
		return v
	}
	v := &Counter{}
	expvar.Publish(name, v)
	return v
}
