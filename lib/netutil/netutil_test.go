package netutil

import (
	"context"
	"net"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/opendap/olfs/lib/testutil"
)

var _ = Describe("DNS caching dialer", func() {
	var (
		listener net.Listener
		cache    *SimpleDNSCache
		dialed   []string
		dialer   DialerFunc
	)
	BeforeEach(func() {
		var err error
		listener, err = net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		cache = &SimpleDNSCache{}
		dialed = nil
		var d net.Dialer
		dialer = func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialed = append(dialed, addr)
			return d.DialContext(ctx, network, addr)
		}
	})
	AfterEach(func() {
		listener.Close()
	})

	It("remembers resolved address", func() {
		_, port, _ := net.SplitHostPort(listener.Addr().String())
		addr := net.JoinHostPort("localhost", port)
		caching := NewDNSCachingDialer(dialer, cache)

		conn, err := caching.DialContext(context.Background(), "tcp", addr)
		Expect(err).NotTo(HaveOccurred())
		conn.Close()
		resolved, ok := cache.Get(addr)
		Expect(ok).To(BeTrue())

		conn, err = caching.DialContext(context.Background(), "tcp", addr)
		Expect(err).NotTo(HaveOccurred())
		conn.Close()
		Expect(dialed).To(Equal([]string{addr, resolved}))
	})

	It("forgets address that failed", func() {
		const addr = "bes.example.org:10022"
		cache.Add(addr, "127.0.0.1:1")
		failing := DialerFunc(func(ctx context.Context, network, addr string) (net.Conn, error) {
			return nil, errors.New("connection refused")
		})
		_, err := NewDNSCachingDialer(failing, cache).DialContext(context.Background(), "tcp", addr)
		Expect(err).To(HaveOccurred())
		_, ok := cache.Get(addr)
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("retry dialer", func() {
	var conf RetryConfig
	BeforeEach(func() {
		conf = RetryConfig{Attempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	})

	It("retries until success", func() {
		var calls int
		flaky := DialerFunc(func(ctx context.Context, network, addr string) (net.Conn, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("connection refused")
			}
			c, _ := net.Pipe()
			return c, nil
		})
		conn, err := NewRetryDialer(flaky, conf, testutil.NewLogger()).DialContext(context.Background(), "tcp", "x:1")
		Expect(err).NotTo(HaveOccurred())
		conn.Close()
		Expect(calls).To(Equal(3))
	})

	It("gives up after attempts", func() {
		var calls int
		failing := DialerFunc(func(ctx context.Context, network, addr string) (net.Conn, error) {
			calls++
			return nil, errors.New("connection refused")
		})
		_, err := NewRetryDialer(failing, conf, testutil.NewLogger()).DialContext(context.Background(), "tcp", "x:1")
		Expect(err).To(MatchError("connection refused"))
		Expect(calls).To(Equal(3))
	})

	It("dials once without retries", func() {
		var calls int
		failing := DialerFunc(func(ctx context.Context, network, addr string) (net.Conn, error) {
			calls++
			return nil, errors.New("connection refused")
		})
		conf.Attempts = 0
		_, err := NewRetryDialer(failing, conf, testutil.NewLogger()).DialContext(context.Background(), "tcp", "x:1")
		Expect(err).To(HaveOccurred())
		Expect(calls).To(Equal(1))
	})
})
