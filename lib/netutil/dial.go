package netutil

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

//go:generate mockery -name=Dialer -case=underscore -outpkg=netmock

type Dialer interface {
	DialContext(ctx context.Context, net, addr string) (net.Conn, error)
}

var _ Dialer = &net.Dialer{}

type DialerFunc func(ctx context.Context, network, address string) (net.Conn, error)

func (f DialerFunc) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return f(ctx, network, address)
}

// NewDNSCachingDialer returns dialer that remembers remote address on first
// successful dial and uses it afterwards. A failed dial to the remembered
// address drops it, so the next dial resolves the host again.
func NewDNSCachingDialer(dialer Dialer, cache DNSCache) DialerFunc {
	return func(ctx context.Context, network, addr string) (conn net.Conn, err error) {
		if resolved, ok := cache.Get(addr); ok {
			conn, err = dialer.DialContext(ctx, network, resolved)
			if err != nil {
				cache.Remove(addr)
			}
			return
		}
		conn, err = dialer.DialContext(ctx, network, addr)
		if err != nil {
			return
		}
		tcpAddr, ok := conn.RemoteAddr().(*net.TCPAddr)
		if !ok {
			return
		}
		_, port, err := net.SplitHostPort(addr)
		if err != nil {
			conn.Close()
			return nil, errors.Wrap(err, "invalid address, but successful dial")
		}
		cache.Add(addr, net.JoinHostPort(tcpAddr.IP.String(), port))
		return
	}
}

// RetryConfig configures dial retries with exponential backoff.
type RetryConfig struct {
	// Attempts is the max number of dials. Zero or one means no retries.
	Attempts        int           `config:"attempts" validate:"min=0"`
	InitialInterval time.Duration `config:"initial-interval"`
	MaxInterval     time.Duration `config:"max-interval"`
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:        3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
	}
}

// NewRetryDialer returns dialer that retries failed dials with exponential
// backoff until conf.Attempts are spent or ctx is done.
func NewRetryDialer(dialer Dialer, conf RetryConfig, log *zap.Logger) DialerFunc {
	if conf.Attempts <= 1 {
		return dialer.DialContext
	}
	return func(ctx context.Context, network, addr string) (conn net.Conn, err error) {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = conf.InitialInterval
		b.MaxInterval = conf.MaxInterval
		b.MaxElapsedTime = 0
		policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(conf.Attempts-1)), ctx)
		err = backoff.RetryNotify(func() error {
			var dialErr error
			conn, dialErr = dialer.DialContext(ctx, network, addr)
			return dialErr
		}, policy, func(err error, next time.Duration) {
			log.Warn("Dial failed, retrying", zap.String("addr", addr), zap.Duration("after", next), zap.Error(err))
		})
		return
	}
}

//go:generate mockery -name=DNSCache -case=underscore -outpkg=netmock

type DNSCache interface {
	Get(addr string) (string, bool)
	Add(addr, resolved string)
	Remove(addr string)
}

type SimpleDNSCache struct {
	rw         sync.RWMutex
	hostToAddr map[string]string
}

var _ DNSCache = &SimpleDNSCache{}

func (c *SimpleDNSCache) Get(addr string) (resolved string, ok bool) {
	c.rw.RLock()
	resolved, ok = c.hostToAddr[addr]
	c.rw.RUnlock()
	return
}

func (c *SimpleDNSCache) Add(addr, resolved string) {
	c.rw.Lock()
	if c.hostToAddr == nil {
		c.hostToAddr = make(map[string]string)
	}
	c.hostToAddr[addr] = resolved
	c.rw.Unlock()
}

func (c *SimpleDNSCache) Remove(addr string) {
	c.rw.Lock()
	delete(c.hostToAddr, addr)
	c.rw.Unlock()
}
