package bes

import (
	"net"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/opendap/olfs/core/fault"
)

var ErrAlreadyConfigured = errors.New("BES endpoint is already configured")

type Endpoint struct {
	Host string
	Port int
}

func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Settings holds the backend endpoint. It is written once, before serving
// starts, and read by every transaction.
type Settings struct {
	ep atomic.Pointer[Endpoint]
}

// DefaultSettings is the process wide endpoint.
var DefaultSettings = &Settings{}

// Configure sets the endpoint. Only the first successful call has effect,
// later calls return ErrAlreadyConfigured and keep the stored endpoint.
func (s *Settings) Configure(host string, port int) error {
	if host == "" {
		return fault.New(fault.Configuration, "BES host must not be empty.")
	}
	if port <= 0 || port > 65535 {
		return fault.New(fault.Configuration, "BES port %d is out of range.", port)
	}
	if !s.ep.CompareAndSwap(nil, &Endpoint{Host: host, Port: port}) {
		return ErrAlreadyConfigured
	}
	return nil
}

func (s *Settings) IsConfigured() bool {
	return s.ep.Load() != nil
}

func (s *Settings) Endpoint() (Endpoint, error) {
	ep := s.ep.Load()
	if ep == nil {
		return Endpoint{}, fault.New(fault.Configuration, "BES must be configured before use.")
	}
	return *ep, nil
}

func (s *Settings) Host() (string, error) {
	ep, err := s.Endpoint()
	return ep.Host, err
}

func (s *Settings) Port() (int, error) {
	ep, err := s.Endpoint()
	return ep.Port, err
}
