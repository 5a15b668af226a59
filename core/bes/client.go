// Package bes talks to the Back End Server: it builds command scripts and
// runs them as transactions over the PPT protocol, one connection per
// transaction.
package bes

import (
	"bytes"
	"context"
	"io"
	"net"
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/opendap/olfs/core/bes/ppt"
	"github.com/opendap/olfs/core/fault"
	"github.com/opendap/olfs/lib/errutil"
	"github.com/opendap/olfs/lib/netutil"
)

type ClientConfig struct {
	// Timeout bounds a whole transaction when the caller context has no
	// earlier deadline.
	Timeout time.Duration `config:"timeout" validate:"min-time=1ms"`
	// ExitTimeout bounds the session teardown.
	ExitTimeout time.Duration      `config:"exit-timeout" validate:"min-time=1ms"`
	Retry       netutil.RetryConfig `config:"retry"`
	DNSCache    bool                `config:"dns-cache"`
	// Echo logs the whole conversation at debug level.
	Echo bool `config:"echo"`
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:     5 * time.Minute,
		ExitTimeout: time.Second,
		Retry:       netutil.DefaultRetryConfig(),
		DNSCache:    true,
	}
}

// Client runs command scripts against the configured endpoint. Client is
// goroutine safe; every Execute opens and tears down its own connection.
type Client struct {
	conf     ClientConfig
	settings *Settings
	dialer   netutil.Dialer
	log      *zap.Logger
}

// NewClient creates client. Nil dialer means plain TCP.
func NewClient(conf ClientConfig, settings *Settings, dialer netutil.Dialer, log *zap.Logger) *Client {
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	if conf.DNSCache {
		dialer = netutil.NewDNSCachingDialer(dialer, &netutil.SimpleDNSCache{})
	}
	dialer = netutil.NewRetryDialer(dialer, conf.Retry, log)
	return &Client{
		conf:     conf,
		settings: settings,
		dialer:   dialer,
		log:      log,
	}
}

// Execute runs the script, copying the reply to the final command into
// sink. Replies to other commands go to the echo log.
func (c *Client) Execute(ctx context.Context, script Script, sink io.Writer) (err error) {
	if len(script) == 0 {
		return fault.New(fault.Internal, "Empty backend command script.")
	}
	ep, err := c.settings.Endpoint()
	if err != nil {
		return err
	}
	if c.conf.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.conf.Timeout)
		defer cancel()
	}
	log := c.log.With(zap.String("bes", ep.Addr()))
	started := time.Now()
	metricActive.Inc()
	defer func() {
		metricActive.Dec()
		outcome := "ok"
		if err != nil {
			outcome = fault.KindOf(err).String()
		}
		transactionsTotal.WithLabelValues(outcome).Inc()
		transactionSeconds.Observe(time.Since(started).Seconds())
	}()

	conn, err := c.dialer.DialContext(ctx, "tcp", ep.Addr())
	if err != nil {
		log.Warn("BES dial failed", zap.Error(err))
		return c.connectionFault(ctx, err, "Unable to connect to the backend server.")
	}
	pconn := ppt.NewConn(conn)
	stopWatch := c.watch(ctx, conn)
	defer func() {
		stopWatch()
		c.teardown(log, conn, pconn)
	}()

	if err := pconn.Handshake(); err != nil {
		log.Warn("BES handshake failed", zap.Error(err))
		return c.connectionFault(ctx, err, "Backend server handshake failed.")
	}
	echo := c.echoWriter(log)
	last := len(script) - 1
	for i, cmd := range script {
		if c.conf.Echo {
			log.Debug("BES command", zap.String("cmd", cmd))
		}
		if err := pconn.Send(cmd); err != nil {
			log.Warn("BES send failed", zap.String("cmd", cmd), zap.Error(err))
			return c.connectionFault(ctx, err, "Lost connection to the backend server.")
		}
		out := echo
		if i == last {
			out = sink
		}
		reply, err := pconn.Receive(out)
		if err != nil {
			var sinkErr *ppt.SinkError
			if errors.As(err, &sinkErr) {
				log.Info("Client went away while reply was streamed", zap.Error(sinkErr.Err))
				return fault.Wrap(fault.ClientAbort, sinkErr.Err, "Client closed connection.")
			}
			log.Warn("BES receive failed", zap.String("cmd", cmd), zap.Error(err))
			return c.connectionFault(ctx, err, "Lost connection to the backend server.")
		}
		if reply.IsError() {
			err := ParseErrorDoc(reply.ErrorDoc)
			log.Info("BES reported error", zap.String("cmd", cmd), zap.Error(err))
			return err
		}
		if reply.Exit && i != last {
			log.Warn("BES ended session early", zap.String("cmd", cmd))
			return fault.New(fault.Connection, "Backend server ended the session.")
		}
	}
	return nil
}

// Show runs the script and parses the final reply as XML. Exceptions in the
// document are returned as Backend fault.
func (c *Client) Show(ctx context.Context, script Script) (*xmlquery.Node, error) {
	buf := &bytes.Buffer{}
	if err := c.Execute(ctx, script, buf); err != nil {
		return nil, err
	}
	doc, err := xmlquery.Parse(buf)
	if err != nil {
		c.log.Warn("Malformed BES reply", zap.Stringer("script", script), zap.Error(err))
		return nil, fault.Wrap(fault.Connection, err, "Backend server sent malformed reply.")
	}
	if err := ExceptionsError(FindExceptions(doc)); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *Client) connectionFault(ctx context.Context, err error, msg string) error {
	if errutil.IsCtxError(ctx, err) || isTimeout(err) {
		return fault.Wrap(fault.Connection, err, "Backend server transaction timed out.")
	}
	return fault.Wrap(fault.Connection, err, msg)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// watch applies ctx deadline to conn and closes conn on cancel, so a
// blocked read returns.
func (c *Client) watch(ctx context.Context, conn net.Conn) (stop func()) {
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		select {
		case <-ctx.Done():
			_ = conn.SetDeadline(time.Now())
		case <-done:
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

// teardown ends the session and closes the socket. Errors are logged only:
// the transaction result is already decided.
func (c *Client) teardown(log *zap.Logger, conn net.Conn, pconn *ppt.Conn) {
	_ = conn.SetDeadline(time.Now().Add(c.conf.ExitTimeout))
	if err := pconn.Exit(); err != nil {
		log.Debug("BES exit failed", zap.Error(err))
	}
	if err := conn.Close(); err != nil {
		log.Debug("BES connection close failed", zap.Error(err))
	}
}

func (c *Client) echoWriter(log *zap.Logger) io.Writer {
	if !c.conf.Echo || !log.Core().Enabled(zapcore.DebugLevel) {
		return io.Discard
	}
	return echoWriter{log}
}

type echoWriter struct{ log *zap.Logger }

func (w echoWriter) Write(p []byte) (int, error) {
	w.log.Debug("BES reply", zap.ByteString("data", p))
	return len(p), nil
}
