// Package bestest provides an in-process BES speaking PPT over TCP, with
// scripted replies and fault injection.
package bestest

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/opendap/olfs/core/bes/ppt"
)

// Response is how the server answers one command.
type Response struct {
	Data []byte
	// Error flags the reply with status=error.
	Error bool
	// Drop closes the connection instead of replying.
	Drop bool
	// Hang sends nothing and waits for the next client message.
	Hang bool
}

// Responder picks the response for a command.
type Responder func(cmd string) Response

// Replies answers with the matching command prefix. Commands without match
// get an empty reply.
func Replies(byPrefix map[string]Response) Responder {
	return func(cmd string) Response {
		var best string
		for prefix := range byPrefix {
			if strings.HasPrefix(cmd, prefix) && len(prefix) > len(best) {
				best = prefix
			}
		}
		if best == "" {
			return Response{}
		}
		return byPrefix[best]
	}
}

// Session records one client connection.
type Session struct {
	Commands []string
	// Exited is set when the client sent the exit extension.
	Exited bool
	// Closed is set when the client closed the socket or the server
	// dropped it.
	Closed bool
}

type Server struct {
	Host string
	Port int

	listener net.Listener
	respond  Responder

	badHandshake atomic.Bool

	mu       sync.Mutex
	sessions []*Session
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
}

// NewServer starts a server on a loopback port.
func NewServer(respond Responder) (*Server, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	addr := l.Addr().(*net.TCPAddr)
	s := &Server{
		Host:     addr.IP.String(),
		Port:     addr.Port,
		listener: l,
		respond:  respond,
		conns:    map[net.Conn]struct{}{},
	}
	s.wg.Add(1)
	go s.serve()
	return s, nil
}

// SetBadHandshake makes the server answer the handshake with garbage.
func (s *Server) SetBadHandshake(bad bool) {
	s.badHandshake.Store(bad)
}

func (s *Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Sessions returns copies of the recorded sessions.
func (s *Server) Sessions() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]Session, len(s.sessions))
	for i, sess := range s.sessions {
		res[i] = *sess
		res[i].Commands = append([]string(nil), sess.Commands...)
	}
	return res
}

// WaitSessionsClosed waits until every accepted session is closed.
func (s *Server) WaitSessionsClosed(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		open := len(s.conns)
		s.mu.Unlock()
		if open == 0 {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

// Close stops listening, drops open connections and waits for handler
// goroutines.
func (s *Server) Close() {
	s.listener.Close()
	s.mu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		sess := &Session{}
		s.mu.Lock()
		s.sessions = append(s.sessions, sess)
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn, sess)
			conn.Close()
			s.mu.Lock()
			sess.Closed = true
			delete(s.conns, conn)
			s.mu.Unlock()
		}()
	}
}

func (s *Server) handle(conn net.Conn, sess *Session) {
	pconn := ppt.NewServerConn(conn)
	if s.badHandshake.Load() {
		hello := make([]byte, len(ppt.ClientTestingConnection))
		_, _ = conn.Read(hello)
		_, _ = fmt.Fprint(conn, "PPTSERVER_GO_AWAY_NOW_!")
		_, _ = conn.Read(hello)
		return
	}
	if pconn.Accept() != nil {
		return
	}
	for {
		cmd, exit, err := pconn.ReadCommand()
		if err != nil {
			return
		}
		s.mu.Lock()
		if exit {
			sess.Exited = true
		} else {
			sess.Commands = append(sess.Commands, cmd)
		}
		s.mu.Unlock()
		if exit {
			continue
		}
		resp := s.respond(cmd)
		switch {
		case resp.Drop:
			return
		case resp.Hang:
			continue
		case resp.Error:
			err = pconn.ReplyError(resp.Data)
		default:
			err = pconn.Reply(resp.Data)
		}
		if err != nil {
			return
		}
	}
}
