package ppt

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

var (
	ErrHandshake     = errors.New("ppt handshake failed")
	ErrAwaitingReply = errors.New("connection is awaiting reply")
	ErrNotAwaiting   = errors.New("no command sent")
)

// SinkError is returned by Receive when writing reply data to the caller
// writer failed. The connection is still in sync only up to the failed
// chunk, so it should be torn down.
type SinkError struct {
	Err error
}

func (e *SinkError) Error() string { return "reply sink: " + e.Err.Error() }
func (e *SinkError) Unwrap() error { return e.Err }
func (e *SinkError) Cause() error  { return e.Err }

// Reply describes one received message.
type Reply struct {
	Extensions map[string]string
	// ErrorDoc holds data received after a status=error extension. Such
	// data never reaches the Receive writer.
	ErrorDoc []byte
	// Exit is set when the peer asked to end the session.
	Exit bool
	// Len is the number of data bytes written to the Receive writer.
	Len int64
}

func (r *Reply) IsError() bool {
	return r.Extensions[StatusKey] == StatusError
}

// Conn is the client side of a PPT session. Conn is not goroutine safe, but
// it detects a second command sent before the reply was read.
type Conn struct {
	r        *bufio.Reader
	w        *bufio.Writer
	awaiting atomic.Bool
}

func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{
		r: bufio.NewReader(rw),
		w: bufio.NewWriter(rw),
	}
}

// Handshake announces the client and checks the server answer.
func (c *Conn) Handshake() error {
	if _, err := c.w.WriteString(ClientTestingConnection); err != nil {
		return errors.WithStack(err)
	}
	if err := c.w.Flush(); err != nil {
		return errors.WithStack(err)
	}
	answer := make([]byte, len(ServerConnectionOK))
	n, err := io.ReadFull(c.r, answer)
	if err != nil {
		return errors.Wrapf(ErrHandshake, "server answered %q: %v", answer[:n], err)
	}
	if string(answer) != ServerConnectionOK {
		return errors.Wrapf(ErrHandshake, "server answered %q", answer)
	}
	return nil
}

// Send sends cmd as one message.
func (c *Conn) Send(cmd string) error {
	if !c.awaiting.CAS(false, true) {
		return errors.WithStack(ErrAwaitingReply)
	}
	if err := WriteChunk(c.w, Data, []byte(cmd)); err != nil {
		return err
	}
	if err := WriteEnd(c.w); err != nil {
		return err
	}
	return errors.WithStack(c.w.Flush())
}

// Receive reads one message, copying its data to w until the peer flags an
// error; the rest is kept in Reply.ErrorDoc.
func (c *Conn) Receive(w io.Writer) (*Reply, error) {
	if !c.awaiting.Load() {
		return nil, errors.WithStack(ErrNotAwaiting)
	}
	defer c.awaiting.Store(false)
	reply := &Reply{Extensions: map[string]string{}}
	var errDoc *bytes.Buffer
	for {
		n, t, err := ReadChunkHeader(c.r)
		if err != nil {
			return reply, err
		}
		if t == Extension {
			payload := make([]byte, n)
			if _, err := io.ReadFull(c.r, payload); err != nil {
				return reply, errors.Wrap(err, "read extension")
			}
			for name, value := range ParseExtensions(string(payload)) {
				reply.Extensions[name] = value
			}
			switch reply.Extensions[StatusKey] {
			case StatusError:
				if errDoc == nil {
					errDoc = &bytes.Buffer{}
				}
			case StatusExitNow:
				reply.Exit = true
			}
			continue
		}
		if n == 0 {
			break
		}
		if errDoc != nil {
			if _, err := io.CopyN(errDoc, c.r, int64(n)); err != nil {
				return reply, errors.Wrap(err, "read error document")
			}
			continue
		}
		sink := &sinkWriter{w: w}
		written, err := io.CopyN(sink, c.r, int64(n))
		reply.Len += written
		if sink.err != nil {
			return reply, &SinkError{sink.err}
		}
		if err != nil {
			return reply, errors.Wrap(err, "read data chunk")
		}
	}
	if errDoc != nil {
		reply.ErrorDoc = errDoc.Bytes()
	}
	return reply, nil
}

// Exit tells the server the session is over. The caller still closes the
// transport.
func (c *Conn) Exit() error {
	err := WriteExtensions(c.w, map[string]string{StatusKey: StatusExitNow})
	if err == nil {
		err = WriteEnd(c.w)
	}
	if err == nil {
		err = c.w.Flush()
	}
	return errors.WithStack(err)
}

type sinkWriter struct {
	w   io.Writer
	err error
}

func (s *sinkWriter) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	if err != nil {
		s.err = err
	}
	return n, err
}
