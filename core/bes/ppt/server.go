package ppt

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// ServerConn is the server side of a PPT session. It is used by in-process
// backends in tests and tools.
type ServerConn struct {
	r *bufio.Reader
	w *bufio.Writer
}

func NewServerConn(rw io.ReadWriter) *ServerConn {
	return &ServerConn{r: bufio.NewReader(rw), w: bufio.NewWriter(rw)}
}

// Accept reads the client announcement and answers it.
func (c *ServerConn) Accept() error {
	hello := make([]byte, len(ClientTestingConnection))
	if _, err := io.ReadFull(c.r, hello); err != nil {
		return errors.Wrap(err, "read client announcement")
	}
	if string(hello) != ClientTestingConnection {
		return errors.Wrapf(ErrHandshake, "client announced %q", hello)
	}
	if _, err := c.w.WriteString(ServerConnectionOK); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.w.Flush())
}

// ReadCommand reads one client message. Exit is true when the client ended
// the session.
func (c *ServerConn) ReadCommand() (cmd string, exit bool, err error) {
	var buf bytes.Buffer
	for {
		n, t, err := ReadChunkHeader(c.r)
		if err != nil {
			return "", false, err
		}
		if t == Extension {
			payload := make([]byte, n)
			if _, err := io.ReadFull(c.r, payload); err != nil {
				return "", false, errors.WithStack(err)
			}
			if ParseExtensions(string(payload))[StatusKey] == StatusExitNow {
				exit = true
			}
			continue
		}
		if n == 0 {
			return buf.String(), exit, nil
		}
		if _, err := io.CopyN(&buf, c.r, int64(n)); err != nil {
			return "", false, errors.WithStack(err)
		}
	}
}

// Reply writes a data reply.
func (c *ServerConn) Reply(data []byte) error {
	return c.reply("", data)
}

// ReplyError writes a reply flagged with status=error.
func (c *ServerConn) ReplyError(doc []byte) error {
	return c.reply(StatusError, doc)
}

func (c *ServerConn) reply(status string, data []byte) error {
	w := NewWriter(c.w)
	if status != "" {
		if err := w.SetStatus(status); err != nil {
			return err
		}
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return errors.WithStack(c.w.Flush())
}
