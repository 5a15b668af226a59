// Package ppt implements the PPT framing protocol spoken by BES: a raw text
// handshake followed by messages made of chunks. A chunk header is seven
// lowercase hex digits of payload length and a type byte. Data chunks carry
// message bytes, extension chunks carry "name=value;" lists, a zero length
// data chunk ends the message.
package ppt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	ClientTestingConnection = "PPTCLIENT_TESTING_CONNECTION"
	ServerConnectionOK      = "PPTSERVER_CONNECTION_OK"

	StatusKey = "status"
	// StatusError marks a reply whose data is an error document.
	StatusError = "error"
	// StatusExitNow ends the session.
	StatusExitNow = "PPT_EXIT_NOW"
)

type ChunkType byte

const (
	Data      ChunkType = 'd'
	Extension ChunkType = 'x'
)

const (
	headerLen = 8
	// MaxChunkSize is the largest payload a header can describe.
	MaxChunkSize = 1<<28 - 1
	// WriteChunkSize is the payload size used by Writer.
	WriteChunkSize = 64 << 10
)

var ErrMalformedHeader = errors.New("malformed chunk header")

func WriteChunk(w io.Writer, t ChunkType, payload []byte) error {
	if len(payload) > MaxChunkSize {
		return errors.Errorf("chunk payload %d exceeds max %d", len(payload), MaxChunkSize)
	}
	_, err := fmt.Fprintf(w, "%07x%c", len(payload), t)
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = w.Write(payload)
	return errors.WithStack(err)
}

// WriteEnd writes the zero length data chunk that terminates a message.
func WriteEnd(w io.Writer) error {
	return WriteChunk(w, Data, nil)
}

// WriteExtensions writes an extension chunk.
func WriteExtensions(w io.Writer, ext map[string]string) error {
	return WriteChunk(w, Extension, []byte(FormatExtensions(ext)))
}

func ReadChunkHeader(r io.Reader) (n int, t ChunkType, err error) {
	var header [headerLen]byte
	_, err = io.ReadFull(r, header[:])
	if err != nil {
		err = errors.Wrap(err, "read chunk header")
		return
	}
	size, perr := strconv.ParseUint(string(header[:headerLen-1]), 16, 32)
	if perr != nil {
		err = errors.Wrapf(ErrMalformedHeader, "%q", header[:])
		return
	}
	t = ChunkType(header[headerLen-1])
	if t != Data && t != Extension {
		err = errors.Wrapf(ErrMalformedHeader, "unknown chunk type in %q", header[:])
		return
	}
	return int(size), t, nil
}

// ParseExtensions parses "name=value;name;" lists. Names without value map
// to empty string.
func ParseExtensions(s string) map[string]string {
	ext := map[string]string{}
	for _, item := range strings.Split(s, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, value, _ := strings.Cut(item, "=")
		ext[name] = value
	}
	return ext
}

// FormatExtensions renders extensions with the status key first and the rest
// in unspecified order.
func FormatExtensions(ext map[string]string) string {
	var sb strings.Builder
	write := func(name, value string) {
		sb.WriteString(name)
		if value != "" {
			sb.WriteByte('=')
			sb.WriteString(value)
		}
		sb.WriteByte(';')
	}
	if v, ok := ext[StatusKey]; ok {
		write(StatusKey, v)
	}
	for name, value := range ext {
		if name != StatusKey {
			write(name, value)
		}
	}
	return sb.String()
}

// Writer splits written bytes into data chunks. Close ends the message but
// does not close the underlying writer.
type Writer struct {
	w   io.Writer
	err error
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

func (w *Writer) Write(p []byte) (n int, err error) {
	if w.err != nil {
		return 0, w.err
	}
	for len(p) > 0 {
		part := p
		if len(part) > WriteChunkSize {
			part = part[:WriteChunkSize]
		}
		if w.err = WriteChunk(w.w, Data, part); w.err != nil {
			return n, w.err
		}
		n += len(part)
		p = p[len(part):]
	}
	return n, nil
}

// SetStatus writes a status extension chunk before the following data.
func (w *Writer) SetStatus(status string) error {
	if w.err != nil {
		return w.err
	}
	w.err = WriteExtensions(w.w, map[string]string{StatusKey: status})
	return w.err
}

func (w *Writer) Close() error {
	if w.err != nil {
		return w.err
	}
	w.err = WriteEnd(w.w)
	if w.err == nil {
		w.err = errors.New("write to closed ppt writer")
		return nil
	}
	return w.err
}
