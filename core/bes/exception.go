package bes

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/opendap/olfs/core/fault"
)

// Exception is one error element found in a backend reply.
type Exception struct {
	Type     string
	Message  string
	Location string
}

func (e *Exception) Error() string {
	return "[Type: " + e.Type + "][Message: " + e.Message + "][Location: " + e.Location + "]"
}

// Legacy BESError elements carry numeric types.
var errorTypeNames = map[string]string{
	"1": "BESInternalError",
	"2": "BESInternalFatalError",
	"3": "BESSyntaxUserError",
	"4": "BESForbiddenError",
	"5": "BESNotFoundError",
}

var exceptionExpr = xpath.MustCompile("//BESException | //BESError")

// FindExceptions returns exceptions in document order.
func FindExceptions(doc *xmlquery.Node) []*Exception {
	var res []*Exception
	for _, n := range xmlquery.QuerySelectorAll(doc, exceptionExpr) {
		e := &Exception{
			Type:     childText(n, "Type"),
			Message:  childText(n, "Message"),
			Location: location(n.SelectElement("Location")),
		}
		if name, ok := errorTypeNames[e.Type]; ok {
			e.Type = name
		}
		res = append(res, e)
	}
	return res
}

// ExceptionsError aggregates exceptions into one Backend fault. Lines are
// numbered from zero. Nil if there are no exceptions.
func ExceptionsError(exceptions []*Exception) error {
	if len(exceptions) == 0 {
		return nil
	}
	merr := &multierror.Error{ErrorFormat: formatExceptions}
	status := 0
	for _, e := range exceptions {
		merr = multierror.Append(merr, e)
		s := exceptionStatus(e.Type)
		if status == 0 || s == http.StatusInternalServerError {
			status = s
		}
	}
	return &fault.Fault{
		Kind:   fault.Backend,
		Msg:    merr.Error(),
		Status: status,
		Err:    merr,
	}
}

// HasException reports whether err carries a backend exception of type typ.
func HasException(err error, typ string) bool {
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return false
	}
	for _, e := range merr.Errors {
		if be, ok := e.(*Exception); ok && be.Type == typ {
			return true
		}
	}
	return false
}

// IsNotFound reports whether the backend said the resource does not exist.
func IsNotFound(err error) bool {
	return HasException(err, "BESNotFoundError")
}

func formatExceptions(errs []error) string {
	lines := make([]string, len(errs))
	for i, err := range errs {
		lines[i] = fmt.Sprintf("[BESException: %d]%s", i, err.Error())
	}
	return strings.Join(lines, "\n")
}

func exceptionStatus(typ string) int {
	switch typ {
	case "BESSyntaxUserError", "BESNotFoundError":
		return http.StatusBadRequest
	case "BESForbiddenError":
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// ParseErrorDoc parses an error flagged reply. Unparseable documents and
// documents without exceptions are still Backend faults, carrying the raw
// text.
func ParseErrorDoc(doc []byte) error {
	node, err := xmlquery.Parse(bytes.NewReader(doc))
	if err == nil {
		if err := ExceptionsError(FindExceptions(node)); err != nil {
			return err
		}
	}
	return fault.New(fault.Backend, "%s", strings.TrimSpace(string(doc)))
}

func childText(n *xmlquery.Node, name string) string {
	c := n.SelectElement(name)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.InnerText())
}

// location renders either plain text or File and Line children.
func location(n *xmlquery.Node) string {
	if n == nil {
		return ""
	}
	file, line := childText(n, "File"), childText(n, "Line")
	if file == "" && line == "" {
		return strings.TrimSpace(n.InnerText())
	}
	return file + ":" + line
}
