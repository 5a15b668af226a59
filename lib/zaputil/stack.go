// Package zaputil has zap extensions.
package zaputil

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// NewStackExtractCore returns core that moves stack traces recorded by
// github.com/pkg/errors anywhere in the chain of logged errors into
// zapcore.Entry.Stack, so console encoder prints them readable. The error
// field keeps the message only.
// Errors passed to With are not inspected.
func NewStackExtractCore(c zapcore.Core) zapcore.Core {
	return &stackExtractCore{c}
}

type stackExtractCore struct {
	zapcore.Core
}

func (c *stackExtractCore) With(fields []zapcore.Field) zapcore.Core {
	return &stackExtractCore{c.Core.With(fields)}
}

func (c *stackExtractCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *stackExtractCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	var stacks strings.Builder
	var copied bool
	for i, field := range fields {
		if field.Type != zapcore.ErrorType {
			continue
		}
		err, ok := field.Interface.(error)
		if !ok {
			continue
		}
		var tracer stackTracer
		if !errors.As(err, &tracer) {
			continue
		}
		if !copied {
			copied = true
			fields = append([]zapcore.Field(nil), fields...)
		}
		fields[i] = zap.String(field.Key, err.Error())
		if stacks.Len() != 0 {
			stacks.WriteByte('\n')
		}
		fmt.Fprintf(&stacks, "%s stacktrace:%+v", field.Key, tracer.StackTrace())
	}
	if stacks.Len() != 0 {
		if ent.Stack != "" {
			ent.Stack += "\n"
		}
		ent.Stack += stacks.String()
	}
	return c.Core.Write(ent, fields)
}
