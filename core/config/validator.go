package config

import (
	"net"
	"regexp"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"
	validator "gopkg.in/bluesuncorp/validator.v9"
)

var defaultValidator = newValidator()

func Validate(value interface{}) error {
	return errors.WithStack(defaultValidator.Struct(value))
}

func newValidator() *validator.Validate {
	validate := validator.New()
	validate.SetTagName("validate")
	for key, fn := range map[string]validator.Func{
		"min-time": minTime,
		"max-time": maxTime,
		"min-size": minSize,
		"max-size": maxSize,
		"endpoint": stringValidation(IsEndpoint),
		"listen":   stringValidation(IsListenAddr),
		"url-path": stringValidation(IsURLPath),
	} {
		_ = validate.RegisterValidation(key, fn)
	}
	return validate
}

func minTime(fl validator.FieldLevel) bool {
	actual, bound, ok := durations(fl)
	return ok && bound <= actual
}

func maxTime(fl validator.FieldLevel) bool {
	actual, bound, ok := durations(fl)
	return ok && actual <= bound
}

func durations(fl validator.FieldLevel) (actual, bound time.Duration, ok bool) {
	bound, err := time.ParseDuration(fl.Param())
	if err != nil {
		return
	}
	actual, ok = fl.Field().Interface().(time.Duration)
	return
}

func minSize(fl validator.FieldLevel) bool {
	actual, bound, ok := sizes(fl)
	return ok && bound <= actual
}

func maxSize(fl validator.FieldLevel) bool {
	actual, bound, ok := sizes(fl)
	return ok && actual <= bound
}

func sizes(fl validator.FieldLevel) (actual, bound datasize.ByteSize, ok bool) {
	if bound.UnmarshalText([]byte(fl.Param())) != nil {
		return
	}
	actual, ok = fl.Field().Interface().(datasize.ByteSize)
	return
}

func stringValidation(fn func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && fn(s)
	}
}

// IsEndpoint accepts "host:port" or ":port".
func IsEndpoint(value string) bool {
	host, port, err := net.SplitHostPort(value)
	return err == nil &&
		(host == "" || govalidator.IsHost(host)) &&
		govalidator.IsPort(port)
}

// IsListenAddr is IsEndpoint that also accepts port 0, which asks the system
// for an ephemeral port.
func IsListenAddr(value string) bool {
	host, port, err := net.SplitHostPort(value)
	return err == nil &&
		(host == "" || govalidator.IsHost(host)) &&
		(port == "0" || govalidator.IsPort(port))
}

// At least one path component; characters from RFC 3986.
var pathRegexp = regexp.MustCompile(`^(/[a-zA-Z0-9._~!$&'()*+,;=:@%-]+)+/?$`)

func IsURLPath(value string) bool {
	return value == "/" || pathRegexp.MatchString(value)
}
