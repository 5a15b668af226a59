package config

import (
	"net"
	"net/url"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"
)

var (
	ErrInvalidURL = errors.New("string is not valid URL")
	ErrInvalidIP  = errors.New("string is not valid IP")
	ErrEnvNotSet  = errors.New("env variable not set")
)

var (
	urlPtrType    = reflect.TypeOf(&url.URL{})
	urlType       = reflect.TypeOf(url.URL{})
	ipType        = reflect.TypeOf(net.IP{})
	dataSizeType  = reflect.TypeOf(datasize.B)
	regexpPtrType = reflect.TypeOf(&regexp.Regexp{})
)

var envTagRegexp = regexp.MustCompile(`\$\{env:\s*([^{}\s]+?)\s*\}`)

// EnvInjectHook replaces ${env:NAME} tokens in string values with the value
// of the environment variable. Unset variables are an error.
func EnvInjectHook(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if f.Kind() != reflect.String {
		return data, nil
	}
	str := data.(string)
	if !strings.Contains(str, "${") {
		return data, nil
	}
	var err error
	res := envTagRegexp.ReplaceAllStringFunc(str, func(token string) string {
		name := envTagRegexp.FindStringSubmatch(token)[1]
		val, ok := os.LookupEnv(name)
		if !ok && err == nil {
			err = errors.Wrap(ErrEnvNotSet, name)
		}
		return val
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// StringToURLHook converts string to url.URL or *url.URL.
func StringToURLHook(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if f.Kind() != reflect.String {
		return data, nil
	}
	if t != urlPtrType && t != urlType {
		return data, nil
	}
	str := data.(string)
	if !govalidator.IsURL(str) {
		return nil, errors.Wrap(ErrInvalidURL, str)
	}
	u, err := url.Parse(str)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if t == urlType {
		return *u, nil
	}
	return u, nil
}

func StringToIPHook(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if f.Kind() != reflect.String || t != ipType {
		return data, nil
	}
	ip := net.ParseIP(data.(string))
	if ip == nil {
		return nil, errors.Wrap(ErrInvalidIP, data.(string))
	}
	return ip, nil
}

// StringToDataSizeHook converts "64MB" like strings to datasize.ByteSize.
func StringToDataSizeHook(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if f.Kind() != reflect.String || t != dataSizeType {
		return data, nil
	}
	var size datasize.ByteSize
	err := size.UnmarshalText([]byte(data.(string)))
	return size, errors.WithStack(err)
}

func StringToRegexpHook(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if f.Kind() != reflect.String || t != regexpPtrType {
		return data, nil
	}
	re, err := regexp.Compile(data.(string))
	return re, errors.Wrapf(err, "invalid regexp %q", data)
}
