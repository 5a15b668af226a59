// Package config decodes loosely typed configuration trees (as produced by
// viper) into typed structs and validates them.
package config

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// TagName is the struct tag used for field names: `config:"max-connections"`.
const TagName = "config"

// Decode decodes conf to result. Fields absent in conf keep their values, so
// result is usually prefilled with defaults.
func Decode(conf interface{}, result interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(hooks...),
		ErrorUnused:      true,
		ZeroFields:       false,
		WeaklyTypedInput: false,
		TagName:          TagName,
		Result:           result,
	})
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(decoder.Decode(conf))
}

func DecodeAndValidate(conf interface{}, result interface{}) error {
	err := Decode(conf, result)
	if err != nil {
		return err
	}
	return Validate(result)
}

var hooks = []mapstructure.DecodeHookFunc{
	EnvInjectHook,
	mapstructure.StringToTimeDurationHookFunc(),
	StringToURLHook,
	StringToIPHook,
	StringToDataSizeHook,
	StringToRegexpHook,
}
