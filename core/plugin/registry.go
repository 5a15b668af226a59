// Package plugin is a typed registry of named constructors. A plugin is
// created from a loosely typed config map: the "type" key picks the
// constructor, the rest of the map is decoded over the registered default
// config and validated.
//
// Register is designed to be called during program setup, so it panics on
// misuse. Registry is not goroutine safe for Register; New and Lookup may be
// called concurrently once registration is done.
package plugin

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/opendap/olfs/core/config"
)

// NameKey is the config key naming the plugin.
const NameKey = "type"

type Registry[T any] struct {
	kind    string
	entries map[string]func(conf map[string]interface{}) (T, error)
}

// NewRegistry creates a registry. Kind is used in error messages only.
func NewRegistry[T any](kind string) *Registry[T] {
	return &Registry[T]{
		kind:    kind,
		entries: map[string]func(map[string]interface{}) (T, error){},
	}
}

// Register registers newPlugin under name. Config C should be a struct.
// If newDefaultConfig is nil, newPlugin receives zero config with the
// passed fields filled.
func Register[T, C any](r *Registry[T], name string, newPlugin func(C) (T, error), newDefaultConfig func() C) {
	expect(name != "", "empty %s name", r.kind)
	expect(newPlugin != nil, "nil %s %q constructor", r.kind, name)
	_, ok := r.entries[name]
	expect(!ok, "%s %q had been already registered", r.kind, name)
	r.entries[name] = func(data map[string]interface{}) (p T, err error) {
		var conf C
		if newDefaultConfig != nil {
			conf = newDefaultConfig()
		}
		err = config.DecodeAndValidate(data, &conf)
		if err != nil {
			err = errors.WithMessagef(err, "%s %q config", r.kind, name)
			return
		}
		return newPlugin(conf)
	}
}

// Lookup returns true if a constructor has been registered under name.
func (r *Registry[T]) Lookup(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// Names returns registered plugin names, sorted.
func (r *Registry[T]) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates plugin from config map containing the NameKey.
func (r *Registry[T]) New(data interface{}) (name string, p T, err error) {
	name, conf, err := ParseConf(data)
	if err != nil {
		return
	}
	if !r.Lookup(name) {
		err = errors.Errorf("unknown %s %q; registered: %s", r.kind, name, strings.Join(r.Names(), ", "))
		return
	}
	p, err = r.entries[name](conf)
	return
}

// ParseConf splits config map to plugin name and the rest of config. The
// name key is matched case insensitively.
func ParseConf(data interface{}) (name string, conf map[string]interface{}, err error) {
	m, err := toStringKeyMap(data)
	if err != nil {
		return
	}
	conf = make(map[string]interface{}, len(m))
	var names []string
	for key, val := range m {
		if strings.ToLower(key) != NameKey {
			conf[key] = val
			continue
		}
		str, ok := val.(string)
		if !ok {
			err = errors.Errorf("%s has non-string value %v", NameKey, val)
			return
		}
		names = append(names, str)
	}
	switch len(names) {
	case 0:
		err = errors.Errorf("plugin %s expected", NameKey)
	case 1:
		name = names[0]
	default:
		err = errors.Errorf("too many %s keys", NameKey)
	}
	return
}

func toStringKeyMap(data interface{}) (map[string]interface{}, error) {
	switch m := data.(type) {
	case map[string]interface{}:
		return m, nil
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for key, val := range m {
			str, ok := key.(string)
			if !ok {
				return nil, errors.Errorf("non-string config key %v", key)
			}
			out[str] = val
		}
		return out, nil
	}
	return nil, errors.Errorf("unexpected config type %T: should be map[string or interface{}]interface{}", data)
}

func expect(b bool, format string, args ...interface{}) {
	if !b {
		panic(fmt.Sprintf(format, args...))
	}
}
