package config

import (
	"encoding/json"
	"github.com/pkg/errors"
	"os"
)

// Provider resolves a single named option.
type Provider interface {
	Lookup(key string) (string, bool)
}

// Env reads options from the process environment.
type Env struct{}

func (Env) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// Properties is a flat key/value property store, usually read from a JSON file.
type Properties map[string]string

func (p Properties) Lookup(key string) (string, bool) {
	v, ok := p[key]
	return v, ok
}

// ReadProperties loads a JSON object of string properties from path.
func ReadProperties(path string) (Properties, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read property file %v", path)
	}
	var p Properties
	err = json.Unmarshal(file, &p)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to unmarshal property file %v", path)
	}
	return p, nil
}

// Chain consults providers in order and returns the first hit.
type Chain []Provider

func (c Chain) Lookup(key string) (string, bool) {
	for _, p := range c {
		if v, ok := p.Lookup(key); ok {
			return v, true
		}
	}
	return "", false
}
