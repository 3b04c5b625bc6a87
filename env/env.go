// Package env collects prefixed configuration values from the OS
// environment or a dotenv file, grounded on colly's env.go/env/env.go.
package env

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// ------------------------------------------------------------------------

// Environment holds a prefix-filtered set of key/value configuration pairs.
type Environment struct {
	prefix string
	values map[string]string
}

// ------------------------------------------------------------------------

// NewFromMap returns a pointer to a newly created Environment sourced from
// an arbitrary map, keeping only keys that start with prefix and stripping
// the prefix from the stored key.
func NewFromMap(prefix string, values map[string]string) *Environment {
	e := &Environment{prefix: prefix, values: map[string]string{}}

	skip := len(prefix)
	for k, v := range values {
		if !strings.HasPrefix(k, prefix) {
			continue
		}

		e.values[k[skip:]] = v
	}

	return e
}

// ------------------------------------------------------------------------

// NewFromOSEnv returns a pointer to a newly created Environment sourced
// from os.Environ(), filtered by prefix.
func NewFromOSEnv(prefix string) *Environment {
	values := map[string]string{}

	for _, v := range os.Environ() {
		if !strings.HasPrefix(v, prefix) {
			continue
		}

		if pair := strings.SplitN(v, "=", 2); len(pair) == 2 {
			values[pair[0]] = pair[1]
		}
	}

	return NewFromMap(prefix, values)
}

// ------------------------------------------------------------------------

// NewFromFile returns a pointer to a newly created Environment sourced
// from a dotenv file, filtered by prefix.
func NewFromFile(prefix string, path string) (*Environment, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, err
	}

	return NewFromMap(prefix, values), nil
}

// ------------------------------------------------------------------------

// Set sets a value named by the key, overriding any existing value.
func (e *Environment) Set(key, value string) {
	e.values[key] = value
}

// Values returns the key/value pairs stored in the Environment.
func (e *Environment) Values() map[string]string {
	return e.values
}
