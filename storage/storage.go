// Package storage defines the pluggable persistence boundary for a
// CookieJar's entries, grounded on colly's storage/storage.go.
package storage

import (
	"bytes"
	"encoding/gob"
	"errors"
	"io"
)

// ------------------------------------------------------------------------

// Errors
var (
	ErrNotFound = errors.New("storage: key not found")
)

// ------------------------------------------------------------------------

// CookieStorage saves, deletes and retrieves per-eTLD+1 cookie submaps in
// their binary-encoded form. A Browser never requires a jar backed by this
// interface to persist across process restarts; an in-memory implementation
// (see storage/mem) is the default.
type CookieStorage interface {
	Set(key string, entries io.Reader) error // Set stores the entries in binary format.
	Get(key string) (io.Reader, error)       // Get retrieves the entries in binary format, or ErrNotFound.
	Remove(key string) error                 // Remove removes an entry by key.
	Clear() error                            // Clear deletes all stored items.
}

// ------------------------------------------------------------------------

// Encode gob-encodes an arbitrary value for storage.
func Encode(v any) (io.Reader, error) {
	buf := &bytes.Buffer{}
	err := gob.NewEncoder(buf).Encode(v)

	return buf, err
}

// Decode gob-decodes a value previously produced by Encode.
func Decode(r io.Reader, v any) error {
	return gob.NewDecoder(r).Decode(v)
}
