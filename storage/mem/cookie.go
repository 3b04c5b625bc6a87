// Package mem provides an in-memory CookieStorage implementation, the
// default backing store for a Browser's CookieJar. Grounded on colly's
// storage/mem/cookie.go.
package mem

import (
	"bytes"
	"io"
	"sync"

	"browserkit/storage"
)

// ------------------------------------------------------------------------

// CookieStorage is an in-memory implementation of storage.CookieStorage.
type CookieStorage struct {
	lock sync.RWMutex
	data map[string][]byte
}

// ------------------------------------------------------------------------

// NewCookieStorage returns a pointer to a newly created in-memory cookie
// storage.
func NewCookieStorage() *CookieStorage {
	return &CookieStorage{data: map[string][]byte{}}
}

// ------------------------------------------------------------------------

// Set stores the entries in binary format under key.
func (s *CookieStorage) Set(key string, entries io.Reader) error {
	b, err := io.ReadAll(entries)
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	s.data[key] = b

	return nil
}

// ------------------------------------------------------------------------

// Get retrieves the entries in binary format, or storage.ErrNotFound.
func (s *CookieStorage) Get(key string) (io.Reader, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	b, present := s.data[key]
	if !present {
		return nil, storage.ErrNotFound
	}

	return bytes.NewReader(b), nil
}

// ------------------------------------------------------------------------

// Remove removes an entry by key.
func (s *CookieStorage) Remove(key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.data, key)

	return nil
}

// ------------------------------------------------------------------------

// Clear deletes all stored items.
func (s *CookieStorage) Clear() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.data = map[string][]byte{}

	return nil
}
