// Package localcache is a small file-backed key-value store. The whole file is
// one CBOR map of key to CBOR-encoded value and is rewritten atomically on
// every change.
package localcache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	// Deterministic output keeps rewrites of unchanged data byte-identical.
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano

	encMode, err = opts.EncMode()
	if err != nil {
		panic("localcache: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("localcache: CBOR decoder initialization failed: " + err.Error())
	}
}

type Store struct {
	path string

	mu      sync.Mutex
	entries map[string]cbor.RawMessage
}

// Open loads path, creating parent directories as needed. A missing file is an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, entries: map[string]cbor.RawMessage{}}

	err := os.MkdirAll(filepath.Dir(path), 0o700)
	if err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}

	if len(raw) == 0 {
		return s, nil
	}

	err = decMode.Unmarshal(raw, &s.entries)
	if err != nil {
		return nil, fmt.Errorf("decode cache %s: %w", path, err)
	}

	return s, nil
}

func (s *Store) Path() string { return s.path }

// Get decodes the value stored under key into dst. found is false when the key is absent.
func (s *Store) Get(key string, dst any) (found bool, err error) {
	s.mu.Lock()
	raw, ok := s.entries[key]
	s.mu.Unlock()

	if !ok {
		return false, nil
	}

	err = decMode.Unmarshal(raw, dst)
	if err != nil {
		return false, fmt.Errorf("decode %q: %w", key, err)
	}

	return true, nil
}

// Put stores v under key and persists the store.
func (s *Store) Put(key string, v any) error {
	raw, err := encMode.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.entries[key]
	s.entries[key] = raw

	err = s.flushLocked()
	if err != nil {
		if had {
			s.entries[key] = prev
		} else {
			delete(s.entries, key)
		}

		return err
	}

	return nil
}

func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.entries[key]
	if !had {
		return nil
	}

	delete(s.entries, key)

	err := s.flushLocked()
	if err != nil {
		s.entries[key] = prev
		return err
	}

	return nil
}

// flushLocked writes a temp file next to the target and renames it over the
// old one, so readers never see a half-written cache.
func (s *Store) flushLocked() error {
	raw, err := encMode.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpName := tmp.Name()

	_, err = tmp.Write(raw)
	if err == nil {
		err = tmp.Sync()
	}

	cerr := tmp.Close()
	if err == nil {
		err = cerr
	}

	if err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write cache: %w", err)
	}

	err = os.Rename(tmpName, s.path)
	if err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace cache: %w", err)
	}

	return nil
}
