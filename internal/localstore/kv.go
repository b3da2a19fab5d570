// Package localstore keeps per-user annotations (saved searches, favorites)
// in a small synchronous key-value store.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// KV is a synchronous string key-value store. Writes are last-write-wins.
type KV interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
}

type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: map[string]string{}}
}

func (m *MemoryKV) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// FileKV is a KV persisted as one JSON object on disk. Every write rewrites
// the file through a temp file and rename.
type FileKV struct {
	path string

	mu   sync.Mutex
	data map[string]string
}

// OpenFileKV loads path, creating parent directories as needed. A missing
// file starts empty. A file that is not valid JSON is logged and ignored so
// a damaged store never blocks startup; it is replaced on the next write.
func OpenFileKV(path string) (*FileKV, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	kv := &FileKV{path: path, data: map[string]string{}}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return kv, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &kv.data); err != nil {
			log.Printf("[localstore] %s is corrupt, starting empty: %v", path, err)
			kv.data = map[string]string{}
		}
	}
	return kv, nil
}

func (f *FileKV) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok
}

func (f *FileKV) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.data[key]
	f.data[key] = value
	if err := f.flushLocked(); err != nil {
		if had {
			f.data[key] = prev
		} else {
			delete(f.data, key)
		}
		return err
	}
	return nil
}

func (f *FileKV) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.data[key]
	if !had {
		return nil
	}
	delete(f.data, key)
	if err := f.flushLocked(); err != nil {
		f.data[key] = prev
		return err
	}
	return nil
}

// Keys returns all stored keys in sorted order.
func (f *FileKV) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f *FileKV) flushLocked() error {
	raw, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".localstore-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}

type namespaced struct {
	kv     KV
	prefix string
}

// Namespace scopes every key of kv under prefix.
func Namespace(kv KV, prefix string) KV {
	return namespaced{kv: kv, prefix: prefix + ":"}
}

func (n namespaced) Get(key string) (string, bool) { return n.kv.Get(n.prefix + key) }
func (n namespaced) Set(key, value string) error  { return n.kv.Set(n.prefix+key, value) }
func (n namespaced) Delete(key string) error      { return n.kv.Delete(n.prefix + key) }

// loadJSON decodes the value at key into v. A missing key leaves v alone.
// Undecodable data is logged and reported as missing.
func loadJSON(kv KV, key string, v interface{}) bool {
	raw, ok := kv.Get(key)
	if !ok || raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		log.Printf("[localstore] ignoring corrupt value under %q: %v", key, err)
		return false
	}
	return true
}

func storeJSON(kv KV, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return kv.Set(key, string(raw))
}
