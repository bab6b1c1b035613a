package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// KV is the injected key-value capability used to persist UI state such
// as the last viewed screen across sessions.
type KV interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// FileKV keeps the map in a single JSON file, loaded once and rewritten
// on every Set.
type FileKV struct {
	mu   sync.Mutex
	path string
	data map[string]string
}

func NewFileKV(path string) *FileKV {
	kv := &FileKV{path: path, data: make(map[string]string)}
	if raw, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(raw, &kv.data)
	}
	return kv
}

func (kv *FileKV) Get(key string) (string, bool) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.data[key]
	return v, ok
}

func (kv *FileKV) Set(key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	kv.data[key] = value
	raw, err := json.Marshal(kv.data)
	if err != nil {
		return fmt.Errorf("marshal kv state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(kv.path), 0o755); err != nil {
		return fmt.Errorf("create kv directory: %w", err)
	}
	if err := os.WriteFile(kv.path, raw, 0o644); err != nil {
		return fmt.Errorf("write kv state: %w", err)
	}
	return nil
}

// MemKV is an in-memory KV for tests.
type MemKV struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemKV() *MemKV {
	return &MemKV{data: make(map[string]string)}
}

func (kv *MemKV) Get(key string) (string, bool) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.data[key]
	return v, ok
}

func (kv *MemKV) Set(key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.data[key] = value
	return nil
}
