package storage

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// Fake is an in-memory Storage for tests. It mirrors the adapter contract:
// overwriting puts, recursive prefix deletes, copy-then-delete renames.
// Set FailUploads or FailDeletes to simulate a misbehaving store.
type Fake struct {
	mu      sync.Mutex
	objects map[string][]byte

	FailUploads bool
	FailDeletes bool
}

// NewFake returns an empty in-memory store.
func NewFake() *Fake {
	return &Fake{objects: map[string][]byte{}}
}

// Upload stores the reader's bytes under key, overwriting any existing object.
func (f *Fake) Upload(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	if f.FailUploads {
		return fmt.Errorf("fake storage: upload %q refused", key)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

// Delete removes the object at key. Missing keys are a no-op, like S3.
func (f *Fake) Delete(_ context.Context, key string) error {
	if f.FailDeletes {
		return fmt.Errorf("fake storage: delete %q refused", key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

// DeletePrefix removes every object under prefix.
func (f *Fake) DeletePrefix(_ context.Context, prefix string) error {
	if f.FailDeletes {
		return fmt.Errorf("fake storage: delete prefix %q refused", prefix)
	}
	prefix = ensureTrailingSlash(prefix)
	f.mu.Lock()
	defer f.mu.Unlock()
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			delete(f.objects, key)
		}
	}
	return nil
}

// Rename moves a single object from srcKey to dstKey.
func (f *Fake) Rename(_ context.Context, srcKey, dstKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[srcKey]
	if !ok {
		return fmt.Errorf("fake storage: no object at %q", srcKey)
	}
	f.objects[dstKey] = data
	delete(f.objects, srcKey)
	return nil
}

// RenamePrefix relocates every object under oldPrefix to newPrefix.
func (f *Fake) RenamePrefix(_ context.Context, oldPrefix, newPrefix string) error {
	oldPrefix = ensureTrailingSlash(oldPrefix)
	newPrefix = ensureTrailingSlash(newPrefix)
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, data := range f.objects {
		if strings.HasPrefix(key, oldPrefix) {
			f.objects[newPrefix+strings.TrimPrefix(key, oldPrefix)] = data
			delete(f.objects, key)
		}
	}
	return nil
}

// SignedURL returns a deterministic stand-in URL for the key.
func (f *Fake) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[key]; !ok {
		return "", fmt.Errorf("fake storage: no object at %q", key)
	}
	return "https://signed.example.test/" + key, nil
}

// PublicURL returns a deterministic public URL for the key.
func (f *Fake) PublicURL(key string) string {
	return "https://public.example.test/" + key
}

// Keys returns all stored keys, sorted, for assertions.
func (f *Fake) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for key := range f.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether an object exists at key.
func (f *Fake) Has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}
