package storage

import (
	"context"
	"io"
	"sync"
)

// Memory is an in-process Store for local runs and tests.
type Memory struct {
	mu      sync.Mutex
	objects map[Bucket]map[string]Object
	// Uploads counts successful writes.
	Uploads int
}

type Object struct {
	Data        []byte
	ContentType string
}

func NewMemory() *Memory {
	return &Memory{objects: map[Bucket]map[string]Object{}}
}

func (m *Memory) Upload(ctx context.Context, bucket Bucket, key string, r io.Reader, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects[bucket] == nil {
		m.objects[bucket] = map[string]Object{}
	}
	m.objects[bucket][key] = Object{Data: data, ContentType: contentType}
	m.Uploads++
	return nil
}

func (m *Memory) Download(ctx context.Context, bucket Bucket, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[bucket][key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), obj.Data...), nil
}

func (m *Memory) Delete(ctx context.Context, bucket Bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects[bucket], key)
	return nil
}

// Get returns the stored object, if any.
func (m *Memory) Get(bucket Bucket, key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[bucket][key]
	return obj, ok
}

// Len counts the objects in bucket.
func (m *Memory) Len(bucket Bucket) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects[bucket])
}
