package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dfcoelho/cri-extractor/internal/common"
)

type memObject struct {
	data         []byte
	contentType  string
	lastModified time.Time
}

// Memory is an in-memory ObjectStore used by the local harness and tests.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memObject
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memObject)}
}

func (m *Memory) Get(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("memory get %s/%s: %w", bucket, key, common.ErrNotFound)
	}
	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return data, nil
}

func (m *Memory) Put(_ context.Context, bucket, key string, body []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data := make([]byte, len(body))
	copy(data, body)
	m.objects[bucket+"/"+key] = memObject{
		data:         data,
		contentType:  contentType,
		lastModified: time.Now(),
	}
	return nil
}

func (m *Memory) List(_ context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	full := bucket + "/" + prefix
	var infos []ObjectInfo
	for k, obj := range m.objects {
		if !strings.HasPrefix(k, full) {
			continue
		}
		infos = append(infos, ObjectInfo{
			Key:          strings.TrimPrefix(k, bucket+"/"),
			Size:         int64(len(obj.data)),
			LastModified: obj.lastModified,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// Touch overrides an object's modification time; tests use it to pin the
// "most recent prior artifact" ordering.
func (m *Memory) Touch(bucket, key string, t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if obj, ok := m.objects[bucket+"/"+key]; ok {
		obj.lastModified = t
		m.objects[bucket+"/"+key] = obj
	}
}
