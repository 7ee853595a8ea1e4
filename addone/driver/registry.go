package driver

import (
	"sort"
	"sync"

	"github.com/netsnapshot/netsnapshot/internal/script"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]Driver{}
)

// Register 注册驱动，同名覆盖
func Register(d Driver) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Descriptor().Name] = d
}

// Get 获取指定名称的驱动
func Get(name string) (Driver, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[name]
	return d, ok
}

// List 按名称排序的驱动描述
func List() []*Descriptor {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]*Descriptor, 0, len(registry))
	for _, d := range registry {
		out = append(out, d.Descriptor())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup 按驱动名查找属性定义
func Lookup(name string) (script.Schema, bool) {
	d, ok := Get(name)
	if !ok {
		return nil, false
	}
	return schema{d.Descriptor()}, true
}

// Schemas 已注册驱动的属性定义表
func Schemas() script.Schemas { return registrySchemas{} }

type registrySchemas struct{}

func (registrySchemas) Lookup(name string) (script.Schema, bool) { return Lookup(name) }
