package storage

import (
	"context"
	"errors"
)

// ErrEmptyKey 键为空
// ErrEmptyKey is returned when an operation is given a blank key
var ErrEmptyKey = errors.New("storage key is empty")

// Store 持久化键值接口，值为不透明文本
// Store is a durable key-value store whose values are opaque text blobs
type Store interface {
	// Get 返回键对应的值；不存在时 ok=false
	// Get returns the value for key; ok is false when the key is absent
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Put(ctx context.Context, key, value string) error
	// Delete 删除键；键不存在不是错误
	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
	// Keys 按最近更新时间倒序列出所有键
	// Keys lists all keys, most recently updated first
	Keys(ctx context.Context) ([]string, error)

	// 生命周期 / Lifecycle
	Close() error
}
