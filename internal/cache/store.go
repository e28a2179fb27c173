package cache

import (
	"errors"
	"fmt"
)

// Store 负责管理本地图片缓存的读写。磁盘布局遵循：
//
//	<CacheDir>/<key>         # 二进制正文
//	<CacheDir>/<key>.json    # 可选的元数据 sidecar（缩进 JSON）
//
// 所有操作共享同一把实例级互斥锁，锁覆盖整个磁盘 I/O 过程。
type Store interface {
	// Get 返回 key 对应的正文；不存在时返回 (nil, false, nil)。
	Get(key string) ([]byte, bool, error)

	// Put 先写正文，再写元数据，返回正文文件的绝对路径。
	// opts.Strict 为 true 且条目已存在时返回 ErrAlreadyExists，不做任何写入。
	Put(key string, data []byte, opts PutOptions) (string, error)

	// Contains 仅检查正文文件是否存在，不关心 sidecar。
	Contains(key string) bool

	// Metadata 读取 sidecar 并解析为 map；sidecar 不存在时返回 (nil, false, nil)。
	Metadata(key string) (map[string]any, bool, error)

	// Root 返回缓存根目录。
	Root() string
}

// PutOptions 控制写入过程中的可选属性。
type PutOptions struct {
	// Metadata 为 nil 时不写 sidecar。
	Metadata map[string]any
	Strict   bool
}

var (
	// ErrAlreadyExists 表示严格模式下目标条目已存在。
	ErrAlreadyExists = errors.New("cache entry already exists")

	// ErrInvalidKey 表示 key 为空或会逃逸出缓存根目录。
	ErrInvalidKey = errors.New("invalid cache key")
)

// IOError wraps a filesystem failure together with the operation and path that
// triggered it.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func ioError(op, path string, err error) error {
	return &IOError{Op: op, Path: path, Err: err}
}
