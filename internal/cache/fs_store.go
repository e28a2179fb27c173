package cache

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
)

const lockFileName = ".pix-a-paper.lock"

// Option 调整 NewStore 构造出的实例。
type Option func(*fileStore)

// WithLogger 注入结构化日志，缺省时丢弃所有日志。
func WithLogger(logger *logrus.Logger) Option {
	return func(s *fileStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFileLock 在实例互斥锁之外再持有 <root>/.pix-a-paper.lock 的 flock，
// 使共享同一缓存目录的多个进程（CLI 与常驻服务）也互斥。
func WithFileLock() Option {
	return func(s *fileStore) {
		s.flock = flock.New(filepath.Join(s.basePath, lockFileName))
	}
}

// NewStore 以 basePath 为根目录构建磁盘缓存，目录不存在时递归创建。
func NewStore(basePath string, opts ...Option) (Store, error) {
	if basePath == "" {
		return nil, errors.New("cache dir required")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, ioError("resolve", basePath, err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, ioError("mkdir", abs, err)
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &fileStore{
		basePath: abs,
		logger:   discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// fileStore 用单把互斥锁串行化所有读写，不区分 key 与读写模式。
type fileStore struct {
	basePath string
	logger   *logrus.Logger

	mu    sync.Mutex
	flock *flock.Flock
}

func (s *fileStore) Root() string {
	return s.basePath
}

func (s *fileStore) Get(key string) ([]byte, bool, error) {
	filePath, err := s.blobPath(key)
	if err != nil {
		return nil, false, err
	}

	unlock, err := s.lock()
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	s.logger.WithFields(logrus.Fields{"action": "cache_get", "key": key, "path": filePath}).Debug("cache lookup")

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, ioError("stat", filePath, err)
	}
	if info.IsDir() {
		return nil, false, nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, false, ioError("read", filePath, err)
	}
	return data, true, nil
}

func (s *fileStore) Put(key string, data []byte, opts PutOptions) (string, error) {
	filePath, err := s.blobPath(key)
	if err != nil {
		return "", err
	}

	unlock, err := s.lock()
	if err != nil {
		return "", err
	}
	defer unlock()

	if opts.Strict {
		exists, err := fileExists(filePath)
		if err != nil {
			return "", ioError("stat", filePath, err)
		}
		if exists {
			return "", ErrAlreadyExists
		}
	}

	s.logger.WithFields(logrus.Fields{
		"action": "cache_put",
		"key":    key,
		"path":   filePath,
		"bytes":  len(data),
		"strict": opts.Strict,
	}).Debug("cache write")

	if err := writeFileAtomic(filePath, data); err != nil {
		return "", err
	}

	if opts.Metadata != nil {
		payload, err := json.MarshalIndent(opts.Metadata, "", "  ")
		if err != nil {
			return "", ioError("encode", metadataPath(filePath), err)
		}
		if err := writeFileAtomic(metadataPath(filePath), payload); err != nil {
			return "", err
		}
	}

	return filePath, nil
}

func (s *fileStore) Contains(key string) bool {
	filePath, err := s.blobPath(key)
	if err != nil {
		return false
	}

	unlock, err := s.lock()
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("cache_lock_failed")
		return false
	}
	defer unlock()

	info, err := os.Stat(filePath)
	return err == nil && !info.IsDir()
}

func (s *fileStore) Metadata(key string) (map[string]any, bool, error) {
	filePath, err := s.blobPath(key)
	if err != nil {
		return nil, false, err
	}
	sidecar := metadataPath(filePath)

	unlock, err := s.lock()
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	payload, err := os.ReadFile(sidecar)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, ioError("read", sidecar, err)
	}

	var meta map[string]any
	if err := json.Unmarshal(payload, &meta); err != nil {
		return nil, true, ioError("decode", sidecar, err)
	}
	return meta, true, nil
}

// lock 获取实例互斥锁，启用 WithFileLock 时再获取跨进程 flock。
func (s *fileStore) lock() (func(), error) {
	s.mu.Lock()
	if s.flock == nil {
		return s.mu.Unlock, nil
	}
	if err := s.flock.Lock(); err != nil {
		s.mu.Unlock()
		return nil, ioError("lock", s.flock.Path(), err)
	}
	return func() {
		if err := s.flock.Unlock(); err != nil {
			s.logger.WithError(err).WithField("path", s.flock.Path()).Warn("cache_unlock_failed")
		}
		s.mu.Unlock()
	}, nil
}

// blobPath 将 key 映射为 <root>/<key>，拒绝任何会逃逸根目录的 key。
func (s *fileStore) blobPath(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", ErrInvalidKey
	}
	filePath := filepath.Join(s.basePath, key)
	if filepath.Dir(filePath) != s.basePath {
		return "", ErrInvalidKey
	}
	return filePath, nil
}

func metadataPath(blobPath string) string {
	return blobPath + ".json"
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// writeFileAtomic 通过临时文件 + rename 写入 target，失败时清理临时文件。
func writeFileAtomic(target string, data []byte) error {
	dir := filepath.Dir(target)
	tempFile, err := os.CreateTemp(dir, ".cache-*")
	if err != nil {
		return ioError("create", target, err)
	}
	tempName := tempFile.Name()

	_, err = tempFile.Write(data)
	if err == nil {
		err = tempFile.Chmod(0o644)
	}
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return ioError("write", target, err)
	}

	if err := os.Rename(tempName, target); err != nil {
		os.Remove(tempName)
		return ioError("rename", target, err)
	}
	return nil
}
