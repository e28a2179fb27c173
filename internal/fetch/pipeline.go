package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pix-a-paper/pix-a-paper/internal/cache"
)

// DefaultTimeout 是单次下载的默认超时。
const DefaultTimeout = 10 * time.Second

const keyExtension = ".jpg"

// Record 是远端搜索结果中可下载的一条记录。
type Record interface {
	// RecordID 返回远端唯一 ID，用于生成缓存 key。
	RecordID() int
	// PrimaryURL 返回原图地址，不存在时为空串。
	PrimaryURL() string
	// FallbackURL 返回大图预览地址。
	FallbackURL() string
	// Metadata 返回记录的全部字段，原样写入 sidecar。
	Metadata() (map[string]any, error)
}

// Options 控制 Pipeline 的可选行为。
type Options struct {
	// ReuseCached 为 true 时先检查缓存，命中则不再下载。
	// 默认 false：每次 Fetch 都会重新下载并覆盖已有条目。
	ReuseCached bool
}

// Pipeline 负责 “选择 URL → 下载 → 写缓存 → 返回本地路径”。
// 下载发生在缓存锁之外，同一 key 的并发 Fetch 以最后完成者为准。
type Pipeline struct {
	client *http.Client
	store  cache.Store
	logger *logrus.Logger
	opts   Options
}

// NewPipeline constructs a pipeline. A nil client falls back to one with
// DefaultTimeout; a nil logger discards output.
func NewPipeline(client *http.Client, store cache.Store, logger *logrus.Logger, opts Options) *Pipeline {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Pipeline{
		client: client,
		store:  store,
		logger: logger,
		opts:   opts,
	}
}

// Key 返回记录对应的缓存 key，例如 "42.jpg"。
func Key(id int) string {
	return strconv.Itoa(id) + keyExtension
}

// SourceURL 优先返回原图地址，缺失时退回大图预览地址。
func SourceURL(rec Record) string {
	if u := rec.PrimaryURL(); u != "" {
		return u
	}
	return rec.FallbackURL()
}

// Fetch 下载 rec 并写入缓存，返回缓存文件的本地路径。
func (p *Pipeline) Fetch(ctx context.Context, rec Record) (string, error) {
	started := time.Now()
	key := Key(rec.RecordID())
	source := SourceURL(rec)
	fields := logrus.Fields{
		"action": "fetch",
		"id":     rec.RecordID(),
		"key":    key,
		"url":    source,
	}

	if p.opts.ReuseCached && p.store.Contains(key) {
		path := filepath.Join(p.store.Root(), key)
		fields["cache_hit"] = true
		fields["elapsed_ms"] = time.Since(started).Milliseconds()
		p.logger.WithFields(fields).Info("fetch_complete")
		return path, nil
	}

	path, err := p.download(ctx, rec, key, source)
	fields["cache_hit"] = false
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if err != nil {
		p.logger.WithFields(fields).WithError(err).Error("fetch_failed")
		return "", err
	}
	fields["path"] = path
	p.logger.WithFields(fields).Info("fetch_complete")
	return path, nil
}

func (p *Pipeline) download(ctx context.Context, rec Record, key, source string) (string, error) {
	if source == "" {
		return "", ErrNoSourceURL
	}

	body, err := p.get(ctx, source)
	if err != nil {
		return "", err
	}

	meta, err := rec.Metadata()
	if err != nil {
		return "", fmt.Errorf("encode metadata for %s: %w", key, err)
	}

	return p.store.Put(key, body, cache.PutOptions{Metadata: meta})
}

func (p *Pipeline) get(ctx context.Context, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, &NetworkError{URL: source, Err: err}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: source, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &NetworkError{URL: source, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: source, Err: err}
	}
	return body, nil
}
