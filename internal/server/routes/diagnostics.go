package routes

import (
	"github.com/gofiber/fiber/v3"

	"github.com/pix-a-paper/pix-a-paper/internal/cache"
)

// CacheInfo 描述 /-/cache 诊断接口输出的静态配置。
type CacheInfo struct {
	Mode         string `json:"cache_mode"`
	CrossProcess bool   `json:"cross_process_lock"`
	Version      string `json:"version"`
}

// RegisterDiagnosticRoutes 暴露 /-/cache 与 /-/cache/:key 诊断接口，便于确认缓存目录与条目状态。
func RegisterDiagnosticRoutes(app *fiber.App, store cache.Store, info CacheInfo) {
	if app == nil || store == nil {
		return
	}

	app.Get("/-/cache", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"cache_dir":          store.Root(),
			"cache_mode":         info.Mode,
			"cross_process_lock": info.CrossProcess,
			"version":            info.Version,
		})
	})

	app.Get("/-/cache/:key", func(c fiber.Ctx) error {
		return c.JSON(encodeEntry(store, c.Params("key")))
	})
}

type entryPayload struct {
	Key         string `json:"key"`
	Cached      bool   `json:"cached"`
	HasMetadata bool   `json:"has_metadata"`
	Error       string `json:"error,omitempty"`
}

func encodeEntry(store cache.Store, key string) entryPayload {
	payload := entryPayload{Key: key, Cached: store.Contains(key)}
	_, ok, err := store.Metadata(key)
	payload.HasMetadata = ok
	if err != nil {
		payload.Error = err.Error()
	}
	return payload
}
