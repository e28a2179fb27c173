package server

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/pix-a-paper/pix-a-paper/internal/cache"
	"github.com/pix-a-paper/pix-a-paper/internal/fetch"
	"github.com/pix-a-paper/pix-a-paper/internal/pixabay"
)

type handlers struct {
	logger   *logrus.Logger
	store    cache.Store
	fetcher  Fetcher
	searcher Searcher
	defaults pixabay.SearchParams
}

// search 以配置中的默认条件为基础，允许通过 query 覆盖分页、分类与方向。
func (h *handlers) search(c fiber.Ctx) error {
	params, err := h.searchParams(c)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, err.Error())
	}

	resp, err := h.searcher.Search(requestContext(c), params)
	if err != nil {
		return h.fail(c, "search", err)
	}

	hits := make([]map[string]any, 0, len(resp.Hits))
	for i := range resp.Hits {
		meta, err := resp.Hits[i].Metadata()
		if err != nil {
			return h.fail(c, "search", err)
		}
		hits = append(hits, meta)
	}
	return c.JSON(fiber.Map{
		"total":     resp.Total,
		"totalHits": resp.TotalHits,
		"hits":      hits,
	})
}

func (h *handlers) searchParams(c fiber.Ctx) (pixabay.SearchParams, error) {
	params := h.defaults
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page <= 0 {
			return params, errors.New("invalid_page")
		}
		params.Page = page
	}
	if raw := c.Query("per_page"); raw != "" {
		perPage, err := strconv.Atoi(raw)
		if err != nil || perPage < 3 || perPage > 200 {
			return params, errors.New("invalid_per_page")
		}
		params.PerPage = perPage
	}
	if raw, ok := queryValue(c, "category"); ok {
		if !pixabay.ValidCategory(raw) {
			return params, errors.New("invalid_category")
		}
		params.Category = pixabay.Category(raw)
	}
	if raw, ok := queryValue(c, "orientation"); ok {
		if !pixabay.ValidOrientation(raw) {
			return params, errors.New("invalid_orientation")
		}
		params.Orientation = pixabay.Orientation(raw)
	}
	return params, nil
}

// fetchImage 通过 ID 查询记录后交给 Fetcher 下载，返回缓存 key 与本地路径。
func (h *handlers) fetchImage(c fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return writeError(c, fiber.StatusBadRequest, "invalid_id")
	}

	ctx := requestContext(c)
	img, err := h.searcher.Lookup(ctx, id)
	if err != nil {
		return h.fail(c, "lookup", err)
	}

	path, err := h.fetcher.Fetch(ctx, img)
	if err != nil {
		return h.fail(c, "fetch", err)
	}
	return c.JSON(fiber.Map{
		"key":  fetch.Key(img.ID),
		"path": path,
	})
}

func (h *handlers) cachedImage(c fiber.Ctx) error {
	data, ok, err := h.store.Get(c.Params("key"))
	if err != nil {
		return h.fail(c, "cache_get", err)
	}
	if !ok {
		return writeError(c, fiber.StatusNotFound, "not_cached")
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	return c.Send(data)
}

func (h *handlers) cachedMetadata(c fiber.Ctx) error {
	meta, ok, err := h.store.Metadata(c.Params("key"))
	if err != nil {
		return h.fail(c, "cache_metadata", err)
	}
	if !ok {
		return writeError(c, fiber.StatusNotFound, "not_cached")
	}
	return c.JSON(meta)
}

// fail 将领域错误映射为 HTTP 状态码，并输出带 request_id 的结构化日志。
func (h *handlers) fail(c fiber.Ctx, action string, err error) error {
	status, code := classify(err)
	fields := logrus.Fields{
		"action": action,
		"status": status,
	}
	if reqID := RequestID(c); reqID != "" {
		fields["request_id"] = reqID
	}
	entry := h.logger.WithFields(fields).WithError(err)
	if status >= fiber.StatusInternalServerError {
		entry.Error(code)
	} else {
		entry.Warn(code)
	}
	return writeError(c, status, code)
}

func classify(err error) (int, string) {
	var netErr *fetch.NetworkError
	var ioErr *cache.IOError
	switch {
	case errors.Is(err, pixabay.ErrImageNotFound):
		return fiber.StatusNotFound, "image_not_found"
	case errors.Is(err, cache.ErrInvalidKey):
		return fiber.StatusBadRequest, "invalid_key"
	case errors.Is(err, fetch.ErrNoSourceURL):
		return fiber.StatusBadGateway, "no_source_url"
	case errors.As(err, &netErr):
		return fiber.StatusBadGateway, "upstream_failed"
	case errors.As(err, &ioErr):
		return fiber.StatusInternalServerError, "cache_io_failed"
	default:
		return fiber.StatusInternalServerError, "internal_error"
	}
}

func writeError(c fiber.Ctx, status int, code string) error {
	return c.Status(status).JSON(fiber.Map{"error": code})
}

func requestContext(c fiber.Ctx) context.Context {
	if ctx := c.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// queryValue 区分 “未传参” 与 “显式传空串”，后者用于清除默认分类。
func queryValue(c fiber.Ctx, key string) (string, bool) {
	if !c.Request().URI().QueryArgs().Has(key) {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(c.Query(key))), true
}
