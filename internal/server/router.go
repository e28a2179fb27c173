package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pix-a-paper/pix-a-paper/internal/cache"
	"github.com/pix-a-paper/pix-a-paper/internal/fetch"
	"github.com/pix-a-paper/pix-a-paper/internal/logging"
	"github.com/pix-a-paper/pix-a-paper/internal/pixabay"
)

// Fetcher downloads a record into the cache and reports its local path.
type Fetcher interface {
	Fetch(ctx context.Context, rec fetch.Record) (string, error)
}

// Searcher is the remote search collaborator.
type Searcher interface {
	Search(ctx context.Context, params pixabay.SearchParams) (*pixabay.SearchResponse, error)
	Lookup(ctx context.Context, id int) (*pixabay.Image, error)
}

// AppOptions controls how the Fiber application should behave.
type AppOptions struct {
	Logger     *logrus.Logger
	Store      cache.Store
	Fetcher    Fetcher
	Searcher   Searcher
	Defaults   pixabay.SearchParams
	ListenPort int
}

const contextKeyRequestID = "_pixapaper_request_id"

// NewApp builds a Fiber application exposing search, fetch and cached-image
// routes with request-id and recover middlewares.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Store == nil {
		return nil, errors.New("cache store is required")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if opts.Searcher == nil {
		return nil, errors.New("searcher is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts.Logger))

	h := &handlers{
		logger:   opts.Logger,
		store:    opts.Store,
		fetcher:  opts.Fetcher,
		searcher: opts.Searcher,
		defaults: opts.Defaults,
	}
	app.Get("/search", h.search)
	app.Post("/images/:id/fetch", h.fetchImage)
	app.Get("/images/:key/metadata", h.cachedMetadata)
	app.Get("/images/:key", h.cachedImage)

	return app, nil
}

// requestContextMiddleware 负责生成请求 ID，并在请求结束后输出访问日志。
func requestContextMiddleware(logger *logrus.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		started := time.Now()
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		err := c.Next()

		fields := logging.RequestFields(reqID, c.Method(), c.Path(), c.Response().StatusCode())
		fields["elapsed_ms"] = time.Since(started).Milliseconds()
		if err != nil {
			logger.WithFields(fields).WithError(err).Warn("request_failed")
			return err
		}
		if !isDiagnosticsPath(c.Path()) {
			logger.WithFields(fields).Info("request_complete")
		}
		return nil
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func isDiagnosticsPath(path string) bool {
	return strings.HasPrefix(path, "/-/")
}
