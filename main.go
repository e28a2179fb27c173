package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/pix-a-paper/pix-a-paper/internal/cache"
	"github.com/pix-a-paper/pix-a-paper/internal/config"
	"github.com/pix-a-paper/pix-a-paper/internal/fetch"
	"github.com/pix-a-paper/pix-a-paper/internal/logging"
	"github.com/pix-a-paper/pix-a-paper/internal/pixabay"
	"github.com/pix-a-paper/pix-a-paper/internal/server"
	"github.com/pix-a-paper/pix-a-paper/internal/server/routes"
	"github.com/pix-a-paper/pix-a-paper/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
	once        bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

// errNoResults 表示 -once 模式下搜索没有任何结果。
var errNoResults = errors.New("没有符合条件的图片")

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		for k, v := range cacheFields(cfg) {
			fields[k] = v
		}
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动顺序：配置 → 磁盘缓存 → 搜索客户端 / 下载管线 → -once 或 Fiber server，
	// 所有请求共享同一个缓存实例与同一把缓存锁。
	storeOpts := []cache.Option{cache.WithLogger(logger)}
	if cfg.Global.CrossProcessLock {
		storeOpts = append(storeOpts, cache.WithFileLock())
	}
	store, err := cache.NewStore(cfg.Global.CacheDir, storeOpts...)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存目录失败: %v\n", err)
		return 1
	}

	searcher := pixabay.NewClient(
		cfg.Global.APIKey,
		cfg.Global.APIBaseURL,
		server.NewUpstreamClient(cfg.Global.SearchTimeout.DurationValue(), pixabay.DefaultSearchTimeout),
	)
	pipeline := fetch.NewPipeline(
		server.NewUpstreamClient(cfg.Global.FetchTimeout.DurationValue(), fetch.DefaultTimeout),
		store,
		logger,
		fetch.Options{ReuseCached: cfg.Global.ReuseCached},
	)

	fields := logging.BaseFields("startup", opts.configPath)
	for k, v := range cacheFields(cfg) {
		fields[k] = v
	}
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if opts.once {
		path, err := fetchFirst(context.Background(), searcher, pipeline, cfg.Search.SearchParams(), logger)
		if err != nil {
			fmt.Fprintf(stdErr, "获取图片失败: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdOut, path)
		return 0
	}

	if err := startHTTPServer(cfg, store, searcher, pipeline, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// fetchFirst 按配置的默认条件搜索，并下载第一条结果。
func fetchFirst(ctx context.Context, searcher server.Searcher, fetcher server.Fetcher, params pixabay.SearchParams, logger *logrus.Logger) (string, error) {
	resp, err := searcher.Search(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Hits) == 0 {
		return "", errNoResults
	}

	img := &resp.Hits[0]
	logger.WithFields(logrus.Fields{
		"action": "select",
		"id":     img.ID,
		"user":   img.User,
	}).Info("已选择图片")

	return fetcher.Fetch(ctx, img)
}

func cacheFields(cfg *config.Config) logrus.Fields {
	return logging.CacheFields(cfg.Global.CacheDir, cfg.Global.CacheMode(), cfg.Global.CrossProcessLock)
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("pix-a-paper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
		once       bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 PIX_A_PAPER_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")
	fs.BoolVar(&once, "once", false, "按配置搜索并下载第一张图片，输出本地路径后退出")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("PIX_A_PAPER_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
		once:        once,
	}, nil
}

func startHTTPServer(cfg *config.Config, store cache.Store, searcher server.Searcher, fetcher server.Fetcher, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Store:      store,
		Fetcher:    fetcher,
		Searcher:   searcher,
		Defaults:   cfg.Search.SearchParams(),
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterDiagnosticRoutes(app, store, routes.CacheInfo{
		Mode:         cfg.Global.CacheMode(),
		CrossProcess: cfg.Global.CrossProcessLock,
		Version:      version.Full(),
	})

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
