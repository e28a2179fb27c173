package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/pix-a-paper/pix-a-paper/internal/pixabay"
)

// APIKeyEnv 覆盖配置文件中的 APIKey。
const APIKeyEnv = "PIXABAY_API_KEY"

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)
	if err := v.BindEnv("APIKey", APIKeyEnv); err != nil {
		return nil, fmt.Errorf("绑定环境变量失败: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	applySearchDefaults(&cfg.Search)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cacheDir, err := filepath.Abs(expandHome(cfg.Global.CacheDir))
	if err != nil {
		return nil, fmt.Errorf("无法解析缓存目录: %w", err)
	}
	cfg.Global.CacheDir = cacheDir

	return &cfg, nil
}

// DefaultCacheDir 返回 ~/.cache/pix-a-paper/images，无法定位 home 时退回相对路径。
func DefaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".cache", "pix-a-paper", "images")
	}
	return filepath.Join(home, ".cache", "pix-a-paper", "images")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5080)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFormat", "json")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("CacheDir", DefaultCacheDir())
	v.SetDefault("CrossProcessLock", false)
	v.SetDefault("APIBaseURL", pixabay.DefaultBaseURL)
	v.SetDefault("SearchTimeout", "5s")
	v.SetDefault("FetchTimeout", "10s")
	v.SetDefault("ReuseCached", false)
	v.SetDefault("Search.ImageType", string(pixabay.ImageTypePhoto))
	v.SetDefault("Search.Category", "backgrounds")
	v.SetDefault("Search.Orientation", string(pixabay.OrientationHorizontal))
	v.SetDefault("Search.MinWidth", 3440)
	v.SetDefault("Search.MinHeight", 1440)
	v.SetDefault("Search.PerPage", 20)
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 5080
	}
	if strings.TrimSpace(g.CacheDir) == "" {
		g.CacheDir = DefaultCacheDir()
	}
	if g.APIBaseURL == "" {
		g.APIBaseURL = pixabay.DefaultBaseURL
	}
	if g.SearchTimeout.DurationValue() == 0 {
		g.SearchTimeout = Duration(pixabay.DefaultSearchTimeout)
	}
	if g.FetchTimeout.DurationValue() == 0 {
		g.FetchTimeout = Duration(10 * time.Second)
	}
	g.APIKey = strings.TrimSpace(g.APIKey)
}

func applySearchDefaults(s *SearchConfig) {
	s.ImageType = strings.ToLower(strings.TrimSpace(s.ImageType))
	s.Category = strings.ToLower(strings.TrimSpace(s.Category))
	s.Orientation = strings.ToLower(strings.TrimSpace(s.Orientation))
	if s.ImageType == "" {
		s.ImageType = string(pixabay.ImageTypeAll)
	}
	if s.Orientation == "" {
		s.Orientation = string(pixabay.OrientationAll)
	}
	if s.PerPage == 0 {
		s.PerPage = 20
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
