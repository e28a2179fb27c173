package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "5s"、"1m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// GlobalConfig 描述进程级行为：日志、缓存目录、API 访问与超时。
type GlobalConfig struct {
	ListenPort       int      `mapstructure:"ListenPort"`
	LogLevel         string   `mapstructure:"LogLevel"`
	LogFormat        string   `mapstructure:"LogFormat"`
	LogFilePath      string   `mapstructure:"LogFilePath"`
	LogMaxSize       int      `mapstructure:"LogMaxSize"`
	LogMaxBackups    int      `mapstructure:"LogMaxBackups"`
	LogCompress      bool     `mapstructure:"LogCompress"`
	CacheDir         string   `mapstructure:"CacheDir"`
	CrossProcessLock bool     `mapstructure:"CrossProcessLock"`
	APIKey           string   `mapstructure:"APIKey"`
	APIBaseURL       string   `mapstructure:"APIBaseURL"`
	SearchTimeout    Duration `mapstructure:"SearchTimeout"`
	FetchTimeout     Duration `mapstructure:"FetchTimeout"`
	ReuseCached      bool     `mapstructure:"ReuseCached"`
}

// SearchConfig 是 -once 模式与 /search 接口使用的默认搜索条件。
type SearchConfig struct {
	ImageType   string `mapstructure:"ImageType"`
	Category    string `mapstructure:"Category"`
	Orientation string `mapstructure:"Orientation"`
	MinWidth    int    `mapstructure:"MinWidth"`
	MinHeight   int    `mapstructure:"MinHeight"`
	PerPage     int    `mapstructure:"PerPage"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global GlobalConfig `mapstructure:",squash"`
	Search SearchConfig `mapstructure:"Search"`
}

// HasAPIKey 表示是否配置了 API key（文件或 PIXABAY_API_KEY）。
func (g GlobalConfig) HasAPIKey() bool {
	return strings.TrimSpace(g.APIKey) != ""
}

// CacheMode 输出 `reuse` 或 `refetch`，供日志字段使用。
func (g GlobalConfig) CacheMode() string {
	if g.ReuseCached {
		return "reuse"
	}
	return "refetch"
}
