package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseCLIFlagsPriority(t *testing.T) {
	t.Setenv("PIX_A_PAPER_CONFIG", "/tmp/env.toml")

	opts, err := parseCLIFlags([]string{})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/env.toml" {
		t.Fatalf("应优先使用环境变量，得到 %s", opts.configPath)
	}

	opts, err = parseCLIFlags([]string{"--config", "/tmp/flag.toml", "-once"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/flag.toml" {
		t.Fatalf("flag 应高于环境变量，得到 %s", opts.configPath)
	}
	if !opts.once {
		t.Fatalf("-once 应被解析")
	}
}

func TestParseCLIFlagsDefaultPath(t *testing.T) {
	t.Setenv("PIX_A_PAPER_CONFIG", "")
	opts, err := parseCLIFlags(nil)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "config.toml" {
		t.Fatalf("默认配置路径应为 config.toml，得到 %s", opts.configPath)
	}
	if _, err := parseCLIFlags([]string{"-unknown"}); err == nil {
		t.Fatalf("未知参数应返回错误")
	}
}

func TestRunCheckConfigSuccess(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{configPath: configFixture(t, "valid.toml"), checkOnly: true})
	if code != 0 {
		t.Fatalf("期望退出码 0，得到 %d (stderr=%s)", code, stdErrBuffer().String())
	}
}

func TestRunCheckConfigFailure(t *testing.T) {
	t.Setenv("PIXABAY_API_KEY", "")
	useBufferWriters(t)
	code := run(cliOptions{configPath: configFixture(t, "missing.toml"), checkOnly: true})
	if code == 0 {
		t.Fatalf("无效配置应返回非零退出码")
	}
	if !strings.Contains(stdErrBuffer().String(), "加载配置失败") {
		t.Fatalf("stderr 应包含失败原因，得到 %s", stdErrBuffer().String())
	}
}

func TestRunVersionOutput(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{showVersion: true})
	if code != 0 {
		t.Fatalf("version 模式应成功退出，得到 %d", code)
	}
	if !strings.Contains(stdOut.(*bytes.Buffer).String(), "pix-a-paper") {
		t.Fatalf("version 输出应包含 pix-a-paper 标识")
	}
}

func TestRunOnceFetchesFirstHit(t *testing.T) {
	var upstream *httptest.Server
	upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/":
			if r.URL.Query().Get("key") != "once-key" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"total":1,"totalHits":1,"hits":[{"id":7,"user":"bob","largeImageURL":"%s/large.jpg"}]}`, upstream.URL)
		case "/large.jpg":
			w.Write([]byte("wallpaper"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(upstream.Close)

	cacheDir := filepath.Join(t.TempDir(), "images")
	configPath := writeConfigFile(t, fmt.Sprintf(`
APIKey = "once-key"
APIBaseURL = "%s/api/"
CacheDir = "%s"
LogLevel = "warn"
`, upstream.URL, cacheDir))

	useBufferWriters(t)
	code := run(cliOptions{configPath: configPath, once: true})
	if code != 0 {
		t.Fatalf("-once 应成功，得到 %d (stderr=%s)", code, stdErrBuffer().String())
	}

	want := filepath.Join(cacheDir, "7.jpg")
	if got := strings.TrimSpace(stdOutBuffer().String()); got != want {
		t.Fatalf("期望输出 %s，得到 %s", want, got)
	}
	data, err := os.ReadFile(want)
	if err != nil || string(data) != "wallpaper" {
		t.Fatalf("缓存文件内容错误: %q, %v", data, err)
	}
	if _, err := os.Stat(want + ".json"); err != nil {
		t.Fatalf("应写入 sidecar: %v", err)
	}
}

func TestRunOnceWithoutResults(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total":0,"totalHits":0,"hits":[]}`))
	}))
	t.Cleanup(upstream.Close)

	configPath := writeConfigFile(t, fmt.Sprintf(`
APIKey = "once-key"
APIBaseURL = "%s/"
CacheDir = "%s"
`, upstream.URL, filepath.Join(t.TempDir(), "images")))

	useBufferWriters(t)
	if code := run(cliOptions{configPath: configPath, once: true}); code == 0 {
		t.Fatalf("无搜索结果时应返回非零退出码")
	}
	if !strings.Contains(stdErrBuffer().String(), errNoResults.Error()) {
		t.Fatalf("stderr 应说明无结果，得到 %s", stdErrBuffer().String())
	}
}
