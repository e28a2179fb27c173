package server

import (
	"net"
	"net/http"
	"time"

	"github.com/pix-a-paper/pix-a-paper/internal/version"
)

// Shared HTTP transport tunings，搜索与下载复用长连接并集中配置拨号超时。
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          32,
	MaxIdleConnsPerHost:   8,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	DialContext: (&net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// NewUpstreamClient 返回带整体超时的 http.Client；timeout<=0 时使用 fallback。
// 超时覆盖连接、读取响应头与正文的全过程，到期即视为网络错误。
func NewUpstreamClient(timeout, fallback time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = fallback
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &userAgentTransport{
			base:  defaultTransport.Clone(),
			agent: version.UserAgent(),
		},
	}
}

// userAgentTransport 为未设置 User-Agent 的请求补上本程序标识。
type userAgentTransport struct {
	base  http.RoundTripper
	agent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	cloned := req.Clone(req.Context())
	cloned.Header.Set("User-Agent", t.agent)
	return t.base.RoundTrip(cloned)
}
