package pixabay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pix-a-paper/pix-a-paper/internal/fetch"
)

const (
	// DefaultBaseURL 是 Pixabay 图片搜索接口。
	DefaultBaseURL = "https://pixabay.com/api/"
	// DefaultSearchTimeout 是搜索请求的默认超时。
	DefaultSearchTimeout = 5 * time.Second

	defaultPerPage = 20
)

// ErrImageNotFound 表示按 ID 查询时 API 未返回任何结果。
var ErrImageNotFound = errors.New("pixabay image not found")

// SearchParams 描述一次搜索；零值字段使用 API 的默认行为。
type SearchParams struct {
	ImageType   ImageType
	Category    Category
	Orientation Orientation
	MinWidth    int
	MinHeight   int
	PerPage     int
	Page        int
}

// Client issues search queries against the Pixabay API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient 构造搜索客户端；baseURL 为空时使用 DefaultBaseURL，
// httpClient 为空时使用 DefaultSearchTimeout。
func NewClient(apiKey, baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultSearchTimeout}
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    httpClient,
	}
}

// Search 执行一次图片搜索。
func (c *Client) Search(ctx context.Context, params SearchParams) (*SearchResponse, error) {
	return c.query(ctx, searchQuery(params))
}

// Lookup 通过 id 参数获取单条记录。
func (c *Client) Lookup(ctx context.Context, id int) (*Image, error) {
	q := url.Values{}
	q.Set("id", strconv.Itoa(id))
	resp, err := c.query(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(resp.Hits) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrImageNotFound, id)
	}
	return &resp.Hits[0], nil
}

func searchQuery(p SearchParams) url.Values {
	q := url.Values{}
	imageType := p.ImageType
	if imageType == "" {
		imageType = ImageTypeAll
	}
	orientation := p.Orientation
	if orientation == "" {
		orientation = OrientationAll
	}
	perPage := p.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	page := p.Page
	if page <= 0 {
		page = 1
	}

	q.Set("image_type", string(imageType))
	q.Set("orientation", string(orientation))
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", strconv.Itoa(page))
	q.Set("min_width", strconv.Itoa(p.MinWidth))
	q.Set("min_height", strconv.Itoa(p.MinHeight))
	if p.Category != "" {
		q.Set("category", string(p.Category))
	}
	return q
}

func (c *Client) query(ctx context.Context, q url.Values) (*SearchResponse, error) {
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	display := *endpoint
	display.RawQuery = q.Encode()

	q.Set("key", c.apiKey)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, &fetch.NetworkError{URL: display.String(), Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// url.Error 会带出含 key 的完整地址，只保留底层原因。
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, &fetch.NetworkError{URL: display.String(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &fetch.NetworkError{URL: display.String(), StatusCode: resp.StatusCode}
	}

	var out SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &out, nil
}
