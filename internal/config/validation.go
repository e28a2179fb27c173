package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/pix-a-paper/pix-a-paper/internal/pixabay"
)

const (
	minPerPage = 3
	maxPerPage = 200
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError("Global.LogLevel", err.Error())
	}
	if g.LogFormat != "" && g.LogFormat != "json" && g.LogFormat != "text" {
		return newFieldError("Global.LogFormat", "仅支持 json|text")
	}
	if g.CacheDir == "" {
		return newFieldError("Global.CacheDir", "不能为空")
	}
	if !g.HasAPIKey() {
		return newFieldError("Global.APIKey", "不能为空（可通过 "+APIKeyEnv+" 设置）")
	}
	if err := validateBaseURL(g.APIBaseURL); err != nil {
		return fmt.Errorf("Global.APIBaseURL: %w", err)
	}
	if g.SearchTimeout.DurationValue() <= 0 {
		return newFieldError("Global.SearchTimeout", "必须大于 0")
	}
	if g.FetchTimeout.DurationValue() <= 0 {
		return newFieldError("Global.FetchTimeout", "必须大于 0")
	}

	s := c.Search
	if !pixabay.ValidImageType(s.ImageType) {
		return newFieldError(searchField("ImageType"), "仅支持 "+pixabay.ChoiceList(pixabay.ImageTypes()))
	}
	if !pixabay.ValidCategory(s.Category) {
		return newFieldError(searchField("Category"), "仅支持 "+pixabay.ChoiceList(pixabay.Categories()))
	}
	if !pixabay.ValidOrientation(s.Orientation) {
		return newFieldError(searchField("Orientation"), "仅支持 "+pixabay.ChoiceList(pixabay.Orientations()))
	}
	if s.MinWidth < 0 {
		return newFieldError(searchField("MinWidth"), "不能为负数")
	}
	if s.MinHeight < 0 {
		return newFieldError(searchField("MinHeight"), "不能为负数")
	}
	if s.PerPage < minPerPage || s.PerPage > maxPerPage {
		return newFieldError(searchField("PerPage"), fmt.Sprintf("必须在 %d-%d", minPerPage, maxPerPage))
	}

	return nil
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return errors.New("缺少 API 地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("缺少 Host: %s", raw)
	}
	return nil
}

// SearchParams 将配置中的默认搜索条件转换为客户端参数。
func (s SearchConfig) SearchParams() pixabay.SearchParams {
	return pixabay.SearchParams{
		ImageType:   pixabay.ImageType(s.ImageType),
		Category:    pixabay.Category(s.Category),
		Orientation: pixabay.Orientation(s.Orientation),
		MinWidth:    s.MinWidth,
		MinHeight:   s.MinHeight,
		PerPage:     s.PerPage,
	}
}
