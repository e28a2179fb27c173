package pixabay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/pix-a-paper/pix-a-paper/internal/fetch"
)

// ImageType 对应 image_type 查询参数。
type ImageType string

const (
	ImageTypeAll          ImageType = "all"
	ImageTypePhoto        ImageType = "photo"
	ImageTypeIllustration ImageType = "illustration"
	ImageTypeVector       ImageType = "vector"
)

// Orientation 对应 orientation 查询参数。
type Orientation string

const (
	OrientationAll        Orientation = "all"
	OrientationHorizontal Orientation = "horizontal"
	OrientationVertical   Orientation = "vertical"
)

// Category 对应 category 查询参数，空串表示不限。
type Category string

var (
	imageTypes   = []ImageType{ImageTypeAll, ImageTypePhoto, ImageTypeIllustration, ImageTypeVector}
	orientations = []Orientation{OrientationAll, OrientationHorizontal, OrientationVertical}
	categories   = []Category{
		"backgrounds", "fashion", "nature", "science", "education",
		"feelings", "health", "people", "religion", "places",
		"animals", "industry", "computer", "food", "sports",
		"transportation", "travel", "buildings", "business", "music",
	}
)

// ValidImageType reports whether s is an accepted image_type value.
func ValidImageType(s string) bool {
	for _, t := range imageTypes {
		if string(t) == s {
			return true
		}
	}
	return false
}

// ValidOrientation reports whether s is an accepted orientation value.
func ValidOrientation(s string) bool {
	for _, o := range orientations {
		if string(o) == s {
			return true
		}
	}
	return false
}

// ValidCategory reports whether s is empty or one of the supported categories.
func ValidCategory(s string) bool {
	if s == "" {
		return true
	}
	for _, c := range categories {
		if string(c) == s {
			return true
		}
	}
	return false
}

// ChoiceList 返回以 | 连接的候选值，用于配置校验提示。
func ChoiceList[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, "|")
}

// ImageTypes returns the supported image_type values.
func ImageTypes() []ImageType {
	return append([]ImageType(nil), imageTypes...)
}

// Orientations returns the supported orientation values.
func Orientations() []Orientation {
	return append([]Orientation(nil), orientations...)
}

// Categories returns the supported category values.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// Image 是搜索结果中的一条记录。未声明的 JSON 字段保存在 Extra 中，
// 写入缓存 sidecar 时原样带出。
type Image struct {
	ID            int     `json:"id" mapstructure:"id"`
	PageURL       string  `json:"pageURL" mapstructure:"pageURL"`
	Type          string  `json:"type" mapstructure:"type"`
	Tags          string  `json:"tags" mapstructure:"tags"`
	PreviewURL    string  `json:"previewURL" mapstructure:"previewURL"`
	PreviewWidth  int     `json:"previewWidth" mapstructure:"previewWidth"`
	PreviewHeight int     `json:"previewHeight" mapstructure:"previewHeight"`
	ImageWidth    int     `json:"imageWidth" mapstructure:"imageWidth"`
	ImageHeight   int     `json:"imageHeight" mapstructure:"imageHeight"`
	ImageSize     int     `json:"imageSize" mapstructure:"imageSize"`
	LargeImageURL string  `json:"largeImageURL" mapstructure:"largeImageURL"`
	ImageURL      *string `json:"imageURL" mapstructure:"imageURL"`
	Views         int     `json:"views" mapstructure:"views"`
	Downloads     int     `json:"downloads" mapstructure:"downloads"`
	Likes         int     `json:"likes" mapstructure:"likes"`
	Comments      int     `json:"comments" mapstructure:"comments"`
	UserID        int     `json:"user_id" mapstructure:"user_id"`
	User          string  `json:"user" mapstructure:"user"`
	UserImageURL  string  `json:"userImageURL" mapstructure:"userImageURL"`

	Extra map[string]json.RawMessage `json:"-" mapstructure:"-"`
}

var _ fetch.Record = (*Image)(nil)

// SearchResponse 是 API 的顶层响应。
type SearchResponse struct {
	Total     int     `json:"total"`
	TotalHits int     `json:"totalHits"`
	Hits      []Image `json:"hits"`
}

func (img *Image) RecordID() int { return img.ID }

func (img *Image) PrimaryURL() string {
	if img.ImageURL == nil {
		return ""
	}
	return *img.ImageURL
}

func (img *Image) FallbackURL() string { return img.LargeImageURL }

// Metadata 返回记录的全部字段：声明字段经 mapstructure 展开，Extra 中的字段原样补充。
func (img *Image) Metadata() (map[string]any, error) {
	out := map[string]any{}
	if err := mapstructure.Decode(*img, &out); err != nil {
		return nil, fmt.Errorf("flatten image %d: %w", img.ID, err)
	}
	for key, raw := range img.Extra {
		if _, declared := out[key]; declared {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("decode extra field %s: %w", key, err)
		}
		out[key] = value
	}
	return out, nil
}

// UnmarshalJSON decodes the declared fields and keeps everything else in Extra.
func (img *Image) UnmarshalJSON(data []byte) error {
	type plain Image
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for name := range declaredFields() {
		delete(all, name)
	}
	if len(all) > 0 {
		decoded.Extra = all
	}

	*img = Image(decoded)
	return nil
}

var declaredFields = sync.OnceValue(func() map[string]struct{} {
	fields := map[string]struct{}{}
	t := reflect.TypeOf(Image{})
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			fields[name] = struct{}{}
		}
	}
	return fields
})
