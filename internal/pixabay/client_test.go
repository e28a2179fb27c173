package pixabay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pix-a-paper/pix-a-paper/internal/fetch"
)

// apiStub 模拟 Pixabay 搜索接口，记录最后一次查询参数。
type apiStub struct {
	*httptest.Server

	mu    sync.Mutex
	query url.Values
}

func newAPIStub(t *testing.T, status int, body []byte) *apiStub {
	t.Helper()
	stub := &apiStub{}
	stub.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.mu.Lock()
		stub.query = r.URL.Query()
		stub.mu.Unlock()
		w.WriteHeader(status)
		w.Write(body)
	}))
	t.Cleanup(stub.Close)
	return stub
}

func (s *apiStub) lastQuery() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

func searchFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "search.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

func TestSearchBuildsQuery(t *testing.T) {
	stub := newAPIStub(t, http.StatusOK, searchFixture(t))
	client := NewClient("secret", stub.URL+"/api/", stub.Client())

	resp, err := client.Search(context.Background(), SearchParams{
		ImageType: ImageTypePhoto,
		Category:  "backgrounds",
		MinWidth:  3440,
		MinHeight: 1440,
		PerPage:   5,
	})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if resp.TotalHits != 500 || len(resp.Hits) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	q := stub.lastQuery()
	expect := map[string]string{
		"key":         "secret",
		"image_type":  "photo",
		"category":    "backgrounds",
		"orientation": "all",
		"per_page":    "5",
		"page":        "1",
		"min_width":   "3440",
		"min_height":  "1440",
	}
	for k, v := range expect {
		if got := q.Get(k); got != v {
			t.Fatalf("query %s: expected %s, got %s", k, v, got)
		}
	}
}

func TestSearchOmitsEmptyCategory(t *testing.T) {
	stub := newAPIStub(t, http.StatusOK, []byte(`{"total":0,"totalHits":0,"hits":[]}`))
	client := NewClient("secret", stub.URL, stub.Client())

	if _, err := client.Search(context.Background(), SearchParams{}); err != nil {
		t.Fatalf("search error: %v", err)
	}
	if _, ok := stub.lastQuery()["category"]; ok {
		t.Fatalf("empty category should not be sent")
	}
	if got := stub.lastQuery().Get("per_page"); got != "20" {
		t.Fatalf("expected default per_page 20, got %s", got)
	}
}

func TestSearchStatusErrorHidesKey(t *testing.T) {
	stub := newAPIStub(t, http.StatusBadRequest, []byte("[ERROR 400] Invalid API key"))
	client := NewClient("secret", stub.URL, stub.Client())

	_, err := client.Search(context.Background(), SearchParams{})
	var netErr *fetch.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if netErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", netErr.StatusCode)
	}
	if strings.Contains(err.Error(), "secret") {
		t.Fatalf("error must not leak api key: %v", err)
	}
}

func TestSearchDecodeError(t *testing.T) {
	stub := newAPIStub(t, http.StatusOK, []byte("not json"))
	client := NewClient("secret", stub.URL, stub.Client())

	_, err := client.Search(context.Background(), SearchParams{})
	if err == nil {
		t.Fatalf("expected decode error")
	}
	var netErr *fetch.NetworkError
	if errors.As(err, &netErr) {
		t.Fatalf("decode failure is not a network error: %v", err)
	}
}

func TestLookup(t *testing.T) {
	stub := newAPIStub(t, http.StatusOK, searchFixture(t))
	client := NewClient("secret", stub.URL, stub.Client())

	img, err := client.Lookup(context.Background(), 195893)
	if err != nil {
		t.Fatalf("lookup error: %v", err)
	}
	if img.ID != 195893 {
		t.Fatalf("unexpected image %d", img.ID)
	}
	if got := stub.lastQuery().Get("id"); got != "195893" {
		t.Fatalf("expected id query, got %s", got)
	}
}

func TestLookupNotFound(t *testing.T) {
	stub := newAPIStub(t, http.StatusOK, []byte(`{"total":0,"totalHits":0,"hits":[]}`))
	client := NewClient("secret", stub.URL, stub.Client())

	if _, err := client.Lookup(context.Background(), 1); !errors.Is(err, ErrImageNotFound) {
		t.Fatalf("expected ErrImageNotFound, got %v", err)
	}
}

func TestImageRecordURLs(t *testing.T) {
	var resp SearchResponse
	if err := json.Unmarshal(searchFixture(t), &resp); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}

	withoutFull := &resp.Hits[0]
	if withoutFull.PrimaryURL() != "" {
		t.Fatalf("imageURL absent should yield empty primary url")
	}
	if fetch.SourceURL(withoutFull) != withoutFull.LargeImageURL {
		t.Fatalf("expected fallback to largeImageURL")
	}

	withFull := &resp.Hits[1]
	if fetch.SourceURL(withFull) != "https://pixabay.com/get/42_full.jpg" {
		t.Fatalf("expected primary url, got %s", fetch.SourceURL(withFull))
	}
	if withFull.RecordID() != 42 {
		t.Fatalf("unexpected record id %d", withFull.RecordID())
	}
}

func TestImageMetadataPassesThroughUnknownFields(t *testing.T) {
	var resp SearchResponse
	if err := json.Unmarshal(searchFixture(t), &resp); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}

	meta, err := resp.Hits[0].Metadata()
	if err != nil {
		t.Fatalf("metadata error: %v", err)
	}
	if meta["id"] != 195893 || meta["user"] != "Josch13" {
		t.Fatalf("declared fields missing: %v", meta)
	}
	if meta["webformatURL"] != "https://pixabay.com/get/35bbf209e13e39d2_640.jpg" {
		t.Fatalf("unknown field should pass through, got %v", meta["webformatURL"])
	}
	if meta["collections"] != json.Number("1986") {
		t.Fatalf("numeric extras should keep their literal, got %#v", meta["collections"])
	}

	encoded, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("metadata must be JSON encodable: %v", err)
	}
	if !strings.Contains(string(encoded), `"imageURL":null`) {
		t.Fatalf("absent imageURL should encode as null: %s", encoded)
	}
}
