package library

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Doudousmyle42/mangatracker/internal/providers"
	"github.com/Doudousmyle42/mangatracker/internal/util"
)

func newTestRouter(t *testing.T, ex providers.Extractor) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := newTestService(t, ex)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})

	return NewRouter(NewHandler(svc, nil), metrics)
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	return rec
}

func TestHandlerLifecycle(t *testing.T) {
	ex := newFakeExtractor().on(elecURL, elecResult("363"), nil).on(elecURL, elecResult("364"), nil)
	r := newTestRouter(t, ex)

	rec := do(r, http.MethodPost, "/api/mangas", `{"url":"`+elecURL+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Eleceed", created.Title)

	rec = do(r, http.MethodGet, "/api/mangas?q=elec", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Items []Entry `json:"items"`
		Total int     `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)

	path := "/api/mangas/" + itoa(created.ID)

	rec = do(r, http.MethodPost, path+"/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var refreshed struct {
		Item       Entry `json:"item"`
		NewChapter bool  `json:"new_chapter"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refreshed))
	assert.True(t, refreshed.NewChapter)
	assert.Equal(t, "364", refreshed.Item.Chapter)

	rec = do(r, http.MethodPut, path+"/chapter", `{"chapter":"370"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(r, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "370", got.Chapter)

	rec = do(r, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(r, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerErrors(t *testing.T) {
	blocked := &util.FetchError{URL: "https://example.com/blocked", StatusCode: http.StatusForbidden, Err: errors.New("403")}
	ex := newFakeExtractor().on("https://example.com/blocked", providers.Result{}, blocked)
	r := newTestRouter(t, ex)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"bad json", http.MethodPost, "/api/mangas", `{`, http.StatusBadRequest},
		{"missing url", http.MethodPost, "/api/mangas", `{"url":""}`, http.StatusBadRequest},
		{"fetch failure", http.MethodPost, "/api/mangas", `{"url":"https://example.com/blocked"}`, http.StatusBadGateway},
		{"bad id", http.MethodGet, "/api/mangas/abc", "", http.StatusBadRequest},
		{"unknown id", http.MethodGet, "/api/mangas/7", "", http.StatusNotFound},
		{"empty chapter", http.MethodPut, "/api/mangas/7/chapter", `{"chapter":" "}`, http.StatusBadRequest},
		{"refresh unknown", http.MethodPost, "/api/mangas/7/refresh", "", http.StatusNotFound},
		{"delete unknown", http.MethodDelete, "/api/mangas/7", "", http.StatusNotFound},
		{"preview without url", http.MethodGet, "/api/preview", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestHandlerPreviewHealthMetrics(t *testing.T) {
	r := newTestRouter(t, newFakeExtractor().on(elecURL, elecResult("363"), nil))

	rec := do(r, http.MethodGet, "/api/preview?url="+elecURL, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res providers.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, elecResult("363"), res)

	rec = do(r, http.MethodGet, "/api/mangas", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":0`, "preview does not store anything")

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "").Code)
	assert.Equal(t, "# metrics", do(r, http.MethodGet, "/metrics", "").Body.String())
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestHandlerRefreshAndDeleteDropCachedPreview(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ex := newFakeExtractor().
		on(elecURL, elecResult("363"), nil).
		on(elecURL, elecResult("364"), nil).
		on(elecURL, elecResult("365"), nil)
	preview, err := providers.NewCached(ex, 8)
	require.NoError(t, err)
	r := NewRouter(NewHandler(newTestService(t, ex), preview), nil)

	previewChapter := func() string {
		rec := do(r, http.MethodGet, "/api/preview?url="+elecURL, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var res providers.Result
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		return res.Chapter
	}

	assert.Equal(t, "363", previewChapter())
	assert.Equal(t, "363", previewChapter())
	assert.Equal(t, 1, ex.count(elecURL))

	rec := do(r, http.MethodPost, "/api/mangas", `{"url":"`+elecURL+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	path := "/api/mangas/" + itoa(created.ID)

	require.Equal(t, http.StatusOK, do(r, http.MethodPost, path+"/refresh", "").Code)
	assert.Equal(t, "365", previewChapter())
	assert.Equal(t, 4, ex.count(elecURL))

	require.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, path, "").Code)
	previewChapter()
	assert.Equal(t, 5, ex.count(elecURL))
}
