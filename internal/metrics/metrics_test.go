package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Doudousmyle42/mangatracker/internal/util"
)

func TestObserveFetch(t *testing.T) {
	m := New()

	m.ObserveFetch(200, nil, 10*time.Millisecond)
	m.ObserveFetch(403, &util.FetchError{StatusCode: 403, Err: errors.New("403")}, time.Millisecond)
	m.ObserveFetch(404, &util.FetchError{StatusCode: 404, Err: errors.New("404")}, time.Millisecond)
	m.ObserveFetch(0, &util.FetchError{Err: errors.New("dial tcp: refused")}, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchTotal.WithLabelValues("blocked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchTotal.WithLabelValues("http_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchTotal.WithLabelValues("network_error")))
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.ObserveCover("meta")
	m.ObserveRefresh("updated")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `mangatracker_cover_stage_total{stage="meta"} 1`)
	assert.Contains(t, rec.Body.String(), `mangatracker_refresh_total{outcome="updated"} 1`)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveFetch(200, nil, time.Second)
	m.ObserveCover("meta")
	m.ObserveRefresh("failed")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
