package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestRunReportsWorstStatus(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
	}{
		{"all up", map[string]Check{
			"index": DocumentsCheck(func() int { return 3 }),
			"redis": PingCheck(pinger{}, StatusDown),
		}, StatusUp},
		{"empty index", map[string]Check{
			"index": DocumentsCheck(func() int { return 0 }),
		}, StatusDegraded},
		{"cache degraded", map[string]Check{
			"index": DocumentsCheck(func() int { return 3 }),
			"redis": PingCheck(pinger{err: errors.New("refused")}, StatusDegraded),
		}, StatusDegraded},
		{"down wins", map[string]Check{
			"index": DocumentsCheck(func() int { return 0 }),
			"redis": PingCheck(pinger{err: errors.New("refused")}, StatusDown),
		}, StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for name, check := range tt.checks {
				c.Register(name, check)
			}
			report := c.Run(context.Background())
			assert.Equal(t, tt.want, report.Status)
			assert.Len(t, report.Components, len(tt.checks))
		})
	}
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.Register("index", DocumentsCheck(func() int { return 0 }))

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, "index is empty", report.Components["index"].Message)

	c.Register("redis", PingCheck(pinger{err: errors.New("refused")}, StatusDown))
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker().LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}
