package health

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	clock "k8s.io/utils/clock/testing"
)

func TestMultiChecker(t *testing.T) {
	healthy := CheckerFunc(func() error { return nil })
	broken := CheckerFunc(func() error { return errors.New("broken") })

	mc := NewMultiChecker(healthy)
	assert.NoError(t, mc.Check())

	mc.Add(broken)
	mc.Add(CheckerFunc(func() error { return errors.New("also broken") }))
	assert.EqualError(t, mc.Check(), "broken\nalso broken")
}

func TestStartupCompleteChecker(t *testing.T) {
	c := NewStartupCompleteChecker()
	assert.Error(t, c.Check())
	c.MarkComplete()
	assert.NoError(t, c.Check())
}

func TestHeartbeatChecker(t *testing.T) {
	fakeClock := clock.NewFakeClock(time.Now())
	c := NewHeartbeatChecker("loop", time.Minute, fakeClock)
	assert.NoError(t, c.Check())

	fakeClock.Step(2 * time.Minute)
	assert.Error(t, c.Check())

	c.Beat()
	assert.NoError(t, c.Check())
}

func TestSetupHttpMux(t *testing.T) {
	startup := NewStartupCompleteChecker()
	mux := http.NewServeMux()
	SetupHttpMux(mux, CheckerFunc(func() error { return nil }), startup)

	get := func(path string) int {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, get("/health/live"))
	assert.Equal(t, http.StatusServiceUnavailable, get("/health/ready"))
	assert.Equal(t, http.StatusServiceUnavailable, get("/health"))

	startup.MarkComplete()
	assert.Equal(t, http.StatusNoContent, get("/health/ready"))
	assert.Equal(t, http.StatusNoContent, get("/health"))
}

func TestHealthCheckHttpHandler_WritesReason(t *testing.T) {
	handler := NewHealthCheckHttpHandler(CheckerFunc(func() error { return errors.New("last pass failed") }))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "last pass failed", rec.Body.String())
}
