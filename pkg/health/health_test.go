package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campus-support/backend/pkg/logger"
	"campus-support/backend/pkg/resilience"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probe struct {
	configured bool
	breaker    *resilience.CircuitBreaker
}

func (p probe) Configured() bool                     { return p.configured }
func (p probe) Breaker() *resilience.CircuitBreaker { return p.breaker }

func TestCriticalComponentDrivesReadiness(t *testing.T) {
	checker := NewChecker(logger.Discard(), time.Minute)
	dbErr := errors.New("connection refused")
	checker.RegisterDatabaseCheck(func(context.Context) error { return dbErr })
	checker.RegisterOracleCheck(probe{configured: false, breaker: resilience.NewCircuitBreaker(resilience.DefaultConfig("oracle"), nil)})

	var results []bool
	checker.OnResult(func(healthy bool) { results = append(results, healthy) })

	checker.RunChecks(context.Background())
	assert.False(t, checker.IsSystemHealthy())
	status := checker.GetStatus()
	assert.Equal(t, StatusDown, status["database"].Status)
	assert.Equal(t, "connection refused", status["database"].Error)
	assert.Equal(t, StatusDegraded, status["oracle"].Status)

	dbErr = nil
	checker.RunChecks(context.Background())
	assert.True(t, checker.IsSystemHealthy())
	assert.Equal(t, []bool{false, true}, results)
}

func TestNonCriticalDownStaysReady(t *testing.T) {
	checker := NewChecker(logger.Discard(), time.Minute)
	checker.RegisterRedisCheck(func(context.Context) error { return errors.New("timeout") })
	checker.RunChecks(context.Background())

	assert.True(t, checker.IsSystemHealthy())
	assert.Equal(t, StatusDegraded, checker.GetStatus()["redis"].Status)
}

func TestReadyHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	checker := NewChecker(logger.Discard(), time.Minute)
	healthy := false
	checker.RegisterDatabaseCheck(func(context.Context) error {
		if !healthy {
			return errors.New("down")
		}
		return nil
	})

	engine := gin.New()
	engine.GET("/health", checker.LiveHandler())
	engine.GET("/ready", checker.ReadyHandler())

	checker.RunChecks(context.Background())
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	healthy = true
	checker.RunChecks(context.Background())
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status     string                `json:"status"`
		Components map[string]*Component `json:"components"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, StatusUp, body.Components["database"].Status)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
