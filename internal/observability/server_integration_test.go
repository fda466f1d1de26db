//go:build integration

package observability_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/petlife/internal/config"
	"github.com/rafaeljc/petlife/internal/events"
	"github.com/rafaeljc/petlife/internal/logger"
	"github.com/rafaeljc/petlife/internal/observability"
	"github.com/rafaeljc/petlife/internal/testsupport"
)

func TestObservabilityServer_Integration(t *testing.T) {
	ctx := context.Background()

	redisContainer, err := testsupport.StartRedisContainer(ctx)
	require.NoError(t, err)
	defer func() { _ = redisContainer.Terminate(ctx) }()

	redisChecker := events.NewHealthChecker(redisContainer.Client)

	freePort, err := getFreePort()
	require.NoError(t, err)

	// Non-default paths prove the server honours its configuration.
	livenessPath := "/alive"
	readinessPath := "/check-deps"
	metricsPath := "/telemetry"

	appCfg := &config.AppConfig{
		Name:        "petlife-test",
		Version:     "v0.0.0-test",
		Environment: "development",
		LogLevel:    "debug",
		LogFormat:   "text",
	}

	obsCfg := &config.ObservabilityConfig{
		Enabled:       true,
		Port:          fmt.Sprintf("%d", freePort),
		Timeout:       1 * time.Second,
		LivenessPath:  livenessPath,
		ReadinessPath: readinessPath,
		MetricsPath:   metricsPath,
	}

	server := observability.NewServer(logger.New(appCfg), obsCfg, redisChecker)
	server.Start()
	defer func() { _ = server.Shutdown(ctx) }()

	baseURL := fmt.Sprintf("http://localhost:%d", freePort)

	require.Eventually(t, func() bool {
		resp, err := http.Get(baseURL + livenessPath)
		if err == nil {
			resp.Body.Close()
			return resp.StatusCode == http.StatusOK
		}
		return false
	}, 5*time.Second, 100*time.Millisecond, "Server failed to start")

	t.Run("Liveness should return 200 OK on custom path", func(t *testing.T) {
		resp, err := http.Get(baseURL + livenessPath)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "ok", string(body))
	})

	t.Run("Metrics should be exposed on custom path", func(t *testing.T) {
		observability.StoredPets.Set(0)

		resp, err := http.Get(baseURL + metricsPath)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(body), "go_goroutines")
		assert.Contains(t, string(body), "petlife_")
	})

	t.Run("Readiness should return 200 OK when redis is healthy", func(t *testing.T) {
		resp, err := http.Get(baseURL + readinessPath)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body observability.ProbeResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "up", body.Status["redis"])
	})

	t.Run("Readiness should fail (503) when redis is down", func(t *testing.T) {
		_ = redisContainer.Container.Stop(ctx, nil)

		require.Eventually(t, func() bool {
			resp, err := http.Get(baseURL + readinessPath)
			if err != nil {
				return false
			}
			defer resp.Body.Close()

			var body observability.ProbeResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return false
			}
			return resp.StatusCode == http.StatusServiceUnavailable && len(body.Status["redis"]) > 4 &&
				body.Status["redis"][:4] == "down"
		}, 5*time.Second, 200*time.Millisecond)
	})
}

// getFreePort asks the kernel for a free TCP port.
func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
