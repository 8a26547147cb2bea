package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, healthCode int, healthBody string, metricsCode int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(healthCode)
		_, _ = w.Write([]byte(healthBody))
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(metricsCode)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchHealthHealthy(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"status":"ok","version":"1.0.0","services":{"database":{"status":"ok"}}}`, http.StatusOK)

	health, err := fetchHealth(context.Background(), srv.Client(), srv.URL+"/", true)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", health.Version)
}

func TestFetchHealthDatabaseDown(t *testing.T) {
	srv := serve(t, http.StatusServiceUnavailable, `{"status":"error","services":{"database":{"status":"error","error":"dial tcp: refused"}}}`, http.StatusOK)

	_, err := fetchHealth(context.Background(), srv.Client(), srv.URL, false)
	assert.Error(t, err)
}

func TestFetchHealthMetricsMissing(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"status":"ok","services":{"database":{"status":"ok"}}}`, http.StatusNotFound)

	_, err := fetchHealth(context.Background(), srv.Client(), srv.URL, false)
	require.NoError(t, err)

	_, err = fetchHealth(context.Background(), srv.Client(), srv.URL, true)
	assert.Error(t, err)
}
