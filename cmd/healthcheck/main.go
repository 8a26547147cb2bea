// Command healthcheck checks a running server and exits non-zero when it is
// unhealthy. It is used as the container HEALTHCHECK.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bizadmin/backend/internal/logger"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Services  struct {
		Database struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		} `json:"database"`
	} `json:"services"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base URL")
	withMetrics := flag.Bool("metrics", false, "also require /metrics to respond")
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	flag.Parse()

	logger.Initialize()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := &http.Client{Timeout: *timeout}
	health, err := fetchHealth(ctx, client, *baseURL, *withMetrics)
	if err != nil {
		logger.Error("Health check failed", map[string]interface{}{"url": *baseURL, "error": err.Error()})
		os.Exit(1)
	}

	logger.Info("Health check passed", map[string]interface{}{
		"version":   health.Version,
		"database":  health.Services.Database.Status,
		"timestamp": health.Timestamp,
	})
}

func fetchHealth(ctx context.Context, client *http.Client, baseURL string, withMetrics bool) (*HealthResponse, error) {
	baseURL = strings.TrimRight(baseURL, "/")

	body, status, err := get(ctx, client, baseURL+"/health")
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		return nil, fmt.Errorf("parse health response: %w", err)
	}
	if status != http.StatusOK || health.Status != "ok" {
		return &health, fmt.Errorf("health status %q (HTTP %d)", health.Status, status)
	}
	if health.Services.Database.Status != "ok" {
		return &health, fmt.Errorf("database status %q: %s", health.Services.Database.Status, health.Services.Database.Error)
	}

	if withMetrics {
		if _, status, err := get(ctx, client, baseURL+"/metrics"); err != nil {
			return &health, err
		} else if status != http.StatusOK {
			return &health, fmt.Errorf("metrics endpoint returned HTTP %d", status)
		}
	}
	return &health, nil
}

func get(ctx context.Context, client *http.Client, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read %s: %w", url, err)
	}
	return body, resp.StatusCode, nil
}
