package lib

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/david082321/runtime-tracker/client/tctx"
)

var Version string = "Unknown"

var GitCommit string = "Unknown"

func CheckFatalError(err error) {
	if err != nil {
		_, filename, line, _ := runtime.Caller(1)
		log.Fatalf("runtime-tracker v0.%s fatal error at %s:%d: %v", Version, filename, line, err)
	}
}

const DefaultServerHostname = "http://localhost:8080"

func GetServerHostname(config tctx.ClientConfig) string {
	if config.ServerUrl != "" {
		return strings.TrimSuffix(config.ServerUrl, "/")
	}
	return DefaultServerHostname
}

func IsOfflineError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "connect: connection refused") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "no such host")
}

func ApiGet(config tctx.ClientConfig, path string) ([]byte, error) {
	if os.Getenv("RUNTIME_TRACKER_SIMULATE_NETWORK_ERROR") != "" {
		return nil, fmt.Errorf("simulated network error: dial tcp: lookup localhost")
	}
	start := time.Now()
	req, err := http.NewRequest("GET", GetServerHostname(config)+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET: %w", err)
	}
	req.Header.Set("X-RuntimeTracker-Version", "v0."+Version)
	req.Header.Set("X-RuntimeTracker-Device-Id", config.ReportedDeviceId())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to GET %s%s: %w", GetServerHostname(config), path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("failed to GET %s%s: status_code=%d", GetServerHostname(config), path, resp.StatusCode)
	}
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from GET %s%s: %w", GetServerHostname(config), path, err)
	}
	duration := time.Since(start)
	tctx.GetLogger().Infof("ApiGet(%#v): %d bytes - %s\n", GetServerHostname(config)+path, len(respBody), duration.String())
	return respBody, nil
}

func ApiPost(config tctx.ClientConfig, path, contentType string, reqBody []byte) ([]byte, error) {
	if os.Getenv("RUNTIME_TRACKER_SIMULATE_NETWORK_ERROR") != "" {
		return nil, fmt.Errorf("simulated network error: dial tcp: lookup localhost")
	}
	start := time.Now()
	req, err := http.NewRequest("POST", GetServerHostname(config)+path, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create POST: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-RuntimeTracker-Version", "v0."+Version)
	req.Header.Set("X-RuntimeTracker-Device-Id", config.ReportedDeviceId())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to POST %s: %w", GetServerHostname(config)+path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("failed to POST %s: status_code=%d", GetServerHostname(config)+path, resp.StatusCode)
	}
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from POST %s: %w", GetServerHostname(config)+path, err)
	}
	duration := time.Since(start)
	tctx.GetLogger().Infof("ApiPost(%#v): %d bytes - %s\n", GetServerHostname(config)+path, len(respBody), duration.String())
	return respBody, nil
}
