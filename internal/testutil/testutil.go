// Package testutil collects fixtures shared by the package tests: observed
// loggers, validated settings and request helpers.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"whatsflow/pkg/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// NewObservedLogger returns a logger that records entries at level and above.
func NewObservedLogger(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}

// Settings returns a valid configuration with the given debug flag and the
// default /api/v1 prefix.
func Settings(t testing.TB, debug bool) *config.Config {
	t.Helper()

	cfg := &config.Config{
		App: &config.AppConfig{
			Debug:           debug,
			Environment:     "test",
			LogLevel:        "debug",
			AuditLogFile:    "audit.log",
			Timezone:        config.DefaultTimezone,
			AuditRotateCron: config.DefaultAuditRotateCron,
		},
		API: &config.APIConfig{
			V1Prefix:           config.DefaultAPIV1Prefix,
			CORSAllowedOrigins: []string{"*"},
		},
		Server: &config.ServerConfig{
			Port:            8080,
			Address:         "127.0.0.1",
			ReadTimeout:     5,
			WriteTimeout:    5,
			IdleTimeout:     30,
			ShutdownTimeout: 5,
		},
	}
	require.NoError(t, cfg.ValidateConfig())
	return cfg
}

// DoRequest runs a request against h and returns the recorder.
func DoRequest(h http.Handler, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// DecodeJSON decodes the recorded body into a generic map.
func DecodeJSON(t testing.TB, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body: %s", rec.Body.String())
	return body
}

// SecurityEvents returns the security_event payloads of entries whose event
// type equals eventType.
func SecurityEvents(logs *observer.ObservedLogs, eventType string) []map[string]any {
	var events []map[string]any
	for _, entry := range logs.All() {
		ev, ok := entry.ContextMap()["security_event"].(map[string]any)
		if ok && ev["type"] == eventType {
			events = append(events, ev)
		}
	}
	return events
}
