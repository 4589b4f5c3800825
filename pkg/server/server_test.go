package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsflow/pkg/config"
)

func TestNewHTTPServerAppliesSettings(t *testing.T) {
	cfg := &config.ServerConfig{Address: "127.0.0.1", Port: 9090, ReadTimeout: 5, WriteTimeout: 7, IdleTimeout: 60}

	s, err := NewHTTPServer(cfg, http.NotFoundHandler(), nil)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", s.Addr())
	assert.Equal(t, 5*time.Second, s.server.ReadTimeout)
	assert.Equal(t, 7*time.Second, s.server.WriteTimeout)
	assert.Equal(t, time.Minute, s.server.IdleTimeout)
}

func TestNewHTTPServerRequiresInputs(t *testing.T) {
	_, err := NewHTTPServer(nil, http.NotFoundHandler(), nil)
	assert.ErrorIs(t, err, config.ErrMissingRequired)

	_, err = NewHTTPServer(&config.ServerConfig{}, nil, nil)
	assert.Error(t, err)
}

func TestServeAndShutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	s, err := NewHTTPServer(&config.ServerConfig{Address: "127.0.0.1"}, handler, nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Serve(l) }()

	resp, err := http.Get("http://" + l.Addr().String())
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.NoError(t, <-done)
}
