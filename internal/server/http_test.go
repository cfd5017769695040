package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/habitat/internal/core/sim"
)

func TestNewHTTPServerNeedsSource(t *testing.T) {
	_, err := NewHTTPServer(Config{}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestHTTPEndpoints(t *testing.T) {
	srv, err := NewHTTPServer(Config{}, newTestSimulation(t, nil), nil, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	get := func(path string) (*http.Response, []byte) {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp, body
	}

	resp, body := get("/snapshot")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var snap sim.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Zero(t, snap.Tick)
	assert.Len(t, snap.Animals, 15)

	resp, body = get("/world")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view WorldView
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, "square", view.Topology)
	assert.Equal(t, 31, view.Width)
	assert.Equal(t, 20, view.Height)
	assert.Len(t, view.Rows, 20)

	resp, body = get("/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "habitat_agents_alive")

	resp, body = get("/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, _ = get("/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	post, err := http.Post(ts.URL+"/snapshot", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	post.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, post.StatusCode)
}

func TestHTTPServerLifecycle(t *testing.T) {
	srv, err := NewHTTPServer(Config{Addr: "127.0.0.1:0"}, newTestSimulation(t, nil), nil, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, srv.Stop(context.Background()), ErrServerNotRunning)

	require.NoError(t, srv.Start(context.Background()))
	assert.ErrorIs(t, srv.Start(context.Background()), ErrServerAlreadyRunning)
	assert.NotEqual(t, "127.0.0.1:0", srv.Addr())

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Stop(context.Background()))
	assert.ErrorIs(t, srv.Stop(context.Background()), ErrServerNotRunning)
}
