package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/http/httptrace"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpalmerr/pickstore"
	"github.com/jpalmerr/pickstore/internal/docstate"
	"github.com/jpalmerr/pickstore/internal/host"
	"github.com/jpalmerr/pickstore/internal/server"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// liveServer runs the real HTTP host over a document store.
func liveServer(t *testing.T, doc docstate.Document) *httptest.Server {
	t.Helper()

	st, err := pickstore.NewWithReducer(doc, docstate.Reduce, pickstore.WithLogger(testLogger()))
	require.NoError(t, err)

	loop := host.New(0, testLogger())
	loop.Start(context.Background())
	t.Cleanup(loop.Stop)

	srv := server.NewServer(st, loop, server.Config{Logger: testLogger()})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestNew_InvalidURL(t *testing.T) {
	tests := []string{
		"localhost:8080",
		"ftp://example.com",
		"http://",
		"://bad",
	}

	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			_, err := New(raw, 0)
			assert.Error(t, err)
		})
	}
}

func TestNew_DefaultTimeout(t *testing.T) {
	c, err := New("http://localhost:8080/", 0)
	require.NoError(t, err)

	assert.Equal(t, defaultTimeout, c.timeout)
	assert.Equal(t, "http://localhost:8080", c.baseURL.String())
}

func TestClient_StateAndDispatch(t *testing.T) {
	ts := liveServer(t, docstate.Document{"count": 1.0, "user": map[string]any{"name": "Ada"}})

	c, err := New(ts.URL, time.Second)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()

	name, err := c.State(ctx, "user.name")
	require.NoError(t, err)
	assert.Equal(t, "Ada", name)

	doc, err := c.Dispatch(ctx, docstate.Op{Op: docstate.OpIncr, Path: "count", Value: 2})
	require.NoError(t, err)
	assert.Equal(t, 3.0, doc["count"])

	count, err := c.State(ctx, "count")
	require.NoError(t, err)
	assert.Equal(t, 3.0, count)
}

func TestClient_StateNotFound(t *testing.T) {
	ts := liveServer(t, docstate.Document{})

	c, err := New(ts.URL, time.Second)
	require.NoError(t, err)

	_, err = c.State(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_DispatchRejected(t *testing.T) {
	ts := liveServer(t, docstate.Document{})

	c, err := New(ts.URL, time.Second)
	require.NoError(t, err)

	_, err = c.Dispatch(context.Background(), docstate.Op{Op: "push", Path: "a"})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "error = %v, want *APIError", err)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "unknown op")
}

func TestClient_NonJSONError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway exploded", http.StatusBadGateway)
	}))
	defer ts.Close()

	c, err := New(ts.URL, time.Second)
	require.NoError(t, err)

	_, err = c.State(context.Background(), "")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "gateway exploded", apiErr.Message)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	c, err := New(ts.URL, 50*time.Millisecond)
	require.NoError(t, err)

	_, err = c.State(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "deadline"),
		"error = %v, want deadline exceeded", err)
}

func TestClient_ResponseSizeLimit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"value":"`))
		_, _ = w.Write([]byte(strings.Repeat("x", maxResponseBodySize)))
		_, _ = w.Write([]byte(`"}`))
	}))
	defer ts.Close()

	c, err := New(ts.URL, time.Second)
	require.NoError(t, err)

	// truncated body cannot decode
	_, err = c.State(context.Background(), "")
	assert.ErrorContains(t, err, "failed to decode response")
}

// TestClient_ConnectionReuse verifies that the HTTP client reuses connections
// when making sequential requests to the same host.
func TestClient_ConnectionReuse(t *testing.T) {
	ts := liveServer(t, docstate.Document{"n": 1.0})

	c, err := New(ts.URL, time.Second)
	require.NoError(t, err)

	var reusedCount int
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Reused {
				reusedCount++
			}
		},
	}

	const numRequests = 5
	for i := 0; i < numRequests; i++ {
		ctx := httptrace.WithClientTrace(context.Background(), trace)
		_, err := c.State(ctx, "n")
		require.NoError(t, err, "request %d", i)
	}

	// allow some tolerance
	assert.GreaterOrEqual(t, reusedCount, numRequests-2)
}

// TestClient_Close verifies that Close() is safe to call and idempotent.
func TestClient_Close(t *testing.T) {
	c, err := New("http://localhost:1", 0)
	require.NoError(t, err)

	c.Close()
	c.Close()

	var nilClient *Client
	nilClient.Close()
}
