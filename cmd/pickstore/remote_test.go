package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/jpalmerr/pickstore"
	"github.com/jpalmerr/pickstore/internal/client"
	"github.com/jpalmerr/pickstore/internal/docstate"
	"github.com/jpalmerr/pickstore/internal/host"
	"github.com/jpalmerr/pickstore/internal/server"
)

// liveServer runs the real HTTP host over a small document.
func liveServer(t *testing.T) *httptest.Server {
	t.Helper()

	doc := docstate.Document{"count": 1.0, "user": map[string]any{"name": "Ada"}}
	st, err := pickstore.NewWithReducer(doc, docstate.Reduce, pickstore.WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewWithReducer() error = %v", err)
	}

	loop := host.New(0, discardLogger())
	loop.Start(context.Background())
	t.Cleanup(loop.Stop)

	srv := server.NewServer(st, loop, server.Config{Logger: discardLogger()})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestRunGet(t *testing.T) {
	ts := liveServer(t)

	output, err := executeCmd(t, "get", "user.name", "--server", ts.URL)
	if err != nil {
		t.Fatalf("get command error = %v", err)
	}
	if output != "\"Ada\"\n" {
		t.Errorf("output = %q, want %q", output, "\"Ada\"\n")
	}
}

func TestRunGet_WholeDocument(t *testing.T) {
	ts := liveServer(t)

	output, err := executeCmd(t, "get", "--server", ts.URL)
	if err != nil {
		t.Fatalf("get command error = %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		t.Fatalf("output is not JSON: %v\nGot: %s", err, output)
	}
	if doc["count"] != 1.0 {
		t.Errorf("count = %#v, want 1", doc["count"])
	}
}

func TestRunGet_NotFound(t *testing.T) {
	ts := liveServer(t)

	_, err := executeCmd(t, "get", "user.email", "--server", ts.URL)
	if !errors.Is(err, client.ErrNotFound) {
		t.Errorf("get command error = %v, want ErrNotFound", err)
	}
}

func TestRunDispatch(t *testing.T) {
	ts := liveServer(t)

	output, err := executeCmd(t, "dispatch", "--server", ts.URL, "--op", "incr", "--path", "count", "--value", "2")
	if err != nil {
		t.Fatalf("dispatch command error = %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		t.Fatalf("output is not JSON: %v\nGot: %s", err, output)
	}
	if doc["count"] != 3.0 {
		t.Errorf("count = %#v, want 3", doc["count"])
	}

	// state persists on the server
	output, err = executeCmd(t, "get", "count", "--server", ts.URL)
	if err != nil {
		t.Fatalf("get command error = %v", err)
	}
	if output != "3\n" {
		t.Errorf("output = %q, want %q", output, "3\n")
	}
}

func TestRunDispatch_WithoutValue(t *testing.T) {
	ts := liveServer(t)

	output, err := executeCmd(t, "dispatch", "--server", ts.URL, "--op", "INCR", "--path", "count")
	if err != nil {
		t.Fatalf("dispatch command error = %v", err)
	}
	if !strings.Contains(output, `"count": 2`) {
		t.Errorf("output missing incremented count\nGot: %s", output)
	}
}

func TestRunDispatch_InvalidOperation(t *testing.T) {
	_, err := executeCmd(t, "dispatch", "--op", "push", "--path", "list")
	if err == nil {
		t.Fatal("dispatch command should reject unknown op")
	}
	if !strings.Contains(err.Error(), "invalid operation") {
		t.Errorf("error = %q, want to contain 'invalid operation'", err)
	}
}

func TestRunDispatch_BadServerURL(t *testing.T) {
	_, err := executeCmd(t, "dispatch", "--server", "localhost:8080", "--op", "incr", "--path", "n")
	if err == nil {
		t.Fatal("dispatch command should reject a server URL without scheme")
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{raw: "2", want: 2.0},
		{raw: "true", want: true},
		{raw: "null", want: nil},
		{raw: `"quoted"`, want: "quoted"},
		{raw: "Grace", want: "Grace"},
		{raw: `{"theme":"light"}`, want: map[string]any{"theme": "light"}},
		{raw: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := parseValue(tt.raw); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseValue(%q) = %#v, want %#v", tt.raw, got, tt.want)
			}
		})
	}
}
