package pickstore

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// testLogger returns a logger that discards output, for use in tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_Defaults(t *testing.T) {
	s, err := New(0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if s.Name() != defaultName {
		t.Errorf("Name() = %v, want %v", s.Name(), defaultName)
	}
	if s.nested != NestedQueue {
		t.Errorf("nested = %v, want %v", s.nested, NestedQueue)
	}
	if s.logger == nil {
		t.Error("logger should default to slog.Default()")
	}
	if s.metrics != nil {
		t.Error("metrics should be disabled without WithMetrics")
	}
	if s.tracer == nil {
		t.Error("tracer should default to the global provider")
	}
}

func TestWithName(t *testing.T) {
	s, err := New(0, WithName("session"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if s.Name() != "session" {
		t.Errorf("Name() = %v, want session", s.Name())
	}
}

func TestWithName_Blank(t *testing.T) {
	_, err := New(0, WithName("  "))
	if err == nil {
		t.Error("New() expected error for blank name, got nil")
	}
}

func TestWithLogger_Nil(t *testing.T) {
	_, err := New(0, WithLogger(nil))
	if err == nil {
		t.Error("New() expected error for nil logger, got nil")
	}
	if err != nil && !strings.Contains(err.Error(), "logger cannot be nil") {
		t.Errorf("New() error = %v, want error containing 'logger cannot be nil'", err)
	}
}

func TestWithLogger_UsesCustomLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s, err := New(0, WithName("counter"), WithLogger(logger))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	s.Subscribe(nil, func() {})
	if err := s.Dispatch(1); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"subscription added", "dispatch applied", "store=counter", "kind=replace", "notified=1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestWithNestedDispatch(t *testing.T) {
	tests := []struct {
		name    string
		policy  NestedPolicy
		wantErr bool
	}{
		{"queue", NestedQueue, false},
		{"reject", NestedReject, false},
		{"inline", NestedInline, false},
		{"unknown", NestedPolicy(42), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(0, WithNestedDispatch(tt.policy))
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && s.nested != tt.policy {
				t.Errorf("nested = %v, want %v", s.nested, tt.policy)
			}
		})
	}
}

func TestParseNestedPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    NestedPolicy
		wantErr bool
	}{
		{"", NestedQueue, false},
		{"queue", NestedQueue, false},
		{"Reject", NestedReject, false},
		{" inline ", NestedInline, false},
		{"drop", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseNestedPolicy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseNestedPolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseNestedPolicy(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNestedPolicy_String(t *testing.T) {
	for _, p := range []NestedPolicy{NestedQueue, NestedReject, NestedInline} {
		got, err := ParseNestedPolicy(p.String())
		if err != nil || got != p {
			t.Errorf("ParseNestedPolicy(%q) = %v, %v; want %v", p.String(), got, err, p)
		}
	}
}

func TestWithEquality_NilIgnored(t *testing.T) {
	s, err := New(0, WithEquality(nil))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if s.equal == nil {
		t.Error("equal should fall back to the shallow comparison")
	}
}

func TestWithMetrics_Nil(t *testing.T) {
	_, err := New(0, WithMetrics(nil))
	if err == nil {
		t.Error("New() expected error for nil registerer, got nil")
	}
}

func TestWithMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()

	s, err := New(0, WithMetrics(reg))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if s.metrics == nil {
		t.Fatal("metrics collector should be created")
	}
}

func TestWithTracer_Nil(t *testing.T) {
	_, err := New(0, WithTracer(nil))
	if err == nil {
		t.Error("New() expected error for nil tracer, got nil")
	}
}

func TestNew_FirstOptionErrorWins(t *testing.T) {
	_, err := New(0, WithName(""), WithLogger(nil))
	if err == nil || !strings.Contains(err.Error(), "name") {
		t.Errorf("New() error = %v, want store name error", err)
	}
}
