package config

import (
	"errors"
	"testing"

	"github.com/jpalmerr/pickstore"
	"github.com/jpalmerr/pickstore/internal/docstate"
)

func mustParse(t *testing.T, yaml string) *Config {
	t.Helper()
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return cfg
}

func TestConfig_NestedPolicy(t *testing.T) {
	tests := []struct {
		value string
		want  pickstore.NestedPolicy
	}{
		{value: "", want: pickstore.NestedQueue},
		{value: "queue", want: pickstore.NestedQueue},
		{value: "Reject", want: pickstore.NestedReject},
		{value: "inline", want: pickstore.NestedInline},
		{value: "bogus", want: pickstore.NestedQueue},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			cfg := &Config{NestedDispatch: tt.value}
			if got := cfg.NestedPolicy(); got != tt.want {
				t.Errorf("NestedPolicy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_InitialStateIsACopy(t *testing.T) {
	cfg := mustParse(t, `
state:
  user:
    name: Ada
`)

	doc := cfg.InitialState()
	doc["user"].(map[string]any)["name"] = "Mallory"

	if name, _ := docstate.Lookup(cfg.State, "user.name"); name != "Ada" {
		t.Errorf("cfg.State user.name = %#v, want Ada (InitialState must not share maps)", name)
	}
}

func TestBuildOptions_InvalidPolicy(t *testing.T) {
	_, err := BuildOptions(&Config{Name: "doc", NestedDispatch: "sometimes"})
	if err == nil {
		t.Fatal("BuildOptions() error = nil, want error for unknown policy")
	}
}

func TestBuildStore(t *testing.T) {
	cfg := mustParse(t, `
name: session
state:
  count: 1
actions:
  - op: incr
    path: count
    value: 2
`)

	st, err := BuildStore(cfg)
	if err != nil {
		t.Fatalf("BuildStore() error = %v", err)
	}

	if st.Name() != "session" {
		t.Errorf("Name() = %q, want %q", st.Name(), "session")
	}

	for _, op := range cfg.Actions {
		if err := st.Send(op); err != nil {
			t.Fatalf("Send(%s) error = %v", op, err)
		}
	}
	if got := st.Get()["count"]; got != 3.0 {
		t.Errorf("count = %#v, want 3.0", got)
	}
}

func TestBuildStore_ExtraOptionsWin(t *testing.T) {
	cfg := mustParse(t, `name: configured`)

	st, err := BuildStore(cfg, pickstore.WithName("override"))
	if err != nil {
		t.Fatalf("BuildStore() error = %v", err)
	}
	if st.Name() != "override" {
		t.Errorf("Name() = %q, want %q", st.Name(), "override")
	}
}

func TestBuildStore_NestedPolicyApplied(t *testing.T) {
	cfg := mustParse(t, `
nested_dispatch: reject
state:
  count: 0
`)

	st, err := BuildStore(cfg)
	if err != nil {
		t.Fatalf("BuildStore() error = %v", err)
	}

	var nestedErr error
	unsubscribe := st.Subscribe(nil, func() {
		nestedErr = st.Send(docstate.Op{Op: docstate.OpIncr, Path: "count"})
	})
	defer unsubscribe()

	if err := st.Send(docstate.Op{Op: docstate.OpIncr, Path: "count"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !errors.Is(nestedErr, pickstore.ErrNestedDispatch) {
		t.Errorf("nested Send() error = %v, want ErrNestedDispatch", nestedErr)
	}
	if got := st.Get()["count"]; got != 1.0 {
		t.Errorf("count = %#v, want 1.0", got)
	}
}

func TestSubscriberConfig_Selector(t *testing.T) {
	doc := docstate.Document{"user": map[string]any{"name": "Ada"}}

	tests := []struct {
		sel  string
		want any
	}{
		{sel: "user.name", want: "Ada"},
		{sel: "user.missing", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.sel, func(t *testing.T) {
			got := SubscriberConfig{Name: "view", Select: tt.sel}.Selector().Apply(doc)
			if got != tt.want {
				t.Errorf("Selector(%q) = %#v, want %#v", tt.sel, got, tt.want)
			}
		})
	}

	whole := SubscriberConfig{Name: "all"}.Selector().Apply(doc)
	if m, ok := whole.(docstate.Document); !ok || len(m) != 1 {
		t.Errorf("empty select = %#v, want whole document", whole)
	}
}
