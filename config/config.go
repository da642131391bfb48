// Package config loads pickstore scenario files.
//
// A scenario describes a document store (its initial state and nested
// dispatch policy), the subscribers watching it, and optionally a list of
// actions for the replay command. The same file configures the HTTP server.
// Files are YAML or TOML, chosen by extension.
//
// Example configuration:
//
//	title: Session Store
//	port: 8080
//	nested_dispatch: queue
//
//	state:
//	  user:
//	    name: Ada
//	    token: ${SESSION_TOKEN:-dev}
//	  count: 0
//
//	subscribers:
//	  - name: name-view
//	    select: user.name
//	  - name: counter
//	    select: count
//
//	actions:
//	  - op: set
//	    path: user.name
//	    value: Grace
//	  - op: incr
//	    path: count
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/pickstore"
	"github.com/jpalmerr/pickstore/internal/docstate"
)

const (
	defaultPort = 8080
	defaultName = "document"
)

// Config is the root configuration structure for a scenario.
//
// It maps directly to the YAML or TOML file structure.
// Use [Load], [Parse] or [ParseTOML] to create a Config.
type Config struct {
	// Title is the inspector page title. Defaults to "pickstore" if not set.
	Title string `yaml:"title" toml:"title"`

	// Name labels the store in logs and metrics. Defaults to "document".
	Name string `yaml:"name" toml:"name"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port" toml:"port"`

	// NestedDispatch is "queue", "reject" or "inline". Defaults to "queue".
	NestedDispatch string `yaml:"nested_dispatch" toml:"nested_dispatch"`

	// State is the initial document.
	// String values support environment variable substitution: ${VAR} or ${VAR:-default}
	State map[string]any `yaml:"state" toml:"state"`

	// Subscribers are the named projections watched during replay.
	Subscribers []SubscriberConfig `yaml:"subscribers" toml:"subscribers"`

	// Actions are applied in order by the replay command.
	// String values support environment variable substitution.
	Actions []docstate.Op `yaml:"actions" toml:"actions"`
}

// SubscriberConfig defines one named projection of the document.
type SubscriberConfig struct {
	// Name identifies the subscriber in replay output.
	Name string `yaml:"name" toml:"name"`

	// Select is the dot-notation path the subscriber watches.
	// Empty selects the whole document.
	Select string `yaml:"select" toml:"select"`
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		varName := submatches[1]
		hasDefault := submatches[2] != ""

		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		if hasDefault {
			return submatches[3]
		}
		firstErr = fmt.Errorf("environment variable %q is not set", varName)
		return match
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// expandValue applies [expandEnvVars] to every string inside a normalized
// value. Records and lists are rebuilt; other values are returned as is.
// Errors name the failing location, starting from path.
func expandValue(path string, v any) (any, error) {
	switch val := v.(type) {
	case string:
		expanded, err := expandEnvVars(val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return expanded, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			expanded, err := expandValue(path+"."+k, item)
			if err != nil {
				return nil, err
			}
			out[k] = expanded
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			expanded, err := expandValue(fmt.Sprintf("%s[%d]", path, i), item)
			if err != nil {
				return nil, err
			}
			out[i] = expanded
		}
		return out, nil
	default:
		return val, nil
	}
}

// Load reads and parses a configuration file.
//
// Files ending in .toml are parsed as TOML; .yaml, .yml or no extension as
// YAML. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return ParseTOML(data)
	case ".yaml", ".yml", "":
		return Parse(data)
	default:
		return nil, fmt.Errorf("unsupported config file extension %q (want .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

// Parse parses YAML configuration data.
//
// Defaults are applied, environment variables are expanded in string values
// of the state and actions, and numbers are normalized to float64.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return finish(&cfg)
}

// ParseTOML parses TOML configuration data. It applies the same defaults and
// validation as [Parse].
func ParseTOML(data []byte) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	for _, key := range md.Undecoded() {
		if !freeForm(key) {
			return nil, fmt.Errorf("unknown TOML key %q", key.String())
		}
	}
	return finish(&cfg)
}

// freeForm reports whether key lies inside a value decoded into any (the
// state document or an action operand). Nested keys there are not tracked
// by the decoder.
func freeForm(key toml.Key) bool {
	switch {
	case len(key) > 1 && key[0] == "state":
		return true
	case len(key) > 2 && key[0] == "actions" && key[1] == "value":
		return true
	}
	return false
}

func finish(cfg *Config) (*Config, error) {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.Name == "" {
		cfg.Name = defaultName
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if _, err := pickstore.ParseNestedPolicy(c.NestedDispatch); err != nil {
		return fmt.Errorf("nested_dispatch: %w", err)
	}

	state, err := expandValue("state", docstate.NormalizeDocument(c.State))
	if err != nil {
		return err
	}
	c.State = state.(map[string]any)

	seen := make(map[string]bool, len(c.Subscribers))
	for i := range c.Subscribers {
		sub := &c.Subscribers[i]
		sub.Select = strings.TrimSpace(sub.Select)

		if sub.Name == "" {
			return fmt.Errorf("subscribers[%d]: name is required", i)
		}
		if seen[sub.Name] {
			return fmt.Errorf("subscribers[%d] (%s): duplicate subscriber name", i, sub.Name)
		}
		seen[sub.Name] = true

		if err := docstate.ValidatePath(sub.Select); err != nil {
			return fmt.Errorf("subscribers[%d] (%s): select: %w", i, sub.Name, err)
		}
	}

	for i := range c.Actions {
		op := &c.Actions[i]

		value, err := expandValue("value", docstate.Normalize(op.Value))
		if err != nil {
			return fmt.Errorf("actions[%d] (%s): %w", i, op.String(), err)
		}
		op.Value = value

		if err := docstate.Validate(*op); err != nil {
			return fmt.Errorf("actions[%d] (%s): %w", i, op.String(), err)
		}
	}

	return nil
}
