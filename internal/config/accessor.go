package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// toTree round-trips cfg through its JSON form so paths use the file keys
// ("relay.autoTranslateCategories", not Go field names).
func toTree(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()
	var m map[string]any
	if err := d.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// GetByPath retrieves a config value by dot-notation path
// (e.g. "relay.concurrency", "detector.languages.0").
func GetByPath(cfg *Config, path string) (any, error) {
	m, err := toTree(cfg)
	if err != nil {
		return nil, err
	}

	var current any = m
	for _, key := range strings.Split(path, ".") {
		switch v := current.(type) {
		case map[string]any:
			val, ok := v[key]
			if !ok {
				return nil, fmt.Errorf("key not found: %s", path)
			}
			current = val
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, fmt.Errorf("invalid index %q in %s", key, path)
			}
			current = v[idx]
		default:
			return nil, fmt.Errorf("%s: cannot traverse into %T at %q", path, current, key)
		}
	}
	return current, nil
}

// SetByPath sets a config value by dot-notation path. A string value is
// coerced to the type of the value it replaces: IDs stay strings, list
// fields accept comma or space separated items. Keys that do not exist yet
// (a new translator provider) are created.
func SetByPath(cfg *Config, path string, value any) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	m, err := toTree(cfg)
	if err != nil {
		return err
	}

	parts := strings.Split(path, ".")
	parent := m
	for _, key := range parts[:len(parts)-1] {
		child, ok := parent[key]
		if !ok || child == nil {
			next := make(map[string]any)
			parent[key] = next
			parent = next
			continue
		}
		next, ok := child.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: %q is not a section", path, key)
		}
		parent = next
	}

	last := parts[len(parts)-1]
	v, err := coerce(parent[last], value)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	parent[last] = v

	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	var next Config
	if err := json.Unmarshal(data, &next); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	*cfg = next
	return nil
}

// coerce converts a CLI value to the JSON type of current.
func coerce(current, value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}
	switch current.(type) {
	case string:
		return s, nil
	case bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("expected true or false, got %q", s)
		}
		return b, nil
	case json.Number, float64:
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return nil, fmt.Errorf("expected a number, got %q", s)
		}
		return json.Number(s), nil
	case []any:
		items := SplitList(s)
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = item
		}
		return out, nil
	case nil:
		return guess(s), nil
	default:
		return nil, fmt.Errorf("cannot set a section to %q", s)
	}
}

// guess types a value for a key that does not exist yet. Long digit runs
// (Discord snowflakes, Telegram chat ids) stay strings.
func guess(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(s); err == nil && len(s) < 10 {
		return n
	}
	return s
}

// Sanitize returns a copy of the config with tokens and API keys masked.
func Sanitize(cfg *Config) *Config {
	data, err := json.Marshal(cfg)
	if err != nil {
		return cfg
	}
	var out Config
	if err := json.Unmarshal(data, &out); err != nil {
		return cfg
	}

	for name, pc := range out.Translator.Providers {
		if pc.APIKey != "" {
			pc.APIKey = maskString(pc.APIKey)
		}
		out.Translator.Providers[name] = pc
	}
	if out.Channels.Discord.Token != "" {
		out.Channels.Discord.Token = maskString(out.Channels.Discord.Token)
	}
	if out.Channels.Telegram.Token != "" {
		out.Channels.Telegram.Token = maskString(out.Channels.Telegram.Token)
	}
	return &out
}

// maskString shows first 4 and last 4 chars, masks the rest.
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// Setting is one leaf of the config tree.
type Setting struct {
	Path  string
	Value any
}

// ListPaths returns every leaf path with its current value, sorted by path.
// Lists are reported as a single leaf.
func ListPaths(cfg *Config) []Setting {
	m, err := toTree(cfg)
	if err != nil {
		return nil
	}
	var out []Setting
	flatten("", m, &out)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func flatten(prefix string, m map[string]any, out *[]Setting) {
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flatten(path, sub, out)
			continue
		}
		*out = append(*out, Setting{Path: path, Value: v})
	}
}
