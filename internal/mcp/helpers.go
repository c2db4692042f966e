package mcpserver

import (
	"encoding/json"
	"fmt"
	"strings"

	"chartkit/internal/domain"
)

// objectArg reads an object argument that may arrive as a JSON string or
// as an already decoded value.
func objectArg(args map[string]any, key string, target any) error {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil
	}
	var data []byte
	switch v := raw.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		data = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		data = b
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	return nil
}

// stringsArg reads a list argument given as a JSON array or a comma
// separated string.
func stringsArg(args map[string]any, key string) []string {
	switch v := args[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			if s, ok := x.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		if strings.HasPrefix(strings.TrimSpace(v), "[") {
			if json.Unmarshal([]byte(v), &out) == nil {
				return out
			}
		}
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// criteriaArg builds filter criteria from either an "equals" object or a
// "rangeStart"/"rangeEnd" pair. Neither means no filtering.
func criteriaArg(args map[string]any) (domain.Criteria, error) {
	start, _ := args["rangeStart"].(string)
	end, _ := args["rangeEnd"].(string)
	if start != "" || end != "" {
		r, err := domain.ParseDateRange(start, end)
		if err != nil {
			return domain.Criteria{}, err
		}
		return domain.InRange(r), nil
	}
	var equals map[string]string
	if err := objectArg(args, "equals", &equals); err != nil {
		return domain.Criteria{}, err
	}
	return domain.Categorical(equals), nil
}
