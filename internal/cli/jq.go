package cli

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// Filter is a compiled jq program run against raw provider payloads.
type Filter struct {
	code   *gojq.Code
	source string
}

// CompileFilter parses and compiles a jq expression.
func CompileFilter(expr string) (*Filter, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq filter %q: %w", expr, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq filter %q: %w", expr, err)
	}
	return &Filter{code: code, source: expr}, nil
}

// String returns the filter expression.
func (f *Filter) String() string {
	return f.source
}

// Apply runs the filter over a JSON document and collects every result.
func (f *Filter) Apply(raw []byte) ([]any, error) {
	var input any
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("jq input is not JSON: %w", err)
	}

	var results []any
	iter := f.code.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("jq filter %q failed: %w", f.source, err)
		}
		results = append(results, v)
	}
	return results, nil
}

// Match reports whether the filter's first result is truthy.
func (f *Filter) Match(raw []byte) (bool, error) {
	results, err := f.Apply(raw)
	if err != nil {
		return false, err
	}
	if len(results) == 0 {
		return false, nil
	}
	return isTruthy(results[0]), nil
}

// isTruthy follows jq: false and null are falsy, everything else is truthy.
func isTruthy(v any) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}
