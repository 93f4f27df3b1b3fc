package mcp

import "github.com/aretw0/rentdesk/pkg/runner"

func sanitize(v any) (any, error) {
	return runner.SanitizeValue(v)
}
