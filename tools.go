//go:build tools

package tools

// Tool dependencies are tracked here with blank imports.
// Run: go run github.com/vektra/mockery/v2 (from the repo root) to regenerate
// the mocks configured in .mockery.yaml.
import (
	_ "github.com/vektra/mockery/v2"
)
