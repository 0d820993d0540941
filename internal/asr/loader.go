package asr

import (
	"context"
	"errors"
	"fmt"

	"github.com/starford/scriptorium/internal/apperr"
)

// fallbackComputeTypes are tried after the requested one, in order.
var fallbackComputeTypes = []string{"int8", "int8_float32", "float32"}

// ComputeTypes returns the candidates Load tries for primary, deduplicated.
func ComputeTypes(primary string) []string {
	out := make([]string, 0, len(fallbackComputeTypes)+1)
	seen := make(map[string]struct{}, len(fallbackComputeTypes)+1)
	for _, ct := range append([]string{primary}, fallbackComputeTypes...) {
		if ct == "" {
			continue
		}
		if _, ok := seen[ct]; ok {
			continue
		}
		seen[ct] = struct{}{}
		out = append(out, ct)
	}
	return out
}

// Load opens an engine with the first compute type that works and reports
// which one it used. When every candidate fails the joined errors are
// returned, wrapped in apperr.ErrEngineUnavailable.
func Load(ctx context.Context, primary string, open Opener) (Engine, string, error) {
	var errs []error
	for _, ct := range ComputeTypes(primary) {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		eng, err := open(ctx, ct)
		if err == nil {
			return eng, ct, nil
		}
		errs = append(errs, fmt.Errorf("compute type %s: %w", ct, err))
	}
	return nil, "", fmt.Errorf("asr: load engine: %w: %w", apperr.ErrEngineUnavailable, errors.Join(errs...))
}
