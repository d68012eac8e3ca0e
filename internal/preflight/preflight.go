package preflight

import (
	"context"

	"sdportal/internal/config"
	"sdportal/internal/task"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes every preflight check for the given config. The relay check
// is skipped when relay is nil.
func RunAll(ctx context.Context, cfg *config.Config, catalog *task.PoseCatalog, relay BalanceSource) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
	}
	if catalog != nil {
		results = append(results, CheckPoseAssets(cfg.Assets.PoseDir, catalog))
	}
	if relay != nil {
		results = append(results, CheckRelay(ctx, relay))
	}
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
