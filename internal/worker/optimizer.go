package worker

import (
	"context"
	"fmt"

	"github.com/skucast/tuning_go_server/config"
	"github.com/skucast/tuning_go_server/internal/model"
)

// OptimizeSpec is the input handed to an optimizer: the job's identity plus
// everything the tuning engine needs to run.
type OptimizeSpec struct {
	JobID         int64
	TenantID      int64
	SKU           string
	ModelID       string
	Method        string
	DatasetID     string
	Parameters    map[string]float64
	MetricWeights map[string]float64
}

// Outcome is a finished tuning run: per-metric scores plus the forecast
// series produced with the tuned parameters.
type Outcome struct {
	Scores    map[string]float64
	Forecasts model.ForecastSeries
}

// Optimizer is the worker contract. Implementations run the grid or AI
// search and report progress in [0,100] through report as they go; the
// runner persists those updates. Optimize must honour ctx cancellation
// between phases.
type Optimizer interface {
	Optimize(ctx context.Context, spec OptimizeSpec, report func(progress int)) (*Outcome, error)
}

// NewOptimizer builds the optimizer selected by config: "http" talks to the
// external tuning engine, "sim" runs the built-in simulator.
func NewOptimizer(cfg *config.EngineConfig) (Optimizer, error) {
	switch cfg.Mode {
	case "http":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("engine base_url is required in http mode")
		}
		return NewEngineClient(cfg), nil
	case "sim":
		return NewSimOptimizer(cfg.SimDelay, cfg.SimPhases), nil
	default:
		return nil, fmt.Errorf("unknown engine mode %q", cfg.Mode)
	}
}
