package worker

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/skucast/tuning_go_server/internal/model"
)

// SimOptimizer is a deterministic stand-in for the real tuning engine, used
// in development and tests. Scores derive from a hash of the spec, so the
// same submission always produces the same outcome, matching the cache's
// assumption that equal fingerprints mean equal results.
type SimOptimizer struct {
	delay  time.Duration
	phases int
}

func NewSimOptimizer(delay time.Duration, phases int) *SimOptimizer {
	if phases <= 0 {
		phases = 5
	}
	return &SimOptimizer{delay: delay, phases: phases}
}

func (o *SimOptimizer) Optimize(ctx context.Context, spec OptimizeSpec, report func(int)) (*Outcome, error) {
	seed := simSeed(spec)

	for i := 1; i <= o.phases; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(o.delay):
		}
		report(i * 100 / (o.phases + 1))
	}

	// Errors in [0, 0.5), accuracy is their complement.
	mape := simScore(seed, 0) / 2
	rmse := simScore(seed, 1) / 2
	mae := simScore(seed, 2) / 2
	accuracy := 1 - mape

	scores := map[string]float64{
		"mape":     mape,
		"rmse":     rmse,
		"mae":      mae,
		"accuracy": accuracy,
	}
	scores["composite"] = composite(scores, spec.MetricWeights)

	horizon := 6
	forecasts := make(model.ForecastSeries, 0, horizon)
	base := 100 * (1 + simScore(seed, 3))
	for m := 0; m < horizon; m++ {
		forecasts = append(forecasts, model.ForecastPoint{
			Period: time.Now().UTC().AddDate(0, m+1, 0).Format("2006-01"),
			Value:  base * (1 + 0.05*simScore(seed, uint32(4+m))),
		})
	}

	return &Outcome{Scores: scores, Forecasts: forecasts}, nil
}

// composite folds per-metric scores into one number. Error metrics pull the
// score down, accuracy pushes it up.
func composite(scores, weights map[string]float64) float64 {
	c := 0.0
	for metric, w := range weights {
		v, ok := scores[metric]
		if !ok {
			continue
		}
		if metric == "accuracy" {
			c += w * v
		} else {
			c += w * (1 - v)
		}
	}
	return c
}

// simSeed hashes the spec fields that define the work, in a fixed order.
func simSeed(spec OptimizeSpec) [32]byte {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|", spec.SKU, spec.ModelID, spec.Method, spec.DatasetID)

	keys := make([]string, 0, len(spec.Parameters))
	for k := range spec.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "%s:%s,", k, strconv.FormatFloat(spec.Parameters[k], 'g', -1, 64))
	}

	var seed [32]byte
	copy(seed[:], h.Sum(nil))
	return seed
}

// simScore maps (seed, slot) to a stable value in [0, 1).
func simScore(seed [32]byte, slot uint32) float64 {
	h := sha256.New()
	h.Write(seed[:])
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], slot)
	h.Write(b[:])
	sum := h.Sum(nil)
	n := binary.BigEndian.Uint64(sum[:8])
	return float64(n%1_000_000) / 1_000_000
}
