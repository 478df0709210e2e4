// Package fingerprint computes the canonical hash that identifies a tuning
// request. Two requests with the same fingerprint are the same work: the
// dedup resolver and the result cache are both keyed by it.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// Default metric weights, substituted before hashing when a submission omits
// them so that omission and explicit defaults hash identically.
var defaultMetricWeights = map[string]float64{
	"mape":     0.4,
	"rmse":     0.3,
	"mae":      0.2,
	"accuracy": 0.1,
}

// DefaultMetricWeights returns a copy of the default weight set.
func DefaultMetricWeights() map[string]float64 {
	weights := make(map[string]float64, len(defaultMetricWeights))
	for k, v := range defaultMetricWeights {
		weights[k] = v
	}
	return weights
}

// NormalizeWeights returns the weights that actually apply to a submission:
// the input if non-empty, the defaults otherwise.
func NormalizeWeights(weights map[string]float64) map[string]float64 {
	if len(weights) == 0 {
		return DefaultMetricWeights()
	}
	out := make(map[string]float64, len(weights))
	for k, v := range weights {
		out[k] = v
	}
	return out
}

// Request holds the six inputs that determine a fingerprint.
type Request struct {
	SKU           string
	ModelID       string
	Method        string
	DatasetID     string
	Parameters    map[string]float64
	MetricWeights map[string]float64
}

// Compute returns the 64-char lowercase hex SHA-256 of the canonical
// serialization of req. Key order in Parameters/MetricWeights does not
// matter, and numerically equal values hash identically regardless of their
// original textual representation.
func Compute(req Request) string {
	var b strings.Builder
	b.WriteString("sku=")
	b.WriteString(req.SKU)
	b.WriteString("|model=")
	b.WriteString(req.ModelID)
	b.WriteString("|method=")
	b.WriteString(req.Method)
	b.WriteString("|dataset=")
	b.WriteString(req.DatasetID)
	b.WriteString("|params=")
	b.WriteString(canonicalMap(req.Parameters))
	b.WriteString("|weights=")
	b.WriteString(canonicalMap(NormalizeWeights(req.MetricWeights)))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// canonicalMap serializes a numeric map with sorted keys and normalized
// number formatting (1 and 1.0 render the same). Keys are quoted so that a
// key containing ":" or "," cannot forge another entry's serialization.
func canonicalMap(m map[string]float64) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, strconv.Quote(k)+":"+strconv.FormatFloat(m[k], 'g', -1, 64))
	}
	return strings.Join(parts, ",")
}
