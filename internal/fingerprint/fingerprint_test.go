package fingerprint

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseRequest() Request {
	return Request{
		SKU:       "SKU-001",
		ModelID:   "arima",
		Method:    "grid",
		DatasetID: "ds-42@r7",
		Parameters: map[string]float64{
			"p": 1,
			"d": 1,
			"q": 2,
		},
		MetricWeights: map[string]float64{
			"mape":     0.4,
			"rmse":     0.3,
			"mae":      0.2,
			"accuracy": 0.1,
		},
	}
}

func TestCompute_Format(t *testing.T) {
	fp := Compute(baseRequest())
	assert.Len(t, fp, 64)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), fp)
}

func TestCompute_Deterministic(t *testing.T) {
	a := Compute(baseRequest())
	b := Compute(baseRequest())
	assert.Equal(t, a, b)
}

func TestCompute_KeyOrderIndependent(t *testing.T) {
	// Maps have no defined iteration order, so build the same logical request
	// through different insertion orders.
	req1 := baseRequest()

	req2 := baseRequest()
	req2.Parameters = map[string]float64{}
	for _, k := range []string{"q", "p", "d"} {
		req2.Parameters[k] = req1.Parameters[k]
	}
	req2.MetricWeights = map[string]float64{}
	for _, k := range []string{"accuracy", "mae", "rmse", "mape"} {
		req2.MetricWeights[k] = req1.MetricWeights[k]
	}

	assert.Equal(t, Compute(req1), Compute(req2))
}

func TestCompute_NumericNormalization(t *testing.T) {
	req1 := baseRequest()
	req1.Parameters["alpha"] = 1

	req2 := baseRequest()
	req2.Parameters["alpha"] = 1.0

	assert.Equal(t, Compute(req1), Compute(req2))
}

func TestCompute_OmittedWeightsMatchExplicitDefaults(t *testing.T) {
	explicit := baseRequest()

	omitted := baseRequest()
	omitted.MetricWeights = nil

	assert.Equal(t, Compute(explicit), Compute(omitted))
}

func TestCompute_PairwiseSensitivity(t *testing.T) {
	base := Compute(baseRequest())

	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"sku", func(r *Request) { r.SKU = "SKU-002" }},
		{"model", func(r *Request) { r.ModelID = "holtwinters" }},
		{"method", func(r *Request) { r.Method = "ai" }},
		{"dataset", func(r *Request) { r.DatasetID = "ds-42@r8" }},
		{"parameter value", func(r *Request) { r.Parameters["p"] = 3 }},
		{"parameter key", func(r *Request) {
			delete(r.Parameters, "p")
			r.Parameters["seasonal"] = 1
		}},
		{"metric weights", func(r *Request) {
			r.MetricWeights["mape"] = 0.5
			r.MetricWeights["rmse"] = 0.2
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest()
			tt.mutate(&req)
			assert.NotEqual(t, base, Compute(req))
		})
	}
}

func TestCompute_FieldsDoNotBleedAcrossSeparators(t *testing.T) {
	// sku "a|model=b" must not collide with sku "a", model "b".
	req1 := baseRequest()
	req1.SKU = "a|model=b"
	req1.ModelID = "c"

	req2 := baseRequest()
	req2.SKU = "a"
	req2.ModelID = "b|method=c"

	assert.NotEqual(t, Compute(req1), Compute(req2))
}

func TestCompute_MapKeysDoNotForgeEntries(t *testing.T) {
	// A key containing the entry separators must not serialize the same as
	// two separate entries: {"a":1,"b":2} vs {"a:1,b":2}.
	req1 := baseRequest()
	req1.Parameters = map[string]float64{"a": 1, "b": 2}

	req2 := baseRequest()
	req2.Parameters = map[string]float64{"a:1,b": 2}

	assert.NotEqual(t, Compute(req1), Compute(req2))
}

func TestNormalizeWeights(t *testing.T) {
	t.Run("empty gets defaults", func(t *testing.T) {
		w := NormalizeWeights(nil)
		require.Len(t, w, 4)
		assert.Equal(t, 0.4, w["mape"])
		assert.Equal(t, 0.3, w["rmse"])
		assert.Equal(t, 0.2, w["mae"])
		assert.Equal(t, 0.1, w["accuracy"])
	})

	t.Run("explicit weights are copied", func(t *testing.T) {
		in := map[string]float64{"mape": 1}
		w := NormalizeWeights(in)
		w["mape"] = 0.5
		assert.Equal(t, float64(1), in["mape"])
	})

	t.Run("defaults are copies", func(t *testing.T) {
		w := DefaultMetricWeights()
		w["mape"] = 99
		assert.Equal(t, 0.4, DefaultMetricWeights()["mape"])
	})
}
