package model

import (
	"database/sql/driver"
	"encoding/json"
)

// Float64Map is a JSON object column with numeric values, used for model
// parameters and metric weights.
type Float64Map map[string]float64

func (m Float64Map) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

func (m *Float64Map) Scan(value interface{}) error {
	if value == nil {
		*m = Float64Map{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return nil
		}
	}
	return json.Unmarshal(bytes, m)
}

// ForecastPoint is one period of a forecast series.
type ForecastPoint struct {
	Period string  `json:"period"`
	Value  float64 `json:"value"`
}

// ForecastSeries is a JSON array column of forecast points.
type ForecastSeries []ForecastPoint

func (f ForecastSeries) Value() (driver.Value, error) {
	if f == nil {
		return "[]", nil
	}
	return json.Marshal(f)
}

func (f *ForecastSeries) Scan(value interface{}) error {
	if value == nil {
		*f = ForecastSeries{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return nil
		}
	}
	return json.Unmarshal(bytes, f)
}

// JobResult is the payload attached to a completed job and mirrored into the
// result cache: per-metric scores plus the forecast series.
type JobResult struct {
	Scores    Float64Map     `json:"scores"`
	Forecasts ForecastSeries `json:"forecasts"`
}

func (r *JobResult) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

func (r *JobResult) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return nil
		}
	}
	return json.Unmarshal(bytes, r)
}
