package ml

import (
	"errors"
	"fmt"
)

const (
	ScalerStandard = "standard"
	ScalerMinMax   = "minmax"
)

// ScalerParams is the serialized form of a fitted scaler. Standard scalers
// use Mean/Scale, min-max scalers use Min/Max.
type ScalerParams struct {
	Kind  string    `json:"kind"`
	Mean  []float64 `json:"mean,omitempty"`
	Scale []float64 `json:"scale,omitempty"`
	Min   []float64 `json:"min,omitempty"`
	Max   []float64 `json:"max,omitempty"`
}

type Scaler struct {
	kind string
	a    []float64
	b    []float64
}

func NewScaler(params ScalerParams, featureCount int) (*Scaler, error) {
	var a, b []float64
	switch params.Kind {
	case ScalerStandard:
		a, b = params.Mean, params.Scale
	case ScalerMinMax:
		a, b = params.Min, params.Max
	default:
		return nil, fmt.Errorf("unknown scaler kind %q", params.Kind)
	}
	if len(a) != featureCount || len(b) != featureCount {
		return nil, fmt.Errorf("%s scaler expects %d values per parameter", params.Kind, featureCount)
	}
	return &Scaler{
		kind: params.Kind,
		a:    append([]float64(nil), a...),
		b:    append([]float64(nil), b...),
	}, nil
}

func (s *Scaler) Transform(values []float64) ([]float64, error) {
	if len(values) != len(s.a) {
		return nil, errors.New("values/scaler length mismatch")
	}
	result := make([]float64, len(values))
	for i, value := range values {
		if s.kind == ScalerStandard {
			result[i] = StandardizeFeature(value, s.a[i], s.b[i])
		} else {
			result[i] = NormalizeFeature(value, s.a[i], s.b[i])
		}
	}
	return result, nil
}

func StandardizeFeature(value, mean, scale float64) float64 {
	if scale == 0 {
		scale = 1
	}
	return (value - mean) / scale
}

func NormalizeFeature(value, min, max float64) float64 {
	if max == min {
		return 0
	}
	return (value - min) / (max - min)
}
