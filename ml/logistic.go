package ml

import (
	"errors"
	"fmt"
	"math"
)

type LogisticParams struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
	Threshold float64   `json:"threshold,omitempty"`
}

type LogisticRegression struct {
	coef      []float64
	intercept float64
	threshold float64
}

func NewLogisticRegression(params LogisticParams, featureCount int) (*LogisticRegression, error) {
	if len(params.Coef) != featureCount {
		return nil, fmt.Errorf("expected %d coefficients, got %d", featureCount, len(params.Coef))
	}
	threshold := params.Threshold
	if threshold == 0 {
		threshold = 0.5
	}
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("threshold %v out of range (0, 1)", threshold)
	}
	return &LogisticRegression{
		coef:      append([]float64(nil), params.Coef...),
		intercept: params.Intercept,
		threshold: threshold,
	}, nil
}

func (lr *LogisticRegression) Predict(features []float64) (int, error) {
	if len(features) != len(lr.coef) {
		return 0, errors.New("feature count mismatch")
	}
	if lr.Probability(features) > lr.threshold {
		return 1, nil
	}
	return 0, nil
}

func (lr *LogisticRegression) Probability(features []float64) float64 {
	z := lr.intercept
	for i, value := range features {
		z += lr.coef[i] * value
	}
	return 1 / (1 + math.Exp(-z))
}
