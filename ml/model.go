package ml

import "errors"

var (
	ErrInvalidArtifact      = errors.New("invalid model artifact")
	ErrUnsupportedVersion   = errors.New("unsupported model format version")
	ErrUnsupportedModelType = errors.New("unsupported model type")
	ErrFeatureMismatch      = errors.New("model feature names do not match")
	ErrFeatureCount         = errors.New("feature count mismatch")
)

// Classifier predicts a class label for one row of features.
type Classifier interface {
	Predict(features []float64) (int, error)
}

// Info describes a loaded artifact.
type Info struct {
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	FormatVersion int      `json:"format_version"`
	FeatureCount  int      `json:"feature_count"`
	FeatureNames  []string `json:"feature_names,omitempty"`
	Scaled        bool     `json:"scaled"`
}

// Model is a loaded artifact: optional scaler followed by a classifier.
// It is never mutated after LoadModel returns.
type Model struct {
	info       Info
	scaler     *Scaler
	classifier Classifier
}

func (m *Model) Predict(features []float64) (int, error) {
	if len(features) != m.info.FeatureCount {
		return 0, ErrFeatureCount
	}
	row := features
	if m.scaler != nil {
		scaled, err := m.scaler.Transform(features)
		if err != nil {
			return 0, err
		}
		row = scaled
	}
	return m.classifier.Predict(row)
}

func (m *Model) Info() Info {
	info := m.info
	info.FeatureNames = append([]string(nil), m.info.FeatureNames...)
	return info
}
