package ml

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var heartFeatures = []string{
	"age", "sex", "cp", "trestbps", "chol", "fbs", "restecg",
	"thalach", "exang", "oldpeak", "slope", "ca", "thal",
}

func TestLoadModelBundledArtifact(t *testing.T) {
	model, err := LoadModel(filepath.Join("..", "models", "heart_model.json"), heartFeatures)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info := model.Info()
	if info.Type != TypeDecisionTree || info.FeatureCount != len(heartFeatures) {
		t.Fatalf("unexpected info: %+v", info)
	}

	label, err := model.Predict([]float64{63, 1, 3, 145, 233, 1, 0, 150, 0, 2.3, 0, 0, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != 1 {
		t.Fatalf("expected label 1 for reference row, got %d", label)
	}

	label, err = model.Predict([]float64{57, 1, 0, 140, 192, 0, 1, 148, 0, 0.4, 1, 2, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != 0 {
		t.Fatalf("expected label 0, got %d", label)
	}

	if _, err := model.Predict([]float64{1, 2, 3}); !errors.Is(err, ErrFeatureCount) {
		t.Fatalf("expected ErrFeatureCount, got %v", err)
	}
}

func TestLoadModelMissingFile(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "missing.json"), heartFeatures)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestParseModelErrors(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    error
	}{
		{"corrupt", `{"format_version": 1, "model_type": `, ErrInvalidArtifact},
		{"unknown field", `{"format_version": 1, "model_type": "decision_tree", "pickle": "x"}`, ErrInvalidArtifact},
		{"version", `{"format_version": 2, "model_type": "decision_tree"}`, ErrUnsupportedVersion},
		{"type", `{"format_version": 1, "model_type": "svm"}`, ErrUnsupportedModelType},
		{"empty tree", `{"format_version": 1, "model_type": "decision_tree"}`, ErrInvalidArtifact},
		{"order", `{"format_version": 1, "model_type": "decision_tree",
			"feature_names": ["sex","age","cp","trestbps","chol","fbs","restecg","thalach","exang","oldpeak","slope","ca","thal"],
			"tree": [{"is_leaf": true, "class_label": 0}]}`, ErrFeatureMismatch},
		{"logistic params", `{"format_version": 1, "model_type": "logistic_regression"}`, ErrInvalidArtifact},
		{"scaler", `{"format_version": 1, "model_type": "decision_tree",
			"scaler": {"kind": "standard", "mean": [1], "scale": [1]},
			"tree": [{"is_leaf": true, "class_label": 0}]}`, ErrInvalidArtifact},
	}
	for _, tc := range cases {
		_, err := ParseModel(strings.NewReader(tc.payload), heartFeatures)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestParseModelScaledLogistic(t *testing.T) {
	payload := `{
		"format_version": 1,
		"name": "lr",
		"model_type": "logistic_regression",
		"scaler": {"kind": "standard", "mean": [0,0,0,0,0,0,0,0,0,1,0,0,0], "scale": [1,1,1,1,1,1,1,1,1,2,1,1,1]},
		"logistic": {"coef": [0,0,0,0,0,0,0,0,0,4,0,0,0], "intercept": 0}
	}`
	model, err := ParseModel(strings.NewReader(payload), heartFeatures)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !model.Info().Scaled {
		t.Fatal("expected scaled model")
	}
	row := make([]float64, 13)
	row[9] = 1.4
	if label, _ := model.Predict(row); label != 1 {
		t.Fatalf("expected label 1, got %d", label)
	}
	row[9] = 0.6
	if label, _ := model.Predict(row); label != 0 {
		t.Fatalf("expected label 0, got %d", label)
	}
}

func TestParseModelRandomForest(t *testing.T) {
	payload := `{
		"format_version": 1,
		"model_type": "random_forest",
		"trees": [
			[{"feature_idx": 9, "threshold": 1.0, "left_child": 1, "right_child": 2},
			 {"is_leaf": true, "class_label": 0},
			 {"is_leaf": true, "class_label": 1}],
			[{"is_leaf": true, "class_label": 1}],
			[{"is_leaf": true, "class_label": 0}]
		]
	}`
	model, err := ParseModel(strings.NewReader(payload), heartFeatures)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row := make([]float64, 13)
	row[9] = 2.3
	if label, _ := model.Predict(row); label != 1 {
		t.Fatalf("expected label 1, got %d", label)
	}
	row[9] = 0.2
	if label, _ := model.Predict(row); label != 0 {
		t.Fatalf("expected label 0, got %d", label)
	}
}
