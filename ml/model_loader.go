package ml

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

const FormatVersion = 1

const (
	TypeDecisionTree       = "decision_tree"
	TypeRandomForest       = "random_forest"
	TypeLogisticRegression = "logistic_regression"
)

// Artifact is the on-disk JSON envelope of a trained model.
type Artifact struct {
	FormatVersion int             `json:"format_version"`
	Name          string          `json:"name"`
	ModelType     string          `json:"model_type"`
	FeatureNames  []string        `json:"feature_names,omitempty"`
	Scaler        *ScalerParams   `json:"scaler,omitempty"`
	Tree          []TreeNode      `json:"tree,omitempty"`
	Trees         [][]TreeNode    `json:"trees,omitempty"`
	Logistic      *LogisticParams `json:"logistic,omitempty"`
}

// LoadModel reads the artifact at path and checks it against the feature
// order the caller will use. A nil expected slice skips the name check.
func LoadModel(path string, expected []string) (*Model, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model %s: %w", path, err)
	}
	defer file.Close()

	model, err := ParseModel(file, expected)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	return model, nil
}

func ParseModel(r io.Reader, expected []string) (*Model, error) {
	var artifact Artifact
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&artifact); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	return BuildModel(artifact, expected)
}

func BuildModel(artifact Artifact, expected []string) (*Model, error) {
	if artifact.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, artifact.FormatVersion, FormatVersion)
	}

	featureCount := len(expected)
	if len(artifact.FeatureNames) > 0 {
		if expected != nil {
			if err := matchFeatureNames(artifact.FeatureNames, expected); err != nil {
				return nil, err
			}
		}
		featureCount = len(artifact.FeatureNames)
	}
	if featureCount == 0 {
		return nil, fmt.Errorf("%w: feature count unknown", ErrInvalidArtifact)
	}

	classifier, err := buildClassifier(artifact, featureCount)
	if err != nil {
		return nil, err
	}

	model := &Model{
		info: Info{
			Name:          artifact.Name,
			Type:          artifact.ModelType,
			FormatVersion: artifact.FormatVersion,
			FeatureCount:  featureCount,
			FeatureNames:  append([]string(nil), artifact.FeatureNames...),
		},
		classifier: classifier,
	}
	if artifact.Scaler != nil {
		scaler, err := NewScaler(*artifact.Scaler, featureCount)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
		}
		model.scaler = scaler
		model.info.Scaled = true
	}
	return model, nil
}

func buildClassifier(artifact Artifact, featureCount int) (Classifier, error) {
	switch artifact.ModelType {
	case TypeDecisionTree:
		tree, err := NewDecisionTree(artifact.Tree, featureCount)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
		}
		return tree, nil
	case TypeRandomForest:
		trees := make([]*DecisionTree, 0, len(artifact.Trees))
		for i, nodes := range artifact.Trees {
			tree, err := NewDecisionTree(nodes, featureCount)
			if err != nil {
				return nil, fmt.Errorf("%w: tree %d: %v", ErrInvalidArtifact, i, err)
			}
			trees = append(trees, tree)
		}
		forest, err := NewRandomForest(trees)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
		}
		return forest, nil
	case TypeLogisticRegression:
		if artifact.Logistic == nil {
			return nil, fmt.Errorf("%w: missing logistic parameters", ErrInvalidArtifact)
		}
		lr, err := NewLogisticRegression(*artifact.Logistic, featureCount)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
		}
		return lr, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModelType, artifact.ModelType)
	}
}

func matchFeatureNames(got, want []string) error {
	if len(got) != len(want) {
		return fmt.Errorf("%w: artifact has %d features, service sends %d", ErrFeatureMismatch, len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("%w: position %d is %q, service sends %q", ErrFeatureMismatch, i, got[i], want[i])
		}
	}
	return nil
}
