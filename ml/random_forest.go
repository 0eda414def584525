package ml

import "errors"

type RandomForest struct {
	trees []*DecisionTree
}

func NewRandomForest(trees []*DecisionTree) (*RandomForest, error) {
	if len(trees) == 0 {
		return nil, errors.New("forest has no trees")
	}
	return &RandomForest{trees: trees}, nil
}

// Predict returns the majority vote. Ties go to the smaller label.
func (rf *RandomForest) Predict(features []float64) (int, error) {
	votes := make(map[int]int, 2)
	for _, tree := range rf.trees {
		label, err := tree.Predict(features)
		if err != nil {
			return 0, err
		}
		votes[label]++
	}
	bestLabel := 0
	bestCount := -1
	for label, count := range votes {
		if count > bestCount || (count == bestCount && label < bestLabel) {
			bestLabel = label
			bestCount = count
		}
	}
	return bestLabel, nil
}
