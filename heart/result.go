package heart

import (
	"errors"
	"fmt"
)

const (
	LabelNoDisease = 0
	LabelDisease   = 1
)

const (
	MessageDisease   = "Heart Disease Detected 💔. Please visit a doctor, do not panic."
	MessageNoDisease = "No Heart Disease ❤️. Keep healthy, visit a doctor regularly."
)

var (
	ErrUnexpectedLabel = errors.New("model returned an unexpected label")
	ErrInference       = errors.New("model inference failed")
)

type PredictionResult struct {
	Label   int    `json:"prediction"`
	Message string `json:"result"`
}

// ResultFor 将模型标签映射为结果消息，未知标签返回错误
func ResultFor(label int) (PredictionResult, error) {
	switch label {
	case LabelDisease:
		return PredictionResult{Label: label, Message: MessageDisease}, nil
	case LabelNoDisease:
		return PredictionResult{Label: label, Message: MessageNoDisease}, nil
	default:
		return PredictionResult{}, fmt.Errorf("%w: %d", ErrUnexpectedLabel, label)
	}
}
