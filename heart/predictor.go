package heart

import (
	"context"
	"fmt"
	"time"

	"cardiorisk/ml"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Recorder 预测结果记录器
type Recorder interface {
	RecordPrediction(label int, latency time.Duration, cached bool)
	RecordInferenceError()
}

type nopRecorder struct{}

func (nopRecorder) RecordPrediction(int, time.Duration, bool) {}
func (nopRecorder) RecordInferenceError()                     {}

type Option func(*Predictor) error

// WithCacheSize 设置预测缓存大小，0表示不缓存
func WithCacheSize(size int) Option {
	return func(p *Predictor) error {
		if size == 0 {
			p.cache = nil
			return nil
		}
		cache, err := lru.New[FeatureVector, int](size)
		if err != nil {
			return fmt.Errorf("create prediction cache: %w", err)
		}
		p.cache = cache
		return nil
	}
}

func WithRecorder(recorder Recorder) Option {
	return func(p *Predictor) error {
		if recorder != nil {
			p.recorder = recorder
		}
		return nil
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Predictor) error {
		if logger != nil {
			p.logger = logger
		}
		return nil
	}
}

// Predictor 预测器，启动时创建一次，并发安全
type Predictor struct {
	model    ml.Classifier
	cache    *lru.Cache[FeatureVector, int]
	recorder Recorder
	logger   *zap.Logger
}

func NewPredictor(model ml.Classifier, opts ...Option) (*Predictor, error) {
	if model == nil {
		return nil, fmt.Errorf("predictor requires a model")
	}
	p := &Predictor{
		model:    model,
		recorder: nopRecorder{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Predict 执行预测并映射结果消息
func (p *Predictor) Predict(ctx context.Context, fields Fields) (PredictionResult, error) {
	if err := ctx.Err(); err != nil {
		return PredictionResult{}, err
	}
	start := time.Now()
	vector := fields.Vector()

	if p.cache != nil {
		if label, ok := p.cache.Get(vector); ok {
			result, err := ResultFor(label)
			if err == nil {
				p.recorder.RecordPrediction(label, time.Since(start), true)
			}
			return result, err
		}
	}

	label, err := p.infer(vector)
	if err != nil {
		p.recorder.RecordInferenceError()
		p.logger.Error("inference failed", zap.Error(err))
		return PredictionResult{}, err
	}
	result, err := ResultFor(label)
	if err != nil {
		p.recorder.RecordInferenceError()
		p.logger.Error("unexpected model output", zap.Int("label", label))
		return PredictionResult{}, err
	}
	if p.cache != nil {
		p.cache.Add(vector, label)
	}
	p.recorder.RecordPrediction(label, time.Since(start), false)
	return result, nil
}

func (p *Predictor) infer(vector FeatureVector) (label int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrInference, r)
		}
	}()
	label, err = p.model.Predict(vector.Slice())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInference, err)
	}
	return label, nil
}

// ModelInfo 获取模型元数据
func (p *Predictor) ModelInfo() (ml.Info, bool) {
	described, ok := p.model.(interface{ Info() ml.Info })
	if !ok {
		return ml.Info{}, false
	}
	return described.Info(), true
}
