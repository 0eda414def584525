package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"cardiorisk/heart"
	"cardiorisk/ml"
	"cardiorisk/monitoring"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers 预测服务处理器，持有启动时加载的预测器
type Handlers struct {
	predictor *heart.Predictor
	metrics   *monitoring.Metrics
	logger    *zap.Logger
	upgrader  websocket.Upgrader
	maxBody   int64
}

// NewHandlers 创建处理器
func NewHandlers(predictor *heart.Predictor, metrics *monitoring.Metrics, logger *zap.Logger, maxBody int64) *Handlers {
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		predictor: predictor,
		metrics:   metrics,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 跨域限制由CORS中间件负责
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		maxBody: maxBody,
	}
}

// RegisterHandlers 注册路由
func (h *Handlers) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleHome)
	mux.HandleFunc("POST /predict_form", h.handlePredictForm)
	mux.HandleFunc("POST /predict", h.handlePredict)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /metrics", h.handleMetrics)
	mux.HandleFunc("GET /ws/predict", h.handlePredictStream)
	mux.Handle("GET /static/", staticHandler())
}

type errorResponse struct {
	Error   string       `json:"error"`
	Details []FieldError `json:"details,omitempty"`
}

type healthResponse struct {
	Status string   `json:"status"`
	Model  *ml.Info `json:"model,omitempty"`
}

func (h *Handlers) handleHome(w http.ResponseWriter, r *http.Request) {
	if err := renderPage(w, http.StatusOK, newPageData(nil)); err != nil {
		h.logger.Error("render page", zap.Error(err))
	}
}

func (h *Handlers) handlePredictForm(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeForm(r)
	data := newPageData(r)
	if err != nil {
		status, body := h.errorStatus(r.Context(), err)
		data.Errors = body.Details
		if len(data.Errors) == 0 {
			data.Errors = []FieldError{{Field: "form", Message: body.Error}}
		}
		if rerr := renderPage(w, status, data); rerr != nil {
			h.logger.Error("render page", zap.Error(rerr))
		}
		return
	}

	result, err := h.predictor.Predict(r.Context(), fields)
	if err != nil {
		status, body := h.errorStatus(r.Context(), err)
		data.Errors = []FieldError{{Field: "model", Message: body.Error}}
		if rerr := renderPage(w, status, data); rerr != nil {
			h.logger.Error("render page", zap.Error(rerr))
		}
		return
	}

	data.Result = result.Message
	data.Positive = result.Label == heart.LabelDisease
	if err := renderPage(w, http.StatusOK, data); err != nil {
		h.logger.Error("render page", zap.Error(err))
	}
}

func (h *Handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	status, payload := h.predictJSON(r.Context(), r.Body)
	respondJSON(w, status, payload)
}

// predictJSON 解析一个JSON请求并预测，HTTP与WebSocket共用
func (h *Handlers) predictJSON(ctx context.Context, body io.Reader) (int, interface{}) {
	fields, err := decodeJSON(body)
	if err == nil {
		var result heart.PredictionResult
		result, err = h.predictor.Predict(ctx, fields)
		if err == nil {
			return http.StatusOK, result
		}
	}
	return h.errorStatus(ctx, err)
}

// errorStatus 将错误映射为状态码和响应体
func (h *Handlers) errorStatus(ctx context.Context, err error) (int, errorResponse) {
	var validationErr *ValidationError
	var reqErr *requestError
	switch {
	case errors.As(err, &validationErr):
		h.metrics.RecordValidationError()
		return http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Details: validationErr.Fields}
	case errors.As(err, &reqErr):
		h.metrics.RecordValidationError()
		return reqErr.status, errorResponse{Error: reqErr.message}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, errorResponse{Error: "request cancelled"}
	default:
		h.logger.Error("prediction failed",
			zap.String("request_id", GetRequestID(ctx)),
			zap.Error(err),
		)
		return http.StatusInternalServerError, errorResponse{Error: "prediction failed"}
	}
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if info, ok := h.predictor.ModelInfo(); ok {
		resp.Model = &info
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(h.metrics.Snapshot().PrometheusText()))
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("encode JSON response", zap.Error(err))
	}
}
