// Package client cardiorisk预测API客户端
package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cardiorisk/heart"
	"cardiorisk/ml"

	"github.com/go-resty/resty/v2"
)

// FieldError 字段校验错误
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError 非2xx响应错误
type APIError struct {
	StatusCode int          `json:"-"`
	Message    string       `json:"error"`
	Details    []FieldError `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("cardiorisk: %d %s", e.StatusCode, e.Message)
	}
	parts := make([]string, len(e.Details))
	for i, d := range e.Details {
		parts[i] = d.Field + ": " + d.Message
	}
	return fmt.Sprintf("cardiorisk: %d %s (%s)", e.StatusCode, e.Message, strings.Join(parts, "; "))
}

// Health 健康检查响应
type Health struct {
	Status string   `json:"status"`
	Model  *ml.Info `json:"model,omitempty"`
}

type Option func(*resty.Client)

func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

func WithRetries(count int) Option {
	return func(c *resty.Client) {
		c.SetRetryCount(count).
			AddRetryCondition(func(resp *resty.Response, err error) bool {
				// 仅重试传输错误
				return err != nil
			})
	}
}

func WithRequestID(id string) Option {
	return func(c *resty.Client) { c.SetHeader("X-Request-ID", id) }
}

type Client struct {
	rest *resty.Client
}

func New(baseURL string, opts ...Option) *Client {
	rest := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(10*time.Second).
		SetHeader("Accept", "application/json")
	for _, opt := range opts {
		opt(rest)
	}
	return &Client{rest: rest}
}

// Predict 请求预测
func (c *Client) Predict(ctx context.Context, fields heart.Fields) (heart.PredictionResult, error) {
	var result heart.PredictionResult
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(fields).
		SetResult(&result).
		SetError(&APIError{}).
		Post("/predict")
	if err != nil {
		return heart.PredictionResult{}, fmt.Errorf("predict request: %w", err)
	}
	if err := responseError(resp); err != nil {
		return heart.PredictionResult{}, err
	}
	return result, nil
}

// Health 健康检查
func (c *Client) Health(ctx context.Context) (Health, error) {
	var health Health
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&health).
		SetError(&APIError{}).
		Get("/api/health")
	if err != nil {
		return Health{}, fmt.Errorf("health request: %w", err)
	}
	if err := responseError(resp); err != nil {
		return Health{}, err
	}
	return health, nil
}

func responseError(resp *resty.Response) error {
	if !resp.IsError() {
		if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
			return &APIError{StatusCode: resp.StatusCode(), Message: http.StatusText(resp.StatusCode())}
		}
		return nil
	}
	apiErr, ok := resp.Error().(*APIError)
	if !ok || apiErr.Message == "" {
		message := strings.TrimSpace(string(resp.Body()))
		if message == "" {
			message = http.StatusText(resp.StatusCode())
		}
		return &APIError{StatusCode: resp.StatusCode(), Message: message}
	}
	apiErr.StatusCode = resp.StatusCode()
	return apiErr
}
