// Package http 提供HTTP服务器功能
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"cardiorisk/heart"
	"cardiorisk/monitoring"

	"go.uber.org/zap"
)

// Server HTTP服务器
type Server struct {
	server *http.Server
	config ServerConfig
	logger *zap.Logger
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Addr           string
	Timeout        time.Duration
	MaxBodyBytes   int64
	AllowedOrigins []string
}

// DefaultServerConfig 默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:           ":8000",
		Timeout:        30 * time.Second,
		MaxBodyBytes:   64 << 10,
		AllowedOrigins: []string{"*"},
	}
}

// NewServer 创建HTTP服务器
func NewServer(config ServerConfig, predictor *heart.Predictor, metrics *monitoring.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}

	return &Server{
		server: &http.Server{
			Addr:              config.Addr,
			Handler:           NewHandler(config, predictor, metrics, logger),
			ReadHeaderTimeout: config.Timeout,
			ReadTimeout:       config.Timeout,
			WriteTimeout:      config.Timeout,
			IdleTimeout:       120 * time.Second,
			ErrorLog:          zap.NewStdLog(logger),
		},
		config: config,
		logger: logger,
	}
}

// NewHandler 构建带中间件的路由
func NewHandler(config ServerConfig, predictor *heart.Predictor, metrics *monitoring.Metrics, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	NewHandlers(predictor, metrics, logger, config.MaxBodyBytes).RegisterHandlers(mux)

	chain := Chain(
		RequestIDMiddleware,                   // 1. 请求ID（日志与恢复中间件都需要）
		LoggerMiddleware(logger),              // 2. 访问日志
		MetricsMiddleware(metrics),            // 3. 请求计数
		RecoveryMiddleware(logger),            // 4. 捕获panic
		SecurityHeadersMiddleware,             // 5. 安全头
		CORSMiddleware(config.AllowedOrigins), // 6. CORS
		RequestSizeMiddleware(config.MaxBodyBytes),
	)
	return chain(mux)
}

// Start 启动服务器，阻塞直到服务器关闭
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.server.Addr, err)
	}
	return s.Serve(ln)
}

// Serve 在已有监听器上提供服务
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting HTTP server",
		zap.String("addr", ln.Addr().String()),
		zap.String("websocket", "/ws/predict"),
	)
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop 停止服务器
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	return nil
}

// Addr 返回服务器地址
func (s *Server) Addr() string {
	return s.server.Addr
}
