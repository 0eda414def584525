package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cardiorisk/config"
	"cardiorisk/heart"
	apihttp "cardiorisk/http"
	"cardiorisk/logging"
	"cardiorisk/ml"
	"cardiorisk/monitoring"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var over overrides

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the model and start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := opts.loadConfig(cmd, over)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, path)
		},
	}
	cmd.Flags().IntVar(&over.port, "port", 0, "Port for the HTTP server. (Env: "+config.EnvPort+")")
	cmd.Flags().StringVar(&over.modelPath, "model", "", "Path to the model artifact. (Env: "+config.EnvModelPath+")")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, configPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger, level, err := logging.New(cfg.Log.Options())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	server, err := buildServer(cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Log.Watch {
		if _, statErr := os.Stat(configPath); statErr == nil {
			go func() {
				err := config.Watch(ctx, configPath, logger, func(next *config.Config) {
					lvl, err := logging.ParseLevel(next.Log.Level)
					if err != nil {
						return
					}
					if lvl != level.Level() {
						level.SetLevel(lvl)
						logger.Info("log level changed", zap.String("level", lvl.String()))
					}
				})
				if err != nil {
					logger.Warn("config watch stopped", zap.Error(err))
				}
			}()
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	if err := server.Stop(); err != nil {
		return err
	}
	if err := <-errCh; err != nil {
		return err
	}
	logger.Info("exiting")
	return nil
}

// buildServer 加载模型并创建HTTP服务器，模型加载失败则中止启动
func buildServer(cfg *config.Config, logger *zap.Logger) (*apihttp.Server, error) {
	model, err := ml.LoadModel(cfg.Model.Path, heart.FeatureNames())
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	info := model.Info()
	logger.Info("model loaded",
		zap.String("path", cfg.Model.Path),
		zap.String("name", info.Name),
		zap.String("type", info.Type),
		zap.Bool("scaled", info.Scaled),
	)

	metrics := monitoring.NewMetrics()
	predictor, err := heart.NewPredictor(model,
		heart.WithCacheSize(cfg.Model.CacheSize),
		heart.WithRecorder(metrics),
		heart.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	serverConfig := apihttp.ServerConfig{
		Addr:           cfg.Addr(),
		Timeout:        cfg.HTTP.Timeout,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}
	return apihttp.NewServer(serverConfig, predictor, metrics, logger), nil
}
