// Package cli cardiorisk命令行
package cli

import (
	"fmt"
	"os"

	"cardiorisk/config"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "config.yaml"

// Version 构建时通过-ldflags注入
var Version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCmd 创建根命令
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "cardiorisk",
		Short:         "Heart disease risk inference service",
		Long:          `Serves a pre-trained heart disease classifier over an HTML form, a JSON API and a WebSocket stream.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "Path to the YAML config file. (Env: "+config.EnvConfigPath+")")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Logging level (debug, info, warn, error). (Env: "+config.EnvLogLevel+")")

	root.AddCommand(
		newServeCmd(opts),
		newCheckModelCmd(opts),
		newPredictCmd(),
	)
	return root
}

// Execute 执行根命令
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// overrides 命令行参数覆盖项，优先级最高
type overrides struct {
	port      int
	modelPath string
}

// loadConfig 加载配置，优先级：命令行 > 环境变量 > 配置文件
func (o *rootOptions) loadConfig(cmd *cobra.Command, over overrides) (*config.Config, string, error) {
	path := o.configPath
	if !cmd.Flags().Changed("config") {
		if env := os.Getenv(config.EnvConfigPath); env != "" {
			path = env
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load configuration: %w", err)
	}

	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if over.port != 0 {
		cfg.HTTP.Port = over.port
	}
	if over.modelPath != "" {
		cfg.Model.Path = over.modelPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("configuration error: %w", err)
	}
	return cfg, path, nil
}
