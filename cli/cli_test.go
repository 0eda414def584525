package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cardiorisk/config"
	"cardiorisk/heart"
	apihttp "cardiorisk/http"
	"cardiorisk/ml"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const bundledModelPath = "../models/heart_model.json"

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// findCmd returns the parsed subcommand so loadConfig sees its flags.
func findCmd(t *testing.T, args ...string) (*cobra.Command, *rootOptions) {
	t.Helper()
	opts := &rootOptions{}
	root := &cobra.Command{Use: "cardiorisk"}
	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "")
	serve := newServeCmd(opts)
	root.AddCommand(serve)
	cmd, rest, err := root.Find(args)
	require.NoError(t, err)
	require.NoError(t, cmd.ParseFlags(rest))
	return cmd, opts
}

func TestConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  port: 7000\nlog:\n  level: warn\n"), 0o600))

	t.Run("file", func(t *testing.T) {
		cmd, opts := findCmd(t, "serve", "--config", path)
		cfg, got, err := opts.loadConfig(cmd, overrides{})
		require.NoError(t, err)
		assert.Equal(t, path, got)
		assert.Equal(t, 7000, cfg.HTTP.Port)
		assert.Equal(t, "warn", cfg.Log.Level)
	})

	t.Run("env config path", func(t *testing.T) {
		t.Setenv(config.EnvConfigPath, path)
		cmd, opts := findCmd(t, "serve")
		cfg, got, err := opts.loadConfig(cmd, overrides{})
		require.NoError(t, err)
		assert.Equal(t, path, got)
		assert.Equal(t, 7000, cfg.HTTP.Port)
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv(config.EnvPort, "7100")
		cmd, opts := findCmd(t, "serve", "--config", path)
		cfg, _, err := opts.loadConfig(cmd, overrides{})
		require.NoError(t, err)
		assert.Equal(t, 7100, cfg.HTTP.Port)
	})

	t.Run("flags over env", func(t *testing.T) {
		t.Setenv(config.EnvPort, "7100")
		t.Setenv(config.EnvLogLevel, "error")
		cmd, opts := findCmd(t, "serve", "--config", path, "--log-level", "debug")
		cfg, _, err := opts.loadConfig(cmd, overrides{port: 7200, modelPath: "/srv/m.json"})
		require.NoError(t, err)
		assert.Equal(t, 7200, cfg.HTTP.Port)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, "/srv/m.json", cfg.Model.Path)
	})

	t.Run("invalid", func(t *testing.T) {
		cmd, opts := findCmd(t, "serve", "--config", path, "--log-level", "shout")
		_, _, err := opts.loadConfig(cmd, overrides{})
		assert.ErrorContains(t, err, "configuration error")
	})
}

func TestCheckModel(t *testing.T) {
	out, err := runCmd(t, "check-model", "--config", filepath.Join(t.TempDir(), "none.yaml"), bundledModelPath)
	require.NoError(t, err)
	assert.Contains(t, out, "type:      decision_tree")
	assert.Contains(t, out, "features:  13")
	assert.Contains(t, out, "reference: 1 "+heart.MessageDisease)
}

func TestCheckModelRejectsBadArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"format_version":9,"model_type":"decision_tree"}`), 0o600))

	_, err := runCmd(t, "check-model", "--config", filepath.Join(t.TempDir(), "none.yaml"), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ml.ErrUnsupportedVersion)

	_, err = runCmd(t, "check-model", "--config", filepath.Join(t.TempDir(), "none.yaml"), filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPredictCommand(t *testing.T) {
	model, err := ml.LoadModel(bundledModelPath, heart.FeatureNames())
	require.NoError(t, err)
	predictor, err := heart.NewPredictor(model)
	require.NoError(t, err)
	server := httptest.NewServer(apihttp.NewHandler(apihttp.DefaultServerConfig(), predictor, nil, zap.NewNop()))
	defer server.Close()

	out, err := runCmd(t, "predict", "--url", server.URL,
		"--age", "63", "--sex", "1", "--cp", "3", "--trestbps", "145", "--chol", "233",
		"--fbs", "1", "--restecg", "0", "--thalach", "150", "--exang", "0",
		"--oldpeak", "2.3", "--slope", "0", "--ca", "0", "--thal", "1")
	require.NoError(t, err)

	var result heart.PredictionResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, heart.LabelDisease, result.Label)
	assert.Equal(t, heart.MessageDisease, result.Message)
}

func TestPredictCommandRequiresAllFields(t *testing.T) {
	_, err := runCmd(t, "predict", "--url", "http://127.0.0.1:1", "--age", "63")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s)")
	assert.Contains(t, err.Error(), "oldpeak")
}

func TestBuildServerFailsOnMissingModel(t *testing.T) {
	cfg := config.Default()
	cfg.Model.Path = filepath.Join(t.TempDir(), "absent.json")
	_, err := buildServer(&cfg, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	cfg := config.Default()
	cfg.HTTP.Host = "127.0.0.1"
	cfg.HTTP.Port = port
	cfg.Model.Path = bundledModelPath
	cfg.Log.Level = "error"
	cfg.Log.Watch = false

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServe(ctx, &cfg, "") }()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/api/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	resp, err := http.Post(base+"/predict", "application/json", strings.NewReader(`{"age":63}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
