package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/padmm/internal/array"
	"github.com/born-ml/padmm/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, config.Defaults(), cfg)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "padmm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
solver:
  algorithm: admm
  maxiter: 50
  dtype: complex64
tune:
  space:
    - name: lambda
      low: 0.001
      high: 0.1
      log: true
`), 0o600))
	t.Setenv("PADMM_SOLVER_RHO", "2.5")
	t.Setenv("PADMM_LOG_LEVEL", "debug")

	cfg, err := config.Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "admm", cfg.Solver.Algorithm)
	assert.Equal(t, 50, cfg.Solver.MaxIter)
	assert.Equal(t, 2.5, cfg.Solver.Rho)
	assert.Equal(t, "debug", cfg.Log.Level)
	require.Len(t, cfg.Tune.Space, 1)
	assert.True(t, cfg.Tune.Space[0].Log)
	assert.Equal(t, 0.1, cfg.Tune.Space[0].High)

	dt, err := config.ParseDType(cfg.Solver.DType)
	require.NoError(t, err)
	assert.Equal(t, array.Complex64, dt)
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("PADMM_SOLVER_ALGORITHM", "sgd")
	_, err = config.Load(viper.New(), "")
	assert.True(t, errors.Is(err, config.ErrInvalid))
}

func TestValidate(t *testing.T) {
	mutate := map[string]func(*config.Config){
		"maxiter":    func(c *config.Config) { c.Solver.MaxIter = 0 },
		"rho":        func(c *config.Config) { c.Solver.Rho = 0 },
		"subproblem": func(c *config.Config) { c.Solver.Subproblem = "qr" },
		"dtype":      func(c *config.Config) { c.Solver.DType = "int8" },
		"workers":    func(c *config.Config) { c.Tune.Workers = 0 },
		"pieces":     func(c *config.Config) { c.Tune.Pieces = 1000 },
		"space":      func(c *config.Config) { c.Tune.Space = nil },
		"level":      func(c *config.Config) { c.Log.Level = "loud" },
		"format":     func(c *config.Config) { c.Log.Format = "xml" },
	}
	for name, fn := range mutate {
		cfg := config.Defaults()
		fn(&cfg)
		assert.True(t, errors.Is(cfg.Validate(), config.ErrInvalid), name)
	}
}

func TestLogConfig_Apply(t *testing.T) {
	logger := logrus.New()
	require.NoError(t, config.LogConfig{Level: "warn", Format: "json"}.Apply(logger))
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, config.WriteYAML(&buf, config.Defaults()))

	var back config.Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, config.Defaults(), back)
}
