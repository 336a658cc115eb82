// Package config loads command configuration from defaults, an optional
// YAML file and PADMM_-prefixed environment variables.
package config

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/padmm/internal/array"
	"github.com/born-ml/padmm/internal/tune"
)

// EnvPrefix prefixes environment overrides, e.g. PADMM_SOLVER_MAXITER.
const EnvPrefix = "PADMM"

// ErrInvalid reports an invalid configuration value.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full command configuration.
type Config struct {
	Solver SolverConfig `mapstructure:"solver" yaml:"solver"`
	Tune   TuneConfig   `mapstructure:"tune" yaml:"tune"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

// SolverConfig selects the benchmark solve.
type SolverConfig struct {
	Algorithm  string  `mapstructure:"algorithm" yaml:"algorithm"`   // admm or nlpadmm
	Subproblem string  `mapstructure:"subproblem" yaml:"subproblem"` // linear, matrix or generic
	DType      string  `mapstructure:"dtype" yaml:"dtype"`
	MaxIter    int     `mapstructure:"maxiter" yaml:"maxiter"`
	Rho        float64 `mapstructure:"rho" yaml:"rho"`
	Mu         float64 `mapstructure:"mu" yaml:"mu"` // 0 picks 1.1·‖B‖²
	Nu         float64 `mapstructure:"nu" yaml:"nu"`
	Lambda     float64 `mapstructure:"lambda" yaml:"lambda"`
	Size       int     `mapstructure:"size" yaml:"size"`
	Seed       int64   `mapstructure:"seed" yaml:"seed"`
	Display    bool    `mapstructure:"display" yaml:"display"`
	Period     int     `mapstructure:"period" yaml:"period"`
}

// TuneConfig configures the TV parameter search.
type TuneConfig struct {
	Samples     int          `mapstructure:"samples" yaml:"samples"`
	Workers     int          `mapstructure:"workers" yaml:"workers"`
	Seed        int64        `mapstructure:"seed" yaml:"seed"`
	MaxIter     int          `mapstructure:"maxiter" yaml:"maxiter"`
	ReportEvery int          `mapstructure:"report_every" yaml:"report_every"`
	Store       string       `mapstructure:"store" yaml:"store"`
	SQLitePath  string       `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	Length      int          `mapstructure:"length" yaml:"length"`
	Pieces      int          `mapstructure:"pieces" yaml:"pieces"`
	Sigma       float64      `mapstructure:"sigma" yaml:"sigma"`
	Space       []tune.Param `mapstructure:"space" yaml:"space"`
}

// LogConfig configures logrus.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // text or json
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Solver: SolverConfig{
			Algorithm:  "nlpadmm",
			Subproblem: "linear",
			DType:      "float32",
			MaxIter:    200,
			Rho:        1,
			Nu:         1,
			Lambda:     1,
			Size:       8,
			Seed:       12345,
			Period:     10,
		},
		Tune: TuneConfig{
			Samples:     16,
			Workers:     4,
			Seed:        1,
			MaxIter:     100,
			ReportEvery: 10,
			Store:       "memory",
			Length:      256,
			Pieces:      8,
			Sigma:       0.1,
			Space: []tune.Param{
				tune.LogUniform("lambda", 1e-2, 1e0),
				tune.LogUniform("rho", 1e-1, 1e1),
			},
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the configuration into v: defaults first, then the YAML file
// at path (if not empty), then environment variables.
func Load(v *viper.Viper, path string) (Config, error) {
	d := Defaults()
	for key, val := range map[string]any{
		"solver.algorithm":  d.Solver.Algorithm,
		"solver.subproblem": d.Solver.Subproblem,
		"solver.dtype":      d.Solver.DType,
		"solver.maxiter":    d.Solver.MaxIter,
		"solver.rho":        d.Solver.Rho,
		"solver.mu":         d.Solver.Mu,
		"solver.nu":         d.Solver.Nu,
		"solver.lambda":     d.Solver.Lambda,
		"solver.size":       d.Solver.Size,
		"solver.seed":       d.Solver.Seed,
		"solver.display":    d.Solver.Display,
		"solver.period":     d.Solver.Period,
		"tune.samples":      d.Tune.Samples,
		"tune.workers":      d.Tune.Workers,
		"tune.seed":         d.Tune.Seed,
		"tune.maxiter":      d.Tune.MaxIter,
		"tune.report_every": d.Tune.ReportEvery,
		"tune.store":        d.Tune.Store,
		"tune.sqlite_path":  d.Tune.SQLitePath,
		"tune.length":       d.Tune.Length,
		"tune.pieces":       d.Tune.Pieces,
		"tune.sigma":        d.Tune.Sigma,
		"tune.space":        d.Tune.Space,
		"log.level":         d.Log.Level,
		"log.format":        d.Log.Format,
	} {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	s := c.Solver
	switch s.Algorithm {
	case "admm", "nlpadmm":
	default:
		return errors.Wrapf(ErrInvalid, "solver.algorithm %q", s.Algorithm)
	}
	switch s.Subproblem {
	case "linear", "matrix", "generic":
	default:
		return errors.Wrapf(ErrInvalid, "solver.subproblem %q", s.Subproblem)
	}
	if _, err := ParseDType(s.DType); err != nil {
		return err
	}
	if s.MaxIter <= 0 || s.Size <= 0 || s.Period <= 0 {
		return errors.Wrap(ErrInvalid, "solver.maxiter, solver.size and solver.period must be positive")
	}
	if s.Rho <= 0 || s.Nu <= 0 || s.Mu < 0 || s.Lambda < 0 {
		return errors.Wrap(ErrInvalid, "solver.rho and solver.nu must be positive, solver.mu and solver.lambda non-negative")
	}

	t := c.Tune
	if t.Samples <= 0 || t.Workers <= 0 || t.MaxIter <= 0 || t.ReportEvery < 0 {
		return errors.Wrap(ErrInvalid, "tune.samples, tune.workers and tune.maxiter must be positive")
	}
	if t.Length < 2 || t.Pieces < 1 || t.Pieces > t.Length || t.Sigma < 0 {
		return errors.Wrap(ErrInvalid, "tune signal: need 1 <= pieces <= length, length >= 2, sigma >= 0")
	}
	if err := tune.Space(t.Space).Validate(); err != nil {
		return errors.Wrap(ErrInvalid, err.Error())
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrapf(ErrInvalid, "log.level: %v", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.Wrapf(ErrInvalid, "log.format %q", c.Log.Format)
	}
	return nil
}

// ParseDType maps a dtype name to array.DType.
func ParseDType(name string) (array.DType, error) {
	for _, dt := range []array.DType{array.Float32, array.Float64, array.Complex64, array.Complex128} {
		if dt.String() == name {
			return dt, nil
		}
	}
	return 0, errors.Wrapf(ErrInvalid, "dtype %q", name)
}

// Apply configures logger according to c.
func (c LogConfig) Apply(logger *logrus.Logger) error {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return errors.Wrapf(ErrInvalid, "log.level: %v", err)
	}
	logger.SetLevel(level)
	if c.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// WriteYAML encodes v as YAML with two-space indentation.
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "encode yaml")
	}
	return errors.Wrap(enc.Close(), "encode yaml")
}
