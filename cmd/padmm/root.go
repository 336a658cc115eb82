package main

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/born-ml/padmm/internal/config"
)

type rootOpts struct {
	configFile string
	viper      *viper.Viper
	logger     *logrus.Logger
	cfg        config.Config
}

func newRootCommand() *cobra.Command {
	opts := &rootOpts{viper: viper.New(), logger: logrus.New()}

	cmd := &cobra.Command{
		Use:           "padmm",
		Short:         "Proximal ADMM solvers",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd.Flags())
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configFile,
		"config", "",
		"Path to a YAML configuration file. Values may be overridden by PADMM_* environment variables.")
	cmd.PersistentFlags().String(
		"log-level", "info",
		"Log level (trace, debug, info, warn, error)")

	cmd.AddCommand(
		newSolveCommand(opts),
		newTuneCommand(opts),
		newVersionCommand(),
	)
	return cmd
}

// load binds the changed command-line flags into viper and reads the
// configuration. Flags take precedence over the file and the environment.
func (o *rootOpts) load(flags *pflag.FlagSet) error {
	bindings := map[string]string{
		"log-level": "log.level",
	}
	for flag, key := range flagKeys {
		bindings[flag] = key
	}
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		key, ok := bindings[f.Name]
		if !ok || !f.Changed || bindErr != nil {
			return
		}
		bindErr = o.viper.BindPFlag(key, f)
	})
	if bindErr != nil {
		return errors.Wrap(bindErr, "bind flags")
	}

	cfg, err := config.Load(o.viper, o.configFile)
	if err != nil {
		return err
	}
	if err := cfg.Log.Apply(o.logger); err != nil {
		return err
	}
	o.cfg = cfg
	o.logger.WithField("config", o.configFile).Debug("configuration loaded")
	return nil
}

// flagKeys maps subcommand flags to configuration keys.
var flagKeys = map[string]string{
	"algorithm":   "solver.algorithm",
	"subproblem":  "solver.subproblem",
	"dtype":       "solver.dtype",
	"maxiter":     "solver.maxiter",
	"rho":         "solver.rho",
	"mu":          "solver.mu",
	"nu":          "solver.nu",
	"lambda":      "solver.lambda",
	"size":        "solver.size",
	"seed":        "solver.seed",
	"display":     "solver.display",
	"period":      "solver.period",
	"samples":     "tune.samples",
	"workers":     "tune.workers",
	"store":       "tune.store",
	"sqlite-path": "tune.sqlite_path",
}
