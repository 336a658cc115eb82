package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/born-ml/padmm/internal/config"
	"github.com/born-ml/padmm/internal/tune"
)

type tuneOpts struct {
	root       *rootOpts
	study      string
	reportFile string
}

// tuneReport is the YAML document written by the tune command.
type tuneReport struct {
	Study     string       `yaml:"study"`
	NoisyPSNR float64      `yaml:"noisy_psnr"`
	Best      tune.Trial   `yaml:"best"`
	Trials    []tune.Trial `yaml:"trials"`
}

func newTuneCommand(root *rootOpts) *cobra.Command {
	opts := tuneOpts{root: root}

	cmd := &cobra.Command{
		Use:   "tune",
		Short: "Search ADMM parameters for total-variation denoising",
		Long: `Run a random search over the regularization weight and penalty parameter
of an ADMM total-variation denoiser, scoring each trial by the PSNR of its
reconstruction. Trials run concurrently and are recorded in the selected store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := opts.run(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			var iters int
			for _, t := range report.Trials {
				iters += t.Iterations
			}
			fmt.Fprintf(out, "study %s: %d trials, %s solver iterations\n",
				report.Study, len(report.Trials), humanize.Comma(int64(iters)))
			fmt.Fprintf(out, "noisy PSNR %.2f dB, best PSNR %.2f dB at %v\n",
				report.NoisyPSNR, report.Best.Metric, report.Best.Params)
			return opts.writeReport(out, report)
		},
	}
	d := config.Defaults().Tune
	cmd.Flags().Int("samples", d.Samples, "Number of trials")
	cmd.Flags().Int("workers", d.Workers, "Number of concurrent trials")
	cmd.Flags().String("store", d.Store, "Trial store: memory or sqlite (requires -tags sqlite)")
	cmd.Flags().String("sqlite-path", d.SQLitePath, "Database path of the sqlite store")
	cmd.Flags().StringVar(&opts.study, "study", "", "Study name (default: a random id)")
	cmd.Flags().StringVar(&opts.reportFile,
		"report", "",
		"Write a YAML report of all trials to this path, or to stdout when set to -")
	return cmd
}

func (o *tuneOpts) run(ctx context.Context) (*tuneReport, error) {
	cfg := o.root.cfg.Tune
	log := o.root.logger.WithFields(logrus.Fields{"store": cfg.Store, "samples": cfg.Samples, "workers": cfg.Workers})

	problem, err := tune.NewTVProblem(cfg.Length, cfg.Pieces, cfg.Sigma, cfg.Seed)
	if err != nil {
		return nil, err
	}
	noisy, err := problem.PSNR(problem.Noisy)
	if err != nil {
		return nil, err
	}

	store, err := tune.NewStore(cfg.Store, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := tune.CloseIfSupported(store); err != nil {
			log.WithError(err).Warn("close store")
		}
	}()
	if err := store.Init(ctx); err != nil {
		return nil, errors.Wrap(err, "init store")
	}

	log.Info("starting parameter search")
	res, err := tune.Run(ctx, problem.Objective(cfg.MaxIter, cfg.ReportEvery), tune.Options{
		Study:      o.study,
		Space:      cfg.Space,
		NumSamples: cfg.Samples,
		Workers:    cfg.Workers,
		Seed:       cfg.Seed,
		Mode:       tune.Max,
		Store:      store,
		Logger:     o.root.logger,
	})
	if err != nil {
		return nil, err
	}
	return &tuneReport{
		Study:     res.Study,
		NoisyPSNR: noisy,
		Best:      res.Best,
		Trials:    res.Trials,
	}, nil
}

func (o *tuneOpts) writeReport(stdout io.Writer, report *tuneReport) error {
	switch o.reportFile {
	case "":
		return nil
	case "-":
		return config.WriteYAML(stdout, report)
	}
	f, err := os.Create(o.reportFile)
	if err != nil {
		return errors.Wrap(err, "create report")
	}
	if err := config.WriteYAML(f, report); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close report")
}
