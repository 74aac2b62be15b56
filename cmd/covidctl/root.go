package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"text/tabwriter"

	"github.com/couchcryptid/covid-data-service/internal/adapter/source"
	"github.com/couchcryptid/covid-data-service/internal/config"
	"github.com/couchcryptid/covid-data-service/internal/observability"
	"github.com/couchcryptid/covid-data-service/internal/pipeline"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// app carries state shared by every subcommand.
type app struct {
	envFile string
	jsonOut bool
	verbose bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "covidctl",
		Short:        "Query COVID-19 case and vaccination feeds",
		Long:         `Loads the case, vaccination and region lookup feeds once and prints one dashboard view.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file to read before the environment")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print JSON instead of a table")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log source fetches to stderr")

	root.AddCommand(
		newRegionsCmd(a),
		newCasesCmd(a),
		newTotalsCmd(a),
		newTopCmd(a),
		newVaccinationsCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", a.envFile, err)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger = observability.NewCommandLogger(cmd.ErrOrStderr(), "covidctl", a.verbose)
	return nil
}

// snapshot runs one refresh through the same loader the service uses.
func (a *app) snapshot(ctx context.Context) (*pipeline.Snapshot, error) {
	metrics := observability.NewUnregisteredMetrics()
	stack, err := source.Build(ctx, a.cfg, a.logger, metrics)
	if err != nil {
		return nil, err
	}
	defer stack.Close() //nolint:errcheck // one-shot command

	p := pipeline.New(pipeline.Deps{
		Loader:  stack.Loader,
		Logger:  a.logger,
		Metrics: metrics,
	}, a.cfg.RefreshInterval)
	return p.Refresh(ctx, false)
}

// render prints v as indented JSON or, for tables, through a tabwriter.
func (a *app) render(out io.Writer, v any, header string, rows func(w io.Writer)) error {
	if a.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if header != "" {
		fmt.Fprintln(tw, header)
	}
	rows(tw)
	return tw.Flush()
}
