package main

import (
	"fmt"
	"io"
	"time"

	"github.com/couchcryptid/covid-data-service/internal/domain"
	"github.com/spf13/cobra"
)

func newRegionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List regions present in the case feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := a.snapshot(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), snap.Regions, "", func(w io.Writer) {
				for _, r := range snap.Regions {
					fmt.Fprintln(w, r)
				}
			})
		},
	}
}

func newCasesCmd(a *app) *cobra.Command {
	var region, window string
	cmd := &cobra.Command{
		Use:   "cases",
		Short: "Show one region's daily new cases over a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := domain.ParseWindow(window)
			if err != nil {
				return err
			}
			snap, err := a.snapshot(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := domain.SelectWindow(snap.Derived, region, w)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), rows, "DATE\tCASES\tDEATHS\tNEW_CASES\tWEEK_NEW_CASES", func(out io.Writer) {
				for _, d := range rows {
					fmt.Fprintf(out, "%s\t%d\t%d\t%d\t%s\n",
						d.Date.Format(domain.DateLayout), d.Cases, d.Deaths, d.NewCases, optional(d.RollingWeekNewCases))
				}
			})
		},
	}
	cmd.Flags().StringVar(&region, "region", "", "region name, e.g. Texas")
	cmd.Flags().StringVar(&window, "window", string(domain.WindowLast30), "last_7, last_14, last_30 or all_time")
	_ = cmd.MarkFlagRequired("region")
	return cmd
}

func newTotalsCmd(a *app) *cobra.Command {
	var metric string
	cmd := &cobra.Command{
		Use:   "totals",
		Short: "Show the national series for a metric",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := domain.ParseMetric(metric)
			if err != nil {
				return err
			}
			snap, err := a.snapshot(cmd.Context())
			if err != nil {
				return err
			}
			var points []domain.DatePoint
			if m == domain.MetricTotalVaccinations {
				points = domain.AggregateVaccinationsByDate(snap.Vaccinations)
			} else if points, err = domain.AggregateByDate(snap.Derived, m); err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), points, "DATE\tTOTAL", func(out io.Writer) {
				for _, p := range points {
					fmt.Fprintf(out, "%s\t%d\n", p.Date.Format(domain.DateLayout), p.Total)
				}
			})
		},
	}
	cmd.Flags().StringVar(&metric, "metric", string(domain.MetricTotalCases), "new_cases, total_cases, total_deaths or total_vaccinations")
	return cmd
}

func newTopCmd(a *app) *cobra.Command {
	var (
		n      int
		date   string
		metric string
	)
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Rank regions by a metric on one date (default: yesterday, UTC)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := domain.ParseMetric(metric)
			if err != nil {
				return err
			}
			target := domain.Day(time.Now()).AddDate(0, 0, -1)
			if date != "" {
				if target, err = domain.ParseDate(date); err != nil {
					return fmt.Errorf("%w: %w", domain.ErrInvalidSelection, err)
				}
			}
			if n <= 0 {
				n = a.cfg.TopN
			}
			snap, err := a.snapshot(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := domain.TopNByMetric(snap.Derived, target, m, n)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), rows, "REGION\t"+string(m), func(out io.Writer) {
				for _, r := range rows {
					fmt.Fprintf(out, "%s\t%d\n", r.Region, r.Value)
				}
			})
		},
	}
	cmd.Flags().IntVarP(&n, "limit", "n", 0, "number of regions (default TOP_N)")
	cmd.Flags().StringVar(&date, "date", "", "date to rank, YYYY-MM-DD")
	cmd.Flags().StringVar(&metric, "metric", string(domain.MetricNewCases), "new_cases, total_cases or total_deaths")
	return cmd
}

func newVaccinationsCmd(a *app) *cobra.Command {
	var policy string
	cmd := &cobra.Command{
		Use:   "vaccinations",
		Short: "Show vaccinations per region joined with abbreviations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if policy == "" {
				policy = a.cfg.VaccinationAggregation
			}
			p, err := domain.ParseAggregationPolicy(policy)
			if err != nil {
				return err
			}
			snap, err := a.snapshot(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := domain.JoinVaccinationsWithLookup(snap.Vaccinations, snap.Lookup, p)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), rows, "REGION\tABBR\tVACCINATIONS", func(out io.Writer) {
				for _, r := range rows {
					fmt.Fprintf(out, "%s\t%s\t%d\n", r.RegionName, r.Abbreviation, r.Vaccinations)
				}
			})
		},
	}
	cmd.Flags().StringVar(&policy, "policy", "", "sum or latest (default VACCINATION_AGGREGATION)")
	return cmd
}

func optional(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}
