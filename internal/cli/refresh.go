package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sepcheck/internal/fema"
	"github.com/ppiankov/sepcheck/internal/worker"
)

var refreshOut string

var refreshCmd = &cobra.Command{
	Use:   "refresh-dst",
	Short: "Rebuild the disaster declaration dataset from OpenFEMA",
	Long: `refresh-dst downloads recent disaster declaration summaries from the
OpenFEMA API, keeps those still active on the evaluation date, groups them
by state and county, and atomically replaces the dataset file.

Example:
  sepcheck refresh-dst
  sepcheck refresh-dst --out /var/lib/sepcheck/dst_list.json`,
	Args: cobra.NoArgs,
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
	refreshCmd.Flags().StringVar(&refreshOut, "out", "", "dataset output path (default: reference.dataset_path)")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	asOf, err := parseAsOf(asOfFlag)
	if err != nil {
		return err
	}
	out := refreshOut
	if out == "" {
		out = cfg.Reference.DatasetPath
	}

	logger := newLogger(cfg)
	f := cfg.FEMA
	refresher := fema.NewRefresher(
		fema.Options{URL: f.URL, Top: f.Top, OutputPath: out},
		fema.NewFetcher(f.Timeout, f.UserAgent, f.MaxBodyBytes, f.HTTPProxy, f.HTTPSProxy),
		fema.NewRobotsChecker(f.UserAgent, f.Timeout),
		worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize),
		logger,
	)

	res, err := refresher.Refresh(cmd.Context(), asOf)
	if errors.Is(err, fema.ErrDisallowed) {
		return fmt.Errorf("%w: %s", err, refresher.QueryURL())
	}
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d declarations to %s (%d summaries fetched, %d skipped)\n",
		res.Written, res.Path, res.Fetched, res.Skipped)
	return nil
}
