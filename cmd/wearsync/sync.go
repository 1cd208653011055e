package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	"wearsync/internal"
	"wearsync/internal/di"
	"wearsync/internal/models"
	"wearsync/internal/services"

	"cloud.google.com/go/civil"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var (
	startStr    string
	endStr      string
	metricNames []string
	fieldNames  []string
	minDuration time.Duration
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a single sync invocation",
}

var syncIntradayCmd = &cobra.Command{
	Use:   "intraday",
	Short: "Sync intraday metric batches for a local date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, err := parseRange()
		if err != nil {
			return err
		}
		opts := services.IntradayOptions{StartDate: start, EndDate: end}
		for _, name := range metricNames {
			m, err := models.ParseMetricType(name)
			if err != nil {
				return err
			}
			opts.Metrics = append(opts.Metrics, m)
		}
		return withRunner(cmd, func(r *internal.Runner) (any, error) {
			return r.Service.SyncIntraday(cmd.Context(), opts)
		})
	},
}

var syncSessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Sync completed workout sessions for a local date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, err := parseRange()
		if err != nil {
			return err
		}
		opts := services.SessionOptions{StartDate: start, EndDate: end, MinDuration: minDuration}
		return withRunner(cmd, func(r *internal.Runner) (any, error) {
			return r.Service.SyncSessions(cmd.Context(), opts)
		})
	},
}

var syncProfileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Sync the latest profile values",
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts services.ProfileOptions
		for _, name := range fieldNames {
			f, err := models.ParseProfileField(name)
			if err != nil {
				return err
			}
			opts.Fields = append(opts.Fields, f)
		}
		return withRunner(cmd, func(r *internal.Runner) (any, error) {
			uploaded, err := r.Service.SyncProfile(cmd.Context(), opts)
			return map[string]bool{"uploaded": uploaded}, err
		})
	},
}

func parseRange() (models.LocalDate, models.LocalDate, error) {
	start, err := civil.ParseDate(startStr)
	if err != nil {
		return models.LocalDate{}, models.LocalDate{}, fmt.Errorf("invalid --start: %w", err)
	}
	end := start
	if endStr != "" {
		end, err = civil.ParseDate(endStr)
		if err != nil {
			return models.LocalDate{}, models.LocalDate{}, fmt.Errorf("invalid --end: %w", err)
		}
	}
	return start, end, nil
}

// withRunner builds the sync stack, runs one invocation and prints its
// result as JSON. SIGINT cancels the invocation.
func withRunner(cmd *cobra.Command, run func(r *internal.Runner) (any, error)) error {
	runner, err := di.InitRunner(&flags)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	result, runErr := run(runner)
	closeErr := runner.Close()
	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		return closeErr
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func init() {
	for _, c := range []*cobra.Command{syncIntradayCmd, syncSessionsCmd} {
		c.Flags().StringVar(&startStr, "start", "", "first local date, YYYY-MM-DD")
		c.Flags().StringVar(&endStr, "end", "", "last local date, YYYY-MM-DD (defaults to --start)")
		_ = c.MarkFlagRequired("start")
	}
	syncIntradayCmd.Flags().StringSliceVar(&metricNames, "metrics", nil, "metrics to sync (default all)")
	syncSessionsCmd.Flags().DurationVar(&minDuration, "min-duration", 0, "skip sessions shorter than this")
	syncProfileCmd.Flags().StringSliceVar(&fieldNames, "fields", nil, "profile fields to sync (default all)")

	syncCmd.AddCommand(syncIntradayCmd, syncSessionsCmd, syncProfileCmd)
}
