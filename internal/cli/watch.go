package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/douwatch/douwatch/internal/pipeline"
	"github.com/douwatch/douwatch/internal/schedule"
)

// fallbackScheduleTime is used when the configured time cannot be parsed,
// matching the portal's publication rhythm (editions appear early morning).
const fallbackScheduleTime = "06:00"

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the monitor daily at the configured schedule time",
	Long: `Watch keeps the process alive and runs one full pipeline pass per day
at schedule.time (HH:MM, local time). Stop with SIGINT or SIGTERM.

Example:
  douwatch watch`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := buildLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(cfg, log)
	job := func(ctx context.Context, date time.Time) {
		if _, err := p.Run(ctx, date, true); err != nil && ctx.Err() == nil {
			log.Error("scheduled run failed", "error", err.Error())
		}
	}

	runner, err := schedule.NewRunner(cfg.Schedule.Time, job, log.With("component", "schedule"))
	if err != nil {
		log.Error("invalid schedule time, falling back",
			"time", cfg.Schedule.Time, "fallback", fallbackScheduleTime)
		runner, err = schedule.NewRunner(fallbackScheduleTime, job, log.With("component", "schedule"))
		if err != nil {
			return err
		}
	}

	log.Info("watch started", "schedule", cfg.Schedule.Time, "timezone", cfg.Schedule.Timezone)
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("watch stopped")
	return nil
}
