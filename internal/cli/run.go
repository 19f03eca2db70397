package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/douwatch/douwatch/internal/pipeline"
)

var (
	runDate string
	dryRun  bool
	noDelay bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitor once and exit",
	Long: `Run executes one full pipeline pass for a single date:
- Discover published article URLs per section
- Download and parse each article
- Match configured keywords and rules
- Append matches to the per-keyword JSONL store

Example:
  douwatch run
  douwatch run --date 10-02-2026
  douwatch run --dry-run`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runDate, "date", "", "gazette date as DD-MM-YYYY (default: today)")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "search only, do not persist matches")
	runCmd.Flags().BoolVar(&noDelay, "no-delay", false, "disable the per-request politeness delay")
}

// parseRunDate parses the --date flag value, a gazette date in the portal's
// DD-MM-YYYY convention.
func parseRunDate(value string) (time.Time, error) {
	date, err := time.ParseInLocation("02-01-2006", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q, expected DD-MM-YYYY: %w", value, err)
	}
	return date, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noDelay {
		cfg.HTTP.ThrottleMin = 0
		cfg.HTTP.ThrottleMax = 0
	}

	date := time.Now()
	if runDate != "" {
		date, err = parseRunDate(runDate)
		if err != nil {
			return err
		}
	}

	log, err := buildLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(cfg, log)
	result, err := p.Run(ctx, date, !dryRun)
	if err != nil {
		return fmt.Errorf("run aborted: %w", err)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Date:      %s\n", date.Format("02-01-2006"))
	fmt.Fprintf(os.Stderr, "  Sections:  %d\n", result.Sections)
	fmt.Fprintf(os.Stderr, "  Articles:  %d\n", result.Articles)
	fmt.Fprintf(os.Stderr, "  Matches:   %d\n", len(result.Matches))
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", result.Failures)
	fmt.Fprintf(os.Stderr, "\n")

	if dryRun {
		for _, m := range result.Matches {
			fmt.Printf("[%s] %s\n    %s\n", m.Keyword, m.URL, m.Context)
		}
	}
	return nil
}
