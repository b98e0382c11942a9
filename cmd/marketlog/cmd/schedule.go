package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/marketlog/internal/compose"
	"github.com/hugo-lorenzo-mato/marketlog/internal/config"
	"github.com/hugo-lorenzo-mato/marketlog/internal/schedule"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Generate a new version on a cron schedule",
	Long: `Run generate repeatedly on a standard five-field cron expression
(UTC). A tick that fires while a run is still in progress is skipped.
Failed runs are logged and retried on the next tick.`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

var scheduleCron string

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "cron expression (default: schedule.cron)")
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := loadApp(cmd, func(cfg *config.Config) {
		if scheduleCron != "" {
			cfg.Schedule.Cron = scheduleCron
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()

	runner, err := a.newRunner()
	if err != nil {
		return err
	}

	s, err := schedule.New(a.cfg.Schedule.Cron, runner,
		schedule.WithParams(compose.RunParams{
			Context: a.cfg.Run.Context,
			Model:   a.cfg.Model.Name,
		}),
		schedule.WithLogger(a.logger.Slog()),
	)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}
