package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/harvester/internal/logging"
	"github.com/ppiankov/harvester/internal/metrics"
	"github.com/ppiankov/harvester/internal/pipeline"
	"github.com/ppiankov/harvester/internal/worker"
)

var harvestOnce bool

// harvestCmd represents the harvest command
var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Run harvest cycles",
	Long: `Harvest fetches the approval collection and every registered producer,
keeps the most recent version of each record, attaches approvals and saves
the collection.

Without --once a cycle runs immediately and then on every interval until
interrupted. An aborted cycle is logged and the loop continues.

Example:
  harvester harvest --once
  harvester harvest --interval 30m`,
	Args: cobra.NoArgs,
	RunE: runHarvest,
}

func init() {
	rootCmd.AddCommand(harvestCmd)

	harvestCmd.Flags().BoolVar(&harvestOnce, "once", false, "run a single cycle and exit")
	harvestCmd.Flags().Duration("interval", time.Hour, "time between cycles")
	_ = viper.BindPFlag("schedule.interval", harvestCmd.Flags().Lookup("interval"))
}

func runHarvest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("Failed to close storage")
		}
	}()

	p, err := newPipeline(cfg, st, metrics.NewRecorder())
	if err != nil {
		return err
	}

	if harvestOnce {
		report, err := p.Harvest(ctx)
		pipeline.RenderSummary(cmd.OutOrStdout(), report)
		return err
	}

	logging.Info().Dur("interval", cfg.Schedule.Interval).Msg("Starting harvest loop")
	scheduler := worker.NewScheduler(cfg.Schedule.Interval, cycleJob(p, cmd.OutOrStdout(), nil))
	if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info().Msg("Harvest loop stopped")
	return nil
}
