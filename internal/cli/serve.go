package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/harvester/internal/api"
	"github.com/ppiankov/harvester/internal/logging"
	"github.com/ppiankov/harvester/internal/metrics"
	"github.com/ppiankov/harvester/internal/worker"
)

var serveHarvest bool

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the saved collection over HTTP",
	Long: `Serve exposes the saved collection and metrics:

  GET  /infosystems          whole collection (?owner= to filter)
  GET  /infosystem?id=<id>   one document
  POST /harvest              queue a cycle (requires --harvest)
  GET  /healthz
  GET  /metrics

With --harvest the scheduled harvest loop runs in the same process.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveHarvest, "harvest", false, "also run harvest cycles on the schedule")
	serveCmd.Flags().String("listen", ":8080", "listen address")
	_ = viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveHarvest {
		err = cfg.Validate()
	} else {
		err = cfg.Storage.Validate()
	}
	if err != nil {
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

	rec := metrics.NewRecorder()
	handler := api.NewHandler(st, cfg.Server.CacheTTL)
	handler.Metrics = rec.Handler()

	if serveHarvest {
		p, err := newPipeline(cfg, st, rec)
		if err != nil {
			return err
		}
		scheduler := worker.NewScheduler(cfg.Schedule.Interval, cycleJob(p, cmd.OutOrStdout(), handler.Invalidate))
		handler.Harvester = scheduler
		go func() {
			_ = scheduler.Run(ctx)
		}()
	}

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("Server shutdown")
		}
	}()

	logging.Info().Str("listen", cfg.Server.Listen).Bool("harvest", serveHarvest).Msg("Serving")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
