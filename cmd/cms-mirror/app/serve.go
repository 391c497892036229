package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	httpadapter "github.com/custodia-labs/cms-mirror/internal/adapters/driving/http"
	"github.com/custodia-labs/cms-mirror/internal/config"
	"github.com/custodia-labs/cms-mirror/internal/core/services"
	"github.com/custodia-labs/cms-mirror/internal/telemetry"
)

// mode selects which parts of the process a serve command runs
type mode string

const (
	modeAll    mode = "serve"
	modeAPI    mode = "api"
	modeWorker mode = "worker"
)

func (m mode) http() bool      { return m != modeWorker }
func (m mode) scheduler() bool { return m != modeAPI }

var modeShort = map[mode]string{
	modeAll:    "Run the HTTP API and the sync scheduler",
	modeAPI:    "Run the HTTP API only (sync triggers still work)",
	modeWorker: "Run the sync scheduler only",
}

func newServeCmd(v *viper.Viper, m mode) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(m),
		Short: modeShort[m],
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if !m.http() {
				return nil
			}
			return v.BindPFlag(config.KeyPort, cmd.Flags().Lookup("port"))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := bootstrap(ctx, v, configPath(cmd))
			if err != nil {
				return err
			}
			defer st.Close()

			return runServe(ctx, st, m)
		},
	}
	if m.http() {
		cmd.Flags().Int("port", 8080, "Port to listen on")
	}
	return cmd
}

func runServe(ctx context.Context, st *stack, m mode) error {
	st.logger.Info("cms-mirror starting", "version", Version, "mode", m)

	var trigger services.Trigger
	if m.scheduler() && st.cfg.Sync.SchedulerEnabled {
		cron, err := services.NewCronTrigger(st.cfg.Sync.Schedule, nil)
		if err != nil {
			return err
		}
		trigger = cron
	}

	scheduler := st.newScheduler(trigger)
	if trigger != nil {
		if err := scheduler.Start(ctx); err != nil {
			return err
		}
		st.logger.Info("sync scheduler started", "schedule", st.cfg.Sync.Schedule, "policy", st.cfg.Sync.Policy)
	}
	defer scheduler.Stop()

	if !m.http() {
		<-ctx.Done()
		st.logger.Info("shutdown signal received, stopping")
		return nil
	}

	deps := httpadapter.Dependencies{
		Content:   st.content,
		Auth:      st.auth,
		Scheduler: scheduler,
		DB:        st.db,
		Metrics:   telemetry.Handler(st.registry),
	}
	if st.redis != nil {
		deps.Lock = st.lock
	}

	server := httpadapter.NewServer(httpadapter.Config{
		Host:           st.cfg.HTTP.Host,
		Port:           st.cfg.HTTP.Port,
		Version:        Version,
		AllowedOrigins: st.cfg.HTTP.AllowedOrigins,
		Logger:         st.logger,
	}, deps)

	return server.Start(ctx)
}
