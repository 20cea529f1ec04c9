package cmd

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/collaby/collaby-bot/internal/config"
	"github.com/collaby/collaby-bot/internal/store"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func cmdService() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "service",
		Aliases: []string{"s", "serve", "standalone", "server"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := logger.With("mode", config.ModeService)
			logger.Info("Spawning...")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, logger, appOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			if err = a.state.Hydrate(ctx); err != nil {
				return errors.Wrap(err, "failed to restore state")
			}
			scheduler, err := store.NewScheduler(ctx, a.state, config.Store.FlushSchedule, config.Store.SweepSchedule,
				[]store.Sweeper{a.githubCreds, a.jiraCreds}, logger)
			if err != nil {
				return err
			}

			s := &http.Server{
				Handler:      a.mux(),
				Addr:         net.JoinHostPort(config.Service.Addr, config.Service.Port),
				WriteTimeout: config.Service.Timeout,
				ReadTimeout:  config.Service.Timeout,
				IdleTimeout:  config.Service.Timeout,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				logger.Info("Serving...", "address", s.Addr, "path", config.Service.Path, "timeout", config.Service.Timeout.String())
				if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return errors.Wrap(err, "http server failed")
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
				defer cancel()
				return s.Shutdown(sctx)
			})
			g.Go(func() error {
				return a.session.Run(gctx, a.commands)
			})
			g.Go(func() error {
				return scheduler.Run(gctx)
			})

			err = g.Wait()
			logger.Info("Shutting down...")

			fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if ferr := a.state.Flush(fctx); ferr != nil {
				logger.Error("failed to save state", "error", ferr)
				if err == nil {
					err = ferr
				}
			}
			return err
		},
	}

	bindEnvMap(cmd, svcEnvMapString)
	bindEnvMap(cmd, svcEnvMapDuration)

	return cmd
}
