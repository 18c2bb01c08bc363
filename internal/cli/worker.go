package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/table-reservation/internal/cache"
	"github.com/iliyamo/table-reservation/internal/database"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/service"
	"github.com/iliyamo/table-reservation/internal/worker"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the scheduled hold sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(true)
			if err != nil {
				return err
			}
			defer func() { _ = e.log.Sync() }()

			db, err := database.Open(e.dbSettings())
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			svc := service.New(service.Deps{
				Tenants:     repository.NewTenantRepo(db),
				TenantCache: cache.NewMemoryBackend(),
				Tables:      repository.NewTableRepo(db),
				Holds:       repository.NewHoldRepo(db),
				Bookings:    repository.NewBookingRepo(db),
				Events:      queue.NewPublisher(e.cfg.RabbitURL, e.log),
				Log:         e.log,
				Settings:    service.Settings{HoldTTL: e.cfg.Booking.HoldTTL, HoldRetention: e.cfg.Booking.HoldRetention},
			})
			w, err := worker.New(e.cfg, svc, e.log.Named("worker"))
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return w.Run(ctx)
		},
	}
}

func newConsumeCmd() *cobra.Command {
	var logDir string
	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Append booking events from RabbitMQ to a log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(false)
			if err != nil {
				return err
			}
			defer func() { _ = e.log.Sync() }()
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return queue.NewConsumer(e.cfg.RabbitURL, logDir, e.log).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&logDir, "log-dir", "logs", "directory of booking.log")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(true)
			if err != nil {
				return err
			}
			db, err := database.Open(e.dbSettings())
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()
			applied, err := database.Migrate(cmd.Context(), db, e.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", len(applied))
			for _, name := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), "  "+name)
			}
			return nil
		},
	}
}
