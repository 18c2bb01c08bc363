package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/table-reservation/internal/api"
	"github.com/iliyamo/table-reservation/internal/cache"
	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/database"
	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/payment"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/router"
	"github.com/iliyamo/table-reservation/internal/service"
)

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the booking HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(true)
			if err != nil {
				return err
			}
			defer func() { _ = e.log.Sync() }()
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, e, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func serve(ctx context.Context, e *env, migrate bool) error {
	cfg, log := e.cfg, e.log

	db, err := database.Open(e.dbSettings())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if migrate {
		if _, err := database.Migrate(ctx, db, log); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn("redis unreachable, using in-process cache and rate limiter", zap.String("addr", cfg.Redis.Addr))
	} else {
		defer rdb.Close()
	}
	backend := cacheBackend(rdb)

	var payments payment.Processor
	if cfg.StripeSecretKey != "" {
		payments = payment.NewStripe(cfg.StripeSecretKey)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, tenants requiring a deposit cannot take bookings")
	}

	staffRepo := repository.NewStaffRepo(db)
	svc := service.New(service.Deps{
		Tenants:     repository.NewTenantRepo(db),
		TenantCache: backend,
		Tables:      repository.NewTableRepo(db),
		Holds:       repository.NewHoldRepo(db),
		Bookings:    repository.NewBookingRepo(db),
		Payments:    payments,
		Events:      queue.NewPublisher(cfg.RabbitURL, log),
		Log:         log,
		Settings: service.Settings{
			HoldTTL:         cfg.Booking.HoldTTL,
			HoldRetention:   cfg.Booking.HoldRetention,
			MinLeadTime:     cfg.Booking.MinLeadTime,
			AlternativeDays: cfg.Booking.AlternativeDays,
			MaxAlternatives: cfg.Booking.MaxAlternatives,
			TenantCacheTTL:  cfg.Booking.TenantCacheTTL,
		},
	})

	srv := newEcho(cfg, rdb, log)
	bookings := handler.NewBookingHandler(svc, log)
	auth := handler.NewAuthHandler(cfg, staffRepo, repository.NewTokenRepo(db), log)
	router.RegisterRoutes(srv, db)
	router.RegisterGuest(srv, bookings, middleware.ResponseCache(cfg.Cache, backend))
	router.RegisterAuth(srv, auth)
	router.RegisterStaff(srv, bookings, auth, cfg.JWTSecret, staffCache(backend, staffRepo, cfg.Booking.TenantCacheTTL))

	errc := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newEcho(cfg config.Config, rdb *redis.Client, log *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.Origins(),
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, api.HeaderIdempotencyKey},
	}))
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.NewTokenBucket(cfg.RateLimit, rdb, log))
	return e
}

func cacheBackend(rdb *redis.Client) cache.Backend {
	if rdb == nil {
		return cache.NewMemoryBackend()
	}
	return cache.NewRedisBackend(rdb)
}

// staffCache looks staff accounts up by their decimal id.
func staffCache(backend cache.Backend, staff *repository.StaffRepo, ttl time.Duration) *cache.ReadThrough[model.StaffUser] {
	return cache.NewReadThrough[model.StaffUser](backend, "staff", ttl, func(ctx context.Context, key string) (model.StaffUser, error) {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return model.StaffUser{}, repository.ErrNotFound
		}
		return staff.GetByID(ctx, id)
	})
}
