//go:build !cli

package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"warehouse.GO/api"
	"warehouse.GO/app"
	"warehouse.GO/config"
	"warehouse.GO/core/auth"
	"warehouse.GO/core/events"
	"warehouse.GO/cron"
	"warehouse.GO/model/entity"

	_ "warehouse.GO/api/attendance"
	_ "warehouse.GO/api/deliveries"
	_ "warehouse.GO/api/employees"
	_ "warehouse.GO/api/export"
	_ "warehouse.GO/api/graphql"
	_ "warehouse.GO/api/health"
	_ "warehouse.GO/api/inventory"
	_ "warehouse.GO/api/notifications"
	_ "warehouse.GO/api/officeassets"
	_ "warehouse.GO/api/realtime"
	_ "warehouse.GO/api/session"
	_ "warehouse.GO/api/sites"
	_ "warehouse.GO/api/transactions"
	_ "warehouse.GO/api/transfers"
	_ "warehouse.GO/custom"
)

func main() {
	config.LoadEnv()
	cfg := config.LoadAppConfig()
	log := config.NewLogger(cfg)
	defer func() { _ = log.Sync() }()

	db, err := config.NewDB()
	if err != nil {
		log.Fatal("failed to connect to DB", zap.Error(err))
	}
	sqldb, err := db.DB()
	if err != nil {
		log.Fatal("failed to get DB instance", zap.Error(err))
	}
	if err := sqldb.Ping(); err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	if err := db.AutoMigrate(entity.All()...); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}
	log.Info("database connection successful")

	a := app.New(db, cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := config.NewRedis(ctx)
	switch {
	case err != nil:
		log.Warn("redis configured but not reachable, events stay in-process", zap.Error(err))
	case redisClient == nil:
		log.Info("redis not configured, events stay in-process")
	default:
		defer redisClient.Close()
		a.Bus.Subscribe(events.RedisForwarder(redisClient, cfg.RedisChannel, log.Named("redis")))
		log.Info("forwarding events to redis", zap.String("channel", cfg.RedisChannel))
	}

	if cfg.CronEnabled {
		c, err := cron.StartCron(a)
		if err != nil {
			log.Fatal("cron", zap.Error(err))
		}
		defer c.Stop()
	}

	e := newServer(a)

	fonts := []string{"banner", "big", "block", "slant", "standard", "small", "doom", "larry3d"}
	figure.NewFigure(cfg.AppName, fonts[rand.Intn(len(fonts))], true).Print()
	fmt.Println()

	go func() {
		addr := ":" + cfg.Port
		log.Info("server running", zap.String("addr", addr), zap.String("auth", cfg.AuthType))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}

func newServer(a *app.App) *echo.Echo {
	log := a.Log.Named("http")
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.ErrorHandler(log)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				zap.String("method", v.Method), zap.String("uri", v.URI),
				zap.Int("status", v.Status), zap.Duration("latency", v.Latency))
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			return strings.HasSuffix(c.Path(), "/realtime/events")
		},
	}))
	e.Use(middleware.Decompress())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			c.Response().Before(func() {
				c.Response().Header().Set("X-Request-Duration-ms", strconv.FormatInt(time.Since(start).Milliseconds(), 10))
			})
			return next(c)
		}
	})

	apiGroup := e.Group("/api")
	apiGroup.Use(auth.Middleware(a.DB, a.Config))
	api.ApplyModules(apiGroup, a)
	api.ApplyRoutes(e, a)
	return e
}
