// Package server wires the CourseCloud services together and runs the HTTP
// API until the process is asked to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/coursecloud/internal/logging"
	"github.com/dmitrijs2005/coursecloud/internal/server/auth"
	"github.com/dmitrijs2005/coursecloud/internal/server/config"
	"github.com/dmitrijs2005/coursecloud/internal/server/mailer"
	"github.com/dmitrijs2005/coursecloud/internal/server/media"
	"github.com/dmitrijs2005/coursecloud/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/coursecloud/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/coursecloud/internal/server/rest"
	"github.com/dmitrijs2005/coursecloud/internal/server/services"
	"github.com/redis/go-redis/v9"
)

// bcrypt cost for stored password hashes.
const passwordHashCost = 10

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	redis  *redis.Client
	server *rest.Server
}

// openDB and openRedis are seams for tests.
var (
	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}
	openRedis = func(cfg *config.Config) *redis.Client {
		return redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
)

// NewApp connects to Postgres and Redis, applies migrations and builds the
// HTTP server. Any failure here is fatal for the process.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogFormat, c.LogLevel)
	if err != nil {
		return nil, err
	}

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	rc := openRedis(c)
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		_ = rc.Close()
		return nil, fmt.Errorf("redis ping error: %w", err)
	}

	uploader := media.NewS3Uploader(c)
	deps := services.Deps{
		DB:       db,
		Repos:    rm,
		Sessions: sessions.NewRedisRepository(rc),
		Tokens:   auth.NewJWTService([]byte(c.SecretKey)),
		Hasher:   auth.NewBcryptHasher(passwordHashCost),
		Mailer:   mailer.NewSMTPMailer(c, logger),
		Uploader: uploader,
		Logger:   logger,
	}

	us, err := services.NewUserService(deps, c)
	if err != nil {
		_ = db.Close()
		_ = rc.Close()
		return nil, err
	}

	h := rest.NewHandler(c, logger, rest.Services{
		Users:       us,
		Courses:     services.NewCourseService(deps),
		Lectures:    services.NewLectureService(deps),
		Enrollments: services.NewEnrollmentService(deps),
		Uploader:    uploader,
		Checks: map[string]rest.HealthCheck{
			"postgres": db.PingContext,
			"redis":    func(ctx context.Context) error { return rc.Ping(ctx).Err() },
		},
	})

	return &App{
		config: c,
		logger: logger,
		db:     db,
		redis:  rc,
		server: rest.NewServer(c.EndpointAddrHTTP, h, logger, c.ShutdownTimeout),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server failed", "error", err)
		cancelFunc()
	}
}

// Run serves until a termination signal arrives or ctx is cancelled, then
// releases the database and Redis connections.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.redis.Close(); err != nil {
		app.logger.Warn(ctx, "redis close", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
