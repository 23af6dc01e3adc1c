package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	nats "github.com/nats-io/nats.go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/iolowookere217/xdulist/config"
	"github.com/iolowookere217/xdulist/internal/adapters/cloudinary"
	"github.com/iolowookere217/xdulist/internal/adapters/gemini"
	httpadapter "github.com/iolowookere217/xdulist/internal/adapters/http"
	apiv1 "github.com/iolowookere217/xdulist/internal/adapters/http/api/v1"
	handlers "github.com/iolowookere217/xdulist/internal/adapters/http/api/v1/handlers"
	authmw "github.com/iolowookere217/xdulist/internal/adapters/http/middleware"
	"github.com/iolowookere217/xdulist/internal/adapters/mail"
	natsadapter "github.com/iolowookere217/xdulist/internal/adapters/nats"
	repo "github.com/iolowookere217/xdulist/internal/adapters/postgres"
	"github.com/iolowookere217/xdulist/internal/domain"
	"github.com/iolowookere217/xdulist/internal/usecase"
	pkglog "github.com/iolowookere217/xdulist/pkg/log"
)

const (
	reminderInterval = time.Minute
	purgeInterval    = time.Hour
)

type App struct {
	cfg      *config.Config
	logger   pkglog.Logger
	db       *gorm.DB
	natsConn *nats.Conn
	echo     *echo.Echo
	sweeper  *usecase.ReminderSweeper
	auth     usecase.AuthService
}

func New(ctx context.Context) (*App, error) {
	cfg := config.MustLoad()
	appLogger := pkglog.New(cfg.AppEnv)

	db, err := gorm.Open(postgres.Open(buildDSN(cfg)), &gorm.Config{
		Logger:         loggerForGorm(cfg),
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
	})
	if err != nil {
		return nil, err
	}
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&domain.User{}, &domain.Subscription{},
		&domain.RefreshToken{}, &domain.EmailVerification{},
		&domain.Expense{}, &domain.Todo{},
	); err != nil {
		return nil, err
	}

	// NATS being down degrades reminders and cross-service verification; the
	// HTTP surface still serves.
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		appLogger.Warn().Err(err).Str("url", cfg.NATSURL).Msg("nats connect failed; running without messaging")
	}

	users := repo.NewUserRepository(db)
	subscriptions := repo.NewSubscriptionRepository(db)
	refreshTokens := repo.NewRefreshTokenRepository(db)
	verifications := repo.NewEmailVerificationRepository(db)
	expenses := repo.NewExpenseRepository(db)
	todos := repo.NewTodoRepository(db)

	issuer, err := usecase.NewTokenIssuer(cfg)
	if err != nil {
		return nil, err
	}

	mailer := mail.New(cfg.MailAPIURL, cfg.MailAPIKey, cfg.MailFromEmail, cfg.MailFromName, 10*time.Second)
	extractor := gemini.New(cfg.GeminiAPIURL, cfg.GeminiAPIKey, 30*time.Second)
	images := cloudinary.New(cfg.CloudinaryUploadURL, cfg.CloudinaryPreset, 30*time.Second)

	authService := usecase.NewAuthService(cfg, appLogger, users, subscriptions, refreshTokens, verifications, mailer, issuer)
	userService := usecase.NewUserService(appLogger, users, subscriptions)
	expenseService := usecase.NewExpenseService(cfg, appLogger, expenses, subscriptions, extractor, images)
	todoService := usecase.NewTodoService(appLogger, todos)
	subscriptionService := usecase.NewSubscriptionService(cfg, appLogger, subscriptions)

	var notifier usecase.Notifier
	if nc != nil {
		notifier = natsadapter.NewReminderNotifier(nc, cfg.NATSReminderSubject)
		verifyHandler := natsadapter.NewVerifyHandler(issuer)
		_ = verifyHandler.Subscribe(nc, cfg.NATSVerifySubject, cfg.AppName)
	}
	sweeper := usecase.NewReminderSweeper(appLogger, todos, notifier, uuid.NewString)

	authMW := authmw.NewAuthMiddleware(issuer, users)
	router := httpadapter.NewRouter(cfg, apiv1.NewRouter(
		handlers.NewAuthHandler(cfg, authService),
		handlers.NewUserHandler(userService),
		handlers.NewExpenseHandler(expenseService),
		handlers.NewTodoHandler(todoService),
		handlers.NewSubscriptionHandler(subscriptionService),
		authMW,
	))

	e := echo.New()
	router.Setup(e)

	return &App{cfg: cfg, logger: appLogger, db: db, natsConn: nc, echo: e, sweeper: sweeper, auth: authService}, nil
}

func (a *App) Run(ctx context.Context) error {
	go a.sweeper.Run(ctx, reminderInterval)
	go a.purgeLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.echo.Shutdown(shutdownCtx)
	}()
	go func() {
		errCh <- a.echo.Start(fmt.Sprintf("%s:%s", a.cfg.HTTPHost, a.cfg.HTTPPort))
	}()
	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// purgeLoop drops refresh tokens whose expiry passed the grace window.
// Lookup already treats them as absent; this only keeps the table small.
func (a *App) purgeLoop(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.auth.PurgeExpiredTokens(ctx); err != nil {
				a.logger.Error().Err(err).Msg("refresh token purge failed")
			}
		}
	}
}

func (a *App) Close() {
	if a.natsConn != nil {
		_ = a.natsConn.Drain()
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

func buildDSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s", cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
}

func loggerForGorm(cfg *config.Config) logger.Interface {
	level := logger.Silent
	switch cfg.AppEnv {
	case "local":
		level = logger.Info
	default:
		level = logger.Warn
	}
	return logger.Default.LogMode(level)
}
