// Command server runs the identity HTTP API.
//
// @title                       Identity System API
// @version                     1.0
// @description                 Accounts, email verification, login and role/action catalogs.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/99minutos/identity-system/docs"
	"github.com/99minutos/identity-system/internal/api"
	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
	"github.com/99minutos/identity-system/internal/core/service"
	mongostore "github.com/99minutos/identity-system/internal/infrastructure/db/mongo"
	redisstore "github.com/99minutos/identity-system/internal/infrastructure/db/redis"
	"github.com/99minutos/identity-system/internal/infrastructure/http/handlers"
	"github.com/99minutos/identity-system/internal/infrastructure/mail"
	"github.com/99minutos/identity-system/internal/infrastructure/queue"
	"github.com/99minutos/identity-system/internal/pkg/config"
	"github.com/99minutos/identity-system/pkg/logger"
)

const (
	serviceName     = "identity-system"
	shutdownTimeout = 15 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := logger.Init(logger.Options{Service: serviceName})
		boot.Fatal().Err(err).Msg("load config")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.Production(),
		Service: serviceName,
		Env:     cfg.Env,
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	mongoClient, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := mongoClient.Disconnect(dctx); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect")
		}
	}()

	rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer rdb.Close()

	accounts := mongostore.NewAccountRepository(db)
	roles := mongostore.NewRoleRepository(db)
	actions := mongostore.NewActionRepository(db)
	if err := mongostore.EnsureIndexes(ctx, accounts, roles, actions); err != nil {
		return err
	}

	cache := redisstore.NewPermissionCache(rdb, cfg.Auth.PermissionCacheTTL)

	dispatcher := queue.NewDispatcher(cfg.SMTP.Workers, deliveryMailer(cfg, log), logger.Component("mail_queue"))
	dispatcher.Start(context.WithoutCancel(ctx))
	defer dispatcher.Stop()

	tokens := service.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL)
	accountSvc := service.NewAccountService(service.AccountDeps{
		Accounts:    accounts,
		Roles:       roles,
		Hasher:      service.NewBcryptHasher(cfg.Auth.BcryptCost),
		OTP:         service.NewOTPEngine(cfg.Auth.OTPTTL),
		Tokens:      tokens,
		Mailer:      dispatcher,
		PhoneRegion: cfg.Auth.PhoneRegion,
		AdminEmail:  cfg.Auth.AdminEmail,
		Logger:      logger.Component("account_service"),
	})
	roleSvc := service.NewRoleService(roles, actions, accounts, cache, logger.Component("role_service"))
	actionSvc := service.NewActionService(actions, roles, cache, logger.Component("action_service"))
	permSvc := service.NewPermissionService(roles, actions, cache, logger.Component("permission_service"))
	userSvc := service.NewUserAdminService(accounts, roles, logger.Component("user_admin_service"))

	for name, desc := range map[string]string{
		domain.DefaultRoleName: "Default role for registered accounts",
		domain.AdminRoleName:   "Full administrative access",
	} {
		if _, err := roleSvc.EnsureRole(ctx, name, desc); err != nil {
			return err
		}
	}
	if err := accountSvc.BootstrapAdmin(ctx); err != nil {
		return err
	}

	e := api.NewRouter(api.Deps{
		Accounts:    accountSvc,
		Roles:       roleSvc,
		Actions:     actionSvc,
		Users:       userSvc,
		Permissions: permSvc,
		Tokens:      tokens,
		Checks:      []handlers.Check{handlers.MongoCheck(db), handlers.RedisCheck(rdb)},
		Service:     serviceName,
		Logger:      logger.Component("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

// deliveryMailer picks the transport behind the mail queue.
func deliveryMailer(cfg *config.Config, log zerolog.Logger) ports.Mailer {
	if cfg.SMTP.Host == "" {
		log.Warn().Msg("SMTP_HOST not set, verification mail is logged instead of sent")
		return mail.NewLogMailer(logger.Component("mail"))
	}
	return mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
}
