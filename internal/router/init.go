package router

import (
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/healthcare-identity/config"
	"github.com/oksasatya/healthcare-identity/internal/application"
	"github.com/oksasatya/healthcare-identity/internal/container"
	repo "github.com/oksasatya/healthcare-identity/internal/domain/repository"
	cacheinfra "github.com/oksasatya/healthcare-identity/internal/infrastructure/cache"
	"github.com/oksasatya/healthcare-identity/internal/infrastructure/memory"
	"github.com/oksasatya/healthcare-identity/internal/infrastructure/notify"
	pginfra "github.com/oksasatya/healthcare-identity/internal/infrastructure/postgres"
	"github.com/oksasatya/healthcare-identity/internal/infrastructure/search"
	storageinfra "github.com/oksasatya/healthcare-identity/internal/infrastructure/storage"
	handlers "github.com/oksasatya/healthcare-identity/internal/interface/http"
	"github.com/oksasatya/healthcare-identity/internal/router/modules"
	"github.com/oksasatya/healthcare-identity/pkg/helpers"
	"github.com/oksasatya/healthcare-identity/pkg/mailer/templates"
)

type AuthModuleDeps struct {
	Accounts repo.AccountRepository
	Audit    repo.AuditLogRepository
	Service  *application.AuthService
	Auth     *handlers.AuthHandler
	Account  *handlers.AccountHandler
}

// buildStores picks the credential store backend. Without a pool the
// in-process store is used.
func buildStores(cfg *config.Config, logger *logrus.Logger) (repo.AccountRepository, repo.AuditLogRepository) {
	pool := container.GetPGPool()
	if cfg.Store == "memory" || pool == nil {
		if cfg.Store != "memory" {
			logger.Warn("postgres pool unavailable; using in-memory account store")
		}
		return memory.NewAccountRepository(), memory.NewAuditLogRepository()
	}
	return pginfra.NewAccountRepository(pool), pginfra.NewAuditLogRepository(pool)
}

func buildCache(cfg *config.Config) application.EmailIndexCache {
	rdb := container.GetRedis()
	if rdb == nil || !cfg.RedisCacheEnabled {
		return nil
	}
	return cacheinfra.NewEmailIndexCache(rdb, cacheinfra.DefaultTTL)
}

func buildNotifier(cfg *config.Config, logger *logrus.Logger) application.Notifier {
	if !cfg.MailSendEnabled {
		return notify.LogNotifier{Logger: logger}
	}
	switch cfg.Notifier {
	case "queue":
		if pub := container.GetRabbitPub(); pub != nil {
			return notify.NewQueueNotifier(cfg, pub)
		}
		logger.Warn("rabbitmq publisher unavailable; emails will only be logged")
	case "mailgun":
		if mg := container.GetMailgun(); mg != nil {
			return notify.NewMailgunNotifier(cfg, mg, templates.IPAPIResolver{})
		}
		logger.Warn("mailgun not configured; emails will only be logged")
	}
	return notify.LogNotifier{Logger: logger}
}

func buildIndexer(cfg *config.Config) application.AccountIndexer {
	es := container.GetES()
	if es == nil || cfg.ESAccountsIndex == "" {
		return nil
	}
	return search.NewAccountIndex(es, cfg.ESAccountsIndex)
}

func buildObjectStore(cfg *config.Config) application.ObjectStore {
	if s := storageinfra.NewGCSObjectStore(container.GetGCS(), cfg.GCSBucket); s != nil {
		return s
	}
	return nil
}

func buildAuthDeps() AuthModuleDeps {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	accounts, audit := buildStores(cfg, logger)
	resolver := application.NewIdentityResolver(accounts, buildCache(cfg), logger)
	otp := application.NewOTPEngine(accounts, cfg.OTPTTL)

	service := application.NewAuthService(
		accounts,
		resolver,
		otp,
		container.GetSessions(),
		buildNotifier(cfg, logger),
		buildIndexer(cfg),
		buildObjectStore(cfg),
		logger,
		application.Options{
			ResetURL:        cfg.ResetPasswordURL(),
			ResetRequireOTP: cfg.ResetRequireOTP,
		},
	)

	cookies := helpers.NewCookie(cfg.CookieDomain, cfg.IsProduction(), cfg.SessionTTL)

	return AuthModuleDeps{
		Accounts: accounts,
		Audit:    audit,
		Service:  service,
		Auth:     handlers.NewAuthHandler(service, audit, cookies, logger, cfg.ResetUniformResponse),
		Account:  handlers.NewAccountHandler(service, logger),
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	deps := buildAuthDeps()
	sessions := container.GetSessions()

	r.Add(modules.NewAuthModule(deps.Auth, sessions))
	r.Add(modules.NewAccountModule(deps.Account, sessions))
	if container.GetConfig().DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
