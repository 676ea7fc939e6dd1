// Package dependency provides dependency injection for the application.
package dependency

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Staysteady/financial-dashboard-sub000/config"
	"github.com/Staysteady/financial-dashboard-sub000/internal/application/adapter"
	"github.com/Staysteady/financial-dashboard-sub000/internal/application/usecase/connection"
	"github.com/Staysteady/financial-dashboard-sub000/internal/domain/entity"
	"github.com/Staysteady/financial-dashboard-sub000/internal/infra/server/router"
	"github.com/Staysteady/financial-dashboard-sub000/internal/integration/adapters"
	"github.com/Staysteady/financial-dashboard-sub000/internal/integration/banking"
	"github.com/Staysteady/financial-dashboard-sub000/internal/integration/email"
	"github.com/Staysteady/financial-dashboard-sub000/internal/integration/entrypoint/controller"
	"github.com/Staysteady/financial-dashboard-sub000/internal/integration/entrypoint/middleware"
	"github.com/Staysteady/financial-dashboard-sub000/internal/integration/persistence"
)

// Injector holds all application dependencies.
type Injector struct {
	Config   *config.Config
	DB       *gorm.DB
	Router   *router.Router
	Registry *banking.Registry
}

// NewInjector creates a new dependency injector with all dependencies wired.
func NewInjector(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Injector, error) {
	// Create repositories
	accountRepo := persistence.NewAccountRepository(db)
	transactionRepo := persistence.NewTransactionRepository(db)
	credentialRepo := persistence.NewCredentialRepository(db)

	// Create adapters/services
	tokenService := adapters.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)
	stateStore := adapters.NewRedisStateStore(redisClient)
	vault, err := adapters.NewCredentialVault(cfg.Vault.EncryptionKey, credentialRepo)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential vault: %w", err)
	}

	var notifier adapter.ConnectionNotifier
	if cfg.Email.ResendAPIKey != "" && cfg.Email.AlertEmail != "" {
		notifier = email.NewResendNotifier(cfg.Email.ResendAPIKey, cfg.Email.FromName, cfg.Email.FromEmail, cfg.Email.AlertEmail)
	}

	// Create the bank registry with a rate-limit window shared by all
	// adapters, keyed per bank.
	limiter := banking.NewSlidingWindowLimiter(cfg.Banking.MaxRequests, cfg.Banking.RateWindow)
	registry := banking.NewRegistry(banking.ClientConfig{
		Timeout:    cfg.Banking.RequestTimeout,
		Retries:    cfg.Banking.Retries,
		RetryDelay: cfg.Banking.RetryDelay,
	}, limiter)
	for _, bank := range cfg.Banks {
		registry.Register(entity.ConnectionConfig{
			BankCode:     bank.Code,
			DisplayName:  bank.DisplayName,
			BaseURL:      bank.BaseURL,
			AuthorizeURL: bank.AuthorizeURL,
			TokenURL:     bank.TokenURL,
			RevokeURL:    bank.RevokeURL,
			ClientID:     bank.ClientID,
			ClientSecret: bank.ClientSecret,
			Scopes:       bank.Scopes,
			RedirectURI:  bank.RedirectURI,
			Production:   bank.Production,
		})
	}

	// Create use cases
	listBanksUseCase := connection.NewListBanksUseCase(registry)
	initiateUseCase := connection.NewInitiateConnectionUseCase(registry, stateStore)
	statusesUseCase := connection.NewGetConnectionStatusesUseCase(vault)
	syncBankUseCase := connection.NewSyncBankDataUseCase(registry, vault, accountRepo, transactionRepo, notifier)
	completeUseCase := connection.NewCompleteConnectionUseCase(registry, stateStore, vault, syncBankUseCase)
	syncAllUseCase := connection.NewSyncAllBanksUseCase(vault, syncBankUseCase)
	disconnectUseCase := connection.NewDisconnectBankUseCase(registry, vault)
	importCSVUseCase := connection.NewImportCSVUseCase(accountRepo, transactionRepo)

	// Create controllers
	healthController := controller.NewHealthController(func() bool {
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	})

	bankingController := controller.NewBankingController(
		listBanksUseCase,
		initiateUseCase,
		completeUseCase,
		statusesUseCase,
		syncBankUseCase,
		syncAllUseCase,
		disconnectUseCase,
		importCSVUseCase,
	)

	// Create middleware
	// Use higher rate limits for E2E/test environments to prevent flaky tests
	var apiRateLimiter *middleware.RateLimiter
	if cfg.Server.Environment == "e2e" || cfg.Server.Environment == "test" {
		apiRateLimiter = middleware.NewRateLimiterWithConfig(1000, 1*time.Minute)
	} else {
		apiRateLimiter = middleware.NewRateLimiter()
	}
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	// Create router
	r := router.NewRouter(healthController, bankingController, apiRateLimiter, authMiddleware)

	return &Injector{
		Config:   cfg,
		DB:       db,
		Router:   r,
		Registry: registry,
	}, nil
}
