// Package steps provides step definitions for BDD integration tests.
package steps

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/cucumber/godog"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Staysteady/financial-dashboard-sub000/config"
	"github.com/Staysteady/financial-dashboard-sub000/internal/application/adapter"
	"github.com/Staysteady/financial-dashboard-sub000/internal/infra/dependency"
	"github.com/Staysteady/financial-dashboard-sub000/internal/integration/adapters"
	"github.com/Staysteady/financial-dashboard-sub000/internal/integration/persistence"
	"github.com/Staysteady/financial-dashboard-sub000/internal/integration/persistence/model"
	"github.com/Staysteady/financial-dashboard-sub000/test/integration/mock"
)

const (
	// testVaultKey is a fixed 32-byte hex key for the scenario vault.
	testVaultKey  = "6368616e676520746869732070617373776f726420746f206120736563726574"
	testJWTSecret = "integration-test-secret"
	testUserEmail = "dev@example.com"
)

// testUserID is the fixed caller identity scenarios authenticate as.
var testUserID = uuid.MustParse("0a0b0c0d-0e0f-4a4b-8c8d-0e0f10111213")

// TestContext holds the test state for each scenario.
type TestContext struct {
	// HTTP
	server       *httptest.Server
	response     *http.Response
	responseBody []byte

	// Request building
	requestHeaders map[string]string
	accessToken    string
	vars           map[string]string

	// Wiring
	cfg     *config.Config
	db      *mock.Db
	bankAPI *mock.ApiMock

	vault           adapter.CredentialVault
	accountRepo     adapter.AccountRepository
	transactionRepo adapter.TransactionRepository
	tokenService    adapter.TokenService
}

// contextKey is used to store TestContext in context.Context.
type contextKey struct{}

// GetTestContext retrieves the TestContext from context.
func GetTestContext(ctx context.Context) *TestContext {
	if tc, ok := ctx.Value(contextKey{}).(*TestContext); ok {
		return tc
	}
	return nil
}

// SetTestContext stores the TestContext in context.
func SetTestContext(ctx context.Context, tc *TestContext) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

// InitializeTestSuite sets up resources before any scenarios run.
func InitializeTestSuite(ctx *godog.TestSuiteContext) {
	ctx.BeforeSuite(func() {
		gin.SetMode(gin.TestMode)
	})
}

// InitializeScenario registers all step definitions.
func InitializeScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc, err := newTestContext()
		if err != nil {
			return ctx, err
		}
		return SetTestContext(ctx, tc), nil
	})

	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		tc := GetTestContext(ctx)
		if tc != nil && tc.server != nil {
			tc.server.Close()
		}
		return ctx, nil
	})

	registerAPISteps(ctx)
	registerResponseSteps(ctx)
	registerBankingSteps(ctx)
}

// newTestContext wires a complete application instance against an in-memory
// database, an in-process Redis and a scripted bank API.
func newTestContext() (*TestContext, error) {
	bankAPI := mock.NewApiServer()
	bankAPI.Start()

	db := mock.NewDb("test", map[string]any{
		"accounts":         &model.AccountModel{},
		"transactions":     &model.TransactionModel{},
		"bank_credentials": &model.CredentialModel{},
	})
	if err := db.ClearDB(); err != nil {
		return nil, fmt.Errorf("failed to reset database: %w", err)
	}

	redisClient := mock.NewRedis()
	if err := mock.ClearRedis(redisClient); err != nil {
		return nil, fmt.Errorf("failed to reset redis: %w", err)
	}

	cfg := &config.Config{
		Server: config.ServerConfig{Environment: "test"},
		JWT:    config.JWTConfig{Secret: testJWTSecret, Issuer: "banking-sync-test"},
		Vault:  config.VaultConfig{EncryptionKey: testVaultKey},
		Banking: config.BankingConfig{
			RequestTimeout: 2 * time.Second,
			Retries:        1,
			RetryDelay:     10 * time.Millisecond,
			MaxRequests:    100,
			RateWindow:     time.Minute,
		},
		Banks: []config.BankConfig{
			{
				Code:         "hsbc",
				DisplayName:  "HSBC UK",
				BaseURL:      bankAPI.GetUrl() + "/ob",
				AuthorizeURL: bankAPI.GetUrl() + "/oauth/authorize",
				TokenURL:     bankAPI.GetUrl() + "/oauth/token",
				ClientID:     "sandbox-client",
				ClientSecret: "sandbox-secret",
				Scopes:       []string{"accounts", "transactions"},
				RedirectURI:  "https://app.local/callback",
			},
		},
	}

	injector, err := dependency.NewInjector(cfg, db.DbConn, redisClient)
	if err != nil {
		return nil, fmt.Errorf("failed to wire dependencies: %w", err)
	}
	engine := injector.Router.Setup("test")

	credentialRepo := persistence.NewCredentialRepository(db.DbConn)
	vault, err := adapters.NewCredentialVault(cfg.Vault.EncryptionKey, credentialRepo)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault: %w", err)
	}

	return &TestContext{
		server:          httptest.NewServer(engine),
		requestHeaders:  make(map[string]string),
		vars:            make(map[string]string),
		cfg:             cfg,
		db:              db,
		bankAPI:         bankAPI,
		vault:           vault,
		accountRepo:     persistence.NewAccountRepository(db.DbConn),
		transactionRepo: persistence.NewTransactionRepository(db.DbConn),
		tokenService:    adapters.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer),
	}, nil
}
