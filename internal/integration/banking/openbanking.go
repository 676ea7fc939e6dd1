package banking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Staysteady/financial-dashboard-sub000/internal/application/adapter"
	"github.com/Staysteady/financial-dashboard-sub000/internal/domain/entity"
	domainerror "github.com/Staysteady/financial-dashboard-sub000/internal/domain/error"
)

// tokenResponse is the OAuth2 token endpoint payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
}

// OpenBankingAdapter implements adapter.BankAdapter against an Open-Banking
// style account-information API with OAuth2 authorization-code auth.
type OpenBankingAdapter struct {
	client *Client
	config entity.ConnectionConfig
}

// NewOpenBankingAdapter creates an adapter for one bank's configuration.
func NewOpenBankingAdapter(config entity.ConnectionConfig, client *Client) *OpenBankingAdapter {
	return &OpenBankingAdapter{
		client: client,
		config: config,
	}
}

// Info returns the secret-free identity of this adapter.
func (a *OpenBankingAdapter) Info() entity.BankInfo {
	return entity.BankInfo{
		Code:       a.config.BankCode,
		Name:       a.config.DisplayName,
		Production: a.config.Production,
	}
}

// Authenticate builds the authorization URL with a freshly generated
// unguessable state token. The caller redirects the user to the URL and
// persists the state for callback verification.
func (a *OpenBankingAdapter) Authenticate() (string, string, error) {
	state, err := generateState()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL, err := url.Parse(a.config.AuthorizeURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid authorize URL for bank %s: %w", a.config.BankCode, err)
	}

	query := authURL.Query()
	query.Set("response_type", "code")
	query.Set("client_id", a.config.ClientID)
	query.Set("redirect_uri", a.config.RedirectURI)
	query.Set("scope", strings.Join(a.config.Scopes, " "))
	query.Set("state", state)
	authURL.RawQuery = query.Encode()

	return authURL.String(), state, nil
}

// ExchangeCode exchanges an authorization code for a token bundle.
func (a *OpenBankingAdapter) ExchangeCode(ctx context.Context, code string) (*entity.AuthTokenBundle, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {a.config.RedirectURI},
		"client_id":     {a.config.ClientID},
		"client_secret": {a.config.ClientSecret},
	}
	return a.requestTokens(ctx, form, "")
}

// RefreshToken exchanges a refresh token for a fresh bundle. The prior
// refresh token is preserved when the server omits a new one.
func (a *OpenBankingAdapter) RefreshToken(ctx context.Context, refreshToken string) (*entity.AuthTokenBundle, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {a.config.ClientID},
		"client_secret": {a.config.ClientSecret},
	}
	return a.requestTokens(ctx, form, refreshToken)
}

func (a *OpenBankingAdapter) requestTokens(ctx context.Context, form url.Values, priorRefreshToken string) (*entity.AuthTokenBundle, error) {
	resp, err := a.client.Execute(ctx, a.config.TokenURL, RequestSpec{
		Method:      http.MethodPost,
		Body:        []byte(form.Encode()),
		ContentType: "application/x-www-form-urlencoded",
	}, a.rateLimitKey())
	if err != nil {
		return nil, err
	}

	var parsed tokenResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, domainerror.NewBankingError(domainerror.ErrCodeRequestFailed, "malformed token response", err)
	}
	if parsed.AccessToken == "" {
		return nil, domainerror.NewBankingError(domainerror.ErrCodeRequestFailed, "token response without access token", nil)
	}

	bundle := &entity.AuthTokenBundle{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
		TokenType:    parsed.TokenType,
		ExpiresIn:    time.Duration(parsed.ExpiresIn) * time.Second,
		Scope:        parsed.Scope,
		ObtainedAt:   time.Now().UTC(),
	}
	if bundle.RefreshToken == "" {
		bundle.RefreshToken = priorRefreshToken
	}
	return bundle, nil
}

// GetAccounts fetches all accounts visible to the token.
func (a *OpenBankingAdapter) GetAccounts(ctx context.Context, accessToken string) ([]*entity.Account, error) {
	resp, err := a.get(ctx, accessToken, "/accounts", nil)
	if err != nil {
		return nil, err
	}
	return transformAccounts(resp.Body, a.config.BankCode)
}

// GetAccountBalances fetches the current balances of one account.
func (a *OpenBankingAdapter) GetAccountBalances(ctx context.Context, accessToken, accountID string) ([]*entity.Balance, error) {
	resp, err := a.get(ctx, accessToken, "/accounts/"+url.PathEscape(accountID)+"/balances", nil)
	if err != nil {
		return nil, err
	}
	return transformBalances(resp.Body)
}

// GetTransactions fetches transactions for one account within the query bounds.
func (a *OpenBankingAdapter) GetTransactions(ctx context.Context, accessToken, accountID string, query adapter.TransactionQuery) ([]*entity.Transaction, error) {
	params := url.Values{}
	if query.From != nil {
		params.Set("fromBookingDateTime", query.From.UTC().Format(time.RFC3339))
	}
	if query.To != nil {
		params.Set("toBookingDateTime", query.To.UTC().Format(time.RFC3339))
	}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.Offset > 0 {
		params.Set("offset", strconv.Itoa(query.Offset))
	}

	resp, err := a.get(ctx, accessToken, "/accounts/"+url.PathEscape(accountID)+"/transactions", params)
	if err != nil {
		return nil, err
	}
	return transformTransactions(resp.Body)
}

// TestConnection confirms the token is still valid without mutating anything.
// The account-information API has no HEAD endpoint, so a single-page accounts
// read is the lightest authenticated probe.
func (a *OpenBankingAdapter) TestConnection(ctx context.Context, accessToken string) error {
	params := url.Values{"limit": {"1"}}
	_, err := a.get(ctx, accessToken, "/accounts", params)
	return err
}

// Disconnect best-effort revokes the token at the bank. Callers delete local
// credentials regardless of the outcome.
func (a *OpenBankingAdapter) Disconnect(ctx context.Context, accessToken string) error {
	form := url.Values{
		"token":         {accessToken},
		"client_id":     {a.config.ClientID},
		"client_secret": {a.config.ClientSecret},
	}

	_, err := a.client.Execute(ctx, a.revokeURL(), RequestSpec{
		Method:      http.MethodPost,
		Body:        []byte(form.Encode()),
		ContentType: "application/x-www-form-urlencoded",
	}, a.rateLimitKey())
	if err != nil {
		slog.Warn("Token revocation failed",
			"bankCode", a.config.BankCode,
			"error", err,
		)
		return err
	}
	return nil
}

// get issues an authenticated read carrying the per-request audit headers:
// a unique interaction id and the caller's audit timestamp.
func (a *OpenBankingAdapter) get(ctx context.Context, accessToken, path string, query url.Values) (*Response, error) {
	return a.client.Execute(ctx, strings.TrimSuffix(a.config.BaseURL, "/")+path, RequestSpec{
		Method: http.MethodGet,
		Query:  query,
		Headers: map[string]string{
			"Authorization":         "Bearer " + accessToken,
			"x-fapi-interaction-id": uuid.New().String(),
			"x-fapi-auth-date":      time.Now().UTC().Format(http.TimeFormat),
		},
	}, a.rateLimitKey())
}

func (a *OpenBankingAdapter) rateLimitKey() string {
	return a.config.BankCode
}

func (a *OpenBankingAdapter) revokeURL() string {
	if a.config.RevokeURL != "" {
		return a.config.RevokeURL
	}
	if idx := strings.LastIndex(a.config.TokenURL, "/"); idx > 0 {
		return a.config.TokenURL[:idx] + "/revoke"
	}
	return a.config.TokenURL + "/revoke"
}

// generateState produces an unguessable CSRF state token.
func generateState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Ensure the adapter satisfies the interface.
var _ adapter.BankAdapter = (*OpenBankingAdapter)(nil)
