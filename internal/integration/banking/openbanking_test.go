package banking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/Staysteady/financial-dashboard-sub000/internal/application/adapter"
	"github.com/Staysteady/financial-dashboard-sub000/internal/domain/entity"
)

func testConfig(baseURL string) entity.ConnectionConfig {
	return entity.ConnectionConfig{
		BankCode:     "hsbc",
		DisplayName:  "HSBC UK",
		BaseURL:      baseURL,
		AuthorizeURL: baseURL + "/authorize",
		TokenURL:     baseURL + "/token",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Scopes:       []string{"accounts", "transactions"},
		RedirectURI:  "https://app.example.com/callback",
	}
}

func testAdapter(baseURL string) *OpenBankingAdapter {
	return NewOpenBankingAdapter(testConfig(baseURL), testClient(0))
}

func TestOpenBankingAdapter_Authenticate(t *testing.T) {
	bankAdapter := testAdapter("https://bank.example.com")

	authURL, state, err := bankAdapter.Authenticate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(state) != 64 {
		t.Errorf("expected a 64 character hex state, got %d characters", len(state))
	}

	parsed, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("authorization URL does not parse: %v", err)
	}
	query := parsed.Query()
	if query.Get("response_type") != "code" {
		t.Errorf("expected response_type=code, got %q", query.Get("response_type"))
	}
	if query.Get("client_id") != "client-id" {
		t.Errorf("unexpected client_id %q", query.Get("client_id"))
	}
	if query.Get("redirect_uri") != "https://app.example.com/callback" {
		t.Errorf("unexpected redirect_uri %q", query.Get("redirect_uri"))
	}
	if query.Get("scope") != "accounts transactions" {
		t.Errorf("unexpected scope %q", query.Get("scope"))
	}
	if query.Get("state") != state {
		t.Error("state in the URL must match the returned state")
	}

	_, state2, err := bankAdapter.Authenticate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state2 == state {
		t.Error("each authorization attempt must generate a fresh state")
	}
}

func TestOpenBankingAdapter_ExchangeCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "authorization_code" {
			t.Errorf("unexpected grant_type %q", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("code") != "auth-code" {
			t.Errorf("unexpected code %q", r.PostForm.Get("code"))
		}
		if r.PostForm.Get("client_secret") != "client-secret" {
			t.Error("client_secret missing from token request")
		}
		_, _ = w.Write([]byte(`{"access_token":"access-1","refresh_token":"refresh-1","token_type":"Bearer","expires_in":3600,"scope":"accounts"}`))
	}))
	defer server.Close()

	bundle, err := testAdapter(server.URL).ExchangeCode(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bundle.AccessToken != "access-1" || bundle.RefreshToken != "refresh-1" {
		t.Errorf("unexpected bundle tokens: %+v", bundle)
	}
	if bundle.ExpiresIn != time.Hour {
		t.Errorf("expected ExpiresIn of one hour, got %v", bundle.ExpiresIn)
	}
	if bundle.ObtainedAt.IsZero() {
		t.Error("bundle must be stamped with the obtained instant")
	}
}

func TestOpenBankingAdapter_RefreshToken(t *testing.T) {
	t.Run("should use the refresh grant", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			if r.PostForm.Get("grant_type") != "refresh_token" {
				t.Errorf("unexpected grant_type %q", r.PostForm.Get("grant_type"))
			}
			if r.PostForm.Get("refresh_token") != "refresh-1" {
				t.Errorf("unexpected refresh_token %q", r.PostForm.Get("refresh_token"))
			}
			_, _ = w.Write([]byte(`{"access_token":"access-2","refresh_token":"refresh-2","token_type":"Bearer","expires_in":3600}`))
		}))
		defer server.Close()

		bundle, err := testAdapter(server.URL).RefreshToken(context.Background(), "refresh-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if bundle.RefreshToken != "refresh-2" {
			t.Errorf("expected the rotated refresh token, got %q", bundle.RefreshToken)
		}
	})

	t.Run("should keep the prior refresh token when the bank omits one", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"access_token":"access-2","token_type":"Bearer","expires_in":3600}`))
		}))
		defer server.Close()

		bundle, err := testAdapter(server.URL).RefreshToken(context.Background(), "refresh-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if bundle.RefreshToken != "refresh-1" {
			t.Errorf("expected the prior refresh token to be preserved, got %q", bundle.RefreshToken)
		}
	})

	t.Run("should reject a token response without an access token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"token_type":"Bearer"}`))
		}))
		defer server.Close()

		if _, err := testAdapter(server.URL).RefreshToken(context.Background(), "refresh-1"); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestOpenBankingAdapter_GetAccounts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer access-1" {
			t.Errorf("unexpected authorization header %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("x-fapi-interaction-id") == "" {
			t.Error("expected an interaction id header")
		}
		_, _ = w.Write([]byte(`{"Data":{"Account":[
			{"AccountId":"acc-1","Currency":"GBP","AccountType":"Personal","AccountSubType":"CurrentAccount","Nickname":"Everyday"},
			{"AccountId":"acc-2","Currency":"GBP","AccountType":"Personal","AccountSubType":"Savings"}
		]}}`))
	}))
	defer server.Close()

	accounts, err := testAdapter(server.URL).GetAccounts(context.Background(), "access-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	if accounts[0].Name != "Everyday" || accounts[0].ExternalID != "acc-1" {
		t.Errorf("unexpected first account: %+v", accounts[0])
	}
	if accounts[0].Institution != "hsbc" {
		t.Errorf("expected institution hsbc, got %q", accounts[0].Institution)
	}
	if accounts[1].Name != "Savings" {
		t.Errorf("nickname fallback to subtype failed: %q", accounts[1].Name)
	}
}

func TestOpenBankingAdapter_GetAccountBalances(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/acc-1/balances" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"Data":{"Balance":[
			{"AccountId":"acc-1","CreditDebitIndicator":"Credit","Type":"InterimAvailable","Amount":{"Amount":"1250.50","Currency":"GBP"}},
			{"AccountId":"acc-1","CreditDebitIndicator":"Debit","Type":"ClosingBooked","Amount":{"Amount":"10.00","Currency":"GBP"}}
		]}}`))
	}))
	defer server.Close()

	balances, err := testAdapter(server.URL).GetAccountBalances(context.Background(), "access-1", "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("expected 2 balances, got %d", len(balances))
	}
	if balances[0].Amount.String() != "1250.5" {
		t.Errorf("unexpected credit amount %s", balances[0].Amount)
	}
	if balances[1].Amount.String() != "-10" {
		t.Errorf("debit balance should be negated, got %s", balances[1].Amount)
	}
}

func TestOpenBankingAdapter_GetTransactions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/acc-1/transactions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		query := r.URL.Query()
		if query.Get("fromBookingDateTime") == "" || query.Get("toBookingDateTime") == "" {
			t.Error("expected booking date bounds in the query")
		}
		if query.Get("limit") != "100" {
			t.Errorf("unexpected limit %q", query.Get("limit"))
		}
		_, _ = w.Write([]byte(`{"Data":{"Transaction":[
			{"TransactionId":"txn-1","AccountId":"acc-1","CreditDebitIndicator":"Debit","BookingDateTime":"2026-01-14T09:30:00Z","TransactionInformation":"COFFEE SHOP","Amount":{"Amount":"4.50","Currency":"GBP"},"MerchantDetails":{"MerchantName":"Coffee Shop"},"Balance":{"Amount":{"Amount":"1246.00","Currency":"GBP"}}},
			{"TransactionId":"txn-2","AccountId":"acc-1","CreditDebitIndicator":"Credit","BookingDateTime":"2026-01-10","TransactionInformation":"SALARY","Amount":{"Amount":"2500.00","Currency":"GBP"}}
		]}}`))
	}))
	defer server.Close()

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	transactions, err := testAdapter(server.URL).GetTransactions(context.Background(), "access-1", "acc-1", adapter.TransactionQuery{
		From:  &from,
		To:    &to,
		Limit: 100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(transactions))
	}

	debit := transactions[0]
	if debit.Amount.String() != "-4.5" || debit.Type != entity.TransactionTypeExpense {
		t.Errorf("debit must be a negative expense, got %s %s", debit.Amount, debit.Type)
	}
	if debit.ExternalAccountID != "acc-1" || debit.ExternalID != "txn-1" {
		t.Errorf("unexpected identifiers: %+v", debit)
	}
	if debit.BalanceAfter == nil || debit.BalanceAfter.String() != "1246" {
		t.Error("running balance should be carried over when present")
	}
	if !debit.Date.Equal(time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("booking timestamp should be truncated to the date, got %v", debit.Date)
	}

	credit := transactions[1]
	if credit.Amount.String() != "2500" || credit.Type != entity.TransactionTypeIncome {
		t.Errorf("credit must be a positive income, got %s %s", credit.Amount, credit.Type)
	}
	if credit.BalanceAfter != nil {
		t.Error("missing running balance should stay nil")
	}
}

func TestOpenBankingAdapter_TestConnection(t *testing.T) {
	t.Run("should probe with a single page accounts read", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("limit") != "1" {
				t.Errorf("expected limit=1, got %q", r.URL.Query().Get("limit"))
			}
			_, _ = w.Write([]byte(`{"Data":{"Account":[]}}`))
		}))
		defer server.Close()

		if err := testAdapter(server.URL).TestConnection(context.Background(), "access-1"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("should fail when the token is rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		if err := testAdapter(server.URL).TestConnection(context.Background(), "stale"); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestOpenBankingAdapter_Disconnect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/revoke" {
			t.Errorf("expected the revoke sibling of the token endpoint, got %s", r.URL.Path)
		}
		_ = r.ParseForm()
		if r.PostForm.Get("token") != "access-1" {
			t.Errorf("unexpected token %q", r.PostForm.Get("token"))
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := testAdapter(server.URL).Disconnect(context.Background(), "access-1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestOpenBankingAdapter_RevokeURL(t *testing.T) {
	config := testConfig("https://bank.example.com")
	config.RevokeURL = "https://auth.example.com/oauth2/revoke"
	bankAdapter := NewOpenBankingAdapter(config, testClient(0))

	if got := bankAdapter.revokeURL(); got != "https://auth.example.com/oauth2/revoke" {
		t.Errorf("explicit revoke URL should win, got %q", got)
	}
}
