// Package dto defines data transfer objects for API requests and responses.
package dto

import (
	"time"
	"unicode/utf8"

	"github.com/Staysteady/financial-dashboard-sub000/internal/application/usecase/connection"
	"github.com/Staysteady/financial-dashboard-sub000/internal/application/usecase/csvimport"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// BankResponse represents one registered bank in API responses.
type BankResponse struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Production bool   `json:"production"`
}

// ListBanksResponse represents the response for listing registered banks.
type ListBanksResponse struct {
	Banks []BankResponse `json:"banks"`
}

// ToListBanksResponse converts the use case output to the response shape.
func ToListBanksResponse(output *connection.ListBanksOutput) ListBanksResponse {
	banks := make([]BankResponse, len(output.Banks))
	for i, bank := range output.Banks {
		banks[i] = BankResponse{
			Code:       bank.Code,
			Name:       bank.Name,
			Production: bank.Production,
		}
	}
	return ListBanksResponse{Banks: banks}
}

// InitiateConnectionResponse carries the authorization URL for the OAuth redirect.
type InitiateConnectionResponse struct {
	BankCode         string `json:"bank_code"`
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

// CompleteConnectionRequest represents the OAuth callback payload.
type CompleteConnectionRequest struct {
	Code  string `json:"code" binding:"required"`
	State string `json:"state" binding:"required"`
}

// CompleteConnectionResponse represents the newly established connection.
type CompleteConnectionResponse struct {
	BankCode string `json:"bank_code"`
	BankName string `json:"bank_name"`
	Status   string `json:"status"`
}

// ConnectionStatusResponse represents one connection in the status listing.
type ConnectionStatusResponse struct {
	BankCode         string     `json:"bank_code"`
	BankName         string     `json:"bank_name"`
	Status           string     `json:"status"`
	LastSyncAt       *time.Time `json:"last_sync_at,omitempty"`
	LastError        string     `json:"last_error,omitempty"`
	AccountCount     int        `json:"account_count"`
	TransactionCount int        `json:"transaction_count"`
	LastBalance      string     `json:"last_balance,omitempty"`
	ConnectedAt      time.Time  `json:"connected_at"`
}

// ListConnectionsResponse represents the response for listing a user's connections.
type ListConnectionsResponse struct {
	Connections []ConnectionStatusResponse `json:"connections"`
}

// ToListConnectionsResponse converts the use case output to the response shape.
func ToListConnectionsResponse(output *connection.GetConnectionStatusesOutput) ListConnectionsResponse {
	connections := make([]ConnectionStatusResponse, len(output.Connections))
	for i, conn := range output.Connections {
		connections[i] = ConnectionStatusResponse{
			BankCode:         conn.BankCode,
			BankName:         conn.BankName,
			Status:           string(conn.Status),
			LastSyncAt:       conn.LastSyncAt,
			LastError:        conn.LastError,
			AccountCount:     conn.AccountCount,
			TransactionCount: conn.TransactionCount,
			LastBalance:      conn.LastBalance,
			ConnectedAt:      conn.ConnectedAt,
		}
	}
	return ListConnectionsResponse{Connections: connections}
}

// SyncResponse represents the outcome of one bank's synchronization.
type SyncResponse struct {
	BankCode             string   `json:"bank_code"`
	Status               string   `json:"status"`
	AccountsImported     int      `json:"accounts_imported"`
	TransactionsImported int      `json:"transactions_imported"`
	TransactionsSkipped  int      `json:"transactions_skipped"`
	Errors               []string `json:"errors,omitempty"`
}

// ToSyncResponse converts the use case output to the response shape.
func ToSyncResponse(output *connection.SyncBankDataOutput) SyncResponse {
	return SyncResponse{
		BankCode:             output.BankCode,
		Status:               string(output.Status),
		AccountsImported:     output.AccountsImported,
		TransactionsImported: output.TransactionsImported,
		TransactionsSkipped:  output.TransactionsSkipped,
		Errors:               output.Errors,
	}
}

// BankSyncResultResponse represents one bank's outcome within a full sync run.
type BankSyncResultResponse struct {
	BankCode string        `json:"bank_code"`
	Synced   *SyncResponse `json:"synced,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// SyncAllResponse represents the response for a full sync run.
type SyncAllResponse struct {
	Results []BankSyncResultResponse `json:"results"`
}

// ToSyncAllResponse converts the use case output to the response shape.
func ToSyncAllResponse(output *connection.SyncAllBanksOutput) SyncAllResponse {
	results := make([]BankSyncResultResponse, len(output.Results))
	for i, result := range output.Results {
		results[i] = BankSyncResultResponse{
			BankCode: result.BankCode,
			Error:    result.Error,
		}
		if result.Synced != nil {
			synced := ToSyncResponse(result.Synced)
			results[i].Synced = &synced
		}
	}
	return SyncAllResponse{Results: results}
}

// DisconnectResponse reports a completed disconnection.
type DisconnectResponse struct {
	BankCode      string `json:"bank_code"`
	RemoteRevoked bool   `json:"remote_revoked"`
}

// ImportCSVRequest represents the request body for a CSV import.
type ImportCSVRequest struct {
	AccountID         string `json:"account_id" binding:"required"`
	Content           string `json:"content" binding:"required"`
	Delimiter         string `json:"delimiter,omitempty"`
	HasHeaders        *bool  `json:"has_headers,omitempty"`
	DateColumn        string `json:"date_column,omitempty"`
	AmountColumn      string `json:"amount_column,omitempty"`
	DescriptionColumn string `json:"description_column,omitempty"`
	CategoryColumn    string `json:"category_column,omitempty"`
	BalanceColumn     string `json:"balance_column,omitempty"`
	DateFormat        string `json:"date_format,omitempty"`
	Currency          string `json:"currency,omitempty"`
}

// RowErrorResponse represents one rejected CSV row.
type RowErrorResponse struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportCSVResponse represents the outcome of a CSV import.
type ImportCSVResponse struct {
	Imported  int                `json:"imported"`
	Skipped   int                `json:"skipped"`
	Failed    int                `json:"failed"`
	RowErrors []RowErrorResponse `json:"row_errors,omitempty"`
}

// ToImportCSVResponse converts the use case output to the response shape.
func ToImportCSVResponse(output *connection.ImportCSVOutput) ImportCSVResponse {
	rowErrors := make([]RowErrorResponse, len(output.RowErrors))
	for i, rowError := range output.RowErrors {
		rowErrors[i] = RowErrorResponse{Row: rowError.Row, Message: rowError.Message}
	}
	return ImportCSVResponse{
		Imported:  output.Imported,
		Skipped:   output.Skipped,
		Failed:    output.Failed,
		RowErrors: rowErrors,
	}
}

// CSVConfigFromRequest maps the request options to a parser configuration.
func CSVConfigFromRequest(req ImportCSVRequest) csvimport.Config {
	config := csvimport.Config{
		HasHeaders:        true,
		DateColumn:        req.DateColumn,
		AmountColumn:      req.AmountColumn,
		DescriptionColumn: req.DescriptionColumn,
		CategoryColumn:    req.CategoryColumn,
		BalanceColumn:     req.BalanceColumn,
		DateFormat:        req.DateFormat,
		Currency:          req.Currency,
	}
	if req.Delimiter != "" {
		config.Delimiter, _ = utf8.DecodeRuneInString(req.Delimiter)
	}
	if req.HasHeaders != nil {
		config.HasHeaders = *req.HasHeaders
	}
	return config
}
