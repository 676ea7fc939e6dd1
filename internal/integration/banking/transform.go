package banking

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Staysteady/financial-dashboard-sub000/internal/domain/entity"
	domainerror "github.com/Staysteady/financial-dashboard-sub000/internal/domain/error"
)

// Wire shapes of the Open-Banking account-information read API.

type accountsEnvelope struct {
	Data struct {
		Account []struct {
			AccountID      string `json:"AccountId"`
			Currency       string `json:"Currency"`
			AccountType    string `json:"AccountType"`
			AccountSubType string `json:"AccountSubType"`
			Nickname       string `json:"Nickname"`
		} `json:"Account"`
	} `json:"Data"`
}

type balancesEnvelope struct {
	Data struct {
		Balance []struct {
			AccountID            string `json:"AccountId"`
			CreditDebitIndicator string `json:"CreditDebitIndicator"`
			Type                 string `json:"Type"`
			Amount               struct {
				Amount   string `json:"Amount"`
				Currency string `json:"Currency"`
			} `json:"Amount"`
		} `json:"Balance"`
	} `json:"Data"`
}

type transactionsEnvelope struct {
	Data struct {
		Transaction []struct {
			TransactionID          string `json:"TransactionId"`
			AccountID              string `json:"AccountId"`
			CreditDebitIndicator   string `json:"CreditDebitIndicator"`
			BookingDateTime        string `json:"BookingDateTime"`
			TransactionInformation string `json:"TransactionInformation"`
			Amount                 struct {
				Amount   string `json:"Amount"`
				Currency string `json:"Currency"`
			} `json:"Amount"`
			MerchantDetails struct {
				MerchantName string `json:"MerchantName"`
			} `json:"MerchantDetails"`
			Balance struct {
				Amount struct {
					Amount   string `json:"Amount"`
					Currency string `json:"Currency"`
				} `json:"Amount"`
			} `json:"Balance"`
		} `json:"Transaction"`
	} `json:"Data"`
}

// transformAccounts maps a bank accounts payload to normalized accounts. The
// bank's nickname becomes the account name, falling back to the subtype.
func transformAccounts(body []byte, institution string) ([]*entity.Account, error) {
	var envelope accountsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, domainerror.NewBankingError(domainerror.ErrCodeRequestFailed, "malformed accounts response", err)
	}

	accounts := make([]*entity.Account, 0, len(envelope.Data.Account))
	for _, raw := range envelope.Data.Account {
		name := raw.Nickname
		if name == "" {
			name = raw.AccountSubType
		}
		if name == "" {
			name = raw.AccountID
		}

		accounts = append(accounts, &entity.Account{
			UserID:      uuid.Nil, // stamped by the connection manager at import time
			Institution: institution,
			ExternalID:  raw.AccountID,
			Name:        name,
			Currency:    raw.Currency,
			Type:        raw.AccountType,
			Subtype:     raw.AccountSubType,
		})
	}
	return accounts, nil
}

// transformBalances maps a bank balances payload to normalized balances.
func transformBalances(body []byte) ([]*entity.Balance, error) {
	var envelope balancesEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, domainerror.NewBankingError(domainerror.ErrCodeRequestFailed, "malformed balances response", err)
	}

	balances := make([]*entity.Balance, 0, len(envelope.Data.Balance))
	for _, raw := range envelope.Data.Balance {
		amount, err := decimal.NewFromString(raw.Amount.Amount)
		if err != nil {
			return nil, domainerror.NewBankingError(
				domainerror.ErrCodeRequestFailed,
				fmt.Sprintf("unparsable balance amount %q", raw.Amount.Amount),
				err,
			)
		}
		if raw.CreditDebitIndicator == "Debit" {
			amount = amount.Neg()
		}

		balances = append(balances, &entity.Balance{
			AccountExternalID: raw.AccountID,
			Amount:            amount,
			Currency:          raw.Amount.Currency,
			Type:              raw.Type,
			CreditDebit:       raw.CreditDebitIndicator,
		})
	}
	return balances, nil
}

// transformTransactions maps a bank transactions payload to normalized
// transactions. Credits become positive income, debits negative expenses,
// and the booking date is truncated to the date (time component discarded).
func transformTransactions(body []byte) ([]*entity.Transaction, error) {
	var envelope transactionsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, domainerror.NewBankingError(domainerror.ErrCodeRequestFailed, "malformed transactions response", err)
	}

	transactions := make([]*entity.Transaction, 0, len(envelope.Data.Transaction))
	for _, raw := range envelope.Data.Transaction {
		amount, err := decimal.NewFromString(raw.Amount.Amount)
		if err != nil {
			return nil, domainerror.NewBankingError(
				domainerror.ErrCodeRequestFailed,
				fmt.Sprintf("unparsable transaction amount %q", raw.Amount.Amount),
				err,
			)
		}

		txnType := entity.TransactionTypeIncome
		if raw.CreditDebitIndicator == "Debit" {
			amount = amount.Abs().Neg()
			txnType = entity.TransactionTypeExpense
		} else {
			amount = amount.Abs()
		}

		bookingDate, err := parseBookingDate(raw.BookingDateTime)
		if err != nil {
			return nil, domainerror.NewBankingError(
				domainerror.ErrCodeRequestFailed,
				fmt.Sprintf("unparsable booking date %q", raw.BookingDateTime),
				err,
			)
		}

		txn := &entity.Transaction{
			ExternalAccountID: raw.AccountID,
			ExternalID:        raw.TransactionID,
			Date:              bookingDate,
			Description:       raw.TransactionInformation,
			Amount:            amount,
			Currency:          raw.Amount.Currency,
			Type:              txnType,
			Merchant:          raw.MerchantDetails.MerchantName,
		}
		if raw.Balance.Amount.Amount != "" {
			if after, err := decimal.NewFromString(raw.Balance.Amount.Amount); err == nil {
				txn.BalanceAfter = &after
			}
		}
		transactions = append(transactions, txn)
	}
	return transactions, nil
}

// parseBookingDate truncates an RFC3339 booking timestamp to its date.
func parseBookingDate(value string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		// Some banks send date-only booking dates.
		parsed, err = time.Parse("2006-01-02", value)
		if err != nil {
			return time.Time{}, err
		}
	}
	return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), nil
}
