// Package csvimport parses delimited text into normalized transactions. It is
// pure CPU work with no network or storage dependency, used when no live bank
// connection exists or as a manual correction path.
package csvimport

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Staysteady/financial-dashboard-sub000/internal/domain/entity"
	domainerror "github.com/Staysteady/financial-dashboard-sub000/internal/domain/error"
)

const (
	// maxContentBytes is the hard cap on CSV payload size.
	maxContentBytes = 10 * 1024 * 1024
	// maxDataRows is the hard cap on data rows per parse.
	maxDataRows = 10000
)

// Config describes how to read one CSV layout. When HasHeaders is set the
// column fields are matched case-insensitively against the header row and the
// required ones default to "Date", "Amount" and "Description" when unset;
// without headers they are interpreted as zero-based column indices.
type Config struct {
	Delimiter         rune
	HasHeaders        bool
	DateColumn        string
	AmountColumn      string
	DescriptionColumn string
	CategoryColumn    string
	BalanceColumn     string
	DateFormat        string
	Currency          string
}

// RowError records one failed row without aborting the rest of the parse.
type RowError struct {
	Row     int
	Message string
}

// Result is the outcome of one parse: the rows that normalized cleanly, the
// row-numbered failures, and the counts of each.
type Result struct {
	Transactions []*entity.Transaction
	Errors       []RowError
	SuccessCount int
	FailureCount int
}

// columnMap holds the resolved zero-based index of each logical column.
// Optional columns resolve to -1 when absent.
type columnMap struct {
	date        int
	amount      int
	description int
	category    int
	balance     int
}

// dateFallbackFormats are tried in order after the configured format. Day
// first layouts come before month first so ambiguous numeric dates like
// 02/03/2024 resolve to the 2nd of March.
var dateFallbackFormats = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006-01-02",
	"2006/01/02",
	"02.01.2006",
	"01/02/2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"02 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	time.RFC3339,
}

// Parse transforms CSV content into normalized transactions. Size and row
// limits fail the whole parse before any row is processed; a missing required
// column aborts with one error per missing column; everything after that is
// per-row isolated.
func Parse(content string, config Config) (*Result, error) {
	if config.Delimiter == 0 {
		config.Delimiter = ','
	}
	if config.HasHeaders {
		if config.DateColumn == "" {
			config.DateColumn = "Date"
		}
		if config.AmountColumn == "" {
			config.AmountColumn = "Amount"
		}
		if config.DescriptionColumn == "" {
			config.DescriptionColumn = "Description"
		}
	}

	if strings.TrimSpace(content) == "" {
		return nil, domainerror.NewCSVError(domainerror.ErrCodeEmptyContent, "csv content is empty", domainerror.ErrCSVEmptyContent)
	}
	if len(content) > maxContentBytes {
		return nil, domainerror.NewCSVError(
			domainerror.ErrCodeFileTooLarge,
			fmt.Sprintf("csv content is %d bytes, limit is %d", len(content), maxContentBytes),
			domainerror.ErrCSVFileTooLarge,
		)
	}

	rows := tokenize(content, config.Delimiter)
	dataRows := rows
	var header []string
	if config.HasHeaders && len(rows) > 0 {
		header = rows[0]
		dataRows = rows[1:]
	}
	if len(dataRows) > maxDataRows {
		return nil, domainerror.NewCSVError(
			domainerror.ErrCodeRowLimitExceeded,
			fmt.Sprintf("csv has %d data rows, limit is %d", len(dataRows), maxDataRows),
			domainerror.ErrCSVRowLimitExceeded,
		)
	}

	columns, missing := resolveColumns(config, header)
	if len(missing) > 0 {
		result := &Result{}
		for _, name := range missing {
			result.Errors = append(result.Errors, RowError{
				Row:     0,
				Message: fmt.Sprintf("required column %q not found", name),
			})
		}
		result.FailureCount = len(result.Errors)
		return result, domainerror.NewCSVError(
			domainerror.ErrCodeMissingColumn,
			fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")),
			domainerror.ErrCSVMissingColumn,
		)
	}

	// Row numbers are 1-based over the original file, so data rows start at
	// 2 when a header row is present.
	rowOffset := 1
	if config.HasHeaders {
		rowOffset = 2
	}

	result := &Result{}
	for i, row := range dataRows {
		rowNumber := i + rowOffset

		txn, err := parseRow(row, columns, config)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: rowNumber, Message: err.Error()})
			result.FailureCount++
			continue
		}
		result.Transactions = append(result.Transactions, txn)
		result.SuccessCount++
	}
	return result, nil
}

// parseRow normalizes one data row.
func parseRow(row []string, columns columnMap, config Config) (*entity.Transaction, error) {
	maxIndex := columns.date
	if columns.amount > maxIndex {
		maxIndex = columns.amount
	}
	if columns.description > maxIndex {
		maxIndex = columns.description
	}
	if len(row) <= maxIndex {
		return nil, fmt.Errorf("row has %d fields, need at least %d", len(row), maxIndex+1)
	}

	date, err := parseDate(strings.TrimSpace(row[columns.date]), config.DateFormat)
	if err != nil {
		return nil, err
	}

	amount, err := parseAmount(row[columns.amount])
	if err != nil {
		return nil, err
	}

	description := strings.TrimSpace(row[columns.description])
	if description == "" {
		return nil, fmt.Errorf("description is empty")
	}

	txnType := entity.TransactionTypeIncome
	if amount.IsNegative() {
		txnType = entity.TransactionTypeExpense
	}

	txn := &entity.Transaction{
		ExternalID:  externalID(date, amount, description),
		Date:        date,
		Description: description,
		Amount:      amount,
		Currency:    config.Currency,
		Type:        txnType,
	}
	if columns.category >= 0 && columns.category < len(row) {
		txn.Category = strings.TrimSpace(row[columns.category])
	}
	if columns.balance >= 0 && columns.balance < len(row) {
		if balance, err := parseAmount(row[columns.balance]); err == nil {
			txn.BalanceAfter = &balance
		}
	}
	return txn, nil
}

// resolveColumns maps the configured logical columns onto row indices, either
// by header name or by numeric index. The second return lists required
// columns that could not be resolved.
func resolveColumns(config Config, header []string) (columnMap, []string) {
	columns := columnMap{date: -1, amount: -1, description: -1, category: -1, balance: -1}
	var missing []string

	resolve := func(value string, required bool, name string) int {
		if value == "" {
			if required {
				missing = append(missing, name)
			}
			return -1
		}
		if config.HasHeaders {
			for i, cell := range header {
				if strings.EqualFold(strings.TrimSpace(cell), value) {
					return i
				}
			}
			if required {
				missing = append(missing, value)
			}
			return -1
		}
		index, err := strconv.Atoi(value)
		if err != nil || index < 0 {
			if required {
				missing = append(missing, value)
			}
			return -1
		}
		return index
	}

	columns.date = resolve(config.DateColumn, true, "date")
	columns.amount = resolve(config.AmountColumn, true, "amount")
	columns.description = resolve(config.DescriptionColumn, true, "description")
	columns.category = resolve(config.CategoryColumn, false, "category")
	columns.balance = resolve(config.BalanceColumn, false, "balance")
	return columns, missing
}

// tokenize splits content into rows of fields. Fields may be wrapped in
// double quotes, inside which the delimiter and newlines are literal and a
// doubled quote is an escaped quote. Blank lines are skipped.
func tokenize(content string, delimiter rune) [][]string {
	var rows [][]string
	var row []string
	var field strings.Builder
	inQuotes := false
	fieldStarted := false

	runes := []rune(content)
	flushField := func() {
		row = append(row, field.String())
		field.Reset()
		fieldStarted = false
	}
	flushRow := func() {
		if fieldStarted || field.Len() > 0 || len(row) > 0 {
			flushField()
		}
		if len(row) > 0 {
			blank := true
			for _, cell := range row {
				if strings.TrimSpace(cell) != "" {
					blank = false
					break
				}
			}
			if !blank {
				rows = append(rows, row)
			}
		}
		row = nil
	}

	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case inQuotes:
			if ch == '"' {
				if i+1 < len(runes) && runes[i+1] == '"' {
					field.WriteRune('"')
					i++
				} else {
					inQuotes = false
				}
			} else {
				field.WriteRune(ch)
			}
		case ch == '"':
			inQuotes = true
			fieldStarted = true
		case ch == delimiter:
			flushField()
			fieldStarted = true
		case ch == '\n':
			flushRow()
		case ch == '\r':
			// Swallowed; \r\n is handled by the \n branch.
		default:
			field.WriteRune(ch)
			fieldStarted = true
		}
	}
	flushRow()
	return rows
}

// parseDate tries the configured format, then common fallbacks with day first
// layouts preferred, truncating any time component to the UTC date.
func parseDate(value, configured string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}

	formats := dateFallbackFormats
	if configured != "" {
		formats = append([]string{configured}, formats...)
	}
	for _, format := range formats {
		if parsed, err := time.Parse(format, value); err == nil {
			return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", value)
}

// parseAmount cleans a raw amount string: currency symbols, thousands
// separators and whitespace are stripped, and parenthesized values become
// negative.
func parseAmount(value string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("amount is empty")
	}

	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}

	var sb strings.Builder
	for _, ch := range cleaned {
		if (ch >= '0' && ch <= '9') || ch == '.' || ch == '-' {
			sb.WriteRune(ch)
		}
	}
	cleaned = sb.String()
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, fmt.Errorf("unparsable amount %q", value)
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparsable amount %q", value)
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

// externalID derives a deterministic transaction id from the normalized row
// so re-importing the same file is caught by external id de-dup.
func externalID(date time.Time, amount decimal.Decimal, description string) string {
	sum := sha256.Sum256([]byte(date.Format("2006-01-02") + "|" + amount.String() + "|" + description))
	return "csv-" + hex.EncodeToString(sum[:])
}
