package connection

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Staysteady/financial-dashboard-sub000/internal/application/adapter"
	"github.com/Staysteady/financial-dashboard-sub000/internal/application/usecase/csvimport"
	domainerror "github.com/Staysteady/financial-dashboard-sub000/internal/domain/error"
)

// ImportCSVInput represents the input for a CSV import against one account.
type ImportCSVInput struct {
	UserID    uuid.UUID
	AccountID uuid.UUID
	Content   string
	Config    csvimport.Config
}

// ImportCSVOutput reports what the import did, combining parse failures and
// de-dup skips.
type ImportCSVOutput struct {
	Imported  int
	Skipped   int
	Failed    int
	RowErrors []csvimport.RowError
}

// ImportCSVUseCase imports a CSV file of transactions into a specific,
// ownership-verified account, applying the same external id de-dup rule as a
// live bank sync.
type ImportCSVUseCase struct {
	accountRepo     adapter.AccountRepository
	transactionRepo adapter.TransactionRepository
}

// NewImportCSVUseCase creates a new ImportCSVUseCase instance.
func NewImportCSVUseCase(accountRepo adapter.AccountRepository, transactionRepo adapter.TransactionRepository) *ImportCSVUseCase {
	return &ImportCSVUseCase{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
	}
}

// Execute verifies account ownership, parses the content and imports the
// resulting transactions. Re-importing the same file yields zero new rows.
func (uc *ImportCSVUseCase) Execute(ctx context.Context, input ImportCSVInput) (*ImportCSVOutput, error) {
	account, err := uc.accountRepo.FindByIDAndUser(ctx, input.AccountID, input.UserID)
	if err != nil {
		return nil, domainerror.NewBankingError(
			domainerror.ErrCodeAccountNotFound,
			"account not found or not owned by user",
			domainerror.ErrAccountNotFoundOrUnauthorized,
		)
	}

	if input.Config.Currency == "" {
		input.Config.Currency = account.Currency
	}

	parsed, err := csvimport.Parse(input.Content, input.Config)
	if err != nil {
		return nil, err
	}

	output := &ImportCSVOutput{
		Failed:    parsed.FailureCount,
		RowErrors: parsed.Errors,
	}
	for _, txn := range parsed.Transactions {
		exists, err := uc.transactionRepo.ExistsByExternalID(ctx, input.UserID, txn.ExternalID)
		if err != nil {
			output.Failed++
			output.RowErrors = append(output.RowErrors, csvimport.RowError{Message: err.Error()})
			continue
		}
		if exists {
			output.Skipped++
			continue
		}

		txn.ID = uuid.New()
		txn.UserID = input.UserID
		txn.AccountID = account.ID
		if err := uc.transactionRepo.Create(ctx, txn); err != nil {
			output.Failed++
			output.RowErrors = append(output.RowErrors, csvimport.RowError{Message: fmt.Sprintf("transaction %s: %s", txn.ExternalID, err.Error())})
			continue
		}
		output.Imported++
	}

	slog.Info("CSV import completed",
		"userID", input.UserID,
		"accountID", account.ID,
		"imported", output.Imported,
		"skipped", output.Skipped,
		"failed", output.Failed,
	)
	return output, nil
}
