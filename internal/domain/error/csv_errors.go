package error

import "errors"

// CSV import domain errors. These fail the whole parse; individual malformed
// rows are reported as row-numbered entries in the parse result instead.
var (
	// ErrCSVFileTooLarge is returned when the CSV content exceeds the size limit.
	ErrCSVFileTooLarge = errors.New("csv content exceeds maximum size")

	// ErrCSVRowLimitExceeded is returned when the CSV has too many data rows.
	ErrCSVRowLimitExceeded = errors.New("csv exceeds maximum row count")

	// ErrCSVMissingColumn is returned when a required column cannot be resolved.
	ErrCSVMissingColumn = errors.New("required column not found")

	// ErrCSVEmptyContent is returned when the CSV has no data rows at all.
	ErrCSVEmptyContent = errors.New("csv content is empty")
)

// CSVErrorCode defines error codes for CSV import failures.
type CSVErrorCode string

const (
	ErrCodeFileTooLarge     CSVErrorCode = "FILE_TOO_LARGE"
	ErrCodeRowLimitExceeded CSVErrorCode = "ROW_LIMIT_EXCEEDED"
	ErrCodeMissingColumn    CSVErrorCode = "MISSING_REQUIRED_COLUMN"
	ErrCodeEmptyContent     CSVErrorCode = "EMPTY_CONTENT"
)

// CSVError represents a whole-file CSV import failure.
type CSVError struct {
	Code    CSVErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *CSVError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *CSVError) Unwrap() error {
	return e.Err
}

// NewCSVError creates a new CSVError with the given code and message.
func NewCSVError(code CSVErrorCode, message string, err error) *CSVError {
	return &CSVError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
