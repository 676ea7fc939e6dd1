package error

import "errors"

// Banking integration domain errors.
var (
	// ErrBankNotSupported is returned when no adapter is registered for a bank code.
	ErrBankNotSupported = errors.New("bank is not supported")

	// ErrRateLimitExceeded is returned when the sliding-window limiter rejects a request.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrRequestTimeout is returned when a bank request hits the hard timeout.
	ErrRequestTimeout = errors.New("request timed out")

	// ErrRequestFailed is returned when a bank request exhausted its retries.
	ErrRequestFailed = errors.New("request failed after retries")

	// ErrCredentialsNotFound is returned when no credentials are stored for (user, bank).
	ErrCredentialsNotFound = errors.New("credentials not found")

	// ErrCredentialDecryptFailed is returned when a stored token bundle cannot be decrypted.
	ErrCredentialDecryptFailed = errors.New("credential decryption failed")

	// ErrTokenExpired is returned when the token bundle is expired and cannot be refreshed.
	ErrTokenExpired = errors.New("token expired, reauthorization required")

	// ErrInvalidState is returned when the OAuth callback state does not match.
	ErrInvalidState = errors.New("invalid or expired authorization state")

	// ErrAccountNotFoundOrUnauthorized is returned when the target account does not
	// exist or does not belong to the requesting user.
	ErrAccountNotFoundOrUnauthorized = errors.New("account not found or not owned by user")
)

// BankingErrorCode defines error codes for banking integration failures.
// Protocol-level codes declared by the bank are surfaced verbatim.
type BankingErrorCode string

const (
	ErrCodeRateLimitExceeded BankingErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeTimeout           BankingErrorCode = "TIMEOUT"
	ErrCodeRequestFailed     BankingErrorCode = "REQUEST_FAILED"
	ErrCodeBankNotSupported  BankingErrorCode = "BANK_NOT_SUPPORTED"
	ErrCodeTokenExpired      BankingErrorCode = "TOKEN_EXPIRED"
	ErrCodeInvalidState      BankingErrorCode = "INVALID_STATE"
	ErrCodeMissingCredential BankingErrorCode = "MISSING_CREDENTIALS"
	ErrCodeAccountNotFound   BankingErrorCode = "ACCOUNT_NOT_FOUND_OR_UNAUTHORIZED"
)

// BankingError represents a banking integration failure with code and message.
type BankingError struct {
	Code       BankingErrorCode
	Message    string
	StatusCode int // HTTP status of the bank response, 0 when not applicable
	Err        error
}

// Error implements the error interface.
func (e *BankingError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *BankingError) Unwrap() error {
	return e.Err
}

// NewBankingError creates a new BankingError with the given code and message.
func NewBankingError(code BankingErrorCode, message string, err error) *BankingError {
	return &BankingError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewProtocolError creates a BankingError carrying a bank-declared error code
// verbatim together with the HTTP status it arrived with.
func NewProtocolError(code, message string, statusCode int) *BankingError {
	return &BankingError{
		Code:       BankingErrorCode(code),
		Message:    message,
		StatusCode: statusCode,
	}
}

// BankingCode extracts the BankingErrorCode from err if it wraps a
// BankingError; ok is false otherwise.
func BankingCode(err error) (BankingErrorCode, bool) {
	var be *BankingError
	if errors.As(err, &be) {
		return be.Code, true
	}
	return "", false
}
