// internal/common/errors/errors.go
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type ErrorCode string

const (
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHENTICATED"
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_MISSING"

	ErrCodeCompanyNotFound   ErrorCode = "COMPANY_NOT_FOUND"
	ErrCodePersistenceFailed ErrorCode = "PERSISTENCE_FAILED"

	ErrCodeHomepageUnreachable ErrorCode = "HOMEPAGE_UNREACHABLE"

	ErrCodeLLMRequestFailed ErrorCode = "LLM_REQUEST_FAILED"
	ErrCodeLLMTimeout       ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMEmptyResponse ErrorCode = "LLM_EMPTY_RESPONSE"
	ErrCodeLLMInvalidJSON   ErrorCode = "LLM_INVALID_JSON"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Details)
}

// WithMetadata returns e with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	e.Metadata[key] = value
	return e
}

type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid input", details, false)
}

func NewUnauthorizedError(details string) *StandardError {
	return newError(ErrCodeUnauthorized, "Authentication required", details, false)
}

// NewConfigurationError marks a broken deployment, for example a missing API key.
func NewConfigurationError(setting string) *StandardError {
	return newError(ErrCodeConfiguration, "Service is not configured", fmt.Sprintf("%s is not set", setting), false)
}

func NewCompanyNotFoundError(companyID string) *StandardError {
	return newError(ErrCodeCompanyNotFound, "Company not found", fmt.Sprintf("companyId: %s", companyID), false)
}

func NewPersistenceError(op string, err error) *StandardError {
	return newError(ErrCodePersistenceFailed, "Persistence operation failed", fmt.Sprintf("%s: %v", op, err), true)
}

func NewHomepageUnreachableError(url string, cause error) *StandardError {
	details := fmt.Sprintf("url: %s", url)
	if cause != nil {
		details = fmt.Sprintf("url: %s, error: %v", url, cause)
	}
	return newError(ErrCodeHomepageUnreachable, "Failed to fetch company homepage", details, false)
}

// Model failures are terminal for the request. The caller decides whether to re-issue.
func NewLLMRequestFailedError(err error) *StandardError {
	return newError(ErrCodeLLMRequestFailed, "Language model request failed", err.Error(), false)
}

func NewLLMTimeoutError(err error) *StandardError {
	return newError(ErrCodeLLMTimeout, "Language model request timed out", err.Error(), false)
}

func NewLLMEmptyResponseError() *StandardError {
	return newError(ErrCodeLLMEmptyResponse, "No content returned from model", "", false)
}

func NewLLMInvalidJSONError(err error) *StandardError {
	return newError(ErrCodeLLMInvalidJSON, "Model response is not a JSON object", err.Error(), false)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// AsStandardError unwraps err to a StandardError, wrapping unknown errors as INTERNAL_ERROR.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return stderrors.As(err, &stdErr) && stdErr.Code == code
}

func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeCompanyNotFound:
		return http.StatusNotFound
	case ErrCodeConfiguration:
		return http.StatusServiceUnavailable
	case ErrCodeLLMTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeHomepageUnreachable,
		ErrCodeLLMRequestFailed,
		ErrCodeLLMEmptyResponse,
		ErrCodeLLMInvalidJSON:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodePersistenceFailed:
		return 3
	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"errorCategory":     GetErrorCategory(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "LLM"):
		return "AI"
	case code == ErrCodeConfiguration:
		return "CONFIGURATION"
	case code == ErrCodeHomepageUnreachable:
		return "FETCH"
	case code == ErrCodePersistenceFailed || code == ErrCodeCompanyNotFound:
		return "DATABASE"
	case code == ErrCodeUnauthorized:
		return "AUTH"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
