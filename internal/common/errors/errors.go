package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type ErrorCode string

const (
	ErrCodeSessionStoreFailed ErrorCode = "SESSION_STORE_FAILED"
	ErrCodeSessionNotFound    ErrorCode = "SESSION_NOT_FOUND"

	ErrCodeKnowledgeRetrievalFailed ErrorCode = "KNOWLEDGE_RETRIEVAL_FAILED"
	ErrCodeSearchTimeout            ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeEmbeddingFailed          ErrorCode = "EMBEDDING_FAILED"

	ErrCodeLLMTimeout         ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMSynthesisFailed ErrorCode = "LLM_SYNTHESIS_FAILED"

	ErrCodeInvalidRequest         ErrorCode = "INVALID_REQUEST"
	ErrCodeLeadValidationFailed   ErrorCode = "LEAD_VALIDATION_FAILED"
	ErrCodeLeadCaptureFailed      ErrorCode = "LEAD_CAPTURE_FAILED"
	ErrCodeRateLimited            ErrorCode = "RATE_LIMITED"
	ErrCodeTurnRecordFailed       ErrorCode = "TURN_RECORD_FAILED"
	ErrCodeCRMSyncFailed          ErrorCode = "CRM_SYNC_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT_ERROR"
	ErrCodeNotFound        ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeBusinessRule    ErrorCode = "BUSINESS_RULE_VIOLATION"
	ErrCodeAuthentication  ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
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
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata returns e with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
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

func NewSessionStoreError(operation string, err error) *StandardError {
	return newError(ErrCodeSessionStoreFailed, "Conversation session storage error",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), true)
}

func NewSessionNotFoundError(sessionID string) *StandardError {
	return newError(ErrCodeSessionNotFound, "Conversation session not found",
		fmt.Sprintf("sessionId: %s", sessionID), false)
}

func NewKnowledgeRetrievalError(backend string, err error) *StandardError {
	return newError(ErrCodeKnowledgeRetrievalFailed, "Knowledge retrieval error",
		fmt.Sprintf("backend: %s, error: %s", backend, err.Error()), true)
}

func NewSearchTimeoutError(backend string) *StandardError {
	return newError(ErrCodeSearchTimeout, "Knowledge search timeout",
		fmt.Sprintf("backend: %s", backend), true)
}

func NewEmbeddingError(err error) *StandardError {
	return newError(ErrCodeEmbeddingFailed, "Query embedding failed", err.Error(), true)
}

func NewLLMTimeoutError() *StandardError {
	return newError(ErrCodeLLMTimeout, "LLM synthesis timeout",
		"response generation exceeded its deadline", true)
}

func NewLLMSynthesisFailedError(err error) *StandardError {
	return newError(ErrCodeLLMSynthesisFailed, "LLM synthesis API error", err.Error(), true)
}

func NewInvalidRequestError(details string) *StandardError {
	return newError(ErrCodeInvalidRequest, "Invalid request", details, false)
}

func NewLeadValidationError(details string) *StandardError {
	return newError(ErrCodeLeadValidationFailed, "Lead contact validation failed", details, false)
}

func NewLeadCaptureError(sessionID string) *StandardError {
	return newError(ErrCodeLeadCaptureFailed, "Lead contact could not be stored",
		fmt.Sprintf("sessionId: %s", sessionID), true)
}

func NewRateLimitedError(key string) *StandardError {
	return newError(ErrCodeRateLimited, "Too many requests", fmt.Sprintf("key: %s", key), true)
}

func NewTurnRecordError(stage string, err error) *StandardError {
	return newError(ErrCodeTurnRecordFailed, "Conversation turn recording failed",
		fmt.Sprintf("stage: %s, error: %s", stage, err.Error()), true)
}

func NewCRMSyncError(err error) *StandardError {
	return newError(ErrCodeCRMSyncFailed, "CRM lead sync failed", err.Error(), true)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, err.Error()), true)
}

func NewBusinessRuleError(message, details string) *StandardError {
	return newError(ErrCodeBusinessRule, message, details, false)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError(ErrCodeNotFound, fmt.Sprintf("Resource not found in %s", service), details, false)
}

func NewAuthenticationError(details string) *StandardError {
	return newError(ErrCodeAuthentication, "Authentication failed", details, false)
}

// AsStandardError unwraps err to a StandardError, wrapping unknown errors as
// INTERNAL_ERROR.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeSessionStoreFailed:       "SESSION_STORE_FAILED",
	ErrCodeSessionNotFound:          "SESSION_NOT_FOUND",
	ErrCodeKnowledgeRetrievalFailed: "KNOWLEDGE_RETRIEVAL_FAILED",
	ErrCodeSearchTimeout:            "SEARCH_TIMEOUT",
	ErrCodeEmbeddingFailed:          "EMBEDDING_FAILED",
	ErrCodeLLMTimeout:               "LLM_TIMEOUT",
	ErrCodeLLMSynthesisFailed:       "LLM_SYNTHESIS_FAILED",
	ErrCodeInvalidRequest:           "INVALID_INPUT",
	ErrCodeLeadValidationFailed:     "LEAD_VALIDATION_FAILED",
	ErrCodeTurnRecordFailed:         "TURN_RECORD_FAILED",
	ErrCodeCRMSyncFailed:            "CRM_SYNC_FAILED",
	ErrCodeNotificationSendFailed:   "NOTIFICATION_SEND_FAILED",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeSessionStoreFailed,
		ErrCodeKnowledgeRetrievalFailed,
		ErrCodeEmbeddingFailed,
		ErrCodeLLMSynthesisFailed,
		ErrCodeTurnRecordFailed,
		ErrCodeCRMSyncFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeSearchTimeout, ErrCodeTimeout:
		return 2

	case ErrCodeLLMTimeout:
		return 1

	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "SESSION") || strings.Contains(codeStr, "CACHE") || strings.Contains(codeStr, "TURN"):
		return "STORAGE"
	case strings.Contains(codeStr, "KNOWLEDGE") || strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "EMBEDDING"):
		return "RETRIEVAL"
	case strings.Contains(codeStr, "LLM"):
		return "AI"
	case strings.Contains(codeStr, "LEAD") || strings.Contains(codeStr, "CRM"):
		return "LEAD"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// HTTPStatus maps an error code to the status the chat API answers with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest, ErrCodeLeadValidationFailed:
		return http.StatusBadRequest
	case ErrCodeSessionNotFound, ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeLLMTimeout, ErrCodeSearchTimeout, ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeLLMSynthesisFailed, ErrCodeExternalService, ErrCodeEmbeddingFailed:
		return http.StatusBadGateway
	case ErrCodeAuthentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
