package core

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error that occurred
type ErrorType string

const (
	// ErrorTypeProvider indicates an upstream provider failure: network
	// error, non-success status, malformed payload, or zero usable rows.
	ErrorTypeProvider ErrorType = "provider_error"
	// ErrorTypeTimeout indicates an async provider job that did not reach a
	// successful terminal state within its deadline.
	ErrorTypeTimeout ErrorType = "timeout_error"
	// ErrorTypeInvalidRequest indicates a client error (4xx)
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
	// ErrorTypeValidation indicates a record or spec field that failed
	// normalization. Recovered locally; never surfaces to callers.
	ErrorTypeValidation ErrorType = "validation_error"
)

// ServiceError is the base error type for all pipeline errors. Provider and
// timeout errors are recovered inside the fallback chain and never propagate
// past the aggregator.
type ServiceError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Provider   string    `json:"provider,omitempty"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *ServiceError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case ErrorTypeProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to a JSON-compatible map
func (e *ServiceError) ToJSON() map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"type":    e.Type,
			"message": e.Message,
		},
	}
}

// NewProviderError creates a new provider error (upstream failure)
func NewProviderError(provider string, statusCode int, message string, err error) *ServiceError {
	return &ServiceError{
		Type:       ErrorTypeProvider,
		Message:    message,
		StatusCode: statusCode,
		Provider:   provider,
		Err:        err,
	}
}

// NewTimeoutError creates a new timeout error for an async provider job
func NewTimeoutError(provider string, message string) *ServiceError {
	return &ServiceError{
		Type:       ErrorTypeTimeout,
		Message:    message,
		StatusCode: http.StatusGatewayTimeout,
		Provider:   provider,
	}
}

// NewInvalidRequestError creates a new invalid request error (400)
func NewInvalidRequestError(message string, err error) *ServiceError {
	return &ServiceError{
		Type:       ErrorTypeInvalidRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

// ParseProviderError parses an error response from a provider and returns an
// appropriate ServiceError. Providers disagree on error envelope shape, so a
// couple of common ones are probed before falling back to the raw body.
func ParseProviderError(provider string, statusCode int, body []byte, originalErr error) *ServiceError {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
		ErrorMessage string `json:"error_message"`
	}

	message := string(body)
	if err := json.Unmarshal(body, &envelope); err == nil {
		switch {
		case envelope.Error.Message != "":
			message = envelope.Error.Message
		case envelope.ErrorMessage != "":
			message = envelope.ErrorMessage
		}
	}

	switch {
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		e := NewTimeoutError(provider, message)
		e.Err = originalErr
		return e
	case statusCode >= 400 && statusCode < 500:
		// Client errors from the provider still count as provider failures
		// for fallback purposes, but keep the original status for logs.
		return NewProviderError(provider, statusCode, message, originalErr)
	default:
		return NewProviderError(provider, http.StatusBadGateway, message, originalErr)
	}
}
