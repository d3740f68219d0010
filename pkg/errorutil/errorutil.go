package errorutil

import (
	"errors"
	"fmt"
)

// Error codes used across the ticket core.
const (
	CodeValidation = "VALIDATION_FAILED"
	CodeNotFound   = "NOT_FOUND"
	CodeRepository = "REPOSITORY_ERROR"
	CodeDomainRule = "DOMAIN_RULE_VIOLATION"
	CodeInternal   = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, Details: details}
}

// NewValidationError reports malformed input such as a filter with pageSize < 1.
func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, details)
}

// NewNotFound reports a missing ticket or template.
func NewNotFound(resource string, details map[string]any) error {
	return NewDomainError(CodeNotFound, resource+" not found", details)
}

// NewRepositoryError wraps a backend failure. The message names the operation only,
// storage detail stays in the wrapped cause.
func NewRepositoryError(op string, err error) error {
	return &DomainError{
		Code:    CodeRepository,
		Message: fmt.Sprintf("repository %s failed", op),
		Details: map[string]any{"op": op},
		Err:     err,
	}
}

// NewDomainRuleError reports a business-rule violation.
func NewDomainRuleError(message string, details map[string]any) error {
	return NewDomainError(CodeDomainRule, message, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:    CodeInternal,
		Message: "internal error",
		Err:     err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "internal error",
		Err:     err,
	}
}

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}

func IsValidation(err error) bool { return HasCode(err, CodeValidation) }

func IsNotFound(err error) bool { return HasCode(err, CodeNotFound) }

func IsRepository(err error) bool { return HasCode(err, CodeRepository) }

func IsDomainRule(err error) bool { return HasCode(err, CodeDomainRule) }
