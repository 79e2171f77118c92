package sagemaker

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/aws/smithy-go"
)

// Error kinds. Every error returned by the catalog, controller, and streamer
// is a *LifecycleError whose Kind is one of these, so callers can use
// errors.Is against them.
var (
	ErrNotFound             = errors.New("not found")
	ErrAlreadyActive        = errors.New("already active")
	ErrNotActive            = errors.New("not active")
	ErrDeploymentTimeout    = errors.New("deployment timeout")
	ErrDeploymentFailed     = errors.New("deployment failed")
	ErrBackendUnavailable   = errors.New("backend unavailable")
	ErrProbeBudgetExhausted = errors.New("probe budget exhausted")
	ErrInvalidName          = errors.New("invalid endpoint name")
)

// Error category constants classify backend failures for diagnostics.
const (
	ErrCategoryPermission    = "permission"
	ErrCategoryConfiguration = "configuration"
	ErrCategoryThrottling    = "throttling"
	ErrCategoryNetwork       = "network"
	ErrCategoryResource      = "resource"
)

// LifecycleError is the structured error returned by endpoint lifecycle
// operations.
type LifecycleError struct {
	// Kind is one of the Err* sentinels above.
	Kind error
	// Endpoint is the logical or endpoint name the operation targeted.
	Endpoint string
	// Operation is the action that failed (e.g. "create", "describe").
	Operation string
	// Message is the primary error description.
	Message string
	// Elapsed is set for deployment timeouts and failures.
	Elapsed time.Duration
	// Category and Remediation are set for backend errors.
	Category    string
	Remediation string
	// Cause is the underlying error, if any.
	Cause error
	// Stack is captured for backend errors so operators can locate the call.
	Stack []byte
}

// Error renders a single human-readable line. The stack is never included.
func (e *LifecycleError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	if e.Remediation != "" {
		fmt.Fprintf(&b, " [hint: %s]", e.Remediation)
	}
	return b.String()
}

// Is matches the error kind.
func (e *LifecycleError) Is(target error) bool {
	return e.Kind == target
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *LifecycleError) Unwrap() error {
	return e.Cause
}

func notFoundError(name string) *LifecycleError {
	return &LifecycleError{
		Kind:     ErrNotFound,
		Endpoint: name,
		Message:  fmt.Sprintf("Model %s not found", name),
	}
}

func alreadyActiveError(name string) *LifecycleError {
	return &LifecycleError{
		Kind:     ErrAlreadyActive,
		Endpoint: name,
		Message:  fmt.Sprintf("Model %s is already active", name),
	}
}

func notActiveError(name string) *LifecycleError {
	return &LifecycleError{
		Kind:     ErrNotActive,
		Endpoint: name,
		Message:  fmt.Sprintf("Model %s is not active", name),
	}
}

func invalidNameError(name string, cause error) *LifecycleError {
	return &LifecycleError{
		Kind:      ErrInvalidName,
		Endpoint:  name,
		Operation: "create",
		Message:   fmt.Sprintf("Model %s cannot be deployed", name),
		Cause:     cause,
	}
}

func timeoutError(endpoint string, elapsed, maxWait time.Duration) *LifecycleError {
	return &LifecycleError{
		Kind:      ErrDeploymentTimeout,
		Endpoint:  endpoint,
		Operation: "wait",
		Elapsed:   elapsed,
		Message: fmt.Sprintf("Endpoint %s failed to deploy in %s (waited %s)",
			endpoint, maxWait, elapsed.Round(time.Second)),
	}
}

func deploymentFailedError(endpoint, reason string, elapsed time.Duration) *LifecycleError {
	msg := fmt.Sprintf("Endpoint %s entered status %s", endpoint, StatusFailed)
	if reason != "" {
		msg += ": " + reason
	}
	return &LifecycleError{
		Kind:      ErrDeploymentFailed,
		Endpoint:  endpoint,
		Operation: "wait",
		Elapsed:   elapsed,
		Message:   msg,
	}
}

// backendError wraps a failed backend call with classification and the
// current stack.
func backendError(operation, name string, cause error) *LifecycleError {
	category, remediation := classifyBackendError(cause)
	msg := fmt.Sprintf("Failed to %s", operation)
	if name != "" {
		msg = fmt.Sprintf("Failed to %s %s", operation, name)
	}
	return &LifecycleError{
		Kind:        ErrBackendUnavailable,
		Endpoint:    name,
		Operation:   operation,
		Message:     msg,
		Category:    category,
		Remediation: remediation,
		Cause:       cause,
		Stack:       debug.Stack(),
	}
}

// AsLifecycleError returns the LifecycleError if err is (or wraps) one.
func AsLifecycleError(err error) *LifecycleError {
	var le *LifecycleError
	if errors.As(err, &le) {
		return le
	}
	return nil
}

// classifyBackendError inspects an AWS error and returns a category and
// remediation hint. Modeled API error codes are checked before falling back
// to message keywords.
func classifyBackendError(err error) (category, remediation string) {
	if err == nil {
		return ErrCategoryResource, ""
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if c, r, ok := classifyErrorCode(apiErr.ErrorCode()); ok {
			return c, r
		}
	}
	return classifyErrorMessage(err.Error())
}

// classifyErrorCode maps well-known AWS error codes.
func classifyErrorCode(code string) (category, remediation string, ok bool) {
	switch code {
	case "AccessDeniedException", "UnrecognizedClientException", "ExpiredTokenException":
		return ErrCategoryPermission, hintCheckCredentials, true
	case "ThrottlingException", "ResourceLimitExceeded":
		return ErrCategoryThrottling, hintRetryLater, true
	case "ValidationException":
		return ErrCategoryConfiguration, hintCheckConfig, true
	}
	return "", "", false
}

// classifyErrorMessage determines category and remediation from an error string.
func classifyErrorMessage(msg string) (category, remediation string) {
	lower := strings.ToLower(msg)

	if containsAny(lower, permissionKeywords) {
		return ErrCategoryPermission, hintCheckCredentials
	}
	if containsAny(lower, throttlingKeywords) {
		return ErrCategoryThrottling, hintRetryLater
	}
	if containsAny(lower, networkKeywords) {
		return ErrCategoryNetwork, hintCheckNetwork
	}
	if containsAny(lower, configKeywords) {
		return ErrCategoryConfiguration, hintCheckConfig
	}
	return ErrCategoryResource, ""
}

// Keyword groups for error classification.
var (
	permissionKeywords = []string{
		"accessdenied", "access denied", "unauthorized",
		"not authorized", "forbidden", "security token",
	}
	throttlingKeywords = []string{
		"throttl", "rate exceeded", "limit exceeded",
	}
	networkKeywords = []string{
		"connection refused", "no such host", "i/o timeout",
		"dial tcp", "tls handshake",
	}
	configKeywords = []string{
		"validation", "invalid", "malformed", "could not find",
	}
)

// Remediation hint constants.
const (
	hintCheckCredentials = "verify the AWS profile selected by DEPLOY_ENV has SageMaker permissions"
	hintRetryLater       = "the SageMaker account limit or rate was hit; retry after a short wait"
	hintCheckNetwork     = "verify the AWS region is correct and network connectivity is available"
	hintCheckConfig      = "check that the endpoint config exists and its variants are valid"
)

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
