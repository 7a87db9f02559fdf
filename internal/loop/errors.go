package loop

import (
	"errors"
	"fmt"
)

// LoopError represents an error detected while configuring or driving the loop.
//
// Loop errors include:
//   - Double subscription: a contract already has a live subscription
//   - Re-entrant run: Run called while the loop is already running
//   - Queue overflow: Send on a full queue
//   - Unknown contract: a contract that does not belong to this loop
//   - Invalid configuration: bad timer mode, non-positive interval or capacity
//
// LoopError includes structured fields for diagnostics.
type LoopError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Contract names the affected event source, when there is one.
	Contract string

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes loop errors.
type ErrorCode string

const (
	// ErrCodeAlreadySubscribed indicates a second subscribe on a live contract.
	ErrCodeAlreadySubscribed ErrorCode = "ALREADY_SUBSCRIBED"

	// ErrCodeAlreadyRunning indicates Run was called on a running loop.
	ErrCodeAlreadyRunning ErrorCode = "ALREADY_RUNNING"

	// ErrCodeQueueFull indicates Send on a queue at capacity.
	ErrCodeQueueFull ErrorCode = "QUEUE_FULL"

	// ErrCodeUnknownContract indicates a contract foreign to this loop.
	ErrCodeUnknownContract ErrorCode = "UNKNOWN_CONTRACT"

	// ErrCodeInvalidConfig indicates a fatal setup-time configuration error.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

// Error implements the error interface.
func (e *LoopError) Error() string {
	if e.Contract != "" {
		return fmt.Sprintf("%s: %s (contract=%s)", e.Code, e.Message, e.Contract)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsAlreadySubscribed reports whether err is a double-subscription error.
// Uses errors.As to handle wrapped errors.
func IsAlreadySubscribed(err error) bool {
	var le *LoopError
	if errors.As(err, &le) {
		return le.Code == ErrCodeAlreadySubscribed
	}
	return false
}

// IsQueueFull reports whether err is a queue overflow error.
// Uses errors.As to handle wrapped errors.
func IsQueueFull(err error) bool {
	var le *LoopError
	if errors.As(err, &le) {
		return le.Code == ErrCodeQueueFull
	}
	return false
}

// IsInvalidConfig reports whether err is a setup-time configuration error.
// Uses errors.As to handle wrapped errors.
func IsInvalidConfig(err error) bool {
	var le *LoopError
	if errors.As(err, &le) {
		return le.Code == ErrCodeInvalidConfig
	}
	return false
}

// NewAlreadySubscribedError creates a LoopError for a double subscription.
func NewAlreadySubscribedError(contract string) *LoopError {
	return &LoopError{
		Code:     ErrCodeAlreadySubscribed,
		Message:  "contract already has a live subscription",
		Contract: contract,
	}
}

// NewAlreadyRunningError creates a LoopError for a re-entrant Run call.
func NewAlreadyRunningError() *LoopError {
	return &LoopError{
		Code:    ErrCodeAlreadyRunning,
		Message: "loop is already running",
	}
}

// NewQueueFullError creates a LoopError for a Send on a full queue.
func NewQueueFullError(contract string, capacity int) *LoopError {
	return &LoopError{
		Code:     ErrCodeQueueFull,
		Message:  fmt.Sprintf("queue is at capacity (%d)", capacity),
		Contract: contract,
		Details: map[string]string{
			"capacity": fmt.Sprintf("%d", capacity),
		},
	}
}

// NewUnknownContractError creates a LoopError for a foreign contract.
func NewUnknownContractError(contract string) *LoopError {
	return &LoopError{
		Code:     ErrCodeUnknownContract,
		Message:  "contract is not registered with this loop",
		Contract: contract,
	}
}

// NewConfigError creates a LoopError for an invalid setup-time configuration.
func NewConfigError(contract, message string) *LoopError {
	return &LoopError{
		Code:     ErrCodeInvalidConfig,
		Message:  message,
		Contract: contract,
	}
}
