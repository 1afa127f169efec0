// Package errors provides centralized error definitions and error handling utilities
// for the janos bridge. It defines domain-specific errors, semantic error types,
// error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// Domain-specific errors represent errors from specific subsystems:
//   - DeviceError: errors opening, reading from, or writing to a serial device
//   - ProtocolError: firmware output that could not be interpreted
//   - SessionError: errors related to bridge sessions and device locks
//
// Semantic errors represent common error conditions:
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
//	err := errors.NewDeviceError("open failed", errors.ErrPermissionDenied).WithDevice("/dev/ttyUSB0")
//
//	if errors.Is(err, errors.ErrPermissionDenied) { ... }
//
//	var devErr *errors.DeviceError
//	if errors.As(err, &devErr) { ... }
//
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Device-related sentinel errors
var (
	// ErrDeviceNotFound indicates that the serial device node does not exist.
	ErrDeviceNotFound = New("device not found")
	// ErrPermissionDenied indicates missing read/write access to the device node.
	ErrPermissionDenied = New("permission denied")
	// ErrNotConnected indicates an operation on a closed or never-opened connection.
	ErrNotConnected = New("serial connection not established")
	// ErrWriteFailed indicates that a command could not be written to the device.
	ErrWriteFailed = New("write to device failed")
	// ErrReadFailed indicates that the device stream could not be read.
	ErrReadFailed = New("read from device failed")
)

// Bridge-related sentinel errors
var (
	// ErrNoNetworks indicates an operation that needs scan results before any scan ran.
	ErrNoNetworks = New("no networks scanned")
	// ErrInvalidSelection indicates a malformed or out-of-range network selection.
	ErrInvalidSelection = New("invalid network selection")
	// ErrSnifferRunning indicates the sniffer is already running.
	ErrSnifferRunning = New("sniffer already running")
	// ErrSnifferNotRunning indicates the sniffer is not running.
	ErrSnifferNotRunning = New("sniffer not running")
	// ErrInvalidCommand indicates command text that cannot be sent to the firmware.
	ErrInvalidCommand = New("invalid command")
)

// Session-related sentinel errors
var (
	// ErrSessionNotFound indicates that a session could not be found.
	ErrSessionNotFound = New("session not found")
	// ErrDeviceLocked indicates that another bridge process owns the device.
	ErrDeviceLocked = New("device is locked by another process")
	// ErrSessionCorrupted indicates that session data is corrupted.
	ErrSessionCorrupted = New("session data corrupted")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// BridgeError is the base interface for all janos errors.
type BridgeError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Unwrap() error {
	return e.cause
}

func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

func (e *baseError) Severity() Severity {
	return e.severity
}

func (e *baseError) IsRetryable() bool {
	return e.retryable
}

func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// formatPrefixed renders "<kind> [k=v, ...]: message: cause".
func formatPrefixed(kind string, parts []string, message string, cause error) string {
	prefix := kind
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", kind, strings.Join(parts, ", "))
	}
	if cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, message, cause)
	}
	return fmt.Sprintf("%s: %s", prefix, message)
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// DeviceError represents errors talking to a serial device.
//
// Example:
//
//	err := errors.NewDeviceError("failed to send command", errors.ErrWriteFailed)
//	err = err.WithDevice("/dev/ttyUSB0").WithCommand("scan_networks")
//	fmt.Println(err) // "device error [device=/dev/ttyUSB0, command=scan_networks]: failed to send command: write to device failed"
type DeviceError struct {
	baseError
	Device  string
	Command string
}

// NewDeviceError creates a new DeviceError.
func NewDeviceError(message string, cause error) *DeviceError {
	return &DeviceError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithDevice adds a device path to the error context.
func (e *DeviceError) WithDevice(device string) *DeviceError {
	e.Device = device
	return e
}

// WithCommand adds the command being executed to the error context.
func (e *DeviceError) WithCommand(command string) *DeviceError {
	e.Command = command
	return e
}

// WithSeverity sets the error severity.
func (e *DeviceError) WithSeverity(s Severity) *DeviceError {
	e.severity = s
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *DeviceError) WithRetryable(r bool) *DeviceError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *DeviceError) Error() string {
	var parts []string
	if e.Device != "" {
		parts = append(parts, fmt.Sprintf("device=%s", e.Device))
	}
	if e.Command != "" {
		parts = append(parts, fmt.Sprintf("command=%s", e.Command))
	}
	return formatPrefixed("device error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *DeviceError) Is(target error) bool {
	if _, ok := target.(*DeviceError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ProtocolError represents firmware output that could not be interpreted.
type ProtocolError struct {
	baseError
	Command string
	Line    string
}

// NewProtocolError creates a new ProtocolError.
func NewProtocolError(message string, cause error) *ProtocolError {
	return &ProtocolError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: false,
		},
	}
}

// WithCommand adds the command whose output was being parsed.
func (e *ProtocolError) WithCommand(command string) *ProtocolError {
	e.Command = command
	return e
}

// WithLine adds the offending output line.
func (e *ProtocolError) WithLine(line string) *ProtocolError {
	e.Line = line
	return e
}

// Error returns the formatted error message.
func (e *ProtocolError) Error() string {
	var parts []string
	if e.Command != "" {
		parts = append(parts, fmt.Sprintf("command=%s", e.Command))
	}
	if e.Line != "" {
		parts = append(parts, fmt.Sprintf("line=%q", e.Line))
	}
	return formatPrefixed("protocol error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *ProtocolError) Is(target error) bool {
	if _, ok := target.(*ProtocolError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// SessionError represents errors related to session management and device locks.
type SessionError struct {
	baseError
	SessionID string
	Device    string
}

// NewSessionError creates a new SessionError.
func NewSessionError(message string, cause error) *SessionError {
	return &SessionError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithSessionID adds a session ID to the error context.
func (e *SessionError) WithSessionID(id string) *SessionError {
	e.SessionID = id
	return e
}

// WithDevice adds a device path to the error context.
func (e *SessionError) WithDevice(device string) *SessionError {
	e.Device = device
	return e
}

// Error returns the formatted error message.
func (e *SessionError) Error() string {
	var parts []string
	if e.SessionID != "" {
		parts = append(parts, fmt.Sprintf("session=%s", e.SessionID))
	}
	if e.Device != "" {
		parts = append(parts, fmt.Sprintf("device=%s", e.Device))
	}
	return formatPrefixed("session error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *SessionError) Is(target error) bool {
	if _, ok := target.(*SessionError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("index out of range").WithField("selection").WithValue("42")
type ValidationError struct {
	Field   string
	Value   any
	Message string
	cause   error
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation error")
	if e.Field != "" {
		sb.WriteString(fmt.Sprintf(" [%s]", e.Field))
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Value != nil {
		sb.WriteString(fmt.Sprintf(" (got: %v)", e.Value))
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *ValidationError) Unwrap() error { return e.cause }

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return target == ErrInvalidInput
}

// TimeoutError represents an operation that timed out.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
	cause     error
	retryable bool
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		Operation: operation,
		Duration:  duration,
		retryable: true,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// WithRetryable sets whether the error is retryable (default true for timeouts).
func (e *TimeoutError) WithRetryable(r bool) *TimeoutError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Operation, e.Duration)
}

// Unwrap returns the underlying cause.
func (e *TimeoutError) Unwrap() error { return e.cause }

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	return target == ErrTimeout
}

// -----------------------------------------------------------------------------
// Classification
// -----------------------------------------------------------------------------

// IsRetryable returns true if the operation that produced err may succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var timeout *TimeoutError
	if As(err, &timeout) {
		return timeout.retryable
	}

	var bridgeErr BridgeError
	if As(err, &bridgeErr) {
		return bridgeErr.IsRetryable()
	}

	return Is(err, ErrTimeout)
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var bridgeErr BridgeError
	if As(err, &bridgeErr) {
		return bridgeErr.IsUserFacing()
	}

	return IsSemanticError(err)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement BridgeError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var bridgeErr BridgeError
	if As(err, &bridgeErr) {
		return bridgeErr.Severity()
	}

	return SeverityError
}

// IsSemanticError returns true if the error is a ValidationError or a
// TimeoutError.
func IsSemanticError(err error) bool {
	if err == nil {
		return false
	}
	var validation *ValidationError
	var timeout *TimeoutError
	return As(err, &validation) || As(err, &timeout)
}
