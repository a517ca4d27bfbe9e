package archivable

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrInvalidDeclaration indicates a malformed type declaration.
	ErrInvalidDeclaration = errors.New("invalid declaration")

	// ErrUnusedHook indicates a hook is registered for an attribute that is not excluded.
	ErrUnusedHook = errors.New("hook for non-excluded attribute")

	// ErrNotFound indicates a load target is neither a payload file nor a directory holding one.
	ErrNotFound = errors.New("archive not found")

	// ErrNilObject indicates a nil object was passed to a save operation.
	ErrNilObject = errors.New("nil object")

	// ErrNoHook indicates no dump or restore hook is registered for an excluded attribute.
	ErrNoHook = errors.New("no hook registered")

	// ErrDumpFailed is returned (wrapped) by dump hooks that could not persist
	// their attribute. The failure is recorded and the save continues.
	ErrDumpFailed = errors.New("dump failed")

	// ErrRestoreFailed is returned (wrapped) by restore hooks that could not
	// rebuild their attribute. The failure is recorded and the load continues.
	ErrRestoreFailed = errors.New("restore failed")

	// ErrMissingAttribute indicates an attribute is not present on an object.
	ErrMissingAttribute = errors.New("missing attribute")

	// ErrUnmarshal indicates the codec failed to unmarshal input data.
	ErrUnmarshal = errors.New("unmarshal failed")

	// ErrMarshal indicates the codec failed to marshal output data.
	ErrMarshal = errors.New("marshal failed")
)

// ConfigError represents a declaration or archiver configuration error.
// It wraps a sentinel error with additional context about the type and attribute.
type ConfigError struct {
	Err       error  // Underlying sentinel error (ErrInvalidDeclaration, ErrUnusedHook)
	Type      string // Type name that triggered the error
	Attribute string // Attribute or file name involved, if any
	Reason    string
}

func (e *ConfigError) Error() string {
	msg := e.Err.Error()
	if e.Type != "" {
		msg = fmt.Sprintf("%s for type %s", msg, e.Type)
	}
	if e.Attribute != "" {
		msg = fmt.Sprintf("%s (attribute %s)", msg, e.Attribute)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// HookError represents a non-fatal failure of a dump or restore hook.
// These errors are collected into Failures instead of aborting the operation.
type HookError struct {
	Err       error  // Underlying sentinel error (ErrNoHook, ErrDumpFailed, ErrRestoreFailed)
	Attribute string // Excluded attribute the hook is responsible for
	Operation string // dump or restore
	Cause     error  // Error reported by the hook, nil for ErrNoHook
}

func (e *HookError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s attribute %s: %v", e.Operation, e.Attribute, e.Cause)
	}
	return fmt.Sprintf("%s attribute %s: %s", e.Operation, e.Attribute, e.Err.Error())
}

// Unwrap exposes both the sentinel and the hook's own error.
func (e *HookError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// CodecError represents a marshal/unmarshal error.
type CodecError struct {
	Err   error  // Underlying sentinel error (ErrMarshal, ErrUnmarshal)
	File  string // Artifact being written or read
	Cause error  // Original error from the codec
}

func (e *CodecError) Error() string {
	msg := e.Err.Error()
	if e.File != "" {
		msg = fmt.Sprintf("%s %s", msg, e.File)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

// AttributeError reports access to an attribute that is not present.
type AttributeError struct {
	Type      string
	Attribute string
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("%s has no attribute %q", e.Type, e.Attribute)
}

func (e *AttributeError) Unwrap() error {
	return ErrMissingAttribute
}

// newConfigError creates a ConfigError for declaration problems.
func newConfigError(sentinel error, typeName, attribute, reason string) error {
	return &ConfigError{
		Err:       sentinel,
		Type:      typeName,
		Attribute: attribute,
		Reason:    reason,
	}
}

// newHookError creates a HookError for a recorded hook failure.
func newHookError(sentinel error, operation, attribute string, cause error) error {
	return &HookError{
		Err:       sentinel,
		Attribute: attribute,
		Operation: operation,
		Cause:     cause,
	}
}

// newCodecError creates a CodecError for marshal/unmarshal failures.
func newCodecError(sentinel error, file string, cause error) error {
	return &CodecError{
		Err:   sentinel,
		File:  file,
		Cause: cause,
	}
}
