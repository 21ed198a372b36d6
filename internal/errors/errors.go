// Package errors provides standardized error handling for convertzh.
// It defines the error kinds a conversion run can produce, typed errors that
// carry the offending path or parameter, and helpers for wrapping and
// classifying them.
package errors

import (
	"errors"
	"fmt"
)

// Standard errors package errors that we re-export for convenience
var (
	// Unwrap unwraps an error to access the underlying error
	Unwrap = errors.Unwrap
	// Is reports whether any error in err's chain matches target
	Is = errors.Is
	// As finds the first error in err's chain that matches target
	As = errors.As
)

// ErrorKind represents the kind of error
type ErrorKind int

// Error kinds
const (
	Unknown ErrorKind = iota
	// File error kinds
	FileNotFound
	FileAccessDenied
	InvalidPath
	FileOperationFailed
	RenameCollision
	// Config error kinds
	InvalidConfig
	ConfigNotFound
	// Run error kinds
	BackupFailed
	ConversionFailed
	DecodeFailed
	NoEligibleFiles
)

var kindNames = map[ErrorKind]string{
	Unknown:             "unknown",
	FileNotFound:        "file not found",
	FileAccessDenied:    "access denied",
	InvalidPath:         "invalid path",
	FileOperationFailed: "file operation failed",
	RenameCollision:     "rename collision",
	InvalidConfig:       "invalid config",
	ConfigNotFound:      "config not found",
	BackupFailed:        "backup failed",
	ConversionFailed:    "conversion failed",
	DecodeFailed:        "decode failed",
	NoEligibleFiles:     "no eligible files",
}

// String returns a short human readable name for the kind.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Common error constants for frequently occurring errors
var (
	ErrInvalidPath     = NewFileError("invalid file path", "", InvalidPath, nil)
	ErrInvalidConfig   = NewConfigError("invalid configuration", "", InvalidConfig, nil)
	ErrNoEligibleFiles = &ApplicationError{msg: "no eligible files found", kind: NoEligibleFiles}
)

// ApplicationError is the base error type for all application errors
type ApplicationError struct {
	msg  string
	err  error
	kind ErrorKind
}

// Error returns the error message
func (e *ApplicationError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

// Unwrap returns the wrapped error
func (e *ApplicationError) Unwrap() error {
	return e.err
}

// Kind returns the kind of error
func (e *ApplicationError) Kind() ErrorKind {
	return e.kind
}

// FileError represents errors related to a single filesystem entry
type FileError struct {
	ApplicationError
	path string
}

// NewFileError creates a new file error
func NewFileError(msg string, path string, kind ErrorKind, err error) *FileError {
	return &FileError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		path: path,
	}
}

// Error returns the file error message
func (e *FileError) Error() string {
	if e.path != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.path, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.path)
	}
	return e.ApplicationError.Error()
}

// Path returns the file path associated with the error
func (e *FileError) Path() string {
	return e.path
}

// ConfigError represents errors related to configuration
type ConfigError struct {
	ApplicationError
	param string
}

// NewConfigError creates a new configuration error
func NewConfigError(msg string, param string, kind ErrorKind, err error) *ConfigError {
	return &ConfigError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		param: param,
	}
}

// Error returns the config error message
func (e *ConfigError) Error() string {
	if e.param != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.param, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.param)
	}
	return e.ApplicationError.Error()
}

// Param returns the configuration parameter associated with the error
func (e *ConfigError) Param() string {
	return e.param
}

// BackupError is returned when a snapshot of the target tree could not be
// completed. It is always run-fatal.
type BackupError struct {
	ApplicationError
	source string
	dest   string
}

// NewBackupError creates a new backup error
func NewBackupError(source, dest string, err error) *BackupError {
	return &BackupError{
		ApplicationError: ApplicationError{
			msg:  "backup failed",
			err:  err,
			kind: BackupFailed,
		},
		source: source,
		dest:   dest,
	}
}

// Error returns the backup error message
func (e *BackupError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s -> %s: %v", e.msg, e.source, e.dest, e.err)
	}
	return fmt.Sprintf("%s: %s -> %s", e.msg, e.source, e.dest)
}

// Source returns the directory that was being backed up
func (e *BackupError) Source() string {
	return e.source
}

// Dest returns the backup destination
func (e *BackupError) Dest() string {
	return e.dest
}

// New creates a new error with a message
func New(msg string) error {
	return &ApplicationError{
		msg:  msg,
		kind: Unknown,
	}
}

// NewKind creates a new error of the given kind
func NewKind(kind ErrorKind, msg string, err error) error {
	return &ApplicationError{
		msg:  msg,
		err:  err,
		kind: kind,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  msg,
		err:  err,
		kind: Unknown,
	}
}

// Wrapf wraps an existing error with additional formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		err:  err,
		kind: Unknown,
	}
}

// KindOf returns the kind of the first classified error in err's chain.
// Errors that carry no kind report Unknown.
func KindOf(err error) ErrorKind {
	for err != nil {
		if k, ok := err.(interface{ Kind() ErrorKind }); ok && k.Kind() != Unknown {
			return k.Kind()
		}
		err = errors.Unwrap(err)
	}
	return Unknown
}

// IsKind reports whether any error in err's chain has the given kind
func IsKind(err error, kind ErrorKind) bool {
	for err != nil {
		if k, ok := err.(interface{ Kind() ErrorKind }); ok && k.Kind() == kind {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsFileNotFound checks if the error is a file not found error
func IsFileNotFound(err error) bool {
	return IsKind(err, FileNotFound)
}

// IsInvalidConfig checks if the error is an invalid configuration error
func IsInvalidConfig(err error) bool {
	return IsKind(err, InvalidConfig)
}

// IsBackupFailed checks if the error came from the backup step
func IsBackupFailed(err error) bool {
	var backupErr *BackupError
	return errors.As(err, &backupErr)
}

// IsNoEligibleFiles checks if the run found nothing to process
func IsNoEligibleFiles(err error) bool {
	return IsKind(err, NoEligibleFiles)
}

// IsRenameCollision checks if a rename was blocked by an existing entry
func IsRenameCollision(err error) bool {
	return IsKind(err, RenameCollision)
}
