// Package errs defines the error taxonomy shared by the parser, the
// file tracker and the sync engine. Every typed error matches one of the
// sentinels below through errors.Is.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure cases.
var (
	// ErrUnsupportedSchemaFormat indicates a malformed schema declaration.
	ErrUnsupportedSchemaFormat = errors.New("dieselgen: unsupported schema format")
	// ErrUnsupportedType indicates a schema type that is explicitly disallowed.
	ErrUnsupportedType = errors.New("dieselgen: unsupported type")
	// ErrNoFileSignature indicates an attempt to overwrite a file that was not generated.
	ErrNoFileSignature = errors.New("dieselgen: file has no generated signature")
	// ErrNotADirectory indicates that an output path exists but is not a directory.
	ErrNotADirectory = errors.New("dieselgen: not a directory")
	// ErrInvalidConfig indicates an invalid configuration value.
	ErrInvalidConfig = errors.New("dieselgen: invalid configuration")
	// ErrOther covers invariant violations without a dedicated kind.
	ErrOther = errors.New("dieselgen: error")
)

// SchemaError represents a structural problem in the schema text.
type SchemaError struct {
	Pos     string // "line:col", empty when unknown
	Table   string // table being parsed, if known
	Message string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("dieselgen: unsupported schema format")
	if e.Pos != "" {
		b.WriteString(" at ")
		b.WriteString(e.Pos)
	}
	if e.Table != "" {
		b.WriteString(" in table ")
		b.WriteString(e.Table)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is reports whether the target matches ErrUnsupportedSchemaFormat.
func (e *SchemaError) Is(target error) bool {
	return target == ErrUnsupportedSchemaFormat
}

// NewSchemaError creates a new SchemaError.
func NewSchemaError(pos, table, message string) *SchemaError {
	return &SchemaError{Pos: pos, Table: table, Message: message}
}

// TypeError represents a schema type the generator refuses to map.
type TypeError struct {
	Type    string
	Message string
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	return fmt.Sprintf("dieselgen: unsupported type %q: %s", e.Type, e.Message)
}

// Is reports whether the target matches ErrUnsupportedType.
func (e *TypeError) Is(target error) bool {
	return target == ErrUnsupportedType
}

// NewTypeError creates a new TypeError.
func NewTypeError(typ, message string) *TypeError {
	return &TypeError{Type: typ, Message: message}
}

// PathError annotates a filesystem failure with the operation and path.
// Err is either an I/O error or one of the sentinels above.
type PathError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *PathError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *PathError) Unwrap() error {
	return e.Err
}

// NewPathError creates a new PathError. It returns nil when err is nil so
// it can wrap a call result directly.
func NewPathError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &PathError{Op: op, Path: path, Err: err}
}

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("dieselgen: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("dieselgen: config error for %q: %s", e.Option, e.Message)
}

// Is reports whether the target matches ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// NewConfigError creates a new ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{Option: option, Value: value, Message: message}
}

// Otherf returns an error matching ErrOther with a formatted message.
func Otherf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrOther, fmt.Sprintf(format, args...))
}
