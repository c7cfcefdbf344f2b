// Package errors provides the typed error hierarchy used across gbdtcore.
//
// Errors are split into the kinds the core distinguishes: Config, IOFormat,
// IO, Parse, Consistency, Network, and the non-fatal TooFewBins warning.
// Every type implements error; the types that carry a cause (IOError,
// NetworkError, ModelError) also implement Unwrap() (for
// errors.Is/errors.As chains). Each carries enough context (file, column,
// index, size) to produce the single human-readable diagnostic line
// fatal paths require.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrNotImplemented is a sentinel for paths intentionally left unsupported.
var ErrNotImplemented = errors.New("not implemented")

// ConfigError reports a bad configuration option: an unknown column
// reference, a non-numeric value where a number was required, or an
// invalid combination of options (e.g. distributed ranking without
// pre-partitioning).
type ConfigError struct {
	Option  string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: option %q: %s", e.Option, e.Message)
}

// NewConfigError builds a ConfigError.
func NewConfigError(option, message string) *ConfigError {
	return &ConfigError{Option: option, Message: message}
}

// IOFormatError reports a malformed binary dataset: a section-size prefix
// that does not match the bytes that follow, or an unrecognized header.
type IOFormatError struct {
	File    string
	Section string
	Want    int64
	Got     int64
}

func (e *IOFormatError) Error() string {
	return fmt.Sprintf("io format: %s: section %q: expected %d bytes, got %d", e.File, e.Section, e.Want, e.Got)
}

// NewIOFormatError builds an IOFormatError.
func NewIOFormatError(file, section string, want, got int64) *IOFormatError {
	return &IOFormatError{File: file, Section: section, Want: want, Got: got}
}

// IOError reports a failure to open, read, or write a file.
type IOError struct {
	File string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io: %s %s: %v", e.Op, e.File, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// NewIOError builds an IOError.
func NewIOError(op, file string, err error) *IOError {
	return &IOError{Op: op, File: file, Err: err}
}

// ParseError reports an unrecognized row or record format.
type ParseError struct {
	Source string
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse: %s:%d: %s", e.Source, e.Line, e.Reason)
}

// NewParseError builds a ParseError.
func NewParseError(source string, line int, reason string) *ParseError {
	return &ParseError{Source: source, Line: line, Reason: reason}
}

// ConsistencyError reports a violated structural invariant: a query id
// that exceeds its query boundary, an empty usable-feature set, or an
// empty dataset.
type ConsistencyError struct {
	What    string
	Message string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency: %s: %s", e.What, e.Message)
}

// NewConsistencyError builds a ConsistencyError.
func NewConsistencyError(what, message string) *ConsistencyError {
	return &ConsistencyError{What: what, Message: message}
}

// NetworkError reports a bind/connect failure (after retries) or a
// collective-operation timeout.
type NetworkError struct {
	Op      string
	Address string
	Err     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network: %s %s: %v", e.Op, e.Address, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// NewNetworkError builds a NetworkError.
func NewNetworkError(op, address string, err error) *NetworkError {
	return &NetworkError{Op: op, Address: address, Err: err}
}

// TooFewBinsWarning reports a trivial feature (fewer than two distinct
// sampled values). It is never fatal; callers log it and drop the feature.
type TooFewBinsWarning struct {
	FeatureIndex int
	FeatureName  string
}

func (e *TooFewBinsWarning) Error() string {
	return fmt.Sprintf("feature %q (index %d): too few distinct values, dropped", e.FeatureName, e.FeatureIndex)
}

// NewTooFewBinsWarning builds a TooFewBinsWarning.
func NewTooFewBinsWarning(featureIndex int, featureName string) *TooFewBinsWarning {
	return &TooFewBinsWarning{FeatureIndex: featureIndex, FeatureName: featureName}
}

// NotFittedError reports use of a model/estimator before it has been
// fitted or otherwise initialized.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("%s: %s called before fitting", e.ModelName, e.Method)
}

// NewNotFittedError builds a NotFittedError.
func NewNotFittedError(modelName, method string) *NotFittedError {
	return &NotFittedError{ModelName: modelName, Method: method}
}

// ValueError reports an invalid value passed to an operation.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// NewValueError builds a ValueError.
func NewValueError(op, message string) *ValueError {
	return &ValueError{Op: op, Message: message}
}

// DimensionError reports a shape mismatch between two matrices/slices.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: dimension mismatch on axis %d: expected %d, got %d", e.Op, e.Axis, e.Expected, e.Got)
}

// NewDimensionError builds a DimensionError.
func NewDimensionError(op string, expected, got, axis int) *DimensionError {
	return &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
}

// ModelError wraps a lower-level cause with operation context, preserving
// the chain for errors.Is/errors.As.
type ModelError struct {
	Op      string
	Message string
	cause   error
}

func (e *ModelError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ModelError) Unwrap() error { return e.cause }

// NewModelError builds a ModelError wrapping cause.
func NewModelError(op, message string, cause error) *ModelError {
	return &ModelError{Op: op, Message: message, cause: cause}
}

// Wrap attaches a cockroachdb/errors stack trace to err so a diagnostic
// line can be accompanied by `%+v` detail in debug logs. No package in
// this module calls it; LoadBinaryFile and Dial return their typed
// errors unwrapped.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, context)
}
