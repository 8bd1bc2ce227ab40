// Package dberr defines the error categories every fallible operation in the
// engine reports. Callers classify with errors.Is against the category
// sentinels; the text after the category is free-form.
package dberr

import (
	"errors"
	"fmt"
)

var (
	// ErrQueryParsing marks a malformed statement or clause.
	ErrQueryParsing = errors.New("QueryParsingError")
	// ErrData marks a schema/type/validation violation or corrupted bytes.
	ErrData = errors.New("DataError")
	// ErrFile marks a missing or unreadable environment/segment file.
	ErrFile = errors.New("FileError")
	// ErrState marks an operation invalid for the current session state.
	ErrState = errors.New("StateError")
	// ErrCritical marks an unexpected internal fault caught at a trust boundary.
	ErrCritical = errors.New("CriticalError")
)

func Parsing(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrQueryParsing, fmt.Sprintf(format, args...))
}

func Data(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrData, fmt.Sprintf(format, args...))
}

func File(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFile, fmt.Sprintf(format, args...))
}

func State(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrState, fmt.Sprintf(format, args...))
}

func Critical(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCritical, fmt.Sprintf(format, args...))
}

// WrapFile attaches the File category to an underlying I/O error.
func WrapFile(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrFile, op, err)
}

// Category returns the category name for a classified error, or
// "CriticalError" for anything unclassified.
func Category(err error) string {
	switch {
	case errors.Is(err, ErrQueryParsing):
		return "QueryParsingError"
	case errors.Is(err, ErrData):
		return "DataError"
	case errors.Is(err, ErrFile):
		return "FileError"
	case errors.Is(err, ErrState):
		return "StateError"
	default:
		return "CriticalError"
	}
}
