// Package sqlerr classifies PostgreSQL driver errors.
//
// It parses SQLSTATE codes from pgx into a small set of categories and
// attaches the matching sentinel from the errs package, so the content
// service can tell a duplicate key from a dropped connection without
// importing the driver.
package sqlerr

import (
	"fmt"
)

// Code is a coarse category for a PostgreSQL SQLSTATE.
type Code string

const (
	Other               Code = "other"
	NotNullViolation    Code = "not_null_violation"
	ForeignKeyViolation Code = "foreign_key_violation"
	UniqueViolation     Code = "unique_violation"
	CheckViolation      Code = "check_violation"
	ConnectionFailure   Code = "connection_failure"
	InsufficientRes     Code = "insufficient_resources"
	AdminShutdown       Code = "admin_shutdown"
	UndefinedTable      Code = "undefined_table"
)

// Severity mirrors the severity field PostgreSQL attaches to every error.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityFatal   Severity = "FATAL"
	SeverityPanic   Severity = "PANIC"
	SeverityWarning Severity = "WARNING"
	SeverityNotice  Severity = "NOTICE"
	SeverityDebug   Severity = "DEBUG"
	SeverityInfo    Severity = "INFO"
	SeverityLog     Severity = "LOG"
)

// MapCode maps a SQLSTATE onto a Code.
//
// Class 08 (connection exception), 53 (insufficient resources) and 57P
// (operator intervention) are all reported as the store being unavailable.
func MapCode(sqlstate string) Code {
	switch sqlstate {
	case "23502":
		return NotNullViolation
	case "23503":
		return ForeignKeyViolation
	case "23505":
		return UniqueViolation
	case "23514":
		return CheckViolation
	case "42P01":
		return UndefinedTable
	}

	if len(sqlstate) < 2 {
		return Other
	}
	switch sqlstate[:2] {
	case "08":
		return ConnectionFailure
	case "53":
		return InsufficientRes
	case "57":
		return AdminShutdown
	}
	return Other
}

// MapSeverity maps the severity string of a PgError onto Severity.
func MapSeverity(severity string) Severity {
	switch Severity(severity) {
	case SeverityFatal, SeverityPanic, SeverityWarning, SeverityNotice,
		SeverityDebug, SeverityInfo, SeverityLog:
		return Severity(severity)
	default:
		return SeverityError
	}
}

// Error is a classified PostgreSQL error.
//
// It unwraps to both the sentinel from the errs package (Kind) and the
// original driver error, so errors.Is(err, errs.ErrConflict) and
// errors.As(err, &pgErr) both work on the same value.
type Error struct {
	Code           Code
	Severity       Severity
	DatabaseCode   string
	Message        string
	SchemaName     string
	TableName      string
	ColumnName     string
	DataTypeName   string
	ConstraintName string

	// Kind is the errs sentinel this error is reported as, or nil.
	Kind error

	driverErr error
}

func (e *Error) Error() string {
	if e.TableName != "" {
		return fmt.Sprintf("%s (table %s, sqlstate %s): %s", e.Code, e.TableName, e.DatabaseCode, e.Message)
	}
	return fmt.Sprintf("%s (sqlstate %s): %s", e.Code, e.DatabaseCode, e.Message)
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.driverErr != nil {
		out = append(out, e.driverErr)
	}
	return out
}
