package errors

import (
	"context"
	"errors"
	"os"

	"codeberg.org/federate/server/federate/users"
	"codeberg.org/federate/server/internal/lock"
	"codeberg.org/federate/server/internal/providers"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// error categories for classification
const (
	CategoryDatabase = "database"
	CategoryProvider = "provider"
	CategoryNotFound = "not_found"
	CategoryConflict = "conflict"
	CategoryTimeout  = "timeout"
	CategoryUnknown  = "unknown"
)

// analyzes an error and returns its category and sanitized message
func classifyError(err error) ErrorInfo {
	if err == nil {
		return ErrorInfo{CategoryUnknown, ""}
	}

	isProduction := os.Getenv("ENVIRONMENT") == "production"

	info := func(category, public string) ErrorInfo {
		return ErrorInfo{
			category:  category,
			sanitized: ternary(isProduction, public, err.Error()),
		}
	}

	// identity provider failures carry the provider's own message
	if perr, ok := providers.AsProviderError(err); ok {
		return ErrorInfo{
			category:  CategoryProvider,
			sanitized: ternary(isProduction, perr.Provider+": "+perr.Message, err.Error()),
		}
	}

	switch {
	case errors.Is(err, users.ErrNotFound), errors.Is(err, pgx.ErrNoRows):
		return info(CategoryNotFound, "resource not found")
	case errors.Is(err, users.ErrDuplicateEmail):
		return info(CategoryConflict, "resource already exists")
	case errors.Is(err, lock.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return info(CategoryTimeout, "request timed out")
	case errors.Is(err, context.Canceled):
		return info(CategoryTimeout, "request canceled")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return info(CategoryDatabase, "database operation failed")
	}

	return info(CategoryUnknown, "an error occurred")
}

// ternary helper for cleaner conditional assignment
func ternary(condition bool, trueVal, falseVal string) string {
	if condition {
		return trueVal
	}

	return falseVal
}
