package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"

	"github.com/raphaelgruber/dealsight/internal/models"
)

// Sentinel errors for database operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrDealAlreadyExists indicates an insert hit the unique deal_id index.
	// Re-run the ingestion with replace enabled to overwrite.
	ErrDealAlreadyExists = errors.New("deal already exists")

	// ErrTransactionConflict indicates concurrent writers touched the same records.
	ErrTransactionConflict = errors.New("transaction conflict")
)

// wrapQueryError maps SurrealDB query errors to sentinels. Errors that are
// not a *surrealdb.QueryError, or match no known pattern, are returned as-is.
// A failed transaction reports one error per statement, so the whole joined
// message is inspected rather than the first QueryError.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}

	var queryErr *surrealdb.QueryError
	if !errors.As(err, &queryErr) {
		return err
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "already contains"), strings.Contains(msg, "already exists"):
		return fmt.Errorf("%w: %s", ErrDealAlreadyExists, msg)
	case strings.Contains(msg, "Transaction conflict"):
		return fmt.Errorf("%w: %s", ErrTransactionConflict, msg)
	case strings.Contains(msg, "does not exist"):
		return fmt.Errorf("%w: %s", models.ErrCollectionNotFound, msg)
	}
	return err
}
