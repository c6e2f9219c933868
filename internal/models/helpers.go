// Package models defines data structures for the dealsight deal knowledge base.
package models

import (
	"fmt"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// RecordIDString renders a SurrealDB RecordID as "table:id".
// Returns an error for ID types that cannot be rendered.
func RecordIDString(id surrealmodels.RecordID) (string, error) {
	switch v := id.ID.(type) {
	case string:
		return id.Table + ":" + v, nil
	case int, int64, uint64, float64:
		return fmt.Sprintf("%s:%v", id.Table, v), nil
	default:
		return "", fmt.Errorf("unexpected ID type: %T", id.ID)
	}
}

// TruncateRunes shortens s to at most max runes.
// Returns the input unchanged and false when it already fits.
func TruncateRunes(s string, max int) (string, bool) {
	if max < 0 {
		return s, false
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i], true
		}
		n++
	}
	return s, false
}
