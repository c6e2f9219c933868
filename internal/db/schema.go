package db

import (
	"fmt"
	"regexp"

	"github.com/raphaelgruber/dealsight/internal/models"
)

var collectionName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateCollection checks that name can be used as a table identifier.
func ValidateCollection(name string) error {
	if !collectionName.MatchString(name) {
		return fmt.Errorf("%w: invalid collection name %q", models.ErrConfiguration, name)
	}
	return nil
}

// collectionSchema returns the DDL for one deal collection. Every statement is
// IF NOT EXISTS, so running it against an existing collection changes nothing.
// Caller must validate name.
//
// %[1]s is the table, %[2]d the embedding dimension, %[3]d the string limit.
func collectionSchema(name string, dim int) string {
	return fmt.Sprintf(`
    DEFINE TABLE IF NOT EXISTS %[1]s SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS deal_id ON %[1]s TYPE string;
    DEFINE FIELD IF NOT EXISTS summary ON %[1]s TYPE string ASSERT string::len($value) <= %[3]d;
    DEFINE FIELD IF NOT EXISTS risks ON %[1]s TYPE string ASSERT string::len($value) <= %[3]d;
    DEFINE FIELD IF NOT EXISTS outcome ON %[1]s TYPE string ASSERT string::len($value) <= %[3]d;
    DEFINE FIELD IF NOT EXISTS metadata ON %[1]s TYPE string ASSERT string::len($value) <= %[3]d;
    DEFINE FIELD IF NOT EXISTS acquirer ON %[1]s TYPE string DEFAULT "";
    DEFINE FIELD IF NOT EXISTS target ON %[1]s TYPE string DEFAULT "";
    DEFINE FIELD IF NOT EXISTS sector ON %[1]s TYPE string DEFAULT "";
    DEFINE FIELD IF NOT EXISTS region ON %[1]s TYPE string DEFAULT "";
    DEFINE FIELD IF NOT EXISTS year ON %[1]s TYPE option<int>;
    DEFINE FIELD IF NOT EXISTS sections ON %[1]s TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS embedding ON %[1]s TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS created ON %[1]s TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS %[1]s_deal_id ON %[1]s FIELDS deal_id UNIQUE;
    DEFINE INDEX IF NOT EXISTS %[1]s_sector ON %[1]s FIELDS sector;
    DEFINE INDEX IF NOT EXISTS %[1]s_region ON %[1]s FIELDS region;
    DEFINE INDEX IF NOT EXISTS %[1]s_embedding ON %[1]s FIELDS embedding HNSW DIMENSION %[2]d DIST COSINE TYPE F32;
`, name, dim, models.MaxFieldLength)
}
