package pgutils

import "github.com/jackc/pgx/v5"

// Table returns the quoted, schema-qualified name of a table, e.g. "tokens"."token_transactions".
func Table(schema, name string) string {
	if schema == "" {
		return pgx.Identifier{name}.Sanitize()
	}

	return pgx.Identifier{schema, name}.Sanitize()
}
