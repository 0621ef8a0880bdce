package accounts

import (
	"context"
	"database/sql"
	"fmt"
)

// TablesExist probes the catalog so a namespace that was never migrated is skipped
// instead of failing the first real query.
func (r *accountsRepo) TablesExist(ctx context.Context) (bool, error) {
	var name sql.NullString

	err := r.db.QueryRowContext(ctx, `SELECT to_regclass($1)::text`, r.table).Scan(&name)
	if err != nil {
		return false, fmt.Errorf("probe %s: %w", r.table, err)
	}

	return name.Valid, nil
}
