// Package sqlxrepos implements the domain repositories on Postgres via sqlx.
// Shared tables (school, "user") live in the public schema; everything else
// is addressed through the tenant schema pinned to the request context.
package sqlxrepos

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/tenant"
)

// table qualifies a tenant-scoped table name with the partition from ctx.
func table(ctx context.Context, name string) string {
	return fmt.Sprintf("%q.%s", tenant.SchemaFromContext(ctx), name)
}

// strSlice maps []string columns onto JSONB.
type strSlice []string

func (s strSlice) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

func (s *strSlice) Scan(src interface{}) error {
	if src == nil {
		*s = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return errors.Errorf("unsupported scan type %T", src)
	}
	return json.Unmarshal(b, s)
}
