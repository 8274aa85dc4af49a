package tenant

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

// PublicName is the distinguished shared tenant. It owns the shared tables
// (schools, users) and never gets an auto-provisioned admin.
const PublicName = "Public"

// School is a tenant: an isolated partition of all school-scoped data.
// Its name uniquely identifies the partition.
type School struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	SchemaName     string    `json:"schema_name"`
	AdminEmail     string    `json:"admin_email"`
	AdminFirstName string    `json:"admin_first_name"`
	AdminLastName  string    `json:"admin_last_name"`
	CreatedAt      time.Time `json:"created_at"` // UTC
}

func (s School) IsPublic() bool { return s.Name == PublicName }

var schemaUnsafe = regexp.MustCompile(`[^a-z0-9_]+`)

// SchemaNameFor derives a storage partition name from a school name.
func SchemaNameFor(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = schemaUnsafe.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// NewSchool contains information needed to register a new School.
type NewSchool struct {
	Name           string `json:"name" validate:"required"`
	AdminEmail     string `json:"admin_email" validate:"omitempty,email"`
	AdminFirstName string `json:"admin_first_name"`
	AdminLastName  string `json:"admin_last_name"`
}

func (ns *NewSchool) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.AdminEmail = core.CleanString(ns.AdminEmail, true /* lower */)
	ns.AdminFirstName = core.CleanString(ns.AdminFirstName)
	ns.AdminLastName = core.CleanString(ns.AdminLastName)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	if ns.Name != PublicName && ns.AdminEmail == "" {
		return core.NewValidationError(nil, core.FieldError{
			Field: "admin_email", Error: "admin email is required for non-public schools",
		})
	}
	return nil
}

// Context pinning.
//
// Every request resolves its tenant once; all subsequent repository calls in
// that request read the partition from the context. Cross-tenant access inside
// a single call is a correctness bug.

type ctxKey int

const schoolKey ctxKey = 0

// NewContext pins ctx (and every repository call made with it) to sch's partition.
func NewContext(ctx context.Context, sch School) context.Context {
	return context.WithValue(ctx, schoolKey, sch)
}

// FromContext returns the School pinned to ctx, if any.
func FromContext(ctx context.Context) (School, bool) {
	sch, ok := ctx.Value(schoolKey).(School)
	return sch, ok
}

// SchemaFromContext returns the pinned partition name, defaulting to the
// shared "public" partition.
func SchemaFromContext(ctx context.Context) string {
	if sch, ok := FromContext(ctx); ok && sch.SchemaName != "" {
		return sch.SchemaName
	}
	return "public"
}
