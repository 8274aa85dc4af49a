package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/tenant"
	"github.com/trezcool/shule/storage/database"
)

type schoolRepository struct {
	db *sqlx.DB
}

func NewSchoolRepository(db *sqlx.DB) tenant.Repository {
	return &schoolRepository{db: db}
}

const schoolCols = "id, name, schema_name, admin_email, admin_first_name, admin_last_name, created_at"

type schoolRow struct {
	ID             string `db:"id"`
	Name           string `db:"name"`
	SchemaName     string `db:"schema_name"`
	AdminEmail     string `db:"admin_email"`
	AdminFirstName string `db:"admin_first_name"`
	AdminLastName  string `db:"admin_last_name"`
	CreatedAt      sql.NullTime `db:"created_at"`
}

func (r schoolRow) school() tenant.School {
	return tenant.School{
		ID:             r.ID,
		Name:           r.Name,
		SchemaName:     r.SchemaName,
		AdminEmail:     r.AdminEmail,
		AdminFirstName: r.AdminFirstName,
		AdminLastName:  r.AdminLastName,
		CreatedAt:      r.CreatedAt.Time,
	}
}

func (repo *schoolRepository) CreateSchool(ctx context.Context, sch tenant.School) (tenant.School, error) {
	sch.ID = uuid.NewString()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO public.school (`+schoolCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sch.ID, sch.Name, sch.SchemaName, sch.AdminEmail, sch.AdminFirstName, sch.AdminLastName, sch.CreatedAt,
	)
	if err != nil {
		return tenant.School{}, errors.Wrap(err, "inserting school")
	}

	// provision the partition; a school row without its schema is useless
	if !sch.IsPublic() {
		if err := database.MigrateTenant(repo.db.DB, sch.SchemaName); err != nil {
			_ = repo.DeleteSchool(ctx, sch.ID)
			return tenant.School{}, errors.Wrap(err, "provisioning tenant schema")
		}
	}
	return sch, nil
}

func (repo *schoolRepository) GetSchoolByID(ctx context.Context, id string) (tenant.School, error) {
	var row schoolRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+schoolCols+` FROM public.school WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return tenant.School{}, tenant.ErrNotFound
	}
	if err != nil {
		return tenant.School{}, errors.Wrap(err, "getting school")
	}
	return row.school(), nil
}

func (repo *schoolRepository) GetSchoolByName(ctx context.Context, name string) (tenant.School, error) {
	var row schoolRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+schoolCols+` FROM public.school WHERE lower(name) = lower($1)`, name)
	if err == sql.ErrNoRows {
		return tenant.School{}, tenant.ErrNotFound
	}
	if err != nil {
		return tenant.School{}, errors.Wrap(err, "getting school")
	}
	return row.school(), nil
}

func (repo *schoolRepository) QueryAllSchools(ctx context.Context) ([]tenant.School, error) {
	var rows []schoolRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+schoolCols+` FROM public.school ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "querying schools")
	}
	schools := make([]tenant.School, 0, len(rows))
	for _, row := range rows {
		schools = append(schools, row.school())
	}
	return schools, nil
}

func (repo *schoolRepository) DeleteSchool(ctx context.Context, id string) error {
	sch, err := repo.GetSchoolByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM public.school WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting school")
	}
	if !sch.IsPublic() && sch.SchemaName != "" {
		if _, err := repo.db.ExecContext(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %q CASCADE", sch.SchemaName)); err != nil {
			return errors.Wrap(err, "dropping tenant schema")
		}
	}
	return nil
}
