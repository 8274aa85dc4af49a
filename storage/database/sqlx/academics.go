package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/academics"
)

type academicsRepository struct {
	db *sqlx.DB
}

func NewAcademicsRepository(db *sqlx.DB) academics.Repository {
	return &academicsRepository{db: db}
}

const classLevelCols = "id, name, code, age_range, is_toddler_class, subject_ids, created_at"

type classLevelRow struct {
	ID             string       `db:"id"`
	Name           string       `db:"name"`
	Code           string       `db:"code"`
	AgeRange       string       `db:"age_range"`
	IsToddlerClass bool         `db:"is_toddler_class"`
	SubjectIDs     strSlice     `db:"subject_ids"`
	CreatedAt      sql.NullTime `db:"created_at"`
}

func (r classLevelRow) classLevel() academics.ClassLevel {
	return academics.ClassLevel{
		ID:             r.ID,
		Name:           r.Name,
		Code:           r.Code,
		AgeRange:       r.AgeRange,
		IsToddlerClass: r.IsToddlerClass,
		SubjectIDs:     r.SubjectIDs,
		CreatedAt:      r.CreatedAt.Time,
	}
}

func (repo *academicsRepository) CreateClassLevel(ctx context.Context, cl academics.ClassLevel) (academics.ClassLevel, error) {
	cl.ID = uuid.NewString()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO `+table(ctx, "class_level")+` (`+classLevelCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		cl.ID, cl.Name, cl.Code, cl.AgeRange, cl.IsToddlerClass, strSlice(cl.SubjectIDs), cl.CreatedAt,
	)
	if err != nil {
		return academics.ClassLevel{}, errors.Wrap(err, "inserting class level")
	}
	return cl, nil
}

func (repo *academicsRepository) GetClassLevelByID(ctx context.Context, id string) (academics.ClassLevel, error) {
	var row classLevelRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT `+classLevelCols+` FROM `+table(ctx, "class_level")+` WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return academics.ClassLevel{}, academics.ErrNotFound
	}
	if err != nil {
		return academics.ClassLevel{}, errors.Wrap(err, "getting class level")
	}
	return row.classLevel(), nil
}

func (repo *academicsRepository) GetClassLevelByCode(ctx context.Context, code string) (academics.ClassLevel, error) {
	var row classLevelRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT `+classLevelCols+` FROM `+table(ctx, "class_level")+` WHERE lower(code) = lower($1)`, code)
	if err == sql.ErrNoRows {
		return academics.ClassLevel{}, academics.ErrNotFound
	}
	if err != nil {
		return academics.ClassLevel{}, errors.Wrap(err, "getting class level")
	}
	return row.classLevel(), nil
}

func (repo *academicsRepository) QueryAllClassLevels(ctx context.Context) ([]academics.ClassLevel, error) {
	var rows []classLevelRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT `+classLevelCols+` FROM `+table(ctx, "class_level")+` ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "querying class levels")
	}
	levels := make([]academics.ClassLevel, 0, len(rows))
	for _, row := range rows {
		levels = append(levels, row.classLevel())
	}
	return levels, nil
}

func (repo *academicsRepository) UpdateClassLevel(ctx context.Context, cl academics.ClassLevel) (academics.ClassLevel, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE `+table(ctx, "class_level")+`
		 SET name = $1, code = $2, age_range = $3, is_toddler_class = $4, subject_ids = $5
		 WHERE id = $6`,
		cl.Name, cl.Code, cl.AgeRange, cl.IsToddlerClass, strSlice(cl.SubjectIDs), cl.ID,
	)
	if err != nil {
		return academics.ClassLevel{}, errors.Wrap(err, "updating class level")
	}
	if count, err := res.RowsAffected(); err == nil && count == 0 {
		return academics.ClassLevel{}, academics.ErrNotFound
	}
	return cl, nil
}

func (repo *academicsRepository) DeleteClassLevel(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM `+table(ctx, "class_level")+` WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting class level")
	}
	return nil
}

const subjectCols = "id, name, code, description, class_level_names, created_at"

type subjectRow struct {
	ID              string       `db:"id"`
	Name            string       `db:"name"`
	Code            string       `db:"code"`
	Description     string       `db:"description"`
	ClassLevelNames strSlice     `db:"class_level_names"`
	CreatedAt       sql.NullTime `db:"created_at"`
}

func (r subjectRow) subject() academics.Subject {
	return academics.Subject{
		ID:              r.ID,
		Name:            r.Name,
		Code:            r.Code,
		Description:     r.Description,
		ClassLevelNames: r.ClassLevelNames,
		CreatedAt:       r.CreatedAt.Time,
	}
}

func (repo *academicsRepository) CreateSubject(ctx context.Context, sub academics.Subject) (academics.Subject, error) {
	sub.ID = uuid.NewString()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO `+table(ctx, "subject")+` (`+subjectCols+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		sub.ID, sub.Name, sub.Code, sub.Description, strSlice(sub.ClassLevelNames), sub.CreatedAt,
	)
	if err != nil {
		return academics.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return sub, nil
}

func (repo *academicsRepository) GetSubjectByID(ctx context.Context, id string) (academics.Subject, error) {
	var row subjectRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT `+subjectCols+` FROM `+table(ctx, "subject")+` WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return academics.Subject{}, academics.ErrNotFound
	}
	if err != nil {
		return academics.Subject{}, errors.Wrap(err, "getting subject")
	}
	return row.subject(), nil
}

func (repo *academicsRepository) GetSubjectByCode(ctx context.Context, code string) (academics.Subject, error) {
	var row subjectRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT `+subjectCols+` FROM `+table(ctx, "subject")+` WHERE lower(code) = lower($1)`, code)
	if err == sql.ErrNoRows {
		return academics.Subject{}, academics.ErrNotFound
	}
	if err != nil {
		return academics.Subject{}, errors.Wrap(err, "getting subject")
	}
	return row.subject(), nil
}

func (repo *academicsRepository) QueryAllSubjects(ctx context.Context) ([]academics.Subject, error) {
	var rows []subjectRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT `+subjectCols+` FROM `+table(ctx, "subject")+` ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	return subjectsFromRows(rows), nil
}

func (repo *academicsRepository) QuerySubjectsByClassLevelName(ctx context.Context, name string) ([]academics.Subject, error) {
	var rows []subjectRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT `+subjectCols+` FROM `+table(ctx, "subject")+`
		 WHERE class_level_names @> to_jsonb(ARRAY[$1]::text[]) ORDER BY name`, name)
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	return subjectsFromRows(rows), nil
}

func subjectsFromRows(rows []subjectRow) []academics.Subject {
	subjects := make([]academics.Subject, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, row.subject())
	}
	return subjects
}

func (repo *academicsRepository) UpdateSubject(ctx context.Context, sub academics.Subject) (academics.Subject, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE `+table(ctx, "subject")+`
		 SET name = $1, code = $2, description = $3, class_level_names = $4
		 WHERE id = $5`,
		sub.Name, sub.Code, sub.Description, strSlice(sub.ClassLevelNames), sub.ID,
	)
	if err != nil {
		return academics.Subject{}, errors.Wrap(err, "updating subject")
	}
	if count, err := res.RowsAffected(); err == nil && count == 0 {
		return academics.Subject{}, academics.ErrNotFound
	}
	return sub, nil
}

func (repo *academicsRepository) DeleteSubject(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM `+table(ctx, "subject")+` WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return nil
}
