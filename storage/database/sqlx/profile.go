package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/profile"
)

type profileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) profile.Repository {
	return &profileRepository{db: db}
}

// ---------------------------------------------------------------------------
// admins

type adminRow struct {
	ID         string       `db:"id"`
	UserID     string       `db:"user_id"`
	Department string       `db:"department"`
	CreatedAt  sql.NullTime `db:"created_at"`
}

func (r adminRow) admin() profile.Admin {
	return profile.Admin{ID: r.ID, UserID: r.UserID, Department: r.Department, CreatedAt: r.CreatedAt.Time}
}

func (repo *profileRepository) CreateAdmin(ctx context.Context, adm profile.Admin) (profile.Admin, error) {
	adm.ID = uuid.NewString()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO `+table(ctx, "admin_profile")+` (id, user_id, department, created_at) VALUES ($1, $2, $3, $4)`,
		adm.ID, adm.UserID, adm.Department, adm.CreatedAt,
	)
	if err != nil {
		return profile.Admin{}, errors.Wrap(err, "inserting admin")
	}
	return adm, nil
}

func (repo *profileRepository) GetAdminByUserID(ctx context.Context, userID string) (profile.Admin, error) {
	var row adminRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT id, user_id, department, created_at FROM `+table(ctx, "admin_profile")+` WHERE user_id = $1`, userID)
	if err == sql.ErrNoRows {
		return profile.Admin{}, profile.ErrNotFound
	}
	if err != nil {
		return profile.Admin{}, errors.Wrap(err, "getting admin")
	}
	return row.admin(), nil
}

func (repo *profileRepository) QueryAllAdmins(ctx context.Context) ([]profile.Admin, error) {
	var rows []adminRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT id, user_id, department, created_at FROM `+table(ctx, "admin_profile")+` ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "querying admins")
	}
	admins := make([]profile.Admin, 0, len(rows))
	for _, row := range rows {
		admins = append(admins, row.admin())
	}
	return admins, nil
}

// ---------------------------------------------------------------------------
// teachers

type teacherRow struct {
	ID             string         `db:"id"`
	UserID         string         `db:"user_id"`
	SubjectsTaught strSlice       `db:"subjects_taught"`
	ClassLevelID   sql.NullString `db:"class_level_id"`
	CreatedAt      sql.NullTime   `db:"created_at"`
}

func (r teacherRow) teacher() profile.Teacher {
	return profile.Teacher{
		ID:             r.ID,
		UserID:         r.UserID,
		SubjectsTaught: r.SubjectsTaught,
		ClassLevelID:   r.ClassLevelID.String,
		CreatedAt:      r.CreatedAt.Time,
	}
}

const teacherCols = "id, user_id, subjects_taught, class_level_id, created_at"

func (repo *profileRepository) CreateTeacher(ctx context.Context, tch profile.Teacher) (profile.Teacher, error) {
	tch.ID = uuid.NewString()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO `+table(ctx, "teacher_profile")+` (`+teacherCols+`) VALUES ($1, $2, $3, $4, $5)`,
		tch.ID, tch.UserID, strSlice(tch.SubjectsTaught), nullStr(tch.ClassLevelID), tch.CreatedAt,
	)
	if err != nil {
		return profile.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return tch, nil
}

func (repo *profileRepository) GetTeacherByID(ctx context.Context, id string) (profile.Teacher, error) {
	var row teacherRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT `+teacherCols+` FROM `+table(ctx, "teacher_profile")+` WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return profile.Teacher{}, profile.ErrNotFound
	}
	if err != nil {
		return profile.Teacher{}, errors.Wrap(err, "getting teacher")
	}
	return row.teacher(), nil
}

func (repo *profileRepository) GetTeacherByUserID(ctx context.Context, userID string) (profile.Teacher, error) {
	var row teacherRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT `+teacherCols+` FROM `+table(ctx, "teacher_profile")+` WHERE user_id = $1`, userID)
	if err == sql.ErrNoRows {
		return profile.Teacher{}, profile.ErrNotFound
	}
	if err != nil {
		return profile.Teacher{}, errors.Wrap(err, "getting teacher")
	}
	return row.teacher(), nil
}

func (repo *profileRepository) QueryAllTeachers(ctx context.Context) ([]profile.Teacher, error) {
	var rows []teacherRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT `+teacherCols+` FROM `+table(ctx, "teacher_profile")+` ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}
	teachers := make([]profile.Teacher, 0, len(rows))
	for _, row := range rows {
		teachers = append(teachers, row.teacher())
	}
	return teachers, nil
}

func (repo *profileRepository) DeleteTeacher(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM `+table(ctx, "teacher_profile")+` WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	return nil
}

// ---------------------------------------------------------------------------
// students

type studentRow struct {
	ID              string         `db:"id"`
	UserID          string         `db:"user_id"`
	AdmissionNumber string         `db:"admission_number"`
	DateOfBirth     sql.NullTime   `db:"date_of_birth"`
	ParentName      string         `db:"parent_name"`
	ParentContact   string         `db:"parent_contact"`
	ParentEmail     string         `db:"parent_email"`
	Address         string         `db:"address"`
	ClassLevelID    sql.NullString `db:"class_level_id"`
	AcademicYear    string         `db:"academic_year"`
	CreatedAt       sql.NullTime   `db:"created_at"`
}

func (r studentRow) student() profile.Student {
	return profile.Student{
		ID:              r.ID,
		UserID:          r.UserID,
		AdmissionNumber: r.AdmissionNumber,
		DateOfBirth:     r.DateOfBirth.Time,
		ParentName:      r.ParentName,
		ParentContact:   r.ParentContact,
		ParentEmail:     r.ParentEmail,
		Address:         r.Address,
		ClassLevelID:    r.ClassLevelID.String,
		AcademicYear:    r.AcademicYear,
		CreatedAt:       r.CreatedAt.Time,
	}
}

const studentCols = `id, user_id, admission_number, date_of_birth, parent_name, parent_contact, parent_email, address, class_level_id, academic_year, created_at`

func (repo *profileRepository) CreateStudent(ctx context.Context, st profile.Student) (profile.Student, error) {
	var count int
	err := repo.db.GetContext(ctx, &count,
		`SELECT count(*) FROM `+table(ctx, "student_profile")+` WHERE admission_number = $1`, st.AdmissionNumber)
	if err != nil {
		return profile.Student{}, errors.Wrap(err, "checking admission number")
	}
	if count > 0 {
		return profile.Student{}, profile.ErrAdmissionNumberExists
	}

	st.ID = uuid.NewString()
	_, err = repo.db.ExecContext(ctx,
		`INSERT INTO `+table(ctx, "student_profile")+` (`+studentCols+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		st.ID, st.UserID, st.AdmissionNumber, st.DateOfBirth, st.ParentName, st.ParentContact,
		st.ParentEmail, st.Address, nullStr(st.ClassLevelID), st.AcademicYear, st.CreatedAt,
	)
	if err != nil {
		return profile.Student{}, errors.Wrap(err, "inserting student")
	}
	return st, nil
}

func (repo *profileRepository) GetStudentByID(ctx context.Context, id string) (profile.Student, error) {
	var row studentRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT `+studentCols+` FROM `+table(ctx, "student_profile")+` WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return profile.Student{}, profile.ErrNotFound
	}
	if err != nil {
		return profile.Student{}, errors.Wrap(err, "getting student")
	}
	return row.student(), nil
}

func (repo *profileRepository) GetStudentByUserID(ctx context.Context, userID string) (profile.Student, error) {
	var row studentRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT `+studentCols+` FROM `+table(ctx, "student_profile")+` WHERE user_id = $1`, userID)
	if err == sql.ErrNoRows {
		return profile.Student{}, profile.ErrNotFound
	}
	if err != nil {
		return profile.Student{}, errors.Wrap(err, "getting student")
	}
	return row.student(), nil
}

func (repo *profileRepository) QueryAllStudents(ctx context.Context) ([]profile.Student, error) {
	var rows []studentRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT `+studentCols+` FROM `+table(ctx, "student_profile")+` ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return studentsFromRows(rows), nil
}

func (repo *profileRepository) QueryStudentsByClassLevelID(ctx context.Context, classLevelID string) ([]profile.Student, error) {
	var rows []studentRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT `+studentCols+` FROM `+table(ctx, "student_profile")+` WHERE class_level_id = $1 ORDER BY id`, classLevelID)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return studentsFromRows(rows), nil
}

func studentsFromRows(rows []studentRow) []profile.Student {
	students := make([]profile.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.student())
	}
	return students
}

func (repo *profileRepository) UpdateStudent(ctx context.Context, st profile.Student) (profile.Student, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE `+table(ctx, "student_profile")+`
		 SET parent_name = $1, parent_contact = $2, parent_email = $3, address = $4,
		     class_level_id = $5, academic_year = $6
		 WHERE id = $7`,
		st.ParentName, st.ParentContact, st.ParentEmail, st.Address,
		nullStr(st.ClassLevelID), st.AcademicYear, st.ID,
	)
	if err != nil {
		return profile.Student{}, errors.Wrap(err, "updating student")
	}
	if count, err := res.RowsAffected(); err == nil && count == 0 {
		return profile.Student{}, profile.ErrNotFound
	}
	return st, nil
}

func (repo *profileRepository) DeleteStudent(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM `+table(ctx, "student_profile")+` WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return nil
}

// ---------------------------------------------------------------------------
// parents

type parentRow struct {
	ID         string       `db:"id"`
	UserID     string       `db:"user_id"`
	Occupation string       `db:"occupation"`
	CreatedAt  sql.NullTime `db:"created_at"`
}

func (repo *profileRepository) parent(ctx context.Context, row parentRow) (profile.Parent, error) {
	par := profile.Parent{ID: row.ID, UserID: row.UserID, Occupation: row.Occupation, CreatedAt: row.CreatedAt.Time}
	err := repo.db.SelectContext(ctx, &par.ChildIDs,
		`SELECT student_id FROM `+table(ctx, "parent_child")+` WHERE parent_id = $1 ORDER BY student_id`, par.ID)
	if err != nil {
		return profile.Parent{}, errors.Wrap(err, "querying parent children")
	}
	return par, nil
}

func (repo *profileRepository) CreateParent(ctx context.Context, par profile.Parent) (profile.Parent, error) {
	par.ID = uuid.NewString()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO `+table(ctx, "parent_profile")+` (id, user_id, occupation, created_at) VALUES ($1, $2, $3, $4)`,
		par.ID, par.UserID, par.Occupation, par.CreatedAt,
	)
	if err != nil {
		return profile.Parent{}, errors.Wrap(err, "inserting parent")
	}
	return par, nil
}

func (repo *profileRepository) GetParentByID(ctx context.Context, id string) (profile.Parent, error) {
	var row parentRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT id, user_id, occupation, created_at FROM `+table(ctx, "parent_profile")+` WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return profile.Parent{}, profile.ErrNotFound
	}
	if err != nil {
		return profile.Parent{}, errors.Wrap(err, "getting parent")
	}
	return repo.parent(ctx, row)
}

func (repo *profileRepository) GetParentByUserID(ctx context.Context, userID string) (profile.Parent, error) {
	var row parentRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT id, user_id, occupation, created_at FROM `+table(ctx, "parent_profile")+` WHERE user_id = $1`, userID)
	if err == sql.ErrNoRows {
		return profile.Parent{}, profile.ErrNotFound
	}
	if err != nil {
		return profile.Parent{}, errors.Wrap(err, "getting parent")
	}
	return repo.parent(ctx, row)
}

func (repo *profileRepository) ParentHasChild(ctx context.Context, parentID, studentID string) (bool, error) {
	var count int
	err := repo.db.GetContext(ctx, &count,
		`SELECT count(*) FROM `+table(ctx, "parent_child")+` WHERE parent_id = $1 AND student_id = $2`,
		parentID, studentID)
	if err != nil {
		return false, errors.Wrap(err, "checking parent child")
	}
	return count > 0, nil
}

func (repo *profileRepository) AddParentChild(ctx context.Context, parentID, studentID string) error {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO `+table(ctx, "parent_child")+` (parent_id, student_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		parentID, studentID)
	if err != nil {
		return errors.Wrap(err, "linking parent child")
	}
	return nil
}
