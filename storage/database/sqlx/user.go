package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

const userCols = `id, school_id, username, email, first_name, last_name, is_active, is_staff, password_hash, last_login, created_at, updated_at`

type userRow struct {
	ID           string         `db:"id"`
	SchoolID     sql.NullString `db:"school_id"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	FirstName    string         `db:"first_name"`
	LastName     string         `db:"last_name"`
	IsActive     bool           `db:"is_active"`
	IsStaff      bool           `db:"is_staff"`
	PasswordHash []byte         `db:"password_hash"`
	LastLogin    sql.NullTime   `db:"last_login"`
	CreatedAt    sql.NullTime   `db:"created_at"`
	UpdatedAt    sql.NullTime   `db:"updated_at"`
}

func (r userRow) user() user.User {
	return user.User{
		ID:           r.ID,
		SchoolID:     r.SchoolID.String,
		Username:     r.Username,
		Email:        r.Email,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		IsActive:     r.IsActive,
		IsStaff:      r.IsStaff,
		PasswordHash: r.PasswordHash,
		LastLogin:    r.LastLogin.Time,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
	}
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	q := `SELECT count(*) FROM public."user" WHERE lower(email) = lower($1)`
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		q += ` AND id != ALL($2)`
		args = append(args, pq.Array(ids))
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, q, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.NewString()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO public."user" (`+userCols+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL, $10, $11)`,
		usr.ID, nullStr(usr.SchoolID), usr.Username, usr.Email, usr.FirstName, usr.LastName,
		usr.IsActive, usr.IsStaff, usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt,
	)
	if err != nil {
		var perr *pq.Error
		if errors.As(err, &perr) && perr.Code.Name() == "unique_violation" {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+userCols+` FROM public."user" WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return row.user(), nil
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+userCols+` FROM public."user" WHERE lower(email) = lower($1)`, email)
	if err == sql.ErrNoRows {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return row.user(), nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+userCols+` FROM public."user" ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return usersFromRows(rows), nil
}

func (repo *userRepository) QueryUsersBySchoolID(ctx context.Context, schoolID string) ([]user.User, error) {
	var rows []userRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT `+userCols+` FROM public."user" WHERE school_id = $1 ORDER BY id`, schoolID)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return usersFromRows(rows), nil
}

func usersFromRows(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	// only save set fields
	sets := []string{"updated_at = $1"}
	args := []interface{}{usr.UpdatedAt}
	n := 2
	add := func(col string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, n))
		args = append(args, val)
		n++
	}
	if usr.Username != "" {
		add("username", usr.Username)
	}
	if usr.Email != "" {
		add("email", usr.Email)
	}
	if usr.FirstName != "" {
		add("first_name", usr.FirstName)
	}
	if usr.LastName != "" {
		add("last_name", usr.LastName)
	}
	if usr.PasswordHash != nil {
		add("password_hash", usr.PasswordHash)
	}
	if isActive != nil {
		add("is_active", *isActive)
	}
	if !usr.LastLogin.IsZero() {
		add("last_login", usr.LastLogin)
	}
	args = append(args, usr.ID)

	q := fmt.Sprintf(`UPDATE public."user" SET %s WHERE id = $%d`, strings.Join(sets, ", "), n)
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if count, err := res.RowsAffected(); err == nil && count == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo *userRepository) DeleteUser(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM public."user" WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return nil
}
