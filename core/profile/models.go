package profile

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

// Role is the closed set of profile variants. A profile's role is its type;
// there is no free-form role tag to fall out of sync.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
)

var AllRoles = []Role{RoleAdmin, RoleTeacher, RoleStudent, RoleParent}

type (
	// Admin is the administrator attribute bundle, one-to-one with a User.
	Admin struct {
		ID         string    `json:"id"`
		UserID     string    `json:"user_id"`
		Department string    `json:"department"`
		CreatedAt  time.Time `json:"created_at"` // UTC
	}

	Teacher struct {
		ID             string    `json:"id"`
		UserID         string    `json:"user_id"`
		SubjectsTaught []string  `json:"subjects_taught"`
		ClassLevelID   string    `json:"class_level_id,omitempty"`
		CreatedAt      time.Time `json:"created_at"` // UTC
	}

	Student struct {
		ID              string    `json:"id"`
		UserID          string    `json:"user_id"`
		AdmissionNumber string    `json:"admission_number"` // unique per tenant
		DateOfBirth     time.Time `json:"date_of_birth"`
		ParentName      string    `json:"parent_name"`
		ParentContact   string    `json:"parent_contact"`
		ParentEmail     string    `json:"parent_email"`
		Address         string    `json:"address"`
		ClassLevelID    string    `json:"class_level_id,omitempty"`
		AcademicYear    string    `json:"academic_year"`
		CreatedAt       time.Time `json:"created_at"` // UTC
	}

	// Parent holds a many-to-many children set: a student may have several
	// parent accounts and a parent several children.
	Parent struct {
		ID         string    `json:"id"`
		UserID     string    `json:"user_id"`
		Occupation string    `json:"occupation"`
		ChildIDs   []string  `json:"child_ids"`
		CreatedAt  time.Time `json:"created_at"` // UTC
	}
)

// Creation inputs. Each names the target school; the service validates it
// exists before touching anything else.

type NewAdmin struct {
	Username   string `json:"username" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	School     string `json:"school" validate:"required"`
	Department string `json:"department" validate:"required"`
}

func (na *NewAdmin) Validate(validate *validator.Validate) error {
	na.Username = core.CleanString(na.Username)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.School = core.CleanString(na.School)
	na.Department = core.CleanString(na.Department)
	return validate.Struct(na)
}

type NewTeacher struct {
	Username       string   `json:"username" validate:"required"`
	Email          string   `json:"email" validate:"required,email"`
	Password       string   `json:"password" validate:"required"`
	School         string   `json:"school" validate:"required"`
	FirstName      string   `json:"first_name"`
	LastName       string   `json:"last_name"`
	SubjectsTaught []string `json:"subjects_taught"`
	ClassLevelID   string   `json:"class_level_id"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.Username = core.CleanString(nt.Username)
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	nt.School = core.CleanString(nt.School)
	return validate.Struct(nt)
}

type NewStudent struct {
	Username        string `json:"username" validate:"required"`
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	School          string `json:"school" validate:"required"`
	AdmissionNumber string `json:"admission_number" validate:"required"`
	DateOfBirth     string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	ParentName      string `json:"parent_name" validate:"required"`
	ParentContact   string `json:"parent_contact" validate:"required"`
	ParentEmail     string `json:"parent_email" validate:"required,email"`
	Address         string `json:"address" validate:"required"`
	ClassLevelID    string `json:"class_level_id"`
	AcademicYear    string `json:"academic_year" validate:"required"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Username = core.CleanString(ns.Username)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.School = core.CleanString(ns.School)
	ns.AdmissionNumber = core.CleanString(ns.AdmissionNumber)
	ns.ParentName = core.CleanString(ns.ParentName)
	ns.ParentEmail = core.CleanString(ns.ParentEmail, true /* lower */)
	return validate.Struct(ns)
}

type UpdateStudent struct {
	ParentName    string `json:"parent_name"`
	ParentContact string `json:"parent_contact"`
	ParentEmail   string `json:"parent_email" validate:"omitempty,email"`
	Address       string `json:"address"`
	ClassLevelID  string `json:"class_level_id"`
	AcademicYear  string `json:"academic_year"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	us.ParentEmail = core.CleanString(us.ParentEmail, true /* lower */)
	return validate.Struct(us)
}

// Creation results. Callers get a projection of what was provisioned,
// never the raw entity.

type AdminResult struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	School   string `json:"school"`
}

type TeacherResult struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	School   string `json:"school"`
}

type StudentResult struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	School          string `json:"school"`
	AdmissionNumber string `json:"admission_number"`
	DateOfBirth     string `json:"date_of_birth"`
	ParentName      string `json:"parent_name"`
	ParentContact   string `json:"parent_contact"`
	ParentEmail     string `json:"parent_email"`
	Address         string `json:"address"`
	ClassLevelID    string `json:"class_level_id,omitempty"`
	AcademicYear    string `json:"academic_year"`
	ParentUsername  string `json:"parent_username,omitempty"`
}

// Bulk creation result with per-entry error reporting.

type BulkEntryError struct {
	Index            int               `json:"index"`
	Errors           map[string]string `json:"errors"`
	IdentifyingField string            `json:"identifying_field,omitempty"`
}

type BulkStudentsResult struct {
	SuccessfullyCreated []StudentResult  `json:"successfully_created"`
	Errors              []BulkEntryError `json:"errors"`
}
