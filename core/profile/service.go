package profile

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/tenant"
	"github.com/trezcool/shule/core/user"
)

var (
	// errors
	ErrNotFound              = errors.New("profile not found")
	ErrAdmissionNumberExists = errors.New("a student with this admission number already exists")
	ErrSchoolNotFound        = errors.New("school does not exist")
)

type (
	// Repository abstracts role profile persistence. All methods operate on
	// the tenant partition pinned to ctx.
	Repository interface {
		CreateAdmin(ctx context.Context, adm Admin) (Admin, error)
		GetAdminByUserID(ctx context.Context, userID string) (Admin, error)
		QueryAllAdmins(ctx context.Context) ([]Admin, error)

		CreateTeacher(ctx context.Context, tch Teacher) (Teacher, error)
		GetTeacherByID(ctx context.Context, id string) (Teacher, error)
		GetTeacherByUserID(ctx context.Context, userID string) (Teacher, error)
		QueryAllTeachers(ctx context.Context) ([]Teacher, error)
		DeleteTeacher(ctx context.Context, id string) error

		CreateStudent(ctx context.Context, st Student) (Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		GetStudentByUserID(ctx context.Context, userID string) (Student, error)
		QueryAllStudents(ctx context.Context) ([]Student, error)
		QueryStudentsByClassLevelID(ctx context.Context, classLevelID string) ([]Student, error)
		UpdateStudent(ctx context.Context, st Student) (Student, error)
		DeleteStudent(ctx context.Context, id string) error

		CreateParent(ctx context.Context, par Parent) (Parent, error)
		GetParentByID(ctx context.Context, id string) (Parent, error)
		GetParentByUserID(ctx context.Context, userID string) (Parent, error)
		ParentHasChild(ctx context.Context, parentID, studentID string) (bool, error)
		AddParentChild(ctx context.Context, parentID, studentID string) error
	}

	// SchoolResolver maps a school name to its partition.
	SchoolResolver interface {
		Resolve(ctx context.Context, name string) (tenant.School, error)
	}

	Service struct {
		repo    Repository
		users   *user.Service
		schools SchoolResolver
		conf    *core.Config
		log     core.Logger
	}
)

func NewService(repo Repository, users *user.Service, schools SchoolResolver, conf *core.Config, log core.Logger) *Service {
	return &Service{repo: repo, users: users, schools: schools, conf: conf, log: log}
}

// rollbackUser deletes the identity created for a profile that never made it
// to storage; an account and its profile land together or not at all.
func (svc *Service) rollbackUser(ctx context.Context, userID string) {
	if err := svc.users.Delete(ctx, userID); err != nil {
		svc.log.Error("rolling back orphaned account "+userID, err)
	}
}

// resolveSchool validates the named school exists and returns a ctx pinned to
// its partition.
func (svc *Service) resolveSchool(ctx context.Context, name string) (context.Context, tenant.School, error) {
	sch, err := svc.schools.Resolve(ctx, name)
	if err != nil {
		if errors.Cause(err) == tenant.ErrNotFound {
			return ctx, tenant.School{}, core.NewValidationError(ErrSchoolNotFound, core.FieldError{
				Field: "school", Error: "school '" + name + "' does not exist",
			})
		}
		return ctx, tenant.School{}, errors.Wrap(err, "resolving school")
	}
	return tenant.NewContext(ctx, sch), sch, nil
}

// CreateAdmin provisions an identity + Admin profile pair inside the named school.
func (svc *Service) CreateAdmin(ctx context.Context, na NewAdmin) (AdminResult, error) {
	ctx, sch, err := svc.resolveSchool(ctx, na.School)
	if err != nil {
		return AdminResult{}, err
	}

	usr, err := svc.users.Create(ctx, user.NewUser{
		Username: na.Username,
		Email:    na.Email,
		Password: na.Password,
		SchoolID: sch.ID,
	})
	if err != nil {
		return AdminResult{}, errors.Wrap(err, "creating admin account")
	}
	adm, err := svc.repo.CreateAdmin(ctx, Admin{
		UserID:     usr.ID,
		Department: na.Department,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		svc.rollbackUser(ctx, usr.ID)
		return AdminResult{}, errors.Wrap(err, "creating admin profile")
	}

	return AdminResult{
		ID:       adm.ID,
		UserID:   usr.ID,
		Username: usr.Username,
		Email:    usr.Email,
		School:   sch.Name,
	}, nil
}

// BootstrapAdmin creates the default administrator of a freshly registered
// school from its stored admin contact fields, with the well-known default
// password. Implements tenant.Bootstrapper.
func (svc *Service) BootstrapAdmin(ctx context.Context, sch tenant.School) error {
	usr, err := svc.users.Create(ctx, user.NewUser{
		Username:  sch.AdminEmail,
		Email:     sch.AdminEmail,
		FirstName: sch.AdminFirstName,
		LastName:  sch.AdminLastName,
		Password:  svc.conf.DefaultAdminPassword,
		SchoolID:  sch.ID,
		IsStaff:   true,
	})
	if err != nil {
		return errors.Wrap(err, "creating bootstrap admin account")
	}
	if _, err := svc.repo.CreateAdmin(ctx, Admin{UserID: usr.ID, CreatedAt: time.Now().UTC()}); err != nil {
		svc.rollbackUser(ctx, usr.ID)
		return errors.Wrap(err, "creating bootstrap admin profile")
	}
	svc.users.SendCredentialsMail(usr, svc.conf.DefaultAdminPassword)
	return nil
}

func (svc *Service) CreateTeacher(ctx context.Context, nt NewTeacher) (TeacherResult, error) {
	ctx, sch, err := svc.resolveSchool(ctx, nt.School)
	if err != nil {
		return TeacherResult{}, err
	}

	usr, err := svc.users.Create(ctx, user.NewUser{
		Username:  nt.Username,
		Email:     nt.Email,
		Password:  nt.Password,
		FirstName: nt.FirstName,
		LastName:  nt.LastName,
		SchoolID:  sch.ID,
	})
	if err != nil {
		return TeacherResult{}, errors.Wrap(err, "creating teacher account")
	}
	tch, err := svc.repo.CreateTeacher(ctx, Teacher{
		UserID:         usr.ID,
		SubjectsTaught: nt.SubjectsTaught,
		ClassLevelID:   nt.ClassLevelID,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		svc.rollbackUser(ctx, usr.ID)
		return TeacherResult{}, errors.Wrap(err, "creating teacher profile")
	}

	return TeacherResult{
		ID:       tch.ID,
		UserID:   usr.ID,
		Username: usr.Username,
		Email:    usr.Email,
		School:   sch.Name,
	}, nil
}

// CreateStudent provisions an identity + Student profile pair, then hands the
// new student to the parent-provisioning handler. Provisioning runs after the
// student is committed and in its own failure domain: its errors are logged,
// never surfaced, and never roll back the student.
func (svc *Service) CreateStudent(ctx context.Context, ns NewStudent) (StudentResult, error) {
	ctx, sch, err := svc.resolveSchool(ctx, ns.School)
	if err != nil {
		return StudentResult{}, err
	}

	dob, err := time.Parse("2006-01-02", ns.DateOfBirth)
	if err != nil {
		return StudentResult{}, core.NewValidationError(err, core.FieldError{
			Field: "date_of_birth", Error: "invalid date, expected YYYY-MM-DD",
		})
	}

	usr, err := svc.users.Create(ctx, user.NewUser{
		Username:  ns.Username,
		Email:     ns.Email,
		Password:  ns.Password,
		FirstName: ns.FirstName,
		LastName:  ns.LastName,
		SchoolID:  sch.ID,
	})
	if err != nil {
		return StudentResult{}, errors.Wrap(err, "creating student account")
	}
	st, err := svc.repo.CreateStudent(ctx, Student{
		UserID:          usr.ID,
		AdmissionNumber: ns.AdmissionNumber,
		DateOfBirth:     dob,
		ParentName:      ns.ParentName,
		ParentContact:   ns.ParentContact,
		ParentEmail:     ns.ParentEmail,
		Address:         ns.Address,
		ClassLevelID:    ns.ClassLevelID,
		AcademicYear:    ns.AcademicYear,
		CreatedAt:       time.Now().UTC(),
	})
	if err != nil {
		svc.rollbackUser(ctx, usr.ID)
		if errors.Cause(err) == ErrAdmissionNumberExists {
			return StudentResult{}, core.NewValidationError(err, core.FieldError{
				Field: "admission_number", Error: err.Error(),
			})
		}
		return StudentResult{}, errors.Wrap(err, "creating student profile")
	}

	// post-commit event: parent auto-provisioning
	parentUsername := svc.HandleStudentCreated(ctx, st)

	return StudentResult{
		ID:              st.ID,
		UserID:          usr.ID,
		Username:        usr.Username,
		Email:           usr.Email,
		School:          sch.Name,
		AdmissionNumber: st.AdmissionNumber,
		DateOfBirth:     st.DateOfBirth.Format("2006-01-02"),
		ParentName:      st.ParentName,
		ParentContact:   st.ParentContact,
		ParentEmail:     st.ParentEmail,
		Address:         st.Address,
		ClassLevelID:    st.ClassLevelID,
		AcademicYear:    st.AcademicYear,
		ParentUsername:  parentUsername,
	}, nil
}

// BulkCreateStudents creates each student independently; one bad entry never
// aborts the batch. Per-entry failures are reported with their index and the
// admission number as the identifying field.
func (svc *Service) BulkCreateStudents(ctx context.Context, inputs []NewStudent) BulkStudentsResult {
	res := BulkStudentsResult{
		SuccessfullyCreated: []StudentResult{},
		Errors:              []BulkEntryError{},
	}
	for i, ns := range inputs {
		st, err := svc.CreateStudent(ctx, ns)
		if err != nil {
			e := BulkEntryError{Index: i, IdentifyingField: ns.AdmissionNumber, Errors: map[string]string{}}
			var verr *core.ValidationError
			if errors.As(err, &verr) {
				for _, f := range verr.Fields {
					e.Errors[f.Field] = f.Error
				}
			} else {
				e.Errors["detail"] = err.Error()
			}
			res.Errors = append(res.Errors, e)
			continue
		}
		res.SuccessfullyCreated = append(res.SuccessfullyCreated, st)
	}
	return res
}

func (svc *Service) UpdateStudent(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	st, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if us.ParentName != "" {
		st.ParentName = us.ParentName
	}
	if us.ParentContact != "" {
		st.ParentContact = us.ParentContact
	}
	if us.ParentEmail != "" {
		st.ParentEmail = us.ParentEmail
	}
	if us.Address != "" {
		st.Address = us.Address
	}
	if us.ClassLevelID != "" {
		st.ClassLevelID = us.ClassLevelID
	}
	if us.AcademicYear != "" {
		st.AcademicYear = us.AcademicYear
	}
	return svc.repo.UpdateStudent(ctx, st)
}

func (svc *Service) GetStudent(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) GetStudentByUserID(ctx context.Context, userID string) (Student, error) {
	return svc.repo.GetStudentByUserID(ctx, userID)
}

func (svc *Service) QueryStudents(ctx context.Context, classLevelID string) ([]Student, error) {
	if classLevelID != "" {
		return svc.repo.QueryStudentsByClassLevelID(ctx, classLevelID)
	}
	return svc.repo.QueryAllStudents(ctx)
}

func (svc *Service) DeleteStudent(ctx context.Context, id string) error {
	return svc.repo.DeleteStudent(ctx, id)
}

func (svc *Service) GetTeacher(ctx context.Context, id string) (Teacher, error) {
	return svc.repo.GetTeacherByID(ctx, id)
}

func (svc *Service) GetTeacherByUserID(ctx context.Context, userID string) (Teacher, error) {
	return svc.repo.GetTeacherByUserID(ctx, userID)
}

func (svc *Service) QueryTeachers(ctx context.Context) ([]Teacher, error) {
	return svc.repo.QueryAllTeachers(ctx)
}

func (svc *Service) DeleteTeacher(ctx context.Context, id string) error {
	return svc.repo.DeleteTeacher(ctx, id)
}

func (svc *Service) GetParentByUserID(ctx context.Context, userID string) (Parent, error) {
	return svc.repo.GetParentByUserID(ctx, userID)
}

// StudentExists answers the ledger and report packages' student checks.
func (svc *Service) StudentExists(ctx context.Context, studentID string) (bool, error) {
	if _, err := svc.repo.GetStudentByID(ctx, studentID); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// StudentIDsByClassLevel lists the IDs of a class level's students.
func (svc *Service) StudentIDsByClassLevel(ctx context.Context, classLevelID string) ([]string, error) {
	students, err := svc.repo.QueryStudentsByClassLevelID(ctx, classLevelID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.ID)
	}
	return ids, nil
}

// RolesFor reports which profile variants are attached to a user within the
// pinned tenant. Zero or one of each variant per identity.
func (svc *Service) RolesFor(ctx context.Context, userID string) ([]Role, error) {
	var roles []Role
	if _, err := svc.repo.GetAdminByUserID(ctx, userID); err == nil {
		roles = append(roles, RoleAdmin)
	} else if errors.Cause(err) != ErrNotFound {
		return nil, err
	}
	if _, err := svc.repo.GetTeacherByUserID(ctx, userID); err == nil {
		roles = append(roles, RoleTeacher)
	} else if errors.Cause(err) != ErrNotFound {
		return nil, err
	}
	if _, err := svc.repo.GetStudentByUserID(ctx, userID); err == nil {
		roles = append(roles, RoleStudent)
	} else if errors.Cause(err) != ErrNotFound {
		return nil, err
	}
	if _, err := svc.repo.GetParentByUserID(ctx, userID); err == nil {
		roles = append(roles, RoleParent)
	} else if errors.Cause(err) != ErrNotFound {
		return nil, err
	}
	return roles, nil
}
