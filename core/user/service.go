package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
)

type (
	// Repository abstracts User persistence. Emails are always compared
	// case-insensitively; implementations must also hold a lower(email)
	// unique constraint as a backstop against races.
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		QueryUsersBySchoolID(ctx context.Context, schoolID string) ([]User, error)
		UpdateUser(ctx context.Context, usr User, isActive *bool) (User, error)
		DeleteUser(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		mailSvc  core.EmailService
		conf     *core.Config
		validate *validator.Validate
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config, validate *validator.Validate) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, conf: conf, validate: validate}
}

// CheckEmailUniqueness returns a ValidationError on the "email" field if
// another account (excluding excl) already owns the address, compared
// case-insensitively across the whole system.
func (svc *Service) CheckEmailUniqueness(ctx context.Context, email string, excl ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, core.CleanString(email, true), excl...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Create validates nu (field rules, password policy, system-wide
// case-insensitive email uniqueness) and persists the account. The repo's
// lower(email) constraint remains as a backstop against concurrent creates.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(ctx, svc.validate, svc); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		Username:  nu.Username,
		Email:     core.CleanString(nu.Email, true),
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		SchoolID:  nu.SchoolID,
		IsActive:  true,
		IsStaff:   nu.IsStaff,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true))
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *Service) QueryBySchool(ctx context.Context, schoolID string) ([]User, error) {
	return svc.repo.QueryUsersBySchoolID(ctx, schoolID)
}

func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	orig, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err := uu.Validate(ctx, svc.validate, svc, orig); err != nil {
		return User{}, err
	}

	usr := User{
		ID:        id,
		Username:  uu.Username,
		Email:     uu.Email,
		FirstName: uu.FirstName,
		LastName:  uu.LastName,
		UpdatedAt: time.Now().UTC(),
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	return svc.repo.UpdateUser(ctx, usr, uu.IsActive)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteUser(ctx, id)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	usr.UpdatedAt = usr.LastLogin
	return svc.repo.UpdateUser(ctx, usr, nil)
}

// SendCredentialsMail emails a freshly provisioned account its login details.
// Failures are the caller's to log; provisioning never depends on delivery.
func (svc *Service) SendCredentialsMail(usr User, pwd string) {
	if svc.mailSvc == nil || usr.Email == "" {
		return
	}
	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject: fmt.Sprintf("Your %s account", svc.conf.AppName),
		BodyStr: fmt.Sprintf(
			"Hello %s,\n\nAn account has been created for you.\n\nEmail: %s\nPassword: %s\n\nPlease change your password after your first login.",
			usr.FullName(), usr.Email, pwd,
		),
		TemplateName: "account-credentials",
		TemplateData: struct {
			FullName string
			Email    string
			Password string
		}{usr.FullName(), usr.Email, pwd},
	}
	svc.mailSvc.SendMessages(msg)
}
