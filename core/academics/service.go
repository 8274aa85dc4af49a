package academics

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound   = errors.New("not found")
	ErrCodeExists = errors.New("this code is already in use")
)

type (
	Repository interface {
		CreateClassLevel(ctx context.Context, cl ClassLevel) (ClassLevel, error)
		GetClassLevelByID(ctx context.Context, id string) (ClassLevel, error)
		GetClassLevelByCode(ctx context.Context, code string) (ClassLevel, error)
		QueryAllClassLevels(ctx context.Context) ([]ClassLevel, error)
		UpdateClassLevel(ctx context.Context, cl ClassLevel) (ClassLevel, error)
		DeleteClassLevel(ctx context.Context, id string) error

		CreateSubject(ctx context.Context, sub Subject) (Subject, error)
		GetSubjectByID(ctx context.Context, id string) (Subject, error)
		GetSubjectByCode(ctx context.Context, code string) (Subject, error)
		QueryAllSubjects(ctx context.Context) ([]Subject, error)
		QuerySubjectsByClassLevelName(ctx context.Context, name string) ([]Subject, error)
		UpdateSubject(ctx context.Context, sub Subject) (Subject, error)
		DeleteSubject(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkClassLevelCode(ctx context.Context, code string) error {
	if _, err := svc.repo.GetClassLevelByCode(ctx, code); err == nil {
		return core.NewValidationError(ErrCodeExists, core.FieldError{Field: "code", Error: ErrCodeExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return err
	}
	return nil
}

func (svc *Service) checkSubjectCode(ctx context.Context, code string) error {
	if _, err := svc.repo.GetSubjectByCode(ctx, code); err == nil {
		return core.NewValidationError(ErrCodeExists, core.FieldError{Field: "code", Error: ErrCodeExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return err
	}
	return nil
}

func (svc *Service) CreateClassLevel(ctx context.Context, ncl NewClassLevel) (ClassLevel, error) {
	if err := svc.checkClassLevelCode(ctx, ncl.Code); err != nil {
		return ClassLevel{}, err
	}
	return svc.repo.CreateClassLevel(ctx, ClassLevel{
		Name:           ncl.Name,
		Code:           ncl.Code,
		AgeRange:       ncl.AgeRange,
		IsToddlerClass: ncl.IsToddlerClass,
		SubjectIDs:     ncl.SubjectIDs,
		CreatedAt:      time.Now().UTC(),
	})
}

func (svc *Service) GetClassLevel(ctx context.Context, id string) (ClassLevel, error) {
	return svc.repo.GetClassLevelByID(ctx, id)
}

func (svc *Service) QueryClassLevels(ctx context.Context) ([]ClassLevel, error) {
	return svc.repo.QueryAllClassLevels(ctx)
}

func (svc *Service) UpdateClassLevel(ctx context.Context, id string, ncl NewClassLevel) (ClassLevel, error) {
	cl, err := svc.repo.GetClassLevelByID(ctx, id)
	if err != nil {
		return ClassLevel{}, err
	}
	if ncl.Code != cl.Code {
		if err := svc.checkClassLevelCode(ctx, ncl.Code); err != nil {
			return ClassLevel{}, err
		}
	}
	cl.Name = ncl.Name
	cl.Code = ncl.Code
	cl.AgeRange = ncl.AgeRange
	cl.IsToddlerClass = ncl.IsToddlerClass
	cl.SubjectIDs = ncl.SubjectIDs
	return svc.repo.UpdateClassLevel(ctx, cl)
}

func (svc *Service) DeleteClassLevel(ctx context.Context, id string) error {
	return svc.repo.DeleteClassLevel(ctx, id)
}

func (svc *Service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	if err := svc.checkSubjectCode(ctx, ns.Code); err != nil {
		return Subject{}, err
	}
	return svc.repo.CreateSubject(ctx, Subject{
		Name:            ns.Name,
		Code:            ns.Code,
		Description:     ns.Description,
		ClassLevelNames: ns.ClassLevelNames,
		CreatedAt:       time.Now().UTC(),
	})
}

func (svc *Service) GetSubject(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubjectByID(ctx, id)
}

// QuerySubjects lists subjects, optionally filtered by the class level name
// they are offered to.
func (svc *Service) QuerySubjects(ctx context.Context, classLevelName string) ([]Subject, error) {
	if classLevelName != "" {
		return svc.repo.QuerySubjectsByClassLevelName(ctx, classLevelName)
	}
	return svc.repo.QueryAllSubjects(ctx)
}

func (svc *Service) UpdateSubject(ctx context.Context, id string, ns NewSubject) (Subject, error) {
	sub, err := svc.repo.GetSubjectByID(ctx, id)
	if err != nil {
		return Subject{}, err
	}
	if ns.Code != sub.Code {
		if err := svc.checkSubjectCode(ctx, ns.Code); err != nil {
			return Subject{}, err
		}
	}
	sub.Name = ns.Name
	sub.Code = ns.Code
	sub.Description = ns.Description
	sub.ClassLevelNames = ns.ClassLevelNames
	return svc.repo.UpdateSubject(ctx, sub)
}

func (svc *Service) DeleteSubject(ctx context.Context, id string) error {
	return svc.repo.DeleteSubject(ctx, id)
}
