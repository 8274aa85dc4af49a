package tenant

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound   = errors.New("school not found")
	ErrNameExists = errors.New("a school with this name already exists")
)

type (
	// Repository abstracts School persistence. CreateSchool must provision
	// the partition atomically with the row; DeleteSchool must drop it.
	Repository interface {
		CreateSchool(ctx context.Context, sch School) (School, error)
		GetSchoolByID(ctx context.Context, id string) (School, error)
		GetSchoolByName(ctx context.Context, name string) (School, error)
		QueryAllSchools(ctx context.Context) ([]School, error)
		DeleteSchool(ctx context.Context, id string) error
	}

	// Bootstrapper provisions the default admin account inside a freshly
	// created partition (identity + Admin profile).
	Bootstrapper interface {
		BootstrapAdmin(ctx context.Context, sch School) error
	}

	Service struct {
		repo Repository
		boot Bootstrapper
		log  core.Logger
	}
)

func NewService(repo Repository, boot Bootstrapper, log core.Logger) *Service {
	return &Service{repo: repo, boot: boot, log: log}
}

// SetBootstrapper wires the admin bootstrapper after construction; the
// profile service and this service reference each other.
func (svc *Service) SetBootstrapper(boot Bootstrapper) { svc.boot = boot }

// Resolve maps a school name to its partition.
func (svc *Service) Resolve(ctx context.Context, name string) (School, error) {
	return svc.repo.GetSchoolByName(ctx, core.CleanString(name))
}

func (svc *Service) GetByID(ctx context.Context, id string) (School, error) {
	return svc.repo.GetSchoolByID(ctx, id)
}

func (svc *Service) QueryAll(ctx context.Context) ([]School, error) {
	return svc.repo.QueryAllSchools(ctx)
}

// Delete drops the school and its whole partition.
func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteSchool(ctx, id)
}

// Create registers a new School and, unless it is the Public tenant,
// bootstraps its default admin inside the new partition. A bootstrap failure
// rolls the whole registration back: a school never exists without its admin.
func (svc *Service) Create(ctx context.Context, ns NewSchool) (School, error) {
	if _, err := svc.repo.GetSchoolByName(ctx, ns.Name); err == nil {
		return School{}, core.NewValidationError(ErrNameExists, core.FieldError{
			Field: "name", Error: ErrNameExists.Error(),
		})
	} else if errors.Cause(err) != ErrNotFound {
		return School{}, errors.Wrap(err, "checking school name")
	}

	sch := School{
		Name:           ns.Name,
		SchemaName:     SchemaNameFor(ns.Name),
		AdminEmail:     ns.AdminEmail,
		AdminFirstName: ns.AdminFirstName,
		AdminLastName:  ns.AdminLastName,
		CreatedAt:      time.Now().UTC(),
	}
	sch, err := svc.repo.CreateSchool(ctx, sch)
	if err != nil {
		return School{}, errors.Wrap(err, "creating school")
	}

	if !sch.IsPublic() {
		if err := svc.boot.BootstrapAdmin(NewContext(ctx, sch), sch); err != nil {
			if delErr := svc.repo.DeleteSchool(ctx, sch.ID); delErr != nil {
				svc.log.Error("rolling back school after failed admin bootstrap", delErr)
			}
			return School{}, errors.Wrap(err, "bootstrapping school admin")
		}
	}
	return sch, nil
}
