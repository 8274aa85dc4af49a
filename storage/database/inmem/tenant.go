package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/tenant"
)

type schoolRepository struct {
	db *DB
}

func NewSchoolRepository(db *DB) tenant.Repository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CreateSchool(ctx context.Context, sch tenant.School) (tenant.School, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sch.ID = uuid.NewString()
	repo.db.schools[sch.ID] = &sch
	return sch, nil
}

func (repo *schoolRepository) GetSchoolByID(ctx context.Context, id string) (tenant.School, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sch, ok := repo.db.schools[id]; ok {
		return *sch, nil
	}
	return tenant.School{}, tenant.ErrNotFound
}

func (repo *schoolRepository) GetSchoolByName(ctx context.Context, name string) (tenant.School, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, sch := range repo.db.schools {
		if strings.EqualFold(sch.Name, name) {
			return *sch, nil
		}
	}
	return tenant.School{}, tenant.ErrNotFound
}

func (repo *schoolRepository) QueryAllSchools(ctx context.Context) ([]tenant.School, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	schools := make([]tenant.School, 0, len(repo.db.schools))
	for _, sch := range repo.db.schools {
		schools = append(schools, *sch)
	}
	sort.Slice(schools, func(i, j int) bool { return schools[i].Name < schools[j].Name })
	return schools, nil
}

func (repo *schoolRepository) DeleteSchool(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if sch, ok := repo.db.schools[id]; ok {
		delete(repo.db.partitions, sch.SchemaName)
	}
	delete(repo.db.schools, id)
	return nil
}
