package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/academics"
)

type academicsRepository struct {
	db *DB
}

func NewAcademicsRepository(db *DB) academics.Repository {
	return &academicsRepository{db: db}
}

func (repo *academicsRepository) CreateClassLevel(ctx context.Context, cl academics.ClassLevel) (academics.ClassLevel, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cl.ID = uuid.NewString()
	repo.db.partition(ctx).classLevels[cl.ID] = &cl
	return cl, nil
}

func (repo *academicsRepository) GetClassLevelByID(ctx context.Context, id string) (academics.ClassLevel, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cl, ok := repo.db.partition(ctx).classLevels[id]; ok {
		return *cl, nil
	}
	return academics.ClassLevel{}, academics.ErrNotFound
}

func (repo *academicsRepository) GetClassLevelByCode(ctx context.Context, code string) (academics.ClassLevel, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, cl := range repo.db.partition(ctx).classLevels {
		if strings.EqualFold(cl.Code, code) {
			return *cl, nil
		}
	}
	return academics.ClassLevel{}, academics.ErrNotFound
}

func (repo *academicsRepository) QueryAllClassLevels(ctx context.Context) ([]academics.ClassLevel, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tbl := repo.db.partition(ctx).classLevels
	levels := make([]academics.ClassLevel, 0, len(tbl))
	for _, cl := range tbl {
		levels = append(levels, *cl)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].Name < levels[j].Name })
	return levels, nil
}

func (repo *academicsRepository) UpdateClassLevel(ctx context.Context, cl academics.ClassLevel) (academics.ClassLevel, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p := repo.db.partition(ctx)
	if _, ok := p.classLevels[cl.ID]; !ok {
		return academics.ClassLevel{}, academics.ErrNotFound
	}
	p.classLevels[cl.ID] = &cl
	return cl, nil
}

func (repo *academicsRepository) DeleteClassLevel(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.partition(ctx).classLevels, id)
	return nil
}

func (repo *academicsRepository) CreateSubject(ctx context.Context, sub academics.Subject) (academics.Subject, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sub.ID = uuid.NewString()
	repo.db.partition(ctx).subjects[sub.ID] = &sub
	return sub, nil
}

func (repo *academicsRepository) GetSubjectByID(ctx context.Context, id string) (academics.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sub, ok := repo.db.partition(ctx).subjects[id]; ok {
		return *sub, nil
	}
	return academics.Subject{}, academics.ErrNotFound
}

func (repo *academicsRepository) GetSubjectByCode(ctx context.Context, code string) (academics.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, sub := range repo.db.partition(ctx).subjects {
		if strings.EqualFold(sub.Code, code) {
			return *sub, nil
		}
	}
	return academics.Subject{}, academics.ErrNotFound
}

func (repo *academicsRepository) QueryAllSubjects(ctx context.Context) ([]academics.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tbl := repo.db.partition(ctx).subjects
	subjects := make([]academics.Subject, 0, len(tbl))
	for _, sub := range tbl {
		subjects = append(subjects, *sub)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
	return subjects, nil
}

func (repo *academicsRepository) QuerySubjectsByClassLevelName(ctx context.Context, name string) ([]academics.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var subjects []academics.Subject
	for _, sub := range repo.db.partition(ctx).subjects {
		for _, n := range sub.ClassLevelNames {
			if strings.EqualFold(n, name) {
				subjects = append(subjects, *sub)
				break
			}
		}
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
	return subjects, nil
}

func (repo *academicsRepository) UpdateSubject(ctx context.Context, sub academics.Subject) (academics.Subject, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p := repo.db.partition(ctx)
	if _, ok := p.subjects[sub.ID]; !ok {
		return academics.Subject{}, academics.ErrNotFound
	}
	p.subjects[sub.ID] = &sub
	return sub, nil
}

func (repo *academicsRepository) DeleteSubject(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.partition(ctx).subjects, id)
	return nil
}
