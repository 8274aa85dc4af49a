package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/profile"
)

type profileRepository struct {
	db *DB
}

func NewProfileRepository(db *DB) profile.Repository {
	return &profileRepository{db: db}
}

// ---------------------------------------------------------------------------
// admins

func (repo *profileRepository) CreateAdmin(ctx context.Context, adm profile.Admin) (profile.Admin, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	adm.ID = uuid.NewString()
	repo.db.partition(ctx).admins[adm.ID] = &adm
	return adm, nil
}

func (repo *profileRepository) GetAdminByUserID(ctx context.Context, userID string) (profile.Admin, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, adm := range repo.db.partition(ctx).admins {
		if adm.UserID == userID {
			return *adm, nil
		}
	}
	return profile.Admin{}, profile.ErrNotFound
}

func (repo *profileRepository) QueryAllAdmins(ctx context.Context) ([]profile.Admin, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tbl := repo.db.partition(ctx).admins
	admins := make([]profile.Admin, 0, len(tbl))
	for _, adm := range tbl {
		admins = append(admins, *adm)
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].ID < admins[j].ID })
	return admins, nil
}

// ---------------------------------------------------------------------------
// teachers

func (repo *profileRepository) CreateTeacher(ctx context.Context, tch profile.Teacher) (profile.Teacher, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	tch.ID = uuid.NewString()
	repo.db.partition(ctx).teachers[tch.ID] = &tch
	return tch, nil
}

func (repo *profileRepository) GetTeacherByID(ctx context.Context, id string) (profile.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if tch, ok := repo.db.partition(ctx).teachers[id]; ok {
		return *tch, nil
	}
	return profile.Teacher{}, profile.ErrNotFound
}

func (repo *profileRepository) GetTeacherByUserID(ctx context.Context, userID string) (profile.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, tch := range repo.db.partition(ctx).teachers {
		if tch.UserID == userID {
			return *tch, nil
		}
	}
	return profile.Teacher{}, profile.ErrNotFound
}

func (repo *profileRepository) QueryAllTeachers(ctx context.Context) ([]profile.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tbl := repo.db.partition(ctx).teachers
	teachers := make([]profile.Teacher, 0, len(tbl))
	for _, tch := range tbl {
		teachers = append(teachers, *tch)
	}
	sort.Slice(teachers, func(i, j int) bool { return teachers[i].ID < teachers[j].ID })
	return teachers, nil
}

func (repo *profileRepository) DeleteTeacher(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.partition(ctx).teachers, id)
	return nil
}

// ---------------------------------------------------------------------------
// students

func (repo *profileRepository) CreateStudent(ctx context.Context, st profile.Student) (profile.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p := repo.db.partition(ctx)
	for _, other := range p.students {
		if other.AdmissionNumber == st.AdmissionNumber {
			return profile.Student{}, profile.ErrAdmissionNumberExists
		}
	}

	st.ID = uuid.NewString()
	p.students[st.ID] = &st
	return st, nil
}

func (repo *profileRepository) GetStudentByID(ctx context.Context, id string) (profile.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if st, ok := repo.db.partition(ctx).students[id]; ok {
		return *st, nil
	}
	return profile.Student{}, profile.ErrNotFound
}

func (repo *profileRepository) GetStudentByUserID(ctx context.Context, userID string) (profile.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, st := range repo.db.partition(ctx).students {
		if st.UserID == userID {
			return *st, nil
		}
	}
	return profile.Student{}, profile.ErrNotFound
}

func (repo *profileRepository) QueryAllStudents(ctx context.Context) ([]profile.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tbl := repo.db.partition(ctx).students
	students := make([]profile.Student, 0, len(tbl))
	for _, st := range tbl {
		students = append(students, *st)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students, nil
}

func (repo *profileRepository) QueryStudentsByClassLevelID(ctx context.Context, classLevelID string) ([]profile.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var students []profile.Student
	for _, st := range repo.db.partition(ctx).students {
		if st.ClassLevelID == classLevelID {
			students = append(students, *st)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students, nil
}

func (repo *profileRepository) UpdateStudent(ctx context.Context, st profile.Student) (profile.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p := repo.db.partition(ctx)
	if _, ok := p.students[st.ID]; !ok {
		return profile.Student{}, profile.ErrNotFound
	}
	p.students[st.ID] = &st
	return st, nil
}

func (repo *profileRepository) DeleteStudent(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p := repo.db.partition(ctx)
	delete(p.students, id)
	for _, par := range p.parents {
		par.ChildIDs = removeID(par.ChildIDs, id)
	}
	return nil
}

// ---------------------------------------------------------------------------
// parents

func (repo *profileRepository) CreateParent(ctx context.Context, par profile.Parent) (profile.Parent, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	par.ID = uuid.NewString()
	repo.db.partition(ctx).parents[par.ID] = &par
	return par, nil
}

func (repo *profileRepository) GetParentByID(ctx context.Context, id string) (profile.Parent, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if par, ok := repo.db.partition(ctx).parents[id]; ok {
		return *par, nil
	}
	return profile.Parent{}, profile.ErrNotFound
}

func (repo *profileRepository) GetParentByUserID(ctx context.Context, userID string) (profile.Parent, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, par := range repo.db.partition(ctx).parents {
		if par.UserID == userID {
			return *par, nil
		}
	}
	return profile.Parent{}, profile.ErrNotFound
}

func (repo *profileRepository) ParentHasChild(ctx context.Context, parentID, studentID string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	par, ok := repo.db.partition(ctx).parents[parentID]
	if !ok {
		return false, profile.ErrNotFound
	}
	for _, id := range par.ChildIDs {
		if id == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *profileRepository) AddParentChild(ctx context.Context, parentID, studentID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	par, ok := repo.db.partition(ctx).parents[parentID]
	if !ok {
		return profile.ErrNotFound
	}
	for _, id := range par.ChildIDs {
		if id == studentID {
			return nil
		}
	}
	par.ChildIDs = append(par.ChildIDs, studentID)
	return nil
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
