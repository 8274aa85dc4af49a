package academics_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core/academics"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
)

func setup(t *testing.T) *academics.Service {
	t.Helper()
	return academics.NewService(inmemdb.NewAcademicsRepository(inmemdb.NewDB()))
}

func TestService_ClassLevels(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	cl, err := svc.CreateClassLevel(ctx, academics.NewClassLevel{
		Name:           "Toddlers A",
		Code:           "TODA",
		AgeRange:       "2-3",
		IsToddlerClass: true,
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, cl.ID)

	t.Run("codes are unique per tenant", func(t *testing.T) {
		_, err := svc.CreateClassLevel(ctx, academics.NewClassLevel{Name: "Toddlers B", Code: "TODA"})
		assert.Equal(t, academics.ErrCodeExists, errors.Cause(err))
	})

	t.Run("update keeps its own code", func(t *testing.T) {
		upd, err := svc.UpdateClassLevel(ctx, cl.ID, academics.NewClassLevel{
			Name:           "Toddlers A",
			Code:           "TODA", // unchanged: not a conflict with itself
			AgeRange:       "2-4",
			IsToddlerClass: true,
		})
		assert.NoError(t, err)
		assert.Equal(t, "2-4", upd.AgeRange)
	})

	t.Run("update to a taken code is rejected", func(t *testing.T) {
		other, err := svc.CreateClassLevel(ctx, academics.NewClassLevel{Name: "Grade 1", Code: "GR1"})
		assert.NoError(t, err)
		_, err = svc.UpdateClassLevel(ctx, other.ID, academics.NewClassLevel{Name: "Grade 1", Code: "TODA"})
		assert.Equal(t, academics.ErrCodeExists, errors.Cause(err))
	})

	t.Run("delete", func(t *testing.T) {
		assert.NoError(t, svc.DeleteClassLevel(ctx, cl.ID))
		_, err := svc.GetClassLevel(ctx, cl.ID)
		assert.Equal(t, academics.ErrNotFound, errors.Cause(err))
	})
}

func TestService_Subjects(t *testing.T) {
	ctx := context.Background()
	svc := setup(t)

	math, err := svc.CreateSubject(ctx, academics.NewSubject{
		Name:            "Mathematics",
		Code:            "MATH",
		ClassLevelNames: []string{"Grade 1", "Grade 2"},
	})
	assert.NoError(t, err)
	_, err = svc.CreateSubject(ctx, academics.NewSubject{
		Name:            "Art",
		Code:            "ART",
		ClassLevelNames: []string{"Toddlers A"},
	})
	assert.NoError(t, err)

	t.Run("duplicate code rejected", func(t *testing.T) {
		_, err := svc.CreateSubject(ctx, academics.NewSubject{Name: "Maths again", Code: "MATH"})
		assert.Equal(t, academics.ErrCodeExists, errors.Cause(err))
	})

	t.Run("list filtered by class level name", func(t *testing.T) {
		subs, err := svc.QuerySubjects(ctx, "Grade 1")
		assert.NoError(t, err)
		if assert.Len(t, subs, 1) {
			assert.Equal(t, math.ID, subs[0].ID)
		}

		all, err := svc.QuerySubjects(ctx, "")
		assert.NoError(t, err)
		assert.Len(t, all, 2)
	})
}
