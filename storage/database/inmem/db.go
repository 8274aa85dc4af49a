// Package inmemdb is the in-memory storage backend, used as a test fixture
// and for local development without Postgres. Tenant-scoped tables live in
// per-partition maps keyed by the schema name pinned to the request context;
// schools and users are shared system-wide, as in the SQL backend.
package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/shule/core/academics"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/profile"
	"github.com/trezcool/shule/core/report"
	"github.com/trezcool/shule/core/tenant"
	"github.com/trezcool/shule/core/user"
)

type (
	// partition holds one tenant's tables.
	partition struct {
		admins   map[string]*profile.Admin
		teachers map[string]*profile.Teacher
		students map[string]*profile.Student
		parents  map[string]*profile.Parent

		classLevels map[string]*academics.ClassLevel
		subjects    map[string]*academics.Subject

		attendance map[string]*attendance.Record

		dailyReports  map[string]*report.DailyReport
		weeklyReports map[string]*report.WeeklyReport
		termReports   map[string]*report.TermReport
	}

	DB struct {
		mutex sync.RWMutex

		schools map[string]*tenant.School
		users   map[string]*user.User

		partitions map[string]*partition
	}
)

func NewDB() *DB {
	return &DB{
		schools:    make(map[string]*tenant.School),
		users:      make(map[string]*user.User),
		partitions: make(map[string]*partition),
	}
}

// partition returns the tables for the schema pinned to ctx, creating them on
// first touch. Callers must hold the mutex.
func (db *DB) partition(ctx context.Context) *partition {
	schema := tenant.SchemaFromContext(ctx)
	p, ok := db.partitions[schema]
	if !ok {
		p = &partition{
			admins:        make(map[string]*profile.Admin),
			teachers:      make(map[string]*profile.Teacher),
			students:      make(map[string]*profile.Student),
			parents:       make(map[string]*profile.Parent),
			classLevels:   make(map[string]*academics.ClassLevel),
			subjects:      make(map[string]*academics.Subject),
			attendance:    make(map[string]*attendance.Record),
			dailyReports:  make(map[string]*report.DailyReport),
			weeklyReports: make(map[string]*report.WeeklyReport),
			termReports:   make(map[string]*report.TermReport),
		}
		db.partitions[schema] = p
	}
	return p
}
