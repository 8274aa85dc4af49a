package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

// Status of a student on a given day.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusExcused Status = "excused"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusExcused:
		return true
	}
	return false
}

type (
	// Record is one student's attendance for one date. At most one record
	// exists per (student, date); writes overwrite.
	Record struct {
		ID           string    `json:"id"`
		StudentID    string    `json:"student_id"`
		Date         time.Time `json:"date"`
		Status       Status    `json:"status"`
		TimeIn       string    `json:"time_in,omitempty"`
		TimeOut      string    `json:"time_out,omitempty"`
		Notes        string    `json:"notes,omitempty"`
		RecordedByID string    `json:"recorded_by_id,omitempty"`
		CreatedAt    time.Time `json:"created_at"`
		UpdatedAt    time.Time `json:"updated_at"`
	}

	UpsertRecord struct {
		StudentID string `json:"student_id" validate:"required"`
		Date      string `json:"date" validate:"required,datetime=2006-01-02"`
		Status    Status `json:"status" validate:"required,oneof=present absent late excused"`
		TimeIn    string `json:"time_in"`
		TimeOut   string `json:"time_out"`
		Notes     string `json:"notes"`
	}

	// BulkEntry is one row of a bulk upsert; the date comes from the batch.
	BulkEntry struct {
		StudentID string `json:"student_id" validate:"required"`
		Status    Status `json:"status" validate:"required,oneof=present absent late excused"`
		TimeIn    string `json:"time_in"`
		TimeOut   string `json:"time_out"`
		Notes     string `json:"notes"`
	}

	BulkUpsert struct {
		Date    string      `json:"date" validate:"required,datetime=2006-01-02"`
		Entries []BulkEntry `json:"entries" validate:"required,min=1,dive"`
	}

	// StudentSummary aggregates one student's attendance over a date range.
	StudentSummary struct {
		StudentID string  `json:"student_id"`
		Present   int     `json:"present"`
		Absent    int     `json:"absent"`
		Late      int     `json:"late"`
		Excused   int     `json:"excused"`
		Total     int     `json:"total"`
		Rate      float64 `json:"rate"`
	}

	// SummaryFilter narrows a range summary to one student or one class.
	SummaryFilter struct {
		StudentID    string
		ClassLevelID string
	}
)

func (ur *UpsertRecord) Validate(validate *validator.Validate) error {
	ur.Notes = core.CleanString(ur.Notes)
	return validate.Struct(ur)
}

func (bu *BulkUpsert) Validate(validate *validator.Validate) error {
	for i := range bu.Entries {
		bu.Entries[i].Notes = core.CleanString(bu.Entries[i].Notes)
	}
	return validate.Struct(bu)
}
