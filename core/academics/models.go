package academics

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

type (
	// ClassLevel is a grade/class within a school, e.g. "Grade 1" or
	// "Toddlers A".
	ClassLevel struct {
		ID             string    `json:"id"`
		Name           string    `json:"name"`
		Code           string    `json:"code"` // unique per tenant
		AgeRange       string    `json:"age_range,omitempty"`
		IsToddlerClass bool      `json:"is_toddler_class"`
		SubjectIDs     []string  `json:"subject_ids,omitempty"`
		CreatedAt      time.Time `json:"created_at"`
	}

	Subject struct {
		ID              string    `json:"id"`
		Name            string    `json:"name"`
		Code            string    `json:"code"` // unique per tenant
		Description     string    `json:"description,omitempty"`
		ClassLevelNames []string  `json:"class_level_names,omitempty"`
		CreatedAt       time.Time `json:"created_at"`
	}

	NewClassLevel struct {
		Name           string   `json:"name" validate:"required"`
		Code           string   `json:"code" validate:"required,alphanum_"`
		AgeRange       string   `json:"age_range"`
		IsToddlerClass bool     `json:"is_toddler_class"`
		SubjectIDs     []string `json:"subject_ids"`
	}

	NewSubject struct {
		Name            string   `json:"name" validate:"required"`
		Code            string   `json:"code" validate:"required,alphanum_"`
		Description     string   `json:"description"`
		ClassLevelNames []string `json:"class_level_names"`
	}
)

func (ncl *NewClassLevel) Validate(validate *validator.Validate) error {
	ncl.Name = core.CleanString(ncl.Name)
	ncl.Code = core.CleanString(ncl.Code)
	ncl.AgeRange = core.CleanString(ncl.AgeRange)
	return validate.Struct(ncl)
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = core.CleanString(ns.Code)
	ns.Description = core.CleanString(ns.Description)
	return validate.Struct(ns)
}
