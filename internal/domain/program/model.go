package program

import (
	"time"

	"github.com/google/uuid"
)

// Enrollment lifecycle states. ACTIVE enrollments contribute their preset
// diagnoses to billing-suggestion matching.
const (
	EnrollmentActive    = "ACTIVE"
	EnrollmentCompleted = "COMPLETED"
	EnrollmentCancelled = "CANCELLED"
)

// BillingProgram is a catalog entry for one billable program code (for
// example CPT 99454 under RPM). Codes are unique among active entries.
type BillingProgram struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	ProgramType string    `db:"program_type" json:"program_type"`
	Description string    `db:"description" json:"description,omitempty"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ConditionPreset is a named bundle of diagnosis codes attached to
// enrollments. OrganizationID is nil for standardized presets, which act as
// platform-wide sources that organizations clone before use.
type ConditionPreset struct {
	ID             uuid.UUID         `db:"id" json:"id"`
	Name           string            `db:"name" json:"name"`
	OrganizationID *uuid.UUID        `db:"organization_id" json:"organization_id,omitempty"`
	IsStandardized bool              `db:"is_standardized" json:"is_standardized"`
	IsActive       bool              `db:"is_active" json:"is_active"`
	Diagnoses      []PresetDiagnosis `json:"diagnoses,omitempty"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}

// PresetDiagnosis is one coded diagnosis inside a condition preset.
type PresetDiagnosis struct {
	ID           uuid.UUID `db:"id" json:"id"`
	PresetID     uuid.UUID `db:"preset_id" json:"preset_id"`
	Code         string    `db:"code" json:"code"`
	CodingSystem string    `db:"coding_system" json:"coding_system"`
	Display      string    `db:"display" json:"display,omitempty"`
}

// CareProgram is the enrollment container an organization runs. Suggestions
// materialize enrollments into the organization's active care program.
type CareProgram struct {
	ID             uuid.UUID `db:"id" json:"id"`
	OrganizationID uuid.UUID `db:"organization_id" json:"organization_id"`
	Name           string    `db:"name" json:"name"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Enrollment ties a patient into a care program, optionally under a billing
// program and a condition preset.
type Enrollment struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	PatientID         uuid.UUID  `db:"patient_id" json:"patient_id"`
	CareProgramID     uuid.UUID  `db:"care_program_id" json:"care_program_id"`
	BillingProgramID  *uuid.UUID `db:"billing_program_id" json:"billing_program_id,omitempty"`
	ConditionPresetID *uuid.UUID `db:"condition_preset_id" json:"condition_preset_id,omitempty"`
	ClinicianID       *uuid.UUID `db:"clinician_id" json:"clinician_id,omitempty"`
	Status            string     `db:"status" json:"status"`
	StartDate         time.Time  `db:"start_date" json:"start_date"`
	EndDate           *time.Time `db:"end_date" json:"end_date,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// EnrollmentWithPreset is an enrollment joined with the name and diagnoses of
// its condition preset, as consumed by diagnosis collection.
type EnrollmentWithPreset struct {
	Enrollment
	PresetName      string            `json:"preset_name,omitempty"`
	PresetDiagnoses []PresetDiagnosis `json:"preset_diagnoses,omitempty"`
}
