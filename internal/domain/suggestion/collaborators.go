package suggestion

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Collaborator interfaces consumed by the engine. The production
// implementations are thin adapters over the patient, organization, and
// program domain repositories, wired up in main; tests provide in-memory
// fakes. Lookup methods return (nil, nil) when nothing matches, so callers
// can distinguish absence from infrastructure failure.

// PatientSource reads the pieces of the patient record the engine needs.
type PatientSource interface {
	// OrganizationID returns the owning organization of a patient, or
	// uuid.Nil when the patient does not exist.
	OrganizationID(ctx context.Context, patientID uuid.UUID) (uuid.UUID, error)
	// Diagnoses returns the manually entered diagnosis codes on the patient
	// record.
	Diagnoses(ctx context.Context, patientID uuid.UUID) ([]DiagnosisCode, error)
}

// ActiveEnrollment is one of a patient's currently active program
// enrollments, carrying the diagnoses of its attached condition preset.
type ActiveEnrollment struct {
	ID         uuid.UUID
	PresetName string
	Diagnoses  []CriteriaCode
}

// EnrollmentRef identifies an existing enrollment row during approval.
type EnrollmentRef struct {
	ID               uuid.UUID
	BillingProgramID *uuid.UUID
}

// NewEnrollment describes an enrollment the materializer wants created.
type NewEnrollment struct {
	PatientID         uuid.UUID
	CareProgramID     uuid.UUID
	BillingProgramID  uuid.UUID
	ConditionPresetID *uuid.UUID
	ClinicianID       *uuid.UUID
	StartDate         time.Time
}

// EnrollmentSource reads and writes program enrollments.
type EnrollmentSource interface {
	ActiveForPatient(ctx context.Context, patientID uuid.UUID) ([]ActiveEnrollment, error)
	// FindSameDay returns an enrollment for the same patient, care program,
	// and calendar day that is either unlinked or already linked to the
	// given billing program, or nil. Enrollments linked to a different
	// billing program are not duplicates; each program in an approval gets
	// its own row.
	FindSameDay(ctx context.Context, patientID, careProgramID, billingProgramID uuid.UUID, day time.Time) (*EnrollmentRef, error)
	Create(ctx context.Context, enr NewEnrollment) (uuid.UUID, error)
	// LinkBillingProgram backfills the billing-program link on an existing
	// enrollment that was created without one.
	LinkBillingProgram(ctx context.Context, enrollmentID, billingProgramID uuid.UUID) error
}

// BillingProgramRef is a resolved billing-program catalog entry.
type BillingProgramRef struct {
	ID          uuid.UUID
	Code        string
	ProgramType string
}

// BillingProgramSource resolves active billing programs by code.
type BillingProgramSource interface {
	ActiveByCode(ctx context.Context, code string) (*BillingProgramRef, error)
}

// PresetRef is a resolved condition preset.
type PresetRef struct {
	ID             uuid.UUID
	Name           string
	OrganizationID *uuid.UUID
}

// ConditionPresetSource resolves condition presets and clones standardized
// ones into organization-owned copies.
type ConditionPresetSource interface {
	ForOrganization(ctx context.Context, orgID uuid.UUID, name string) (*PresetRef, error)
	Standardized(ctx context.Context, name string) (*PresetRef, error)
	CloneForOrganization(ctx context.Context, presetID, orgID uuid.UUID) (*PresetRef, error)
}

// CareProgramRef is a resolved care-program container.
type CareProgramRef struct {
	ID   uuid.UUID
	Name string
}

// CareProgramSource finds the enrollment container for an organization.
type CareProgramSource interface {
	ActiveForOrganization(ctx context.Context, orgID uuid.UUID) (*CareProgramRef, error)
}

// OrganizationSettingsSource reads billing settings. An empty supported list
// means the organization accepts all program types.
type OrganizationSettingsSource interface {
	SupportedBillingPrograms(ctx context.Context, orgID uuid.UUID) ([]string, error)
}
