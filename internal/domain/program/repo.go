package program

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Lookup methods on all repositories return (nil, nil) when nothing matches.

type BillingProgramRepository interface {
	Create(ctx context.Context, bp *BillingProgram) error
	GetByID(ctx context.Context, id uuid.UUID) (*BillingProgram, error)
	// ActiveByCode resolves an active catalog entry by its billing code.
	ActiveByCode(ctx context.Context, code string) (*BillingProgram, error)
	List(ctx context.Context, limit, offset int) ([]*BillingProgram, int, error)
}

type ConditionPresetRepository interface {
	Create(ctx context.Context, p *ConditionPreset) error
	GetByID(ctx context.Context, id uuid.UUID) (*ConditionPreset, error)
	// FindForOrganization resolves an active org-owned preset by name.
	FindForOrganization(ctx context.Context, orgID uuid.UUID, name string) (*ConditionPreset, error)
	// FindStandardized resolves an active platform-standard preset by name.
	FindStandardized(ctx context.Context, name string) (*ConditionPreset, error)
	// Clone copies a preset and its diagnoses into an organization-owned,
	// non-standardized copy.
	Clone(ctx context.Context, presetID, orgID uuid.UUID) (*ConditionPreset, error)
	ListForOrganization(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*ConditionPreset, int, error)
}

type CareProgramRepository interface {
	Create(ctx context.Context, cp *CareProgram) error
	GetByID(ctx context.Context, id uuid.UUID) (*CareProgram, error)
	// ActiveForOrganization returns the organization's oldest active care
	// program, or nil when it has none.
	ActiveForOrganization(ctx context.Context, orgID uuid.UUID) (*CareProgram, error)
	ListForOrganization(ctx context.Context, orgID uuid.UUID) ([]*CareProgram, error)
}

type EnrollmentRepository interface {
	Create(ctx context.Context, e *Enrollment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Enrollment, error)
	// ListActiveForPatient returns the patient's ACTIVE enrollments joined
	// with their condition-preset diagnoses.
	ListActiveForPatient(ctx context.Context, patientID uuid.UUID) ([]*EnrollmentWithPreset, error)
	// FindSameDay returns an enrollment for the same patient, care program,
	// and start date, regardless of status. When billingProgramID is set,
	// only rows without a billing link or linked to that billing program
	// match; rows linked to a different billing program are not duplicates.
	FindSameDay(ctx context.Context, patientID, careProgramID uuid.UUID, billingProgramID *uuid.UUID, day time.Time) (*Enrollment, error)
	// LinkBillingProgram sets the billing-program reference on an enrollment
	// created without one.
	LinkBillingProgram(ctx context.Context, enrollmentID, billingProgramID uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Enrollment, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, endDate *time.Time) error
}
