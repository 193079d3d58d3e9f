package program

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var validProgramTypes = map[string]bool{
	"RPM": true, "CCM": true, "RTM": true, "PCM": true, "BHI": true,
}

var validEnrollmentStatuses = map[string]bool{
	EnrollmentActive: true, EnrollmentCompleted: true, EnrollmentCancelled: true,
}

var validCodingSystems = map[string]bool{
	"ICD-10": true, "SNOMED": true,
}

type Service struct {
	billingPrograms BillingProgramRepository
	presets         ConditionPresetRepository
	carePrograms    CareProgramRepository
	enrollments     EnrollmentRepository
}

func NewService(billingPrograms BillingProgramRepository, presets ConditionPresetRepository,
	carePrograms CareProgramRepository, enrollments EnrollmentRepository) *Service {
	return &Service{
		billingPrograms: billingPrograms,
		presets:         presets,
		carePrograms:    carePrograms,
		enrollments:     enrollments,
	}
}

// --- Billing program catalog ---

func (s *Service) CreateBillingProgram(ctx context.Context, bp *BillingProgram) error {
	if bp.Code == "" {
		return fmt.Errorf("code is required")
	}
	if !validProgramTypes[bp.ProgramType] {
		return fmt.Errorf("invalid program type: %s", bp.ProgramType)
	}
	existing, err := s.billingPrograms.ActiveByCode(ctx, bp.Code)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("billing program code %s already exists", bp.Code)
	}
	bp.IsActive = true
	return s.billingPrograms.Create(ctx, bp)
}

func (s *Service) GetBillingProgram(ctx context.Context, id uuid.UUID) (*BillingProgram, error) {
	return s.billingPrograms.GetByID(ctx, id)
}

func (s *Service) ListBillingPrograms(ctx context.Context, limit, offset int) ([]*BillingProgram, int, error) {
	return s.billingPrograms.List(ctx, limit, offset)
}

// --- Condition presets ---

func (s *Service) CreatePreset(ctx context.Context, p *ConditionPreset) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.IsStandardized && p.OrganizationID != nil {
		return fmt.Errorf("standardized presets cannot belong to an organization")
	}
	if !p.IsStandardized && p.OrganizationID == nil {
		return fmt.Errorf("organization presets require an organization")
	}
	for _, d := range p.Diagnoses {
		if d.Code == "" {
			return fmt.Errorf("diagnosis code is required")
		}
		if !validCodingSystems[d.CodingSystem] {
			return fmt.Errorf("invalid coding system: %s", d.CodingSystem)
		}
	}
	p.IsActive = true
	return s.presets.Create(ctx, p)
}

func (s *Service) GetPreset(ctx context.Context, id uuid.UUID) (*ConditionPreset, error) {
	return s.presets.GetByID(ctx, id)
}

func (s *Service) ListPresets(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*ConditionPreset, int, error) {
	return s.presets.ListForOrganization(ctx, orgID, limit, offset)
}

// --- Care programs ---

func (s *Service) CreateCareProgram(ctx context.Context, cp *CareProgram) error {
	if cp.Name == "" {
		return fmt.Errorf("name is required")
	}
	if cp.OrganizationID == uuid.Nil {
		return fmt.Errorf("organization is required")
	}
	cp.IsActive = true
	return s.carePrograms.Create(ctx, cp)
}

func (s *Service) ListCarePrograms(ctx context.Context, orgID uuid.UUID) ([]*CareProgram, error) {
	return s.carePrograms.ListForOrganization(ctx, orgID)
}

// --- Enrollments ---

// Enroll creates an enrollment directly, outside the suggestion flow. The
// same-day duplicate guard mirrors the one applied during suggestion
// approval.
func (s *Service) Enroll(ctx context.Context, e *Enrollment) error {
	if e.PatientID == uuid.Nil {
		return fmt.Errorf("patient is required")
	}
	cp, err := s.carePrograms.GetByID(ctx, e.CareProgramID)
	if err != nil {
		return err
	}
	if cp == nil {
		return fmt.Errorf("care program %s not found", e.CareProgramID)
	}
	if e.StartDate.IsZero() {
		e.StartDate = time.Now().UTC()
	}
	dup, err := s.enrollments.FindSameDay(ctx, e.PatientID, e.CareProgramID, e.BillingProgramID, e.StartDate)
	if err != nil {
		return err
	}
	if dup != nil {
		return fmt.Errorf("patient already enrolled in care program %s on %s",
			e.CareProgramID, e.StartDate.Format("2006-01-02"))
	}
	return s.enrollments.Create(ctx, e)
}

func (s *Service) GetEnrollment(ctx context.Context, id uuid.UUID) (*Enrollment, error) {
	return s.enrollments.GetByID(ctx, id)
}

func (s *Service) ListEnrollments(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Enrollment, int, error) {
	return s.enrollments.ListByPatient(ctx, patientID, limit, offset)
}

// UpdateEnrollmentStatus moves an enrollment out of ACTIVE. Terminal
// enrollments stay terminal.
func (s *Service) UpdateEnrollmentStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !validEnrollmentStatuses[status] {
		return fmt.Errorf("invalid enrollment status: %s", status)
	}
	e, err := s.enrollments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if e == nil {
		return fmt.Errorf("enrollment %s not found", id)
	}
	if e.Status != EnrollmentActive {
		return fmt.Errorf("enrollment %s is already %s", id, e.Status)
	}
	var endDate *time.Time
	if status != EnrollmentActive {
		now := time.Now().UTC()
		endDate = &now
	}
	return s.enrollments.UpdateStatus(ctx, id, status, endDate)
}
