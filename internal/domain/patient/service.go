package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

var validStatuses = map[string]bool{
	"active": true, "inactive": true, "deceased": true,
}

var validCodingSystems = map[string]bool{
	"ICD-10": true, "SNOMED": true,
}

type Service struct {
	patients Repository
}

func NewService(patients Repository) *Service {
	return &Service{patients: patients}
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if p.OrganizationID == uuid.Nil {
		return fmt.Errorf("organization_id is required")
	}
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	if p.Status == "" {
		p.Status = "active"
	}
	if !validStatuses[p.Status] {
		return fmt.Errorf("invalid patient status: %s", p.Status)
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if p.Status != "" && !validStatuses[p.Status] {
		return fmt.Errorf("invalid patient status: %s", p.Status)
	}
	return s.patients.Update(ctx, p)
}

func (s *Service) ListByOrganization(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Patient, int, error) {
	return s.patients.ListByOrganization(ctx, orgID, limit, offset)
}

func (s *Service) AddDiagnosis(ctx context.Context, d *Diagnosis) error {
	if d.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if d.Code == "" {
		return fmt.Errorf("code is required")
	}
	if !validCodingSystems[d.CodingSystem] {
		return fmt.Errorf("invalid coding system: %s", d.CodingSystem)
	}
	return s.patients.AddDiagnosis(ctx, d)
}

func (s *Service) ListDiagnoses(ctx context.Context, patientID uuid.UUID) ([]*Diagnosis, error) {
	return s.patients.ListDiagnoses(ctx, patientID)
}

func (s *Service) RemoveDiagnosis(ctx context.Context, id uuid.UUID) error {
	return s.patients.RemoveDiagnosis(ctx, id)
}
