package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	ListByOrganization(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*Patient, int, error)
	// Diagnoses
	AddDiagnosis(ctx context.Context, d *Diagnosis) error
	ListDiagnoses(ctx context.Context, patientID uuid.UUID) ([]*Diagnosis, error)
	RemoveDiagnosis(ctx context.Context, id uuid.UUID) error
}
