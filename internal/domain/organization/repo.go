package organization

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, o *Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	Update(ctx context.Context, o *Organization) error
	List(ctx context.Context, limit, offset int) ([]*Organization, int, error)
	// UpdateSupportedPrograms replaces the supported-billing-program list.
	UpdateSupportedPrograms(ctx context.Context, id uuid.UUID, programs []string) error
}
