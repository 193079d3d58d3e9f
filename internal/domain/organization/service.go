package organization

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

var validStatuses = map[string]bool{
	"active": true, "inactive": true,
}

// Program types an organization may declare support for.
var validProgramTypes = map[string]bool{
	"RPM": true, "CCM": true, "RTM": true, "PCM": true, "BHI": true,
}

type Service struct {
	orgs Repository
}

func NewService(orgs Repository) *Service {
	return &Service{orgs: orgs}
}

func (s *Service) Create(ctx context.Context, o *Organization) error {
	if o.Name == "" {
		return fmt.Errorf("name is required")
	}
	if o.Status == "" {
		o.Status = "active"
	}
	if !validStatuses[o.Status] {
		return fmt.Errorf("invalid organization status: %s", o.Status)
	}
	if err := validatePrograms(o.SupportedBillingPrograms); err != nil {
		return err
	}
	return s.orgs.Create(ctx, o)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return s.orgs.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, o *Organization) error {
	if o.Status != "" && !validStatuses[o.Status] {
		return fmt.Errorf("invalid organization status: %s", o.Status)
	}
	return s.orgs.Update(ctx, o)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Organization, int, error) {
	return s.orgs.List(ctx, limit, offset)
}

// SetSupportedPrograms replaces the billing-program allowlist. An empty list
// removes all restrictions.
func (s *Service) SetSupportedPrograms(ctx context.Context, id uuid.UUID, programs []string) error {
	if err := validatePrograms(programs); err != nil {
		return err
	}
	return s.orgs.UpdateSupportedPrograms(ctx, id, programs)
}

// SupportedBillingPrograms returns the organization's program allowlist.
func (s *Service) SupportedBillingPrograms(ctx context.Context, id uuid.UUID) ([]string, error) {
	o, err := s.orgs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("organization %s not found", id)
	}
	return o.SupportedBillingPrograms, nil
}

func validatePrograms(programs []string) error {
	for _, p := range programs {
		if !validProgramTypes[p] {
			return fmt.Errorf("unknown billing program type: %s", p)
		}
	}
	return nil
}
