package suggestion

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TemplateRepository owns the package-template catalog.
type TemplateRepository interface {
	Create(ctx context.Context, t *PackageTemplate) error
	GetByID(ctx context.Context, id uuid.UUID) (*PackageTemplate, error)
	Update(ctx context.Context, t *PackageTemplate) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	// ListActiveForOrganization returns active templates visible to the
	// organization (org-owned plus platform-standard), in catalog order.
	ListActiveForOrganization(ctx context.Context, orgID uuid.UUID) ([]*PackageTemplate, error)
	List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*PackageTemplate, int, error)
	// IncrementUsage bumps the usage counter and stamps last_used_at.
	IncrementUsage(ctx context.Context, id uuid.UUID) error
}

// SuggestionRepository owns suggestion persistence. Status transitions go
// through the conditional methods so the PENDING check and the write are a
// single atomic statement.
type SuggestionRepository interface {
	// Create inserts a new PENDING suggestion. When a PENDING row already
	// exists for the same (patient, template) pair the insert is a no-op and
	// inserted is false; callers re-read the surviving row.
	Create(ctx context.Context, s *Suggestion) (inserted bool, err error)
	GetByID(ctx context.Context, id uuid.UUID) (*Suggestion, error)
	// FindPending returns the PENDING suggestion for a patient/template pair,
	// or nil.
	FindPending(ctx context.Context, patientID, templateID uuid.UUID) (*Suggestion, error)
	ListByPatient(ctx context.Context, patientID, orgID uuid.UUID, status string) ([]*Suggestion, error)
	// ApproveIfPending flips PENDING to APPROVED and records the reviewer,
	// returning nil when the suggestion is missing or no longer PENDING.
	ApproveIfPending(ctx context.Context, id, reviewerID uuid.UUID, at time.Time) (*Suggestion, error)
	// RejectIfPending flips PENDING to REJECTED with the reviewer and reason,
	// returning nil when the suggestion is missing or no longer PENDING.
	RejectIfPending(ctx context.Context, id, reviewerID uuid.UUID, at time.Time, reason string) (*Suggestion, error)
	// SetCreatedEnrollments records the enrollment ids materialized by an
	// approval. Written once, immediately after the terminal transition.
	SetCreatedEnrollments(ctx context.Context, id uuid.UUID, enrollmentIDs []uuid.UUID) error
}
