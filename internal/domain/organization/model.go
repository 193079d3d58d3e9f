package organization

import (
	"time"

	"github.com/google/uuid"
)

// Organization maps to the organization table. SupportedBillingPrograms is
// the list of program types the organization may bill; an empty list means
// the organization accepts every program type.
type Organization struct {
	ID                       uuid.UUID `db:"id" json:"id"`
	Name                     string    `db:"name" json:"name"`
	Status                   string    `db:"status" json:"status"`
	SupportedBillingPrograms []string  `db:"supported_billing_programs" json:"supported_billing_programs"`
	CreatedAt                time.Time `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time `db:"updated_at" json:"updated_at"`
}
