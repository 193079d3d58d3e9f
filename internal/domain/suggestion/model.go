package suggestion

import (
	"time"

	"github.com/google/uuid"
)

// Coding systems accepted for diagnosis matching. Criteria and diagnoses only
// ever match within the same system.
const (
	CodingICD10  = "ICD-10"
	CodingSNOMED = "SNOMED"
)

// Suggestion lifecycle states. PENDING is the only non-terminal state;
// transitions are one-way.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// DiagnosisCode is a coded diagnosis assembled for one matching run. It is
// computed per request and never persisted: the origin fields record whether
// the code came from the patient record or from a condition preset attached
// to an active enrollment.
type DiagnosisCode struct {
	Code               string     `json:"code"`
	CodingSystem       string     `json:"coding_system"`
	Display            string     `json:"display"`
	OriginEnrollmentID *uuid.UUID `json:"origin_enrollment_id,omitempty"`
	OriginLabel        string     `json:"origin_label"`
}

// CriteriaCode is one matchable entry in a template's criteria list. Code may
// end in a wildcard segment ("J44.*"), which matches any suffix within the
// same coding system.
type CriteriaCode struct {
	Code         string `json:"code"`
	CodingSystem string `json:"coding_system"`
	Display      string `json:"display,omitempty"`
}

// DiagnosisCriteria defines what a patient's diagnosis set must look like for
// a package template to fit.
type DiagnosisCriteria struct {
	Primary              []CriteriaCode `json:"primary"`
	Secondary            []CriteriaCode `json:"secondary"`
	MinPrimaryMatches    int            `json:"min_primary_matches"`
	PreferMultiMorbidity bool           `json:"prefer_multi_morbidity"`
}

// ProgramOption is one billable care program a template can materialize into.
type ProgramOption struct {
	ProgramType        string `json:"program_type"`
	BillingProgramCode string `json:"billing_program_code"`
	Priority           int    `json:"priority"`
	Rationale          string `json:"rationale,omitempty"`
}

// ProgramCombination groups a template's candidate program options with the
// devices and metrics recommended alongside them.
type ProgramCombination struct {
	Programs           []ProgramOption `json:"programs"`
	RequiredDevices    []string        `json:"required_devices,omitempty"`
	RecommendedMetrics []string        `json:"recommended_metrics,omitempty"`
}

// PackageTemplate is a catalog entry mapping diagnosis criteria to billable
// program combinations. OrganizationID is nil for platform-standard entries,
// which are visible to every organization.
type PackageTemplate struct {
	ID                  uuid.UUID          `db:"id" json:"id"`
	Code                string             `db:"code" json:"code"`
	Name                string             `db:"name" json:"name"`
	Category            string             `db:"category" json:"category"`
	IsStandardized      bool               `db:"is_standardized" json:"is_standardized"`
	OrganizationID      *uuid.UUID         `db:"organization_id" json:"organization_id,omitempty"`
	IsActive            bool               `db:"is_active" json:"is_active"`
	DiagnosisCriteria   DiagnosisCriteria  `db:"diagnosis_criteria" json:"diagnosis_criteria"`
	ProgramCombinations ProgramCombination `db:"program_combinations" json:"program_combinations"`
	UsageCount          int                `db:"usage_count" json:"usage_count"`
	LastUsedAt          *time.Time         `db:"last_used_at" json:"last_used_at,omitempty"`
	CreatedAt           time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time          `db:"updated_at" json:"updated_at"`
}

// VisibleTo reports whether this template may be offered to the organization.
func (t *PackageTemplate) VisibleTo(orgID uuid.UUID) bool {
	return t.OrganizationID == nil || *t.OrganizationID == orgID
}

// MatchedCode records one satisfied criteria entry: the diagnosis that
// satisfied it and the criteria pattern it satisfied.
type MatchedCode struct {
	Code         string `json:"code"`
	CodingSystem string `json:"coding_system"`
	Display      string `json:"display,omitempty"`
	MatchedBy    string `json:"matched_by"`
}

// MatchResult is the outcome of matching one patient's diagnosis set against
// one template's criteria.
type MatchResult struct {
	Score            int           `json:"score"`
	MatchedPrimary   []MatchedCode `json:"matched_primary"`
	MatchedSecondary []MatchedCode `json:"matched_secondary"`
	TotalMatched     int           `json:"total_matched"`
	MeetsMinimum     bool          `json:"meets_minimum"`
}

// MatchedDiagnoses is the audit payload persisted on a suggestion.
type MatchedDiagnoses struct {
	Primary      []MatchedCode `json:"primary"`
	Secondary    []MatchedCode `json:"secondary"`
	TotalMatched int           `json:"total_matched"`
	MeetsMinimum bool          `json:"meets_minimum"`
}

// SuggestedPrograms is the persisted program payload. Programs holds only the
// options the organization is allowed to bill; unsupported options are
// dropped before persistence, not hidden.
type SuggestedPrograms struct {
	Programs           []ProgramOption `json:"programs"`
	RequiredDevices    []string        `json:"required_devices,omitempty"`
	RecommendedMetrics []string        `json:"recommended_metrics,omitempty"`
}

// Suggestion maps to the billing_suggestion table. Rows are never deleted;
// once a terminal transition is recorded the audit fields are never
// overwritten.
type Suggestion struct {
	ID                   uuid.UUID         `db:"id" json:"id"`
	OrganizationID       uuid.UUID         `db:"organization_id" json:"organization_id"`
	PatientID            uuid.UUID         `db:"patient_id" json:"patient_id"`
	PackageTemplateID    uuid.UUID         `db:"package_template_id" json:"package_template_id"`
	MatchScore           int               `db:"match_score" json:"match_score"`
	MatchedDiagnoses     MatchedDiagnoses  `db:"matched_diagnoses" json:"matched_diagnoses"`
	SuggestedPrograms    SuggestedPrograms `db:"suggested_programs" json:"suggested_programs"`
	Status               string            `db:"status" json:"status"`
	SourceType           string            `db:"source_type" json:"source_type,omitempty"`
	SourceID             *string           `db:"source_id" json:"source_id,omitempty"`
	CreatedEnrollmentIDs []uuid.UUID       `db:"created_enrollment_ids" json:"created_enrollment_ids"`
	ReviewedByID         *uuid.UUID        `db:"reviewed_by_id" json:"reviewed_by_id,omitempty"`
	ReviewedAt           *time.Time        `db:"reviewed_at" json:"reviewed_at,omitempty"`
	RejectionReason      *string           `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt            time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time         `db:"updated_at" json:"updated_at"`
}

// IsTerminal reports whether the suggestion has been reviewed.
func (s *Suggestion) IsTerminal() bool {
	return s.Status == StatusApproved || s.Status == StatusRejected
}
