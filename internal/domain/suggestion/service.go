package suggestion

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Defaults applied when SuggestOptions leave a field unset.
const (
	DefaultMinMatchScore  = 50
	DefaultMaxSuggestions = 3
)

// SuggestOptions tunes one matching run.
type SuggestOptions struct {
	MinMatchScore  int
	MaxSuggestions int
	SourceType     string
	SourceID       string
}

func (o *SuggestOptions) normalize(minScore, maxResults int) {
	if o.MinMatchScore <= 0 {
		o.MinMatchScore = minScore
	}
	if o.MaxSuggestions <= 0 {
		o.MaxSuggestions = maxResults
	}
}

// ApproveOptions controls how an approved suggestion materializes into
// enrollments.
type ApproveOptions struct {
	ClinicianID *uuid.UUID
	StartDate   time.Time
	// SelectedProgramType, when set, narrows materialization to that single
	// program type out of the suggestion's retained programs.
	SelectedProgramType string
}

// Service drives the suggestion lifecycle: matching runs, review, and
// enrollment materialization.
type Service struct {
	templates   TemplateRepository
	suggestions SuggestionRepository
	collector   *Collector

	patients        PatientSource
	enrollments     EnrollmentSource
	billingPrograms BillingProgramSource
	presets         ConditionPresetSource
	carePrograms    CareProgramSource
	orgs            OrganizationSettingsSource

	logger zerolog.Logger

	minScore   int
	maxResults int
}

func NewService(
	templates TemplateRepository,
	suggestions SuggestionRepository,
	patients PatientSource,
	enrollments EnrollmentSource,
	billingPrograms BillingProgramSource,
	presets ConditionPresetSource,
	carePrograms CareProgramSource,
	orgs OrganizationSettingsSource,
	logger zerolog.Logger,
) *Service {
	return &Service{
		templates:       templates,
		suggestions:     suggestions,
		collector:       NewCollector(patients, enrollments),
		patients:        patients,
		enrollments:     enrollments,
		billingPrograms: billingPrograms,
		presets:         presets,
		carePrograms:    carePrograms,
		orgs:            orgs,
		logger:          logger,
		minScore:        DefaultMinMatchScore,
		maxResults:      DefaultMaxSuggestions,
	}
}

// SetDefaults overrides the built-in minimum score and result cap, typically
// from configuration. Per-request options still win.
func (s *Service) SetDefaults(minScore, maxResults int) {
	if minScore > 0 {
		s.minScore = minScore
	}
	if maxResults > 0 {
		s.maxResults = maxResults
	}
}

type candidate struct {
	template *PackageTemplate
	result   MatchResult
	programs []ProgramOption
}

// Suggest runs the matching pipeline for one patient and persists the top
// results as PENDING suggestions. Re-running without an intervening review
// returns the existing PENDING rows instead of creating duplicates.
func (s *Service) Suggest(ctx context.Context, patientID, orgID uuid.UUID, opts SuggestOptions) ([]*Suggestion, error) {
	opts.normalize(s.minScore, s.maxResults)

	patientOrg, err := s.patients.OrganizationID(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("resolve patient: %w", err)
	}
	if patientOrg == uuid.Nil || patientOrg != orgID {
		return nil, &NotFoundError{Resource: "patient", ID: patientID.String()}
	}

	diagnoses, err := s.collector.Collect(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if len(diagnoses) == 0 {
		return []*Suggestion{}, nil
	}

	supported, err := s.orgs.SupportedBillingPrograms(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("load organization settings: %w", err)
	}

	templates, err := s.templates.ListActiveForOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("load package templates: %w", err)
	}

	var candidates []candidate
	for _, t := range FilterTemplates(templates, supported) {
		result := Match(diagnoses, t.DiagnosisCriteria)
		if result.Score < opts.MinMatchScore {
			continue
		}
		retained := FilterPrograms(t.ProgramCombinations.Programs, supported)
		if len(retained) == 0 {
			continue
		}
		candidates = append(candidates, candidate{template: t, result: result, programs: retained})
	}

	// Stable sort: score descending, catalog order breaks ties.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].result.Score > candidates[j].result.Score
	})
	if len(candidates) > opts.MaxSuggestions {
		candidates = candidates[:opts.MaxSuggestions]
	}

	out := make([]*Suggestion, 0, len(candidates))
	for _, cand := range candidates {
		sg, err := s.createIdempotent(ctx, patientID, orgID, cand, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, sg)
	}
	return out, nil
}

// createIdempotent persists one suggestion, converging on the existing
// PENDING row when one already exists for the patient/template pair. The
// read-then-insert race is closed by the partial unique index behind
// SuggestionRepository.Create.
func (s *Service) createIdempotent(ctx context.Context, patientID, orgID uuid.UUID, cand candidate, opts SuggestOptions) (*Suggestion, error) {
	existing, err := s.suggestions.FindPending(ctx, patientID, cand.template.ID)
	if err != nil {
		return nil, fmt.Errorf("check pending suggestion: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	sg := &Suggestion{
		OrganizationID:    orgID,
		PatientID:         patientID,
		PackageTemplateID: cand.template.ID,
		MatchScore:        cand.result.Score,
		MatchedDiagnoses: MatchedDiagnoses{
			Primary:      cand.result.MatchedPrimary,
			Secondary:    cand.result.MatchedSecondary,
			TotalMatched: cand.result.TotalMatched,
			MeetsMinimum: cand.result.MeetsMinimum,
		},
		SuggestedPrograms: SuggestedPrograms{
			Programs:           cand.programs,
			RequiredDevices:    cand.template.ProgramCombinations.RequiredDevices,
			RecommendedMetrics: cand.template.ProgramCombinations.RecommendedMetrics,
		},
		Status:     StatusPending,
		SourceType: opts.SourceType,
	}
	if opts.SourceID != "" {
		sourceID := opts.SourceID
		sg.SourceID = &sourceID
	}

	inserted, err := s.suggestions.Create(ctx, sg)
	if err != nil {
		return nil, fmt.Errorf("create suggestion: %w", err)
	}
	if !inserted {
		// Lost the race to a concurrent run; use the surviving row.
		existing, err := s.suggestions.FindPending(ctx, patientID, cand.template.ID)
		if err != nil {
			return nil, fmt.Errorf("reload pending suggestion: %w", err)
		}
		if existing == nil {
			return nil, fmt.Errorf("suggestion for template %s vanished during create", cand.template.ID)
		}
		return existing, nil
	}

	if err := s.templates.IncrementUsage(ctx, cand.template.ID); err != nil {
		s.logger.Warn().Err(err).
			Str("template_id", cand.template.ID.String()).
			Msg("failed to bump template usage counter")
	}
	return sg, nil
}

// PendingForPatient lists the patient's PENDING suggestions for review.
func (s *Service) PendingForPatient(ctx context.Context, patientID, orgID uuid.UUID) ([]*Suggestion, error) {
	return s.ListForPatient(ctx, patientID, orgID, StatusPending)
}

// ListForPatient lists the patient's suggestions, optionally filtered by
// status. An empty status returns all of them.
func (s *Service) ListForPatient(ctx context.Context, patientID, orgID uuid.UUID, status string) ([]*Suggestion, error) {
	switch status {
	case "", StatusPending, StatusApproved, StatusRejected:
	default:
		return nil, &ValidationError{Field: "status", Reason: "unknown suggestion status " + status}
	}
	return s.suggestions.ListByPatient(ctx, patientID, orgID, status)
}

// Get returns a single suggestion visible to the organization.
func (s *Service) Get(ctx context.Context, id, orgID uuid.UUID) (*Suggestion, error) {
	sg, err := s.suggestions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load suggestion: %w", err)
	}
	if sg == nil || sg.OrganizationID != orgID {
		return nil, &NotFoundError{Resource: "suggestion", ID: id.String()}
	}
	return sg, nil
}

// Approve transitions a PENDING suggestion to APPROVED and materializes the
// selected programs into enrollments. The PENDING check and the status write
// are one atomic update, so a concurrent approve observes not-PENDING and
// fails before any side effect. Enrollment creation afterwards is
// best-effort per program: one unresolved billing code never rolls back
// enrollments already created, and a missing care program or preset yields
// an approval with zero enrollments rather than an error.
func (s *Service) Approve(ctx context.Context, id, reviewerID uuid.UUID, opts ApproveOptions) (*Suggestion, error) {
	sg, err := s.suggestions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load suggestion: %w", err)
	}
	if sg == nil {
		return nil, &NotFoundError{Resource: "suggestion", ID: id.String()}
	}
	if sg.Status != StatusPending {
		return nil, &InvalidStateError{SuggestionID: id.String(), Status: sg.Status, Operation: "approve"}
	}

	selected := sg.SuggestedPrograms.Programs
	if opts.SelectedProgramType != "" {
		var narrowed []ProgramOption
		for _, p := range selected {
			if p.ProgramType == opts.SelectedProgramType {
				narrowed = append(narrowed, p)
			}
		}
		if len(narrowed) == 0 {
			return nil, &ValidationError{
				Field:  "selected_program_type",
				Reason: fmt.Sprintf("%q is not among the suggested programs", opts.SelectedProgramType),
			}
		}
		selected = narrowed
	}

	if opts.StartDate.IsZero() {
		opts.StartDate = time.Now()
	}

	approved, err := s.suggestions.ApproveIfPending(ctx, id, reviewerID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("approve suggestion: %w", err)
	}
	if approved == nil {
		// Raced with another reviewer between the read and the update.
		current, err := s.suggestions.GetByID(ctx, id)
		if err != nil || current == nil {
			return nil, &NotFoundError{Resource: "suggestion", ID: id.String()}
		}
		return nil, &InvalidStateError{SuggestionID: id.String(), Status: current.Status, Operation: "approve"}
	}

	enrollmentIDs := s.materialize(ctx, approved, selected, opts)
	if err := s.suggestions.SetCreatedEnrollments(ctx, id, enrollmentIDs); err != nil {
		return nil, fmt.Errorf("record created enrollments: %w", err)
	}
	approved.CreatedEnrollmentIDs = enrollmentIDs
	return approved, nil
}

// materialize creates enrollments for the selected program options. Failures
// are logged and skipped; the returned slice holds whatever could be created
// or backfilled.
func (s *Service) materialize(ctx context.Context, sg *Suggestion, selected []ProgramOption, opts ApproveOptions) []uuid.UUID {
	enrollmentIDs := []uuid.UUID{}

	careProgram, err := s.carePrograms.ActiveForOrganization(ctx, sg.OrganizationID)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("suggestion_id", sg.ID.String()).
			Msg("care program lookup failed; approving with no enrollments")
		return enrollmentIDs
	}
	if careProgram == nil {
		s.logger.Warn().
			Str("suggestion_id", sg.ID.String()).
			Str("organization_id", sg.OrganizationID.String()).
			Msg("no active care program; approving with no enrollments")
		return enrollmentIDs
	}

	preset := s.resolvePreset(ctx, sg)
	if preset == nil {
		return enrollmentIDs
	}

	for _, option := range selected {
		program, err := s.billingPrograms.ActiveByCode(ctx, option.BillingProgramCode)
		if err != nil || program == nil {
			s.logger.Warn().Err(err).
				Str("suggestion_id", sg.ID.String()).
				Str("billing_program_code", option.BillingProgramCode).
				Msg("billing program not resolvable; skipping program option")
			continue
		}

		existing, err := s.enrollments.FindSameDay(ctx, sg.PatientID, careProgram.ID, program.ID, opts.StartDate)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("suggestion_id", sg.ID.String()).
				Msg("duplicate-enrollment check failed; skipping program option")
			continue
		}
		if existing != nil {
			if existing.BillingProgramID == nil {
				if err := s.enrollments.LinkBillingProgram(ctx, existing.ID, program.ID); err != nil {
					s.logger.Warn().Err(err).
						Str("enrollment_id", existing.ID.String()).
						Msg("billing program backfill failed")
					continue
				}
				enrollmentIDs = append(enrollmentIDs, existing.ID)
			}
			continue
		}

		presetID := preset.ID
		enrollmentID, err := s.enrollments.Create(ctx, NewEnrollment{
			PatientID:         sg.PatientID,
			CareProgramID:     careProgram.ID,
			BillingProgramID:  program.ID,
			ConditionPresetID: &presetID,
			ClinicianID:       opts.ClinicianID,
			StartDate:         opts.StartDate,
		})
		if err != nil {
			s.logger.Warn().Err(err).
				Str("suggestion_id", sg.ID.String()).
				Str("billing_program_code", option.BillingProgramCode).
				Msg("enrollment creation failed; continuing with remaining programs")
			continue
		}
		enrollmentIDs = append(enrollmentIDs, enrollmentID)
	}

	return enrollmentIDs
}

// resolvePreset finds the organization's copy of the template's condition
// preset, cloning the platform-standard one when the organization has none.
// Returns nil (logged, non-fatal) when no matching preset exists at all.
func (s *Service) resolvePreset(ctx context.Context, sg *Suggestion) *PresetRef {
	template, err := s.templates.GetByID(ctx, sg.PackageTemplateID)
	if err != nil || template == nil {
		s.logger.Warn().Err(err).
			Str("suggestion_id", sg.ID.String()).
			Msg("package template lookup failed; approving with no enrollments")
		return nil
	}

	preset, err := s.presets.ForOrganization(ctx, sg.OrganizationID, template.Name)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("suggestion_id", sg.ID.String()).
			Msg("condition preset lookup failed; approving with no enrollments")
		return nil
	}
	if preset != nil {
		return preset
	}

	standard, err := s.presets.Standardized(ctx, template.Name)
	if err != nil || standard == nil {
		s.logger.Warn().Err(err).
			Str("suggestion_id", sg.ID.String()).
			Str("preset_name", template.Name).
			Msg("no standardized condition preset; approving with no enrollments")
		return nil
	}

	cloned, err := s.presets.CloneForOrganization(ctx, standard.ID, sg.OrganizationID)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("preset_id", standard.ID.String()).
			Str("organization_id", sg.OrganizationID.String()).
			Msg("preset clone failed; approving with no enrollments")
		return nil
	}
	return cloned
}

// Reject transitions a PENDING suggestion to REJECTED. The reason is
// mandatory; no enrollments are touched.
func (s *Service) Reject(ctx context.Context, id, reviewerID uuid.UUID, reason string) (*Suggestion, error) {
	if reason == "" {
		return nil, &ValidationError{Field: "reason", Reason: "rejection reason is required"}
	}

	sg, err := s.suggestions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load suggestion: %w", err)
	}
	if sg == nil {
		return nil, &NotFoundError{Resource: "suggestion", ID: id.String()}
	}
	if sg.Status != StatusPending {
		return nil, &InvalidStateError{SuggestionID: id.String(), Status: sg.Status, Operation: "reject"}
	}

	rejected, err := s.suggestions.RejectIfPending(ctx, id, reviewerID, time.Now(), reason)
	if err != nil {
		return nil, fmt.Errorf("reject suggestion: %w", err)
	}
	if rejected == nil {
		current, err := s.suggestions.GetByID(ctx, id)
		if err != nil || current == nil {
			return nil, &NotFoundError{Resource: "suggestion", ID: id.String()}
		}
		return nil, &InvalidStateError{SuggestionID: id.String(), Status: current.Status, Operation: "reject"}
	}
	return rejected, nil
}

// -- Package template catalog --

func (s *Service) CreateTemplate(ctx context.Context, t *PackageTemplate) error {
	if t.Code == "" {
		return &ValidationError{Field: "code", Reason: "template code is required"}
	}
	if t.Name == "" {
		return &ValidationError{Field: "name", Reason: "template name is required"}
	}
	if len(t.DiagnosisCriteria.Primary)+len(t.DiagnosisCriteria.Secondary) == 0 {
		return &ValidationError{Field: "diagnosis_criteria", Reason: "at least one criteria code is required"}
	}
	if len(t.ProgramCombinations.Programs) == 0 {
		return &ValidationError{Field: "program_combinations", Reason: "at least one program option is required"}
	}
	return s.templates.Create(ctx, t)
}

func (s *Service) GetTemplate(ctx context.Context, id, orgID uuid.UUID) (*PackageTemplate, error) {
	t, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	if t == nil || !t.VisibleTo(orgID) {
		return nil, &NotFoundError{Resource: "package template", ID: id.String()}
	}
	return t, nil
}

func (s *Service) UpdateTemplate(ctx context.Context, t *PackageTemplate) error {
	return s.templates.Update(ctx, t)
}

func (s *Service) DeactivateTemplate(ctx context.Context, id uuid.UUID) error {
	return s.templates.Deactivate(ctx, id)
}

func (s *Service) ListTemplates(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*PackageTemplate, int, error) {
	return s.templates.List(ctx, orgID, limit, offset)
}
