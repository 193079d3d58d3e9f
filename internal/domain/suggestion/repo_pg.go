package suggestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careops/careops/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Template Repository ===========

type templateRepoPG struct{ pool *pgxpool.Pool }

func NewTemplateRepoPG(pool *pgxpool.Pool) TemplateRepository { return &templateRepoPG{pool: pool} }

func (r *templateRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const templateCols = `id, code, name, category, is_standardized, organization_id, is_active,
	diagnosis_criteria, program_combinations, usage_count, last_used_at, created_at, updated_at`

func (r *templateRepoPG) scanTemplate(row pgx.Row) (*PackageTemplate, error) {
	var t PackageTemplate
	var criteria, programs []byte
	err := row.Scan(&t.ID, &t.Code, &t.Name, &t.Category, &t.IsStandardized, &t.OrganizationID, &t.IsActive,
		&criteria, &programs, &t.UsageCount, &t.LastUsedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(criteria, &t.DiagnosisCriteria); err != nil {
		return nil, fmt.Errorf("decode diagnosis criteria for template %s: %w", t.ID, err)
	}
	if err := json.Unmarshal(programs, &t.ProgramCombinations); err != nil {
		return nil, fmt.Errorf("decode program combinations for template %s: %w", t.ID, err)
	}
	return &t, nil
}

func (r *templateRepoPG) Create(ctx context.Context, t *PackageTemplate) error {
	t.ID = uuid.New()
	criteria, err := json.Marshal(t.DiagnosisCriteria)
	if err != nil {
		return fmt.Errorf("encode diagnosis criteria: %w", err)
	}
	programs, err := json.Marshal(t.ProgramCombinations)
	if err != nil {
		return fmt.Errorf("encode program combinations: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO package_template (id, code, name, category, is_standardized, organization_id,
			is_active, diagnosis_criteria, program_combinations)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		t.ID, t.Code, t.Name, t.Category, t.IsStandardized, t.OrganizationID,
		t.IsActive, criteria, programs)
	return err
}

func (r *templateRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*PackageTemplate, error) {
	t, err := r.scanTemplate(r.conn(ctx).QueryRow(ctx,
		`SELECT `+templateCols+` FROM package_template WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

func (r *templateRepoPG) Update(ctx context.Context, t *PackageTemplate) error {
	criteria, err := json.Marshal(t.DiagnosisCriteria)
	if err != nil {
		return fmt.Errorf("encode diagnosis criteria: %w", err)
	}
	programs, err := json.Marshal(t.ProgramCombinations)
	if err != nil {
		return fmt.Errorf("encode program combinations: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		UPDATE package_template SET code=$2, name=$3, category=$4, is_active=$5,
			diagnosis_criteria=$6, program_combinations=$7, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Code, t.Name, t.Category, t.IsActive, criteria, programs)
	return err
}

func (r *templateRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE package_template SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *templateRepoPG) ListActiveForOrganization(ctx context.Context, orgID uuid.UUID) ([]*PackageTemplate, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+templateCols+` FROM package_template
		WHERE is_active = TRUE AND (organization_id IS NULL OR organization_id = $1)
		ORDER BY created_at, id`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*PackageTemplate
	for rows.Next() {
		t, err := r.scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (r *templateRepoPG) List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*PackageTemplate, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM package_template
		WHERE organization_id IS NULL OR organization_id = $1`, orgID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+templateCols+` FROM package_template
		WHERE organization_id IS NULL OR organization_id = $1
		ORDER BY created_at, id LIMIT $2 OFFSET $3`, orgID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*PackageTemplate
	for rows.Next() {
		t, err := r.scanTemplate(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

func (r *templateRepoPG) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE package_template SET usage_count = usage_count + 1, last_used_at = NOW() WHERE id = $1`, id)
	return err
}

// =========== Suggestion Repository ===========

type suggestionRepoPG struct{ pool *pgxpool.Pool }

func NewSuggestionRepoPG(pool *pgxpool.Pool) SuggestionRepository {
	return &suggestionRepoPG{pool: pool}
}

func (r *suggestionRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const suggestionCols = `id, organization_id, patient_id, package_template_id, match_score,
	matched_diagnoses, suggested_programs, status, source_type, source_id,
	created_enrollment_ids, reviewed_by_id, reviewed_at, rejection_reason, created_at, updated_at`

func (r *suggestionRepoPG) scanSuggestion(row pgx.Row) (*Suggestion, error) {
	var s Suggestion
	var matched, programs, enrollments []byte
	err := row.Scan(&s.ID, &s.OrganizationID, &s.PatientID, &s.PackageTemplateID, &s.MatchScore,
		&matched, &programs, &s.Status, &s.SourceType, &s.SourceID,
		&enrollments, &s.ReviewedByID, &s.ReviewedAt, &s.RejectionReason, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(matched, &s.MatchedDiagnoses); err != nil {
		return nil, fmt.Errorf("decode matched diagnoses for suggestion %s: %w", s.ID, err)
	}
	if err := json.Unmarshal(programs, &s.SuggestedPrograms); err != nil {
		return nil, fmt.Errorf("decode suggested programs for suggestion %s: %w", s.ID, err)
	}
	if err := json.Unmarshal(enrollments, &s.CreatedEnrollmentIDs); err != nil {
		return nil, fmt.Errorf("decode enrollment ids for suggestion %s: %w", s.ID, err)
	}
	return &s, nil
}

// Create relies on the uq_suggestion_pending partial unique index: when a
// PENDING row already exists for the (patient, template) pair the insert is
// silently skipped and inserted is false.
func (r *suggestionRepoPG) Create(ctx context.Context, s *Suggestion) (bool, error) {
	s.ID = uuid.New()
	matched, err := json.Marshal(s.MatchedDiagnoses)
	if err != nil {
		return false, fmt.Errorf("encode matched diagnoses: %w", err)
	}
	programs, err := json.Marshal(s.SuggestedPrograms)
	if err != nil {
		return false, fmt.Errorf("encode suggested programs: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO billing_suggestion (id, organization_id, patient_id, package_template_id,
			match_score, matched_diagnoses, suggested_programs, status, source_type, source_id,
			created_enrollment_ids)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,'[]'::jsonb)
		ON CONFLICT (patient_id, package_template_id) WHERE status = 'PENDING' DO NOTHING`,
		s.ID, s.OrganizationID, s.PatientID, s.PackageTemplateID,
		s.MatchScore, matched, programs, s.Status, s.SourceType, s.SourceID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *suggestionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Suggestion, error) {
	s, err := r.scanSuggestion(r.conn(ctx).QueryRow(ctx,
		`SELECT `+suggestionCols+` FROM billing_suggestion WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *suggestionRepoPG) FindPending(ctx context.Context, patientID, templateID uuid.UUID) (*Suggestion, error) {
	s, err := r.scanSuggestion(r.conn(ctx).QueryRow(ctx, `
		SELECT `+suggestionCols+` FROM billing_suggestion
		WHERE patient_id = $1 AND package_template_id = $2 AND status = 'PENDING'`,
		patientID, templateID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *suggestionRepoPG) ListByPatient(ctx context.Context, patientID, orgID uuid.UUID, status string) ([]*Suggestion, error) {
	query := `SELECT ` + suggestionCols + ` FROM billing_suggestion
		WHERE patient_id = $1 AND organization_id = $2`
	args := []interface{}{patientID, orgID}
	if status != "" {
		query += ` AND status = $3`
		args = append(args, status)
	}
	query += ` ORDER BY match_score DESC, created_at`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Suggestion
	for rows.Next() {
		s, err := r.scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// ApproveIfPending performs the PENDING check and the terminal write in one
// statement, so concurrent reviewers cannot both succeed.
func (r *suggestionRepoPG) ApproveIfPending(ctx context.Context, id, reviewerID uuid.UUID, at time.Time) (*Suggestion, error) {
	s, err := r.scanSuggestion(r.conn(ctx).QueryRow(ctx, `
		UPDATE billing_suggestion
		SET status = 'APPROVED', reviewed_by_id = $2, reviewed_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING `+suggestionCols,
		id, reviewerID, at))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *suggestionRepoPG) RejectIfPending(ctx context.Context, id, reviewerID uuid.UUID, at time.Time, reason string) (*Suggestion, error) {
	s, err := r.scanSuggestion(r.conn(ctx).QueryRow(ctx, `
		UPDATE billing_suggestion
		SET status = 'REJECTED', reviewed_by_id = $2, reviewed_at = $3, rejection_reason = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING `+suggestionCols,
		id, reviewerID, at, reason))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *suggestionRepoPG) SetCreatedEnrollments(ctx context.Context, id uuid.UUID, enrollmentIDs []uuid.UUID) error {
	if enrollmentIDs == nil {
		enrollmentIDs = []uuid.UUID{}
	}
	encoded, err := json.Marshal(enrollmentIDs)
	if err != nil {
		return fmt.Errorf("encode enrollment ids: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		UPDATE billing_suggestion SET created_enrollment_ids = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'APPROVED'`, id, encoded)
	return err
}
