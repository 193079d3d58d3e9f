package program

import (
	"context"
	"errors"
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

// =========== Billing Program Repository ===========

type billingProgramRepoPG struct{ pool *pgxpool.Pool }

func NewBillingProgramRepoPG(pool *pgxpool.Pool) BillingProgramRepository {
	return &billingProgramRepoPG{pool: pool}
}

func (r *billingProgramRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const billingProgramCols = `id, code, name, program_type, description, is_active, created_at, updated_at`

func (r *billingProgramRepoPG) scan(row pgx.Row) (*BillingProgram, error) {
	var bp BillingProgram
	err := row.Scan(&bp.ID, &bp.Code, &bp.Name, &bp.ProgramType, &bp.Description,
		&bp.IsActive, &bp.CreatedAt, &bp.UpdatedAt)
	return &bp, err
}

func (r *billingProgramRepoPG) Create(ctx context.Context, bp *BillingProgram) error {
	bp.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO billing_program (id, code, name, program_type, description, is_active)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		bp.ID, bp.Code, bp.Name, bp.ProgramType, bp.Description, bp.IsActive)
	return err
}

func (r *billingProgramRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*BillingProgram, error) {
	bp, err := r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+billingProgramCols+` FROM billing_program WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return bp, err
}

func (r *billingProgramRepoPG) ActiveByCode(ctx context.Context, code string) (*BillingProgram, error) {
	bp, err := r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+billingProgramCols+` FROM billing_program WHERE code = $1 AND is_active = true`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return bp, err
}

func (r *billingProgramRepoPG) List(ctx context.Context, limit, offset int) ([]*BillingProgram, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM billing_program`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+billingProgramCols+` FROM billing_program
		ORDER BY program_type, code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*BillingProgram
	for rows.Next() {
		bp, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, bp)
	}
	return items, total, rows.Err()
}

// =========== Condition Preset Repository ===========

type conditionPresetRepoPG struct{ pool *pgxpool.Pool }

func NewConditionPresetRepoPG(pool *pgxpool.Pool) ConditionPresetRepository {
	return &conditionPresetRepoPG{pool: pool}
}

func (r *conditionPresetRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const presetCols = `id, name, organization_id, is_standardized, is_active, created_at, updated_at`

func (r *conditionPresetRepoPG) scan(row pgx.Row) (*ConditionPreset, error) {
	var p ConditionPreset
	err := row.Scan(&p.ID, &p.Name, &p.OrganizationID, &p.IsStandardized,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *conditionPresetRepoPG) loadDiagnoses(ctx context.Context, p *ConditionPreset) error {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, preset_id, code, coding_system, display
		FROM condition_preset_diagnosis WHERE preset_id = $1 ORDER BY code`, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var d PresetDiagnosis
		if err := rows.Scan(&d.ID, &d.PresetID, &d.Code, &d.CodingSystem, &d.Display); err != nil {
			return err
		}
		p.Diagnoses = append(p.Diagnoses, d)
	}
	return rows.Err()
}

func (r *conditionPresetRepoPG) Create(ctx context.Context, p *ConditionPreset) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO condition_preset (id, name, organization_id, is_standardized, is_active)
		VALUES ($1,$2,$3,$4,$5)`,
		p.ID, p.Name, p.OrganizationID, p.IsStandardized, p.IsActive)
	if err != nil {
		return err
	}
	for i := range p.Diagnoses {
		d := &p.Diagnoses[i]
		d.ID = uuid.New()
		d.PresetID = p.ID
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO condition_preset_diagnosis (id, preset_id, code, coding_system, display)
			VALUES ($1,$2,$3,$4,$5)`,
			d.ID, d.PresetID, d.Code, d.CodingSystem, d.Display)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *conditionPresetRepoPG) getOne(ctx context.Context, sql string, args ...interface{}) (*ConditionPreset, error) {
	p, err := r.scan(r.conn(ctx).QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadDiagnoses(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *conditionPresetRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ConditionPreset, error) {
	return r.getOne(ctx, `SELECT `+presetCols+` FROM condition_preset WHERE id = $1`, id)
}

func (r *conditionPresetRepoPG) FindForOrganization(ctx context.Context, orgID uuid.UUID, name string) (*ConditionPreset, error) {
	return r.getOne(ctx, `
		SELECT `+presetCols+` FROM condition_preset
		WHERE organization_id = $1 AND name = $2 AND is_active = true
		ORDER BY created_at LIMIT 1`, orgID, name)
}

func (r *conditionPresetRepoPG) FindStandardized(ctx context.Context, name string) (*ConditionPreset, error) {
	return r.getOne(ctx, `
		SELECT `+presetCols+` FROM condition_preset
		WHERE is_standardized = true AND name = $1 AND is_active = true
		ORDER BY created_at LIMIT 1`, name)
}

func (r *conditionPresetRepoPG) Clone(ctx context.Context, presetID, orgID uuid.UUID) (*ConditionPreset, error) {
	src, err := r.GetByID(ctx, presetID)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, nil
	}
	clone := &ConditionPreset{
		Name:           src.Name,
		OrganizationID: &orgID,
		IsStandardized: false,
		IsActive:       true,
	}
	for _, d := range src.Diagnoses {
		clone.Diagnoses = append(clone.Diagnoses, PresetDiagnosis{
			Code: d.Code, CodingSystem: d.CodingSystem, Display: d.Display,
		})
	}
	if err := r.Create(ctx, clone); err != nil {
		return nil, err
	}
	return clone, nil
}

func (r *conditionPresetRepoPG) ListForOrganization(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*ConditionPreset, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM condition_preset
		WHERE organization_id = $1 OR is_standardized = true`, orgID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+presetCols+` FROM condition_preset
		WHERE organization_id = $1 OR is_standardized = true
		ORDER BY name LIMIT $2 OFFSET $3`, orgID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*ConditionPreset
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for _, p := range items {
		if err := r.loadDiagnoses(ctx, p); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

// =========== Care Program Repository ===========

type careProgramRepoPG struct{ pool *pgxpool.Pool }

func NewCareProgramRepoPG(pool *pgxpool.Pool) CareProgramRepository {
	return &careProgramRepoPG{pool: pool}
}

func (r *careProgramRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const careProgramCols = `id, organization_id, name, is_active, created_at, updated_at`

func (r *careProgramRepoPG) scan(row pgx.Row) (*CareProgram, error) {
	var cp CareProgram
	err := row.Scan(&cp.ID, &cp.OrganizationID, &cp.Name, &cp.IsActive, &cp.CreatedAt, &cp.UpdatedAt)
	return &cp, err
}

func (r *careProgramRepoPG) Create(ctx context.Context, cp *CareProgram) error {
	cp.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO care_program (id, organization_id, name, is_active)
		VALUES ($1,$2,$3,$4)`,
		cp.ID, cp.OrganizationID, cp.Name, cp.IsActive)
	return err
}

func (r *careProgramRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*CareProgram, error) {
	cp, err := r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+careProgramCols+` FROM care_program WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return cp, err
}

func (r *careProgramRepoPG) ActiveForOrganization(ctx context.Context, orgID uuid.UUID) (*CareProgram, error) {
	cp, err := r.scan(r.conn(ctx).QueryRow(ctx, `
		SELECT `+careProgramCols+` FROM care_program
		WHERE organization_id = $1 AND is_active = true
		ORDER BY created_at LIMIT 1`, orgID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return cp, err
}

func (r *careProgramRepoPG) ListForOrganization(ctx context.Context, orgID uuid.UUID) ([]*CareProgram, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+careProgramCols+` FROM care_program
		WHERE organization_id = $1 ORDER BY created_at`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*CareProgram
	for rows.Next() {
		cp, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, cp)
	}
	return items, rows.Err()
}

// =========== Enrollment Repository ===========

type enrollmentRepoPG struct{ pool *pgxpool.Pool }

func NewEnrollmentRepoPG(pool *pgxpool.Pool) EnrollmentRepository {
	return &enrollmentRepoPG{pool: pool}
}

func (r *enrollmentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const enrollmentCols = `id, patient_id, care_program_id, billing_program_id, condition_preset_id,
	clinician_id, status, start_date, end_date, created_at, updated_at`

func (r *enrollmentRepoPG) scan(row pgx.Row) (*Enrollment, error) {
	var e Enrollment
	err := row.Scan(&e.ID, &e.PatientID, &e.CareProgramID, &e.BillingProgramID, &e.ConditionPresetID,
		&e.ClinicianID, &e.Status, &e.StartDate, &e.EndDate, &e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

func (r *enrollmentRepoPG) Create(ctx context.Context, e *Enrollment) error {
	e.ID = uuid.New()
	if e.Status == "" {
		e.Status = EnrollmentActive
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO enrollment (id, patient_id, care_program_id, billing_program_id,
			condition_preset_id, clinician_id, status, start_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		e.ID, e.PatientID, e.CareProgramID, e.BillingProgramID,
		e.ConditionPresetID, e.ClinicianID, e.Status, e.StartDate)
	return err
}

func (r *enrollmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Enrollment, error) {
	e, err := r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+enrollmentCols+` FROM enrollment WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (r *enrollmentRepoPG) ListActiveForPatient(ctx context.Context, patientID uuid.UUID) ([]*EnrollmentWithPreset, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT e.id, e.patient_id, e.care_program_id, e.billing_program_id, e.condition_preset_id,
			e.clinician_id, e.status, e.start_date, e.end_date, e.created_at, e.updated_at,
			COALESCE(p.name, '')
		FROM enrollment e
		LEFT JOIN condition_preset p ON p.id = e.condition_preset_id
		WHERE e.patient_id = $1 AND e.status = 'ACTIVE'
		ORDER BY e.start_date, e.id`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*EnrollmentWithPreset
	for rows.Next() {
		var e EnrollmentWithPreset
		err := rows.Scan(&e.ID, &e.PatientID, &e.CareProgramID, &e.BillingProgramID, &e.ConditionPresetID,
			&e.ClinicianID, &e.Status, &e.StartDate, &e.EndDate, &e.CreatedAt, &e.UpdatedAt,
			&e.PresetName)
		if err != nil {
			return nil, err
		}
		items = append(items, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, e := range items {
		if e.ConditionPresetID == nil {
			continue
		}
		drows, err := r.conn(ctx).Query(ctx, `
			SELECT id, preset_id, code, coding_system, display
			FROM condition_preset_diagnosis WHERE preset_id = $1 ORDER BY code`, *e.ConditionPresetID)
		if err != nil {
			return nil, err
		}
		for drows.Next() {
			var d PresetDiagnosis
			if err := drows.Scan(&d.ID, &d.PresetID, &d.Code, &d.CodingSystem, &d.Display); err != nil {
				drows.Close()
				return nil, err
			}
			e.PresetDiagnoses = append(e.PresetDiagnoses, d)
		}
		if err := drows.Err(); err != nil {
			drows.Close()
			return nil, err
		}
		drows.Close()
	}
	return items, nil
}

func (r *enrollmentRepoPG) FindSameDay(ctx context.Context, patientID, careProgramID uuid.UUID, billingProgramID *uuid.UUID, day time.Time) (*Enrollment, error) {
	e, err := r.scan(r.conn(ctx).QueryRow(ctx, `
		SELECT `+enrollmentCols+` FROM enrollment
		WHERE patient_id = $1 AND care_program_id = $2 AND start_date::date = $3::date
		  AND ($4::uuid IS NULL OR billing_program_id IS NULL OR billing_program_id = $4)
		ORDER BY created_at LIMIT 1`, patientID, careProgramID, day, billingProgramID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (r *enrollmentRepoPG) LinkBillingProgram(ctx context.Context, enrollmentID, billingProgramID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE enrollment SET billing_program_id = $2, updated_at = NOW()
		WHERE id = $1 AND billing_program_id IS NULL`,
		enrollmentID, billingProgramID)
	return err
}

func (r *enrollmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Enrollment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM enrollment WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+enrollmentCols+` FROM enrollment WHERE patient_id = $1
		ORDER BY start_date DESC, created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Enrollment
	for rows.Next() {
		e, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func (r *enrollmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string, endDate *time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE enrollment SET status = $2, end_date = $3, updated_at = NOW()
		WHERE id = $1`, id, status, endDate)
	return err
}
