package suggestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type mockTemplateRepo struct {
	store map[uuid.UUID]*PackageTemplate
	order []uuid.UUID
	usage map[uuid.UUID]int
}

func newMockTemplateRepo() *mockTemplateRepo {
	return &mockTemplateRepo{store: make(map[uuid.UUID]*PackageTemplate), usage: make(map[uuid.UUID]int)}
}
func (m *mockTemplateRepo) Create(_ context.Context, t *PackageTemplate) error {
	t.ID = uuid.New(); t.IsActive = true; m.store[t.ID] = t; m.order = append(m.order, t.ID); return nil
}
func (m *mockTemplateRepo) GetByID(_ context.Context, id uuid.UUID) (*PackageTemplate, error) {
	return m.store[id], nil
}
func (m *mockTemplateRepo) Update(_ context.Context, t *PackageTemplate) error {
	m.store[t.ID] = t; return nil
}
func (m *mockTemplateRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	if t, ok := m.store[id]; ok { t.IsActive = false }; return nil
}
func (m *mockTemplateRepo) ListActiveForOrganization(_ context.Context, orgID uuid.UUID) ([]*PackageTemplate, error) {
	var r []*PackageTemplate
	for _, id := range m.order {
		t := m.store[id]
		if t.IsActive && t.VisibleTo(orgID) { r = append(r, t) }
	}
	return r, nil
}
func (m *mockTemplateRepo) List(_ context.Context, orgID uuid.UUID, limit, offset int) ([]*PackageTemplate, int, error) {
	r, _ := m.ListActiveForOrganization(context.Background(), orgID); return r, len(r), nil
}
func (m *mockTemplateRepo) IncrementUsage(_ context.Context, id uuid.UUID) error {
	m.usage[id]++; return nil
}

type mockSuggestionRepo struct {
	store map[uuid.UUID]*Suggestion
}

func newMockSuggestionRepo() *mockSuggestionRepo {
	return &mockSuggestionRepo{store: make(map[uuid.UUID]*Suggestion)}
}
func (m *mockSuggestionRepo) Create(_ context.Context, s *Suggestion) (bool, error) {
	for _, existing := range m.store {
		if existing.PatientID == s.PatientID && existing.PackageTemplateID == s.PackageTemplateID && existing.Status == StatusPending {
			return false, nil
		}
	}
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	cp := *s
	m.store[s.ID] = &cp
	return true, nil
}
func (m *mockSuggestionRepo) GetByID(_ context.Context, id uuid.UUID) (*Suggestion, error) {
	s, ok := m.store[id]; if !ok { return nil, nil }; cp := *s; return &cp, nil
}
func (m *mockSuggestionRepo) FindPending(_ context.Context, patientID, templateID uuid.UUID) (*Suggestion, error) {
	for _, s := range m.store {
		if s.PatientID == patientID && s.PackageTemplateID == templateID && s.Status == StatusPending {
			cp := *s; return &cp, nil
		}
	}
	return nil, nil
}
func (m *mockSuggestionRepo) ListByPatient(_ context.Context, patientID, orgID uuid.UUID, status string) ([]*Suggestion, error) {
	var r []*Suggestion
	for _, s := range m.store {
		if s.PatientID == patientID && s.OrganizationID == orgID && (status == "" || s.Status == status) {
			cp := *s; r = append(r, &cp)
		}
	}
	return r, nil
}
func (m *mockSuggestionRepo) ApproveIfPending(_ context.Context, id, reviewerID uuid.UUID, at time.Time) (*Suggestion, error) {
	s, ok := m.store[id]
	if !ok || s.Status != StatusPending { return nil, nil }
	s.Status = StatusApproved; s.ReviewedByID = &reviewerID; s.ReviewedAt = &at
	cp := *s; return &cp, nil
}
func (m *mockSuggestionRepo) RejectIfPending(_ context.Context, id, reviewerID uuid.UUID, at time.Time, reason string) (*Suggestion, error) {
	s, ok := m.store[id]
	if !ok || s.Status != StatusPending { return nil, nil }
	s.Status = StatusRejected; s.ReviewedByID = &reviewerID; s.ReviewedAt = &at; s.RejectionReason = &reason
	cp := *s; return &cp, nil
}
func (m *mockSuggestionRepo) SetCreatedEnrollments(_ context.Context, id uuid.UUID, enrollmentIDs []uuid.UUID) error {
	s, ok := m.store[id]
	if !ok { return errors.New("not found") }
	if s.Status != StatusApproved { return nil }
	s.CreatedEnrollmentIDs = enrollmentIDs
	return nil
}

type mockBillingProgramSource struct{ byCode map[string]*BillingProgramRef }

func newMockBillingProgramSource() *mockBillingProgramSource {
	return &mockBillingProgramSource{byCode: make(map[string]*BillingProgramRef)}
}
func (m *mockBillingProgramSource) ActiveByCode(_ context.Context, code string) (*BillingProgramRef, error) {
	return m.byCode[code], nil
}

type mockPresetSource struct {
	orgPresets map[string]*PresetRef
	standard   map[string]*PresetRef
	cloned     int
}

func newMockPresetSource() *mockPresetSource {
	return &mockPresetSource{orgPresets: make(map[string]*PresetRef), standard: make(map[string]*PresetRef)}
}
func (m *mockPresetSource) ForOrganization(_ context.Context, _ uuid.UUID, name string) (*PresetRef, error) {
	return m.orgPresets[name], nil
}
func (m *mockPresetSource) Standardized(_ context.Context, name string) (*PresetRef, error) {
	return m.standard[name], nil
}
func (m *mockPresetSource) CloneForOrganization(_ context.Context, presetID, orgID uuid.UUID) (*PresetRef, error) {
	m.cloned++
	return &PresetRef{ID: uuid.New(), OrganizationID: &orgID}, nil
}

type mockCareProgramSource struct{ byOrg map[uuid.UUID]*CareProgramRef }

func newMockCareProgramSource() *mockCareProgramSource {
	return &mockCareProgramSource{byOrg: make(map[uuid.UUID]*CareProgramRef)}
}
func (m *mockCareProgramSource) ActiveForOrganization(_ context.Context, orgID uuid.UUID) (*CareProgramRef, error) {
	return m.byOrg[orgID], nil
}

type mockOrgSettings struct{ supported map[uuid.UUID][]string }

func newMockOrgSettings() *mockOrgSettings {
	return &mockOrgSettings{supported: make(map[uuid.UUID][]string)}
}
func (m *mockOrgSettings) SupportedBillingPrograms(_ context.Context, orgID uuid.UUID) ([]string, error) {
	return m.supported[orgID], nil
}

type testEnv struct {
	svc             *Service
	templates       *mockTemplateRepo
	suggestions     *mockSuggestionRepo
	patients        *mockPatientSource
	enrollments     *mockEnrollmentSource
	billingPrograms *mockBillingProgramSource
	presets         *mockPresetSource
	carePrograms    *mockCareProgramSource
	orgs            *mockOrgSettings

	orgID     uuid.UUID
	patientID uuid.UUID
}

func newTestEnv() *testEnv {
	env := &testEnv{
		templates:       newMockTemplateRepo(),
		suggestions:     newMockSuggestionRepo(),
		patients:        newMockPatientSource(),
		enrollments:     newMockEnrollmentSource(),
		billingPrograms: newMockBillingProgramSource(),
		presets:         newMockPresetSource(),
		carePrograms:    newMockCareProgramSource(),
		orgs:            newMockOrgSettings(),
		orgID:           uuid.New(),
		patientID:       uuid.New(),
	}
	env.svc = NewService(env.templates, env.suggestions, env.patients, env.enrollments,
		env.billingPrograms, env.presets, env.carePrograms, env.orgs, zerolog.Nop())
	env.patients.orgs[env.patientID] = env.orgID
	return env
}

func (env *testEnv) addDiagnoses(codes ...string) {
	for _, code := range codes {
		env.patients.diagnoses[env.patientID] = append(env.patients.diagnoses[env.patientID],
			DiagnosisCode{Code: code, CodingSystem: CodingICD10})
	}
}

func (env *testEnv) addTemplate(name string, primary []string, minPrimary int, programs ...ProgramOption) *PackageTemplate {
	var criteria []CriteriaCode
	for _, code := range primary {
		criteria = append(criteria, CriteriaCode{Code: code, CodingSystem: CodingICD10})
	}
	t := &PackageTemplate{
		Code:              name,
		Name:              name,
		IsStandardized:    true,
		DiagnosisCriteria: DiagnosisCriteria{Primary: criteria, MinPrimaryMatches: minPrimary},
		ProgramCombinations: ProgramCombination{Programs: programs},
	}
	env.templates.Create(context.Background(), t)
	return t
}

func rpmOption() ProgramOption {
	return ProgramOption{ProgramType: "RPM", BillingProgramCode: "99454", Priority: 1}
}

func TestSuggest_CreatesPendingSuggestion(t *testing.T) {
	env := newTestEnv()
	env.addDiagnoses("E11.9")
	tpl := env.addTemplate("Diabetes Care", []string{"E11.9"}, 1, rpmOption())

	got, err := env.svc.Suggest(context.Background(), env.patientID, env.orgID, SuggestOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(got))
	}
	sg := got[0]
	if sg.Status != StatusPending {
		t.Errorf("expected PENDING, got %s", sg.Status)
	}
	if sg.MatchScore != 100 {
		t.Errorf("expected score 100, got %d", sg.MatchScore)
	}
	if sg.PackageTemplateID != tpl.ID {
		t.Error("suggestion should reference the matched template")
	}
	if env.templates.usage[tpl.ID] != 1 {
		t.Errorf("expected usage counter 1, got %d", env.templates.usage[tpl.ID])
	}
}

func TestSuggest_Idempotent(t *testing.T) {
	env := newTestEnv()
	env.addDiagnoses("E11.9")
	tpl := env.addTemplate("Diabetes Care", []string{"E11.9"}, 1, rpmOption())

	first, _ := env.svc.Suggest(context.Background(), env.patientID, env.orgID, SuggestOptions{})
	second, err := env.svc.Suggest(context.Background(), env.patientID, env.orgID, SuggestOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second) != 1 || second[0].ID != first[0].ID {
		t.Error("re-running should converge on the existing PENDING suggestion")
	}
	if env.templates.usage[tpl.ID] != 1 {
		t.Errorf("usage counter should only count real inserts, got %d", env.templates.usage[tpl.ID])
	}
}

func TestSuggest_PatientNotInOrganization(t *testing.T) {
	env := newTestEnv()
	env.addDiagnoses("E11.9")

	var nfErr *NotFoundError
	_, err := env.svc.Suggest(context.Background(), env.patientID, uuid.New(), SuggestOptions{})
	if !errors.As(err, &nfErr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestSuggest_NoDiagnoses(t *testing.T) {
	env := newTestEnv()
	env.addTemplate("Diabetes Care", []string{"E11.9"}, 1, rpmOption())

	got, err := env.svc.Suggest(context.Background(), env.patientID, env.orgID, SuggestOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no suggestions, got %d", len(got))
	}
}

func TestSuggest_MinScoreFilters(t *testing.T) {
	env := newTestEnv()
	env.addDiagnoses("E11.9")
	// One of four criteria matched: 25% + minimum bonus = 35, below the default 50.
	env.addTemplate("Weak Fit", []string{"E11.9", "I10", "E78.5", "N18.3"}, 1, rpmOption())

	got, err := env.svc.Suggest(context.Background(), env.patientID, env.orgID, SuggestOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("low-scoring template should be dropped, got %d suggestions", len(got))
	}
}

func TestSuggest_CapsAndRanks(t *testing.T) {
	env := newTestEnv()
	env.addDiagnoses("E11.9", "I10")
	env.addTemplate("Partial", []string{"E11.9", "N18.3"}, 1, rpmOption())
	full := env.addTemplate("Full", []string{"E11.9", "I10"}, 1, rpmOption())

	got, err := env.svc.Suggest(context.Background(), env.patientID, env.orgID, SuggestOptions{MaxSuggestions: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected cap of 1, got %d", len(got))
	}
	if got[0].PackageTemplateID != full.ID {
		t.Error("highest-scoring template should win the cap")
	}
}

func TestSuggest_UnsupportedProgramsDropped(t *testing.T) {
	env := newTestEnv()
	env.addDiagnoses("E11.9")
	env.orgs.supported[env.orgID] = []string{"CCM"}
	env.addTemplate("RPM Only", []string{"E11.9"}, 1, rpmOption())

	got, err := env.svc.Suggest(context.Background(), env.patientID, env.orgID, SuggestOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("template with no supported programs should be dropped, got %d", len(got))
	}
}

func (env *testEnv) pendingSuggestion(t *testing.T, programs ...ProgramOption) *Suggestion {
	t.Helper()
	if len(programs) == 0 {
		programs = []ProgramOption{rpmOption()}
	}
	env.addDiagnoses("E11.9")
	env.addTemplate("Diabetes Care", []string{"E11.9"}, 1, programs...)
	got, err := env.svc.Suggest(context.Background(), env.patientID, env.orgID, SuggestOptions{})
	if err != nil || len(got) != 1 {
		t.Fatalf("failed to seed pending suggestion: %v (%d)", err, len(got))
	}
	return got[0]
}

func (env *testEnv) enableMaterialization() {
	env.carePrograms.byOrg[env.orgID] = &CareProgramRef{ID: uuid.New(), Name: "Chronic Care"}
	env.presets.orgPresets["Diabetes Care"] = &PresetRef{ID: uuid.New(), Name: "Diabetes Care", OrganizationID: &env.orgID}
	env.billingPrograms.byCode["99454"] = &BillingProgramRef{ID: uuid.New(), Code: "99454", ProgramType: "RPM"}
	env.billingPrograms.byCode["99490"] = &BillingProgramRef{ID: uuid.New(), Code: "99490", ProgramType: "CCM"}
}

// seedEnrollment plants a pre-existing enrollment for today in the env's care
// program, optionally already linked to a billing program.
func (env *testEnv) seedEnrollment(id uuid.UUID, billingProgramID *uuid.UUID) {
	env.enrollments.rows = append(env.enrollments.rows, &enrollmentRow{
		ID:               id,
		PatientID:        env.patientID,
		CareProgramID:    env.carePrograms.byOrg[env.orgID].ID,
		BillingProgramID: billingProgramID,
		Day:              time.Now(),
	})
}

func TestApprove_MaterializesEnrollment(t *testing.T) {
	env := newTestEnv()
	sg := env.pendingSuggestion(t)
	env.enableMaterialization()

	approved, err := env.svc.Approve(context.Background(), sg.ID, uuid.New(), ApproveOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if approved.Status != StatusApproved {
		t.Errorf("expected APPROVED, got %s", approved.Status)
	}
	if len(approved.CreatedEnrollmentIDs) != 1 {
		t.Fatalf("expected 1 enrollment, got %d", len(approved.CreatedEnrollmentIDs))
	}
	if len(env.enrollments.created) != 1 {
		t.Fatalf("expected 1 enrollment created, got %d", len(env.enrollments.created))
	}
	if env.enrollments.created[0].PatientID != env.patientID {
		t.Error("enrollment should belong to the suggestion's patient")
	}
}

func TestApprove_MultiProgramCreatesEachEnrollment(t *testing.T) {
	env := newTestEnv()
	ccm := ProgramOption{ProgramType: "CCM", BillingProgramCode: "99490", Priority: 2}
	sg := env.pendingSuggestion(t, rpmOption(), ccm)
	env.enableMaterialization()

	approved, err := env.svc.Approve(context.Background(), sg.ID, uuid.New(), ApproveOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(approved.CreatedEnrollmentIDs) != 2 {
		t.Fatalf("expected one enrollment per program, got %d", len(approved.CreatedEnrollmentIDs))
	}
	if len(env.enrollments.created) != 2 {
		t.Fatalf("expected 2 enrollments created, got %d", len(env.enrollments.created))
	}
	if env.enrollments.created[0].BillingProgramID == env.enrollments.created[1].BillingProgramID {
		t.Error("each enrollment should carry its own billing program")
	}
}

func TestApprove_UnknownBillingCodeSkipsOption(t *testing.T) {
	env := newTestEnv()
	ccm := ProgramOption{ProgramType: "CCM", BillingProgramCode: "99490", Priority: 2}
	sg := env.pendingSuggestion(t, rpmOption(), ccm)
	env.enableMaterialization()
	delete(env.billingPrograms.byCode, "99490")

	approved, err := env.svc.Approve(context.Background(), sg.ID, uuid.New(), ApproveOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if approved.Status != StatusApproved {
		t.Errorf("expected APPROVED, got %s", approved.Status)
	}
	if len(approved.CreatedEnrollmentIDs) != 1 {
		t.Fatalf("resolvable program should still be enrolled, got %d", len(approved.CreatedEnrollmentIDs))
	}
	if env.enrollments.created[0].BillingProgramID != env.billingPrograms.byCode["99454"].ID {
		t.Error("surviving enrollment should be the resolvable program")
	}
}

func TestApprove_SameDayOtherProgramDoesNotBlock(t *testing.T) {
	env := newTestEnv()
	sg := env.pendingSuggestion(t)
	env.enableMaterialization()
	otherID := uuid.New()
	env.seedEnrollment(uuid.New(), &otherID)

	approved, err := env.svc.Approve(context.Background(), sg.ID, uuid.New(), ApproveOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(env.enrollments.created) != 1 {
		t.Fatalf("enrollment linked to another program must not suppress creation, got %d", len(env.enrollments.created))
	}
	if len(approved.CreatedEnrollmentIDs) != 1 {
		t.Errorf("expected 1 recorded enrollment, got %d", len(approved.CreatedEnrollmentIDs))
	}
}

func TestApprove_SelectedProgramType(t *testing.T) {
	env := newTestEnv()
	ccm := ProgramOption{ProgramType: "CCM", BillingProgramCode: "99490", Priority: 2}
	sg := env.pendingSuggestion(t, rpmOption(), ccm)
	env.enableMaterialization()

	approved, err := env.svc.Approve(context.Background(), sg.ID, uuid.New(), ApproveOptions{SelectedProgramType: "CCM"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(approved.CreatedEnrollmentIDs) != 1 {
		t.Fatalf("expected 1 enrollment for the selected type, got %d", len(approved.CreatedEnrollmentIDs))
	}
}

func TestApprove_SelectedProgramTypeNotSuggested(t *testing.T) {
	env := newTestEnv()
	sg := env.pendingSuggestion(t)
	env.enableMaterialization()

	var vErr *ValidationError
	_, err := env.svc.Approve(context.Background(), sg.ID, uuid.New(), ApproveOptions{SelectedProgramType: "BHI"})
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if got, _ := env.suggestions.GetByID(context.Background(), sg.ID); got.Status != StatusPending {
		t.Error("failed validation must leave the suggestion PENDING")
	}
}

func TestApprove_Terminal(t *testing.T) {
	env := newTestEnv()
	sg := env.pendingSuggestion(t)
	env.enableMaterialization()

	if _, err := env.svc.Approve(context.Background(), sg.ID, uuid.New(), ApproveOptions{}); err != nil {
		t.Fatalf("first approval failed: %v", err)
	}
	var isErr *InvalidStateError
	_, err := env.svc.Approve(context.Background(), sg.ID, uuid.New(), ApproveOptions{})
	if !errors.As(err, &isErr) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
}

func TestApprove_NotFound(t *testing.T) {
	env := newTestEnv()
	var nfErr *NotFoundError
	_, err := env.svc.Approve(context.Background(), uuid.New(), uuid.New(), ApproveOptions{})
	if !errors.As(err, &nfErr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestApprove_NoCareProgram(t *testing.T) {
	env := newTestEnv()
	sg := env.pendingSuggestion(t)
	// No care program configured; approval still succeeds.

	approved, err := env.svc.Approve(context.Background(), sg.ID, uuid.New(), ApproveOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if approved.Status != StatusApproved {
		t.Errorf("expected APPROVED, got %s", approved.Status)
	}
	if len(approved.CreatedEnrollmentIDs) != 0 {
		t.Errorf("expected no enrollments, got %d", len(approved.CreatedEnrollmentIDs))
	}
}

func TestApprove_ClonesStandardPreset(t *testing.T) {
	env := newTestEnv()
	sg := env.pendingSuggestion(t)
	env.enableMaterialization()
	delete(env.presets.orgPresets, "Diabetes Care")
	env.presets.standard["Diabetes Care"] = &PresetRef{ID: uuid.New(), Name: "Diabetes Care"}

	approved, err := env.svc.Approve(context.Background(), sg.ID, uuid.New(), ApproveOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.presets.cloned != 1 {
		t.Errorf("expected standardized preset to be cloned once, got %d", env.presets.cloned)
	}
	if len(approved.CreatedEnrollmentIDs) != 1 {
		t.Errorf("expected 1 enrollment, got %d", len(approved.CreatedEnrollmentIDs))
	}
}

func TestApprove_SameDayBackfill(t *testing.T) {
	env := newTestEnv()
	sg := env.pendingSuggestion(t)
	env.enableMaterialization()
	existingID := uuid.New()
	env.seedEnrollment(existingID, nil)

	approved, err := env.svc.Approve(context.Background(), sg.ID, uuid.New(), ApproveOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(env.enrollments.created) != 0 {
		t.Error("same-day duplicate should suppress enrollment creation")
	}
	if len(approved.CreatedEnrollmentIDs) != 1 || approved.CreatedEnrollmentIDs[0] != existingID {
		t.Error("backfilled enrollment should be recorded on the suggestion")
	}
	if _, ok := env.enrollments.linked[existingID]; !ok {
		t.Error("existing unlinked enrollment should get the billing program backfilled")
	}
}

func TestApprove_SameDayAlreadyLinked(t *testing.T) {
	env := newTestEnv()
	sg := env.pendingSuggestion(t)
	env.enableMaterialization()
	rpmID := env.billingPrograms.byCode["99454"].ID
	env.seedEnrollment(uuid.New(), &rpmID)

	approved, err := env.svc.Approve(context.Background(), sg.ID, uuid.New(), ApproveOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(approved.CreatedEnrollmentIDs) != 0 {
		t.Errorf("already-linked duplicate should add nothing, got %d", len(approved.CreatedEnrollmentIDs))
	}
}

func TestReject_RequiresReason(t *testing.T) {
	env := newTestEnv()
	sg := env.pendingSuggestion(t)

	var vErr *ValidationError
	_, err := env.svc.Reject(context.Background(), sg.ID, uuid.New(), "")
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestReject_Success(t *testing.T) {
	env := newTestEnv()
	sg := env.pendingSuggestion(t)

	rejected, err := env.svc.Reject(context.Background(), sg.ID, uuid.New(), "patient declined")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rejected.Status != StatusRejected {
		t.Errorf("expected REJECTED, got %s", rejected.Status)
	}
	if rejected.RejectionReason == nil || *rejected.RejectionReason != "patient declined" {
		t.Error("rejection reason should be recorded")
	}
	if len(env.enrollments.created) != 0 {
		t.Error("rejection must not create enrollments")
	}
}

func TestReject_Terminal(t *testing.T) {
	env := newTestEnv()
	sg := env.pendingSuggestion(t)
	env.svc.Reject(context.Background(), sg.ID, uuid.New(), "first")

	var isErr *InvalidStateError
	_, err := env.svc.Reject(context.Background(), sg.ID, uuid.New(), "second")
	if !errors.As(err, &isErr) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
}

func TestGet_OrgScoped(t *testing.T) {
	env := newTestEnv()
	sg := env.pendingSuggestion(t)

	if _, err := env.svc.Get(context.Background(), sg.ID, env.orgID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var nfErr *NotFoundError
	if _, err := env.svc.Get(context.Background(), sg.ID, uuid.New()); !errors.As(err, &nfErr) {
		t.Error("foreign organizations should see not-found")
	}
}

func TestListForPatient_StatusFilter(t *testing.T) {
	env := newTestEnv()
	sg := env.pendingSuggestion(t)
	env.enableMaterialization()
	if _, err := env.svc.Approve(context.Background(), sg.ID, uuid.New(), ApproveOptions{}); err != nil {
		t.Fatalf("approval failed: %v", err)
	}

	pending, err := env.svc.ListForPatient(context.Background(), env.patientID, env.orgID, StatusPending)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no PENDING suggestions after approval, got %d", len(pending))
	}

	approved, err := env.svc.ListForPatient(context.Background(), env.patientID, env.orgID, StatusApproved)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(approved) != 1 {
		t.Errorf("expected 1 APPROVED suggestion, got %d", len(approved))
	}

	all, err := env.svc.ListForPatient(context.Background(), env.patientID, env.orgID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected all suggestions without a filter, got %d", len(all))
	}

	var vErr *ValidationError
	if _, err := env.svc.ListForPatient(context.Background(), env.patientID, env.orgID, "BOGUS"); !errors.As(err, &vErr) {
		t.Error("unknown status should be rejected")
	}
}

func TestCreateTemplate_Validation(t *testing.T) {
	env := newTestEnv()
	cases := []*PackageTemplate{
		{Name: "No Code", DiagnosisCriteria: DiagnosisCriteria{Primary: []CriteriaCode{{Code: "E11.9", CodingSystem: CodingICD10}}},
			ProgramCombinations: ProgramCombination{Programs: []ProgramOption{rpmOption()}}},
		{Code: "no-name", DiagnosisCriteria: DiagnosisCriteria{Primary: []CriteriaCode{{Code: "E11.9", CodingSystem: CodingICD10}}},
			ProgramCombinations: ProgramCombination{Programs: []ProgramOption{rpmOption()}}},
		{Code: "no-criteria", Name: "No Criteria",
			ProgramCombinations: ProgramCombination{Programs: []ProgramOption{rpmOption()}}},
		{Code: "no-programs", Name: "No Programs",
			DiagnosisCriteria: DiagnosisCriteria{Primary: []CriteriaCode{{Code: "E11.9", CodingSystem: CodingICD10}}}},
	}
	var vErr *ValidationError
	for _, tc := range cases {
		if err := env.svc.CreateTemplate(context.Background(), tc); !errors.As(err, &vErr) {
			t.Errorf("template %q should fail validation", tc.Code)
		}
	}
}
