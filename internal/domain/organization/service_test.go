package organization

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

type mockRepo struct{ store map[uuid.UUID]*Organization }

func newMockRepo() *mockRepo { return &mockRepo{store: make(map[uuid.UUID]*Organization)} }
func (m *mockRepo) Create(_ context.Context, o *Organization) error {
	o.ID = uuid.New(); m.store[o.ID] = o; return nil
}
func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Organization, error) {
	return m.store[id], nil
}
func (m *mockRepo) Update(_ context.Context, o *Organization) error {
	m.store[o.ID] = o; return nil
}
func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Organization, int, error) {
	var r []*Organization
	for _, o := range m.store { r = append(r, o) }
	return r, len(r), nil
}
func (m *mockRepo) UpdateSupportedPrograms(_ context.Context, id uuid.UUID, programs []string) error {
	if o, ok := m.store[id]; ok { o.SupportedBillingPrograms = programs }
	return nil
}

func TestCreate_Defaults(t *testing.T) {
	svc := NewService(newMockRepo())
	o := &Organization{Name: "Valley Clinic"}
	if err := svc.Create(context.Background(), o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Status != "active" {
		t.Errorf("expected default status active, got %q", o.Status)
	}
}

func TestCreate_MissingName(t *testing.T) {
	svc := NewService(newMockRepo())
	if err := svc.Create(context.Background(), &Organization{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestCreate_InvalidProgramType(t *testing.T) {
	svc := NewService(newMockRepo())
	o := &Organization{Name: "Valley Clinic", SupportedBillingPrograms: []string{"XYZ"}}
	if err := svc.Create(context.Background(), o); err == nil {
		t.Fatal("expected error")
	}
}

func TestSetSupportedPrograms(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	o := &Organization{Name: "Valley Clinic"}
	svc.Create(context.Background(), o)

	if err := svc.SetSupportedPrograms(context.Background(), o.ID, []string{"RPM", "CCM"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := svc.SupportedBillingPrograms(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 supported programs, got %d", len(got))
	}
}

func TestSetSupportedPrograms_EmptyClearsRestrictions(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	o := &Organization{Name: "Valley Clinic", SupportedBillingPrograms: []string{"RPM"}}
	svc.Create(context.Background(), o)

	if err := svc.SetSupportedPrograms(context.Background(), o.ID, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := svc.SupportedBillingPrograms(context.Background(), o.ID)
	if len(got) != 0 {
		t.Errorf("expected no restrictions, got %v", got)
	}
}

func TestSetSupportedPrograms_Invalid(t *testing.T) {
	svc := NewService(newMockRepo())
	if err := svc.SetSupportedPrograms(context.Background(), uuid.New(), []string{"ABC"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSupportedBillingPrograms_NotFound(t *testing.T) {
	svc := NewService(newMockRepo())
	if _, err := svc.SupportedBillingPrograms(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error")
	}
}
