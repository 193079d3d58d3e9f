package suggestion

import "testing"

func rpmCcmTemplate() *PackageTemplate {
	return &PackageTemplate{
		ProgramCombinations: ProgramCombination{
			Programs: []ProgramOption{
				{ProgramType: "RPM", BillingProgramCode: "99454", Priority: 1},
				{ProgramType: "CCM", BillingProgramCode: "99490", Priority: 2},
			},
		},
	}
}

func TestFilterPrograms_EmptySupportedKeepsAll(t *testing.T) {
	options := rpmCcmTemplate().ProgramCombinations.Programs
	kept := FilterPrograms(options, nil)
	if len(kept) != 2 {
		t.Errorf("empty supported list should keep all options, got %d", len(kept))
	}
}

func TestFilterPrograms_DropsUnsupported(t *testing.T) {
	options := rpmCcmTemplate().ProgramCombinations.Programs
	kept := FilterPrograms(options, []string{"RPM"})
	if len(kept) != 1 {
		t.Fatalf("expected 1 option, got %d", len(kept))
	}
	if kept[0].ProgramType != "RPM" {
		t.Errorf("expected RPM to survive, got %s", kept[0].ProgramType)
	}
}

func TestFilterPrograms_NoneSupported(t *testing.T) {
	options := rpmCcmTemplate().ProgramCombinations.Programs
	if kept := FilterPrograms(options, []string{"BHI"}); len(kept) != 0 {
		t.Errorf("expected no options, got %d", len(kept))
	}
}

func TestFilterTemplates(t *testing.T) {
	rpmOnly := &PackageTemplate{
		ProgramCombinations: ProgramCombination{
			Programs: []ProgramOption{{ProgramType: "RPM", BillingProgramCode: "99454"}},
		},
	}
	templates := []*PackageTemplate{rpmCcmTemplate(), rpmOnly}

	kept := FilterTemplates(templates, []string{"CCM"})
	if len(kept) != 1 {
		t.Fatalf("expected 1 template, got %d", len(kept))
	}

	if kept := FilterTemplates(templates, nil); len(kept) != 2 {
		t.Errorf("empty supported list should keep all templates, got %d", len(kept))
	}
}
