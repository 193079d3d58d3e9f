package suggestion

import "testing"

func icd(code string) DiagnosisCode {
	return DiagnosisCode{Code: code, CodingSystem: CodingICD10}
}

func critICD(code string) CriteriaCode {
	return CriteriaCode{Code: code, CodingSystem: CodingICD10}
}

func TestCodeMatches_Exact(t *testing.T) {
	if !codeMatches(critICD("E11.9"), icd("E11.9")) {
		t.Error("exact code should match")
	}
	if codeMatches(critICD("E11.9"), icd("E11.8")) {
		t.Error("different code should not match")
	}
}

func TestCodeMatches_Wildcard(t *testing.T) {
	for _, code := range []string{"J44.0", "J44.1", "J44.9"} {
		if !codeMatches(critICD("J44.*"), icd(code)) {
			t.Errorf("J44.* should match %s", code)
		}
	}
	if codeMatches(critICD("J44.*"), icd("J45.0")) {
		t.Error("J44.* should not match J45.0")
	}
}

func TestCodeMatches_WildcardDotIsLiteral(t *testing.T) {
	// The dot in the pattern must not act as a regex metacharacter.
	if codeMatches(critICD("J44.*"), icd("J4400")) {
		t.Error("J44.* should not match J4400")
	}
}

func TestCodeMatches_CaseInsensitive(t *testing.T) {
	if !codeMatches(critICD("j44.*"), icd("J44.1")) {
		t.Error("matching should ignore case")
	}
}

func TestCodeMatches_CodingSystemMustAgree(t *testing.T) {
	crit := CriteriaCode{Code: "E11.9", CodingSystem: CodingSNOMED}
	if codeMatches(crit, icd("E11.9")) {
		t.Error("same code across coding systems should not match")
	}
}

func TestMatchList_EachCriteriaSatisfiedOnce(t *testing.T) {
	criteria := []CriteriaCode{critICD("J44.*")}
	diagnoses := []DiagnosisCode{icd("J44.0"), icd("J44.1")}
	matched := matchList(criteria, diagnoses)
	if len(matched) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matched))
	}
	if matched[0].Code != "J44.0" {
		t.Errorf("first diagnosis should win, got %s", matched[0].Code)
	}
	if matched[0].MatchedBy != "J44.*" {
		t.Errorf("expected matched_by J44.*, got %s", matched[0].MatchedBy)
	}
}

func TestMatch_NoCriteria(t *testing.T) {
	result := Match([]DiagnosisCode{icd("E11.9")}, DiagnosisCriteria{})
	if result.Score != 0 || result.TotalMatched != 0 {
		t.Errorf("empty criteria should score zero, got %+v", result)
	}
}

func TestMatch_Score(t *testing.T) {
	// 2 of 3 criteria matched (67%) plus the primary-minimum bonus.
	criteria := DiagnosisCriteria{
		Primary:           []CriteriaCode{critICD("E11.9"), critICD("I10")},
		Secondary:         []CriteriaCode{critICD("E78.5")},
		MinPrimaryMatches: 2,
	}
	result := Match([]DiagnosisCode{icd("E11.9"), icd("I10")}, criteria)
	if result.Score != 77 {
		t.Errorf("expected score 77, got %d", result.Score)
	}
	if !result.MeetsMinimum {
		t.Error("expected minimum to be met")
	}
	if result.TotalMatched != 2 {
		t.Errorf("expected 2 matched, got %d", result.TotalMatched)
	}
}

func TestMatch_BelowMinimumNoBonus(t *testing.T) {
	criteria := DiagnosisCriteria{
		Primary:           []CriteriaCode{critICD("E11.9"), critICD("I10")},
		MinPrimaryMatches: 2,
	}
	result := Match([]DiagnosisCode{icd("E11.9")}, criteria)
	if result.MeetsMinimum {
		t.Error("minimum should not be met with 1 of 2 primary matches")
	}
	if result.Score != 50 {
		t.Errorf("expected score 50, got %d", result.Score)
	}
}

func TestMatch_MultiMorbidityBonus(t *testing.T) {
	criteria := DiagnosisCriteria{
		Primary:              []CriteriaCode{critICD("E11.9")},
		Secondary:            []CriteriaCode{critICD("I10"), critICD("E78.5")},
		MinPrimaryMatches:    1,
		PreferMultiMorbidity: true,
	}
	result := Match([]DiagnosisCode{icd("E11.9"), icd("I10"), icd("E78.5")}, criteria)
	// Full coverage plus both bonuses clamps to 100.
	if result.Score != 100 {
		t.Errorf("expected score clamped to 100, got %d", result.Score)
	}
}

func TestMatch_MultiMorbidityNeedsTwoSecondary(t *testing.T) {
	criteria := DiagnosisCriteria{
		Primary:              []CriteriaCode{critICD("E11.9")},
		Secondary:            []CriteriaCode{critICD("I10"), critICD("E78.5")},
		MinPrimaryMatches:    1,
		PreferMultiMorbidity: true,
	}
	result := Match([]DiagnosisCode{icd("E11.9"), icd("I10")}, criteria)
	// 2 of 3 matched (67%) + minimum bonus, no multi-morbidity bonus.
	if result.Score != 77 {
		t.Errorf("expected score 77, got %d", result.Score)
	}
}

func TestMatch_NoDiagnoses(t *testing.T) {
	criteria := DiagnosisCriteria{
		Primary: []CriteriaCode{critICD("E11.9")},
	}
	result := Match(nil, criteria)
	// MinPrimaryMatches of zero is trivially met, leaving only the bonus.
	if result.Score != 10 {
		t.Errorf("expected score 10, got %d", result.Score)
	}
	if result.TotalMatched != 0 {
		t.Errorf("expected no matches, got %d", result.TotalMatched)
	}
}
