package suggestion

import (
	"math"
	"regexp"
	"strings"
)

// Score adjustments applied on top of the base criteria-coverage percentage.
const (
	meetsMinimumBonus   = 10
	multiMorbidityBonus = 15
)

// compilePattern turns a wildcard criteria code into an anchored
// case-insensitive regular expression. Literal dots are escaped and each "*"
// matches any sequence, so "J44.*" covers J44.0 through J44.9 but not J45.0.
func compilePattern(code string) (*regexp.Regexp, error) {
	escaped := strings.ReplaceAll(regexp.QuoteMeta(code), `\*`, ".*")
	return regexp.Compile("(?i)^" + escaped + "$")
}

// codeMatches reports whether a single diagnosis satisfies a single criteria
// entry. Coding systems must be identical; the codes then match either
// exactly or through the criteria's wildcard pattern.
func codeMatches(criteria CriteriaCode, diag DiagnosisCode) bool {
	if criteria.CodingSystem != diag.CodingSystem {
		return false
	}
	if !strings.Contains(criteria.Code, "*") {
		return criteria.Code == diag.Code
	}
	re, err := compilePattern(criteria.Code)
	if err != nil {
		return false
	}
	return re.MatchString(diag.Code)
}

// matchList satisfies each criteria entry at most once: for every entry the
// diagnosis set is scanned and the first hit wins, regardless of how many
// diagnoses could satisfy it.
func matchList(criteria []CriteriaCode, diagnoses []DiagnosisCode) []MatchedCode {
	var matched []MatchedCode
	for _, crit := range criteria {
		for _, diag := range diagnoses {
			if codeMatches(crit, diag) {
				matched = append(matched, MatchedCode{
					Code:         diag.Code,
					CodingSystem: diag.CodingSystem,
					Display:      diag.Display,
					MatchedBy:    crit.Code,
				})
				break
			}
		}
	}
	return matched
}

// Match compares a patient's diagnosis set against one template's criteria
// and produces the fit score. The score is the percentage of criteria
// satisfied, plus a bonus when the primary minimum is met and a further bonus
// for multi-morbid fits on templates that prefer them, clamped to [0,100].
//
// A template with no criteria at all is malformed and scores zero.
func Match(diagnoses []DiagnosisCode, criteria DiagnosisCriteria) MatchResult {
	totalCriteria := len(criteria.Primary) + len(criteria.Secondary)
	if totalCriteria == 0 {
		return MatchResult{}
	}

	matchedPrimary := matchList(criteria.Primary, diagnoses)
	matchedSecondary := matchList(criteria.Secondary, diagnoses)
	totalMatched := len(matchedPrimary) + len(matchedSecondary)
	meetsMinimum := len(matchedPrimary) >= criteria.MinPrimaryMatches

	score := float64(totalMatched) / float64(totalCriteria) * 100
	if meetsMinimum {
		score += meetsMinimumBonus
	}
	if criteria.PreferMultiMorbidity && len(matchedSecondary) >= 2 {
		score += multiMorbidityBonus
	}

	rounded := int(math.Round(score))
	if rounded > 100 {
		rounded = 100
	}
	if rounded < 0 {
		rounded = 0
	}

	return MatchResult{
		Score:            rounded,
		MatchedPrimary:   matchedPrimary,
		MatchedSecondary: matchedSecondary,
		TotalMatched:     totalMatched,
		MeetsMinimum:     meetsMinimum,
	}
}
