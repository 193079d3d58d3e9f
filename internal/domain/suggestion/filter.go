package suggestion

// FilterPrograms drops program options whose type the organization does not
// support. An empty supported list means the organization accepts all program
// types and no filtering occurs.
func FilterPrograms(options []ProgramOption, supported []string) []ProgramOption {
	if len(supported) == 0 {
		return options
	}
	allowed := make(map[string]bool, len(supported))
	for _, p := range supported {
		allowed[p] = true
	}
	var kept []ProgramOption
	for _, opt := range options {
		if allowed[opt.ProgramType] {
			kept = append(kept, opt)
		}
	}
	return kept
}

// FilterTemplates retains only templates offering at least one program type
// the organization supports. Applied before ranking so scores never reflect
// programs the organization cannot bill.
func FilterTemplates(templates []*PackageTemplate, supported []string) []*PackageTemplate {
	if len(supported) == 0 {
		return templates
	}
	var kept []*PackageTemplate
	for _, t := range templates {
		if len(FilterPrograms(t.ProgramCombinations.Programs, supported)) > 0 {
			kept = append(kept, t)
		}
	}
	return kept
}
