package version

import (
	"sort"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/models"
)

// Target is one registered version with its fields.
type Target struct {
	Version string
	Fields  []Field
}

// Check reports whether a usage naming the arguments in used stays valid
// at target. previous is the registered version just below target, if any;
// it only decides whether a required argument is marked newly required.
func Check(ref string, used []string, target Target, previous *Target) (models.CompatibilityReport, error) {
	report := models.CompatibilityReport{
		Ref:           ref,
		TargetVersion: target.Version,
		UsedArguments: []string{},
		Issues:        []models.CompatibilityIssue{},
	}
	if previous != nil {
		report.PreviousVersion = previous.Version
	}

	inUse := make(map[string]bool, len(used))
	for _, name := range used {
		if name == "" {
			return report, errors.Validationf("used argument names must not be empty")
		}
		if inUse[name] {
			continue
		}
		inUse[name] = true
		report.UsedArguments = append(report.UsedArguments, name)
	}

	fields := byName(target.Fields)
	for _, name := range report.UsedArguments {
		f, ok := fields[name]
		switch {
		case !ok:
			report.Issues = append(report.Issues, models.CompatibilityIssue{
				Name:   name,
				Kind:   models.IssueMissing,
				Detail: "not defined at " + target.Version,
			})
		case f.Deprecated:
			report.Issues = append(report.Issues, models.CompatibilityIssue{
				Name:   name,
				Kind:   models.IssueDeprecated,
				Detail: "deprecated at " + target.Version,
			})
		}
	}

	var before map[string]Field
	if previous != nil {
		before = byName(previous.Fields)
	}
	var unset []string
	for name, f := range fields {
		if f.Required && !inUse[name] {
			unset = append(unset, name)
		}
	}
	sort.Strings(unset)
	for _, name := range unset {
		issue := models.CompatibilityIssue{
			Name:   name,
			Kind:   models.IssueNowRequiredButUnset,
			Detail: "required at " + target.Version + " but not set",
		}
		if before != nil {
			if old, ok := before[name]; !ok || !old.Required {
				issue.NewlyRequired = true
				issue.Detail = "became required at " + target.Version + " and is not set"
			}
		}
		report.Issues = append(report.Issues, issue)
	}

	report.Status = statusOf(report.Issues)
	return report, nil
}

func statusOf(issues []models.CompatibilityIssue) models.CompatibilityStatus {
	warnings := false
	for _, issue := range issues {
		switch issue.Kind {
		case models.IssueMissing, models.IssueNowRequiredButUnset:
			return models.StatusIncompatible
		case models.IssueDeprecated:
			warnings = true
		}
	}
	if warnings {
		return models.StatusCompatibleWithWarnings
	}
	return models.StatusCompatible
}
