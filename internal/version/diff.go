package version

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/models"
)

// Field is the version-independent view of a resource argument or a module
// parameter that diffing and compatibility checks work on.
type Field struct {
	Name       string
	Type       string
	Required   bool
	Default    string
	Deprecated bool
	// Allowed lists the permitted values; nil means unconstrained.
	Allowed []string
	// Rule is the raw validation rule, kept for constraints that are not a value set.
	Rule string
}

// FromArguments converts provider resource arguments. A "oneof=" term of
// the validation rule becomes the allowed value set.
func FromArguments(args []models.ResourceArgument) []Field {
	fields := make([]Field, len(args))
	for i, a := range args {
		fields[i] = Field{
			Name:       a.Name,
			Type:       a.ArgType,
			Required:   a.Required,
			Default:    a.Default,
			Deprecated: a.Deprecated,
			Allowed:    oneOf(a.ValidationRule),
			Rule:       a.ValidationRule,
		}
	}
	return fields
}

// FromParameters converts Ansible module parameters; choices become the
// allowed value set.
func FromParameters(params []models.ModuleParameter) []Field {
	fields := make([]Field, len(params))
	for i, p := range params {
		var allowed []string
		if len(p.Choices) > 0 {
			allowed = slices.Clone(p.Choices)
		}
		fields[i] = Field{
			Name:       p.Name,
			Type:       p.ParamType,
			Required:   p.Required,
			Default:    p.Default,
			Deprecated: p.Deprecated,
			Allowed:    allowed,
		}
	}
	return fields
}

func oneOf(rule string) []string {
	for _, term := range strings.Split(rule, ",") {
		if values, ok := strings.CutPrefix(strings.TrimSpace(term), "oneof="); ok {
			return strings.Fields(values)
		}
	}
	return nil
}

// Diff classifies the changes from one version's fields to another's.
//
// Removing a field is breaking unless it was deprecated beforehand. Adding
// a field is non-breaking only when it is optional: a new required field
// invalidates existing callers just like an optional one turning required.
// Narrowing the allowed values and changing the type are breaking;
// widening, relaxing a requirement, changing a default and deprecating are not.
func Diff(ref, fromVersion, toVersion string, from, to []Field) models.VersionDiff {
	before, after := byName(from), byName(to)
	names := make([]string, 0, len(before)+len(after))
	for name := range before {
		names = append(names, name)
	}
	for name := range after {
		if _, ok := before[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	d := models.VersionDiff{
		Ref:                ref,
		FromVersion:        fromVersion,
		ToVersion:          toVersion,
		Breaking:           []models.Change{},
		DeprecatedRemovals: []models.Change{},
		NonBreaking:        []models.Change{},
	}
	for _, name := range names {
		old, hadOld := before[name]
		cur, hasNew := after[name]
		var changes []models.Change
		switch {
		case hadOld && !hasNew:
			changes = []models.Change{removed(old)}
		case !hadOld && hasNew:
			changes = []models.Change{added(cur)}
		default:
			changes = compareFields(old, cur)
		}
		for _, c := range changes {
			switch c.Classification {
			case models.ClassBreaking:
				d.Breaking = append(d.Breaking, c)
			case models.ClassDeprecatedRemoval:
				d.DeprecatedRemovals = append(d.DeprecatedRemovals, c)
			default:
				d.NonBreaking = append(d.NonBreaking, c)
			}
		}
	}

	switch {
	case len(d.Breaking) > 0:
		d.Severity = models.SeverityBreaking
	case len(d.DeprecatedRemovals) > 0:
		d.Severity = models.SeverityDeprecatedRemoval
	case len(d.NonBreaking) > 0:
		d.Severity = models.SeverityNonBreaking
	default:
		d.Severity = models.SeverityNone
	}
	return d
}

func byName(fields []Field) map[string]Field {
	m := make(map[string]Field, len(fields))
	for _, f := range fields {
		m[f.Name] = f
	}
	return m
}

func removed(f Field) models.Change {
	if f.Deprecated {
		return models.Change{
			Name:           f.Name,
			Kind:           models.ChangeRemoved,
			Classification: models.ClassDeprecatedRemoval,
			Detail:         "removed after deprecation",
		}
	}
	return models.Change{
		Name:           f.Name,
		Kind:           models.ChangeRemoved,
		Classification: models.ClassBreaking,
		Detail:         "removed without prior deprecation",
	}
}

func added(f Field) models.Change {
	if f.Required {
		return models.Change{
			Name:           f.Name,
			Kind:           models.ChangeAdded,
			Classification: models.ClassBreaking,
			Detail:         "added as required",
		}
	}
	return models.Change{
		Name:           f.Name,
		Kind:           models.ChangeAdded,
		Classification: models.ClassNonBreaking,
		Detail:         "added as optional",
	}
}

func compareFields(old, cur Field) []models.Change {
	var out []models.Change
	add := func(kind models.ChangeKind, class models.Classification, format string, args ...any) {
		out = append(out, models.Change{Name: cur.Name, Kind: kind, Classification: class, Detail: fmt.Sprintf(format, args...)})
	}

	switch {
	case !old.Required && cur.Required:
		add(models.ChangeNowRequired, models.ClassBreaking, "optional argument became required")
	case old.Required && !cur.Required:
		add(models.ChangeNowOptional, models.ClassNonBreaking, "required argument became optional")
	}
	if old.Type != "" && cur.Type != "" && old.Type != cur.Type {
		add(models.ChangeTypeChanged, models.ClassBreaking, "type changed from %s to %s", old.Type, cur.Type)
	}
	if kind, detail, ok := constraintChange(old, cur); ok {
		class := models.ClassNonBreaking
		if kind == models.ChangeNarrowed {
			class = models.ClassBreaking
		}
		add(kind, class, "%s", detail)
	}
	if old.Default != cur.Default {
		add(models.ChangeDefaultChanged, models.ClassNonBreaking, "default changed from %q to %q", old.Default, cur.Default)
	}
	if !old.Deprecated && cur.Deprecated {
		add(models.ChangeDeprecated, models.ClassNonBreaking, "argument deprecated")
	}
	return out
}

// constraintChange compares the allowed values of two versions of a field.
// A value set losing any member is narrowed even if it also gains some.
func constraintChange(old, cur Field) (models.ChangeKind, string, bool) {
	switch {
	case old.Allowed == nil && cur.Allowed == nil:
		switch {
		case old.Rule == cur.Rule:
			return "", "", false
		case old.Rule == "":
			return models.ChangeNarrowed, fmt.Sprintf("validation rule %q added", cur.Rule), true
		case cur.Rule == "":
			return models.ChangeWidened, fmt.Sprintf("validation rule %q dropped", old.Rule), true
		default:
			return models.ChangeNarrowed, fmt.Sprintf("validation rule changed from %q to %q", old.Rule, cur.Rule), true
		}
	case old.Allowed == nil:
		return models.ChangeNarrowed, fmt.Sprintf("restricted to %s", strings.Join(cur.Allowed, ", ")), true
	case cur.Allowed == nil:
		return models.ChangeWidened, "value restriction dropped", true
	}

	lost := missingFrom(old.Allowed, cur.Allowed)
	gained := missingFrom(cur.Allowed, old.Allowed)
	switch {
	case len(lost) > 0:
		return models.ChangeNarrowed, fmt.Sprintf("no longer accepts %s", strings.Join(lost, ", ")), true
	case len(gained) > 0:
		return models.ChangeWidened, fmt.Sprintf("now also accepts %s", strings.Join(gained, ", ")), true
	}
	return "", "", false
}

// missingFrom returns the values of a absent from b, sorted.
func missingFrom(a, b []string) []string {
	var out []string
	for _, v := range a {
		if !slices.Contains(b, v) && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
