package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/models"
)

func kinds(changes []models.Change) map[string][]models.ChangeKind {
	out := map[string][]models.ChangeKind{}
	for _, c := range changes {
		out[c.Name] = append(out[c.Name], c.Kind)
	}
	return out
}

func TestDiff_AWSInstance(t *testing.T) {
	v4 := FromArguments([]models.ResourceArgument{
		{Name: "ami", ArgType: "string", Required: true},
		{Name: "instance_type", ArgType: "string", Required: true},
		{Name: "cpu_core_count", ArgType: "number", Deprecated: true},
		{Name: "network_interface", ArgType: "list"},
		{Name: "volume_type", ArgType: "string", Default: "gp2", ValidationRule: "oneof=standard gp2 io1"},
		{Name: "region", ArgType: "string"},
	})
	v5 := FromArguments([]models.ResourceArgument{
		{Name: "ami", ArgType: "string", Required: true},
		{Name: "instance_type", ArgType: "string", Required: true},
		{Name: "volume_type", ArgType: "string", Default: "gp3", ValidationRule: "oneof=gp2 gp3 io1"},
		{Name: "region", ArgType: "string", Required: true},
		{Name: "metadata_options", ArgType: "map"},
	})

	d := Diff("aws/aws_instance", "4.67.0", "5.0.0", v4, v5)

	assert.Equal(t, models.SeverityBreaking, d.Severity)
	assert.Equal(t, map[string][]models.ChangeKind{
		"network_interface": {models.ChangeRemoved},
		"region":            {models.ChangeNowRequired},
		"volume_type":       {models.ChangeNarrowed},
	}, kinds(d.Breaking))
	assert.Equal(t, map[string][]models.ChangeKind{
		"cpu_core_count": {models.ChangeRemoved},
	}, kinds(d.DeprecatedRemovals))
	assert.Equal(t, map[string][]models.ChangeKind{
		"metadata_options": {models.ChangeAdded},
		"volume_type":      {models.ChangeDefaultChanged},
	}, kinds(d.NonBreaking))
}

func TestDiff_Identical(t *testing.T) {
	fields := []Field{{Name: "a", Type: "string"}, {Name: "b", Required: true, Allowed: []string{"x", "y"}}}
	d := Diff("r", "1.0", "1.0", fields, fields)
	assert.Equal(t, models.SeverityNone, d.Severity)
	assert.Empty(t, d.Changes())
	assert.NotNil(t, d.Breaking)
}

func TestDiff_Symmetry(t *testing.T) {
	a := []Field{{Name: "kept"}, {Name: "old", Required: true}}
	b := []Field{{Name: "kept"}, {Name: "new", Required: true}}

	forward := Diff("r", "1", "2", a, b)
	backward := Diff("r", "2", "1", b, a)

	// Every breaking removal one way is a breaking addition the other way.
	assert.Equal(t, map[string][]models.ChangeKind{
		"old": {models.ChangeRemoved},
		"new": {models.ChangeAdded},
	}, kinds(forward.Breaking))
	assert.Equal(t, map[string][]models.ChangeKind{
		"new": {models.ChangeRemoved},
		"old": {models.ChangeAdded},
	}, kinds(backward.Breaking))
}

func TestDiff_RequiredAndType(t *testing.T) {
	from := []Field{{Name: "a", Type: "string", Required: true}, {Name: "b", Type: "string"}}
	to := []Field{{Name: "a", Type: "string"}, {Name: "b", Type: "number", Deprecated: true}}

	d := Diff("r", "1", "2", from, to)
	assert.Equal(t, map[string][]models.ChangeKind{"b": {models.ChangeTypeChanged}}, kinds(d.Breaking))
	assert.Equal(t, map[string][]models.ChangeKind{
		"a": {models.ChangeNowOptional},
		"b": {models.ChangeDeprecated},
	}, kinds(d.NonBreaking))
}

func TestConstraintChange(t *testing.T) {
	tests := []struct {
		name     string
		old, cur Field
		want     models.ChangeKind
	}{
		{"value lost", Field{Allowed: []string{"a", "b"}}, Field{Allowed: []string{"a"}}, models.ChangeNarrowed},
		{"value gained", Field{Allowed: []string{"a"}}, Field{Allowed: []string{"a", "b"}}, models.ChangeWidened},
		{"swap counts as narrowing", Field{Allowed: []string{"a", "b"}}, Field{Allowed: []string{"a", "c"}}, models.ChangeNarrowed},
		{"restriction added", Field{}, Field{Allowed: []string{"a"}}, models.ChangeNarrowed},
		{"restriction dropped", Field{Allowed: []string{"a"}}, Field{}, models.ChangeWidened},
		{"rule added", Field{}, Field{Rule: "max=10"}, models.ChangeNarrowed},
		{"rule dropped", Field{Rule: "max=10"}, Field{}, models.ChangeWidened},
		{"rule changed", Field{Rule: "max=10"}, Field{Rule: "max=20"}, models.ChangeNarrowed},
		{"reordered", Field{Allowed: []string{"b", "a"}}, Field{Allowed: []string{"a", "b"}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, _, ok := constraintChange(tt.old, tt.cur)
			assert.Equal(t, tt.want != "", ok)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestFromParameters(t *testing.T) {
	fields := FromParameters([]models.ModuleParameter{
		{Name: "state", ParamType: "str", Choices: []string{"present", "absent"}},
		{Name: "name", ParamType: "str", Required: true},
	})
	require.Len(t, fields, 2)
	assert.Equal(t, []string{"present", "absent"}, fields[0].Allowed)
	assert.Nil(t, fields[1].Allowed)
	assert.True(t, fields[1].Required)
}

func TestOneOf(t *testing.T) {
	assert.Equal(t, []string{"gp2", "gp3"}, oneOf("required,oneof=gp2 gp3"))
	assert.Nil(t, oneOf("max=5"))
	assert.Nil(t, oneOf(""))
}
