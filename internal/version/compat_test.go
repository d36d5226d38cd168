package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/models"
)

func issueKinds(r models.CompatibilityReport) map[string]models.IssueKind {
	out := map[string]models.IssueKind{}
	for _, i := range r.Issues {
		out[i.Name] = i.Kind
	}
	return out
}

func TestCheck_NewlyRequiredRegion(t *testing.T) {
	previous := &Target{Version: "4.67.0", Fields: []Field{
		{Name: "ami", Required: true},
		{Name: "instance_type", Required: true},
		{Name: "region"},
	}}
	target := Target{Version: "5.0.0", Fields: []Field{
		{Name: "ami", Required: true},
		{Name: "instance_type", Required: true},
		{Name: "region", Required: true},
	}}

	report, err := Check("aws/aws_instance", []string{"ami", "instance_type"}, target, previous)
	require.NoError(t, err)

	assert.Equal(t, models.StatusIncompatible, report.Status)
	assert.Equal(t, "4.67.0", report.PreviousVersion)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "region", report.Issues[0].Name)
	assert.Equal(t, models.IssueNowRequiredButUnset, report.Issues[0].Kind)
	assert.True(t, report.Issues[0].NewlyRequired)

	report, err = Check("aws/aws_instance", []string{"ami", "instance_type", "region"}, target, previous)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompatible, report.Status)
	assert.Empty(t, report.Issues)
}

func TestCheck_MissingAndDeprecated(t *testing.T) {
	target := Target{Version: "2.0", Fields: []Field{
		{Name: "name"},
		{Name: "old_flag", Deprecated: true},
	}}

	report, err := Check("r", []string{"name", "old_flag"}, target, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompatibleWithWarnings, report.Status)
	assert.Equal(t, map[string]models.IssueKind{"old_flag": models.IssueDeprecated}, issueKinds(report))

	report, err = Check("r", []string{"name", "gone", "old_flag"}, target, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusIncompatible, report.Status)
	assert.Equal(t, models.IssueMissing, issueKinds(report)["gone"])
}

func TestCheck_RequiredWithoutHistory(t *testing.T) {
	target := Target{Version: "1.0", Fields: []Field{{Name: "b", Required: true}, {Name: "a", Required: true}}}

	report, err := Check("r", nil, target, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusIncompatible, report.Status)
	require.Len(t, report.Issues, 2)
	assert.Equal(t, "a", report.Issues[0].Name)
	assert.False(t, report.Issues[0].NewlyRequired)
	assert.Empty(t, report.PreviousVersion)
}

func TestCheck_StillRequiredIsNotNew(t *testing.T) {
	previous := &Target{Version: "1.0", Fields: []Field{{Name: "a", Required: true}}}
	target := Target{Version: "2.0", Fields: []Field{{Name: "a", Required: true}, {Name: "b", Required: true}}}

	report, err := Check("r", []string{}, target, previous)
	require.NoError(t, err)
	require.Len(t, report.Issues, 2)
	assert.False(t, report.Issues[0].NewlyRequired, "a was already required")
	assert.True(t, report.Issues[1].NewlyRequired, "b did not exist before")
}

func TestCheck_UsedNames(t *testing.T) {
	target := Target{Version: "1.0", Fields: []Field{{Name: "a"}}}

	report, err := Check("r", []string{"a", "a", "a"}, target, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, report.UsedArguments)
	assert.Equal(t, models.StatusCompatible, report.Status)

	_, err = Check("r", []string{"a", ""}, target, nil)
	assert.True(t, errors.IsValidation(err))
}
