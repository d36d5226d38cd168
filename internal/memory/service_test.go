package memory

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/graph"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/models"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/storage"
)

func setup(t *testing.T, opts Options) (*Service, *storage.Store) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "memory.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(store, nil, opts), store
}

func seedInstance(t *testing.T, store *storage.Store) {
	t.Helper()
	_, err := store.CreateProviderResource(storage.ProviderResourceInput{
		Provider: "aws", ResourceType: "aws_instance", SchemaVersion: "4.67.0",
		Arguments: []storage.ArgumentInput{
			{Name: "ami", Required: true},
			{Name: "region"},
			{Name: "cpu_core_count", Deprecated: true},
		},
	})
	require.NoError(t, err)
	_, err = store.CreateProviderResource(storage.ProviderResourceInput{
		Provider: "aws", ResourceType: "aws_instance", SchemaVersion: "5.0.0",
		Arguments: []storage.ArgumentInput{
			{Name: "ami", Required: true},
			{Name: "region", Required: true},
		},
	})
	require.NoError(t, err)
}

func TestService_Context(t *testing.T) {
	svc, store := setup(t, Options{MaxDepth: 3})

	a, _, err := store.CreateEntity(storage.EntityInput{
		Name: "A", Type: "module",
		Observations: []storage.ObservationInput{{Type: "note", Content: "root module"}},
	})
	require.NoError(t, err)
	b, _, err := store.CreateEntity(storage.EntityInput{Name: "B", Type: "module"})
	require.NoError(t, err)
	c, _, err := store.CreateEntity(storage.EntityInput{Name: "C", Type: "module"})
	require.NoError(t, err)
	for _, pair := range [][2]string{{a.ID, b.ID}, {b.ID, c.ID}, {c.ID, a.ID}} {
		_, err := store.CreateRelationship(storage.RelationshipInput{SourceID: pair[0], TargetID: pair[1], Type: "calls"})
		require.NoError(t, err)
	}

	ctx, err := svc.Context(graph.Request{RootID: a.ID, MaxDepth: 3})
	require.NoError(t, err)
	assert.Len(t, ctx.Nodes, 3)
	assert.Len(t, ctx.Edges, 2)
	assert.Len(t, ctx.Nodes[0].Observations, 1)

	_, err = svc.Context(graph.Request{RootID: a.ID, MaxDepth: 4})
	assert.True(t, errors.IsValidation(err))

	// Soft-deleting C leaves its edges dangling until pruned.
	require.NoError(t, store.DeleteEntity(c.ID))
	_, err = svc.Context(graph.Request{RootID: a.ID, MaxDepth: 1})
	assert.True(t, errors.Is(err, errors.ErrDanglingReference))

	n, err := store.PruneDanglingRelationships()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	ctx, err = svc.Context(graph.Request{RootID: a.ID, MaxDepth: 1})
	require.NoError(t, err)
	assert.Len(t, ctx.Nodes, 2)
}

func TestService_DiffProvider(t *testing.T) {
	svc, store := setup(t, Options{})
	seedInstance(t, store)

	d, err := svc.DiffProvider(models.ProviderRef{ResourceType: "aws_instance"}, "4.67.0", "5.0.0")
	require.NoError(t, err)
	assert.Equal(t, "aws/aws_instance", d.Ref)
	assert.Equal(t, models.SeverityBreaking, d.Severity)
	require.Len(t, d.Breaking, 1)
	assert.Equal(t, "region", d.Breaking[0].Name)
	require.Len(t, d.DeprecatedRemovals, 1)
	assert.Equal(t, "cpu_core_count", d.DeprecatedRemovals[0].Name)

	_, err = svc.DiffProvider(models.ProviderRef{ResourceType: "aws_instance"}, "4.67.0", "9.9.9")
	assert.True(t, errors.Is(err, errors.ErrUnknownVersion))

	_, err = svc.DiffProvider(models.ProviderRef{Provider: "aws", ResourceType: "aws_vpc"}, "1", "2")
	assert.True(t, errors.IsNotFound(err))
}

func TestService_CheckProvider(t *testing.T) {
	svc, store := setup(t, Options{})
	seedInstance(t, store)
	ref := models.ProviderRef{Provider: "aws", ResourceType: "aws_instance"}

	report, err := svc.CheckProvider(ref, []string{"ami"}, "5.0.0")
	require.NoError(t, err)
	assert.Equal(t, models.StatusIncompatible, report.Status)
	assert.Equal(t, "4.67.0", report.PreviousVersion)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, models.IssueNowRequiredButUnset, report.Issues[0].Kind)
	assert.True(t, report.Issues[0].NewlyRequired)

	report, err = svc.CheckProvider(ref, []string{"ami", "cpu_core_count"}, "4.67.0")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompatibleWithWarnings, report.Status)
	assert.Empty(t, report.PreviousVersion)

	_, err = svc.CheckProvider(ref, []string{"ami"}, "6.0.0")
	assert.True(t, errors.Is(err, errors.ErrUnknownVersion))
}

func TestService_Ansible(t *testing.T) {
	svc, store := setup(t, Options{})
	for _, in := range []storage.AnsibleModuleInput{
		{Namespace: "amazon", Name: "aws", ModuleName: "ec2_instance", Version: "6.0.0", Parameters: []storage.ParameterInput{
			{Name: "state", Choices: []string{"present", "absent", "restarted"}},
			{Name: "instance_type"},
		}},
		{Namespace: "amazon", Name: "aws", ModuleName: "ec2_instance", Version: "7.0.0", Parameters: []storage.ParameterInput{
			{Name: "state", Choices: []string{"present", "absent"}},
			{Name: "instance_type", Deprecated: true},
		}},
	} {
		_, err := store.CreateAnsibleModule(in)
		require.NoError(t, err)
	}
	ref := models.ModuleRef{Namespace: "amazon", Name: "aws", ModuleName: "ec2_instance"}

	d, err := svc.DiffAnsible(ref, "6.0.0", "7.0.0")
	require.NoError(t, err)
	require.Len(t, d.Breaking, 1)
	assert.Equal(t, models.ChangeNarrowed, d.Breaking[0].Kind)

	report, err := svc.CheckAnsible(ref, []string{"state", "instance_type"}, "7.0.0")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompatibleWithWarnings, report.Status)

	latest, err := svc.ResolveAnsible(ref, "")
	require.NoError(t, err)
	assert.Equal(t, "7.0.0", latest)

	pinned, err := svc.ResolveAnsible(ref, "< 7")
	require.NoError(t, err)
	assert.Equal(t, "6.0.0", pinned)
}

func TestService_ResolveProvider(t *testing.T) {
	svc, store := setup(t, Options{})
	seedInstance(t, store)
	ref := models.ProviderRef{ResourceType: "aws_instance"}

	v, err := svc.ResolveProvider(ref, "~4")
	require.NoError(t, err)
	assert.Equal(t, "4.67.0", v)

	_, err = svc.ResolveProvider(ref, ">= 6")
	assert.True(t, errors.Is(err, errors.ErrUnknownVersion))
}
