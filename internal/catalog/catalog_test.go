package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/models"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/storage"
)

const sample = `
providers:
  - provider: aws
    resource_type: aws_instance
    schema_version: 4.67.0
    doc_url: https://registry.terraform.io/providers/hashicorp/aws/4.67.0/docs/resources/instance
    last_verified: 2024-05-01T00:00:00Z
    arguments:
      - name: ami
        type: string
        required: true
      - name: volume_type
        type: string
        default: gp2
        validation: oneof=standard gp2 io1
  - provider: aws
    resource_type: aws_instance
    schema_version: 5.0.0
    arguments:
      - name: ami
        type: string
        required: true
      - name: region
        type: string
        required: true
ansible:
  - namespace: amazon
    name: aws
    module: ec2_instance
    version: 7.0.0
    parameters:
      - name: state
        type: str
        default: present
        choices: [present, absent, running]
      - name: instance_type
        type: str
        version_added: 1.0.0
`

func openStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(filepath.Join(t.TempDir(), "memory.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestParse(t *testing.T) {
	doc, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, doc.Providers, 2)
	require.Len(t, doc.Ansible, 1)

	p := doc.Providers[0]
	assert.Equal(t, "4.67.0", p.SchemaVersion)
	require.NotNil(t, p.LastVerified)
	assert.Equal(t, 2024, p.LastVerified.Year())
	assert.Equal(t, "oneof=standard gp2 io1", p.Arguments[1].Validation)
	assert.Equal(t, []string{"present", "absent", "running"}, doc.Ansible[0].Parameters[0].Choices)
}

func TestParse_Empty(t *testing.T) {
	doc, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, doc.Providers)
	assert.Empty(t, doc.Ansible)
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := Parse(strings.NewReader("providers:\n  - provider: aws\n    resource: aws_instance\n"))
	assert.True(t, errors.IsValidation(err))
}

func TestApply(t *testing.T) {
	store := openStore(t)
	doc, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	res, err := Apply(store, doc, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.ProvidersCreated)
	assert.Equal(t, 1, res.ModulesCreated)
	assert.Empty(t, res.Skipped)

	versions, err := store.ProviderVersions(models.ProviderRef{Provider: "aws", ResourceType: "aws_instance"})
	require.NoError(t, err)
	assert.Equal(t, []string{"4.67.0", "5.0.0"}, versions)

	// Importing the same catalogue again skips everything.
	res, err = Apply(store, doc, nil)
	require.NoError(t, err)
	assert.Zero(t, res.ProvidersCreated)
	assert.Equal(t, 2, res.ProvidersSkipped)
	assert.Equal(t, 1, res.ModulesSkipped)
	assert.Contains(t, res.Skipped, "amazon.aws.ec2_instance@7.0.0")
}

func TestApply_StopsOnInvalidItem(t *testing.T) {
	store := openStore(t)
	doc := &Document{Providers: []Provider{
		{Provider: "aws", ResourceType: "aws_s3_bucket", SchemaVersion: "5.0.0"},
		{Provider: "aws", ResourceType: "aws_s3_bucket", SchemaVersion: "5..1"},
	}}

	res, err := Apply(store, doc, nil)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, 1, res.ProvidersCreated)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	doc, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, doc.Providers, 2)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestResultAdd(t *testing.T) {
	r := Result{ProvidersCreated: 1, Skipped: []string{"a"}}
	r.Add(Result{ProvidersCreated: 2, ModulesSkipped: 1, Skipped: []string{"b"}})
	assert.Equal(t, 3, r.ProvidersCreated)
	assert.Equal(t, 1, r.ModulesSkipped)
	assert.Equal(t, []string{"a", "b"}, r.Skipped)
}
