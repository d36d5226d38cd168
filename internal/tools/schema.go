package tools

import (
	"context"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/catalog"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/memory"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/models"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/storage"
)

// SchemaTools holds references needed by the provider/Ansible schema
// registry and version analysis handlers.
type SchemaTools struct {
	Store  *storage.Store
	Memory *memory.Service
	Log    *zap.SugaredLogger
}

// --- Input types ---

type ArgumentSpec struct {
	Name           string `json:"name" jsonschema:"Argument name"`
	ArgType        string `json:"arg_type,omitempty" jsonschema:"Argument type (string, number, bool, list, map)"`
	Required       bool   `json:"required,omitempty" jsonschema:"Whether the argument must be set"`
	Default        string `json:"default,omitempty" jsonschema:"Default value"`
	ValidationRule string `json:"validation_rule,omitempty" jsonschema:"Validation rule in validator tag syntax, e.g. oneof=gp2 gp3"`
	Deprecated     bool   `json:"deprecated,omitempty" jsonschema:"Whether the argument is deprecated at this version"`
}

type RegisterProviderResourceInput struct {
	Provider      string         `json:"provider" jsonschema:"Provider name (e.g., aws)"`
	ResourceType  string         `json:"resource_type" jsonschema:"Resource type (e.g., aws_instance)"`
	SchemaVersion string         `json:"schema_version" jsonschema:"Provider schema version (e.g., 4.50.0)"`
	DocURL        string         `json:"doc_url,omitempty" jsonschema:"Documentation URL"`
	LastVerified  string         `json:"last_verified,omitempty" jsonschema:"RFC 3339 time the schema was last checked"`
	Arguments     []ArgumentSpec `json:"arguments,omitempty" jsonschema:"Arguments of this version"`
}

type AddResourceArgumentInput struct {
	ResourceID string       `json:"resource_id" jsonschema:"Provider resource row id"`
	Argument   ArgumentSpec `json:"argument" jsonschema:"Argument to add"`
}

type ParameterSpec struct {
	Name         string   `json:"name" jsonschema:"Parameter name"`
	ParamType    string   `json:"param_type,omitempty" jsonschema:"Parameter type (str, int, bool, list, dict)"`
	Required     bool     `json:"required,omitempty" jsonschema:"Whether the parameter must be set"`
	Default      string   `json:"default,omitempty" jsonschema:"Default value"`
	Choices      []string `json:"choices,omitempty" jsonschema:"Allowed values"`
	VersionAdded string   `json:"version_added,omitempty" jsonschema:"Collection version that introduced the parameter"`
	Deprecated   bool     `json:"deprecated,omitempty" jsonschema:"Whether the parameter is deprecated at this version"`
}

type RegisterAnsibleModuleInput struct {
	Namespace    string          `json:"namespace" jsonschema:"Collection namespace (e.g., amazon)"`
	Collection   string          `json:"collection" jsonschema:"Collection name (e.g., aws)"`
	ModuleName   string          `json:"module_name" jsonschema:"Module name (e.g., ec2_instance)"`
	Version      string          `json:"version" jsonschema:"Collection version"`
	DocURL       string          `json:"doc_url,omitempty" jsonschema:"Documentation URL"`
	LastVerified string          `json:"last_verified,omitempty" jsonschema:"RFC 3339 time the schema was last checked"`
	Parameters   []ParameterSpec `json:"parameters,omitempty" jsonschema:"Parameters of this version"`
}

type AddModuleParameterInput struct {
	ModuleID  string        `json:"module_id" jsonschema:"Ansible module row id"`
	Parameter ParameterSpec `json:"parameter" jsonschema:"Parameter to add"`
}

type ProviderRefInput struct {
	Provider     string `json:"provider,omitempty" jsonschema:"Provider name; may be omitted when the resource type is unambiguous"`
	ResourceType string `json:"resource_type" jsonschema:"Resource type"`
}

type ModuleRefInput struct {
	Namespace  string `json:"namespace" jsonschema:"Collection namespace"`
	Collection string `json:"collection" jsonschema:"Collection name"`
	ModuleName string `json:"module_name" jsonschema:"Module name"`
}

type ListVersionsInput struct {
	Kind       string `json:"kind" jsonschema:"provider or ansible"`
	Provider   string `json:"provider,omitempty" jsonschema:"Provider name (kind=provider)"`
	Resource   string `json:"resource_type,omitempty" jsonschema:"Resource type (kind=provider)"`
	Namespace  string `json:"namespace,omitempty" jsonschema:"Collection namespace (kind=ansible)"`
	Collection string `json:"collection,omitempty" jsonschema:"Collection name (kind=ansible)"`
	ModuleName string `json:"module_name,omitempty" jsonschema:"Module name (kind=ansible)"`
	Constraint string `json:"constraint,omitempty" jsonschema:"Semver constraint to resolve, e.g. >= 4.50, < 5"`
}

type AnalyzeProviderInput struct {
	ProviderRefInput
	FromVersion string `json:"from_version" jsonschema:"Version to compare from"`
	ToVersion   string `json:"to_version" jsonschema:"Version to compare to"`
}

type AnalyzeAnsibleInput struct {
	ModuleRefInput
	FromVersion string `json:"from_version" jsonschema:"Version to compare from"`
	ToVersion   string `json:"to_version" jsonschema:"Version to compare to"`
}

type CheckProviderInput struct {
	ProviderRefInput
	UsedArguments []string `json:"used_arguments" jsonschema:"Arguments the configuration sets"`
	TargetVersion string   `json:"target_version" jsonschema:"Version to check against"`
}

type CheckAnsibleInput struct {
	ModuleRefInput
	UsedParameters []string `json:"used_parameters" jsonschema:"Parameters the task sets"`
	TargetVersion  string   `json:"target_version" jsonschema:"Version to check against"`
}

type ImportCatalogInput struct {
	Path    string `json:"path,omitempty" jsonschema:"Path of a YAML catalogue on the server host"`
	Content string `json:"content,omitempty" jsonschema:"YAML catalogue content, used when path is empty"`
}

// --- Output types ---

type VersionsResult struct {
	Ref        string   `json:"ref"`
	Versions   []string `json:"versions"`
	Latest     string   `json:"latest"`
	Constraint string   `json:"constraint,omitempty"`
	Resolved   string   `json:"resolved,omitempty"`
}

// --- Handlers ---

func parseVerified(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, errors.Validationf("last_verified must be RFC 3339: %v", err)
	}
	return &ts, nil
}

func (a ArgumentSpec) toStorage() storage.ArgumentInput {
	return storage.ArgumentInput{
		Name:           a.Name,
		ArgType:        a.ArgType,
		Required:       a.Required,
		Default:        a.Default,
		ValidationRule: a.ValidationRule,
		Deprecated:     a.Deprecated,
	}
}

func (p ParameterSpec) toStorage() storage.ParameterInput {
	return storage.ParameterInput{
		Name:         p.Name,
		ParamType:    p.ParamType,
		Required:     p.Required,
		Default:      p.Default,
		Choices:      p.Choices,
		VersionAdded: p.VersionAdded,
		Deprecated:   p.Deprecated,
	}
}

func (r ProviderRefInput) ref() models.ProviderRef {
	return models.ProviderRef{Provider: r.Provider, ResourceType: r.ResourceType}
}

func (r ModuleRefInput) ref() models.ModuleRef {
	return models.ModuleRef{Namespace: r.Namespace, Name: r.Collection, ModuleName: r.ModuleName}
}

func (t *SchemaTools) RegisterProviderResource(_ context.Context, _ *mcp.CallToolRequest, input RegisterProviderResourceInput) (*mcp.CallToolResult, any, error) {
	verified, err := parseVerified(input.LastVerified)
	if err != nil {
		return toolFailure(t.Log, "register_provider_resource", err)
	}
	in := storage.ProviderResourceInput{
		Provider:      input.Provider,
		ResourceType:  input.ResourceType,
		SchemaVersion: input.SchemaVersion,
		DocURL:        input.DocURL,
		LastVerified:  verified,
	}
	for _, a := range input.Arguments {
		in.Arguments = append(in.Arguments, a.toStorage())
	}
	res, err := t.Store.CreateProviderResource(in)
	if err != nil {
		return toolFailure(t.Log, "register_provider_resource", err)
	}
	return toolJSON(res)
}

func (t *SchemaTools) AddResourceArgument(_ context.Context, _ *mcp.CallToolRequest, input AddResourceArgumentInput) (*mcp.CallToolResult, any, error) {
	arg, err := t.Store.AddResourceArgument(input.ResourceID, input.Argument.toStorage())
	if err != nil {
		return toolFailure(t.Log, "add_resource_argument", err)
	}
	return toolJSON(arg)
}

func (t *SchemaTools) DeleteProviderResource(_ context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	if err := t.Store.DeleteProviderResource(input.ID); err != nil {
		return toolFailure(t.Log, "delete_provider_resource", err)
	}
	return toolText("Provider resource " + input.ID + " deleted"), nil, nil
}

func (t *SchemaTools) RegisterAnsibleModule(_ context.Context, _ *mcp.CallToolRequest, input RegisterAnsibleModuleInput) (*mcp.CallToolResult, any, error) {
	verified, err := parseVerified(input.LastVerified)
	if err != nil {
		return toolFailure(t.Log, "register_ansible_module", err)
	}
	in := storage.AnsibleModuleInput{
		Namespace:    input.Namespace,
		Name:         input.Collection,
		ModuleName:   input.ModuleName,
		Version:      input.Version,
		DocURL:       input.DocURL,
		LastVerified: verified,
	}
	for _, p := range input.Parameters {
		in.Parameters = append(in.Parameters, p.toStorage())
	}
	mod, err := t.Store.CreateAnsibleModule(in)
	if err != nil {
		return toolFailure(t.Log, "register_ansible_module", err)
	}
	return toolJSON(mod)
}

func (t *SchemaTools) AddModuleParameter(_ context.Context, _ *mcp.CallToolRequest, input AddModuleParameterInput) (*mcp.CallToolResult, any, error) {
	param, err := t.Store.AddModuleParameter(input.ModuleID, input.Parameter.toStorage())
	if err != nil {
		return toolFailure(t.Log, "add_module_parameter", err)
	}
	return toolJSON(param)
}

func (t *SchemaTools) DeleteAnsibleModule(_ context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	if err := t.Store.DeleteAnsibleModule(input.ID); err != nil {
		return toolFailure(t.Log, "delete_ansible_module", err)
	}
	return toolText("Ansible module " + input.ID + " deleted"), nil, nil
}

func (t *SchemaTools) ListVersions(_ context.Context, _ *mcp.CallToolRequest, input ListVersionsInput) (*mcp.CallToolResult, any, error) {
	res, err := t.listVersions(input)
	if err != nil {
		return toolFailure(t.Log, "list_versions", err)
	}
	return toolJSON(res)
}

func (t *SchemaTools) listVersions(input ListVersionsInput) (*VersionsResult, error) {
	var (
		res     VersionsResult
		resolve func(string) (string, error)
		err     error
	)
	switch strings.ToLower(input.Kind) {
	case "provider":
		ref := models.ProviderRef{Provider: input.Provider, ResourceType: input.Resource}
		res.Ref = ref.String()
		res.Versions, err = t.Store.ProviderVersions(ref)
		resolve = func(c string) (string, error) { return t.Memory.ResolveProvider(ref, c) }
	case "ansible":
		ref := models.ModuleRef{Namespace: input.Namespace, Name: input.Collection, ModuleName: input.ModuleName}
		res.Ref = ref.String()
		res.Versions, err = t.Store.AnsibleVersions(ref)
		resolve = func(c string) (string, error) { return t.Memory.ResolveAnsible(ref, c) }
	default:
		return nil, errors.Validationf("kind must be provider or ansible, got %q", input.Kind)
	}
	if err != nil {
		return nil, err
	}
	res.Latest = res.Versions[len(res.Versions)-1]
	if input.Constraint != "" {
		res.Constraint = input.Constraint
		if res.Resolved, err = resolve(input.Constraint); err != nil {
			return nil, err
		}
	}
	return &res, nil
}

func (t *SchemaTools) AnalyzeProvider(_ context.Context, _ *mcp.CallToolRequest, input AnalyzeProviderInput) (*mcp.CallToolResult, any, error) {
	d, err := t.Memory.DiffProvider(input.ref(), input.FromVersion, input.ToVersion)
	if err != nil {
		return toolFailure(t.Log, "analyze_provider", err)
	}
	return toolJSON(d)
}

func (t *SchemaTools) AnalyzeAnsibleModule(_ context.Context, _ *mcp.CallToolRequest, input AnalyzeAnsibleInput) (*mcp.CallToolResult, any, error) {
	d, err := t.Memory.DiffAnsible(input.ref(), input.FromVersion, input.ToVersion)
	if err != nil {
		return toolFailure(t.Log, "analyze_ansible_module", err)
	}
	return toolJSON(d)
}

func (t *SchemaTools) CheckProviderCompatibility(_ context.Context, _ *mcp.CallToolRequest, input CheckProviderInput) (*mcp.CallToolResult, any, error) {
	report, err := t.Memory.CheckProvider(input.ref(), input.UsedArguments, input.TargetVersion)
	if err != nil {
		return toolFailure(t.Log, "check_provider_compatibility", err)
	}
	return toolJSON(report)
}

func (t *SchemaTools) CheckAnsibleCompatibility(_ context.Context, _ *mcp.CallToolRequest, input CheckAnsibleInput) (*mcp.CallToolResult, any, error) {
	report, err := t.Memory.CheckAnsible(input.ref(), input.UsedParameters, input.TargetVersion)
	if err != nil {
		return toolFailure(t.Log, "check_ansible_compatibility", err)
	}
	return toolJSON(report)
}

func (t *SchemaTools) ImportCatalog(_ context.Context, _ *mcp.CallToolRequest, input ImportCatalogInput) (*mcp.CallToolResult, any, error) {
	var (
		doc *catalog.Document
		err error
	)
	switch {
	case input.Path != "":
		doc, err = catalog.ParseFile(input.Path)
	case input.Content != "":
		doc, err = catalog.Parse(strings.NewReader(input.Content))
	default:
		err = errors.Validationf("path or content is required")
	}
	if err != nil {
		return toolFailure(t.Log, "import_catalog", err)
	}
	res, err := catalog.Apply(t.Store, doc, t.Log)
	if err != nil {
		return toolFailure(t.Log, "import_catalog", err)
	}
	return toolJSON(res)
}
