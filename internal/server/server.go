package server

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/memory"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/storage"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/tools"
)

// Version is reported to clients during initialization.
const Version = "0.2.0"

// New creates a fully configured MCP server with all tools and resources registered.
func New(store *storage.Store, svc *memory.Service, limits tools.Limits, log *zap.SugaredLogger) *mcp.Server {
	kt := &tools.KnowledgeTools{Store: store, Memory: svc, Log: log, Limits: limits}
	st := &tools.SchemaTools{Store: store, Memory: svc, Log: log}
	rs := &tools.Resources{Store: store, Memory: svc, Log: log, Limits: limits}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "iac-memory",
		Version: Version,
	}, nil)

	// Entity tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_entity",
		Description: "Create an entity, optionally with initial observations. Names are unique among live entities",
	}, kt.CreateEntity)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_entity",
		Description: "Get an entity and its observations by id or exact name",
	}, kt.GetEntity)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "update_entity",
		Description: "Rename, retype or merge metadata into an entity",
	}, kt.UpdateEntity)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_entity",
		Description: "Soft-delete an entity and its observations; its relationships become dangling",
	}, kt.DeleteEntity)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_entities",
		Description: "List live entities, optionally filtered by type",
	}, kt.ListEntities)

	// Relationship tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_relationship",
		Description: "Create a typed, directed relationship between two live entities",
	}, kt.CreateRelationship)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "update_relationship",
		Description: "Change a relationship's type or metadata",
	}, kt.UpdateRelationship)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_relationship",
		Description: "Permanently delete a relationship",
	}, kt.DeleteRelationship)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "prune_relationships",
		Description: "Delete relationships whose source or target entity is no longer live",
	}, kt.PruneRelationships)

	// Observation tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_observation",
		Description: "Attach an observation with a confidence in [0, 1] to a live entity",
	}, kt.CreateObservation)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "update_observation",
		Description: "Change an observation's type, content, confidence or metadata",
	}, kt.UpdateObservation)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_observation",
		Description: "Soft-delete an observation",
	}, kt.DeleteObservation)

	// Retrieval tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_context",
		Description: "Breadth-first neighborhood of an entity up to a depth, with observations",
	}, kt.GetContext)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search_entities",
		Description: "Case-insensitive substring search over entity names and observation content; name matches rank first",
	}, kt.SearchEntities)

	// Schema registry tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "register_provider_resource",
		Description: "Register one version of a Terraform provider resource schema with its arguments",
	}, st.RegisterProviderResource)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "add_resource_argument",
		Description: "Add an argument to a registered provider resource version",
	}, st.AddResourceArgument)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_provider_resource",
		Description: "Delete a provider resource version and its arguments",
	}, st.DeleteProviderResource)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "register_ansible_module",
		Description: "Register one version of an Ansible collection module with its parameters",
	}, st.RegisterAnsibleModule)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "add_module_parameter",
		Description: "Add a parameter to a registered Ansible module version",
	}, st.AddModuleParameter)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_ansible_module",
		Description: "Delete an Ansible module version and its parameters",
	}, st.DeleteAnsibleModule)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "import_catalog",
		Description: "Import provider resources and Ansible modules from a YAML catalogue; already registered versions are skipped",
	}, st.ImportCatalog)

	// Version analysis tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_versions",
		Description: "List registered versions of a provider resource or Ansible module, optionally resolving a semver constraint",
	}, st.ListVersions)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "analyze_provider",
		Description: "Classify argument changes of a provider resource between two versions",
	}, st.AnalyzeProvider)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "analyze_ansible_module",
		Description: "Classify parameter changes of an Ansible module between two versions",
	}, st.AnalyzeAnsibleModule)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "check_provider_compatibility",
		Description: "Check whether the arguments a configuration uses work with a target provider version",
	}, st.CheckProviderCompatibility)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "check_ansible_compatibility",
		Description: "Check whether the parameters a task uses work with a target collection version",
	}, st.CheckAnsibleCompatibility)

	// Resources
	srv.AddResource(&mcp.Resource{
		URI:         "entities://list",
		Name:        "entities",
		Description: "All live entities",
		MIMEType:    "application/json",
	}, rs.EntityList)

	srv.AddResource(&mcp.Resource{
		URI:         "ansible://collections",
		Name:        "ansible-collections",
		Description: "All registered Ansible module versions",
		MIMEType:    "application/json",
	}, rs.AnsibleCollections)

	templates := []struct {
		uri, name, desc string
		handler         mcp.ResourceHandler
	}{
		{"entities://{id}", "entity", "An entity with its observations", rs.Entity},
		{"relationships://{id}", "relationship", "A relationship", rs.Relationship},
		{"observations://{id}", "observation", "An observation", rs.Observation},
		{"context://{id}", "context", "Neighborhood of an entity at the default depth", rs.Context},
		{"search://{query}", "search", "Entities matching a substring", rs.Search},
		{"providers://{provider}/resources", "provider-resources", "Registered resource versions of a provider", rs.ProviderResources},
		{"provider-resources://{id}", "provider-resource", "A provider resource version with its arguments", rs.ProviderResource},
		{"ansible-modules://{id}", "ansible-module", "An Ansible module version with its parameters", rs.AnsibleModule},
	}
	for _, t := range templates {
		srv.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: t.uri,
			Name:        t.name,
			Description: t.desc,
			MIMEType:    "application/json",
		}, t.handler)
	}

	return srv
}
