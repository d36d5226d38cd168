package models

import "time"

// Entity represents a named, typed node in the memory graph.
type Entity struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Metadata  Metadata  `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Relationship represents a typed, directed edge between two entities.
type Relationship struct {
	ID        string    `json:"id"`
	SourceID  string    `json:"source_id"`
	TargetID  string    `json:"target_id"`
	Type      string    `json:"type"`
	Metadata  Metadata  `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

// Other returns the endpoint opposite to id.
func (r Relationship) Other(id string) string {
	if r.SourceID == id {
		return r.TargetID
	}
	return r.SourceID
}

// Observation represents a confidence-scored fact attached to an entity.
type Observation struct {
	ID         string    `json:"id"`
	EntityID   string    `json:"entity_id"`
	Type       string    `json:"type"`
	Content    string    `json:"content"`
	Confidence float64   `json:"confidence"`
	Metadata   Metadata  `json:"metadata"`
	CreatedAt  time.Time `json:"created_at"`
}

// ProviderResource is one registered schema version of a provider resource type.
type ProviderResource struct {
	ID            string             `json:"id"`
	Provider      string             `json:"provider"`
	ResourceType  string             `json:"resource_type"`
	SchemaVersion string             `json:"schema_version"`
	DocURL        string             `json:"doc_url,omitempty"`
	LastVerified  *time.Time         `json:"last_verified,omitempty"`
	Arguments     []ResourceArgument `json:"arguments,omitempty"`
}

// ResourceArgument is one argument of a ProviderResource.
// ValidationRule uses validator tag syntax, e.g. "oneof=gp2 gp3 io1".
type ResourceArgument struct {
	ID             string `json:"id"`
	ResourceID     string `json:"resource_id"`
	Name           string `json:"name"`
	ArgType        string `json:"arg_type"`
	Required       bool   `json:"required"`
	Default        string `json:"default,omitempty"`
	ValidationRule string `json:"validation_rule,omitempty"`
	Deprecated     bool   `json:"deprecated"`
}

// AnsibleCollection is one module of a collection at one version.
type AnsibleCollection struct {
	ID           string            `json:"id"`
	Namespace    string            `json:"namespace"`
	Name         string            `json:"name"`
	ModuleName   string            `json:"module_name"`
	Version      string            `json:"version"`
	DocURL       string            `json:"doc_url,omitempty"`
	LastVerified *time.Time        `json:"last_verified,omitempty"`
	Parameters   []ModuleParameter `json:"parameters,omitempty"`
}

// ModuleParameter is one parameter of an Ansible module version.
type ModuleParameter struct {
	ID           string   `json:"id"`
	ModuleRef    string   `json:"module_ref"`
	Name         string   `json:"name"`
	ParamType    string   `json:"param_type"`
	Required     bool     `json:"required"`
	Default      string   `json:"default,omitempty"`
	Choices      []string `json:"choices,omitempty"`
	VersionAdded string   `json:"version_added,omitempty"`
	Deprecated   bool     `json:"deprecated"`
}

// ProviderRef names a provider resource type across its versions.
// Provider may be empty when the resource type is unambiguous.
type ProviderRef struct {
	Provider     string `json:"provider,omitempty"`
	ResourceType string `json:"resource_type"`
}

func (r ProviderRef) String() string {
	if r.Provider == "" {
		return r.ResourceType
	}
	return r.Provider + "/" + r.ResourceType
}

// ModuleRef names an Ansible module across its versions.
type ModuleRef struct {
	Namespace  string `json:"namespace"`
	Name       string `json:"name"`
	ModuleName string `json:"module_name"`
}

func (r ModuleRef) String() string {
	return r.Namespace + "." + r.Name + "." + r.ModuleName
}
