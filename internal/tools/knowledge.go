package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/graph"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/memory"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/models"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/storage"
)

// KnowledgeTools holds references needed by memory graph tool handlers.
type KnowledgeTools struct {
	Store  *storage.Store
	Memory *memory.Service
	Log    *zap.SugaredLogger
	Limits Limits
}

// --- Input types ---

type NewObservation struct {
	ObservationType string         `json:"observation_type" jsonschema:"Observation type (e.g., configuration, incident, note)"`
	Content         string         `json:"content" jsonschema:"Observation text"`
	Confidence      *float64       `json:"confidence,omitempty" jsonschema:"Confidence between 0 and 1 (default 1)"`
	Metadata        map[string]any `json:"metadata,omitempty" jsonschema:"Free-form metadata"`
}

type CreateEntityInput struct {
	Name         string           `json:"name" jsonschema:"Unique entity name"`
	EntityType   string           `json:"entity_type" jsonschema:"Entity type (e.g., aws_instance, vpc, playbook)"`
	Metadata     map[string]any   `json:"metadata,omitempty" jsonschema:"Free-form metadata"`
	Observations []NewObservation `json:"observations,omitempty" jsonschema:"Initial observations, stored atomically with the entity"`
}

type GetEntityInput struct {
	ID   string `json:"id,omitempty" jsonschema:"Entity id"`
	Name string `json:"name,omitempty" jsonschema:"Entity name, used when id is empty"`
}

type UpdateEntityInput struct {
	ID              string         `json:"id" jsonschema:"Entity id"`
	Name            *string        `json:"name,omitempty" jsonschema:"New name"`
	EntityType      *string        `json:"entity_type,omitempty" jsonschema:"New type"`
	Metadata        map[string]any `json:"metadata,omitempty" jsonschema:"Metadata to merge"`
	ReplaceMetadata bool           `json:"replace_metadata,omitempty" jsonschema:"Replace metadata instead of merging"`
}

type IDInput struct {
	ID string `json:"id" jsonschema:"Row id"`
}

type ListEntitiesInput struct {
	EntityType string `json:"entity_type,omitempty" jsonschema:"Only list entities of this type"`
	Limit      int    `json:"limit,omitempty" jsonschema:"Maximum number of entities"`
}

type CreateRelationshipInput struct {
	SourceID         string         `json:"source_id" jsonschema:"Source entity id"`
	TargetID         string         `json:"target_id" jsonschema:"Target entity id"`
	RelationshipType string         `json:"relationship_type" jsonschema:"Relationship type in active voice (e.g., depends_on, attached_to)"`
	Metadata         map[string]any `json:"metadata,omitempty" jsonschema:"Free-form metadata"`
}

type UpdateRelationshipInput struct {
	ID               string         `json:"id" jsonschema:"Relationship id"`
	RelationshipType *string        `json:"relationship_type,omitempty" jsonschema:"New relationship type"`
	Metadata         map[string]any `json:"metadata,omitempty" jsonschema:"Metadata to merge"`
	ReplaceMetadata  bool           `json:"replace_metadata,omitempty" jsonschema:"Replace metadata instead of merging"`
}

type PruneRelationshipsInput struct{}

type CreateObservationInput struct {
	EntityID        string         `json:"entity_id" jsonschema:"Entity the observation is about"`
	ObservationType string         `json:"observation_type" jsonschema:"Observation type (e.g., configuration, incident, note)"`
	Content         string         `json:"content" jsonschema:"Observation text"`
	Confidence      *float64       `json:"confidence,omitempty" jsonschema:"Confidence between 0 and 1 (default 1)"`
	Metadata        map[string]any `json:"metadata,omitempty" jsonschema:"Free-form metadata"`
}

type UpdateObservationInput struct {
	ID              string         `json:"id" jsonschema:"Observation id"`
	ObservationType *string        `json:"observation_type,omitempty" jsonschema:"New observation type"`
	Content         *string        `json:"content,omitempty" jsonschema:"New content"`
	Confidence      *float64       `json:"confidence,omitempty" jsonschema:"New confidence between 0 and 1"`
	Metadata        map[string]any `json:"metadata,omitempty" jsonschema:"Metadata to merge"`
}

type GetContextInput struct {
	EntityID          string   `json:"entity_id" jsonschema:"Root entity id"`
	MaxDepth          *int     `json:"max_depth,omitempty" jsonschema:"Number of hops to follow (0 returns the root only)"`
	RelationshipTypes []string `json:"relationship_types,omitempty" jsonschema:"Only follow these relationship types"`
	ObservationTypes  []string `json:"observation_types,omitempty" jsonschema:"Only attach these observation types"`
}

type SearchEntitiesInput struct {
	Query               string `json:"query" jsonschema:"Case-insensitive substring to look for"`
	EntityType          string `json:"entity_type,omitempty" jsonschema:"Only return entities of this type"`
	IncludeObservations *bool  `json:"include_observations,omitempty" jsonschema:"Also match observation content (default true)"`
	Limit               int    `json:"limit,omitempty" jsonschema:"Maximum number of results"`
}

// --- Output types ---

type EntityWithObservations struct {
	Entity       *models.Entity       `json:"entity"`
	Observations []models.Observation `json:"observations"`
}

// --- Handlers ---

func (in NewObservation) toStorage(entityID string) (storage.ObservationInput, error) {
	md, err := metadata(in.Metadata)
	if err != nil {
		return storage.ObservationInput{}, err
	}
	return storage.ObservationInput{
		EntityID:   entityID,
		Type:       in.ObservationType,
		Content:    in.Content,
		Confidence: in.Confidence,
		Metadata:   md,
	}, nil
}

func (t *KnowledgeTools) CreateEntity(_ context.Context, _ *mcp.CallToolRequest, input CreateEntityInput) (*mcp.CallToolResult, any, error) {
	md, err := metadata(input.Metadata)
	if err != nil {
		return toolFailure(t.Log, "create_entity", err)
	}
	in := storage.EntityInput{Name: input.Name, Type: input.EntityType, Metadata: md}
	for _, o := range input.Observations {
		obs, err := o.toStorage("")
		if err != nil {
			return toolFailure(t.Log, "create_entity", err)
		}
		in.Observations = append(in.Observations, obs)
	}

	entity, observations, err := t.Store.CreateEntity(in)
	if err != nil {
		return toolFailure(t.Log, "create_entity", err)
	}
	if observations == nil {
		observations = []models.Observation{}
	}
	return toolJSON(EntityWithObservations{Entity: entity, Observations: observations})
}

func (t *KnowledgeTools) GetEntity(_ context.Context, _ *mcp.CallToolRequest, input GetEntityInput) (*mcp.CallToolResult, any, error) {
	var (
		entity *models.Entity
		err    error
	)
	switch {
	case input.ID != "":
		entity, err = t.Store.GetEntity(input.ID)
	case input.Name != "":
		entity, err = t.Store.GetEntityByName(input.Name)
	default:
		err = errors.Validationf("id or name is required")
	}
	if err != nil {
		return toolFailure(t.Log, "get_entity", err)
	}
	observations, err := t.Store.ListObservations(entity.ID)
	if err != nil {
		return toolFailure(t.Log, "get_entity", err)
	}
	return toolJSON(EntityWithObservations{Entity: entity, Observations: observations})
}

func (t *KnowledgeTools) UpdateEntity(_ context.Context, _ *mcp.CallToolRequest, input UpdateEntityInput) (*mcp.CallToolResult, any, error) {
	md, err := metadata(input.Metadata)
	if err != nil {
		return toolFailure(t.Log, "update_entity", err)
	}
	entity, err := t.Store.UpdateEntity(input.ID, storage.EntityPatch{
		Name:            input.Name,
		Type:            input.EntityType,
		Metadata:        md,
		ReplaceMetadata: input.ReplaceMetadata,
	})
	if err != nil {
		return toolFailure(t.Log, "update_entity", err)
	}
	return toolJSON(entity)
}

func (t *KnowledgeTools) DeleteEntity(_ context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	if err := t.Store.DeleteEntity(input.ID); err != nil {
		return toolFailure(t.Log, "delete_entity", err)
	}
	return toolText("Entity " + input.ID + " deleted"), nil, nil
}

func (t *KnowledgeTools) ListEntities(_ context.Context, _ *mcp.CallToolRequest, input ListEntitiesInput) (*mcp.CallToolResult, any, error) {
	entities, err := t.Store.ListEntities(storage.ByEntityType(input.EntityType), storage.WithLimit(input.Limit))
	if err != nil {
		return toolFailure(t.Log, "list_entities", err)
	}
	return toolJSON(entities)
}

func (t *KnowledgeTools) CreateRelationship(_ context.Context, _ *mcp.CallToolRequest, input CreateRelationshipInput) (*mcp.CallToolResult, any, error) {
	md, err := metadata(input.Metadata)
	if err != nil {
		return toolFailure(t.Log, "create_relationship", err)
	}
	rel, err := t.Store.CreateRelationship(storage.RelationshipInput{
		SourceID: input.SourceID,
		TargetID: input.TargetID,
		Type:     input.RelationshipType,
		Metadata: md,
	})
	if err != nil {
		return toolFailure(t.Log, "create_relationship", err)
	}
	return toolJSON(rel)
}

func (t *KnowledgeTools) UpdateRelationship(_ context.Context, _ *mcp.CallToolRequest, input UpdateRelationshipInput) (*mcp.CallToolResult, any, error) {
	md, err := metadata(input.Metadata)
	if err != nil {
		return toolFailure(t.Log, "update_relationship", err)
	}
	rel, err := t.Store.UpdateRelationship(input.ID, storage.RelationshipPatch{
		Type:            input.RelationshipType,
		Metadata:        md,
		ReplaceMetadata: input.ReplaceMetadata,
	})
	if err != nil {
		return toolFailure(t.Log, "update_relationship", err)
	}
	return toolJSON(rel)
}

func (t *KnowledgeTools) DeleteRelationship(_ context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	if err := t.Store.DeleteRelationship(input.ID); err != nil {
		return toolFailure(t.Log, "delete_relationship", err)
	}
	return toolText("Relationship " + input.ID + " deleted"), nil, nil
}

func (t *KnowledgeTools) PruneRelationships(_ context.Context, _ *mcp.CallToolRequest, _ PruneRelationshipsInput) (*mcp.CallToolResult, any, error) {
	n, err := t.Store.PruneDanglingRelationships()
	if err != nil {
		return toolFailure(t.Log, "prune_relationships", err)
	}
	return toolJSON(map[string]int{"removed": n})
}

func (t *KnowledgeTools) CreateObservation(_ context.Context, _ *mcp.CallToolRequest, input CreateObservationInput) (*mcp.CallToolResult, any, error) {
	in, err := NewObservation{
		ObservationType: input.ObservationType,
		Content:         input.Content,
		Confidence:      input.Confidence,
		Metadata:        input.Metadata,
	}.toStorage(input.EntityID)
	if err != nil {
		return toolFailure(t.Log, "create_observation", err)
	}
	obs, err := t.Store.CreateObservation(in)
	if err != nil {
		return toolFailure(t.Log, "create_observation", err)
	}
	return toolJSON(obs)
}

func (t *KnowledgeTools) UpdateObservation(_ context.Context, _ *mcp.CallToolRequest, input UpdateObservationInput) (*mcp.CallToolResult, any, error) {
	md, err := metadata(input.Metadata)
	if err != nil {
		return toolFailure(t.Log, "update_observation", err)
	}
	obs, err := t.Store.UpdateObservation(input.ID, storage.ObservationPatch{
		Type:       input.ObservationType,
		Content:    input.Content,
		Confidence: input.Confidence,
		Metadata:   md,
	})
	if err != nil {
		return toolFailure(t.Log, "update_observation", err)
	}
	return toolJSON(obs)
}

func (t *KnowledgeTools) DeleteObservation(_ context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	if err := t.Store.DeleteObservation(input.ID); err != nil {
		return toolFailure(t.Log, "delete_observation", err)
	}
	return toolText("Observation " + input.ID + " deleted"), nil, nil
}

func (t *KnowledgeTools) GetContext(_ context.Context, _ *mcp.CallToolRequest, input GetContextInput) (*mcp.CallToolResult, any, error) {
	depth := t.Limits.DefaultDepth
	if input.MaxDepth != nil {
		depth = *input.MaxDepth
	}
	ctx, err := t.Memory.Context(graph.Request{
		RootID:            input.EntityID,
		MaxDepth:          depth,
		RelationshipTypes: input.RelationshipTypes,
		ObservationTypes:  input.ObservationTypes,
	})
	if err != nil {
		return toolFailure(t.Log, "get_context", err)
	}
	return toolJSON(ctx)
}

func (t *KnowledgeTools) SearchEntities(_ context.Context, _ *mcp.CallToolRequest, input SearchEntitiesInput) (*mcp.CallToolResult, any, error) {
	results, err := t.search(input)
	if err != nil {
		return toolFailure(t.Log, "search_entities", err)
	}
	return toolJSON(results)
}

func (t *KnowledgeTools) search(input SearchEntitiesInput) ([]models.Entity, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = t.Limits.DefaultSearchLimit
	}
	if t.Limits.MaxSearchLimit > 0 && limit > t.Limits.MaxSearchLimit {
		limit = t.Limits.MaxSearchLimit
	}
	includeObs := true
	if input.IncludeObservations != nil {
		includeObs = *input.IncludeObservations
	}
	return t.Store.Search(storage.SearchQuery{
		Query:               input.Query,
		EntityType:          input.EntityType,
		IncludeObservations: includeObs,
		Limit:               limit,
	})
}
