package tools

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/graph"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/memory"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/models"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/storage"
)

// Resources serves read-only views of the store as MCP resources.
type Resources struct {
	Store  *storage.Store
	Memory *memory.Service
	Log    *zap.SugaredLogger
	Limits Limits
}

// uriParam returns the unescaped part of uri between prefix and suffix.
func uriParam(uri, prefix, suffix string) (string, error) {
	if !strings.HasPrefix(uri, prefix) || !strings.HasSuffix(uri, suffix) {
		return "", errors.Validationf("unexpected resource uri %q", uri)
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(uri, prefix), suffix)
	v, err := url.PathUnescape(raw)
	if err != nil || v == "" {
		return "", errors.Validationf("bad resource uri %q", uri)
	}
	return v, nil
}

func (r *Resources) result(uri string, v any, err error) (*mcp.ReadResourceResult, error) {
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		if k := errors.Kind(err); k == errors.KindStorage || k == errors.KindInternal {
			r.Log.Warnw("Resource read failed", "uri", uri, "error", err)
		}
		return nil, err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal resource")
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func (r *Resources) EntityList(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	entities, err := r.Store.ListEntities(storage.WithLimit(r.Limits.MaxSearchLimit))
	return r.result(req.Params.URI, entities, err)
}

func (r *Resources) Entity(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	id, err := uriParam(uri, "entities://", "")
	if err != nil {
		return nil, err
	}
	var out EntityWithObservations
	err = r.Store.View(func(rd *storage.Reader) error {
		e, err := rd.Entity(id)
		if err != nil {
			return err
		}
		obs, err := rd.ObservationsFor([]string{id}, nil)
		if err != nil {
			return err
		}
		out = EntityWithObservations{Entity: e, Observations: orNone(obs[id])}
		return nil
	})
	return r.result(uri, out, err)
}

func (r *Resources) Relationship(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	id, err := uriParam(uri, "relationships://", "")
	if err != nil {
		return nil, err
	}
	rel, err := r.Store.GetRelationship(id)
	return r.result(uri, rel, err)
}

func (r *Resources) Observation(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	id, err := uriParam(uri, "observations://", "")
	if err != nil {
		return nil, err
	}
	obs, err := r.Store.GetObservation(id)
	return r.result(uri, obs, err)
}

func (r *Resources) Context(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	id, err := uriParam(uri, "context://", "")
	if err != nil {
		return nil, err
	}
	ctx, err := r.Memory.Context(graph.Request{RootID: id, MaxDepth: r.Limits.DefaultDepth})
	return r.result(uri, ctx, err)
}

func (r *Resources) Search(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	query, err := uriParam(uri, "search://", "")
	if err != nil {
		return nil, err
	}
	entities, err := r.Store.Search(storage.SearchQuery{
		Query:               query,
		IncludeObservations: true,
		Limit:               r.Limits.DefaultSearchLimit,
	})
	return r.result(uri, entities, err)
}

func (r *Resources) ProviderResources(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	provider, err := uriParam(uri, "providers://", "/resources")
	if err != nil {
		return nil, err
	}
	resources, err := r.Store.ListProviderResources(provider, "")
	return r.result(uri, resources, err)
}

func (r *Resources) ProviderResource(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	id, err := uriParam(uri, "provider-resources://", "")
	if err != nil {
		return nil, err
	}
	res, err := r.Store.GetProviderResource(id)
	return r.result(uri, res, err)
}

func (r *Resources) AnsibleModule(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	id, err := uriParam(uri, "ansible-modules://", "")
	if err != nil {
		return nil, err
	}
	mod, err := r.Store.GetAnsibleModule(id)
	return r.result(uri, mod, err)
}

func (r *Resources) AnsibleCollections(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	modules, err := r.Store.ListAnsibleModules(models.ModuleRef{})
	return r.result(req.Params.URI, modules, err)
}

func orNone(obs []models.Observation) []models.Observation {
	if obs == nil {
		return []models.Observation{}
	}
	return obs
}
