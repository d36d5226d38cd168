package storage

import (
	"database/sql"
	"encoding/json"

	sq "github.com/Masterminds/squirrel"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/models"
)

// Reader runs read queries against either the live database or the
// snapshot of a View transaction.
type Reader struct {
	q querier
}

// Entity returns a live entity by id.
func (r *Reader) Entity(id string) (*models.Entity, error) {
	e, err := scanEntity(r.q.QueryRow(
		`SELECT `+entityColumns+` FROM entities WHERE id = ? AND deleted_at IS NULL`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFoundf("entity %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load entity %s", id)
	}
	return e, nil
}

// Entities loads the live entities among ids. Ids with no live entity are
// absent from the result.
func (r *Reader) Entities(ids []string) (map[string]models.Entity, error) {
	out := make(map[string]models.Entity, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sq.Select(entityColumns).
		From("entities").
		Where(sq.Eq{"id": ids}).
		Where("deleted_at IS NULL").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build entity batch")
	}
	rows, err := r.q.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "load entities")
	}
	defer rows.Close()
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out[e.ID] = *e
	}
	return out, rows.Err()
}

// Edges returns every relationship with an endpoint in ids, optionally
// restricted to the given relationship types. Rows come back in creation order.
func (r *Reader) Edges(ids []string, types []string) ([]models.Relationship, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	builder := sq.Select(relationshipColumns).
		From("relationships").
		Where(sq.Or{sq.Eq{"source_id": ids}, sq.Eq{"target_id": ids}}).
		OrderBy("created_at", "rowid")
	if len(types) > 0 {
		builder = builder.Where(sq.Eq{"relationship_type": types})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build edge query")
	}
	rows, err := r.q.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "load edges")
	}
	defer rows.Close()

	var edges []models.Relationship
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, *rel)
	}
	return edges, rows.Err()
}

// ObservationsFor returns the live observations of the given entities keyed
// by entity id, optionally restricted to the given observation types.
func (r *Reader) ObservationsFor(ids []string, types []string) (map[string][]models.Observation, error) {
	out := make(map[string][]models.Observation, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	builder := sq.Select(observationColumns).
		From("observations").
		Where(sq.Eq{"entity_id": ids}).
		Where("deleted_at IS NULL").
		OrderBy("created_at", "rowid")
	if len(types) > 0 {
		builder = builder.Where(sq.Eq{"observation_type": types})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build observation query")
	}
	rows, err := r.q.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "load observations")
	}
	defer rows.Close()
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		out[o.EntityID] = append(out[o.EntityID], *o)
	}
	return out, rows.Err()
}

// Relationship returns a relationship by id.
func (r *Reader) Relationship(id string) (*models.Relationship, error) {
	rel, err := scanRelationship(r.q.QueryRow(
		`SELECT `+relationshipColumns+` FROM relationships WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFoundf("relationship %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load relationship %s", id)
	}
	return rel, nil
}

// Observation returns a live observation by id.
func (r *Reader) Observation(id string) (*models.Observation, error) {
	o, err := scanObservation(r.q.QueryRow(
		`SELECT `+observationColumns+` FROM observations WHERE id = ? AND deleted_at IS NULL`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFoundf("observation %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load observation %s", id)
	}
	return o, nil
}

// ProviderVersions returns every registered version of ref with its
// arguments. The caller orders them.
func (r *Reader) ProviderVersions(ref models.ProviderRef) ([]models.ProviderResource, error) {
	provider, err := r.resolveProvider(ref)
	if err != nil {
		return nil, err
	}
	rows, err := r.q.Query(
		`SELECT `+resourceColumns+` FROM provider_resources WHERE provider = ? AND resource_type = ?`,
		provider, ref.ResourceType,
	)
	if err != nil {
		return nil, errors.Wrap(err, "load provider versions")
	}
	var resources []models.ProviderResource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		resources = append(resources, *res)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(resources) == 0 {
		return nil, errors.NotFoundf("provider resource %s", ref)
	}
	for i := range resources {
		if resources[i].Arguments, err = r.arguments(resources[i].ID); err != nil {
			return nil, err
		}
	}
	return resources, nil
}

// resolveProvider fills in the provider of a ref given by resource type
// alone. Several providers declaring the same type make the ref ambiguous.
func (r *Reader) resolveProvider(ref models.ProviderRef) (string, error) {
	if ref.ResourceType == "" {
		return "", errors.Validationf("resource type is required")
	}
	if ref.Provider != "" {
		return ref.Provider, nil
	}
	rows, err := r.q.Query(
		`SELECT DISTINCT provider FROM provider_resources WHERE resource_type = ? ORDER BY provider`, ref.ResourceType,
	)
	if err != nil {
		return "", errors.Wrap(err, "resolve provider")
	}
	defer rows.Close()
	var providers []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return "", err
		}
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(providers) {
	case 0:
		return "", errors.NotFoundf("provider resource %s", ref.ResourceType)
	case 1:
		return providers[0], nil
	default:
		return "", errors.Validationf("resource type %q is declared by several providers %v; name the provider", ref.ResourceType, providers)
	}
}

func (r *Reader) arguments(resourceID string) ([]models.ResourceArgument, error) {
	rows, err := r.q.Query(
		`SELECT `+argumentColumns+` FROM resource_arguments WHERE resource_id = ? ORDER BY name`, resourceID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "load arguments")
	}
	defer rows.Close()
	args := []models.ResourceArgument{}
	for rows.Next() {
		var (
			a                    models.ResourceArgument
			required, deprecated int
		)
		if err := rows.Scan(&a.ID, &a.ResourceID, &a.Name, &a.ArgType, &required, &a.Default, &a.ValidationRule, &deprecated); err != nil {
			return nil, err
		}
		a.Required, a.Deprecated = required != 0, deprecated != 0
		args = append(args, a)
	}
	return args, rows.Err()
}

// ModuleVersions returns every registered version of ref with its parameters.
func (r *Reader) ModuleVersions(ref models.ModuleRef) ([]models.AnsibleCollection, error) {
	if ref.Namespace == "" || ref.Name == "" || ref.ModuleName == "" {
		return nil, errors.Validationf("module reference needs namespace, collection and module name")
	}
	rows, err := r.q.Query(
		`SELECT `+collectionColumns+` FROM ansible_collections WHERE namespace = ? AND name = ? AND module_name = ?`,
		ref.Namespace, ref.Name, ref.ModuleName,
	)
	if err != nil {
		return nil, errors.Wrap(err, "load module versions")
	}
	var modules []models.AnsibleCollection
	for rows.Next() {
		m, err := scanCollection(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		modules = append(modules, *m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(modules) == 0 {
		return nil, errors.NotFoundf("ansible module %s", ref)
	}
	for i := range modules {
		if modules[i].Parameters, err = r.parameters(modules[i].ID); err != nil {
			return nil, err
		}
	}
	return modules, nil
}

func (r *Reader) parameters(moduleID string) ([]models.ModuleParameter, error) {
	rows, err := r.q.Query(
		`SELECT `+parameterColumns+` FROM module_parameters WHERE module_ref = ? ORDER BY name`, moduleID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "load parameters")
	}
	defer rows.Close()
	params := []models.ModuleParameter{}
	for rows.Next() {
		var (
			p                    models.ModuleParameter
			required, deprecated int
			choices              string
		)
		if err := rows.Scan(&p.ID, &p.ModuleRef, &p.Name, &p.ParamType, &required, &p.Default, &choices, &p.VersionAdded, &deprecated); err != nil {
			return nil, err
		}
		p.Required, p.Deprecated = required != 0, deprecated != 0
		if err := json.Unmarshal([]byte(choices), &p.Choices); err != nil {
			return nil, errors.Wrapf(err, "decode choices of parameter %s", p.Name)
		}
		if len(p.Choices) == 0 {
			p.Choices = nil
		}
		params = append(params, p)
	}
	return params, rows.Err()
}
