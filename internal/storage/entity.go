package storage

import (
	"database/sql"
	stderrors "errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/ncruces/go-sqlite3"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/models"
)

// EntityInput describes an entity to create, with optional initial observations.
type EntityInput struct {
	Name         string             `validate:"required,max=512"`
	Type         string             `validate:"required,max=256"`
	Metadata     models.Metadata    `validate:"-"`
	Observations []ObservationInput `validate:"dive"`
}

// EntityPatch lists the fields to change. Nil fields are left untouched.
// Metadata is merged key by key unless ReplaceMetadata is set.
type EntityPatch struct {
	Name            *string         `validate:"omitempty,min=1,max=512"`
	Type            *string         `validate:"omitempty,min=1,max=256"`
	Metadata        models.Metadata `validate:"-"`
	ReplaceMetadata bool
}

const entityColumns = "id, name, entity_type, metadata, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*models.Entity, error) {
	var (
		e                models.Entity
		meta             string
		created, updated string
	)
	if err := row.Scan(&e.ID, &e.Name, &e.Type, &meta, &created, &updated); err != nil {
		return nil, err
	}
	var err error
	if e.Metadata, err = models.DecodeMetadata(meta); err != nil {
		return nil, errors.Wrapf(err, "decode metadata of entity %s", e.ID)
	}
	if e.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &e, nil
}

func isUniqueViolation(err error) bool {
	return stderrors.Is(err, sqlite3.CONSTRAINT_UNIQUE) || stderrors.Is(err, sqlite3.CONSTRAINT_PRIMARYKEY)
}

// CreateEntity inserts an entity and its initial observations in one transaction.
// It fails with ErrDuplicateName when a live entity already has the name,
// whatever its type.
func (s *Store) CreateEntity(in EntityInput) (*models.Entity, []models.Observation, error) {
	if err := check(in); err != nil {
		return nil, nil, err
	}
	if err := in.Metadata.Validate(); err != nil {
		return nil, nil, errors.Validationf("%v", err)
	}
	meta, err := in.Metadata.Encode()
	if err != nil {
		return nil, nil, errors.Validationf("encode metadata: %v", err)
	}

	now := s.stamp()
	entity := &models.Entity{
		ID:        newID(),
		Name:      in.Name,
		Type:      in.Type,
		Metadata:  orEmpty(in.Metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}
	var observations []models.Observation

	err = s.write("create entity", func(tx *sql.Tx) error {
		if err := ensureNameFree(tx, in.Name, ""); err != nil {
			return err
		}
		_, err := tx.Exec(
			`INSERT INTO entities (id, name, entity_type, metadata, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			entity.ID, entity.Name, entity.Type, meta, formatTime(now), formatTime(now),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return errors.Duplicatef("entity name %q", in.Name)
			}
			return errors.Wrapf(err, "insert entity %q", in.Name)
		}

		for _, oi := range in.Observations {
			obs, err := insertObservation(tx, entity.ID, oi, now)
			if err != nil {
				return err
			}
			observations = append(observations, *obs)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.log.Debugw("Entity created", "id", entity.ID, "name", entity.Name, "observations", len(observations))
	return entity, observations, nil
}

func ensureNameFree(q querier, name, exceptID string) error {
	var id string
	err := q.QueryRow(`SELECT id FROM entities WHERE name = ? AND deleted_at IS NULL`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "check entity name")
	}
	if id == exceptID {
		return nil
	}
	return errors.Duplicatef("entity name %q", name)
}

// GetEntity returns a live entity by id.
func (s *Store) GetEntity(id string) (*models.Entity, error) {
	e, err := s.Reader().Entity(id)
	return e, errors.Storage(err, "get entity")
}

// GetEntityByName returns a live entity by its unique name.
func (s *Store) GetEntityByName(name string) (*models.Entity, error) {
	e, err := scanEntity(s.db.QueryRow(
		`SELECT `+entityColumns+` FROM entities WHERE name = ? AND deleted_at IS NULL`, name,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFoundf("entity named %q", name)
	}
	return e, errors.Storage(err, "get entity by name")
}

// UpdateEntity applies patch to a live entity and restamps updated_at.
func (s *Store) UpdateEntity(id string, patch EntityPatch) (*models.Entity, error) {
	if err := check(patch); err != nil {
		return nil, err
	}
	if err := patch.Metadata.Validate(); err != nil {
		return nil, errors.Validationf("%v", err)
	}

	var updated *models.Entity
	err := s.write("update entity", func(tx *sql.Tx) error {
		cur, err := (&Reader{q: tx}).Entity(id)
		if err != nil {
			return err
		}
		if patch.Name != nil && *patch.Name != cur.Name {
			if err := ensureNameFree(tx, *patch.Name, cur.ID); err != nil {
				return err
			}
			cur.Name = *patch.Name
		}
		if patch.Type != nil {
			cur.Type = *patch.Type
		}
		switch {
		case patch.ReplaceMetadata:
			cur.Metadata = orEmpty(patch.Metadata)
		case len(patch.Metadata) > 0:
			cur.Metadata = cur.Metadata.Merge(patch.Metadata)
		}
		meta, err := cur.Metadata.Encode()
		if err != nil {
			return errors.Validationf("encode metadata: %v", err)
		}

		now := s.stamp()
		if now.Before(cur.CreatedAt) {
			now = cur.CreatedAt
		}
		cur.UpdatedAt = now

		_, err = tx.Exec(
			`UPDATE entities SET name = ?, entity_type = ?, metadata = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
			cur.Name, cur.Type, meta, formatTime(now), cur.ID,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return errors.Duplicatef("entity name %q", cur.Name)
			}
			return errors.Wrap(err, "update entity")
		}
		updated = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteEntity soft-deletes a live entity and its observations.
// Relationships touching the entity are kept; traversal reports them as
// dangling until PruneDanglingRelationships removes them.
func (s *Store) DeleteEntity(id string) error {
	return s.write("delete entity", func(tx *sql.Tx) error {
		if _, err := (&Reader{q: tx}).Entity(id); err != nil {
			return err
		}
		now := formatTime(s.stamp())
		if _, err := tx.Exec(
			`UPDATE observations SET deleted_at = ? WHERE entity_id = ? AND deleted_at IS NULL`, now, id,
		); err != nil {
			return errors.Wrap(err, "soft-delete observations")
		}
		if _, err := tx.Exec(
			`UPDATE entities SET deleted_at = ?, updated_at = MAX(updated_at, ?) WHERE id = ? AND deleted_at IS NULL`, now, now, id,
		); err != nil {
			return errors.Wrap(err, "soft-delete entity")
		}
		return nil
	})
}

// EntityOption narrows ListEntities.
type EntityOption func(sq.SelectBuilder) sq.SelectBuilder

// ByEntityType restricts the listing to one entity type.
func ByEntityType(entityType string) EntityOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if entityType == "" {
			return b
		}
		return b.Where(sq.Eq{"entity_type": entityType})
	}
}

// WithLimit caps the number of rows returned.
func WithLimit(limit int) EntityOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if limit <= 0 {
			return b
		}
		return b.Limit(uint64(limit))
	}
}

// ListEntities returns live entities ordered by name.
func (s *Store) ListEntities(opts ...EntityOption) ([]models.Entity, error) {
	builder := sq.Select(entityColumns).
		From("entities").
		Where("deleted_at IS NULL").
		OrderBy("name")
	for _, opt := range opts {
		builder = opt(builder)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build entity listing")
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Storage(err, "list entities")
	}
	defer rows.Close()

	entities := []models.Entity{}
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, errors.Storage(err, "scan entity")
		}
		entities = append(entities, *e)
	}
	return entities, errors.Storage(rows.Err(), "list entities")
}

func orEmpty(m models.Metadata) models.Metadata {
	if m == nil {
		return models.Metadata{}
	}
	return m
}
