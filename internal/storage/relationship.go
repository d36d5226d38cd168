package storage

import (
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/models"
)

// RelationshipInput describes a directed edge to create.
type RelationshipInput struct {
	SourceID string          `validate:"required"`
	TargetID string          `validate:"required"`
	Type     string          `validate:"required,max=256"`
	Metadata models.Metadata `validate:"-"`
}

// RelationshipPatch lists the relationship fields to change.
type RelationshipPatch struct {
	Type            *string         `validate:"omitempty,min=1,max=256"`
	Metadata        models.Metadata `validate:"-"`
	ReplaceMetadata bool
}

const relationshipColumns = "id, source_id, target_id, relationship_type, metadata, created_at"

func scanRelationship(row rowScanner) (*models.Relationship, error) {
	var (
		rel           models.Relationship
		meta, created string
	)
	if err := row.Scan(&rel.ID, &rel.SourceID, &rel.TargetID, &rel.Type, &meta, &created); err != nil {
		return nil, err
	}
	var err error
	if rel.Metadata, err = models.DecodeMetadata(meta); err != nil {
		return nil, errors.Wrapf(err, "decode metadata of relationship %s", rel.ID)
	}
	if rel.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &rel, nil
}

// CreateRelationship links two live entities. Self-loops are allowed.
func (s *Store) CreateRelationship(in RelationshipInput) (*models.Relationship, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	if err := in.Metadata.Validate(); err != nil {
		return nil, errors.Validationf("%v", err)
	}
	meta, err := in.Metadata.Encode()
	if err != nil {
		return nil, errors.Validationf("encode metadata: %v", err)
	}

	rel := &models.Relationship{
		ID:       newID(),
		SourceID: in.SourceID,
		TargetID: in.TargetID,
		Type:     in.Type,
		Metadata: orEmpty(in.Metadata),
	}
	err = s.write("create relationship", func(tx *sql.Tx) error {
		live, err := (&Reader{q: tx}).Entities([]string{in.SourceID, in.TargetID})
		if err != nil {
			return err
		}
		for _, id := range []string{in.SourceID, in.TargetID} {
			if _, ok := live[id]; !ok {
				return errors.Danglingf("relationship endpoint %s is not a live entity", id)
			}
		}
		rel.CreatedAt = s.stamp()
		_, err = tx.Exec(
			`INSERT INTO relationships (id, source_id, target_id, relationship_type, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			rel.ID, rel.SourceID, rel.TargetID, rel.Type, meta, formatTime(rel.CreatedAt),
		)
		if err != nil {
			return errors.Wrap(err, "insert relationship")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Debugw("Relationship created", "id", rel.ID, "type", rel.Type, "source", rel.SourceID, "target", rel.TargetID)
	return rel, nil
}

// GetRelationship returns a relationship by id.
func (s *Store) GetRelationship(id string) (*models.Relationship, error) {
	rel, err := s.Reader().Relationship(id)
	return rel, errors.Storage(err, "get relationship")
}

// RelationshipFilter narrows ListRelationships. Empty fields match everything.
type RelationshipFilter struct {
	EntityID string
	Type     string
}

// ListRelationships returns relationships in creation order.
func (s *Store) ListRelationships(f RelationshipFilter) ([]models.Relationship, error) {
	builder := sq.Select(relationshipColumns).From("relationships").OrderBy("created_at", "rowid")
	if f.EntityID != "" {
		builder = builder.Where(sq.Or{sq.Eq{"source_id": f.EntityID}, sq.Eq{"target_id": f.EntityID}})
	}
	if f.Type != "" {
		builder = builder.Where(sq.Eq{"relationship_type": f.Type})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build relationship listing")
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Storage(err, "list relationships")
	}
	defer rows.Close()

	rels := []models.Relationship{}
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, errors.Storage(err, "scan relationship")
		}
		rels = append(rels, *rel)
	}
	return rels, errors.Storage(rows.Err(), "list relationships")
}

// UpdateRelationship changes the type or metadata of a relationship.
// Endpoints are immutable; delete and recreate to move an edge.
func (s *Store) UpdateRelationship(id string, patch RelationshipPatch) (*models.Relationship, error) {
	if err := check(patch); err != nil {
		return nil, err
	}
	if err := patch.Metadata.Validate(); err != nil {
		return nil, errors.Validationf("%v", err)
	}
	var updated *models.Relationship
	err := s.write("update relationship", func(tx *sql.Tx) error {
		cur, err := (&Reader{q: tx}).Relationship(id)
		if err != nil {
			return err
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
		if _, err := tx.Exec(
			`UPDATE relationships SET relationship_type = ?, metadata = ? WHERE id = ?`, cur.Type, meta, cur.ID,
		); err != nil {
			return errors.Wrap(err, "update relationship")
		}
		updated = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteRelationship removes a relationship.
func (s *Store) DeleteRelationship(id string) error {
	return s.write("delete relationship", func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM relationships WHERE id = ?`, id)
		if err != nil {
			return errors.Wrap(err, "delete relationship")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errors.NotFoundf("relationship %s", id)
		}
		return nil
	})
}

// PruneDanglingRelationships deletes every relationship with an endpoint
// that is not a live entity and returns how many were removed.
func (s *Store) PruneDanglingRelationships() (int, error) {
	var removed int64
	err := s.write("prune relationships", func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			DELETE FROM relationships
			WHERE source_id NOT IN (SELECT id FROM entities WHERE deleted_at IS NULL)
			   OR target_id NOT IN (SELECT id FROM entities WHERE deleted_at IS NULL)`)
		if err != nil {
			return errors.Wrap(err, "prune relationships")
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.log.Infow("Pruned dangling relationships", "count", removed)
	}
	return int(removed), nil
}
