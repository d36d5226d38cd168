package storage

import (
	"database/sql"
	"time"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/models"
)

// DefaultConfidence applies when an observation is recorded without one.
const DefaultConfidence = 1.0

// ObservationInput describes an observation to record. EntityID is ignored
// when the observation is created together with its entity.
type ObservationInput struct {
	EntityID   string          `validate:"-"`
	Type       string          `validate:"required,max=256"`
	Content    string          `validate:"required"`
	Confidence *float64        `validate:"omitempty,gte=0,lte=1"`
	Metadata   models.Metadata `validate:"-"`
}

// ObservationPatch lists the observation fields to change.
type ObservationPatch struct {
	Type       *string         `validate:"omitempty,min=1,max=256"`
	Content    *string         `validate:"omitempty,min=1"`
	Confidence *float64        `validate:"omitempty,gte=0,lte=1"`
	Metadata   models.Metadata `validate:"-"`
}

const observationColumns = "id, entity_id, observation_type, content, confidence, metadata, created_at"

func scanObservation(row rowScanner) (*models.Observation, error) {
	var (
		o             models.Observation
		meta, created string
	)
	if err := row.Scan(&o.ID, &o.EntityID, &o.Type, &o.Content, &o.Confidence, &meta, &created); err != nil {
		return nil, err
	}
	var err error
	if o.Metadata, err = models.DecodeMetadata(meta); err != nil {
		return nil, errors.Wrapf(err, "decode metadata of observation %s", o.ID)
	}
	if o.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &o, nil
}

func insertObservation(tx *sql.Tx, entityID string, in ObservationInput, now time.Time) (*models.Observation, error) {
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
	confidence := DefaultConfidence
	if in.Confidence != nil {
		confidence = *in.Confidence
	}

	o := &models.Observation{
		ID:         newID(),
		EntityID:   entityID,
		Type:       in.Type,
		Content:    in.Content,
		Confidence: confidence,
		Metadata:   orEmpty(in.Metadata),
		CreatedAt:  now,
	}
	_, err = tx.Exec(
		`INSERT INTO observations (id, entity_id, observation_type, content, confidence, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.EntityID, o.Type, o.Content, o.Confidence, meta, formatTime(now),
	)
	if err != nil {
		return nil, errors.Wrap(err, "insert observation")
	}
	return o, nil
}

// CreateObservation attaches an observation to a live entity. A missing or
// deleted entity is a dangling reference.
func (s *Store) CreateObservation(in ObservationInput) (*models.Observation, error) {
	if in.EntityID == "" {
		return nil, errors.Validationf("EntityID is required")
	}
	var obs *models.Observation
	err := s.write("create observation", func(tx *sql.Tx) error {
		if _, err := (&Reader{q: tx}).Entity(in.EntityID); err != nil {
			if errors.IsNotFound(err) {
				return errors.Danglingf("observation references entity %s", in.EntityID)
			}
			return err
		}
		var err error
		obs, err = insertObservation(tx, in.EntityID, in, s.stamp())
		return err
	})
	if err != nil {
		return nil, err
	}
	return obs, nil
}

// GetObservation returns a live observation by id.
func (s *Store) GetObservation(id string) (*models.Observation, error) {
	o, err := s.Reader().Observation(id)
	return o, errors.Storage(err, "get observation")
}

// ListObservations returns the live observations of a live entity,
// optionally restricted to some observation types.
func (s *Store) ListObservations(entityID string, types ...string) ([]models.Observation, error) {
	var out []models.Observation
	err := s.View(func(r *Reader) error {
		if _, err := r.Entity(entityID); err != nil {
			return err
		}
		byEntity, err := r.ObservationsFor([]string{entityID}, types)
		if err != nil {
			return err
		}
		out = byEntity[entityID]
		return nil
	})
	if out == nil && err == nil {
		out = []models.Observation{}
	}
	return out, err
}

// UpdateObservation changes an observation in place. Metadata is merged.
func (s *Store) UpdateObservation(id string, patch ObservationPatch) (*models.Observation, error) {
	if err := check(patch); err != nil {
		return nil, err
	}
	if err := patch.Metadata.Validate(); err != nil {
		return nil, errors.Validationf("%v", err)
	}
	var updated *models.Observation
	err := s.write("update observation", func(tx *sql.Tx) error {
		cur, err := (&Reader{q: tx}).Observation(id)
		if err != nil {
			return err
		}
		if patch.Type != nil {
			cur.Type = *patch.Type
		}
		if patch.Content != nil {
			cur.Content = *patch.Content
		}
		if patch.Confidence != nil {
			cur.Confidence = *patch.Confidence
		}
		if len(patch.Metadata) > 0 {
			cur.Metadata = cur.Metadata.Merge(patch.Metadata)
		}
		meta, err := cur.Metadata.Encode()
		if err != nil {
			return errors.Validationf("encode metadata: %v", err)
		}
		if _, err := tx.Exec(
			`UPDATE observations SET observation_type = ?, content = ?, confidence = ?, metadata = ? WHERE id = ?`,
			cur.Type, cur.Content, cur.Confidence, meta, cur.ID,
		); err != nil {
			return errors.Wrap(err, "update observation")
		}
		updated = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteObservation soft-deletes a live observation.
func (s *Store) DeleteObservation(id string) error {
	return s.write("delete observation", func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`UPDATE observations SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, formatTime(s.stamp()), id,
		)
		if err != nil {
			return errors.Wrap(err, "delete observation")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errors.NotFoundf("observation %s", id)
		}
		return nil
	})
}
