package storage

import (
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/models"
)

// DefaultSearchLimit caps search results when the caller gives no limit.
const DefaultSearchLimit = 100

// SearchQuery describes a ranked entity search.
type SearchQuery struct {
	Query               string `validate:"required,max=512"`
	EntityType          string
	IncludeObservations bool
	Limit               int `validate:"gte=0"`
}

// Search returns live entities whose name, or optionally the content of one
// of their live observations, contains the query case-insensitively.
//
// Name matches rank above observation-only matches; within a rank the most
// recently updated entity comes first. Case folding is ASCII-only, as
// SQLite's lower() is.
func (s *Store) Search(q SearchQuery) ([]models.Entity, error) {
	if err := check(q); err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit == 0 {
		limit = DefaultSearchLimit
	}
	needle := strings.ToLower(q.Query)
	nameMatch := sq.Expr("instr(lower(e.name), ?) > 0", needle)

	match := sq.Or{nameMatch}
	if q.IncludeObservations {
		match = append(match, sq.Expr(
			`EXISTS (SELECT 1 FROM observations o
			         WHERE o.entity_id = e.id AND o.deleted_at IS NULL AND instr(lower(o.content), ?) > 0)`,
			needle,
		))
	}

	builder := sq.Select("e.id", "e.name", "e.entity_type", "e.metadata", "e.created_at", "e.updated_at").
		From("entities e").
		Where("e.deleted_at IS NULL").
		Where(match).
		OrderByClause("CASE WHEN instr(lower(e.name), ?) > 0 THEN 0 ELSE 1 END", needle).
		OrderBy("e.updated_at DESC", "e.rowid DESC").
		Limit(uint64(limit))
	if q.EntityType != "" {
		builder = builder.Where(sq.Eq{"e.entity_type": q.EntityType})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build search query")
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Storage(err, "search entities")
	}
	defer rows.Close()

	results := []models.Entity{}
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, errors.Storage(err, "scan search result")
		}
		results = append(results, *e)
	}
	return results, errors.Storage(rows.Err(), "search entities")
}
