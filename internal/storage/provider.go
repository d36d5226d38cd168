package storage

import (
	"database/sql"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/models"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/version"
)

// ProviderResourceInput registers one schema version of a provider resource.
type ProviderResourceInput struct {
	Provider      string          `validate:"required,max=128"`
	ResourceType  string          `validate:"required,max=256"`
	SchemaVersion string          `validate:"required,max=64"`
	DocURL        string          `validate:"omitempty,url"`
	LastVerified  *time.Time      `validate:"-"`
	Arguments     []ArgumentInput `validate:"dive"`
}

// ArgumentInput describes one argument of a provider resource.
type ArgumentInput struct {
	Name           string `validate:"required,max=256"`
	ArgType        string `validate:"max=64"`
	Required       bool
	Default        string
	ValidationRule string
	Deprecated     bool
}

const (
	resourceColumns = "id, provider, resource_type, schema_version, doc_url, last_verified"
	argumentColumns = "id, resource_id, name, arg_type, required, default_value, validation_rule, deprecated"
)

func scanResource(row rowScanner) (*models.ProviderResource, error) {
	var (
		r        models.ProviderResource
		verified sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Provider, &r.ResourceType, &r.SchemaVersion, &r.DocURL, &verified); err != nil {
		return nil, err
	}
	var err error
	if r.LastVerified, err = parseNullTime(verified); err != nil {
		return nil, err
	}
	return &r, nil
}

func checkArgument(a ArgumentInput) error {
	if err := check(a); err != nil {
		return err
	}
	if err := CheckRule(a.ValidationRule, a.Default); err != nil {
		return errors.Wrapf(err, "argument %s", a.Name)
	}
	return nil
}

// CreateProviderResource registers a resource version together with its
// arguments. The triple (provider, resource type, version) is unique.
func (s *Store) CreateProviderResource(in ProviderResourceInput) (*models.ProviderResource, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	if err := version.Validate(in.SchemaVersion); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(in.Arguments))
	for _, a := range in.Arguments {
		if seen[a.Name] {
			return nil, errors.Validationf("argument %q listed twice", a.Name)
		}
		seen[a.Name] = true
		if err := checkArgument(a); err != nil {
			return nil, err
		}
	}

	res := &models.ProviderResource{
		ID:            newID(),
		Provider:      in.Provider,
		ResourceType:  in.ResourceType,
		SchemaVersion: in.SchemaVersion,
		DocURL:        in.DocURL,
		LastVerified:  in.LastVerified,
		Arguments:     []models.ResourceArgument{},
	}
	err := s.write("create provider resource", func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO provider_resources (id, provider, resource_type, schema_version, doc_url, last_verified) VALUES (?, ?, ?, ?, ?, ?)`,
			res.ID, res.Provider, res.ResourceType, res.SchemaVersion, res.DocURL, formatNullTime(res.LastVerified),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return errors.Duplicatef("provider resource %s/%s@%s", in.Provider, in.ResourceType, in.SchemaVersion)
			}
			return errors.Wrap(err, "insert provider resource")
		}
		for _, a := range in.Arguments {
			arg, err := insertArgument(tx, res.ID, a)
			if err != nil {
				return err
			}
			res.Arguments = append(res.Arguments, *arg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Debugw("Provider resource registered", "provider", res.Provider, "resource_type", res.ResourceType,
		"version", res.SchemaVersion, "arguments", len(res.Arguments))
	return res, nil
}

func insertArgument(tx *sql.Tx, resourceID string, a ArgumentInput) (*models.ResourceArgument, error) {
	arg := &models.ResourceArgument{
		ID:             newID(),
		ResourceID:     resourceID,
		Name:           a.Name,
		ArgType:        a.ArgType,
		Required:       a.Required,
		Default:        a.Default,
		ValidationRule: a.ValidationRule,
		Deprecated:     a.Deprecated,
	}
	_, err := tx.Exec(
		`INSERT INTO resource_arguments (id, resource_id, name, arg_type, required, default_value, validation_rule, deprecated) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.ResourceID, arg.Name, arg.ArgType, boolInt(arg.Required), arg.Default, arg.ValidationRule, boolInt(arg.Deprecated),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Duplicatef("argument %q", a.Name)
		}
		return nil, errors.Wrapf(err, "insert argument %s", a.Name)
	}
	return arg, nil
}

// AddResourceArgument adds one argument to a registered resource version.
func (s *Store) AddResourceArgument(resourceID string, a ArgumentInput) (*models.ResourceArgument, error) {
	if err := checkArgument(a); err != nil {
		return nil, err
	}
	var arg *models.ResourceArgument
	err := s.write("add resource argument", func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRow(`SELECT 1 FROM provider_resources WHERE id = ?`, resourceID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return errors.Danglingf("argument references provider resource %s", resourceID)
		}
		if err != nil {
			return errors.Wrap(err, "check provider resource")
		}
		arg, err = insertArgument(tx, resourceID, a)
		return err
	})
	if err != nil {
		return nil, err
	}
	return arg, nil
}

// GetProviderResource returns a resource version with its arguments.
func (s *Store) GetProviderResource(id string) (*models.ProviderResource, error) {
	var res *models.ProviderResource
	err := s.View(func(r *Reader) error {
		var err error
		res, err = scanResource(r.q.QueryRow(`SELECT `+resourceColumns+` FROM provider_resources WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return errors.NotFoundf("provider resource %s", id)
		}
		if err != nil {
			return err
		}
		res.Arguments, err = r.arguments(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DeleteProviderResource removes a resource version and its arguments.
func (s *Store) DeleteProviderResource(id string) error {
	return s.write("delete provider resource", func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM provider_resources WHERE id = ?`, id)
		if err != nil {
			return errors.Wrap(err, "delete provider resource")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errors.NotFoundf("provider resource %s", id)
		}
		return nil
	})
}

// ListProviderResources lists registered resource versions without their
// arguments. Empty filters match everything.
func (s *Store) ListProviderResources(provider, resourceType string) ([]models.ProviderResource, error) {
	builder := sq.Select(resourceColumns).From("provider_resources").OrderBy("provider", "resource_type")
	if provider != "" {
		builder = builder.Where(sq.Eq{"provider": provider})
	}
	if resourceType != "" {
		builder = builder.Where(sq.Eq{"resource_type": resourceType})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build provider listing")
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Storage(err, "list provider resources")
	}
	defer rows.Close()

	out := []models.ProviderResource{}
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, errors.Storage(err, "scan provider resource")
		}
		out = append(out, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage(err, "list provider resources")
	}
	sortResources(out)
	return out, nil
}

// ProviderVersions returns the registered versions of ref in ascending order.
func (s *Store) ProviderVersions(ref models.ProviderRef) ([]string, error) {
	resources, err := s.Reader().ProviderVersions(ref)
	if err != nil {
		return nil, errors.Storage(err, "provider versions")
	}
	versions := make([]string, len(resources))
	for i, r := range resources {
		versions[i] = r.SchemaVersion
	}
	if err := version.Sort(versions); err != nil {
		return nil, err
	}
	return versions, nil
}

// sortResources orders by provider, resource type, then version order.
func sortResources(rs []models.ProviderResource) {
	sort.SliceStable(rs, func(i, j int) bool { return resourceLess(rs[i], rs[j]) })
}

func resourceLess(a, b models.ProviderResource) bool {
	if a.Provider != b.Provider {
		return a.Provider < b.Provider
	}
	if a.ResourceType != b.ResourceType {
		return a.ResourceType < b.ResourceType
	}
	return version.MustCompare(a.SchemaVersion, b.SchemaVersion) < 0
}
