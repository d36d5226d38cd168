package storage

import (
	"database/sql"
	"encoding/json"
	"slices"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/models"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/version"
)

// AnsibleModuleInput registers one version of an Ansible collection module.
type AnsibleModuleInput struct {
	Namespace    string           `validate:"required,max=128"`
	Name         string           `validate:"required,max=128"`
	ModuleName   string           `validate:"required,max=128"`
	Version      string           `validate:"required,max=64"`
	DocURL       string           `validate:"omitempty,url"`
	LastVerified *time.Time       `validate:"-"`
	Parameters   []ParameterInput `validate:"dive"`
}

// ParameterInput describes one module parameter.
type ParameterInput struct {
	Name         string `validate:"required,max=256"`
	ParamType    string `validate:"max=64"`
	Required     bool
	Default      string
	Choices      []string `validate:"dive,required"`
	VersionAdded string
	Deprecated   bool
}

const (
	collectionColumns = "id, namespace, name, module_name, version, doc_url, last_verified"
	parameterColumns  = "id, module_ref, name, param_type, required, default_value, choices, version_added, deprecated"
)

func scanCollection(row rowScanner) (*models.AnsibleCollection, error) {
	var (
		m        models.AnsibleCollection
		verified sql.NullString
	)
	if err := row.Scan(&m.ID, &m.Namespace, &m.Name, &m.ModuleName, &m.Version, &m.DocURL, &verified); err != nil {
		return nil, err
	}
	var err error
	if m.LastVerified, err = parseNullTime(verified); err != nil {
		return nil, err
	}
	return &m, nil
}

func checkParameter(p ParameterInput) error {
	if err := check(p); err != nil {
		return err
	}
	if p.VersionAdded != "" {
		if err := version.Validate(p.VersionAdded); err != nil {
			return errors.Wrapf(err, "parameter %s", p.Name)
		}
	}
	if p.Default != "" && len(p.Choices) > 0 && !slices.Contains(p.Choices, p.Default) {
		return errors.Validationf("parameter %s: default %q is not one of %v", p.Name, p.Default, p.Choices)
	}
	return nil
}

// CreateAnsibleModule registers a module version together with its
// parameters. (namespace, collection, module, version) is unique.
func (s *Store) CreateAnsibleModule(in AnsibleModuleInput) (*models.AnsibleCollection, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	if err := version.Validate(in.Version); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(in.Parameters))
	for _, p := range in.Parameters {
		if seen[p.Name] {
			return nil, errors.Validationf("parameter %q listed twice", p.Name)
		}
		seen[p.Name] = true
		if err := checkParameter(p); err != nil {
			return nil, err
		}
	}

	mod := &models.AnsibleCollection{
		ID:           newID(),
		Namespace:    in.Namespace,
		Name:         in.Name,
		ModuleName:   in.ModuleName,
		Version:      in.Version,
		DocURL:       in.DocURL,
		LastVerified: in.LastVerified,
		Parameters:   []models.ModuleParameter{},
	}
	ref := models.ModuleRef{Namespace: in.Namespace, Name: in.Name, ModuleName: in.ModuleName}
	err := s.write("create ansible module", func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO ansible_collections (id, namespace, name, module_name, version, doc_url, last_verified) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			mod.ID, mod.Namespace, mod.Name, mod.ModuleName, mod.Version, mod.DocURL, formatNullTime(mod.LastVerified),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return errors.Duplicatef("ansible module %s@%s", ref, in.Version)
			}
			return errors.Wrap(err, "insert ansible module")
		}
		for _, p := range in.Parameters {
			param, err := insertParameter(tx, mod.ID, p)
			if err != nil {
				return err
			}
			mod.Parameters = append(mod.Parameters, *param)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Debugw("Ansible module registered", "module", ref.String(), "version", mod.Version, "parameters", len(mod.Parameters))
	return mod, nil
}

func insertParameter(tx *sql.Tx, moduleID string, p ParameterInput) (*models.ModuleParameter, error) {
	choices := p.Choices
	if choices == nil {
		choices = []string{}
	}
	encoded, err := json.Marshal(choices)
	if err != nil {
		return nil, errors.Wrap(err, "encode choices")
	}
	param := &models.ModuleParameter{
		ID:           newID(),
		ModuleRef:    moduleID,
		Name:         p.Name,
		ParamType:    p.ParamType,
		Required:     p.Required,
		Default:      p.Default,
		Choices:      p.Choices,
		VersionAdded: p.VersionAdded,
		Deprecated:   p.Deprecated,
	}
	_, err = tx.Exec(
		`INSERT INTO module_parameters (id, module_ref, name, param_type, required, default_value, choices, version_added, deprecated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		param.ID, param.ModuleRef, param.Name, param.ParamType, boolInt(param.Required), param.Default,
		string(encoded), param.VersionAdded, boolInt(param.Deprecated),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Duplicatef("parameter %q", p.Name)
		}
		return nil, errors.Wrapf(err, "insert parameter %s", p.Name)
	}
	return param, nil
}

// AddModuleParameter adds one parameter to a registered module version.
func (s *Store) AddModuleParameter(moduleID string, p ParameterInput) (*models.ModuleParameter, error) {
	if err := checkParameter(p); err != nil {
		return nil, err
	}
	var param *models.ModuleParameter
	err := s.write("add module parameter", func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRow(`SELECT 1 FROM ansible_collections WHERE id = ?`, moduleID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return errors.Danglingf("parameter references ansible module %s", moduleID)
		}
		if err != nil {
			return errors.Wrap(err, "check ansible module")
		}
		param, err = insertParameter(tx, moduleID, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return param, nil
}

// GetAnsibleModule returns a module version with its parameters.
func (s *Store) GetAnsibleModule(id string) (*models.AnsibleCollection, error) {
	var mod *models.AnsibleCollection
	err := s.View(func(r *Reader) error {
		var err error
		mod, err = scanCollection(r.q.QueryRow(`SELECT `+collectionColumns+` FROM ansible_collections WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return errors.NotFoundf("ansible module %s", id)
		}
		if err != nil {
			return err
		}
		mod.Parameters, err = r.parameters(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return mod, nil
}

// DeleteAnsibleModule removes a module version and its parameters.
func (s *Store) DeleteAnsibleModule(id string) error {
	return s.write("delete ansible module", func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM ansible_collections WHERE id = ?`, id)
		if err != nil {
			return errors.Wrap(err, "delete ansible module")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errors.NotFoundf("ansible module %s", id)
		}
		return nil
	})
}

// ListAnsibleModules lists registered module versions without parameters.
// Empty fields of filter match everything.
func (s *Store) ListAnsibleModules(filter models.ModuleRef) ([]models.AnsibleCollection, error) {
	builder := sq.Select(collectionColumns).From("ansible_collections")
	if filter.Namespace != "" {
		builder = builder.Where(sq.Eq{"namespace": filter.Namespace})
	}
	if filter.Name != "" {
		builder = builder.Where(sq.Eq{"name": filter.Name})
	}
	if filter.ModuleName != "" {
		builder = builder.Where(sq.Eq{"module_name": filter.ModuleName})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build ansible listing")
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Storage(err, "list ansible modules")
	}
	defer rows.Close()

	out := []models.AnsibleCollection{}
	for rows.Next() {
		m, err := scanCollection(rows)
		if err != nil {
			return nil, errors.Storage(err, "scan ansible module")
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage(err, "list ansible modules")
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ka, kb := a.Namespace+"."+a.Name+"."+a.ModuleName, b.Namespace+"."+b.Name+"."+b.ModuleName; ka != kb {
			return ka < kb
		}
		return version.MustCompare(a.Version, b.Version) < 0
	})
	return out, nil
}

// AnsibleVersions returns the registered versions of ref in ascending order.
func (s *Store) AnsibleVersions(ref models.ModuleRef) ([]string, error) {
	modules, err := s.Reader().ModuleVersions(ref)
	if err != nil {
		return nil, errors.Storage(err, "ansible versions")
	}
	versions := make([]string, len(modules))
	for i, m := range modules {
		versions[i] = m.Version
	}
	if err := version.Sort(versions); err != nil {
		return nil, err
	}
	return versions, nil
}
