// Package memory is the read side of the knowledge store: context
// retrieval, version diffs and compatibility checks, each evaluated against
// one consistent snapshot of the store.
package memory

import (
	"go.uber.org/zap"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/graph"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/models"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/storage"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/version"
)

// Options bound what callers may request.
type Options struct {
	// MaxDepth caps traversal depth. Zero means unbounded.
	MaxDepth int
}

// Service evaluates graph and version queries over a Store.
type Service struct {
	store *storage.Store
	log   *zap.SugaredLogger
	opts  Options
}

// New creates a Service. A nil logger keeps it silent.
func New(store *storage.Store, log *zap.SugaredLogger, opts Options) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{store: store, log: log, opts: opts}
}

// Context returns the neighborhood of an entity.
func (s *Service) Context(req graph.Request) (*models.Context, error) {
	if s.opts.MaxDepth > 0 && req.MaxDepth > s.opts.MaxDepth {
		return nil, errors.Validationf("max depth %d exceeds the limit of %d", req.MaxDepth, s.opts.MaxDepth)
	}
	var ctx *models.Context
	err := s.store.View(func(r *storage.Reader) error {
		var err error
		ctx, err = graph.Traverse(r, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Debugw("Context retrieved", "root", req.RootID, "depth", req.MaxDepth, "nodes", len(ctx.Nodes))
	return ctx, nil
}

// versioned is one registered version of a resource or module.
type versioned struct {
	version string
	fields  []version.Field
}

func providerVersions(r *storage.Reader, ref models.ProviderRef) (string, []versioned, error) {
	resources, err := r.ProviderVersions(ref)
	if err != nil {
		return "", nil, err
	}
	out := make([]versioned, len(resources))
	for i, res := range resources {
		out[i] = versioned{version: res.SchemaVersion, fields: version.FromArguments(res.Arguments)}
	}
	resolved := models.ProviderRef{Provider: resources[0].Provider, ResourceType: resources[0].ResourceType}
	return resolved.String(), out, nil
}

func moduleVersions(r *storage.Reader, ref models.ModuleRef) (string, []versioned, error) {
	modules, err := r.ModuleVersions(ref)
	if err != nil {
		return "", nil, err
	}
	out := make([]versioned, len(modules))
	for i, m := range modules {
		out[i] = versioned{version: m.Version, fields: version.FromParameters(m.Parameters)}
	}
	return ref.String(), out, nil
}

func find(ref string, all []versioned, v string) (versioned, error) {
	for _, c := range all {
		if c.version == v {
			return c, nil
		}
	}
	return versioned{}, errors.UnknownVersionf("version %s of %s is not registered", v, ref)
}

func diff(ref string, all []versioned, from, to string) (models.VersionDiff, error) {
	a, err := find(ref, all, from)
	if err != nil {
		return models.VersionDiff{}, err
	}
	b, err := find(ref, all, to)
	if err != nil {
		return models.VersionDiff{}, err
	}
	return version.Diff(ref, from, to, a.fields, b.fields), nil
}

func check(ref string, all []versioned, used []string, target string) (models.CompatibilityReport, error) {
	t, err := find(ref, all, target)
	if err != nil {
		return models.CompatibilityReport{}, err
	}
	names := make([]string, len(all))
	for i, c := range all {
		names[i] = c.version
	}
	var previous *version.Target
	if prev, ok := version.Previous(names, target); ok {
		p, _ := find(ref, all, prev)
		previous = &version.Target{Version: p.version, Fields: p.fields}
	}
	return version.Check(ref, used, version.Target{Version: t.version, Fields: t.fields}, previous)
}

// DiffProvider classifies the argument changes of a provider resource
// between two registered versions.
func (s *Service) DiffProvider(ref models.ProviderRef, from, to string) (models.VersionDiff, error) {
	var d models.VersionDiff
	err := s.store.View(func(r *storage.Reader) error {
		name, all, err := providerVersions(r, ref)
		if err != nil {
			return err
		}
		d, err = diff(name, all, from, to)
		return err
	})
	return d, err
}

// DiffAnsible classifies the parameter changes of an Ansible module
// between two registered versions.
func (s *Service) DiffAnsible(ref models.ModuleRef, from, to string) (models.VersionDiff, error) {
	var d models.VersionDiff
	err := s.store.View(func(r *storage.Reader) error {
		name, all, err := moduleVersions(r, ref)
		if err != nil {
			return err
		}
		d, err = diff(name, all, from, to)
		return err
	})
	return d, err
}

// CheckProvider reports whether a usage of a provider resource stays valid
// at the target version.
func (s *Service) CheckProvider(ref models.ProviderRef, used []string, target string) (models.CompatibilityReport, error) {
	var report models.CompatibilityReport
	err := s.store.View(func(r *storage.Reader) error {
		name, all, err := providerVersions(r, ref)
		if err != nil {
			return err
		}
		report, err = check(name, all, used, target)
		return err
	})
	return report, err
}

// CheckAnsible reports whether a usage of an Ansible module stays valid at
// the target version.
func (s *Service) CheckAnsible(ref models.ModuleRef, used []string, target string) (models.CompatibilityReport, error) {
	var report models.CompatibilityReport
	err := s.store.View(func(r *storage.Reader) error {
		name, all, err := moduleVersions(r, ref)
		if err != nil {
			return err
		}
		report, err = check(name, all, used, target)
		return err
	})
	return report, err
}

// ResolveProvider returns the newest registered version of ref matching a
// semver constraint, or the newest version overall when constraint is empty.
func (s *Service) ResolveProvider(ref models.ProviderRef, constraint string) (string, error) {
	versions, err := s.store.ProviderVersions(ref)
	if err != nil {
		return "", err
	}
	return resolve(versions, constraint)
}

// ResolveAnsible is ResolveProvider for Ansible modules.
func (s *Service) ResolveAnsible(ref models.ModuleRef, constraint string) (string, error) {
	versions, err := s.store.AnsibleVersions(ref)
	if err != nil {
		return "", err
	}
	return resolve(versions, constraint)
}

func resolve(versions []string, constraint string) (string, error) {
	if constraint == "" {
		latest, _ := version.Latest(versions)
		return latest, nil
	}
	return version.Resolve(versions, constraint)
}
