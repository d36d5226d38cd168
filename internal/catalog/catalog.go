// Package catalog imports provider resource and Ansible module schemas from
// YAML documents into the store.
package catalog

import (
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/storage"
)

// Document is one catalogue file.
type Document struct {
	Providers []Provider `yaml:"providers"`
	Ansible   []Module   `yaml:"ansible"`
}

type Provider struct {
	Provider      string     `yaml:"provider"`
	ResourceType  string     `yaml:"resource_type"`
	SchemaVersion string     `yaml:"schema_version"`
	DocURL        string     `yaml:"doc_url"`
	LastVerified  *time.Time `yaml:"last_verified"`
	Arguments     []Argument `yaml:"arguments"`
}

type Argument struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Required   bool   `yaml:"required"`
	Default    string `yaml:"default"`
	Validation string `yaml:"validation"`
	Deprecated bool   `yaml:"deprecated"`
}

type Module struct {
	Namespace    string      `yaml:"namespace"`
	Name         string      `yaml:"name"`
	Module       string      `yaml:"module"`
	Version      string      `yaml:"version"`
	DocURL       string      `yaml:"doc_url"`
	LastVerified *time.Time  `yaml:"last_verified"`
	Parameters   []Parameter `yaml:"parameters"`
}

type Parameter struct {
	Name         string   `yaml:"name"`
	Type         string   `yaml:"type"`
	Required     bool     `yaml:"required"`
	Default      string   `yaml:"default"`
	Choices      []string `yaml:"choices"`
	VersionAdded string   `yaml:"version_added"`
	Deprecated   bool     `yaml:"deprecated"`
}

// Result counts what an import did.
type Result struct {
	ProvidersCreated int      `json:"providers_created"`
	ProvidersSkipped int      `json:"providers_skipped"`
	ModulesCreated   int      `json:"modules_created"`
	ModulesSkipped   int      `json:"modules_skipped"`
	Skipped          []string `json:"skipped,omitempty"`
}

// Add accumulates another result into r.
func (r *Result) Add(o Result) {
	r.ProvidersCreated += o.ProvidersCreated
	r.ProvidersSkipped += o.ProvidersSkipped
	r.ModulesCreated += o.ModulesCreated
	r.ModulesSkipped += o.ModulesSkipped
	r.Skipped = append(r.Skipped, o.Skipped...)
}

// Parse decodes a catalogue. Unknown keys are rejected.
func Parse(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, errors.Validationf("parse catalogue: %v", err)
	}
	return &doc, nil
}

// ParseFile decodes the catalogue at path.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open catalogue %s", path)
	}
	defer f.Close()
	doc, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return doc, nil
}

// Apply registers every item of doc. Each item commits on its own; an item
// already registered is counted as skipped, any other failure stops the import.
func Apply(store *storage.Store, doc *Document, log *zap.SugaredLogger) (Result, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	res := Result{Skipped: []string{}}

	for i, p := range doc.Providers {
		in := storage.ProviderResourceInput{
			Provider:      p.Provider,
			ResourceType:  p.ResourceType,
			SchemaVersion: p.SchemaVersion,
			DocURL:        p.DocURL,
			LastVerified:  p.LastVerified,
		}
		for _, a := range p.Arguments {
			in.Arguments = append(in.Arguments, storage.ArgumentInput{
				Name:           a.Name,
				ArgType:        a.Type,
				Required:       a.Required,
				Default:        a.Default,
				ValidationRule: a.Validation,
				Deprecated:     a.Deprecated,
			})
		}
		_, err := store.CreateProviderResource(in)
		switch {
		case err == nil:
			res.ProvidersCreated++
		case errors.Kind(err) == errors.KindDuplicateName:
			res.ProvidersSkipped++
			res.Skipped = append(res.Skipped, p.Provider+"/"+p.ResourceType+"@"+p.SchemaVersion)
		default:
			return res, errors.Wrapf(err, "providers[%d] %s/%s", i, p.Provider, p.ResourceType)
		}
	}

	for i, m := range doc.Ansible {
		in := storage.AnsibleModuleInput{
			Namespace:    m.Namespace,
			Name:         m.Name,
			ModuleName:   m.Module,
			Version:      m.Version,
			DocURL:       m.DocURL,
			LastVerified: m.LastVerified,
		}
		for _, p := range m.Parameters {
			in.Parameters = append(in.Parameters, storage.ParameterInput{
				Name:         p.Name,
				ParamType:    p.Type,
				Required:     p.Required,
				Default:      p.Default,
				Choices:      p.Choices,
				VersionAdded: p.VersionAdded,
				Deprecated:   p.Deprecated,
			})
		}
		_, err := store.CreateAnsibleModule(in)
		switch {
		case err == nil:
			res.ModulesCreated++
		case errors.Kind(err) == errors.KindDuplicateName:
			res.ModulesSkipped++
			res.Skipped = append(res.Skipped, m.Namespace+"."+m.Name+"."+m.Module+"@"+m.Version)
		default:
			return res, errors.Wrapf(err, "ansible[%d] %s.%s.%s", i, m.Namespace, m.Name, m.Module)
		}
	}

	log.Infow("Catalogue imported",
		"providers", res.ProvidersCreated, "providers_skipped", res.ProvidersSkipped,
		"modules", res.ModulesCreated, "modules_skipped", res.ModulesSkipped)
	return res, nil
}
