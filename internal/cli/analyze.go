package cli

import (
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/catalog"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/models"
)

// parseProviderRef accepts "provider/resource_type" or a bare resource type.
func parseProviderRef(s string) (models.ProviderRef, error) {
	provider, resource, ok := strings.Cut(s, "/")
	if !ok {
		provider, resource = "", s
	}
	if resource == "" || strings.Contains(resource, "/") {
		return models.ProviderRef{}, errors.Validationf("provider reference %q must be provider/resource_type or resource_type", s)
	}
	return models.ProviderRef{Provider: provider, ResourceType: resource}, nil
}

// parseModuleRef accepts "namespace.collection.module".
func parseModuleRef(s string) (models.ModuleRef, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return models.ModuleRef{}, errors.Validationf("module reference %q must be namespace.collection.module", s)
	}
	return models.ModuleRef{Namespace: parts[0], Name: parts[1], ModuleName: parts[2]}, nil
}

func kindArg(cmd *cobra.Command, args []string) error {
	if err := cobra.MinimumNArgs(1)(cmd, args); err != nil {
		return err
	}
	switch args[0] {
	case "provider", "ansible":
		return nil
	}
	return errors.Validationf("first argument must be provider or ansible, got %q", args[0])
}

func newImportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE...",
		Short: "Import provider and Ansible schemas from YAML catalogues",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			defer a.close()
			var total catalog.Result
			for _, path := range args {
				doc, err := catalog.ParseFile(path)
				if err != nil {
					return err
				}
				res, err := catalog.Apply(a.store, doc, a.log)
				total.Add(res)
				if err != nil {
					return errors.Wrapf(err, "%s", path)
				}
			}
			pterm.Success.Printf("Imported %d provider resources and %d Ansible modules\n",
				total.ProvidersCreated, total.ModulesCreated)
			for _, s := range total.Skipped {
				pterm.Warning.Printf("Already registered: %s\n", s)
			}
			return nil
		},
	}
}

func newDiffCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diff provider|ansible REF FROM TO",
		Short: "Classify schema changes between two versions",
		Long: `Classify schema changes between two registered versions.

REF is provider/resource_type (or a bare resource type) for providers and
namespace.collection.module for Ansible.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(4)(cmd, args); err != nil {
				return err
			}
			return kindArg(cmd, args)
		},
		RunE: func(_ *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			defer a.close()
			var (
				d   models.VersionDiff
				err error
			)
			if args[0] == "provider" {
				ref, perr := parseProviderRef(args[1])
				if perr != nil {
					return perr
				}
				d, err = a.svc.DiffProvider(ref, args[2], args[3])
			} else {
				ref, perr := parseModuleRef(args[1])
				if perr != nil {
					return perr
				}
				d, err = a.svc.DiffAnsible(ref, args[2], args[3])
			}
			if err != nil {
				return err
			}
			return renderDiff(d)
		},
	}
}

func renderDiff(d models.VersionDiff) error {
	pterm.DefaultSection.Printf("%s %s -> %s", d.Ref, d.FromVersion, d.ToVersion)
	changes := d.Changes()
	if len(changes) == 0 {
		pterm.Info.Println("No schema changes")
		return nil
	}
	data := pterm.TableData{{"Name", "Change", "Classification", "Detail"}}
	for _, c := range changes {
		data = append(data, []string{c.Name, string(c.Kind), string(c.Classification), c.Detail})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return errors.Wrap(err, "render diff")
	}
	switch d.Severity {
	case models.SeverityBreaking:
		pterm.Error.Printf("Severity: %s\n", d.Severity)
	case models.SeverityDeprecatedRemoval:
		pterm.Warning.Printf("Severity: %s\n", d.Severity)
	default:
		pterm.Success.Printf("Severity: %s\n", d.Severity)
	}
	return nil
}

func newCheckCommand(a *app) *cobra.Command {
	var used []string
	cmd := &cobra.Command{
		Use:   "check provider|ansible REF TARGET",
		Short: "Check whether used arguments work with a target version",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(3)(cmd, args); err != nil {
				return err
			}
			return kindArg(cmd, args)
		},
		RunE: func(_ *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			defer a.close()
			var (
				report models.CompatibilityReport
				err    error
			)
			if args[0] == "provider" {
				ref, perr := parseProviderRef(args[1])
				if perr != nil {
					return perr
				}
				report, err = a.svc.CheckProvider(ref, used, args[2])
			} else {
				ref, perr := parseModuleRef(args[1])
				if perr != nil {
					return perr
				}
				report, err = a.svc.CheckAnsible(ref, used, args[2])
			}
			if err != nil {
				return err
			}
			return renderReport(report)
		},
	}
	cmd.Flags().StringSliceVar(&used, "use", nil, "Argument or parameter names the configuration sets (comma separated)")
	return cmd
}

func renderReport(r models.CompatibilityReport) error {
	pterm.DefaultSection.Printf("%s @ %s", r.Ref, r.TargetVersion)
	if len(r.Issues) > 0 {
		data := pterm.TableData{{"Name", "Issue", "Newly required", "Detail"}}
		for _, i := range r.Issues {
			newly := ""
			if i.NewlyRequired {
				newly = "yes"
			}
			data = append(data, []string{i.Name, string(i.Kind), newly, i.Detail})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			return errors.Wrap(err, "render report")
		}
	}
	switch r.Status {
	case models.StatusIncompatible:
		pterm.Error.Printf("Status: %s\n", r.Status)
	case models.StatusCompatibleWithWarnings:
		pterm.Warning.Printf("Status: %s\n", r.Status)
	default:
		pterm.Success.Printf("Status: %s\n", r.Status)
	}
	return nil
}

func newVersionsCommand(a *app) *cobra.Command {
	var constraint string
	cmd := &cobra.Command{
		Use:   "versions provider|ansible REF",
		Short: "List registered versions, optionally resolving a semver constraint",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(2)(cmd, args); err != nil {
				return err
			}
			return kindArg(cmd, args)
		},
		RunE: func(_ *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			defer a.close()
			var (
				versions []string
				resolve  func() (string, error)
			)
			if args[0] == "provider" {
				ref, err := parseProviderRef(args[1])
				if err != nil {
					return err
				}
				if versions, err = a.store.ProviderVersions(ref); err != nil {
					return err
				}
				resolve = func() (string, error) { return a.svc.ResolveProvider(ref, constraint) }
			} else {
				ref, err := parseModuleRef(args[1])
				if err != nil {
					return err
				}
				if versions, err = a.store.AnsibleVersions(ref); err != nil {
					return err
				}
				resolve = func() (string, error) { return a.svc.ResolveAnsible(ref, constraint) }
			}

			items := make([]pterm.BulletListItem, len(versions))
			for i, v := range versions {
				items[i] = pterm.BulletListItem{Level: 0, Text: v}
			}
			if err := pterm.DefaultBulletList.WithItems(items).Render(); err != nil {
				return errors.Wrap(err, "render versions")
			}
			if constraint != "" {
				v, err := resolve()
				if err != nil {
					return err
				}
				pterm.Success.Printf("%s resolves to %s\n", constraint, v)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&constraint, "constraint", "", "Semver constraint to resolve, e.g. \">= 4.50, < 5\"")
	return cmd
}
