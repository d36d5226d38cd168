// Package cli wires the iac-memory command line: the MCP server and the
// offline catalogue and version analysis commands.
package cli

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/config"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/logger"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/memory"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/storage"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/tools"
)

// app carries state resolved by the root command for its subcommands.
type app struct {
	configFile string
	v          *viper.Viper
	cfg        *config.Config
	log        *zap.SugaredLogger
	store      *storage.Store
	svc        *memory.Service
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "iac-memory",
		Short: "Knowledge store for infrastructure-as-code",
		Long: `iac-memory - Knowledge store for infrastructure-as-code.

Keeps an entity/relationship/observation graph alongside versioned Terraform
provider and Ansible module schemas, and answers context, search, version diff
and compatibility queries over MCP or from the command line.

Examples:
  iac-memory serve                                 # MCP over stdio
  iac-memory serve --transport http --port 8081    # MCP over streamable HTTP
  iac-memory import catalog.yaml                   # Load provider/Ansible schemas
  iac-memory diff provider aws/aws_instance 4.0.0 5.0.0
  iac-memory check ansible amazon.aws.ec2_instance 7.0.0 --use instance_type,region
  iac-memory versions provider aws_instance --constraint ">= 4, < 5"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Config file (yaml, json or toml)")
	flags.String("db", "", "SQLite database path")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.Bool("log-json", false, "Log as JSON")

	root.AddCommand(
		newServeCommand(a),
		newImportCommand(a),
		newDiffCommand(a),
		newCheckCommand(a),
		newVersionsCommand(a),
	)
	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func (a *app) init(cmd *cobra.Command) error {
	v, err := config.New(a.configFile)
	if err != nil {
		return err
	}
	flags := cmd.Root().PersistentFlags()
	for key, flag := range map[string]string{
		"database.path": "db",
		"log.level":     "log-level",
		"log.json":      "log-json",
	} {
		if f := flags.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return errors.Wrapf(err, "bind --%s", flag)
			}
		}
	}
	for key, flag := range map[string]string{
		"server.transport": "transport",
		"server.port":      "port",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return errors.Wrapf(err, "bind --%s", flag)
			}
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	log, err := logger.New(logger.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	if err != nil {
		return err
	}
	a.v, a.cfg, a.log = v, cfg, log
	return nil
}

// open opens the store named by the configuration.
func (a *app) open() error {
	store, err := storage.Open(a.cfg.Database.Path, a.log)
	if err != nil {
		return err
	}
	a.store = store
	a.svc = memory.New(store, a.log, memory.Options{MaxDepth: a.cfg.Graph.MaxDepth})
	return nil
}

func (a *app) close() error {
	if a.log != nil {
		_ = a.log.Sync()
	}
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

func (a *app) limits() tools.Limits {
	return tools.Limits{
		DefaultSearchLimit: a.cfg.Search.DefaultLimit,
		MaxSearchLimit:     a.cfg.Search.MaxLimit,
		DefaultDepth:       a.cfg.Graph.DefaultDepth,
	}
}
