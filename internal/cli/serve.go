package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long: `Run the MCP server over stdio (default) or streamable HTTP.

Logs go to stderr so stdout stays free for the stdio transport.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(); err != nil {
				return err
			}
			defer a.close()
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().String("transport", "", "Transport mode: stdio or http")
	cmd.Flags().Int("port", 0, "HTTP port (only used with --transport http)")
	return cmd
}

func (a *app) serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := server.New(a.store, a.svc, a.limits(), a.log)

	switch a.cfg.Server.Transport {
	case "stdio":
		a.log.Infow("IaC memory server starting", "transport", "stdio", "database", a.cfg.Database.Path)
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			return errors.Wrap(err, "server error")
		}
		return nil
	case "http":
		addr := ":" + strconv.Itoa(a.cfg.Server.Port)
		handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
			return srv
		}, nil)
		httpSrv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

		errCh := make(chan error, 1)
		go func() { errCh <- httpSrv.ListenAndServe() }()
		a.log.Infow("IaC memory server listening", "transport", "http", "addr", addr, "database", a.cfg.Database.Path)

		select {
		case err := <-errCh:
			return errors.Wrap(err, "HTTP server error")
		case <-ctx.Done():
		}
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		a.log.Infow("Shutting down")
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	default:
		return errors.Validationf("unknown transport: %s (use stdio or http)", a.cfg.Server.Transport)
	}
}
