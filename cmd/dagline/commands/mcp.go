package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/dagline/internal/mcp"
	"github.com/Sumatoshi-tech/dagline/internal/observability"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand(globals *GlobalOptions) *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start an MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The server exposes two tools:
  - dagline_linearize: linearize a graph document with one strategy
  - dagline_compare: run every strategy on a graph document`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := globals.start(observability.ModeMCP)
			if err != nil {
				return err
			}
			defer rt.close()

			p, err := rt.newPlanner(rt.cfg.Search, !noCache)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:  rt.logger,
				Planner: p,
				Metrics: rt.red,
				Tracer:  rt.providers.Tracer,
			})

			rt.logger.InfoContext(ctx, "mcp server listening on stdio", "tools", srv.ListToolNames())

			return srv.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "neither read nor write the plan cache")

	return cmd
}
