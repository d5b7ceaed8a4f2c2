package main

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/nathoo/sceneweaver/engine/state"
	"github.com/nathoo/sceneweaver/loader"
	"github.com/nathoo/sceneweaver/mcp"
	"github.com/nathoo/sceneweaver/session"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve [game_directory]",
		Short: "Start the MCP server over stdio",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var defs *state.Defs
	if len(args) == 1 {
		b, err := loader.Load(args[0])
		if err != nil {
			return err
		}
		defer b.Close()
		defs = b.Defs
	}

	st, err := session.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	server := mcp.NewServer(defs, st, version)
	return server.Run(ctx, &sdk.StdioTransport{})
}
