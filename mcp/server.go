// Package mcp exposes saved SceneWeaver sessions to MCP clients: slot
// listings, snapshot inspection and condition checks against a save.
package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nathoo/sceneweaver/engine/save"
	"github.com/nathoo/sceneweaver/engine/state"
)

type Server struct {
	defs  *state.Defs
	store save.Store
	mcp   *sdk.Server
}

// NewServer serves the slots in store. defs may be nil when no script is
// loaded; list_scenes then reports nothing.
func NewServer(defs *state.Defs, store save.Store, version string) *Server {
	s := &Server{
		defs:  defs,
		store: store,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "sceneweaver",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
