// Package mcpserver exposes the leasing capabilities as Model Context
// Protocol tools so external agents can query availability, pricing and pet
// policy directly.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/capitalize-ai/leasing-assistant/internal/tools"
	"github.com/capitalize-ai/leasing-assistant/pkg/logger"
)

const (
	serverName    = "leasing-assistant"
	serverVersion = "1.0.0"

	// EndpointPath is where the streamable HTTP transport is mounted.
	EndpointPath = "/mcp"
)

// Server binds a capability registry to an MCP server.
type Server struct {
	registry *tools.Registry
	mcp      *server.MCPServer
	logger   *logger.Logger
}

// New registers one MCP tool per capability.
func New(registry *tools.Registry, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		registry: registry,
		mcp: server.NewMCPServer(serverName, serverVersion,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
		logger: log.Named("mcp"),
	}

	s.mcp.AddTool(mcp.NewTool(tools.CheckAvailability,
		mcp.WithDescription(s.description(tools.CheckAvailability)),
		mcp.WithString("community_id", mcp.Required(), mcp.Description("Community identifier, e.g. sunset-ridge")),
		mcp.WithNumber("bedrooms", mcp.Required(), mcp.Description("Number of bedrooms (0 for studio)")),
		mcp.WithString("move_in_date", mcp.Description("Desired move-in date YYYY-MM-DD")),
	), s.handle(tools.CheckAvailability))

	s.mcp.AddTool(mcp.NewTool(tools.GetPricing,
		mcp.WithDescription(s.description(tools.GetPricing)),
		mcp.WithString("community_id", mcp.Required(), mcp.Description("Community identifier")),
		mcp.WithString("unit_id", mcp.Required(), mcp.Description("Unit code, e.g. B201")),
		mcp.WithString("move_in_date", mcp.Description("Desired move-in date YYYY-MM-DD")),
	), s.handle(tools.GetPricing))

	s.mcp.AddTool(mcp.NewTool(tools.CheckPetPolicy,
		mcp.WithDescription(s.description(tools.CheckPetPolicy)),
		mcp.WithString("community_id", mcp.Required(), mcp.Description("Community identifier")),
		mcp.WithString("pet_type", mcp.Required(), mcp.Description("Pet type in lowercase: cat, dog, bird, fish, rabbit, hamster")),
	), s.handle(tools.CheckPetPolicy))

	return s
}

func (s *Server) description(name string) string {
	for _, c := range s.registry.Capabilities() {
		if c.Name == name {
			return c.Description
		}
	}
	return name
}

// MCP returns the underlying MCP server, e.g. for a stdio transport.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// Handler returns the streamable HTTP transport.
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp,
		server.WithEndpointPath(EndpointPath),
		server.WithStateLess(true),
	)
}

func (s *Server) handle(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		if args == nil {
			args = map[string]any{}
		}
		if name != tools.CheckPetPolicy {
			if _, ok := args["move_in_date"]; !ok {
				args["move_in_date"] = nil
			}
		}
		raw, err := json.Marshal(args)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		res, err := s.registry.Invoke(ctx, name, string(raw))
		if err != nil {
			return nil, err
		}
		s.logger.Debug("tool call", zap.String("tool", name), zap.Bool("success", res.Success))
		if !res.Success {
			return mcp.NewToolResultError(res.JSON()), nil
		}
		return mcp.NewToolResultText(res.JSON()), nil
	}
}
