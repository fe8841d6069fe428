// Package mcp exposes the specialist recommender as Model Context Protocol
// tools over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/specialist-recommender/internal/audit"
	"github.com/specialist-recommender/internal/domain"
	"github.com/specialist-recommender/internal/logging"
)

// Tool names
const (
	ToolRecommendSpecialist   = "recommend_specialist"
	ToolRecentRecommendations = "recent_recommendations"
)

// Server represents the specialist recommender MCP server
type Server struct {
	mcpServer   *mcp.Server
	recommender domain.Recommender
	audit       domain.AuditStore
	logger      *logrus.Logger
}

// RecommendParams defines parameters for the recommend_specialist tool
type RecommendParams struct {
	Symptoms string `json:"symptoms" jsonschema:"free-text description of the patient's symptoms"`
	Disease  string `json:"disease,omitempty" jsonschema:"optional known or suspected disease"`
}

// RecommendResult defines the result structure for the recommend_specialist tool
type RecommendResult struct {
	Specialist   string `json:"specialist"`
	Source       string `json:"source"`
	ModelVersion string `json:"model_version,omitempty"`
}

// RecentParams defines parameters for the recent_recommendations tool
type RecentParams struct {
	Limit  int `json:"limit,omitempty" jsonschema:"maximum number of records, default 20"`
	Offset int `json:"offset,omitempty" jsonschema:"number of newest records to skip"`
}

// RecentResult lists audit records, newest first
type RecentResult struct {
	Records []*domain.AuditRecord `json:"records"`
	Total   int64                 `json:"total"`
}

// NewServer creates a new MCP server instance
func NewServer(cfg domain.MCPConfig, recommender domain.Recommender, store domain.AuditStore, logger *logrus.Logger) (*Server, error) {
	if recommender == nil {
		return nil, fmt.Errorf("mcp server requires a recommender")
	}
	if store == nil {
		store = audit.Discard{}
	}
	if logger == nil {
		logger = logrus.New()
	}

	// Create server info
	serverInfo := &mcp.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}

	server := &Server{
		mcpServer:   mcp.NewServer(serverInfo, nil),
		recommender: recommender,
		audit:       store,
		logger:      logger,
	}
	server.registerTools()
	return server, nil
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: ToolRecommendSpecialist,
		Description: "Recommend a medical specialist for a free-text symptom description. " +
			"Anatomical keywords are routed by fixed rules; everything else goes to the trained classifier.",
	}, s.handleRecommend)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolRecentRecommendations,
		Description: "List the most recent recorded recommendations, newest first.",
	}, s.handleRecent)

	s.logger.WithField("tool_count", 2).Info("Registered MCP tools")
}

// MCPServer returns the underlying SDK server
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// Run serves MCP over stdin/stdout until ctx is cancelled or the client disconnects
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting specialist recommender MCP server on stdio")
	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// handleRecommend handles the recommend_specialist tool invocation
func (s *Server) handleRecommend(ctx context.Context, _ *mcp.CallToolRequest, params RecommendParams) (*mcp.CallToolResult, any, error) {
	log := logging.FromContext(ctx, s.logger).WithField("tool", ToolRecommendSpecialist)

	report := domain.SymptomReport{
		Symptoms: strings.TrimSpace(params.Symptoms),
		Disease:  strings.TrimSpace(params.Disease),
	}
	rec, err := s.recommender.Recommend(ctx, report)
	if err != nil {
		log.WithError(err).WithField("code", domain.ErrorCode(err)).Warn("Tool call failed")
		return errorResult(err), nil, nil
	}
	if err := s.audit.Append(ctx, domain.NewAuditRecord(report, rec, "")); err != nil {
		log.WithError(err).Error("Failed to record recommendation")
		return errorResult(fmt.Errorf("recording recommendation: %w", err)), nil, nil
	}

	result := RecommendResult{
		Specialist:   rec.Specialist.String(),
		Source:       string(rec.Source),
		ModelVersion: rec.ModelVersion,
	}
	log.WithFields(logrus.Fields{
		"specialist": result.Specialist,
		"source":     result.Source,
	}).Info("Tool invoked")

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Recommended specialist: %s (source: %s)", result.Specialist, result.Source)},
		},
	}, result, nil
}

// handleRecent handles the recent_recommendations tool invocation
func (s *Server) handleRecent(ctx context.Context, _ *mcp.CallToolRequest, params RecentParams) (*mcp.CallToolResult, any, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	records, err := s.audit.List(ctx, limit, params.Offset)
	if err != nil {
		return errorResult(err), nil, nil
	}
	total, err := s.audit.Count(ctx)
	if err != nil {
		return errorResult(err), nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d recorded recommendations", len(records), total)
	for _, r := range records {
		fmt.Fprintf(&b, "\n%s  %s  <- %q", r.Timestamp.Format("2006-01-02 15:04:05"), r.Specialist, r.Symptoms)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: b.String()}},
	}, RecentResult{Records: records, Total: total}, nil
}

// errorResult reports a failure to the client as a tool error
func errorResult(err error) *mcp.CallToolResult {
	code := domain.ErrorCode(err)
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%s: %v", code, err)},
		},
	}
}
