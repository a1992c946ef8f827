package mcp

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/guidemcp/internal/engine"
	"github.com/Aman-CERP/guidemcp/internal/guideline"
	"github.com/Aman-CERP/guidemcp/pkg/version"
)

// SearchInput is the input schema for search_guidelines.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query, e.g. naming conventions for conversions"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10, max 50"`
}

// SearchOutput is the output schema for search_guidelines.
type SearchOutput struct {
	Results []engine.SearchResult `json:"results" jsonschema:"search hits ordered by descending score"`
}

// GetInput is the input schema for get_guideline.
type GetInput struct {
	GuidelineID string `json:"guideline_id" jsonschema:"the guideline id, e.g. C-CASE or P.1"`
}

// GetOutput is the output schema for get_guideline: the full record.
type GetOutput struct {
	ID          string `json:"id"`
	Anchor      string `json:"anchor"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	SourceFile  string `json:"source_file"`
	RawMarkdown string `json:"raw_markdown"`
}

// ListCategoryInput is the input schema for list_category.
type ListCategoryInput struct {
	Category string `json:"category" jsonschema:"the category key, e.g. P or Naming"`
}

// CategoryOutput is the category metadata in a list_category response.
type CategoryOutput struct {
	Key            string `json:"key"`
	DisplayName    string `json:"display_name"`
	GuidelineCount int    `json:"guideline_count"`
}

// ListCategoryOutput is the output schema for list_category.
type ListCategoryOutput struct {
	Category   CategoryOutput        `json:"category"`
	Guidelines []engine.GuidelineRef `json:"guidelines" jsonschema:"member guidelines sorted by id"`
}

// UpdateInput is the input schema for update_guidelines (no parameters).
type UpdateInput struct{}

// Server exposes one family's engine over MCP.
type Server struct {
	mcp    *mcp.Server
	engine *engine.Engine
	logger *slog.Logger
}

// NewServer creates an MCP server over the given engine.
func NewServer(eng *engine.Engine, logger *slog.Logger) (*Server, error) {
	if eng == nil {
		return nil, errors.New("engine is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		engine: eng,
		logger: logger,
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "guidemcp-" + eng.Family().Key,
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()

	return s, nil
}

func (s *Server) registerTools() {
	family := s.engine.Family().Name

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_guidelines",
		Description: "Semantic search over " + family + ". Finds guidelines by meaning, not keywords. Returns id, title, category, score, and a short summary per hit.",
	}, s.searchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_guideline",
		Description: "Fetch one guideline from " + family + " by its id, with the full markdown body and a deep-link anchor into the source document.",
	}, s.getHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_category",
		Description: "List all guidelines in one category of " + family + ", sorted by id.",
	}, s.listCategoryHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "update_guidelines",
		Description: "Sync " + family + " from upstream and rebuild the index if it changed. Reads keep working against the previous index during the rebuild.",
	}, s.updateHandler)

	s.logger.Debug("tools registered", slog.Int("count", 4))
}

func (s *Server) searchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult, SearchOutput, error,
) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query parameter is required")
	}

	results, err := s.engine.Search(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}

	s.logger.Debug("search served",
		slog.String("query", input.Query),
		slog.Int("results", len(results)))
	return nil, SearchOutput{Results: results}, nil
}

func (s *Server) getHandler(_ context.Context, _ *mcp.CallToolRequest, input GetInput) (
	*mcp.CallToolResult, GetOutput, error,
) {
	if strings.TrimSpace(input.GuidelineID) == "" {
		return nil, GetOutput{}, NewInvalidParamsError("guideline_id parameter is required")
	}

	rec, err := s.engine.Get(input.GuidelineID)
	if err != nil {
		return nil, GetOutput{}, MapError(err)
	}
	return nil, toGetOutput(rec), nil
}

func (s *Server) listCategoryHandler(_ context.Context, _ *mcp.CallToolRequest, input ListCategoryInput) (
	*mcp.CallToolResult, ListCategoryOutput, error,
) {
	if strings.TrimSpace(input.Category) == "" {
		return nil, ListCategoryOutput{}, NewInvalidParamsError("category parameter is required")
	}

	cat, refs, err := s.engine.ListCategory(input.Category)
	if err != nil {
		return nil, ListCategoryOutput{}, MapError(err)
	}

	return nil, ListCategoryOutput{
		Category: CategoryOutput{
			Key:            cat.Key,
			DisplayName:    cat.DisplayName,
			GuidelineCount: cat.GuidelineCount,
		},
		Guidelines: refs,
	}, nil
}

func (s *Server) updateHandler(ctx context.Context, _ *mcp.CallToolRequest, _ UpdateInput) (
	*mcp.CallToolResult, engine.UpdateResult, error,
) {
	res, err := s.engine.Update(ctx)
	if err != nil {
		s.logger.Error("update failed", slog.String("error", err.Error()))
		return nil, engine.UpdateResult{}, MapError(err)
	}
	return nil, res, nil
}

func toGetOutput(rec guideline.Record) GetOutput {
	return GetOutput{
		ID:          rec.ID,
		Anchor:      rec.Anchor,
		Title:       rec.Title,
		Category:    rec.CategoryKey,
		SourceFile:  rec.SourceFile,
		RawMarkdown: rec.RawMarkdown,
	}
}

// Run serves MCP over stdio until the context is canceled or the client
// disconnects. Stdout belongs to the protocol; nothing else may write to it.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("serving MCP over stdio",
		slog.String("family", s.engine.Family().Key),
		slog.String("version", version.Version))
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}
