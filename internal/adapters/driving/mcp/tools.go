package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query  string   `json:"query" jsonschema:"the text to search for"`
	Fields []string `json:"fields,omitempty" jsonschema:"fields to match; defaults to the searchable fields"`
	Limit  int      `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
	Total   int64                `json:"total"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	DocumentID string         `json:"document_id"`
	Index      string         `json:"index"`
	Score      float64        `json:"score"`
	Source     map[string]any `json:"source,omitempty"`
}

// RebuildInput is the input schema for the rebuild_index tool.
type RebuildInput struct{}

// RebuildOutput is the output schema for the rebuild_index tool.
type RebuildOutput struct {
	Status string `json:"status"`
}

// IndexPendingInput is the input schema for the index_pending tool.
type IndexPendingInput struct{}

// IndexPendingOutput is the output schema for the index_pending tool.
type IndexPendingOutput struct {
	Pending     int  `json:"pending"`
	Completed   int  `json:"completed"`
	Failed      int  `json:"failed"`
	FullRebuild bool `json:"full_rebuild"`
}

// EnqueueInput is the input schema for the enqueue_task tool.
type EnqueueInput struct {
	Kind       string `json:"kind" jsonschema:"one of full, upsert, remove, collection"`
	Collection string `json:"collection,omitempty" jsonschema:"collection name; required unless kind is full"`
	ItemID     string `json:"item_id,omitempty" jsonschema:"record id; required for upsert and remove"`
}

// EnqueueOutput is the output schema for the enqueue_task tool.
type EnqueueOutput struct {
	TaskID string `json:"task_id"`
	Kind   string `json:"kind"`
}

// LogsInput is the input schema for the indexing_logs tool.
type LogsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"number of entries to return (default 20)"`
}

// LogsOutput is the output schema for the indexing_logs tool.
type LogsOutput struct {
	Entries []LogEntryOutput `json:"entries"`
}

// LogEntryOutput is one operation log entry.
type LogEntryOutput struct {
	Timestamp time.Time `json:"timestamp"`
	Outcome   string    `json:"outcome"`
	Message   string    `json:"message"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search indexed content through the index alias",
	}, s.handleSearch)

	if s.ports.Indexing != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "rebuild_index",
			Description: "Rebuild the search index from every configured collection",
		}, s.handleRebuild)
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "index_pending",
			Description: "Apply all pending indexing tasks",
		}, s.handleIndexPending)
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "indexing_logs",
			Description: "Show the latest indexing outcomes, newest first",
		}, s.handleLogs)
	}

	if s.ports.Queue != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "enqueue_task",
			Description: "Queue an indexing task for the next drain",
		}, s.handleEnqueue)
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	res, err := s.ports.Search.Search(ctx, domain.SearchQuery{
		Text:   input.Query,
		Fields: input.Fields,
		Size:   limit,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(res.Hits)),
		Count:   len(res.Hits),
		Total:   res.Total,
	}
	for i, hit := range res.Hits {
		output.Results[i] = SearchResultOutput{
			DocumentID: hit.ID,
			Index:      hit.Index,
			Score:      hit.Score,
			Source:     hit.Source,
		}
	}

	return nil, output, nil
}

func (s *Server) handleRebuild(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ RebuildInput,
) (*mcp.CallToolResult, RebuildOutput, error) {
	if err := s.ports.Indexing.RebuildIndex(ctx); err != nil {
		return nil, RebuildOutput{}, err
	}
	return nil, RebuildOutput{Status: "rebuilt"}, nil
}

func (s *Server) handleIndexPending(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ IndexPendingInput,
) (*mcp.CallToolResult, IndexPendingOutput, error) {
	report, err := s.ports.Indexing.IndexPendingData(ctx)
	if err != nil {
		return nil, IndexPendingOutput{}, err
	}
	return nil, IndexPendingOutput{
		Pending:     report.Pending,
		Completed:   report.Completed,
		Failed:      report.Failed,
		FullRebuild: report.FullRebuild,
	}, nil
}

func (s *Server) handleEnqueue(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input EnqueueInput,
) (*mcp.CallToolResult, EnqueueOutput, error) {
	var (
		task *domain.IndexingTask
		err  error
	)
	switch input.Kind {
	case "full":
		task, err = s.ports.Queue.EnqueueFullSiteTask(ctx)
	case "upsert":
		task, err = s.ports.Queue.EnqueueItemUpsert(ctx, input.Collection, input.ItemID)
	case "remove":
		task, err = s.ports.Queue.EnqueueItemRemove(ctx, input.Collection, input.ItemID)
	case "collection":
		task, err = s.ports.Queue.EnqueueCollectionReindex(ctx, input.Collection)
	default:
		return nil, EnqueueOutput{}, fmt.Errorf("%w: %q", ErrUnknownTaskKind, input.Kind)
	}
	if err != nil {
		return nil, EnqueueOutput{}, err
	}
	return nil, EnqueueOutput{TaskID: task.ID, Kind: task.Kind.String()}, nil
}

func (s *Server) handleLogs(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input LogsInput,
) (*mcp.CallToolResult, LogsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	entries, err := s.ports.Indexing.Logs(ctx, limit)
	if err != nil {
		return nil, LogsOutput{}, err
	}

	output := LogsOutput{Entries: make([]LogEntryOutput, len(entries))}
	for i, e := range entries {
		output.Entries[i] = LogEntryOutput{Timestamp: e.Timestamp, Outcome: string(e.Outcome), Message: e.Message}
	}
	return nil, output, nil
}
