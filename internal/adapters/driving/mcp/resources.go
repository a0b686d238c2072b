package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// URIScheme is the custom URI scheme for indexsync resources.
	uriScheme = "sercha://"

	mimeJSON = "application/json"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Indexing != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "status",
			Name:        "status",
			Description: "Index names, alias targets and engine reachability",
			MIMEType:    mimeJSON,
		}, s.handleStatusResource)

		s.server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: uriScheme + "logs/{limit}",
			Name:        "indexing-logs",
			Description: "The latest operation log entries",
			MIMEType:    mimeJSON,
		}, s.handleLogsResource)
	}

	if s.ports.Queue != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "tasks/pending",
			Name:        "pending-tasks",
			Description: "Indexing tasks waiting for the next drain, oldest first",
			MIMEType:    mimeJSON,
		}, s.handlePendingResource)
	}
}

func (s *Server) handleStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	status, err := s.ports.Indexing.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading status: %w", err)
	}

	type statusInfo struct {
		CurrentIndex   string   `json:"current_index"`
		TemporaryIndex string   `json:"temporary_index"`
		Alias          string   `json:"alias"`
		AliasTargets   []string `json:"alias_targets"`
		Reachable      bool     `json:"reachable"`
		PendingTasks   int      `json:"pending_tasks"`
	}

	return jsonResource(req.Params.URI, statusInfo{
		CurrentIndex:   status.Descriptor.CurrentName,
		TemporaryIndex: status.Descriptor.TemporaryName,
		Alias:          status.Descriptor.AliasName,
		AliasTargets:   status.AliasTargets,
		Reachable:      status.Reachable,
		PendingTasks:   status.PendingTasks,
	})
}

func (s *Server) handlePendingResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	tasks, err := s.ports.Queue.Pending(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing pending tasks: %w", err)
	}

	type taskInfo struct {
		ID         string    `json:"id"`
		Kind       string    `json:"kind"`
		Collection string    `json:"collection,omitempty"`
		ItemID     string    `json:"item_id,omitempty"`
		CreatedAt  time.Time `json:"created_at"`
	}

	infos := make([]taskInfo, len(tasks))
	for i := range tasks {
		infos[i] = taskInfo{
			ID:         tasks[i].ID,
			Kind:       tasks[i].Kind.String(),
			Collection: tasks[i].CollectionName,
			ItemID:     tasks[i].ItemID,
			CreatedAt:  tasks[i].CreatedAt,
		}
	}
	return jsonResource(req.Params.URI, infos)
}

func (s *Server) handleLogsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	limit := extractLimit(req.Params.URI)
	if limit <= 0 {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	entries, err := s.ports.Indexing.Logs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("reading logs: %w", err)
	}

	out := make([]LogEntryOutput, len(entries))
	for i, e := range entries {
		out[i] = LogEntryOutput{Timestamp: e.Timestamp, Outcome: string(e.Outcome), Message: e.Message}
	}
	return jsonResource(req.Params.URI, out)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: mimeJSON,
			Text:     string(data),
		}},
	}, nil
}

// extractLimit extracts the limit from a URI like sercha://logs/{limit}.
// It returns 0 when the URI does not match or the limit is not a number.
func extractLimit(uri string) int {
	const prefix = uriScheme + "logs/"

	if !strings.HasPrefix(uri, prefix) {
		return 0
	}

	n, err := strconv.Atoi(strings.TrimPrefix(uri, prefix))
	if err != nil {
		return 0
	}
	return n
}
