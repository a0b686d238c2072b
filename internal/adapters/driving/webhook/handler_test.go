package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
)

type mockQueue struct {
	tasks []domain.IndexingTask
	err   error
}

func (m *mockQueue) add(task domain.IndexingTask) (*domain.IndexingTask, error) {
	if m.err != nil {
		return nil, m.err
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}
	task.ID = "t-" + string(rune('0'+len(m.tasks)))
	m.tasks = append(m.tasks, task)
	return &task, nil
}

func (m *mockQueue) EnqueueFullSiteTask(_ context.Context) (*domain.IndexingTask, error) {
	return m.add(domain.IndexingTask{Kind: domain.TaskKindFullSiteReindex})
}

func (m *mockQueue) EnqueueItemUpsert(_ context.Context, c, id string) (*domain.IndexingTask, error) {
	return m.add(domain.IndexingTask{Kind: domain.TaskKindItemUpsert, CollectionName: c, ItemID: id})
}

func (m *mockQueue) EnqueueItemRemove(_ context.Context, c, id string) (*domain.IndexingTask, error) {
	return m.add(domain.IndexingTask{Kind: domain.TaskKindItemRemove, CollectionName: c, ItemID: id})
}

func (m *mockQueue) EnqueueCollectionReindex(_ context.Context, c string) (*domain.IndexingTask, error) {
	return m.add(domain.IndexingTask{Kind: domain.TaskKindCollectionReindex, CollectionName: c})
}

func (m *mockQueue) Pending(_ context.Context) ([]domain.IndexingTask, error) { return m.tasks, m.err }

func (m *mockQueue) Recent(_ context.Context, _ int) ([]domain.IndexingTask, error) {
	return m.tasks, m.err
}

func (m *mockQueue) Prune(_ context.Context, _ time.Duration) (int, error) { return 0, m.err }

type mockCollections struct{ names map[string]bool }

func (m *mockCollections) IsConfigured(name string) bool { return m.names[name] }

func (m *mockCollections) CollectionConfig(name string) (*domain.CollectionIndexConfig, error) {
	return &domain.CollectionIndexConfig{Name: name}, nil
}

func (m *mockCollections) ConfiguredCollections() []string { return nil }

func (m *mockCollections) IndexAliasName() string { return "sercha" }

func post(t *testing.T, h http.Handler, path, body string, header ...string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestHandleEvent_MapsLifecycleEvents(t *testing.T) {
	tests := []struct {
		event string
		kind  domain.TaskKind
	}{
		{EventEntryCreate, domain.TaskKindItemUpsert},
		{EventEntryUpdate, domain.TaskKindItemUpsert},
		{EventEntryPublish, domain.TaskKindItemUpsert},
		{EventEntryDelete, domain.TaskKindItemRemove},
		{EventEntryUnpublish, domain.TaskKindItemRemove},
	}

	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			queue := &mockQueue{}
			h := NewHandler(queue, nil, "")

			body := `{"event":"` + tt.event + `","model":"article","uid":"api::article.article","entry":{"id":42}}`
			rec, resp := post(t, h, "/webhook", body)

			assert.Equal(t, http.StatusAccepted, rec.Code)
			assert.Equal(t, "queued", resp.Status)
			require.Len(t, queue.tasks, 1)
			assert.Equal(t, tt.kind, queue.tasks[0].Kind)
			assert.Equal(t, "api::article.article", queue.tasks[0].CollectionName)
			assert.Equal(t, "42", queue.tasks[0].ItemID)
		})
	}
}

func TestHandleEvent_Ignored(t *testing.T) {
	queue := &mockQueue{}
	h := NewHandler(queue, &mockCollections{names: map[string]bool{"api::article.article": true}}, "")

	rec, resp := post(t, h, "/webhook", `{"event":"entry.update","uid":"api::page.page","entry":{"id":1}}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "ignored", resp.Status)

	_, resp = post(t, h, "/webhook", `{"event":"media.create","uid":"api::article.article","entry":{"id":1}}`)
	assert.Equal(t, "ignored", resp.Status)

	assert.Empty(t, queue.tasks)
}

func TestHandleEvent_BadRequests(t *testing.T) {
	h := NewHandler(&mockQueue{}, nil, "")

	rec, _ := post(t, h, "/webhook", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp := post(t, h, "/webhook", `{"event":"entry.update","model":"article","entry":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp.Error, "requires a collection and an item")

	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleEvent_QueueFailure(t *testing.T) {
	h := NewHandler(&mockQueue{err: errors.New("disk full")}, nil, "")

	rec, resp := post(t, h, "/webhook", `{"event":"entry.create","model":"article","entry":{"id":1}}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, resp.Error, "disk full")
}

func TestHandleEvent_Secret(t *testing.T) {
	queue := &mockQueue{}
	h := NewHandler(queue, nil, "s3cret")
	body := `{"event":"entry.create","model":"article","entry":{"id":1}}`

	rec, _ := post(t, h, "/webhook", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = post(t, h, "/webhook", body, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = post(t, h, "/webhook", body, "Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, queue.tasks, 1)
}

func TestHandleRebuild(t *testing.T) {
	queue := &mockQueue{}
	h := NewHandler(queue, nil, "")

	rec, resp := post(t, h, "/rebuild", "")

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, domain.TaskKindFullSiteReindex.String(), resp.Kind)
	require.Len(t, queue.tasks, 1)
}

func TestEvent_CollectionFallsBackToModel(t *testing.T) {
	assert.Equal(t, "article", Event{Model: "article"}.Collection())
	assert.Equal(t, "api::article.article", Event{Model: "article", UID: "api::article.article"}.Collection())
	assert.Equal(t, "abc", Event{Entry: map[string]any{"id": "abc"}}.ItemID())
}
