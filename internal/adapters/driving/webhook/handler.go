// Package webhook provides the HTTP trigger that turns content-store
// lifecycle events into indexing tasks.
//
// Strapi posts a JSON body such as
//
//	{"event": "entry.update", "uid": "api::article.article", "entry": {"id": 42}}
//
// to POST /webhook. Create, update and publish events enqueue an item upsert;
// delete and unpublish events enqueue an item removal. POST /rebuild enqueues
// a full-site reindex. Nothing is indexed in the request path: the next drain
// applies the tasks.
package webhook

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-indexsync/internal/logger"
)

// maxBody caps the size of an event body.
const maxBody = 1 << 20

// Strapi lifecycle event names.
const (
	EventEntryCreate    = "entry.create"
	EventEntryUpdate    = "entry.update"
	EventEntryPublish   = "entry.publish"
	EventEntryDelete    = "entry.delete"
	EventEntryUnpublish = "entry.unpublish"
)

// Event is a Strapi webhook payload.
type Event struct {
	Event string         `json:"event"`
	Model string         `json:"model"`
	UID   string         `json:"uid"`
	Entry map[string]any `json:"entry"`
}

// Collection returns the collection the event refers to, preferring the uid.
func (e Event) Collection() string {
	if e.UID != "" {
		return e.UID
	}
	return e.Model
}

// ItemID returns the entry id as a string.
func (e Event) ItemID() string {
	return domain.Record(e.Entry).ID()
}

// Response is the JSON body returned by the handler.
type Response struct {
	Status string `json:"status"`
	TaskID string `json:"task_id,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Handler serves the webhook endpoints.
type Handler struct {
	queue       driving.QueueService
	collections driven.CollectionConfigResolver
	secret      string
	log         *logrus.Entry
}

// NewHandler creates a handler. When collections is non-nil, events for
// unconfigured collections are acknowledged and ignored. When secret is
// non-empty, requests must carry it as a bearer token.
func NewHandler(queue driving.QueueService, collections driven.CollectionConfigResolver, secret string) *Handler {
	return &Handler{
		queue:       queue,
		collections: collections,
		secret:      secret,
		log:         logger.For("webhook"),
	}
}

// Register mounts the endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", h.handleEvent)
	mux.HandleFunc("/rebuild", h.handleRebuild)
}

// ServeHTTP makes Handler usable on its own.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	h.Register(mux)
	mux.ServeHTTP(w, r)
}

func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	if !h.accept(w, r) {
		return
	}

	var ev Event
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Status: "error", Error: fmt.Sprintf("invalid event body: %v", err)})
		return
	}

	collection := ev.Collection()
	if h.collections != nil && !h.collections.IsConfigured(collection) {
		h.log.WithField("collection", collection).Debug("ignoring event for unconfigured collection")
		writeJSON(w, http.StatusAccepted, Response{Status: "ignored"})
		return
	}

	var (
		task *domain.IndexingTask
		err  error
	)
	switch ev.Event {
	case EventEntryCreate, EventEntryUpdate, EventEntryPublish:
		task, err = h.queue.EnqueueItemUpsert(r.Context(), collection, ev.ItemID())
	case EventEntryDelete, EventEntryUnpublish:
		task, err = h.queue.EnqueueItemRemove(r.Context(), collection, ev.ItemID())
	default:
		writeJSON(w, http.StatusAccepted, Response{Status: "ignored"})
		return
	}
	h.respond(w, ev.Event, task, err)
}

func (h *Handler) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if !h.accept(w, r) {
		return
	}
	task, err := h.queue.EnqueueFullSiteTask(r.Context())
	h.respond(w, "rebuild", task, err)
}

// accept enforces the method and the shared secret.
func (h *Handler) accept(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, Response{Status: "error", Error: "method not allowed"})
		return false
	}
	if h.secret != "" {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) != 1 {
			writeJSON(w, http.StatusUnauthorized, Response{Status: "error", Error: "unauthorized"})
			return false
		}
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, event string, task *domain.IndexingTask, err error) {
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		h.log.WithError(err).WithField("event", event).Warn("could not enqueue task")
		writeJSON(w, status, Response{Status: "error", Error: err.Error()})
		return
	}

	h.log.WithFields(logrus.Fields{
		"event": event,
		"task":  task.ID,
		"kind":  task.Kind,
	}).Info("task enqueued")
	writeJSON(w, http.StatusAccepted, Response{Status: "queued", TaskID: task.ID, Kind: task.Kind.String()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
