// Package handler provides the HTTP handlers for the Review-Relay ingestion side.
package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sevigo/review-relay/internal/core"
	"github.com/sevigo/review-relay/internal/metrics"
	"github.com/sevigo/review-relay/internal/provider"
)

// maxBodyBytes caps webhook bodies well above the largest payload either
// platform sends.
const maxBodyBytes = 10 << 20

// WebhookHandler runs the ingestion pipeline for inbound webhook deliveries:
// parse, verify, identify, dedup-check, record, enqueue, respond. Every exit
// responds with JSON carrying either a message or an error, plus the event id
// once one has been derived.
type WebhookHandler struct {
	registry *provider.Registry
	dedup    core.DedupStore
	producer core.TaskProducer
	logger   *slog.Logger
}

// NewWebhookHandler creates a new webhook handler with the given provider
// registry, dedup store and task producer.
func NewWebhookHandler(registry *provider.Registry, dedup core.DedupStore, producer core.TaskProducer, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		registry: registry,
		dedup:    dedup,
		producer: producer,
		logger:   logger,
	}
}

// webhookResponse is the uniform response body for all ingestion outcomes.
type webhookResponse struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	EventID string `json:"eventId,omitempty"`
}

// reviewExtensions are optional sender-supplied fields that may ride alongside
// the provider payload. CI senders use them to attach file contents and pick a
// review depth; the platforms' own webhook payloads never carry either.
type reviewExtensions struct {
	ReviewType    core.ReviewType   `json:"reviewType"`
	FilesToReview []core.ReviewFile `json:"filesToReview"`
}

// Handle processes one webhook delivery. The body is read exactly once and the
// raw bytes are handed to signature verification untouched.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	prov, err := core.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		metrics.WebhookRequests.WithLabelValues("unknown", "invalid").Inc()
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	strategy, err := h.registry.ForProvider(prov)
	if err != nil {
		metrics.WebhookRequests.WithLabelValues(prov.String(), "invalid").Inc()
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mt != "application/json" {
		metrics.WebhookRequests.WithLabelValues(prov.String(), "invalid").Inc()
		h.respondError(w, http.StatusBadRequest, "content type must be application/json")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		metrics.WebhookRequests.WithLabelValues(prov.String(), "invalid").Inc()
		h.respondError(w, http.StatusBadRequest, "could not read request body")
		return
	}

	if !json.Valid(body) {
		metrics.WebhookRequests.WithLabelValues(prov.String(), "invalid").Inc()
		h.respondError(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}

	if !strategy.VerifySignature(r.Header, body) {
		h.logger.WarnContext(ctx, "webhook signature verification failed", "provider", prov)
		metrics.WebhookRequests.WithLabelValues(prov.String(), "unauthorized").Inc()
		h.respondError(w, http.StatusUnauthorized, "signature verification failed")
		return
	}

	eventID := strategy.DeriveEventID(r.Header, body)
	if eventID == "" {
		metrics.WebhookRequests.WithLabelValues(prov.String(), "invalid").Inc()
		h.respondError(w, http.StatusBadRequest, "could not derive an event id")
		return
	}

	first, err := h.dedup.MarkSeen(ctx, prov, eventID)
	if err != nil {
		h.logger.ErrorContext(ctx, "dedup check failed", "provider", prov, "event_id", eventID, "error", err)
		metrics.WebhookRequests.WithLabelValues(prov.String(), "error").Inc()
		h.respondError(w, http.StatusInternalServerError, "could not check event identity")
		return
	}
	if !first {
		h.logger.InfoContext(ctx, "duplicate delivery skipped", "provider", prov, "event_id", eventID)
		metrics.DedupHits.WithLabelValues(prov.String()).Inc()
		metrics.WebhookRequests.WithLabelValues(prov.String(), "duplicate").Inc()
		h.respondJSON(w, http.StatusAccepted, webhookResponse{Message: "event already processed", EventID: eventID})
		return
	}

	if err := h.producer.Enqueue(ctx, h.buildTask(prov, eventID, body)); err != nil {
		h.logger.ErrorContext(ctx, "failed to enqueue review task", "provider", prov, "event_id", eventID, "error", err)
		// Drop the dedup record so a sender retry of this delivery is not
		// mistaken for a duplicate of an event that never reached the queue.
		if relErr := h.dedup.Release(ctx, prov, eventID); relErr != nil {
			h.logger.WarnContext(ctx, "could not release dedup record after failed enqueue", "provider", prov, "event_id", eventID, "error", relErr)
		}
		metrics.WebhookRequests.WithLabelValues(prov.String(), "error").Inc()
		h.respondError(w, http.StatusInternalServerError, "could not enqueue review task")
		return
	}

	h.logger.InfoContext(ctx, "review task enqueued", "provider", prov, "event_id", eventID)
	metrics.WebhookRequests.WithLabelValues(prov.String(), "accepted").Inc()
	h.respondJSON(w, http.StatusOK, webhookResponse{Message: "review task enqueued", EventID: eventID})
}

// buildTask assembles the queued task, preserving the raw payload verbatim and
// lifting the optional sender extensions when their values are usable.
func (h *WebhookHandler) buildTask(prov core.Provider, eventID string, body []byte) *core.QueuedTask {
	task := &core.QueuedTask{
		Provider: prov,
		EventID:  eventID,
		Payload:  body,
	}

	var ext reviewExtensions
	if err := json.Unmarshal(body, &ext); err != nil {
		return task
	}
	switch ext.ReviewType {
	case core.ReviewDetailed, core.ReviewGeneral:
		task.ReviewType = ext.ReviewType
	}
	task.FilesToReview = ext.FilesToReview
	return task
}

func (h *WebhookHandler) respondError(w http.ResponseWriter, status int, msg string) {
	h.respondJSON(w, status, webhookResponse{Error: msg})
}

func (h *WebhookHandler) respondJSON(w http.ResponseWriter, status int, body webhookResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to write webhook response", "error", err)
	}
}
