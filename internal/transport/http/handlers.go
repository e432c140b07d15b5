package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/E-m-i-n-e-n-c-e/Revent/internal/audit"
	"github.com/E-m-i-n-e-n-c-e/Revent/internal/dispatch"
	"github.com/E-m-i-n-e-n-c-e/Revent/internal/platform/middleware"
)

// Announcer is the optional notification collaborator; the webhook path
// triggers the same side effect as the Kafka path.
type Announcer interface {
	Announce(ctx context.Context, clubID string, item map[string]any)
}

// HealthChecker is a named dependency probe reported by /healthz.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler is the thin HTTP layer over the audit pipeline. It decodes,
// delegates, and encodes; classification and persistence rules live in
// internal/audit.
type Handler struct {
	pipeline  *audit.Service
	store     audit.Store
	announcer Announcer
	logger    *slog.Logger
	jwtSecret string

	checkNames []string
	checks     map[string]HealthChecker
}

// AddHealthCheck registers a dependency probe under the given name.
// Registration order is the order checks run and are reported in.
func (h *Handler) AddHealthCheck(name string, check HealthChecker) {
	if h.checks == nil {
		h.checks = make(map[string]HealthChecker)
	}
	h.checkNames = append(h.checkNames, name)
	h.checks[name] = check
}

func NewHandler(pipeline *audit.Service, store audit.Store, announcer Announcer, logger *slog.Logger, jwtSecret string) *Handler {
	return &Handler{
		pipeline:  pipeline,
		store:     store,
		announcer: announcer,
		logger:    logger,
		jwtSecret: jwtSecret,
	}
}

// NewRouter wires the public endpoints. Change ingestion and log queries
// require a bearer token; health does not.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.Logger(h.logger))

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtSecret, h.logger))
		r.Post("/v1/changes", h.handleChange)
		r.Get("/v1/logs", h.handleListLogs)
		r.Get("/v1/logs/{collection}/{documentID}", h.handleDocumentLogs)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for _, name := range h.checkNames {
		if err := h.checks[name].Health(ctx); err != nil {
			h.logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
			deps[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	body := map[string]any{"status": "ok"}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if len(deps) > 0 {
		body["dependencies"] = deps
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// handleChange ingests one change event from the webhook. The authenticated
// bearer identity is the invocation's actor and takes priority over anything
// embedded in the payload.
func (h *Handler) handleChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload dispatch.ChangePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event := payload.Event()
	if claims := middleware.GetActor(ctx); claims != nil {
		event.Actor = &audit.Actor{UserID: claims.UserID, Email: claims.Email}
	}

	outcome, err := h.pipeline.Handle(ctx, event)
	if err != nil {
		h.logger.WarnContext(ctx, "rejected change event",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.announcer != nil && outcome.Operation == audit.OpAddAnnouncement && outcome.NewAnnouncement != nil {
		h.announcer.Announce(ctx, payload.DocumentID, outcome.NewAnnouncement)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"operation": string(outcome.Operation)})
}

func (h *Handler) handleListLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	records, err := h.store.ListRecent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "list audit logs failed",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		writeError(w, http.StatusInternalServerError, "could not list audit logs")
		return
	}
	writeRecords(w, records)
}

func (h *Handler) handleDocumentLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	collection, err := audit.ParseCollection(chi.URLParam(r, "collection"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	documentID := chi.URLParam(r, "documentID")

	records, err := h.store.ListByDocument(ctx, collection, documentID)
	if err != nil {
		h.logger.ErrorContext(ctx, "list document logs failed",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		writeError(w, http.StatusInternalServerError, "could not list audit logs")
		return
	}
	writeRecords(w, records)
}

type recordResponse struct {
	ID         uuid.UUID      `json:"id"`
	Collection string         `json:"collection"`
	DocumentID string         `json:"documentId"`
	Operation  string         `json:"operation"`
	Timestamp  time.Time      `json:"timestamp"`
	UserID     string         `json:"userId"`
	UserEmail  string         `json:"userEmail"`
	BeforeData map[string]any `json:"beforeData"`
	AfterData  map[string]any `json:"afterData"`
}

func writeRecords(w http.ResponseWriter, records []audit.Record) {
	out := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, recordResponse{
			ID:         rec.ID,
			Collection: string(rec.Collection),
			DocumentID: rec.DocumentID,
			Operation:  string(rec.Operation),
			Timestamp:  rec.Timestamp,
			UserID:     rec.UserID,
			UserEmail:  rec.UserEmail,
			BeforeData: rec.BeforeData,
			AfterData:  rec.AfterData,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"logs": out})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
