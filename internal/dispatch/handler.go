package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/E-m-i-n-e-n-c-e/Revent/internal/audit"
	"github.com/E-m-i-n-e-n-c-e/Revent/internal/platform/kafka/consumer"
)

var tracer = otel.Tracer("github.com/E-m-i-n-e-n-c-e/Revent/internal/dispatch")

// Announcer is the optional notification collaborator. It receives the
// head-of-list item when a change classifies as add_announcement.
type Announcer interface {
	Announce(ctx context.Context, clubID string, item map[string]any)
}

// ChangeHandler decodes document-change messages and runs them through the
// audit pipeline. It is the Kafka-borne equivalent of the HTTP webhook.
type ChangeHandler struct {
	pipeline  *audit.Service
	announcer Announcer
	logger    *slog.Logger
}

func NewChangeHandler(pipeline *audit.Service, announcer Announcer, logger *slog.Logger) *ChangeHandler {
	return &ChangeHandler{
		pipeline:  pipeline,
		announcer: announcer,
		logger:    logger,
	}
}

// ChangePayload is the wire shape of one document change.
type ChangePayload struct {
	Collection string         `json:"collection"`
	DocumentID string         `json:"documentId"`
	Before     map[string]any `json:"before,omitempty"`
	After      map[string]any `json:"after,omitempty"`
	Actor      *audit.Actor   `json:"actor,omitempty"`
}

// Event converts the payload to a pipeline ChangeEvent.
func (p *ChangePayload) Event() audit.ChangeEvent {
	return audit.ChangeEvent{
		Collection: audit.Collection(p.Collection),
		DocumentID: p.DocumentID,
		Before:     audit.Snapshot(p.Before),
		After:      audit.Snapshot(p.After),
		Actor:      p.Actor,
	}
}

// Handle runs one message through the pipeline. Malformed messages are
// logged and committed; they can never become processable through retry.
func (h *ChangeHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var payload ChangePayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		h.logger.ErrorContext(ctx, "malformed change payload, skipping",
			"topic", msg.Topic,
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	ctx, span := tracer.Start(ctx, "change.handle", trace.WithAttributes(
		attribute.String("collection", payload.Collection),
		attribute.String("document_id", payload.DocumentID),
	))
	defer span.End()

	event := payload.Event()
	outcome, err := h.pipeline.Handle(ctx, event)
	if err != nil {
		span.RecordError(err)
		h.logger.WarnContext(ctx, "invalid change event, skipping",
			"collection", payload.Collection,
			"document_id", payload.DocumentID,
			"error", err,
		)
		return nil
	}
	span.SetAttributes(attribute.String("operation", string(outcome.Operation)))

	if h.announcer != nil && outcome.Operation == audit.OpAddAnnouncement && outcome.NewAnnouncement != nil {
		h.announcer.Announce(ctx, payload.DocumentID, outcome.NewAnnouncement)
	}
	return nil
}
