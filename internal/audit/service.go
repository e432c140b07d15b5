package audit

import (
	"context"
	"log/slog"
)

// Outcome reports what the pipeline concluded about a change event. The
// dispatcher hands it to sibling collaborators; in particular the
// notification sender reads NewAnnouncement when the operation is
// add_announcement.
type Outcome struct {
	Operation       Operation
	NewAnnouncement map[string]any
}

// Service runs the change-classification and audit-log-emission pipeline:
// classify the before/after pair, resolve the responsible actor, sanitize
// user snapshots, and hand the assembled record to the best-effort writer.
// Each call is an independent, stateless invocation.
type Service struct {
	writer *Writer
	logger *slog.Logger
}

// NewService wires the pipeline over a writer.
func NewService(writer *Writer, logger *slog.Logger) *Service {
	return &Service{writer: writer, logger: logger}
}

// Handle processes one change event. The returned error covers malformed
// input only; persistence failures never surface here (see Writer.Write).
// At-least-once delivery is tolerated: re-handling the same logical change
// yields a duplicate record, which is acceptable and not deduplicated.
func (s *Service) Handle(ctx context.Context, ev ChangeEvent) (Outcome, error) {
	if err := ev.Validate(); err != nil {
		return Outcome{}, err
	}

	operation := Classify(ev.Collection, ev.Before, ev.After)
	if operation == OpUnknown && s.writer.metrics != nil {
		s.writer.metrics.IncUnknownOperations()
	}

	// Actor resolution may strip embedded annotation fields from the
	// snapshots, so it must run before they are captured into the record.
	actor := resolveActor(&ev, operation)

	before, after := ev.Before, ev.After
	if ev.Collection == CollectionUsers {
		before = SanitizeUser(before)
		after = SanitizeUser(after)
	}

	s.writer.Write(ctx, Record{
		Collection: ev.Collection,
		DocumentID: ev.DocumentID,
		Operation:  operation,
		UserID:     actor.UserID,
		UserEmail:  actor.Email,
		BeforeData: before,
		AfterData:  after,
	})

	outcome := Outcome{Operation: operation}
	if operation == OpAddAnnouncement {
		if item, ok := NewAnnouncement(ev.After); ok {
			outcome.NewAnnouncement = item
		}
	}
	return outcome, nil
}
