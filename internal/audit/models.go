package audit

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Collection identifies one of the watched document collections. The set is
// closed: classification rules are hand-enumerated per collection and new
// collections require new rules, not configuration.
type Collection string

const (
	CollectionEvents        Collection = "events"
	CollectionAnnouncements Collection = "announcements"
	CollectionClubs         Collection = "clubs"
	CollectionUsers         Collection = "users"
	CollectionMapMarkers    Collection = "mapMarkers"
)

// ParseCollection validates a collection name from the wire.
func ParseCollection(s string) (Collection, error) {
	switch c := Collection(s); c {
	case CollectionEvents, CollectionAnnouncements, CollectionClubs,
		CollectionUsers, CollectionMapMarkers:
		return c, nil
	}
	return "", fmt.Errorf("unknown collection: %q", s)
}

// Snapshot is an untyped document snapshot. Field semantics are
// collection-specific; absent fields are treated as "no value", never a fault.
type Snapshot map[string]any

// Clone returns a shallow copy. Nested values are shared; callers that
// mutate nested structures own that problem.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// listLen reads a JSON-decoded array field, treating a missing or
// non-array value as an empty list.
func (s Snapshot) listLen(key string) int {
	if s == nil {
		return 0
	}
	if list, ok := s[key].([]any); ok {
		return len(list)
	}
	return 0
}

// Actor is the resolved identity responsible for a change.
type Actor struct {
	UserID string `json:"userId"`
	Email  string `json:"userEmail"`
}

// SystemActor is the sentinel identity recorded when no real actor resolves.
const SystemActor = "system"

// ChangeEvent is one create/update/delete mutation on a single document,
// delivered by a dispatcher as a before/after snapshot pair. Actor carries
// the authenticated identity from the invocation context when the dispatcher
// knows it; it is the preferred channel for actor identity and replaces the
// legacy embedded-annotation convention, which is still honored as a
// fallback (see resolveActor).
type ChangeEvent struct {
	Collection Collection
	DocumentID string
	Before     Snapshot
	After      Snapshot
	Actor      *Actor
}

// ErrEmptyChange marks an invocation where both snapshots are absent.
// Dispatchers treat it as a malformed delivery, not a retryable failure.
var ErrEmptyChange = errors.New("change event carries neither before nor after snapshot")

// Validate checks the existence invariant: at least one snapshot present.
func (e *ChangeEvent) Validate() error {
	if e.Before == nil && e.After == nil {
		return ErrEmptyChange
	}
	if e.DocumentID == "" {
		return errors.New("change event missing document id")
	}
	if _, err := ParseCollection(string(e.Collection)); err != nil {
		return err
	}
	return nil
}

// Record is the immutable audit-log entry. It is created exactly once per
// invocation and never updated or deleted. Timestamp is assigned by the
// persistence layer at write time; a zero Timestamp here means "not yet
// persisted".
type Record struct {
	ID         uuid.UUID
	Collection Collection
	DocumentID string
	Operation  Operation
	Timestamp  time.Time
	UserID     string
	UserEmail  string
	BeforeData Snapshot
	AfterData  Snapshot
}
