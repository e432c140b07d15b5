package audit

// Snapshot annotation keys used by legacy producers to smuggle actor
// identity inside document payloads. New producers set ChangeEvent.Actor
// instead; these fields remain honored so older writes stay attributed.
const (
	changeAnnotationKey = "_metadata"
	deleteAnnotationKey = "_deleteMetadata"
)

// resolveActor determines who made the change, first match wins:
//
//  1. the authenticated actor on the invocation context,
//  2. a delete-actor annotation embedded in Before (deletions only),
//  3. a change-actor annotation embedded in After,
//  4. the "system" sentinel.
//
// Reading an annotation strips it from the snapshot in place: the annotation
// is a carrier for identity, never log content, so it must not survive into
// the persisted record even though the caller only wanted the identity.
func resolveActor(ev *ChangeEvent, op Operation) Actor {
	if ev.Actor != nil && ev.Actor.UserID != "" {
		return *ev.Actor
	}

	if op.IsDelete() {
		if actor, ok := takeAnnotation(ev.Before, deleteAnnotationKey); ok {
			return actor
		}
	}
	if actor, ok := takeAnnotation(ev.After, changeAnnotationKey); ok {
		return actor
	}

	return Actor{UserID: SystemActor, Email: SystemActor}
}

// takeAnnotation extracts an actor annotation and removes it from the
// snapshot. Partial annotations fall back to the sentinel per field.
func takeAnnotation(s Snapshot, key string) (Actor, bool) {
	if s == nil {
		return Actor{}, false
	}
	raw, ok := s[key].(map[string]any)
	if !ok {
		return Actor{}, false
	}
	delete(s, key)

	actor := Actor{UserID: SystemActor, Email: SystemActor}
	if id, ok := raw["userId"].(string); ok && id != "" {
		actor.UserID = id
	}
	if email, ok := raw["userEmail"].(string); ok && email != "" {
		actor.Email = email
	}
	return actor, true
}
