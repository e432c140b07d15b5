package audit

import "reflect"

// Operation is the fixed-vocabulary label classifying a change event's
// nature. Labels are persisted verbatim, so the vocabulary is append-only.
type Operation string

const (
	// Events
	OpCreateEvent Operation = "create_event"
	OpUpdateEvent Operation = "update_event"
	OpDeleteEvent Operation = "delete_event"

	// Announcements. Document-level create/delete labels keep the
	// club-scoped names; add/delete refer to entries within the
	// announcementsList of an existing document.
	OpCreateClubAnnouncements Operation = "create_club_announcements"
	OpAddAnnouncement         Operation = "add_announcement"
	OpDeleteAnnouncement      Operation = "delete_announcement"
	OpUpdateAnnouncement      Operation = "update_announcement"
	OpDeleteClubAnnouncements Operation = "delete_club_announcements"

	// Clubs
	OpCreateClub           Operation = "create_club"
	OpUpdateClubAdmins     Operation = "update_club_admins"
	OpUpdateClubLogo       Operation = "update_club_logo"
	OpUpdateClubBackground Operation = "update_club_background"
	OpUpdateClub           Operation = "update_club"
	OpDeleteClub           Operation = "delete_club"

	// Users
	OpCreateUser           Operation = "create_user"
	OpUpdateUserPhoto      Operation = "update_user_photo"
	OpUpdateUserBackground Operation = "update_user_background"
	OpUpdateUser           Operation = "update_user"
	OpDeleteUser           Operation = "delete_user"

	// Map markers
	OpCreateMapMarker Operation = "create_map_marker"
	OpUpdateMapMarker Operation = "update_map_marker"
	OpDeleteMapMarker Operation = "delete_map_marker"

	// OpUnknown should never be produced for a valid invocation; it exists
	// so Classify stays total when handed garbage.
	OpUnknown Operation = "unknown"
)

// IsDelete reports whether the label denotes removal of the whole document.
func (o Operation) IsDelete() bool {
	switch o {
	case OpDeleteEvent, OpDeleteClubAnnouncements, OpDeleteClub,
		OpDeleteUser, OpDeleteMapMarker:
		return true
	}
	return false
}

// Snapshot field names consulted by the update sub-classifiers.
const (
	fieldAnnouncementsList  = "announcementsList"
	fieldAdminEmails        = "adminEmails"
	fieldLogoURL            = "logoUrl"
	fieldBackgroundImageURL = "backgroundImageUrl"
	fieldPhotoURL           = "photoURL"
)

// rules holds the per-collection label set. The update function runs only
// when both snapshots are present.
type rules struct {
	create Operation
	delete Operation
	update func(before, after Snapshot) Operation
}

var classifierRules = map[Collection]rules{
	CollectionEvents: {
		create: OpCreateEvent,
		delete: OpDeleteEvent,
		update: func(Snapshot, Snapshot) Operation { return OpUpdateEvent },
	},
	CollectionMapMarkers: {
		create: OpCreateMapMarker,
		delete: OpDeleteMapMarker,
		update: func(Snapshot, Snapshot) Operation { return OpUpdateMapMarker },
	},
	CollectionAnnouncements: {
		create: OpCreateClubAnnouncements,
		delete: OpDeleteClubAnnouncements,
		update: classifyAnnouncementUpdate,
	},
	CollectionClubs: {
		create: OpCreateClub,
		delete: OpDeleteClub,
		update: classifyClubUpdate,
	},
	CollectionUsers: {
		create: OpCreateUser,
		delete: OpDeleteUser,
		update: classifyUserUpdate,
	},
}

// Classify derives the operation label for a before/after snapshot pair.
// It is pure and total: no input raises an error, and an input violating the
// existence invariant (both snapshots absent) yields OpUnknown.
func Classify(collection Collection, before, after Snapshot) Operation {
	r, ok := classifierRules[collection]
	if !ok {
		return OpUnknown
	}
	switch {
	case before == nil && after != nil:
		return r.create
	case before != nil && after == nil:
		return r.delete
	case before != nil && after != nil:
		return r.update(before, after)
	}
	return OpUnknown
}

// classifyAnnouncementUpdate diffs the announcement list by length. Equal
// lengths mean an in-place edit; the list contents are not inspected further.
func classifyAnnouncementUpdate(before, after Snapshot) Operation {
	beforeLen := before.listLen(fieldAnnouncementsList)
	afterLen := after.listLen(fieldAnnouncementsList)
	switch {
	case afterLen > beforeLen:
		return OpAddAnnouncement
	case afterLen < beforeLen:
		return OpDeleteAnnouncement
	}
	return OpUpdateAnnouncement
}

// classifyClubUpdate applies the club rules in priority order; the first
// differing field wins even if later fields also changed.
func classifyClubUpdate(before, after Snapshot) Operation {
	switch {
	case fieldDiffers(before, after, fieldAdminEmails):
		return OpUpdateClubAdmins
	case fieldDiffers(before, after, fieldLogoURL):
		return OpUpdateClubLogo
	case fieldDiffers(before, after, fieldBackgroundImageURL):
		return OpUpdateClubBackground
	}
	return OpUpdateClub
}

func classifyUserUpdate(before, after Snapshot) Operation {
	switch {
	case fieldDiffers(before, after, fieldPhotoURL):
		return OpUpdateUserPhoto
	case fieldDiffers(before, after, fieldBackgroundImageURL):
		return OpUpdateUserBackground
	}
	return OpUpdateUser
}

// fieldDiffers deep-compares one field across snapshots. Absent counts as
// nil, so adding or removing the field is a difference.
func fieldDiffers(before, after Snapshot, key string) bool {
	return !reflect.DeepEqual(before[key], after[key])
}

// NewAnnouncement returns the item assumed to have been added at the head of
// the announcement list. The producer maintains newest-first ordering; that
// convention is consumed here, not verified.
func NewAnnouncement(after Snapshot) (map[string]any, bool) {
	list, ok := after[fieldAnnouncementsList].([]any)
	if !ok || len(list) == 0 {
		return nil, false
	}
	item, ok := list[0].(map[string]any)
	return item, ok
}
