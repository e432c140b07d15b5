package audit

// sensitiveUserFields are stripped from user snapshots before logging.
// The audit trail records what changed, not credentials or contact details.
var sensitiveUserFields = []string{"authProviders", "phoneNumber"}

// SanitizeUser returns a copy of the snapshot with sensitive fields removed.
// Pure: the input is never mutated, and fields absent from the input are
// simply absent from the output. A nil snapshot stays nil.
func SanitizeUser(s Snapshot) Snapshot {
	if s == nil {
		return nil
	}
	out := s.Clone()
	for _, field := range sensitiveUserFields {
		delete(out, field)
	}
	return out
}
