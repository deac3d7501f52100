package store

// ConflictError is returned when an insert collides with an existing id.
// Ids are freshly generated uuids, so this indicates a caller bug rather
// than an expected race.
type ConflictError struct {
	ID string
}

func (e ConflictError) Error() string {
	if e.ID == "" {
		return "teaching already exists"
	}

	return "teaching already exists: " + e.ID
}
